package storage

import (
	"github.com/rondochain/rondo-go/model/rondo"
)

// Terms represents persistent storage for terms.
type Terms interface {

	// Store inserts the term, keyed by its term number. It errors with
	// ErrAlreadyExists if a term with the same number is already stored.
	Store(term *rondo.Term) error

	// ByNumber returns the term with the given term number. It errors
	// with ErrNotFound if no such term is stored.
	ByNumber(number uint64) (*rondo.Term, error)
}
