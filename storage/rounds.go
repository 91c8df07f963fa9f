package storage

import (
	"github.com/rondochain/rondo-go/model/rondo"
)

// Rounds represents persistent storage for rounds.
type Rounds interface {

	// Store inserts the round, keyed by its round number. It errors with
	// ErrAlreadyExists if a round with the same number is already stored.
	Store(round *rondo.Round) error

	// ByNumber returns the round with the given round number. It errors
	// with ErrNotFound if no such round is stored.
	ByNumber(number uint64) (*rondo.Round, error)

	// Current returns the round the current-round pointer refers to. It
	// errors with ErrNotFound if the pointer was never set.
	Current() (*rondo.Round, error)
}
