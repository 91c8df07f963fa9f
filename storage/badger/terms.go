package badger

import (
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/rondochain/rondo-go/model/rondo"
	"github.com/rondochain/rondo-go/storage/badger/operation"
)

// Terms implements persistent storage for terms on top of badger.
type Terms struct {
	db *badger.DB
}

func NewTerms(db *badger.DB) *Terms {
	return &Terms{db: db}
}

func (t *Terms) Store(term *rondo.Term) error {
	err := t.db.Update(operation.InsertTerm(term))
	if err != nil {
		return fmt.Errorf("could not store term %d: %w", term.Number, err)
	}
	return nil
}

func (t *Terms) ByNumber(number uint64) (*rondo.Term, error) {
	var term rondo.Term
	err := t.db.View(operation.RetrieveTerm(number, &term))
	if err != nil {
		return nil, fmt.Errorf("could not retrieve term %d: %w", number, err)
	}
	return &term, nil
}
