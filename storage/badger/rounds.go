package badger

import (
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"github.com/rondochain/rondo-go/model/rondo"
	"github.com/rondochain/rondo-go/storage/badger/operation"
)

// Rounds implements persistent storage for rounds on top of badger.
type Rounds struct {
	db *badger.DB
}

func NewRounds(db *badger.DB) *Rounds {
	return &Rounds{db: db}
}

func (r *Rounds) Store(round *rondo.Round) error {
	err := r.db.Update(operation.InsertRound(round))
	if err != nil {
		return fmt.Errorf("could not store round %d: %w", round.Number, err)
	}
	return nil
}

func (r *Rounds) ByNumber(number uint64) (*rondo.Round, error) {
	var round rondo.Round
	err := r.db.View(operation.RetrieveRound(number, &round))
	if err != nil {
		return nil, fmt.Errorf("could not retrieve round %d: %w", number, err)
	}
	return &round, nil
}

func (r *Rounds) Current() (*rondo.Round, error) {
	var round rondo.Round
	err := r.db.View(func(tx *badger.Txn) error {
		var number uint64
		err := operation.RetrieveCurrentRound(&number)(tx)
		if err != nil {
			return fmt.Errorf("could not look up current round: %w", err)
		}
		err = operation.RetrieveRound(number, &round)(tx)
		if err != nil {
			return fmt.Errorf("could not retrieve round %d: %w", number, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &round, nil
}
