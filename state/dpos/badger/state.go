package badger

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/onflow/flow-go/crypto"

	"github.com/rondochain/rondo-go/consensus/sched/ordering"
	"github.com/rondochain/rondo-go/model/rondo"
	"github.com/rondochain/rondo-go/state/dpos"
	"github.com/rondochain/rondo-go/storage"
	"github.com/rondochain/rondo-go/storage/badger/operation"
)

// State implements read access to the committed round/term history, backed
// by badger.
type State struct {
	cfg    Config
	db     *badger.DB
	rounds storage.Rounds
	terms  storage.Terms
}

var _ dpos.State = (*State)(nil)

// OpenState opens the state over an already bootstrapped database. It errors
// if the database was never bootstrapped.
func OpenState(cfg Config, db *badger.DB, rounds storage.Rounds, terms storage.Terms) (*State, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	_, err = rounds.Current()
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("expected bootstrapped database")
	}
	if err != nil {
		return nil, fmt.Errorf("could not check database: %w", err)
	}
	return &State{
		cfg:    cfg,
		db:     db,
		rounds: rounds,
		terms:  terms,
	}, nil
}

// Bootstrap initializes the database with the first round of the first term,
// built from the genesis election result. It errors if the database already
// holds a committed round.
func Bootstrap(
	cfg Config,
	db *badger.DB,
	rounds storage.Rounds,
	terms storage.Terms,
	elected []crypto.PublicKey,
	start time.Time,
) (*State, error) {

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	_, err = rounds.Current()
	if err == nil {
		return nil, fmt.Errorf("expected empty database")
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("could not check database: %w", err)
	}

	genesis, err := ordering.GenerateFirstRoundOfTerm(elected, 1, 1, rondo.ZeroID, start, cfg.MiningInterval)
	if err != nil {
		return nil, fmt.Errorf("could not generate genesis round: %w", err)
	}

	term := &rondo.Term{
		Number:           1,
		FirstRoundNumber: 1,
		Miners:           genesis.MinerIDs(),
	}

	err = db.Update(func(tx *badger.Txn) error {
		err := operation.InsertRound(genesis)(tx)
		if err != nil {
			return fmt.Errorf("could not insert genesis round: %w", err)
		}
		err = operation.InsertTerm(term)(tx)
		if err != nil {
			return fmt.Errorf("could not insert genesis term: %w", err)
		}
		err = operation.InsertCurrentRound(genesis.Number)(tx)
		if err != nil {
			return fmt.Errorf("could not set current round: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not bootstrap: %w", err)
	}

	return &State{
		cfg:    cfg,
		db:     db,
		rounds: rounds,
		terms:  terms,
	}, nil
}

func (s *State) Final() dpos.Snapshot {
	round, err := s.rounds.Current()
	if err != nil {
		return &Snapshot{err: fmt.Errorf("could not look up head round: %w", err)}
	}
	return &Snapshot{state: s, number: round.Number}
}

func (s *State) AtRound(number uint64) (dpos.Snapshot, error) {
	_, err := s.rounds.ByNumber(number)
	if err != nil {
		return nil, fmt.Errorf("could not look up round %d: %w", number, err)
	}
	return &Snapshot{state: s, number: number}, nil
}
