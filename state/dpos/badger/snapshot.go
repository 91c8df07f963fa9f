package badger

import (
	"fmt"

	"github.com/rondochain/rondo-go/model/rondo"
	"github.com/rondochain/rondo-go/state/dpos"
	"github.com/rondochain/rondo-go/storage"
)

// Snapshot is the immutable view of the committed state at one round. Every
// accessor decodes a fresh copy from storage, so callers can never mutate
// committed state through a snapshot.
type Snapshot struct {
	state  *State
	number uint64
	err    error
}

var _ dpos.Snapshot = (*Snapshot)(nil)

func (s *Snapshot) Round() (*rondo.Round, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.state.rounds.ByNumber(s.number)
}

func (s *Snapshot) PreviousRound() (*rondo.Round, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.number <= 1 {
		return nil, fmt.Errorf("no round precedes round %d: %w", s.number, storage.ErrNotFound)
	}
	return s.state.rounds.ByNumber(s.number - 1)
}

func (s *Snapshot) Term() (*rondo.Term, error) {
	if s.err != nil {
		return nil, s.err
	}
	round, err := s.state.rounds.ByNumber(s.number)
	if err != nil {
		return nil, err
	}
	return s.state.terms.ByNumber(round.TermNumber)
}

// IsTermBoundary returns whether the snapshot's round is the last of its
// term, so the next transition out of it must start a new term.
func (s *Snapshot) IsTermBoundary() (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	round, err := s.state.rounds.ByNumber(s.number)
	if err != nil {
		return false, err
	}
	term, err := s.state.terms.ByNumber(round.TermNumber)
	if err != nil {
		return false, err
	}
	elapsed := round.Number - term.FirstRoundNumber + 1
	return elapsed >= s.state.cfg.RoundsPerTerm, nil
}
