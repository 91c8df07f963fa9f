package rondo

import "fmt"

// Behaviour enumerates the consensus actions a miner can legally take at a
// given moment within a round. The behaviour provider evaluates exactly one
// of these for every (miner, time) query; proposals carry the behaviour they
// claim to execute, and the validation pipeline gates checks on it.
type Behaviour uint8

const (
	// BehaviourNothing means no consensus action is available to the miner.
	BehaviourNothing Behaviour = iota
	// BehaviourUpdateValue publishes the miner's commitment for this round
	// together with the reveal of its previous-round secret.
	BehaviourUpdateValue
	// BehaviourTinyBlock produces a filler block within the miner's slot.
	BehaviourTinyBlock
	// BehaviourNextRound terminates the current round.
	BehaviourNextRound
	// BehaviourNextTerm terminates the current round and the current term.
	BehaviourNextTerm
)

// IsTransition returns whether the behaviour proposes a round transition.
func (b Behaviour) IsTransition() bool {
	return b == BehaviourNextRound || b == BehaviourNextTerm
}

func (b Behaviour) String() string {
	switch b {
	case BehaviourNothing:
		return "Nothing"
	case BehaviourUpdateValue:
		return "UpdateValue"
	case BehaviourTinyBlock:
		return "TinyBlock"
	case BehaviourNextRound:
		return "NextRound"
	case BehaviourNextTerm:
		return "NextTerm"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(b))
	}
}
