package notifications

import (
	"github.com/rondochain/rondo-go/model/rondo"
	"github.com/rondochain/rondo-go/module"
)

// Consumer subscribes to scheduler lifecycle events. Implementations must be
// non-blocking and concurrency safe.
type Consumer interface {

	// OnRoundCommitted is emitted after a proposal was committed to the
	// round state, with the round as committed and the behaviour that
	// produced it.
	OnRoundCommitted(round *rondo.Round, behaviour rondo.Behaviour)

	// OnIrreversibleHeightAdvanced is emitted when a commit raised the
	// last irreversible block height.
	OnIrreversibleHeightAdvanced(height uint64, roundNumber uint64)

	// OnTermEnded is emitted when a term transition was committed, with
	// the closed term and the per-miner production tallies.
	OnTermEnded(term *rondo.Term, tallies []module.MinedBlocksTally)
}
