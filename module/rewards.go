package module

import (
	"github.com/rondochain/rondo-go/model/rondo"
)

// MinedBlocksTally reports one miner's production over a finished term.
// Miners that held slots but never produced appear with zero blocks.
type MinedBlocksTally struct {
	Miner           rondo.Identifier
	Blocks          uint64
	TinyBlocks      uint64
	MissedTimeSlots uint64
}

// RewardsConsumer receives production tallies when a term ends. It is a
// pure consumer: it never influences scheduling decisions and never mutates
// round or term state.
type RewardsConsumer interface {
	OnTermEnded(term uint64, tallies []MinedBlocksTally)
}
