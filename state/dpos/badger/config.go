package badger

import (
	"fmt"
	"time"
)

// Config holds the consensus scheduling parameters. The values are fixed at
// bootstrap and shared by every miner on the chain.
type Config struct {

	// MiningInterval is the spacing between consecutive expected mining
	// times within a round.
	MiningInterval time.Duration

	// TinyBlocksPerSlot caps how many filler blocks a miner may produce
	// inside one time slot.
	TinyBlocksPerSlot uint32

	// RoundsPerTerm is the number of rounds after which the next
	// transition must be a term transition.
	RoundsPerTerm uint64

	// ShareThreshold is the number of secret shares required to
	// reconstruct a miner's in-value off-chain.
	ShareThreshold int
}

func DefaultConfig() Config {
	return Config{
		MiningInterval:    4 * time.Second,
		TinyBlocksPerSlot: 8,
		RoundsPerTerm:     40,
		ShareThreshold:    3,
	}
}

func (c Config) Validate() error {
	if c.MiningInterval <= 0 {
		return fmt.Errorf("non-positive mining interval (%s)", c.MiningInterval)
	}
	if c.TinyBlocksPerSlot == 0 {
		return fmt.Errorf("zero tiny block cap")
	}
	if c.RoundsPerTerm == 0 {
		return fmt.Errorf("zero rounds per term")
	}
	if c.ShareThreshold < 1 {
		return fmt.Errorf("invalid share threshold (%d)", c.ShareThreshold)
	}
	return nil
}
