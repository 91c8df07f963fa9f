package irreversible

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/rondochain/rondo-go/model/rondo"
)

// RequiredConfirmations returns the number of miners that must have
// confirmed a height for it to be irreversible under Byzantine assumptions.
// With n miners and f = floor((n-1)/3) tolerated faults, n-f confirmations
// are required.
func RequiredConfirmations(n int) int {
	f := (n - 1) / 3
	return n - f
}

// MinimumConsent returns the smallest number of reporting miners for which
// a LIB update may be attempted at all: more than two thirds of the full
// miner set.
func MinimumConsent(n int) int {
	return 2*n/3 + 1
}

// Calculator derives the BFT-safe Last Irreversible Block height from the
// implied-height claims of the previous round.
type Calculator struct {
	log zerolog.Logger
}

func NewCalculator(log zerolog.Logger) *Calculator {
	return &Calculator{
		log: log.With().Str("component", "lib_calculator").Logger(),
	}
}

// Compute collects, from the previous round, the implied irreversible
// heights of every miner that mined in the current round, and returns the
// highest height confirmed by at least RequiredConfirmations(N) of the
// FULL miner set. N is always the previous round's total miner count, never
// the number of miners that happened to report; computing the index against
// the reporter count would let a small quorum push an under-confirmed LIB.
//
// Returns false when fewer than MinimumConsent(N) miners reported, or when
// the candidate does not advance past the current round's confirmed height.
func (c *Calculator) Compute(current *rondo.Round, previous *rondo.Round) (uint64, bool) {
	if current == nil || previous == nil {
		return 0, false
	}

	n := previous.MinerCount()
	if n == 0 {
		return 0, false
	}

	var heights []uint64
	for miner, slot := range current.Miners {
		if !slot.HasMined() {
			continue
		}
		prevSlot := previous.Slot(miner)
		if prevSlot == nil || prevSlot.ImpliedIrreversibleBlockHeight == 0 {
			continue
		}
		heights = append(heights, prevSlot.ImpliedIrreversibleBlockHeight)
	}

	if len(heights) < MinimumConsent(n) {
		c.log.Debug().
			Int("reported", len(heights)).
			Int("required", MinimumConsent(n)).
			Uint64("round", current.Number).
			Msg("not enough implied heights for a LIB update")
		return 0, false
	}

	sort.Slice(heights, func(i, j int) bool { return heights[i] < heights[j] })

	// the highest height confirmed by at least RequiredConfirmations(n)
	// reporters: everything at or above this index confirms it
	candidate := heights[len(heights)-RequiredConfirmations(n)]

	if candidate <= current.ConfirmedIrreversibleHeight {
		return 0, false
	}
	return candidate, true
}
