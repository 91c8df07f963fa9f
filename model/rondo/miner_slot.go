package rondo

import (
	"time"
)

// MinerSlot holds the per-round state of a single miner: its position in the
// mining schedule, the commit-reveal values it has published, and its
// irreversibility claim. Within a committed round a slot is immutable; the
// engine mutates slots only on deep working copies of a round.
type MinerSlot struct {
	// Miner is the identifier derived from the miner's public key.
	Miner Identifier

	// PubKey is the encoded public key of the miner.
	PubKey []byte

	// Order is the miner's position in the round schedule. Orders form a
	// permutation of 1..N across the round's slots.
	Order uint32

	// IsExtraBlockProducer marks the one slot that is authorized to
	// terminate the round once every ordinary slot has elapsed. It is
	// designated at round generation and never changes within the round.
	IsExtraBlockProducer bool

	// ExpectedMiningTime is the nominal start of the miner's time slot.
	ExpectedMiningTime time.Time

	// ActualMiningTimes records when the miner actually produced blocks in
	// this round, in append order.
	ActualMiningTimes []time.Time

	// ProducedBlocks counts all blocks the miner produced in this round,
	// tiny blocks included.
	ProducedBlocks uint64

	// ProducedTinyBlocks counts the filler blocks produced in this round.
	// It is bounded by the per-slot tiny block cap.
	ProducedTinyBlocks uint32

	// MissedTimeSlots accumulates the number of rounds in which the miner
	// held a slot but never produced.
	MissedTimeSlots uint64

	// OutValue is the miner's commitment for this round, the hash of a
	// secret in-value. It is set at most once per round.
	OutValue []byte

	// Signature is the aggregate signature published with the out-value.
	// Its integer interpretation seeds the next-round order assignment.
	Signature []byte

	// PreviousInValue is the reveal of the miner's previous-round secret.
	// Empty until revealed; once validated and set it is never overwritten
	// within the round.
	PreviousInValue []byte

	// SupposedOrderOfNextRound is the order derived directly from the
	// signature, before collision resolution. Zero until the miner mines.
	SupposedOrderOfNextRound uint32

	// FinalOrderOfNextRound is the collision-free next-round order. Zero
	// until the miner mines; unique in value across all mined slots.
	FinalOrderOfNextRound uint32

	// ImpliedIrreversibleBlockHeight is the block height the miner claims
	// can be considered irreversible.
	ImpliedIrreversibleBlockHeight uint64
}

// HasMined returns whether the miner has published its commitment in this
// round, which is the marker for having produced its slot block.
func (s *MinerSlot) HasMined() bool {
	return len(s.OutValue) > 0
}

// LatestActualMiningTime returns the most recent actual mining time of the
// slot, and false if the miner has not produced any block this round.
func (s *MinerSlot) LatestActualMiningTime() (time.Time, bool) {
	if len(s.ActualMiningTimes) == 0 {
		return time.Time{}, false
	}
	return s.ActualMiningTimes[len(s.ActualMiningTimes)-1], true
}

// InSlotWindow returns whether the given time falls within the miner's own
// time slot [expected, expected+interval).
func (s *MinerSlot) InSlotWindow(t time.Time, interval time.Duration) bool {
	return !t.Before(s.ExpectedMiningTime) && t.Before(s.ExpectedMiningTime.Add(interval))
}

// Copy returns a deep copy of the slot.
func (s *MinerSlot) Copy() *MinerSlot {
	dup := *s
	dup.PubKey = append([]byte(nil), s.PubKey...)
	dup.ActualMiningTimes = append([]time.Time(nil), s.ActualMiningTimes...)
	dup.OutValue = append([]byte(nil), s.OutValue...)
	dup.Signature = append([]byte(nil), s.Signature...)
	dup.PreviousInValue = append([]byte(nil), s.PreviousInValue...)
	return &dup
}
