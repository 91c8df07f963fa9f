package rondo

import (
	"fmt"
	"sort"
	"time"
)

// Round is the snapshot of one complete cycle through all miners' slots.
// A round read from the committed store must be treated as immutable; every
// mutation happens on a deep copy obtained through Copy, and the mutated copy
// supersedes the committed round only through an atomic store commit. Working
// on the committed object directly would void the post-commit hash check.
type Round struct {
	// Number is the monotonically increasing round number, starting at 1.
	Number uint64

	// TermNumber identifies the term this round belongs to.
	TermNumber uint64

	// Miners maps miner identifiers to their slots for this round.
	Miners map[Identifier]*MinerSlot

	// ConfirmedIrreversibleHeight is the highest block height confirmed
	// irreversible as of this round. Non-decreasing across the chain.
	ConfirmedIrreversibleHeight uint64

	// ConfirmedIrreversibleRoundNumber is the round in which the confirmed
	// irreversible height was established. Non-decreasing across the chain.
	ConfirmedIrreversibleRoundNumber uint64

	// ExtraBlockProducerOfPreviousRound identifies the miner that terminated
	// the previous round. That miner may produce tiny blocks before this
	// round's first slot opens.
	ExtraBlockProducerOfPreviousRound Identifier

	// IsMinerListJustChanged is true for the first round of a term, where
	// the miner set was replaced wholesale by the election result.
	IsMinerListJustChanged bool
}

// MinerCount returns the number of slots in the round.
func (r *Round) MinerCount() int {
	return len(r.Miners)
}

// Slot returns the slot held by the given miner, or nil if the miner holds
// no slot in this round.
func (r *Round) Slot(miner Identifier) *MinerSlot {
	return r.Miners[miner]
}

// MinerIDs returns the identifiers of all slot holders in canonical order.
func (r *Round) MinerIDs() IdentifierList {
	ids := make(IdentifierList, 0, len(r.Miners))
	for id := range r.Miners {
		ids = append(ids, id)
	}
	return ids.Sort()
}

// SlotsByOrder returns the round's slots sorted by their schedule order.
func (r *Round) SlotsByOrder() []*MinerSlot {
	slots := make([]*MinerSlot, 0, len(r.Miners))
	for _, slot := range r.Miners {
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Order < slots[j].Order
	})
	return slots
}

// ExtraBlockProducer returns the slot designated to terminate this round,
// and false if no slot carries the designation.
func (r *Round) ExtraBlockProducer() (*MinerSlot, bool) {
	for _, slot := range r.Miners {
		if slot.IsExtraBlockProducer {
			return slot, true
		}
	}
	return nil, false
}

// FirstExpectedMiningTime returns the expected mining time of the order-1
// slot, which is the nominal start of the round.
func (r *Round) FirstExpectedMiningTime() time.Time {
	for _, slot := range r.Miners {
		if slot.Order == 1 {
			return slot.ExpectedMiningTime
		}
	}
	return time.Time{}
}

// ExpectedEndTime returns the moment the final ordinary slot's window
// closes, after which only the extra block producer (and, progressively,
// its substitutes) may act.
func (r *Round) ExpectedEndTime(interval time.Duration) time.Time {
	var last time.Time
	for _, slot := range r.Miners {
		end := slot.ExpectedMiningTime.Add(interval)
		if end.After(last) {
			last = end
		}
	}
	return last
}

// LatestActualMiningSlot returns the slot holding the chronologically latest
// actual mining time in the round, excluding the given miner. This is the
// reference point for authorization in round 1, where expected mining times
// are unreliable. Returns false if no other slot has produced a block.
func (r *Round) LatestActualMiningSlot(exclude Identifier) (*MinerSlot, bool) {
	var best *MinerSlot
	var bestTime time.Time
	for id, slot := range r.Miners {
		if id == exclude {
			continue
		}
		latest, ok := slot.LatestActualMiningTime()
		if !ok {
			continue
		}
		if best == nil || latest.After(bestTime) {
			best = slot
			bestTime = latest
		}
	}
	return best, best != nil
}

// CheckOrderPermutation verifies that the slot orders form a permutation of
// 1..N where N is the miner count.
func (r *Round) CheckOrderPermutation() error {
	n := uint32(len(r.Miners))
	seen := make(map[uint32]Identifier, n)
	for id, slot := range r.Miners {
		if slot.Order < 1 || slot.Order > n {
			return fmt.Errorf("slot order out of range (miner: %x, order: %d, miners: %d)", id, slot.Order, n)
		}
		if holder, ok := seen[slot.Order]; ok {
			return fmt.Errorf("duplicate slot order (order: %d, miners: %x, %x)", slot.Order, holder, id)
		}
		seen[slot.Order] = id
	}
	return nil
}

// MinedSlotNextOrders returns the final next-round orders claimed by slots
// that have mined, keyed by the scalar order value. If two mined slots carry
// the same value, the second one found is reported in the returned error.
func (r *Round) MinedSlotNextOrders() (map[uint32]Identifier, error) {
	orders := make(map[uint32]Identifier)
	// iterate in canonical order so the reported conflict is deterministic
	for _, id := range r.MinerIDs() {
		slot := r.Miners[id]
		if !slot.HasMined() {
			continue
		}
		if holder, ok := orders[slot.FinalOrderOfNextRound]; ok {
			return nil, fmt.Errorf("duplicate next-round order (order: %d, miners: %x, %x)",
				slot.FinalOrderOfNextRound, holder, id)
		}
		orders[slot.FinalOrderOfNextRound] = id
	}
	return orders, nil
}

// Copy returns a deep copy of the round. All slot state is duplicated, so
// mutations on the copy can never alias the receiver.
func (r *Round) Copy() *Round {
	dup := *r
	dup.Miners = make(map[Identifier]*MinerSlot, len(r.Miners))
	for id, slot := range r.Miners {
		dup.Miners[id] = slot.Copy()
	}
	return &dup
}

// encodableSlot mirrors MinerSlot for canonical encoding.
type encodableSlot struct {
	Miner                          Identifier
	PubKey                         []byte
	Order                          uint32
	IsExtraBlockProducer           bool
	ExpectedMiningTime             int64
	ActualMiningTimes              []int64
	ProducedBlocks                 uint64
	ProducedTinyBlocks             uint32
	MissedTimeSlots                uint64
	OutValue                       []byte
	Signature                      []byte
	PreviousInValue                []byte
	SupposedOrderOfNextRound       uint32
	FinalOrderOfNextRound          uint32
	ImpliedIrreversibleBlockHeight uint64
}

// encodableRound is the canonical encoding of a round: slots are flattened
// into a slice sorted by miner identifier so that the encoding, and hence
// the structural hash, is deterministic.
type encodableRound struct {
	Number                            uint64
	TermNumber                        uint64
	Slots                             []encodableSlot
	ConfirmedIrreversibleHeight       uint64
	ConfirmedIrreversibleRoundNumber  uint64
	ExtraBlockProducerOfPreviousRound Identifier
	IsMinerListJustChanged            bool
}

func (r *Round) toEncodable() encodableRound {
	er := encodableRound{
		Number:                            r.Number,
		TermNumber:                        r.TermNumber,
		ConfirmedIrreversibleHeight:       r.ConfirmedIrreversibleHeight,
		ConfirmedIrreversibleRoundNumber:  r.ConfirmedIrreversibleRoundNumber,
		ExtraBlockProducerOfPreviousRound: r.ExtraBlockProducerOfPreviousRound,
		IsMinerListJustChanged:            r.IsMinerListJustChanged,
	}
	for _, id := range r.MinerIDs() {
		slot := r.Miners[id]
		es := encodableSlot{
			Miner:                          slot.Miner,
			PubKey:                         slot.PubKey,
			Order:                          slot.Order,
			IsExtraBlockProducer:           slot.IsExtraBlockProducer,
			ExpectedMiningTime:             slot.ExpectedMiningTime.UnixNano(),
			ProducedBlocks:                 slot.ProducedBlocks,
			ProducedTinyBlocks:             slot.ProducedTinyBlocks,
			MissedTimeSlots:                slot.MissedTimeSlots,
			OutValue:                       slot.OutValue,
			Signature:                      slot.Signature,
			PreviousInValue:                slot.PreviousInValue,
			SupposedOrderOfNextRound:       slot.SupposedOrderOfNextRound,
			FinalOrderOfNextRound:          slot.FinalOrderOfNextRound,
			ImpliedIrreversibleBlockHeight: slot.ImpliedIrreversibleBlockHeight,
		}
		for _, t := range slot.ActualMiningTimes {
			es.ActualMiningTimes = append(es.ActualMiningTimes, t.UnixNano())
		}
		er.Slots = append(er.Slots, es)
	}
	return er
}

// ID returns the structural hash of the round. It covers every field of the
// round and of each slot, including the extra-block-producer designation and
// the irreversibility fields; the post-commit consistency check relies on
// this completeness.
func (r *Round) ID() Identifier {
	return MakeID(r.toEncodable())
}
