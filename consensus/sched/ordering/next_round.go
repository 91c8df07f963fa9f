package ordering

import (
	"fmt"
	"time"

	"github.com/onflow/flow-go/crypto"

	"github.com/rondochain/rondo-go/model/rondo"
)

// GenerateNextRound constructs the successor round of the given base round
// within the same term.
//
// Miners that mined in the base round take the next-round order their
// commitment resolved to. Miners that missed their slot are assigned the
// remaining free orders in ascending order of their base-round position, so
// the construction is deterministic, and their missed-slot counter is
// incremented. The new round's order-1 slot is designated extra block
// producer; all commitment and reveal fields start empty.
func GenerateNextRound(
	base *rondo.Round,
	terminator rondo.Identifier,
	start time.Time,
	interval time.Duration,
) (*rondo.Round, error) {

	n := uint32(base.MinerCount())

	assigned, err := base.MinedSlotNextOrders()
	if err != nil {
		return nil, fmt.Errorf("base round carries conflicting next-round orders: %w", err)
	}

	// free orders for miners that missed their slot, ascending
	var free []uint32
	for order := uint32(1); order <= n; order++ {
		if _, taken := assigned[order]; !taken {
			free = append(free, order)
		}
	}

	next := &rondo.Round{
		Number:                            base.Number + 1,
		TermNumber:                        base.TermNumber,
		Miners:                            make(map[rondo.Identifier]*rondo.MinerSlot, n),
		ConfirmedIrreversibleHeight:       base.ConfirmedIrreversibleHeight,
		ConfirmedIrreversibleRoundNumber:  base.ConfirmedIrreversibleRoundNumber,
		ExtraBlockProducerOfPreviousRound: terminator,
	}

	for _, slot := range base.SlotsByOrder() {
		order := slot.FinalOrderOfNextRound
		missed := uint64(0)
		if !slot.HasMined() {
			order, free = free[0], free[1:]
			missed = 1
		}
		next.Miners[slot.Miner] = &rondo.MinerSlot{
			Miner:                slot.Miner,
			PubKey:               append([]byte(nil), slot.PubKey...),
			Order:                order,
			IsExtraBlockProducer: order == 1,
			ExpectedMiningTime:   start.Add(time.Duration(order-1) * interval),
			MissedTimeSlots:      slot.MissedTimeSlots + missed,
		}
	}

	err = next.CheckOrderPermutation()
	if err != nil {
		return nil, fmt.Errorf("generated round violates order permutation: %w", err)
	}

	return next, nil
}

// GenerateFirstRoundOfTerm constructs the first round of a new term from the
// election result. The elected list is adopted verbatim: slot orders follow
// the election order, and no commitment state carries over.
func GenerateFirstRoundOfTerm(
	elected []crypto.PublicKey,
	number uint64,
	termNumber uint64,
	terminator rondo.Identifier,
	start time.Time,
	interval time.Duration,
) (*rondo.Round, error) {

	if len(elected) == 0 {
		return nil, fmt.Errorf("empty election result")
	}

	round := &rondo.Round{
		Number:                            number,
		TermNumber:                        termNumber,
		Miners:                            make(map[rondo.Identifier]*rondo.MinerSlot, len(elected)),
		ExtraBlockProducerOfPreviousRound: terminator,
		IsMinerListJustChanged:            true,
	}

	for i, key := range elected {
		miner := rondo.MinerID(key)
		if _, ok := round.Miners[miner]; ok {
			return nil, fmt.Errorf("duplicate miner in election result (miner: %x)", miner)
		}
		order := uint32(i + 1)
		round.Miners[miner] = &rondo.MinerSlot{
			Miner:                miner,
			PubKey:               key.Encode(),
			Order:                order,
			IsExtraBlockProducer: order == 1,
			ExpectedMiningTime:   start.Add(time.Duration(i) * interval),
		}
	}

	return round, nil
}
