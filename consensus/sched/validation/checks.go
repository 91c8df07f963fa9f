package validation

import (
	"time"

	"github.com/rondochain/rondo-go/consensus/sched/behaviour"
	"github.com/rondochain/rondo-go/model/rondo"
	"github.com/rondochain/rondo-go/state/dpos"
)

// spacingTolerance bounds how far the gap between consecutive expected
// mining times of a proposed round may drift from the configured interval.
const spacingTolerance = 500 * time.Millisecond

// checkPermission verifies the proposer holds a slot in the base round.
func checkPermission(ctx *Context) error {
	if ctx.Base.Slot(ctx.Proposal.Proposer) == nil {
		return dpos.NewPermissionDeniedErrorf(
			"proposer holds no slot in round %d (proposer: %x)",
			ctx.Base.Number, ctx.Proposal.Proposer,
		)
	}
	return nil
}

// checkSlotTiming verifies that a same-round continuation falls within the
// proposer's own slot window. Round 1 is exempt from the window comparison,
// since genesis expected times carry no authority; the behaviour rule
// governs there.
func checkSlotTiming(ctx *Context) error {
	update := ctx.Proposal.Update()
	if update == nil {
		return dpos.NewStructuralMismatchErrorf(
			"same-round proposal must carry exactly one slot update (got %d)",
			len(ctx.Proposal.Updates),
		)
	}
	if update.Miner != ctx.Proposal.Proposer {
		return dpos.NewPermissionDeniedErrorf(
			"slot update targets another miner's slot (proposer: %x, target: %x)",
			ctx.Proposal.Proposer, update.Miner,
		)
	}

	slot := ctx.Base.Slot(ctx.Proposal.Proposer)

	// filler blocks are only legal after the miner's own commitment; the
	// sole exception is the previous terminator's window before the first
	// slot, where no commitment can exist yet
	if ctx.Proposal.Behaviour == rondo.BehaviourTinyBlock && !slot.HasMined() {
		preRound := ctx.Proposal.Proposer == ctx.Base.ExtraBlockProducerOfPreviousRound &&
			update.ActualMiningTime.Before(ctx.Base.FirstExpectedMiningTime())
		if !preRound {
			return dpos.NewTimingViolationErrorf(
				"tiny block without prior commitment (proposer: %x)", ctx.Proposal.Proposer,
			)
		}
	}

	if ctx.Base.Number == 1 {
		if !behaviour.IsAuthorizedInFirstRound(ctx.Base, ctx.Proposal.Proposer, ctx.Now, ctx.Interval) {
			return dpos.NewTimingViolationErrorf(
				"miner not authorized in first round (proposer: %x)", ctx.Proposal.Proposer,
			)
		}
		return nil
	}

	if slot.InSlotWindow(update.ActualMiningTime, ctx.Interval) {
		return nil
	}

	// the previous round's terminator may act in the gap before the first slot
	if ctx.Proposal.Behaviour == rondo.BehaviourTinyBlock &&
		ctx.Proposal.Proposer == ctx.Base.ExtraBlockProducerOfPreviousRound &&
		update.ActualMiningTime.Before(ctx.Base.FirstExpectedMiningTime()) {
		return nil
	}

	return dpos.NewTimingViolationErrorf(
		"mining time outside slot window (proposer: %x, time: %s, slot start: %s)",
		ctx.Proposal.Proposer, update.ActualMiningTime, slot.ExpectedMiningTime,
	)
}

// checkTransitionTiming verifies a round transition on two independent
// grounds: the proposed round's slots are equally spaced, and the proposer
// is authorized to terminate the base round. The authorization check is
// never skipped for transition behaviours.
func checkTransitionTiming(ctx *Context) error {
	next := ctx.Proposal.NextRound
	if next == nil {
		return dpos.NewStructuralMismatchErrorf("transition proposal carries no next round")
	}

	slots := next.SlotsByOrder()
	for i := 1; i < len(slots); i++ {
		gap := slots[i].ExpectedMiningTime.Sub(slots[i-1].ExpectedMiningTime)
		drift := gap - ctx.Interval
		if drift < 0 {
			drift = -drift
		}
		if drift > spacingTolerance {
			return dpos.NewTimingViolationErrorf(
				"inconsistent slot spacing in proposed round (orders %d-%d: gap %s, interval %s)",
				slots[i-1].Order, slots[i].Order, gap, ctx.Interval,
			)
		}
	}

	authorized := false
	if ctx.Base.Number == 1 {
		baseSlot := ctx.Base.Slot(ctx.Proposal.Proposer)
		authorized = baseSlot != nil && baseSlot.HasMined() &&
			behaviour.IsAuthorizedInFirstRound(ctx.Base, ctx.Proposal.Proposer, ctx.Now, ctx.Interval)
	} else {
		authorized = behaviour.IsAuthorizedToTerminate(ctx.Base, ctx.Proposal.Proposer, ctx.Now, ctx.Interval)
	}
	if !authorized {
		return dpos.NewTimingViolationErrorf(
			"proposer not authorized to terminate round %d (proposer: %x)",
			ctx.Base.Number, ctx.Proposal.Proposer,
		)
	}

	return nil
}

// checkRoundStructure verifies numbering against the base round and, for
// transitions, that the proposed round is structurally fresh: numbers
// increment by exactly one and no slot carries any commitment state.
func checkRoundStructure(ctx *Context) error {
	proposal := ctx.Proposal

	if proposal.RoundNumber != ctx.Base.Number || proposal.TermNumber != ctx.Base.TermNumber {
		return dpos.NewStructuralMismatchErrorf(
			"proposal numbering does not match base round (proposal: %d/%d, base: %d/%d)",
			proposal.RoundNumber, proposal.TermNumber, ctx.Base.Number, ctx.Base.TermNumber,
		)
	}

	if !proposal.Behaviour.IsTransition() {
		return nil
	}

	next := proposal.NextRound
	if next == nil {
		return dpos.NewStructuralMismatchErrorf("transition proposal carries no next round")
	}

	if next.Number != ctx.Base.Number+1 {
		return dpos.NewStructuralMismatchErrorf(
			"round number must increment by exactly 1 (base: %d, proposed: %d)",
			ctx.Base.Number, next.Number,
		)
	}

	switch proposal.Behaviour {
	case rondo.BehaviourNextRound:
		if next.TermNumber != ctx.Base.TermNumber {
			return dpos.NewStructuralMismatchErrorf(
				"same-term transition must keep the term number (base: %d, proposed: %d)",
				ctx.Base.TermNumber, next.TermNumber,
			)
		}
		if next.IsMinerListJustChanged {
			return dpos.NewStructuralMismatchErrorf("same-term round claims a miner list change")
		}
	case rondo.BehaviourNextTerm:
		if next.TermNumber != ctx.Base.TermNumber+1 {
			return dpos.NewStructuralMismatchErrorf(
				"term number must increment by exactly 1 (base: %d, proposed: %d)",
				ctx.Base.TermNumber, next.TermNumber,
			)
		}
		if !next.IsMinerListJustChanged {
			return dpos.NewStructuralMismatchErrorf("term transition must mark the miner list change")
		}
	}

	err := next.CheckOrderPermutation()
	if err != nil {
		return dpos.NewStructuralMismatchErrorf("proposed round slot orders invalid: %s", err.Error())
	}

	// the first slot and only the first slot terminates the proposed round,
	// and the proposed round must name its own terminator as predecessor
	for miner, slot := range next.Miners {
		if slot.IsExtraBlockProducer != (slot.Order == 1) {
			return dpos.NewStructuralMismatchErrorf(
				"extra block producer flag disagrees with slot order (miner: %x, order: %d)",
				miner, slot.Order,
			)
		}
	}
	if next.ExtraBlockProducerOfPreviousRound != proposal.Proposer {
		return dpos.NewStructuralMismatchErrorf(
			"proposed round names the wrong terminator (named: %x, proposer: %x)",
			next.ExtraBlockProducerOfPreviousRound, proposal.Proposer,
		)
	}

	// a brand-new round must not carry any commitment or reveal state
	for miner, slot := range next.Miners {
		switch {
		case len(slot.OutValue) > 0:
			return dpos.NewStructuralMismatchErrorf("fresh round carries an out-value (miner: %x)", miner)
		case len(slot.Signature) > 0:
			return dpos.NewStructuralMismatchErrorf("fresh round carries a signature (miner: %x)", miner)
		case len(slot.PreviousInValue) > 0:
			return dpos.NewStructuralMismatchErrorf("fresh round carries a reveal (miner: %x)", miner)
		case slot.SupposedOrderOfNextRound != 0 || slot.FinalOrderOfNextRound != 0:
			return dpos.NewStructuralMismatchErrorf("fresh round carries next-round orders (miner: %x)", miner)
		case slot.ImpliedIrreversibleBlockHeight != 0:
			return dpos.NewStructuralMismatchErrorf("fresh round carries an implied irreversible height (miner: %x)", miner)
		case len(slot.ActualMiningTimes) > 0 || slot.ProducedBlocks != 0 || slot.ProducedTinyBlocks != 0:
			return dpos.NewStructuralMismatchErrorf("fresh round carries production state (miner: %x)", miner)
		}
	}

	return nil
}

// checkOrderUniqueness verifies that the scalar next-round order values of
// the base round's mined slots are pairwise distinct. The comparison is by
// value, never by record identity: two distinct slots claiming the same
// number are a conflict.
func checkOrderUniqueness(ctx *Context) error {
	_, err := ctx.Base.MinedSlotNextOrders()
	if err != nil {
		return dpos.NewOrderConflictErrorf("base round order conflict: %s", err.Error())
	}
	return nil
}

// checkMinerSetContinuity verifies that a same-term transition preserves the
// miner set exactly and that a term transition adopts the election result
// verbatim.
func checkMinerSetContinuity(ctx *Context) error {
	next := ctx.Proposal.NextRound
	if next == nil {
		return dpos.NewStructuralMismatchErrorf("transition proposal carries no next round")
	}

	proposed := next.MinerIDs()

	var expected rondo.IdentifierList
	switch ctx.Proposal.Behaviour {
	case rondo.BehaviourNextRound:
		expected = ctx.Base.MinerIDs()
	case rondo.BehaviourNextTerm:
		expected = ctx.ElectedMiners.Sort()
	}

	if len(proposed) != len(expected) {
		return dpos.NewMinerSetMismatchErrorf(
			"proposed miner set size differs (proposed: %d, expected: %d)",
			len(proposed), len(expected),
		)
	}
	for i := range proposed {
		if proposed[i] != expected[i] {
			return dpos.NewMinerSetMismatchErrorf(
				"proposed miner set differs (first divergence: %x vs %x)",
				proposed[i], expected[i],
			)
		}
	}
	return nil
}

// checkIrreversibility verifies that the proposal never lowers the
// confirmed irreversible height or round number.
func checkIrreversibility(ctx *Context) error {
	if ctx.Proposal.ConfirmedIrreversibleHeight < ctx.Base.ConfirmedIrreversibleHeight {
		return dpos.NewStaleIrreversibilityErrorf(
			"proposal lowers confirmed irreversible height (%d < %d)",
			ctx.Proposal.ConfirmedIrreversibleHeight, ctx.Base.ConfirmedIrreversibleHeight,
		)
	}
	if ctx.Proposal.ConfirmedIrreversibleRoundNumber < ctx.Base.ConfirmedIrreversibleRoundNumber {
		return dpos.NewStaleIrreversibilityErrorf(
			"proposal lowers confirmed irreversible round (%d < %d)",
			ctx.Proposal.ConfirmedIrreversibleRoundNumber, ctx.Base.ConfirmedIrreversibleRoundNumber,
		)
	}

	// a transition proposer only carries the base round's marks forward; the
	// irreversible height advances through confirmation, never by fiat
	next := ctx.Proposal.NextRound
	if next != nil {
		if next.ConfirmedIrreversibleHeight != ctx.Base.ConfirmedIrreversibleHeight {
			return dpos.NewStaleIrreversibilityErrorf(
				"proposed round rewrites confirmed irreversible height (%d != %d)",
				next.ConfirmedIrreversibleHeight, ctx.Base.ConfirmedIrreversibleHeight,
			)
		}
		if next.ConfirmedIrreversibleRoundNumber != ctx.Base.ConfirmedIrreversibleRoundNumber {
			return dpos.NewStaleIrreversibilityErrorf(
				"proposed round rewrites confirmed irreversible round (%d != %d)",
				next.ConfirmedIrreversibleRoundNumber, ctx.Base.ConfirmedIrreversibleRoundNumber,
			)
		}
	}

	return nil
}

// checkOrderContinuity verifies that the proposed round's slot assignment is
// the one the deterministic construction rule produces from the base round:
// mined miners take their resolved next-round order, missed miners take the
// remaining free orders ascending by base position with their missed-slot
// counter incremented. A term transition instead adopts the election order
// verbatim.
func checkOrderContinuity(ctx *Context) error {
	next := ctx.Proposal.NextRound
	if next == nil {
		return dpos.NewStructuralMismatchErrorf("transition proposal carries no next round")
	}

	if ctx.Proposal.Behaviour == rondo.BehaviourNextTerm {
		for i, miner := range ctx.ElectedMiners {
			slot := next.Slot(miner)
			if slot == nil {
				return dpos.NewMinerSetMismatchErrorf("elected miner missing from proposed round (miner: %x)", miner)
			}
			if slot.Order != uint32(i+1) {
				return dpos.NewOrderConflictErrorf(
					"proposed order deviates from election order (miner: %x, order: %d, expected: %d)",
					miner, slot.Order, i+1,
				)
			}
			if slot.MissedTimeSlots != 0 {
				return dpos.NewStructuralMismatchErrorf(
					"first round of a term carries missed slots (miner: %x, missed: %d)",
					miner, slot.MissedTimeSlots,
				)
			}
		}
		return nil
	}

	assigned, err := ctx.Base.MinedSlotNextOrders()
	if err != nil {
		return dpos.NewOrderConflictErrorf("base round order conflict: %s", err.Error())
	}

	n := uint32(ctx.Base.MinerCount())
	var free []uint32
	for order := uint32(1); order <= n; order++ {
		if _, taken := assigned[order]; !taken {
			free = append(free, order)
		}
	}

	for _, baseSlot := range ctx.Base.SlotsByOrder() {
		order := baseSlot.FinalOrderOfNextRound
		missed := baseSlot.MissedTimeSlots
		if !baseSlot.HasMined() {
			order, free = free[0], free[1:]
			missed++
		}
		slot := next.Slot(baseSlot.Miner)
		if slot == nil {
			return dpos.NewMinerSetMismatchErrorf("miner missing from proposed round (miner: %x)", baseSlot.Miner)
		}
		if slot.Order != order {
			return dpos.NewOrderConflictErrorf(
				"proposed order deviates from constructed order (miner: %x, order: %d, expected: %d)",
				baseSlot.Miner, slot.Order, order,
			)
		}
		if slot.MissedTimeSlots != missed {
			return dpos.NewStructuralMismatchErrorf(
				"missed-slot counter deviates from base round (miner: %x, missed: %d, expected: %d)",
				baseSlot.Miner, slot.MissedTimeSlots, missed,
			)
		}
	}

	return nil
}
