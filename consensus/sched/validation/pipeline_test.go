package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rondochain/rondo-go/consensus/sched/ordering"
	"github.com/rondochain/rondo-go/model/rondo"
	"github.com/rondochain/rondo-go/state/dpos"
	"github.com/rondochain/rondo-go/utils/unittest"
)

const interval = unittest.DefaultMiningInterval

// transitionContext builds a valid NextRound proposal context: a fully
// mined, elapsed base round and a freshly generated successor proposed by
// the extra block producer.
func transitionContext(t *testing.T) *Context {
	t.Helper()

	start := time.Now().Add(-10 * time.Minute)
	base := unittest.RoundFixture(4, unittest.WithFirstMiningTime(start))
	for i, slot := range base.SlotsByOrder() {
		slot.OutValue = []byte{byte(i + 1)}
		slot.Signature = []byte{byte(i + 1)}
		slot.FinalOrderOfNextRound = uint32(i + 1)
		slot.ActualMiningTimes = []time.Time{slot.ExpectedMiningTime}
		slot.ProducedBlocks = 1
	}

	producer, ok := base.ExtraBlockProducer()
	require.True(t, ok)

	next, err := ordering.GenerateNextRound(base, producer.Miner, time.Now(), interval)
	require.NoError(t, err)

	proposal := unittest.ProposalFixture(base, producer.Miner, rondo.BehaviourNextRound)
	proposal.NextRound = next

	return &Context{
		Base:     base,
		Proposal: proposal,
		Interval: interval,
		Now:      time.Now(),
	}
}

// updateContext builds a valid UpdateValue proposal context with the acting
// miner inside its slot window.
func updateContext(t *testing.T) (*Context, *rondo.MinerSlot) {
	t.Helper()

	now := time.Now()
	base := unittest.RoundFixture(4, unittest.WithFirstMiningTime(now.Add(-interval)))
	slot := base.SlotsByOrder()[1] // window [now, now+interval)

	_, outValue := unittest.CommitmentFixture()
	proposal := unittest.ProposalFixture(base, slot.Miner, rondo.BehaviourUpdateValue)
	proposal.Updates = []rondo.SlotUpdate{{
		Miner:            slot.Miner,
		OutValue:         outValue,
		Signature:        unittest.SignatureFixture(),
		ActualMiningTime: now.Add(time.Second),
	}}

	return &Context{
		Base:     base,
		Proposal: proposal,
		Interval: interval,
		Now:      now.Add(time.Second),
	}, slot
}

func TestRunPipeline_ValidProposals(t *testing.T) {
	t.Run("transition", func(t *testing.T) {
		require.NoError(t, RunPipeline(transitionContext(t)))
	})
	t.Run("update value", func(t *testing.T) {
		ctx, _ := updateContext(t)
		require.NoError(t, RunPipeline(ctx))
	})
}

func TestCheckPermission(t *testing.T) {
	ctx, _ := updateContext(t)
	ctx.Proposal.Proposer = unittest.IdentifierFixture()

	err := RunPipeline(ctx)
	require.Error(t, err)
	assert.True(t, dpos.IsPermissionDeniedError(err))
}

func TestCheckSlotTiming(t *testing.T) {
	t.Run("outside window", func(t *testing.T) {
		ctx, _ := updateContext(t)
		ctx.Proposal.Updates[0].ActualMiningTime = time.Now().Add(time.Hour)
		err := RunPipeline(ctx)
		require.Error(t, err)
		assert.True(t, dpos.IsTimingViolationError(err))
	})

	t.Run("update for another miner's slot", func(t *testing.T) {
		ctx, _ := updateContext(t)
		ctx.Proposal.Updates[0].Miner = ctx.Base.SlotsByOrder()[2].Miner
		err := RunPipeline(ctx)
		require.Error(t, err)
		assert.True(t, dpos.IsPermissionDeniedError(err))
	})

	t.Run("tiny block without prior commitment", func(t *testing.T) {
		ctx, slot := updateContext(t)
		ctx.Proposal.Behaviour = rondo.BehaviourTinyBlock
		require.False(t, slot.HasMined())
		err := RunPipeline(ctx)
		require.Error(t, err)
		assert.True(t, dpos.IsTimingViolationError(err))
	})

	t.Run("previous terminator tiny block before round start", func(t *testing.T) {
		now := time.Now()
		base := unittest.RoundFixture(4, unittest.WithFirstMiningTime(now.Add(time.Minute)))
		slot := base.SlotsByOrder()[2]
		base.ExtraBlockProducerOfPreviousRound = slot.Miner

		proposal := unittest.ProposalFixture(base, slot.Miner, rondo.BehaviourTinyBlock)
		proposal.Updates = []rondo.SlotUpdate{{Miner: slot.Miner, ActualMiningTime: now}}

		ctx := &Context{Base: base, Proposal: proposal, Interval: interval, Now: now}
		require.NoError(t, RunPipeline(ctx))
	})
}

func TestCheckTransitionTiming(t *testing.T) {
	t.Run("unauthorized proposer", func(t *testing.T) {
		ctx := transitionContext(t)
		// the order-2 miner is not yet admitted as a substitute terminator
		ctx.Proposal.Proposer = ctx.Base.SlotsByOrder()[1].Miner
		ctx.Now = ctx.Base.ExpectedEndTime(interval)
		err := RunPipeline(ctx)
		require.Error(t, err)
		assert.True(t, dpos.IsTimingViolationError(err))
	})

	t.Run("uneven slot spacing", func(t *testing.T) {
		ctx := transitionContext(t)
		slots := ctx.Proposal.NextRound.SlotsByOrder()
		slots[2].ExpectedMiningTime = slots[2].ExpectedMiningTime.Add(2 * time.Second)
		err := RunPipeline(ctx)
		require.Error(t, err)
		assert.True(t, dpos.IsTimingViolationError(err))
	})
}

func TestCheckRoundStructure(t *testing.T) {
	t.Run("wrong round number", func(t *testing.T) {
		ctx := transitionContext(t)
		ctx.Proposal.NextRound.Number += 1
		err := RunPipeline(ctx)
		require.Error(t, err)
		assert.True(t, dpos.IsStructuralMismatchError(err))
	})

	t.Run("term number must not change on NextRound", func(t *testing.T) {
		ctx := transitionContext(t)
		ctx.Proposal.NextRound.TermNumber += 1
		err := RunPipeline(ctx)
		require.Error(t, err)
		assert.True(t, dpos.IsStructuralMismatchError(err))
	})

	t.Run("fresh round must not carry commitments", func(t *testing.T) {
		ctx := transitionContext(t)
		for _, slot := range ctx.Proposal.NextRound.Miners {
			slot.OutValue = []byte("smuggled")
			break
		}
		err := RunPipeline(ctx)
		require.Error(t, err)
		assert.True(t, dpos.IsStructuralMismatchError(err))
	})

	t.Run("fresh round must not carry implied heights", func(t *testing.T) {
		ctx := transitionContext(t)
		for _, slot := range ctx.Proposal.NextRound.Miners {
			slot.ImpliedIrreversibleBlockHeight = 12
			break
		}
		err := RunPipeline(ctx)
		require.Error(t, err)
		assert.True(t, dpos.IsStructuralMismatchError(err))
	})

	t.Run("extra block producer flag must follow order", func(t *testing.T) {
		ctx := transitionContext(t)
		for _, slot := range ctx.Proposal.NextRound.Miners {
			slot.IsExtraBlockProducer = false
		}
		err := RunPipeline(ctx)
		require.Error(t, err)
		assert.True(t, dpos.IsStructuralMismatchError(err))
	})

	t.Run("proposed round must name its terminator", func(t *testing.T) {
		ctx := transitionContext(t)
		ctx.Proposal.NextRound.ExtraBlockProducerOfPreviousRound = unittest.IdentifierFixture()
		err := RunPipeline(ctx)
		require.Error(t, err)
		assert.True(t, dpos.IsStructuralMismatchError(err))
	})

	t.Run("proposal numbering must match base", func(t *testing.T) {
		ctx, _ := updateContext(t)
		ctx.Proposal.RoundNumber += 1
		err := RunPipeline(ctx)
		require.Error(t, err)
		assert.True(t, dpos.IsStructuralMismatchError(err))
	})
}

// TestCheckOrderUniqueness plants two distinct slot records carrying the
// same scalar order value; identity-based comparison would miss this.
func TestCheckOrderUniqueness(t *testing.T) {
	ctx := transitionContext(t)
	slots := ctx.Base.SlotsByOrder()
	slots[1].FinalOrderOfNextRound = slots[0].FinalOrderOfNextRound

	err := RunPipeline(ctx)
	require.Error(t, err)
	assert.True(t, dpos.IsOrderConflictError(err))
}

func TestCheckMinerSetContinuity(t *testing.T) {
	t.Run("miner swapped in", func(t *testing.T) {
		ctx := transitionContext(t)
		next := ctx.Proposal.NextRound
		for miner, slot := range next.Miners {
			delete(next.Miners, miner)
			imposter := slot.Copy()
			imposter.Miner = unittest.IdentifierFixture()
			next.Miners[imposter.Miner] = imposter
			break
		}
		err := RunPipeline(ctx)
		require.Error(t, err)
		assert.True(t, dpos.IsMinerSetMismatchError(err))
	})

	t.Run("miner removed", func(t *testing.T) {
		ctx := transitionContext(t)
		next := ctx.Proposal.NextRound
		// drop the order-4 slot so the remaining orders stay a prefix
		for miner, slot := range next.Miners {
			if slot.Order == 4 {
				delete(next.Miners, miner)
			}
		}
		err := RunPipeline(ctx)
		require.Error(t, err)
		assert.True(t, dpos.IsMinerSetMismatchError(err))
	})
}

// termTransitionContext builds a valid NextTerm proposal context: the base
// round of transitionContext terminated into a handcrafted first round of
// the next term that adopts the election result verbatim.
func termTransitionContext(t *testing.T) *Context {
	t.Helper()

	ctx := transitionContext(t)
	elected := unittest.IdentifierListFixture(4)

	start := time.Now()
	next := &rondo.Round{
		Number:                            ctx.Base.Number + 1,
		TermNumber:                        ctx.Base.TermNumber + 1,
		Miners:                            make(map[rondo.Identifier]*rondo.MinerSlot, len(elected)),
		ExtraBlockProducerOfPreviousRound: ctx.Proposal.Proposer,
		IsMinerListJustChanged:            true,
	}
	for i, miner := range elected {
		order := uint32(i + 1)
		next.Miners[miner] = &rondo.MinerSlot{
			Miner:                miner,
			Order:                order,
			IsExtraBlockProducer: order == 1,
			ExpectedMiningTime:   start.Add(time.Duration(i) * interval),
		}
	}

	proposal := unittest.ProposalFixture(ctx.Base, ctx.Proposal.Proposer, rondo.BehaviourNextTerm)
	proposal.NextRound = next
	ctx.Proposal = proposal
	ctx.ElectedMiners = elected
	ctx.IsTermBoundary = true
	return ctx
}

func TestCheckOrderContinuity(t *testing.T) {
	t.Run("constructed assignment passes", func(t *testing.T) {
		ctx := transitionContext(t)

		// a miner that missed its slot must take the lowest free order
		victim := ctx.Base.SlotsByOrder()[2]
		victim.OutValue = nil
		victim.Signature = nil
		victim.FinalOrderOfNextRound = 0
		victim.ActualMiningTimes = nil
		victim.ProducedBlocks = 0

		next, err := ordering.GenerateNextRound(ctx.Base, ctx.Proposal.Proposer, time.Now(), interval)
		require.NoError(t, err)
		ctx.Proposal.NextRound = next

		require.NoError(t, RunPipeline(ctx))
		assert.Equal(t, uint64(1), next.Slot(victim.Miner).MissedTimeSlots)
	})

	t.Run("swapped orders rejected", func(t *testing.T) {
		ctx := transitionContext(t)
		slots := ctx.Proposal.NextRound.SlotsByOrder()
		slots[1].Order, slots[2].Order = slots[2].Order, slots[1].Order
		slots[1].ExpectedMiningTime, slots[2].ExpectedMiningTime =
			slots[2].ExpectedMiningTime, slots[1].ExpectedMiningTime

		err := RunPipeline(ctx)
		require.Error(t, err)
		assert.True(t, dpos.IsOrderConflictError(err))
	})

	t.Run("tampered missed counter rejected", func(t *testing.T) {
		ctx := transitionContext(t)
		for _, slot := range ctx.Proposal.NextRound.Miners {
			slot.MissedTimeSlots = 3
			break
		}
		err := RunPipeline(ctx)
		require.Error(t, err)
		assert.True(t, dpos.IsStructuralMismatchError(err))
	})

	t.Run("election order adopted", func(t *testing.T) {
		require.NoError(t, RunPipeline(termTransitionContext(t)))
	})

	t.Run("swapped election order rejected", func(t *testing.T) {
		ctx := termTransitionContext(t)
		next := ctx.Proposal.NextRound
		a := next.Slot(ctx.ElectedMiners[0])
		b := next.Slot(ctx.ElectedMiners[1])
		a.Order, b.Order = b.Order, a.Order
		a.ExpectedMiningTime, b.ExpectedMiningTime = b.ExpectedMiningTime, a.ExpectedMiningTime
		a.IsExtraBlockProducer, b.IsExtraBlockProducer = b.IsExtraBlockProducer, a.IsExtraBlockProducer

		err := RunPipeline(ctx)
		require.Error(t, err)
		assert.True(t, dpos.IsOrderConflictError(err))
	})

	t.Run("carried missed slots rejected", func(t *testing.T) {
		ctx := termTransitionContext(t)
		ctx.Proposal.NextRound.Slot(ctx.ElectedMiners[2]).MissedTimeSlots = 1
		err := RunPipeline(ctx)
		require.Error(t, err)
		assert.True(t, dpos.IsStructuralMismatchError(err))
	})
}

func TestCheckIrreversibility(t *testing.T) {
	t.Run("proposal regression", func(t *testing.T) {
		ctx := transitionContext(t)
		ctx.Base.ConfirmedIrreversibleHeight = 50
		ctx.Proposal.ConfirmedIrreversibleHeight = 49
		ctx.Proposal.NextRound.ConfirmedIrreversibleHeight = 50
		err := RunPipeline(ctx)
		require.Error(t, err)
		assert.True(t, dpos.IsStaleIrreversibilityError(err))
	})

	t.Run("proposed round regression", func(t *testing.T) {
		ctx := transitionContext(t)
		ctx.Base.ConfirmedIrreversibleHeight = 50
		ctx.Proposal.ConfirmedIrreversibleHeight = 50
		ctx.Proposal.NextRound.ConfirmedIrreversibleHeight = 49
		err := RunPipeline(ctx)
		require.Error(t, err)
		assert.True(t, dpos.IsStaleIrreversibilityError(err))
	})

	t.Run("proposed round inflation", func(t *testing.T) {
		ctx := transitionContext(t)
		ctx.Base.ConfirmedIrreversibleHeight = 50
		ctx.Proposal.ConfirmedIrreversibleHeight = 50
		ctx.Proposal.NextRound.ConfirmedIrreversibleHeight = 1_000_000
		err := RunPipeline(ctx)
		require.Error(t, err)
		assert.True(t, dpos.IsStaleIrreversibilityError(err))
	})

	t.Run("equal values pass", func(t *testing.T) {
		ctx := transitionContext(t)
		ctx.Base.ConfirmedIrreversibleHeight = 50
		ctx.Proposal.ConfirmedIrreversibleHeight = 50
		ctx.Proposal.NextRound.ConfirmedIrreversibleHeight = 50
		require.NoError(t, RunPipeline(ctx))
	})
}

// TestRunPipeline_ShortCircuit checks that the first failing stage masks
// later ones: a proposal that is both unauthorized and structurally broken
// reports the permission failure.
func TestRunPipeline_ShortCircuit(t *testing.T) {
	ctx := transitionContext(t)
	ctx.Proposal.Proposer = unittest.IdentifierFixture()
	ctx.Proposal.NextRound.Number += 10

	err := RunPipeline(ctx)
	require.Error(t, err)
	assert.True(t, dpos.IsPermissionDeniedError(err))
	assert.False(t, dpos.IsStructuralMismatchError(err))
}

func TestPostCheck(t *testing.T) {
	round := unittest.RoundFixture(4)

	t.Run("identical copies pass", func(t *testing.T) {
		require.NoError(t, PostCheck(round, round.Copy()))
	})

	t.Run("aliased rounds rejected", func(t *testing.T) {
		err := PostCheck(round, round)
		require.Error(t, err)
		assert.True(t, dpos.IsStructuralMismatchError(err))
	})

	t.Run("diverging commit detected", func(t *testing.T) {
		committed := round.Copy()
		committed.ConfirmedIrreversibleHeight += 1
		err := PostCheck(round, committed)
		require.Error(t, err)
		assert.True(t, dpos.IsStructuralMismatchError(err))
	})

	t.Run("privileged field divergence detected", func(t *testing.T) {
		committed := round.Copy()
		for _, slot := range committed.Miners {
			slot.IsExtraBlockProducer = !slot.IsExtraBlockProducer
			break
		}
		err := PostCheck(round, committed)
		require.Error(t, err)
		assert.True(t, dpos.IsStructuralMismatchError(err))
	})
}
