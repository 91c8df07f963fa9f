package behaviour

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/rondochain/rondo-go/model/rondo"
)

// Provider decides, for a miner at a wall-clock moment, the single legal
// consensus action against the committed round. It is a pure evaluator: it
// never mutates the round it inspects.
type Provider struct {
	log          zerolog.Logger
	interval     time.Duration
	tinyBlockCap uint32
}

func NewProvider(log zerolog.Logger, interval time.Duration, tinyBlockCap uint32) *Provider {
	return &Provider{
		log:          log.With().Str("component", "behaviour_provider").Logger(),
		interval:     interval,
		tinyBlockCap: tinyBlockCap,
	}
}

// BehaviourOf returns the legal behaviour for the miner at the given time.
// The evaluation order mirrors the round timeline: the commitment window
// first, then filler blocks, then round/term termination once every
// ordinary slot has elapsed. isTermBoundary selects NextTerm over NextRound
// for an authorized terminator.
func (p *Provider) BehaviourOf(
	miner rondo.Identifier,
	current *rondo.Round,
	isTermBoundary bool,
	now time.Time,
) rondo.Behaviour {

	slot := current.Slot(miner)
	if slot == nil {
		return rondo.BehaviourNothing
	}

	// Round 1 is anomalous: the genesis timestamp is arbitrary, so expected
	// mining times carry no authority. Authorization is derived solely from
	// the chronologically latest actual block; when an authorized miner has
	// already committed, its renewed turn terminates the round.
	if current.Number == 1 {
		if !p.isAuthorizedInFirstRound(current, slot, now) {
			return rondo.BehaviourNothing
		}
		if !slot.HasMined() {
			return rondo.BehaviourUpdateValue
		}
		if isTermBoundary {
			return rondo.BehaviourNextTerm
		}
		return rondo.BehaviourNextRound
	}

	// once the out-value is set, UpdateValue is permanently unavailable for
	// the remainder of the round
	if !slot.HasMined() && slot.InSlotWindow(now, p.interval) {
		return rondo.BehaviourUpdateValue
	}

	// the previous round's terminator may fill the gap before this round's
	// first slot opens
	if current.ExtraBlockProducerOfPreviousRound == miner &&
		now.Before(current.FirstExpectedMiningTime()) &&
		slot.ProducedTinyBlocks < p.tinyBlockCap {
		return rondo.BehaviourTinyBlock
	}

	if slot.HasMined() &&
		slot.InSlotWindow(now, p.interval) &&
		slot.ProducedTinyBlocks < p.tinyBlockCap {
		return rondo.BehaviourTinyBlock
	}

	if IsAuthorizedToTerminate(current, miner, now, p.interval) {
		if isTermBoundary {
			return rondo.BehaviourNextTerm
		}
		return rondo.BehaviourNextRound
	}

	return rondo.BehaviourNothing
}

func (p *Provider) isAuthorizedInFirstRound(current *rondo.Round, slot *rondo.MinerSlot, now time.Time) bool {
	return IsAuthorizedInFirstRound(current, slot.Miner, now, p.interval)
}

// IsAuthorizedInFirstRound applies the round-1 rule: genesis expected times
// are unreliable, so authorization is derived from the chronologically
// latest actual block across the other slots, never from slot positions
// alone. The number of full intervals elapsed since that block determines
// which order is live.
func IsAuthorizedInFirstRound(current *rondo.Round, miner rondo.Identifier, now time.Time, interval time.Duration) bool {
	slot := current.Slot(miner)
	if slot == nil {
		return false
	}
	n := uint32(current.MinerCount())

	ref, ok := current.LatestActualMiningSlot(miner)
	if !ok {
		// nothing produced yet: the schedule starts at order 1
		return slot.Order == 1
	}
	refTime, _ := ref.LatestActualMiningTime()
	if now.Before(refTime) {
		return false
	}

	passed := uint32(now.Sub(refTime) / interval)
	authorized := (ref.Order+passed)%n + 1
	return slot.Order == authorized
}

// IsAuthorizedToTerminate reports whether the miner may terminate the round
// at the given time. The designated extra block producer is authorized as
// soon as the final slot's window has passed; every further full interval
// admits the next slot in cyclic order as a substitute, so a crashed
// terminator cannot stall the chain.
func IsAuthorizedToTerminate(round *rondo.Round, miner rondo.Identifier, now time.Time, interval time.Duration) bool {
	slot := round.Slot(miner)
	if slot == nil {
		return false
	}

	end := round.ExpectedEndTime(interval)
	if now.Before(end) {
		return false
	}

	producer, ok := round.ExtraBlockProducer()
	if !ok {
		return false
	}

	n := int(round.MinerCount())
	distance := (int(slot.Order) - int(producer.Order) + n) % n
	passed := int(now.Sub(end) / interval)
	return distance <= passed
}
