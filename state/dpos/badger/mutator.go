package badger

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/rs/zerolog"

	"github.com/rondochain/rondo-go/consensus/sched/irreversible"
	"github.com/rondochain/rondo-go/consensus/sched/notifications"
	"github.com/rondochain/rondo-go/consensus/sched/ordering"
	"github.com/rondochain/rondo-go/consensus/sched/secrets"
	"github.com/rondochain/rondo-go/consensus/sched/validation"
	"github.com/rondochain/rondo-go/model/rondo"
	"github.com/rondochain/rondo-go/module"
	"github.com/rondochain/rondo-go/state/dpos"
	"github.com/rondochain/rondo-go/storage/badger/operation"
	"github.com/rondochain/rondo-go/utils/logging"
)

// MutableState implements the single entry point for consensus proposals on
// top of State. Proposals are validated against the committed head, executed
// on deep copies, committed atomically, and cross-checked against the
// re-read stored round before any event is emitted.
type MutableState struct {
	*State
	log      zerolog.Logger
	metrics  module.SchedulerMetrics
	consumer notifications.Consumer
	election module.Election
	rewards  module.RewardsConsumer
	shares   module.ShareTransport
	reveals  *secrets.RevealService
	libCalc  *irreversible.Calculator
}

var _ dpos.MutableState = (*MutableState)(nil)

func NewMutableState(
	log zerolog.Logger,
	state *State,
	metrics module.SchedulerMetrics,
	consumer notifications.Consumer,
	election module.Election,
	rewards module.RewardsConsumer,
	shares module.ShareTransport,
) *MutableState {
	return &MutableState{
		State:    state,
		log:      log.With().Str("component", "dpos_mutator").Logger(),
		metrics:  metrics,
		consumer: consumer,
		election: election,
		rewards:  rewards,
		shares:   shares,
		reveals:  secrets.NewRevealService(log),
		libCalc:  irreversible.NewCalculator(log),
	}
}

// ApplyProposal validates the proposal against the committed head round,
// executes the claimed behaviour on a copy, and atomically commits the
// result. A rejected proposal has zero side effects on committed state.
func (m *MutableState) ApplyProposal(proposal *rondo.RoundProposal) error {

	head, err := m.rounds.Current()
	if err != nil {
		return fmt.Errorf("could not look up head round: %w", err)
	}

	if proposal.RoundNumber != head.Number || proposal.TermNumber != head.TermNumber {
		return dpos.NewOutdatedProposalErrorf(
			"proposal extends round %d/%d, head is %d/%d",
			proposal.RoundNumber, proposal.TermNumber, head.Number, head.TermNumber,
		)
	}

	previous, err := m.previousRound(head)
	if err != nil {
		return err
	}

	ctx, err := m.buildContext(head, previous, proposal)
	if err != nil {
		return err
	}

	err = validation.RunPipeline(ctx)
	if err != nil {
		m.metrics.ProposalRejected(rejectionCategory(err))
		m.log.Info().
			Err(err).
			Uint64("round", head.Number).
			Str("behaviour", proposal.Behaviour.String()).
			Hex("proposer", logging.ID(proposal.Proposer)).
			Msg("proposal rejected")
		return err
	}

	result, err := m.execute(ctx)
	if err != nil {
		if validationFailed(err) {
			m.metrics.ProposalRejected(rejectionCategory(err))
			return err
		}
		return fmt.Errorf("could not execute proposal: %w", err)
	}

	err = m.commit(result)
	if err != nil {
		return fmt.Errorf("could not commit proposal: %w", err)
	}

	// cross-check the stored round against the intended one; a mismatch
	// here means the write path corrupted the round and must halt us
	committed, err := m.rounds.ByNumber(result.round.Number)
	if err != nil {
		return fmt.Errorf("could not re-read committed round: %w", err)
	}
	err = validation.PostCheck(result.round, committed)
	if err != nil {
		return fmt.Errorf("committed state diverges from intended state: %w", err)
	}

	m.emit(result, committed)
	return nil
}

// executionResult carries everything a committed behaviour changes, so the
// commit and the notifications run off one consistent view.
type executionResult struct {
	behaviour rondo.Behaviour

	// round is the round to persist: the updated head for same-round
	// behaviours, the successor round for transitions.
	round *rondo.Round

	// newTerm is set for term transitions only.
	newTerm *rondo.Term

	// tallies is the per-miner production summary of the closed term.
	tallies []module.MinedBlocksTally

	// libHeight/libRound are set when the commit advances irreversibility.
	libAdvanced bool
	libHeight   uint64
	libRound    uint64
}

func (m *MutableState) previousRound(head *rondo.Round) (*rondo.Round, error) {
	if head.Number <= 1 {
		return nil, nil
	}
	previous, err := m.rounds.ByNumber(head.Number - 1)
	if err != nil {
		return nil, fmt.Errorf("could not look up previous round %d: %w", head.Number-1, err)
	}
	return previous, nil
}

func (m *MutableState) buildContext(head, previous *rondo.Round, proposal *rondo.RoundProposal) (*validation.Context, error) {

	ctx := &validation.Context{
		Base:     head,
		Previous: previous,
		Proposal: proposal,
		Interval: m.cfg.MiningInterval,
		Now:      time.Now(),
	}

	term, err := m.terms.ByNumber(head.TermNumber)
	if err != nil {
		return nil, fmt.Errorf("could not look up term %d: %w", head.TermNumber, err)
	}
	ctx.IsTermBoundary = head.Number-term.FirstRoundNumber+1 >= m.cfg.RoundsPerTerm

	if proposal.Behaviour == rondo.BehaviourNextTerm {
		elected, err := m.election.ElectedMiners()
		if err != nil {
			return nil, fmt.Errorf("could not query election result: %w", err)
		}
		ids := make(rondo.IdentifierList, 0, len(elected))
		for _, key := range elected {
			ids = append(ids, rondo.MinerID(key))
		}
		ctx.ElectedMiners = ids
		m.log.Debug().
			Strs("elected", logging.IDs(ids)).
			Uint64("term", head.TermNumber+1).
			Msg("election result fetched for term transition")
	}

	return ctx, nil
}

func (m *MutableState) execute(ctx *validation.Context) (*executionResult, error) {
	switch ctx.Proposal.Behaviour {
	case rondo.BehaviourUpdateValue:
		return m.executeUpdateValue(ctx)
	case rondo.BehaviourTinyBlock:
		return m.executeTinyBlock(ctx)
	case rondo.BehaviourNextRound, rondo.BehaviourNextTerm:
		return m.executeTransition(ctx)
	default:
		return nil, dpos.NewStructuralMismatchErrorf("unexpected behaviour (%s)", ctx.Proposal.Behaviour)
	}
}

// executeUpdateValue applies the proposer's commitment, merges reconstructed
// reveals for other miners, and recomputes irreversibility.
func (m *MutableState) executeUpdateValue(ctx *validation.Context) (*executionResult, error) {
	update := ctx.Proposal.Update()

	working, err := ordering.ApplyCommitment(
		ctx.Base, ctx.Previous,
		update.Miner, update.PreviousInValue, update.OutValue, update.Signature,
	)
	if err != nil {
		if ordering.IsInvalidCommitmentError(err) {
			return nil, dpos.NewStructuralMismatchErrorf("invalid commitment: %s", err.Error())
		}
		return nil, err
	}

	slot := working.Slot(update.Miner)
	slot.ActualMiningTimes = append(slot.ActualMiningTimes, update.ActualMiningTime)
	slot.ProducedBlocks++
	slot.ImpliedIrreversibleBlockHeight = update.ImpliedIrreversibleBlockHeight

	// reveals from the proposal plus whatever the share transport has
	// reconstructed; invalid entries are discarded, valid ones applied
	reveals := m.collectReveals(ctx.Base.Number, update)
	if len(reveals) > 0 {
		err = m.reveals.ApplyReveals(working, ctx.Previous, reveals)
		if err != nil {
			m.log.Warn().
				Err(err).
				Uint64("round", working.Number).
				Msg("some reveals were discarded")
		}
	}

	result := &executionResult{
		behaviour: ctx.Proposal.Behaviour,
		round:     working,
	}

	if height, ok := m.libCalc.Compute(working, ctx.Previous); ok {
		working.ConfirmedIrreversibleHeight = height
		working.ConfirmedIrreversibleRoundNumber = working.Number
		result.libAdvanced = true
		result.libHeight = height
		result.libRound = working.Number
	}

	return result, nil
}

// executeTinyBlock records one filler block in the proposer's slot.
func (m *MutableState) executeTinyBlock(ctx *validation.Context) (*executionResult, error) {
	update := ctx.Proposal.Update()

	working := ctx.Base.Copy()
	slot := working.Slot(update.Miner)

	if slot.ProducedTinyBlocks >= m.cfg.TinyBlocksPerSlot {
		return nil, dpos.NewTimingViolationErrorf(
			"tiny block cap reached (miner: %x, produced: %d, cap: %d)",
			update.Miner, slot.ProducedTinyBlocks, m.cfg.TinyBlocksPerSlot,
		)
	}

	slot.ActualMiningTimes = append(slot.ActualMiningTimes, update.ActualMiningTime)
	slot.ProducedBlocks++
	slot.ProducedTinyBlocks++

	return &executionResult{
		behaviour: ctx.Proposal.Behaviour,
		round:     working,
	}, nil
}

// executeTransition adopts the validated successor round. For a term
// transition it also closes the current term and summarizes production for
// the rewards consumer.
func (m *MutableState) executeTransition(ctx *validation.Context) (*executionResult, error) {

	next := ctx.Proposal.NextRound.Copy()

	// irreversibility carries forward through the transition
	if next.ConfirmedIrreversibleHeight < ctx.Base.ConfirmedIrreversibleHeight {
		return nil, dpos.NewStaleIrreversibilityErrorf(
			"proposed round lowers confirmed irreversible height (%d < %d)",
			next.ConfirmedIrreversibleHeight, ctx.Base.ConfirmedIrreversibleHeight,
		)
	}

	result := &executionResult{
		behaviour: ctx.Proposal.Behaviour,
		round:     next,
	}

	if ctx.Proposal.Behaviour == rondo.BehaviourNextTerm {
		result.newTerm = &rondo.Term{
			Number:           next.TermNumber,
			FirstRoundNumber: next.Number,
			Miners:           next.MinerIDs(),
		}
		result.tallies = productionTallies(ctx.Base)
	}

	return result, nil
}

// collectReveals merges the proposal's reveals with reconstructed secrets
// from the share transport. The proposal's entries take precedence.
func (m *MutableState) collectReveals(roundNumber uint64, update *rondo.SlotUpdate) map[rondo.Identifier][]byte {
	reveals := make(map[rondo.Identifier][]byte, len(update.RevealedInValues))
	for miner, value := range update.RevealedInValues {
		reveals[miner] = value
	}
	if m.shares == nil {
		return reveals
	}
	reconstructed, err := m.shares.Reconstructed(roundNumber)
	if err != nil {
		m.log.Warn().
			Err(err).
			Uint64("round", roundNumber).
			Msg("could not query reconstructed secrets")
		return reveals
	}
	for miner, value := range reconstructed {
		if _, ok := reveals[miner]; !ok {
			reveals[miner] = value
		}
	}
	return reveals
}

// commit persists the execution result in one transaction: the round, the
// current-round pointer if it moved, and the new term if one was started.
func (m *MutableState) commit(result *executionResult) error {
	return m.db.Update(func(tx *badger.Txn) error {
		if result.behaviour.IsTransition() {
			err := operation.InsertRound(result.round)(tx)
			if err != nil {
				return fmt.Errorf("could not insert round %d: %w", result.round.Number, err)
			}
			err = operation.UpdateCurrentRound(result.round.Number)(tx)
			if err != nil {
				return fmt.Errorf("could not move current round: %w", err)
			}
		} else {
			err := operation.UpsertRound(result.round)(tx)
			if err != nil {
				return fmt.Errorf("could not update round %d: %w", result.round.Number, err)
			}
		}
		if result.newTerm != nil {
			err := operation.InsertTerm(result.newTerm)(tx)
			if err != nil {
				return fmt.Errorf("could not insert term %d: %w", result.newTerm.Number, err)
			}
		}
		return nil
	})
}

// emit publishes metrics and notifications for a committed result. Events
// fire strictly after the commit succeeded.
func (m *MutableState) emit(result *executionResult, committed *rondo.Round) {

	m.metrics.RoundCommitted(committed.Number, result.behaviour.String())
	m.consumer.OnRoundCommitted(committed, result.behaviour)

	if result.behaviour == rondo.BehaviourTinyBlock {
		m.metrics.TinyBlockProduced()
	}

	if result.libAdvanced {
		m.metrics.IrreversibleHeightSet(result.libHeight)
		m.consumer.OnIrreversibleHeightAdvanced(result.libHeight, result.libRound)
	}

	if result.newTerm != nil {
		closed := &rondo.Term{
			Number:           result.newTerm.Number - 1,
			FirstRoundNumber: 0,
			Miners:           nil,
		}
		if term, err := m.terms.ByNumber(result.newTerm.Number - 1); err == nil {
			closed = term
		}
		m.metrics.TermEnded(closed.Number)
		m.consumer.OnTermEnded(closed, result.tallies)
		m.rewards.OnTermEnded(closed.Number, result.tallies)
	}

	m.log.Info().
		Uint64("round", committed.Number).
		Uint64("term", committed.TermNumber).
		Str("behaviour", result.behaviour.String()).
		Msg("proposal committed")
}

// productionTallies summarizes per-miner block production of the closed
// term's final round.
func productionTallies(round *rondo.Round) []module.MinedBlocksTally {
	tallies := make([]module.MinedBlocksTally, 0, round.MinerCount())
	for _, slot := range round.SlotsByOrder() {
		tallies = append(tallies, module.MinedBlocksTally{
			Miner:           slot.Miner,
			Blocks:          slot.ProducedBlocks,
			TinyBlocks:      uint64(slot.ProducedTinyBlocks),
			MissedTimeSlots: slot.MissedTimeSlots,
		})
	}
	return tallies
}

// validationFailed reports whether the error is one of the expected
// proposal-rejection errors, as opposed to an internal failure.
func validationFailed(err error) bool {
	return dpos.IsPermissionDeniedError(err) ||
		dpos.IsTimingViolationError(err) ||
		dpos.IsStructuralMismatchError(err) ||
		dpos.IsOrderConflictError(err) ||
		dpos.IsMinerSetMismatchError(err) ||
		dpos.IsStaleIrreversibilityError(err) ||
		dpos.IsRevealValidationFailedError(err) ||
		dpos.IsOutdatedProposalError(err)
}

// rejectionCategory maps a rejection error to its metrics label.
func rejectionCategory(err error) string {
	switch {
	case dpos.IsPermissionDeniedError(err):
		return "permission"
	case dpos.IsTimingViolationError(err):
		return "timing"
	case dpos.IsStructuralMismatchError(err):
		return "structure"
	case dpos.IsOrderConflictError(err):
		return "order_conflict"
	case dpos.IsMinerSetMismatchError(err):
		return "miner_set"
	case dpos.IsStaleIrreversibilityError(err):
		return "stale_irreversibility"
	case dpos.IsRevealValidationFailedError(err):
		return "reveal"
	case dpos.IsOutdatedProposalError(err):
		return "outdated"
	default:
		return "internal"
	}
}
