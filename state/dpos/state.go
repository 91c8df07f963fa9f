package dpos

import (
	"github.com/rondochain/rondo-go/model/rondo"
)

// State gives read access to the committed round/term history. All returned
// rounds are independent deep copies; callers can never mutate committed
// state through a snapshot.
type State interface {

	// Final returns the snapshot at the currently committed round.
	Final() Snapshot

	// AtRound returns the snapshot at the given round number. Expected
	// errors: storage.ErrNotFound if the round was never committed.
	AtRound(number uint64) (Snapshot, error)
}

// MutableState extends State with the single entry point for consensus
// proposals. The engine is logically single-threaded per chain; proposals
// are applied strictly in order and a rejected proposal has zero side
// effects.
type MutableState interface {
	State

	// ApplyProposal validates the proposal against the committed state and,
	// on success, atomically commits the resulting round. Expected errors:
	//  - OutdatedProposalError if the base round is no longer the head
	//  - PermissionDeniedError, TimingViolationError,
	//    StructuralMismatchError, OrderConflictError,
	//    MinerSetMismatchError, StaleIrreversibilityError,
	//    RevealValidationFailedError for proposals failing the pipeline
	// All other errors are unexpected and indicate a defect.
	ApplyProposal(proposal *rondo.RoundProposal) error
}

// Snapshot is an immutable view of the committed state at one round.
type Snapshot interface {

	// Round returns the round of this snapshot.
	Round() (*rondo.Round, error)

	// PreviousRound returns the round preceding this snapshot's round, or
	// storage.ErrNotFound at the genesis round.
	PreviousRound() (*rondo.Round, error)

	// Term returns the term this snapshot's round belongs to.
	Term() (*rondo.Term, error)

	// IsTermBoundary returns whether the next transition out of this
	// snapshot's round must be a term transition.
	IsTermBoundary() (bool, error)
}
