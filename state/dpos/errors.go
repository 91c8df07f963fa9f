package dpos

import (
	"errors"
	"fmt"
)

// PermissionDeniedError indicates that the proposer does not hold a slot in
// the base round and therefore may not act in it.
type PermissionDeniedError struct {
	error
}

func NewPermissionDeniedErrorf(msg string, args ...interface{}) error {
	return PermissionDeniedError{
		error: fmt.Errorf(msg, args...),
	}
}

func (e PermissionDeniedError) Unwrap() error {
	return e.error
}

func IsPermissionDeniedError(err error) bool {
	return errors.As(err, &PermissionDeniedError{})
}

// TimingViolationError indicates that the proposer acted outside its slot
// window, or attempted a round transition it is not (yet) authorized to
// trigger.
type TimingViolationError struct {
	error
}

func NewTimingViolationErrorf(msg string, args ...interface{}) error {
	return TimingViolationError{
		error: fmt.Errorf(msg, args...),
	}
}

func (e TimingViolationError) Unwrap() error {
	return e.error
}

func IsTimingViolationError(err error) bool {
	return errors.As(err, &TimingViolationError{})
}

// StructuralMismatchError indicates malformed round-transition data: wrong
// round or term numbering, non-empty commitment fields in a fresh round, or
// a committed round whose structural hash differs from the intended one.
type StructuralMismatchError struct {
	error
}

func NewStructuralMismatchErrorf(msg string, args ...interface{}) error {
	return StructuralMismatchError{
		error: fmt.Errorf(msg, args...),
	}
}

func (e StructuralMismatchError) Unwrap() error {
	return e.error
}

func IsStructuralMismatchError(err error) bool {
	return errors.As(err, &StructuralMismatchError{})
}

// OrderConflictError indicates that two mined slots carry the same
// next-round order value.
type OrderConflictError struct {
	error
}

func NewOrderConflictErrorf(msg string, args ...interface{}) error {
	return OrderConflictError{
		error: fmt.Errorf(msg, args...),
	}
}

func (e OrderConflictError) Unwrap() error {
	return e.error
}

func IsOrderConflictError(err error) bool {
	return errors.As(err, &OrderConflictError{})
}

// MinerSetMismatchError indicates an unauthorized change of the miner set:
// a same-term transition that adds or removes miners, or a term transition
// that deviates from the election result.
type MinerSetMismatchError struct {
	error
}

func NewMinerSetMismatchErrorf(msg string, args ...interface{}) error {
	return MinerSetMismatchError{
		error: fmt.Errorf(msg, args...),
	}
}

func (e MinerSetMismatchError) Unwrap() error {
	return e.error
}

func IsMinerSetMismatchError(err error) bool {
	return errors.As(err, &MinerSetMismatchError{})
}

// StaleIrreversibilityError indicates a proposal that would lower the
// confirmed irreversible height or round number.
type StaleIrreversibilityError struct {
	error
}

func NewStaleIrreversibilityErrorf(msg string, args ...interface{}) error {
	return StaleIrreversibilityError{
		error: fmt.Errorf(msg, args...),
	}
}

func (e StaleIrreversibilityError) Unwrap() error {
	return e.error
}

func IsStaleIrreversibilityError(err error) bool {
	return errors.As(err, &StaleIrreversibilityError{})
}

// RevealValidationFailedError indicates a revealed in-value whose hash does
// not match the corresponding prior-round commitment. The reveal is
// discarded; it is never written to state.
type RevealValidationFailedError struct {
	error
}

func NewRevealValidationFailedErrorf(msg string, args ...interface{}) error {
	return RevealValidationFailedError{
		error: fmt.Errorf(msg, args...),
	}
}

func (e RevealValidationFailedError) Unwrap() error {
	return e.error
}

func IsRevealValidationFailedError(err error) bool {
	return errors.As(err, &RevealValidationFailedError{})
}

// OutdatedProposalError indicates a proposal referencing a base round that
// is no longer the committed head. Outdated proposals are rejected, never
// merged.
type OutdatedProposalError struct {
	error
}

func NewOutdatedProposalErrorf(msg string, args ...interface{}) error {
	return OutdatedProposalError{
		error: fmt.Errorf(msg, args...),
	}
}

func (e OutdatedProposalError) Unwrap() error {
	return e.error
}

func IsOutdatedProposalError(err error) bool {
	return errors.As(err, &OutdatedProposalError{})
}
