package ordering

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/onflow/flow-go/crypto/hash"

	"github.com/rondochain/rondo-go/model/rondo"
)

// InvalidCommitmentError is returned when a commitment violates its
// preconditions: the miner holds no slot, the slot already carries an
// out-value, or the reveal does not match the prior-round commitment.
type InvalidCommitmentError struct {
	err error
}

func NewInvalidCommitmentErrorf(msg string, args ...interface{}) error {
	return InvalidCommitmentError{
		err: fmt.Errorf(msg, args...),
	}
}

func (e InvalidCommitmentError) Unwrap() error {
	return e.err
}

func (e InvalidCommitmentError) Error() string {
	return e.err.Error()
}

func IsInvalidCommitmentError(err error) bool {
	return errors.As(err, &InvalidCommitmentError{})
}

// OrderAssignmentExhaustedError means no free next-round order exists. With
// at most N candidates and at most N-1 prior assignments this is impossible
// by construction; it is a defect signal, never attributable to input, and
// the proposal carrying it must be aborted without committing any state.
type OrderAssignmentExhaustedError struct {
	SupposedOrder uint32
	MinerCount    int
}

func (e OrderAssignmentExhaustedError) Error() string {
	return fmt.Sprintf(
		"no free next-round order in 1..%d (supposed order: %d)",
		e.MinerCount, e.SupposedOrder,
	)
}

func IsOrderAssignmentExhaustedError(err error) bool {
	var target OrderAssignmentExhaustedError
	return errors.As(err, &target)
}

// ApplyCommitment writes the miner's commitment into a copy of the base
// round and assigns its collision-free next-round order.
//
// The supposed order is the aggregate signature interpreted as an integer,
// reduced modulo the miner count. If that order is already claimed by a
// mined slot, the full cyclic range of 1..N is searched for the first free
// value; the search never stops early and never reuses a claimed value.
//
// The reveal of the miner's previous-round secret must match its
// prior-round commitment; the empty reveal is accepted only when no
// prior-round commitment exists for the miner.
//
// Expected errors: InvalidCommitmentError on precondition failures,
// OrderAssignmentExhaustedError as an unrecoverable defect signal.
func ApplyCommitment(
	base *rondo.Round,
	previous *rondo.Round,
	miner rondo.Identifier,
	previousInValue []byte,
	outValue []byte,
	signature []byte,
) (*rondo.Round, error) {

	slot := base.Slot(miner)
	if slot == nil {
		return nil, NewInvalidCommitmentErrorf("miner holds no slot in round %d (miner: %x)", base.Number, miner)
	}
	if slot.HasMined() {
		return nil, NewInvalidCommitmentErrorf("out-value already set for miner %x in round %d", miner, base.Number)
	}
	if len(outValue) == 0 {
		return nil, NewInvalidCommitmentErrorf("empty out-value for miner %x", miner)
	}
	if len(signature) == 0 {
		return nil, NewInvalidCommitmentErrorf("empty signature for miner %x", miner)
	}

	err := checkReveal(previous, miner, previousInValue)
	if err != nil {
		return nil, NewInvalidCommitmentErrorf("reveal does not match prior commitment: %w", err)
	}

	working := base.Copy()
	workingSlot := working.Slot(miner)

	n := working.MinerCount()
	supposed := supposedOrder(signature, n)

	final, err := resolveOrder(working, miner, supposed)
	if err != nil {
		return nil, err
	}

	workingSlot.OutValue = append([]byte(nil), outValue...)
	workingSlot.Signature = append([]byte(nil), signature...)
	workingSlot.PreviousInValue = append([]byte(nil), previousInValue...)
	workingSlot.SupposedOrderOfNextRound = supposed
	workingSlot.FinalOrderOfNextRound = final

	// re-check that the assignment left no order value claimed twice
	_, err = working.MinedSlotNextOrders()
	if err != nil {
		return nil, fmt.Errorf("order assignment violated uniqueness: %w", err)
	}

	return working, nil
}

// checkReveal verifies hash(previousInValue) against the miner's prior-round
// commitment. The empty reveal is the sentinel for "no prior commitment" and
// is only valid when the prior round indeed holds none.
func checkReveal(previous *rondo.Round, miner rondo.Identifier, previousInValue []byte) error {
	var priorOutValue []byte
	if previous != nil {
		if prevSlot := previous.Slot(miner); prevSlot != nil {
			priorOutValue = prevSlot.OutValue
		}
	}

	if len(priorOutValue) == 0 {
		if len(previousInValue) != 0 {
			return fmt.Errorf("reveal provided but no prior commitment exists (miner: %x)", miner)
		}
		return nil
	}

	if len(previousInValue) == 0 {
		return fmt.Errorf("empty reveal but prior commitment exists (miner: %x)", miner)
	}

	digest := hash.NewSHA3_256().ComputeHash(previousInValue)
	if !bytes.Equal(digest, priorOutValue) {
		return fmt.Errorf("reveal hash mismatch (miner: %x)", miner)
	}
	return nil
}

// supposedOrder reduces the signature, interpreted as a big-endian integer,
// into the order range 1..n.
func supposedOrder(signature []byte, n int) uint32 {
	mod := new(big.Int).Mod(
		new(big.Int).SetBytes(signature),
		big.NewInt(int64(n)),
	)
	return uint32(mod.Int64()) + 1
}

// resolveOrder finds the first free next-round order starting from the
// supposed order and wrapping through the complete range 1..N. All N
// candidates are examined before the search is declared exhausted.
func resolveOrder(round *rondo.Round, miner rondo.Identifier, supposed uint32) (uint32, error) {
	n := uint32(round.MinerCount())

	used := make(map[uint32]struct{}, n)
	for id, slot := range round.Miners {
		if id == miner || !slot.HasMined() {
			continue
		}
		used[slot.FinalOrderOfNextRound] = struct{}{}
	}

	for offset := uint32(0); offset < n; offset++ {
		candidate := (supposed-1+offset)%n + 1
		if _, taken := used[candidate]; !taken {
			return candidate, nil
		}
	}

	return 0, OrderAssignmentExhaustedError{
		SupposedOrder: supposed,
		MinerCount:    int(n),
	}
}
