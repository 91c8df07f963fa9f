package validation

import (
	"github.com/rondochain/rondo-go/model/rondo"
	"github.com/rondochain/rondo-go/state/dpos"
)

// PostCheck compares the round that was intended to be committed against
// the round actually read back from the committed store. Both structural
// hashes cover every security-significant field, so any divergence —
// including in the extra-block-producer designation or the irreversibility
// markers — fails the check.
//
// The two arguments must be independently obtained values: comparing a
// round against itself after in-place mutation proves nothing, so aliased
// inputs are rejected outright.
func PostCheck(intended *rondo.Round, committed *rondo.Round) error {
	if intended == nil || committed == nil {
		return dpos.NewStructuralMismatchErrorf("post-check requires both rounds (intended: %v, committed: %v)",
			intended != nil, committed != nil)
	}
	if intended == committed {
		return dpos.NewStructuralMismatchErrorf("post-check invoked with aliased rounds")
	}

	intendedID := intended.ID()
	committedID := committed.ID()
	if intendedID != committedID {
		return dpos.NewStructuralMismatchErrorf(
			"committed round diverges from intended round (intended: %x, committed: %x)",
			intendedID, committedID,
		)
	}
	return nil
}
