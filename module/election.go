package module

import (
	"github.com/onflow/flow-go/crypto"
)

// Election is the validator-election collaborator. It is consulted exactly
// once per term transition; its output is adopted as the new round's miner
// set verbatim, in the returned order. The scheduler never filters or
// reorders the result beyond the deterministic order-assignment engine.
type Election interface {

	// ElectedMiners returns the ordered public keys of the miners elected
	// for the next term.
	ElectedMiners() ([]crypto.PublicKey, error)
}
