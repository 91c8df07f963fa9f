package module

import (
	"github.com/rondochain/rondo-go/model/rondo"
)

// ShareTransport is the off-chain threshold-share collaborator. Miners push
// encrypted shares of their in-values through it; peers reconstruct a
// miner's secret once a threshold of shares arrives. The engine only ever
// consumes reconstructed (miner, value) pairs and re-validates each of them
// against the on-chain commitment before any write.
type ShareTransport interface {

	// SubmitShare hands one encrypted share to the transport. holder is the
	// miner the share is addressed to, owner the miner whose secret it
	// belongs to.
	SubmitShare(roundNumber uint64, holder rondo.Identifier, owner rondo.Identifier, share []byte) error

	// Reconstructed returns the secrets that could be reconstructed for the
	// given round so far, keyed by the owning miner.
	Reconstructed(roundNumber uint64) (map[rondo.Identifier][]byte, error)
}
