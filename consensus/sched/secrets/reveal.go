package secrets

import (
	"bytes"

	"github.com/hashicorp/go-multierror"
	"github.com/onflow/flow-go/crypto/hash"
	"github.com/rs/zerolog"

	"github.com/rondochain/rondo-go/model/rondo"
	"github.com/rondochain/rondo-go/state/dpos"
)

// RevealService writes reconstructed previous-round secrets into the slots
// of miners other than the caller. Every write is guarded by the
// reveal-matches-commitment check; this service is the only code path
// allowed to populate another miner's PreviousInValue.
type RevealService struct {
	log zerolog.Logger
}

func NewRevealService(log zerolog.Logger) *RevealService {
	return &RevealService{
		log: log.With().Str("component", "reveal_service").Logger(),
	}
}

// ApplyReveals validates each reconstructed (miner, value) pair against the
// miner's prior-round commitment and writes the valid ones into the working
// round. Writes are idempotent: a slot's reveal, once set, is never
// overwritten. Invalid reveals are discarded, never written, and reported
// through the returned error; valid reveals in the same batch are still
// applied.
//
// The returned error, if not nil, aggregates one RevealValidationFailedError
// per discarded reveal.
func (s *RevealService) ApplyReveals(
	working *rondo.Round,
	previous *rondo.Round,
	reveals map[rondo.Identifier][]byte,
) error {

	var result *multierror.Error

	// canonical iteration keeps the aggregated error deterministic
	miners := make(rondo.IdentifierList, 0, len(reveals))
	for miner := range reveals {
		miners = append(miners, miner)
	}

	for _, miner := range miners.Sort() {
		revealed := reveals[miner]

		slot := working.Slot(miner)
		if slot == nil {
			result = multierror.Append(result, dpos.NewRevealValidationFailedErrorf(
				"reveal targets unknown miner (miner: %x)", miner))
			continue
		}

		// first valid write wins
		if len(slot.PreviousInValue) > 0 {
			s.log.Debug().
				Hex("miner", miner[:]).
				Uint64("round", working.Number).
				Msg("reveal already set, skipping")
			continue
		}

		var priorOutValue []byte
		if previous != nil {
			if prevSlot := previous.Slot(miner); prevSlot != nil {
				priorOutValue = prevSlot.OutValue
			}
		}
		if len(priorOutValue) == 0 {
			result = multierror.Append(result, dpos.NewRevealValidationFailedErrorf(
				"reveal without prior commitment (miner: %x)", miner))
			continue
		}

		digest := hash.NewSHA3_256().ComputeHash(revealed)
		if !bytes.Equal(digest, priorOutValue) {
			result = multierror.Append(result, dpos.NewRevealValidationFailedErrorf(
				"reveal hash does not match prior commitment (miner: %x)", miner))
			continue
		}

		slot.PreviousInValue = append([]byte(nil), revealed...)
	}

	return result.ErrorOrNil()
}
