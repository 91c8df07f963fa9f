package rondo

import (
	"time"
)

// SlotUpdate carries the state a miner wants to write into its own slot as
// part of a proposal. Reveals for other miners' slots, reconstructed from
// threshold shares, ride along and are validated independently before any of
// them is written.
type SlotUpdate struct {
	// Miner is the slot holder the update applies to. It must equal the
	// proposal's proposer.
	Miner Identifier

	// OutValue is the commitment published with an UpdateValue behaviour.
	OutValue []byte

	// Signature is the aggregate signature published with the out-value.
	Signature []byte

	// PreviousInValue reveals the miner's own previous-round secret. The
	// empty value is the sentinel for "no prior-round commitment".
	PreviousInValue []byte

	// RevealedInValues carries previous-round secrets of other miners,
	// reconstructed off-chain from threshold shares. Each entry must pass
	// the reveal-matches-commitment check before it is written.
	RevealedInValues map[Identifier][]byte

	// ActualMiningTime is the wall-clock time of the block being proposed.
	ActualMiningTime time.Time

	// ImpliedIrreversibleBlockHeight is the miner's irreversibility claim.
	ImpliedIrreversibleBlockHeight uint64
}

// RoundProposal is the signed consensus payload a miner submits to the
// engine. Exactly one of Updates / NextRound is meaningful, depending on the
// behaviour tag: UpdateValue and TinyBlock carry a single slot update,
// NextRound and NextTerm carry the fully constructed successor round.
type RoundProposal struct {
	// RoundNumber is the number of the base round the proposal extends.
	RoundNumber uint64

	// TermNumber is the term of the base round.
	TermNumber uint64

	// Behaviour is the consensus action the proposal claims to execute.
	Behaviour Behaviour

	// Proposer identifies the miner submitting the proposal.
	Proposer Identifier

	// Updates holds the slot updates for UpdateValue and TinyBlock
	// behaviours. The pipeline requires exactly one update, owned by the
	// proposer.
	Updates []SlotUpdate

	// NextRound is the proposed successor round for transition behaviours.
	NextRound *Round

	// ConfirmedIrreversibleHeight and ConfirmedIrreversibleRoundNumber are
	// the irreversibility markers the proposal intends to commit. They may
	// never regress below the base round's.
	ConfirmedIrreversibleHeight      uint64
	ConfirmedIrreversibleRoundNumber uint64
}

// Update returns the proposal's single slot update, or nil if the proposal
// carries none or more than one.
func (p *RoundProposal) Update() *SlotUpdate {
	if len(p.Updates) != 1 {
		return nil
	}
	return &p.Updates[0]
}

// ID returns the structural hash of the proposal. Reveal maps are flattened
// into slices sorted by miner identifier so the hash is deterministic.
func (p *RoundProposal) ID() Identifier {
	type encodableReveal struct {
		Miner Identifier
		Value []byte
	}
	type encodableUpdate struct {
		Miner                          Identifier
		OutValue                       []byte
		Signature                      []byte
		PreviousInValue                []byte
		Reveals                        []encodableReveal
		ActualMiningTime               int64
		ImpliedIrreversibleBlockHeight uint64
	}
	type encodableProposal struct {
		RoundNumber                      uint64
		TermNumber                       uint64
		Behaviour                        uint8
		Proposer                         Identifier
		Updates                          []encodableUpdate
		NextRound                        *Identifier
		ConfirmedIrreversibleHeight      uint64
		ConfirmedIrreversibleRoundNumber uint64
	}
	ep := encodableProposal{
		RoundNumber:                      p.RoundNumber,
		TermNumber:                       p.TermNumber,
		Behaviour:                        uint8(p.Behaviour),
		Proposer:                         p.Proposer,
		ConfirmedIrreversibleHeight:      p.ConfirmedIrreversibleHeight,
		ConfirmedIrreversibleRoundNumber: p.ConfirmedIrreversibleRoundNumber,
	}
	for _, update := range p.Updates {
		eu := encodableUpdate{
			Miner:                          update.Miner,
			OutValue:                       update.OutValue,
			Signature:                      update.Signature,
			PreviousInValue:                update.PreviousInValue,
			ActualMiningTime:               update.ActualMiningTime.UnixNano(),
			ImpliedIrreversibleBlockHeight: update.ImpliedIrreversibleBlockHeight,
		}
		revealed := make(IdentifierList, 0, len(update.RevealedInValues))
		for miner := range update.RevealedInValues {
			revealed = append(revealed, miner)
		}
		for _, miner := range revealed.Sort() {
			eu.Reveals = append(eu.Reveals, encodableReveal{Miner: miner, Value: update.RevealedInValues[miner]})
		}
		ep.Updates = append(ep.Updates, eu)
	}
	if p.NextRound != nil {
		id := p.NextRound.ID()
		ep.NextRound = &id
	}
	return MakeID(ep)
}
