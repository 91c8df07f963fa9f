package rondo

// Term is a logical span of consecutive rounds sharing one elected miner
// set. A term is created only by adopting the election collaborator's output
// wholesale; the scheduler never edits a term's miner set in place.
type Term struct {
	// Number is the monotonically increasing term number, starting at 1.
	Number uint64

	// FirstRoundNumber is the number of the first round of the term.
	FirstRoundNumber uint64

	// Miners is the elected miner set for this term, in election order.
	Miners IdentifierList
}

// ID returns the structural hash of the term.
func (t *Term) ID() Identifier {
	return MakeID(t)
}
