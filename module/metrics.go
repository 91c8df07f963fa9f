package module

// SchedulerMetrics exposes the consensus scheduler's operational counters.
type SchedulerMetrics interface {

	// RoundCommitted reports a successfully committed proposal and the
	// behaviour that produced it.
	RoundCommitted(roundNumber uint64, behaviour string)

	// ProposalRejected reports a proposal rejected by the validation
	// pipeline, labeled with its error category.
	ProposalRejected(category string)

	// IrreversibleHeightSet reports an advance of the LIB height.
	IrreversibleHeightSet(height uint64)

	// TinyBlockProduced reports a committed filler block.
	TinyBlockProduced()

	// TermEnded reports the completion of a term.
	TermEnded(termNumber uint64)
}
