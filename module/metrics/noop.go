package metrics

// NoopCollector discards all metrics. It is used in tests and in tools
// that construct the scheduler without a metrics server.
type NoopCollector struct{}

func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

func (nc *NoopCollector) RoundCommitted(roundNumber uint64, behaviour string) {}
func (nc *NoopCollector) ProposalRejected(category string)                    {}
func (nc *NoopCollector) IrreversibleHeightSet(height uint64)                 {}
func (nc *NoopCollector) TinyBlockProduced()                                  {}
func (nc *NoopCollector) TermEnded(termNumber uint64)                         {}
