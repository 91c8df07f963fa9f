package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rondochain/rondo-go/module"
)

const (
	namespaceConsensus = "rondo"
	subsystemScheduler = "sched"
)

// SchedulerCollector implements module.SchedulerMetrics on top of
// prometheus.
type SchedulerCollector struct {
	committedRounds    *prometheus.CounterVec
	rejectedProposals  *prometheus.CounterVec
	irreversibleHeight prometheus.Gauge
	tinyBlocks         prometheus.Counter
	termsEnded         prometheus.Counter
}

var _ module.SchedulerMetrics = (*SchedulerCollector)(nil)

func NewSchedulerCollector(registerer prometheus.Registerer) *SchedulerCollector {
	collector := &SchedulerCollector{
		committedRounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceConsensus,
			Subsystem: subsystemScheduler,
			Name:      "committed_proposals_total",
			Help:      "number of proposals committed to the round state, by behaviour",
		}, []string{"behaviour"}),
		rejectedProposals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceConsensus,
			Subsystem: subsystemScheduler,
			Name:      "rejected_proposals_total",
			Help:      "number of proposals rejected by the validation pipeline, by category",
		}, []string{"category"}),
		irreversibleHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceConsensus,
			Subsystem: subsystemScheduler,
			Name:      "irreversible_height",
			Help:      "the last irreversible block height",
		}),
		tinyBlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceConsensus,
			Subsystem: subsystemScheduler,
			Name:      "tiny_blocks_total",
			Help:      "number of committed filler blocks",
		}),
		termsEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceConsensus,
			Subsystem: subsystemScheduler,
			Name:      "terms_ended_total",
			Help:      "number of completed terms",
		}),
	}

	registerer.MustRegister(
		collector.committedRounds,
		collector.rejectedProposals,
		collector.irreversibleHeight,
		collector.tinyBlocks,
		collector.termsEnded,
	)

	return collector
}

func (c *SchedulerCollector) RoundCommitted(roundNumber uint64, behaviour string) {
	c.committedRounds.WithLabelValues(behaviour).Inc()
}

func (c *SchedulerCollector) ProposalRejected(category string) {
	c.rejectedProposals.WithLabelValues(category).Inc()
}

func (c *SchedulerCollector) IrreversibleHeightSet(height uint64) {
	c.irreversibleHeight.Set(float64(height))
}

func (c *SchedulerCollector) TinyBlockProduced() {
	c.tinyBlocks.Inc()
}

func (c *SchedulerCollector) TermEnded(termNumber uint64) {
	c.termsEnded.Inc()
}
