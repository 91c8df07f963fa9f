package pubsub

import (
	"sync"

	"github.com/rondochain/rondo-go/consensus/sched/notifications"
	"github.com/rondochain/rondo-go/model/rondo"
	"github.com/rondochain/rondo-go/module"
)

type OnRoundCommittedConsumer = func(round *rondo.Round, behaviour rondo.Behaviour)
type OnIrreversibleHeightAdvancedConsumer = func(height uint64, roundNumber uint64)
type OnTermEndedConsumer = func(term *rondo.Term, tallies []module.MinedBlocksTally)

// SchedulerDistributor ingests scheduler events and distributes them to
// subscribers.
type SchedulerDistributor struct {
	roundCommittedConsumers             []OnRoundCommittedConsumer
	irreversibleHeightAdvancedConsumers []OnIrreversibleHeightAdvancedConsumer
	termEndedConsumers                  []OnTermEndedConsumer
	lock                                sync.RWMutex
}

var _ notifications.Consumer = (*SchedulerDistributor)(nil)

func NewSchedulerDistributor() *SchedulerDistributor {
	return &SchedulerDistributor{}
}

func (p *SchedulerDistributor) AddOnRoundCommittedConsumer(consumer OnRoundCommittedConsumer) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.roundCommittedConsumers = append(p.roundCommittedConsumers, consumer)
}

func (p *SchedulerDistributor) AddOnIrreversibleHeightAdvancedConsumer(consumer OnIrreversibleHeightAdvancedConsumer) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.irreversibleHeightAdvancedConsumers = append(p.irreversibleHeightAdvancedConsumers, consumer)
}

func (p *SchedulerDistributor) AddOnTermEndedConsumer(consumer OnTermEndedConsumer) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.termEndedConsumers = append(p.termEndedConsumers, consumer)
}

func (p *SchedulerDistributor) OnRoundCommitted(round *rondo.Round, behaviour rondo.Behaviour) {
	p.lock.RLock()
	defer p.lock.RUnlock()
	for _, consumer := range p.roundCommittedConsumers {
		consumer(round, behaviour)
	}
}

func (p *SchedulerDistributor) OnIrreversibleHeightAdvanced(height uint64, roundNumber uint64) {
	p.lock.RLock()
	defer p.lock.RUnlock()
	for _, consumer := range p.irreversibleHeightAdvancedConsumers {
		consumer(height, roundNumber)
	}
}

func (p *SchedulerDistributor) OnTermEnded(term *rondo.Term, tallies []module.MinedBlocksTally) {
	p.lock.RLock()
	defer p.lock.RUnlock()
	for _, consumer := range p.termEndedConsumers {
		consumer(term, tallies)
	}
}
