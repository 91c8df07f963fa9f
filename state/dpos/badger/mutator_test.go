package badger

import (
	"testing"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/onflow/flow-go/crypto"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rondochain/rondo-go/consensus/sched/notifications/pubsub"
	"github.com/rondochain/rondo-go/consensus/sched/ordering"
	"github.com/rondochain/rondo-go/model/rondo"
	"github.com/rondochain/rondo-go/module"
	"github.com/rondochain/rondo-go/module/metrics"
	modulemock "github.com/rondochain/rondo-go/module/mock"
	"github.com/rondochain/rondo-go/state/dpos"
	bstorage "github.com/rondochain/rondo-go/storage/badger"
	"github.com/rondochain/rondo-go/storage/badger/operation"
	"github.com/rondochain/rondo-go/utils/unittest"
)

// testHarness bundles the mutable state with its collaborators so tests can
// assert on emitted events.
type testHarness struct {
	state       *MutableState
	keys        []crypto.PrivateKey
	distributor *pubsub.SchedulerDistributor
	election    *modulemock.Election
	rewards     *modulemock.RewardsConsumer
	start       time.Time
}

func publicKeys(keys []crypto.PrivateKey) []crypto.PublicKey {
	pubs := make([]crypto.PublicKey, 0, len(keys))
	for _, key := range keys {
		pubs = append(pubs, key.PublicKey())
	}
	return pubs
}

func withHarness(t *testing.T, cfg Config, n int, f func(*testHarness)) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {

		keys := make([]crypto.PrivateKey, 0, n)
		for i := 0; i < n; i++ {
			keys = append(keys, unittest.KeyFixture())
		}

		rounds := bstorage.NewRounds(db)
		terms := bstorage.NewTerms(db)

		start := time.Now()
		state, err := Bootstrap(cfg, db, rounds, terms, publicKeys(keys), start)
		require.NoError(t, err)

		distributor := pubsub.NewSchedulerDistributor()
		election := modulemock.NewElection(t)
		rewards := modulemock.NewRewardsConsumer(t)

		mutable := NewMutableState(
			zerolog.Nop(),
			state,
			metrics.NewNoopCollector(),
			distributor,
			election,
			rewards,
			nil,
		)

		f(&testHarness{
			state:       mutable,
			keys:        keys,
			distributor: distributor,
			election:    election,
			rewards:     rewards,
			start:       start,
		})
	})
}

// minerByOrder returns the identifier of the miner holding the given order
// in the head round.
func (h *testHarness) minerByOrder(t *testing.T, order uint32) rondo.Identifier {
	head, err := h.state.rounds.Current()
	require.NoError(t, err)
	for _, slot := range head.SlotsByOrder() {
		if slot.Order == order {
			return slot.Miner
		}
	}
	t.Fatalf("no slot with order %d", order)
	return rondo.ZeroID
}

// commitGenesisUpdate publishes the order-1 miner's commitment in the
// genesis round and returns the proposer.
func (h *testHarness) commitGenesisUpdate(t *testing.T) rondo.Identifier {
	proposer := h.minerByOrder(t, 1)

	head, err := h.state.rounds.Current()
	require.NoError(t, err)

	_, out := unittest.CommitmentFixture()
	proposal := unittest.ProposalFixture(head, proposer, rondo.BehaviourUpdateValue)
	proposal.Updates = []rondo.SlotUpdate{{
		Miner:            proposer,
		OutValue:         out,
		Signature:        unittest.SignatureFixture(),
		ActualMiningTime: time.Now(),
	}}

	err = h.state.ApplyProposal(proposal)
	require.NoError(t, err)
	return proposer
}

func TestBootstrap(t *testing.T) {
	withHarness(t, DefaultConfig(), 4, func(h *testHarness) {
		final := h.state.Final()

		round, err := final.Round()
		require.NoError(t, err)
		assert.Equal(t, uint64(1), round.Number)
		assert.Equal(t, uint64(1), round.TermNumber)
		assert.Equal(t, 4, round.MinerCount())
		assert.NoError(t, round.CheckOrderPermutation())
		assert.True(t, round.IsMinerListJustChanged)

		producer, ok := round.ExtraBlockProducer()
		require.True(t, ok)
		assert.Equal(t, uint32(1), producer.Order)

		term, err := final.Term()
		require.NoError(t, err)
		assert.Equal(t, uint64(1), term.Number)
		assert.Equal(t, uint64(1), term.FirstRoundNumber)
		assert.Equal(t, round.MinerIDs(), term.Miners)

		boundary, err := final.IsTermBoundary()
		require.NoError(t, err)
		assert.False(t, boundary)
	})
}

func TestBootstrapTwice(t *testing.T) {
	withHarness(t, DefaultConfig(), 4, func(h *testHarness) {
		_, err := Bootstrap(
			h.state.cfg, h.state.db, h.state.rounds, h.state.terms,
			publicKeys(h.keys), h.start,
		)
		require.Error(t, err)
	})
}

func TestOpenState(t *testing.T) {
	withHarness(t, DefaultConfig(), 4, func(h *testHarness) {
		opened, err := OpenState(h.state.cfg, h.state.db, h.state.rounds, h.state.terms)
		require.NoError(t, err)

		round, err := opened.Final().Round()
		require.NoError(t, err)
		assert.Equal(t, uint64(1), round.Number)
	})

	unittest.RunWithBadgerDB(t, func(db *badger.DB) {
		_, err := OpenState(DefaultConfig(), db, bstorage.NewRounds(db), bstorage.NewTerms(db))
		require.Error(t, err)
	})
}

func TestApplyUpdateValue(t *testing.T) {
	withHarness(t, DefaultConfig(), 4, func(h *testHarness) {

		var committed *rondo.Round
		h.distributor.AddOnRoundCommittedConsumer(func(round *rondo.Round, behaviour rondo.Behaviour) {
			committed = round
			assert.Equal(t, rondo.BehaviourUpdateValue, behaviour)
		})

		proposer := h.commitGenesisUpdate(t)

		require.NotNil(t, committed)
		slot := committed.Slot(proposer)
		require.NotNil(t, slot)
		assert.True(t, slot.HasMined())
		assert.Equal(t, uint64(1), slot.ProducedBlocks)
		assert.NotZero(t, slot.FinalOrderOfNextRound)
		assert.Len(t, slot.ActualMiningTimes, 1)

		// the committed round is the stored head
		head, err := h.state.rounds.Current()
		require.NoError(t, err)
		assert.Equal(t, committed.ID(), head.ID())
		assert.Equal(t, uint64(1), head.Number)
	})
}

func TestApplyTinyBlock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TinyBlocksPerSlot = 1

	withHarness(t, cfg, 4, func(h *testHarness) {

		proposer := h.commitGenesisUpdate(t)

		head, err := h.state.rounds.Current()
		require.NoError(t, err)

		proposal := unittest.ProposalFixture(head, proposer, rondo.BehaviourTinyBlock)
		proposal.Updates = []rondo.SlotUpdate{{
			Miner:            proposer,
			ActualMiningTime: time.Now(),
		}}

		err = h.state.ApplyProposal(proposal)
		require.NoError(t, err)

		committed, err := h.state.rounds.Current()
		require.NoError(t, err)
		slot := committed.Slot(proposer)
		assert.Equal(t, uint32(1), slot.ProducedTinyBlocks)
		assert.Equal(t, uint64(2), slot.ProducedBlocks)

		// the cap rejects a second filler block in the same slot
		second := unittest.ProposalFixture(committed, proposer, rondo.BehaviourTinyBlock)
		second.Updates = []rondo.SlotUpdate{{
			Miner:            proposer,
			ActualMiningTime: time.Now(),
		}}
		err = h.state.ApplyProposal(second)
		require.Error(t, err)
		assert.True(t, dpos.IsTimingViolationError(err))
	})
}

func TestApplyOutdatedProposal(t *testing.T) {
	withHarness(t, DefaultConfig(), 4, func(h *testHarness) {
		head, err := h.state.rounds.Current()
		require.NoError(t, err)

		proposal := unittest.ProposalFixture(head, h.minerByOrder(t, 1), rondo.BehaviourUpdateValue)
		proposal.RoundNumber = head.Number + 5

		err = h.state.ApplyProposal(proposal)
		require.Error(t, err)
		assert.True(t, dpos.IsOutdatedProposalError(err))
	})
}

func TestApplyRejectionHasNoSideEffects(t *testing.T) {
	withHarness(t, DefaultConfig(), 4, func(h *testHarness) {
		head, err := h.state.rounds.Current()
		require.NoError(t, err)
		before := head.ID()

		// proposer without a slot in the round
		outsider := unittest.IdentifierFixture()
		_, out := unittest.CommitmentFixture()
		proposal := unittest.ProposalFixture(head, outsider, rondo.BehaviourUpdateValue)
		proposal.Updates = []rondo.SlotUpdate{{
			Miner:            outsider,
			OutValue:         out,
			Signature:        unittest.SignatureFixture(),
			ActualMiningTime: time.Now(),
		}}

		err = h.state.ApplyProposal(proposal)
		require.Error(t, err)
		assert.True(t, dpos.IsPermissionDeniedError(err))

		after, err := h.state.rounds.Current()
		require.NoError(t, err)
		assert.Equal(t, before, after.ID())
	})
}

func TestApplyNextRound(t *testing.T) {
	withHarness(t, DefaultConfig(), 4, func(h *testHarness) {

		proposer := h.commitGenesisUpdate(t)

		head, err := h.state.rounds.Current()
		require.NoError(t, err)

		next, err := ordering.GenerateNextRound(
			head, proposer, time.Now(), h.state.cfg.MiningInterval,
		)
		require.NoError(t, err)

		proposal := unittest.ProposalFixture(head, proposer, rondo.BehaviourNextRound)
		proposal.NextRound = next

		err = h.state.ApplyProposal(proposal)
		require.NoError(t, err)

		committed, err := h.state.rounds.Current()
		require.NoError(t, err)
		assert.Equal(t, uint64(2), committed.Number)
		assert.Equal(t, uint64(1), committed.TermNumber)
		assert.Equal(t, proposer, committed.ExtraBlockProducerOfPreviousRound)
		assert.Equal(t, head.MinerIDs(), committed.MinerIDs())

		// the previous head stays retrievable
		previous, err := h.state.rounds.ByNumber(1)
		require.NoError(t, err)
		assert.Equal(t, head.ID(), previous.ID())
	})
}

func TestApplyNextTerm(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RoundsPerTerm = 1

	withHarness(t, cfg, 4, func(h *testHarness) {

		proposer := h.commitGenesisUpdate(t)

		head, err := h.state.rounds.Current()
		require.NoError(t, err)

		newKeys := make([]crypto.PrivateKey, 0, 4)
		for i := 0; i < 4; i++ {
			newKeys = append(newKeys, unittest.KeyFixture())
		}
		elected := publicKeys(newKeys)
		h.election.On("ElectedMiners").Return(elected, nil)
		h.rewards.On("OnTermEnded", uint64(1), mock.Anything).Run(func(args mock.Arguments) {
			tallies := args.Get(1).([]module.MinedBlocksTally)
			assert.Len(t, tallies, 4)
		}).Once()

		next, err := ordering.GenerateFirstRoundOfTerm(
			elected, head.Number+1, head.TermNumber+1,
			proposer, time.Now(), h.state.cfg.MiningInterval,
		)
		require.NoError(t, err)

		proposal := unittest.ProposalFixture(head, proposer, rondo.BehaviourNextTerm)
		proposal.NextRound = next

		err = h.state.ApplyProposal(proposal)
		require.NoError(t, err)

		committed, err := h.state.rounds.Current()
		require.NoError(t, err)
		assert.Equal(t, uint64(2), committed.Number)
		assert.Equal(t, uint64(2), committed.TermNumber)
		assert.True(t, committed.IsMinerListJustChanged)

		term, err := h.state.terms.ByNumber(2)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), term.FirstRoundNumber)
		assert.Equal(t, committed.MinerIDs(), term.Miners)
	})
}

// TestApplyUpdateValueAdvancesIrreversibility seeds a mid-chain state where
// enough miners carry irreversibility claims, then verifies that one more
// commitment pushes the confirmed height.
func TestApplyUpdateValueAdvancesIrreversibility(t *testing.T) {
	unittest.RunWithBadgerDB(t, func(db *badger.DB) {

		cfg := DefaultConfig()
		rounds := bstorage.NewRounds(db)
		terms := bstorage.NewTerms(db)

		now := time.Now()

		// previous round: everyone mined and claimed an implied height
		previous := unittest.RoundFixture(4, unittest.WithRoundNumber(4))
		finals := []uint32{1, 2, 3, 4}
		for i, slot := range previous.SlotsByOrder() {
			_, out := unittest.CommitmentFixture()
			slot.OutValue = out
			slot.Signature = unittest.SignatureFixture()
			slot.SupposedOrderOfNextRound = finals[i]
			slot.FinalOrderOfNextRound = finals[i]
			slot.ImpliedIrreversibleBlockHeight = uint64(10 * (i + 1))
		}

		// current round: same miner set, two slots already mined
		current := &rondo.Round{
			Number:     5,
			TermNumber: 1,
			Miners:     make(map[rondo.Identifier]*rondo.MinerSlot),
		}
		for _, slot := range previous.SlotsByOrder() {
			current.Miners[slot.Miner] = &rondo.MinerSlot{
				Miner:                slot.Miner,
				PubKey:               append([]byte(nil), slot.PubKey...),
				Order:                slot.Order,
				IsExtraBlockProducer: slot.Order == 1,
				ExpectedMiningTime:   now.Add(time.Duration(slot.Order-1) * cfg.MiningInterval),
			}
		}
		var proposer rondo.Identifier
		var proposerReveal []byte
		for _, slot := range current.SlotsByOrder() {
			switch slot.Order {
			case 1:
				proposer = slot.Miner
				in, out := unittest.CommitmentFixture()
				prevSlot := previous.Slot(slot.Miner)
				prevSlot.OutValue = out
				proposerReveal = in
			case 2, 3:
				_, out := unittest.CommitmentFixture()
				slot.OutValue = out
				slot.Signature = unittest.SignatureFixture()
				slot.SupposedOrderOfNextRound = slot.Order
				slot.FinalOrderOfNextRound = slot.Order
			}
		}

		term := &rondo.Term{Number: 1, FirstRoundNumber: 1, Miners: previous.MinerIDs()}

		require.NoError(t, db.Update(operation.InsertRound(previous)))
		require.NoError(t, db.Update(operation.InsertRound(current)))
		require.NoError(t, db.Update(operation.InsertTerm(term)))
		require.NoError(t, db.Update(operation.InsertCurrentRound(current.Number)))

		state := &State{cfg: cfg, db: db, rounds: rounds, terms: terms}
		distributor := pubsub.NewSchedulerDistributor()
		mutable := NewMutableState(
			zerolog.Nop(), state, metrics.NewNoopCollector(), distributor,
			modulemock.NewElection(t), modulemock.NewRewardsConsumer(t), nil,
		)

		var libHeight uint64
		distributor.AddOnIrreversibleHeightAdvancedConsumer(func(height uint64, roundNumber uint64) {
			libHeight = height
		})

		_, out := unittest.CommitmentFixture()
		proposal := unittest.ProposalFixture(current, proposer, rondo.BehaviourUpdateValue)
		proposal.Updates = []rondo.SlotUpdate{{
			Miner:                          proposer,
			OutValue:                       out,
			Signature:                      unittest.SignatureFixture(),
			PreviousInValue:                proposerReveal,
			ActualMiningTime:               now,
			ImpliedIrreversibleBlockHeight: 42,
		}}

		err := mutable.ApplyProposal(proposal)
		require.NoError(t, err)

		// miners with orders 1, 2, 3 mined; their previous claims are
		// 10, 20, 30, of which 3 of 4 confirm at least 10
		assert.Equal(t, uint64(10), libHeight)

		committed, err := rounds.Current()
		require.NoError(t, err)
		assert.Equal(t, uint64(10), committed.ConfirmedIrreversibleHeight)
		assert.Equal(t, uint64(5), committed.ConfirmedIrreversibleRoundNumber)
	})
}
