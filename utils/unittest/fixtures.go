package unittest

import (
	crand "crypto/rand"
	"time"

	"github.com/onflow/flow-go/crypto"
	"github.com/onflow/flow-go/crypto/hash"

	"github.com/rondochain/rondo-go/model/rondo"
)

// DefaultMiningInterval is the slot spacing used by round fixtures.
const DefaultMiningInterval = 4 * time.Second

func IdentifierFixture() rondo.Identifier {
	var id rondo.Identifier
	_, _ = crand.Read(id[:])
	return id
}

func IdentifierListFixture(n int) rondo.IdentifierList {
	list := make(rondo.IdentifierList, n)
	for i := 0; i < n; i++ {
		list[i] = IdentifierFixture()
	}
	return list
}

// KeyFixture generates a BLS private key from a random seed.
func KeyFixture() crypto.PrivateKey {
	seed := make([]byte, crypto.KeyGenSeedMinLen)
	_, _ = crand.Read(seed)
	sk, err := crypto.GeneratePrivateKey(crypto.BLSBLS12381, seed)
	if err != nil {
		panic(err)
	}
	return sk
}

// CommitmentFixture returns a random in-value together with its commitment,
// the SHA3-256 hash of the in-value.
func CommitmentFixture() (inValue []byte, outValue []byte) {
	inValue = make([]byte, 32)
	_, _ = crand.Read(inValue)
	outValue = hash.NewSHA3_256().ComputeHash(inValue)
	return inValue, outValue
}

// SignatureFixture returns random bytes shaped like an aggregate signature.
func SignatureFixture() []byte {
	sig := make([]byte, 48)
	_, _ = crand.Read(sig)
	return sig
}

func WithRoundNumber(number uint64) func(*rondo.Round) {
	return func(round *rondo.Round) {
		round.Number = number
	}
}

func WithTermNumber(number uint64) func(*rondo.Round) {
	return func(round *rondo.Round) {
		round.TermNumber = number
	}
}

func WithFirstMiningTime(start time.Time) func(*rondo.Round) {
	return func(round *rondo.Round) {
		for _, slot := range round.Miners {
			slot.ExpectedMiningTime = start.Add(time.Duration(slot.Order-1) * DefaultMiningInterval)
		}
	}
}

// RoundFixture creates a fresh round with n miners holding orders 1..n,
// slots spaced by the default mining interval, and the order-1 slot
// designated as extra block producer. No slot carries commitments.
func RoundFixture(n int, opts ...func(*rondo.Round)) *rondo.Round {
	start := time.Now()
	round := &rondo.Round{
		Number:     2,
		TermNumber: 1,
		Miners:     make(map[rondo.Identifier]*rondo.MinerSlot, n),
	}
	for i := 0; i < n; i++ {
		slot := MinerSlotFixture(uint32(i + 1))
		slot.ExpectedMiningTime = start.Add(time.Duration(i) * DefaultMiningInterval)
		slot.IsExtraBlockProducer = i == 0
		round.Miners[slot.Miner] = slot
	}
	for _, opt := range opts {
		opt(round)
	}
	return round
}

// MinerSlotFixture creates a fresh slot for a random miner with the given
// order and no published values.
func MinerSlotFixture(order uint32) *rondo.MinerSlot {
	pub := make([]byte, 96)
	_, _ = crand.Read(pub)
	return &rondo.MinerSlot{
		Miner:  rondo.HashToID(pub),
		PubKey: pub,
		Order:  order,
	}
}

// TermFixture creates a term over the given round's miner set.
func TermFixture(round *rondo.Round) *rondo.Term {
	return &rondo.Term{
		Number:           round.TermNumber,
		FirstRoundNumber: round.Number,
		Miners:           round.MinerIDs(),
	}
}

// ProposalFixture creates a minimal proposal extending the given round.
func ProposalFixture(base *rondo.Round, proposer rondo.Identifier, behaviour rondo.Behaviour) *rondo.RoundProposal {
	return &rondo.RoundProposal{
		RoundNumber:                      base.Number,
		TermNumber:                       base.TermNumber,
		Behaviour:                        behaviour,
		Proposer:                         proposer,
		ConfirmedIrreversibleHeight:      base.ConfirmedIrreversibleHeight,
		ConfirmedIrreversibleRoundNumber: base.ConfirmedIrreversibleRoundNumber,
	}
}
