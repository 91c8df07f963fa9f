package validation

import (
	"fmt"
	"time"

	"github.com/rondochain/rondo-go/model/rondo"
)

// Context carries everything a check may consult. Base and Previous must be
// independent snapshot copies of committed state; checks never mutate them.
type Context struct {
	// Base is the currently committed round the proposal extends.
	Base *rondo.Round

	// Previous is the round before Base; nil at the genesis round.
	Previous *rondo.Round

	// Proposal is the payload under validation.
	Proposal *rondo.RoundProposal

	// ElectedMiners is the election collaborator's output, consulted only
	// for NextTerm proposals.
	ElectedMiners rondo.IdentifierList

	// Interval is the configured slot spacing.
	Interval time.Duration

	// IsTermBoundary is whether the base round is the last of its term.
	IsTermBoundary bool

	// Now is the evaluation time for authorization checks.
	Now time.Time
}

// Check is one stage of the pre-execution pipeline: a named pure function
// gated on the behaviours it applies to.
type Check struct {
	Name      string
	AppliesTo func(rondo.Behaviour) bool
	Run       func(*Context) error
}

func allBehaviours(rondo.Behaviour) bool { return true }

func transitionsOnly(b rondo.Behaviour) bool { return b.IsTransition() }

func sameRoundOnly(b rondo.Behaviour) bool {
	return b == rondo.BehaviourUpdateValue || b == rondo.BehaviourTinyBlock
}

// Pipeline returns the fixed, ordered list of pre-execution checks. The
// order is part of the contract: earlier checks establish the assumptions
// later ones rely on, and the first failure short-circuits the run.
func Pipeline() []Check {
	return []Check{
		{Name: "permission", AppliesTo: allBehaviours, Run: checkPermission},
		{Name: "timing_slot", AppliesTo: sameRoundOnly, Run: checkSlotTiming},
		{Name: "timing_transition", AppliesTo: transitionsOnly, Run: checkTransitionTiming},
		{Name: "round_structure", AppliesTo: allBehaviours, Run: checkRoundStructure},
		{Name: "order_uniqueness", AppliesTo: allBehaviours, Run: checkOrderUniqueness},
		{Name: "miner_set_continuity", AppliesTo: transitionsOnly, Run: checkMinerSetContinuity},
		{Name: "order_continuity", AppliesTo: transitionsOnly, Run: checkOrderContinuity},
		{Name: "irreversibility", AppliesTo: allBehaviours, Run: checkIrreversibility},
	}
}

// RunPipeline executes all applicable checks in order and returns the first
// failure, wrapped with the name of the failing stage.
func RunPipeline(ctx *Context) error {
	for _, check := range Pipeline() {
		if !check.AppliesTo(ctx.Proposal.Behaviour) {
			continue
		}
		err := check.Run(ctx)
		if err != nil {
			return fmt.Errorf("proposal failed %s check: %w", check.Name, err)
		}
	}
	return nil
}
