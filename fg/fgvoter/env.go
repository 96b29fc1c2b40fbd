package fgvoter

import (
	"github.com/gordian-engine/gfinality/fg/fgconsensus"
)

// Environment supplies the chain and reporting hooks
// that a [VotingRound] cannot provide for itself.
// The driver only ever calls these methods from its own goroutine,
// so implementations do not need to be safe for concurrent use
// by a single round.
type Environment interface {
	// IsEqualOrDescendantOf reports whether the block with targetHash
	// is the block with baseHash or one of its descendants.
	// Both hashes are assumed to name known blocks;
	// an unknown target should simply report false.
	IsEqualOrDescendantOf(baseHash, targetHash string) bool

	// Proposed is called exactly when this driver sends
	// its primary block hint, before the hint is placed
	// on the outgoing message channel.
	// A returned error stops the round.
	Proposed(roundNumber uint64, pp fgconsensus.PrimaryPropose) error

	// ReportPrevoteEquivocation is called at most once per voter per round,
	// upon importing that voter's second distinct prevote.
	ReportPrevoteEquivocation(roundNumber uint64, ev fgconsensus.Equivocation)

	// ReportPrecommitEquivocation is the precommit counterpart
	// of ReportPrevoteEquivocation.
	ReportPrecommitEquivocation(roundNumber uint64, ev fgconsensus.Equivocation)
}

// Ledger is the vote-accounting contract the driver consumes.
// [github.com/gordian-engine/gfinality/fg/fground.Round] satisfies it.
//
// The driver is the only writer to its ledger while Run is in progress.
type Ledger interface {
	// Number returns the round number.
	Number() uint64

	// Base returns the round's base block.
	// Votes targeting blocks outside the base's subtree are ignored.
	Base() fgconsensus.Target

	// PrimaryVoter returns the ID of the round's designated primary.
	PrimaryVoter() string

	// ImportPrevote records a prevote from the given voter.
	// A non-nil equivocation is returned exactly once per voter,
	// on the vote that first proves the voter equivocated.
	// An error indicates a structurally invalid vote
	// (unknown voter or bad signature), not an equivocation.
	ImportPrevote(pv fgconsensus.Prevote, voterID string, sig []byte) (*fgconsensus.Equivocation, error)

	// ImportPrecommit is the precommit counterpart of ImportPrevote.
	ImportPrecommit(pc fgconsensus.Precommit, voterID string, sig []byte) (*fgconsensus.Equivocation, error)

	// Completable reports whether the round's estimate can no longer
	// move above the prevote ghost, regardless of remaining votes.
	Completable() bool

	// Finalized returns the best block finalized by this round's precommits,
	// if any block has gathered a finalizing supermajority yet.
	Finalized() (fgconsensus.Target, bool)

	// PrevoteTarget returns the block this node should prevote for,
	// preferring the primary block hint when it is still viable.
	// A false report means no safe target exists yet.
	PrevoteTarget(primary *fgconsensus.Target) (fgconsensus.Target, bool)

	// PrecommitTarget returns the block this node should precommit to,
	// if the prevotes justify one yet.
	PrecommitTarget() (fgconsensus.Target, bool)

	// FinalizingPrecommits returns the imported precommits
	// that justify the round's finalized block.
	// Only meaningful once Finalized reports true.
	FinalizingPrecommits() []fgconsensus.SignedPrecommit
}
