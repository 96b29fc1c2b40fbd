// Package fground implements the weighted vote ledger for a single
// finality round: signature-validating vote import, equivocation detection,
// and the derived prevote-GHOST, estimate, finalized, and completable state
// that the round driver consumes.
package fground

import (
	"fmt"

	"github.com/gordian-engine/gfinality/fg/fgconsensus"
)

// Chain answers ancestry queries about the block tree the round votes on.
// Implementations must be synchronous and side-effect-free.
type Chain interface {
	// IsEqualOrDescendantOf reports whether target is the base block
	// or one of its descendants.
	IsEqualOrDescendantOf(baseHash, targetHash string) bool
}

// RoundConfig holds the collaborators and parameters to start a [Round].
type RoundConfig struct {
	Number uint64

	// The lowest block votes in this round may target.
	Base fgconsensus.Target

	Voters *fgconsensus.VoterSet

	Chain Chain

	SignatureScheme fgconsensus.SignatureScheme
}

// Round is the vote ledger for one finality round.
//
// A Round is exclusively owned by its round driver
// and is not safe for concurrent use.
type Round struct {
	number uint64
	base   fgconsensus.Target

	voters *fgconsensus.VoterSet
	chain  Chain
	sigs   fgconsensus.SignatureScheme

	prevotes   *voteTracker
	precommits *voteTracker

	// All equivocation evidence produced by this round, both kinds.
	equivocations []fgconsensus.Equivocation
}

// NewRound returns a Round for the given configuration.
func NewRound(cfg RoundConfig) (*Round, error) {
	if cfg.Voters == nil {
		return nil, fmt.Errorf("round config must include a voter set")
	}
	if cfg.Chain == nil {
		return nil, fmt.Errorf("round config must include a chain")
	}
	if cfg.SignatureScheme == nil {
		return nil, fmt.Errorf("round config must include a signature scheme")
	}

	return &Round{
		number: cfg.Number,
		base:   cfg.Base,

		voters: cfg.Voters,
		chain:  cfg.Chain,
		sigs:   cfg.SignatureScheme,

		prevotes:   newVoteTracker(cfg.Voters),
		precommits: newVoteTracker(cfg.Voters),
	}, nil
}

func (r *Round) Number() uint64 {
	return r.number
}

func (r *Round) Base() fgconsensus.Target {
	return r.base
}

// PrimaryVoter returns the ID of the round's designated primary voter.
func (r *Round) PrimaryVoter() string {
	return r.voters.Primary(r.number).ID
}

// ImportPrevote validates and tallies a prevote.
// It returns equivocation evidence the first time the caster
// is caught prevoting two conflicting targets in this round.
// Unknown voters and invalid signatures are structural errors.
func (r *Round) ImportPrevote(
	pv fgconsensus.Prevote, voterID string, sig []byte,
) (*fgconsensus.Equivocation, error) {
	voter, idx, ok := r.voters.ByID(voterID)
	if !ok {
		return nil, fmt.Errorf("prevote from unknown voter %q", voterID)
	}

	content, err := fgconsensus.PrevoteSignBytes(r.number, pv.Target(), r.sigs)
	if err != nil {
		return nil, fmt.Errorf("failed to build prevote sign bytes: %w", err)
	}
	if !voter.PubKey.Verify(content, sig) {
		return nil, fmt.Errorf("invalid prevote signature from voter %q", voterID)
	}

	res := r.prevotes.addVote(idx, pv.Target(), sig)
	if !res.newEquivocation {
		return nil, nil
	}

	ev := fgconsensus.Equivocation{
		RoundNumber: r.number,
		VoterID:     voterID,

		First: fgconsensus.Prevote{
			TargetHash:   res.prev.target.Hash,
			TargetNumber: res.prev.target.Number,
		},
		FirstSig: res.prev.sig,

		Second:    pv,
		SecondSig: sig,
	}
	r.equivocations = append(r.equivocations, ev)
	return &ev, nil
}

// ImportPrecommit validates and tallies a precommit;
// it behaves like [Round.ImportPrevote] for the other vote kind.
func (r *Round) ImportPrecommit(
	pc fgconsensus.Precommit, voterID string, sig []byte,
) (*fgconsensus.Equivocation, error) {
	voter, idx, ok := r.voters.ByID(voterID)
	if !ok {
		return nil, fmt.Errorf("precommit from unknown voter %q", voterID)
	}

	content, err := fgconsensus.PrecommitSignBytes(r.number, pc.Target(), r.sigs)
	if err != nil {
		return nil, fmt.Errorf("failed to build precommit sign bytes: %w", err)
	}
	if !voter.PubKey.Verify(content, sig) {
		return nil, fmt.Errorf("invalid precommit signature from voter %q", voterID)
	}

	res := r.precommits.addVote(idx, pc.Target(), sig)
	if !res.newEquivocation {
		return nil, nil
	}

	ev := fgconsensus.Equivocation{
		RoundNumber: r.number,
		VoterID:     voterID,

		First: fgconsensus.Precommit{
			TargetHash:   res.prev.target.Hash,
			TargetNumber: res.prev.target.Number,
		},
		FirstSig: res.prev.sig,

		Second:    pc,
		SecondSig: sig,
	}
	r.equivocations = append(r.equivocations, ev)
	return &ev, nil
}

// Equivocations returns all equivocation evidence this round has produced,
// prevote and precommit kinds interleaved in detection order.
func (r *Round) Equivocations() []fgconsensus.Equivocation {
	return r.equivocations
}

// PrevoteGhost returns the highest block with supermajority prevote weight,
// the round's "ghost" block, if one exists yet.
func (r *Round) PrevoteGhost() (fgconsensus.Target, bool) {
	thr := r.voters.Threshold()

	var best fgconsensus.Target
	var found bool
	for c := range r.ghostCandidates() {
		if r.prevotes.weightFor(c, r.chain) < thr {
			continue
		}
		if !found || betterGhost(c, best) {
			best = c
			found = true
		}
	}
	return best, found
}

// betterGhost reports whether a should replace b as the ghost:
// larger number wins, with a deterministic hash tie-break
// for the equal-number case that only equivocations can produce.
func betterGhost(a, b fgconsensus.Target) bool {
	if a.Number != b.Number {
		return a.Number > b.Number
	}
	return a.Hash < b.Hash
}

// ghostCandidates is the base block plus every prevoted block
// on the base's chain.
func (r *Round) ghostCandidates() map[fgconsensus.Target]struct{} {
	out := r.prevotes.targets()
	for c := range out {
		if !r.chain.IsEqualOrDescendantOf(r.base.Hash, c.Hash) {
			delete(out, c)
		}
	}
	out[r.base] = struct{}{}
	return out
}

// estimateCandidates is every block at or below the ghost
// that any vote or the base names.
func (r *Round) estimateCandidates(ghost fgconsensus.Target) map[fgconsensus.Target]struct{} {
	out := make(map[fgconsensus.Target]struct{})
	out[r.base] = struct{}{}
	for c := range r.prevotes.targets() {
		out[c] = struct{}{}
	}
	for c := range r.precommits.targets() {
		out[c] = struct{}{}
	}

	for c := range out {
		// Keep only candidates on the chain between base and ghost.
		if !r.chain.IsEqualOrDescendantOf(r.base.Hash, c.Hash) ||
			!r.chain.IsEqualOrDescendantOf(c.Hash, ghost.Hash) {
			delete(out, c)
		}
	}
	out[r.base] = struct{}{}
	return out
}

// Finalized returns the highest block at or below the prevote ghost
// with supermajority precommit weight, if any.
func (r *Round) Finalized() (fgconsensus.Target, bool) {
	ghost, ok := r.PrevoteGhost()
	if !ok {
		return fgconsensus.Target{}, false
	}

	thr := r.voters.Threshold()

	var best fgconsensus.Target
	var found bool
	for c := range r.estimateCandidates(ghost) {
		if r.precommits.weightFor(c, r.chain) < thr {
			continue
		}
		if !found || betterGhost(c, best) {
			best = c
			found = true
		}
	}
	return best, found
}

// Estimate returns the highest block at or below the prevote ghost
// that could still reach supermajority precommit weight,
// counting voters who have not precommitted yet as available.
// There is no estimate until the prevote ghost exists.
func (r *Round) Estimate() (fgconsensus.Target, bool) {
	ghost, ok := r.PrevoteGhost()
	if !ok {
		return fgconsensus.Target{}, false
	}

	thr := r.voters.Threshold()
	uncast := r.precommits.uncastWeight()

	var best fgconsensus.Target
	var found bool
	for c := range r.estimateCandidates(ghost) {
		if r.precommits.weightFor(c, r.chain)+uncast < thr {
			continue
		}
		if !found || betterGhost(c, best) {
			best = c
			found = true
		}
	}
	return best, found
}

// Completable reports whether no further vote could change
// this round's estimate or finalized outcome:
// the estimate exists and either sits strictly below the prevote ghost,
// or no strict descendant of the ghost can still reach precommit threshold.
func (r *Round) Completable() bool {
	est, ok := r.Estimate()
	if !ok {
		return false
	}
	ghost, _ := r.PrevoteGhost()
	if est != ghost {
		return true
	}

	// Weight that could still land on some strict descendant of the ghost:
	// precommits already above the ghost, equivocators, and uncast voters.
	aboveGhost := r.precommits.weightWhere(func(t fgconsensus.Target) bool {
		return t.Hash != ghost.Hash && r.chain.IsEqualOrDescendantOf(ghost.Hash, t.Hash)
	})
	possible := aboveGhost + r.precommits.equivocatedWeight + r.precommits.uncastWeight()
	return possible < r.voters.Threshold()
}

// PrevoteTarget returns the block this node should prevote for,
// given the primary's block hint, if any.
//
// The hint wins only when it is viable (the base or a descendant of it)
// and not already subsumed by the prevote ghost;
// otherwise the ghost, falling back to the base.
func (r *Round) PrevoteTarget(primary *fgconsensus.Target) (fgconsensus.Target, bool) {
	ghost, haveGhost := r.PrevoteGhost()

	if primary != nil && r.chain.IsEqualOrDescendantOf(r.base.Hash, primary.Hash) {
		if haveGhost && r.chain.IsEqualOrDescendantOf(primary.Hash, ghost.Hash) {
			return ghost, true
		}
		return *primary, true
	}

	if haveGhost {
		return ghost, true
	}
	return r.base, true
}

// PrecommitTarget returns the block this node should precommit for:
// the prevote ghost, once it exists.
func (r *Round) PrecommitTarget() (fgconsensus.Target, bool) {
	return r.PrevoteGhost()
}

// FinalizingPrecommits returns the precommits justifying the round's
// finalized block: every counted precommit for that block or a descendant.
// It returns nil while nothing is finalized.
func (r *Round) FinalizingPrecommits() []fgconsensus.SignedPrecommit {
	fin, ok := r.Finalized()
	if !ok {
		return nil
	}

	var out []fgconsensus.SignedPrecommit
	r.precommits.each(func(idx int, v trackedVote) {
		if !r.chain.IsEqualOrDescendantOf(fin.Hash, v.target.Hash) {
			return
		}
		out = append(out, fgconsensus.SignedPrecommit{
			Precommit: fgconsensus.Precommit{
				TargetHash:   v.target.Hash,
				TargetNumber: v.target.Number,
			},
			Signature: v.sig,
			VoterID:   r.voters.ByIndex(idx).ID,
		})
	})
	return out
}

// RoundState returns this round's progress as a snapshot
// suitable for publishing to the next round's driver.
func (r *Round) RoundState() fgconsensus.RoundState {
	var rs fgconsensus.RoundState
	if est, ok := r.Estimate(); ok {
		rs.Estimate = &est
	}
	if fin, ok := r.Finalized(); ok {
		rs.Finalized = &fin
	}
	return rs
}
