package fground

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/gordian-engine/gfinality/fg/fgconsensus"
)

// trackedVote is the first vote of one kind seen from one voter.
type trackedVote struct {
	target fgconsensus.Target
	sig    []byte
}

// voteTracker accumulates votes of a single kind (prevotes or precommits)
// from one voter set, detecting duplicates and equivocations.
//
// An equivocating voter's weight stops counting toward its named targets
// and instead counts toward every candidate,
// matching the protocol rule that equivocations support everything.
type voteTracker struct {
	voters *fgconsensus.VoterSet

	// Voters with any counted vote, equivocators included.
	cast *bitset.BitSet

	// Voters caught voting for two conflicting targets.
	equivocated *bitset.BitSet

	// First vote per voter index; retained as evidence
	// even after the voter equivocates.
	votes map[int]trackedVote

	castWeight        uint64
	equivocatedWeight uint64
}

func newVoteTracker(voters *fgconsensus.VoterSet) *voteTracker {
	n := uint(voters.Len())
	return &voteTracker{
		voters:      voters,
		cast:        bitset.New(n),
		equivocated: bitset.New(n),
		votes:       make(map[int]trackedVote),
	}
}

// addResult reports what addVote did with a single vote.
type addResult struct {
	// The voter had already cast this exact vote.
	duplicate bool

	// The vote conflicts with a previous one and the voter
	// was not flagged before; prev holds the first vote.
	newEquivocation bool
	prev            trackedVote
}

func (vt *voteTracker) addVote(idx int, target fgconsensus.Target, sig []byte) addResult {
	if vt.equivocated.Test(uint(idx)) {
		// Already flagged; nothing further to report for this voter.
		return addResult{}
	}

	if !vt.cast.Test(uint(idx)) {
		vt.cast.Set(uint(idx))
		vt.votes[idx] = trackedVote{target: target, sig: sig}
		vt.castWeight += vt.voters.ByIndex(idx).Weight
		return addResult{}
	}

	prev := vt.votes[idx]
	if prev.target == target {
		return addResult{duplicate: true}
	}

	vt.equivocated.Set(uint(idx))
	vt.equivocatedWeight += vt.voters.ByIndex(idx).Weight
	return addResult{newEquivocation: true, prev: prev}
}

// weightWhere returns the total weight of non-equivocating voters
// whose vote target satisfies pred.
func (vt *voteTracker) weightWhere(pred func(fgconsensus.Target) bool) uint64 {
	var w uint64
	for idx, v := range vt.votes {
		if vt.equivocated.Test(uint(idx)) {
			continue
		}
		if pred(v.target) {
			w += vt.voters.ByIndex(idx).Weight
		}
	}
	return w
}

// weightFor returns the tally weight counting toward candidate:
// non-equivocating votes on candidate or its descendants,
// plus all equivocated weight.
func (vt *voteTracker) weightFor(candidate fgconsensus.Target, chain Chain) uint64 {
	return vt.weightWhere(func(t fgconsensus.Target) bool {
		return chain.IsEqualOrDescendantOf(candidate.Hash, t.Hash)
	}) + vt.equivocatedWeight
}

// uncastWeight is the weight of voters that have not cast any vote
// of this kind yet.
func (vt *voteTracker) uncastWeight() uint64 {
	return vt.voters.TotalWeight() - vt.castWeight
}

// targets returns the distinct targets named by counted, non-equivocated votes.
func (vt *voteTracker) targets() map[fgconsensus.Target]struct{} {
	out := make(map[fgconsensus.Target]struct{}, len(vt.votes))
	for idx, v := range vt.votes {
		if vt.equivocated.Test(uint(idx)) {
			continue
		}
		out[v.target] = struct{}{}
	}
	return out
}

// each calls fn for every counted, non-equivocated vote.
func (vt *voteTracker) each(fn func(idx int, v trackedVote)) {
	for idx, v := range vt.votes {
		if vt.equivocated.Test(uint(idx)) {
			continue
		}
		fn(idx, v)
	}
}
