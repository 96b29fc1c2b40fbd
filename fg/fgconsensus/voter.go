package fgconsensus

import (
	"fmt"

	"github.com/gordian-engine/gfinality/gfcrypto"
)

// Voter is a single weighted participant in a round.
type Voter struct {
	// ID uniquely identifies the voter within its voter set.
	// Vote messages carry the caster's ID.
	ID string

	PubKey gfcrypto.PubKey

	Weight uint64
}

// VoterSet is the fixed, ordered set of voters for a round.
// The order matters: the round's primary voter is chosen by
// rotating through the set by round number.
type VoterSet struct {
	voters []Voter
	byID   map[string]int

	totalWeight uint64
}

// NewVoterSet validates the given voters and returns the set.
// Voters must have unique IDs, non-nil public keys, and nonzero weight.
func NewVoterSet(voters []Voter) (*VoterSet, error) {
	if len(voters) == 0 {
		return nil, fmt.Errorf("voter set must not be empty")
	}

	vs := &VoterSet{
		voters: voters,
		byID:   make(map[string]int, len(voters)),
	}

	for i, v := range voters {
		if v.Weight == 0 {
			return nil, fmt.Errorf("voter %q has zero weight", v.ID)
		}
		if v.PubKey == nil {
			return nil, fmt.Errorf("voter %q has nil public key", v.ID)
		}
		if _, ok := vs.byID[v.ID]; ok {
			return nil, fmt.Errorf("duplicate voter ID %q", v.ID)
		}
		vs.byID[v.ID] = i
		vs.totalWeight += v.Weight
	}

	return vs, nil
}

func (vs *VoterSet) Len() int {
	return len(vs.voters)
}

func (vs *VoterSet) TotalWeight() uint64 {
	return vs.totalWeight
}

// Threshold is the supermajority weight required
// to consider a block having enough votes;
// see [ByzantineThreshold].
func (vs *VoterSet) Threshold() uint64 {
	return ByzantineThreshold(vs.totalWeight)
}

// ByID returns the voter with the given ID and its index in the set.
func (vs *VoterSet) ByID(id string) (v Voter, idx int, ok bool) {
	idx, ok = vs.byID[id]
	if !ok {
		return Voter{}, 0, false
	}
	return vs.voters[idx], idx, true
}

// ByIndex returns the voter at the given index.
// It panics if idx is out of range, like a slice access.
func (vs *VoterSet) ByIndex(idx int) Voter {
	return vs.voters[idx]
}

// Primary returns the designated primary voter for the given round number,
// rotating through the set.
func (vs *VoterSet) Primary(roundNumber uint64) Voter {
	return vs.voters[roundNumber%uint64(len(vs.voters))]
}

// ByzantineThreshold returns the minimum vote weight constituting
// a supermajority of totalWeight: with f = (totalWeight-1)/3
// the maximum tolerable faulty weight, the threshold is totalWeight - f.
func ByzantineThreshold(totalWeight uint64) uint64 {
	if totalWeight == 0 {
		return 0
	}
	return totalWeight - (totalWeight-1)/3
}
