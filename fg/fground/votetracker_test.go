package fground

import (
	"testing"

	"github.com/gordian-engine/gfinality/fg/fgconsensus"
	"github.com/gordian-engine/gfinality/fg/fgconsensus/fgconsensustest"
	"github.com/stretchr/testify/require"
)

func TestVoteTracker_weightBookkeeping(t *testing.T) {
	t.Parallel()

	fx := fgconsensustest.NewFixture(4)
	vt := newVoteTracker(fx.VoterSet())

	a := fgconsensus.Target{Hash: "a", Number: 1}
	b := fgconsensus.Target{Hash: "b", Number: 1}

	require.Equal(t, uint64(4), vt.uncastWeight())

	res := vt.addVote(0, a, []byte("sig0"))
	require.False(t, res.duplicate)
	require.False(t, res.newEquivocation)
	require.Equal(t, uint64(3), vt.uncastWeight())

	res = vt.addVote(0, a, []byte("sig0"))
	require.True(t, res.duplicate)
	require.Equal(t, uint64(3), vt.uncastWeight())

	res = vt.addVote(0, b, []byte("sig0b"))
	require.True(t, res.newEquivocation)
	require.Equal(t, a, res.prev.target)
	require.Equal(t, []byte("sig0"), res.prev.sig)

	// The equivocator stays counted as having cast
	// but its vote no longer names any target.
	require.Equal(t, uint64(3), vt.uncastWeight())
	require.Equal(t, uint64(1), vt.equivocatedWeight)
	require.Empty(t, vt.targets())

	// Anything further from the flagged voter is absorbed without effect.
	res = vt.addVote(0, a, []byte("sig0"))
	require.False(t, res.duplicate)
	require.False(t, res.newEquivocation)
	require.Equal(t, uint64(1), vt.equivocatedWeight)
}

func TestVoteTracker_weightWhere_excludesEquivocators(t *testing.T) {
	t.Parallel()

	fx := fgconsensustest.NewFixture(4)
	vt := newVoteTracker(fx.VoterSet())

	a := fgconsensus.Target{Hash: "a", Number: 1}
	b := fgconsensus.Target{Hash: "b", Number: 1}

	vt.addVote(0, a, nil)
	vt.addVote(1, a, nil)
	vt.addVote(2, b, nil)
	vt.addVote(2, a, nil) // equivocates

	onA := vt.weightWhere(func(target fgconsensus.Target) bool {
		return target == a
	})
	require.Equal(t, uint64(2), onA)
}
