package fground_test

import (
	"context"
	"testing"

	"github.com/gordian-engine/gfinality/fg/fgconsensus"
	"github.com/gordian-engine/gfinality/fg/fgconsensus/fgconsensustest"
	"github.com/gordian-engine/gfinality/fg/fground"
	"github.com/stretchr/testify/require"
)

// roundFixture bundles a 4-voter set (threshold 3) with a small block tree:
//
//	g <- a1 <- a2 <- a3
//	      \
//	       b2
type roundFixture struct {
	Fx    *fgconsensustest.Fixture
	Chain *fgconsensustest.Chain
	Round *fground.Round
}

func newRoundFixture(t *testing.T) *roundFixture {
	t.Helper()

	fx := fgconsensustest.NewFixture(4)

	chain := fgconsensustest.NewChain("g")
	chain.MustAddChain("g", "a1", "a2", "a3")
	chain.MustAddBlock("b2", "a1")

	r, err := fground.NewRound(fground.RoundConfig{
		Number:          1,
		Base:            chain.Target("g"),
		Voters:          fx.VoterSet(),
		Chain:           chain,
		SignatureScheme: fx.SignatureScheme,
	})
	require.NoError(t, err)

	return &roundFixture{Fx: fx, Chain: chain, Round: r}
}

func (rfx *roundFixture) importPrevote(
	t *testing.T, ctx context.Context, i int, blockHash string,
) *fgconsensus.Equivocation {
	t.Helper()

	sm := rfx.Fx.SignedPrevote(ctx, i, rfx.Round.Number(), rfx.Chain.Target(blockHash))
	ev, err := rfx.Round.ImportPrevote(sm.Message.(fgconsensus.Prevote), sm.VoterID, sm.Signature)
	require.NoError(t, err)
	return ev
}

func (rfx *roundFixture) importPrecommit(
	t *testing.T, ctx context.Context, i int, blockHash string,
) *fgconsensus.Equivocation {
	t.Helper()

	sm := rfx.Fx.SignedPrecommit(ctx, i, rfx.Round.Number(), rfx.Chain.Target(blockHash))
	ev, err := rfx.Round.ImportPrecommit(sm.Message.(fgconsensus.Precommit), sm.VoterID, sm.Signature)
	require.NoError(t, err)
	return ev
}

func TestNewRound_missingCollaborators(t *testing.T) {
	t.Parallel()

	fx := fgconsensustest.NewFixture(4)
	chain := fgconsensustest.NewChain("g")

	good := fground.RoundConfig{
		Number:          1,
		Base:            chain.Target("g"),
		Voters:          fx.VoterSet(),
		Chain:           chain,
		SignatureScheme: fx.SignatureScheme,
	}

	for name, mutate := range map[string]func(*fground.RoundConfig){
		"nil voters":           func(cfg *fground.RoundConfig) { cfg.Voters = nil },
		"nil chain":            func(cfg *fground.RoundConfig) { cfg.Chain = nil },
		"nil signature scheme": func(cfg *fground.RoundConfig) { cfg.SignatureScheme = nil },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := good
			mutate(&cfg)
			_, err := fground.NewRound(cfg)
			require.Error(t, err)
		})
	}
}

func TestRound_ImportPrevote_structuralErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rfx := newRoundFixture(t)

	sm := rfx.Fx.SignedPrevote(ctx, 0, rfx.Round.Number(), rfx.Chain.Target("a1"))
	pv := sm.Message.(fgconsensus.Prevote)

	t.Run("unknown voter", func(t *testing.T) {
		_, err := rfx.Round.ImportPrevote(pv, "nobody", sm.Signature)
		require.Error(t, err)
	})

	t.Run("signature from a different voter", func(t *testing.T) {
		other := rfx.Fx.SignedPrevote(ctx, 1, rfx.Round.Number(), rfx.Chain.Target("a1"))
		_, err := rfx.Round.ImportPrevote(pv, sm.VoterID, other.Signature)
		require.Error(t, err)
	})

	t.Run("signature over a different target", func(t *testing.T) {
		wrong := rfx.Fx.SignedPrevote(ctx, 0, rfx.Round.Number(), rfx.Chain.Target("a2"))
		_, err := rfx.Round.ImportPrevote(pv, sm.VoterID, wrong.Signature)
		require.Error(t, err)
	})

	// Structural errors must not count toward any tally.
	_, ok := rfx.Round.PrevoteGhost()
	require.False(t, ok)
}

func TestRound_PrevoteGhost(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("absent below threshold", func(t *testing.T) {
		t.Parallel()

		rfx := newRoundFixture(t)
		rfx.importPrevote(t, ctx, 0, "a2")
		rfx.importPrevote(t, ctx, 1, "a2")

		_, ok := rfx.Round.PrevoteGhost()
		require.False(t, ok)
	})

	t.Run("unanimous chain", func(t *testing.T) {
		t.Parallel()

		rfx := newRoundFixture(t)
		for i := 0; i < 3; i++ {
			rfx.importPrevote(t, ctx, i, "a2")
		}

		ghost, ok := rfx.Round.PrevoteGhost()
		require.True(t, ok)
		require.Equal(t, rfx.Chain.Target("a2"), ghost)
	})

	t.Run("descendant votes count toward ancestors", func(t *testing.T) {
		t.Parallel()

		// Two votes on a3 plus one on a2 put supermajority weight on a2
		// but leave a3 short, so the ghost is a2 despite the fork vote on b2.
		rfx := newRoundFixture(t)
		rfx.importPrevote(t, ctx, 0, "a3")
		rfx.importPrevote(t, ctx, 1, "a3")
		rfx.importPrevote(t, ctx, 2, "a2")
		rfx.importPrevote(t, ctx, 3, "b2")

		ghost, ok := rfx.Round.PrevoteGhost()
		require.True(t, ok)
		require.Equal(t, rfx.Chain.Target("a2"), ghost)
	})
}

func TestRound_equivocation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rfx := newRoundFixture(t)

	require.Nil(t, rfx.importPrevote(t, ctx, 0, "a2"))

	// An exact duplicate is absorbed silently.
	require.Nil(t, rfx.importPrevote(t, ctx, 0, "a2"))

	// The first conflicting vote yields evidence holding both votes.
	ev := rfx.importPrevote(t, ctx, 0, "b2")
	require.NotNil(t, ev)
	require.Equal(t, rfx.Round.Number(), ev.RoundNumber)
	require.Equal(t, rfx.Fx.PrivVoters[0].Voter.ID, ev.VoterID)
	require.Equal(t, rfx.Chain.Target("a2"), ev.First.Target())
	require.Equal(t, rfx.Chain.Target("b2"), ev.Second.Target())

	// Further conflicting votes from the same voter are absorbed silently.
	require.Nil(t, rfx.importPrevote(t, ctx, 0, "a3"))
	require.Len(t, rfx.Round.Equivocations(), 1)

	// The equivocator counts toward every candidate,
	// so two honest votes on a2 plus the equivocator reach the threshold.
	rfx.importPrevote(t, ctx, 1, "a2")
	rfx.importPrevote(t, ctx, 2, "a2")

	ghost, ok := rfx.Round.PrevoteGhost()
	require.True(t, ok)
	require.Equal(t, rfx.Chain.Target("a2"), ghost)
}

func TestRound_estimateFinalizedCompletable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("no estimate before prevote ghost", func(t *testing.T) {
		t.Parallel()

		rfx := newRoundFixture(t)
		_, ok := rfx.Round.Estimate()
		require.False(t, ok)
		require.False(t, rfx.Round.Completable())
	})

	t.Run("ghost without precommits", func(t *testing.T) {
		t.Parallel()

		rfx := newRoundFixture(t)
		for i := 0; i < 4; i++ {
			rfx.importPrevote(t, ctx, i, "a2")
		}

		// All precommit weight is still uncast,
		// so the estimate sits at the ghost and the round is not completable.
		est, ok := rfx.Round.Estimate()
		require.True(t, ok)
		require.Equal(t, rfx.Chain.Target("a2"), est)

		_, ok = rfx.Round.Finalized()
		require.False(t, ok)
		require.False(t, rfx.Round.Completable())
	})

	t.Run("supermajority precommits finalize the ghost", func(t *testing.T) {
		t.Parallel()

		rfx := newRoundFixture(t)
		for i := 0; i < 4; i++ {
			rfx.importPrevote(t, ctx, i, "a2")
		}
		for i := 0; i < 3; i++ {
			rfx.importPrecommit(t, ctx, i, "a2")
		}

		fin, ok := rfx.Round.Finalized()
		require.True(t, ok)
		require.Equal(t, rfx.Chain.Target("a2"), fin)

		est, ok := rfx.Round.Estimate()
		require.True(t, ok)
		require.Equal(t, rfx.Chain.Target("a2"), est)

		// One uncast voter cannot lift the estimate above the ghost.
		require.True(t, rfx.Round.Completable())

		pcs := rfx.Round.FinalizingPrecommits()
		require.Len(t, pcs, 3)
		for _, pc := range pcs {
			require.Equal(t, rfx.Chain.Target("a2"), pc.Precommit.Target())
		}
	})

	t.Run("estimate drops below ghost when precommits stay low", func(t *testing.T) {
		t.Parallel()

		rfx := newRoundFixture(t)
		for i := 0; i < 4; i++ {
			rfx.importPrevote(t, ctx, i, "a2")
		}
		for i := 0; i < 3; i++ {
			rfx.importPrecommit(t, ctx, i, "g")
		}
		rfx.importPrecommit(t, ctx, 3, "a2")

		// Only one precommit reaches a2 and no weight is left uncast,
		// so the estimate falls to the base, which is also finalized.
		est, ok := rfx.Round.Estimate()
		require.True(t, ok)
		require.Equal(t, rfx.Chain.Target("g"), est)

		fin, ok := rfx.Round.Finalized()
		require.True(t, ok)
		require.Equal(t, rfx.Chain.Target("g"), fin)

		// Estimate strictly below the ghost is always completable.
		require.True(t, rfx.Round.Completable())
	})
}

func TestRound_PrevoteTarget(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("base when nothing else is known", func(t *testing.T) {
		t.Parallel()

		rfx := newRoundFixture(t)
		target, ok := rfx.Round.PrevoteTarget(nil)
		require.True(t, ok)
		require.Equal(t, rfx.Chain.Target("g"), target)
	})

	t.Run("viable hint above the ghost wins", func(t *testing.T) {
		t.Parallel()

		rfx := newRoundFixture(t)
		hint := rfx.Chain.Target("a3")
		target, ok := rfx.Round.PrevoteTarget(&hint)
		require.True(t, ok)
		require.Equal(t, hint, target)
	})

	t.Run("hint subsumed by the ghost yields the ghost", func(t *testing.T) {
		t.Parallel()

		rfx := newRoundFixture(t)
		for i := 0; i < 3; i++ {
			rfx.importPrevote(t, ctx, i, "a2")
		}

		hint := rfx.Chain.Target("a1")
		target, ok := rfx.Round.PrevoteTarget(&hint)
		require.True(t, ok)
		require.Equal(t, rfx.Chain.Target("a2"), target)
	})

	t.Run("unviable hint ignored", func(t *testing.T) {
		t.Parallel()

		rfx := newRoundFixture(t)
		hint := fgconsensus.Target{Hash: "unknown", Number: 9}
		target, ok := rfx.Round.PrevoteTarget(&hint)
		require.True(t, ok)
		require.Equal(t, rfx.Chain.Target("g"), target)
	})
}

func TestRound_PrecommitTarget(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rfx := newRoundFixture(t)

	_, ok := rfx.Round.PrecommitTarget()
	require.False(t, ok)

	for i := 0; i < 3; i++ {
		rfx.importPrevote(t, ctx, i, "a2")
	}

	target, ok := rfx.Round.PrecommitTarget()
	require.True(t, ok)
	require.Equal(t, rfx.Chain.Target("a2"), target)
}

func TestRound_PrimaryVoter_rotates(t *testing.T) {
	t.Parallel()

	fx := fgconsensustest.NewFixture(4)
	chain := fgconsensustest.NewChain("g")

	for _, tc := range []struct {
		number uint64
		want   int
	}{
		{number: 0, want: 0},
		{number: 1, want: 1},
		{number: 5, want: 1},
	} {
		r, err := fground.NewRound(fground.RoundConfig{
			Number:          tc.number,
			Base:            chain.Target("g"),
			Voters:          fx.VoterSet(),
			Chain:           chain,
			SignatureScheme: fx.SignatureScheme,
		})
		require.NoError(t, err)
		require.Equal(t, fx.PrivVoters[tc.want].Voter.ID, r.PrimaryVoter())
	}
}
