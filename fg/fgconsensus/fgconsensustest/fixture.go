package fgconsensustest

import (
	"context"
	"fmt"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/gordian-engine/gfinality/fg/fgconsensus"
	"github.com/gordian-engine/gfinality/gfcrypto"
	"github.com/gordian-engine/gfinality/gfcrypto/gfcryptotest"
)

// PrivVoter is the "private" view of a voter,
// so that tests have access to the signer backing the voter too.
type PrivVoter struct {
	// The plain consensus voter.
	Voter fgconsensus.Voter

	Signer gfcrypto.Signer
}

type PrivVoters []PrivVoter

func (vs PrivVoters) Voters() []fgconsensus.Voter {
	out := make([]fgconsensus.Voter, len(vs))
	for i, v := range vs {
		out[i] = v.Voter
	}
	return out
}

// DeterministicVoters returns n voters with deterministic ed25519 keys,
// each with weight 1.
//
// The IDs are petname-based for readable logs;
// the numeric suffix guarantees uniqueness
// regardless of the petname word lists in use.
func DeterministicVoters(n int) PrivVoters {
	signers := gfcryptotest.DeterministicEd25519Signers(n)

	out := make(PrivVoters, n)
	for i := range out {
		out[i] = PrivVoter{
			Voter: fgconsensus.Voter{
				ID:     fmt.Sprintf("%s-%d", petname.Generate(2, "-"), i),
				PubKey: signers[i].PubKey(),
				Weight: 1,
			},
			Signer: signers[i],
		}
	}
	return out
}

// Fixture is a shared test setup: a deterministic weighted voter set
// and a signature scheme, with helpers to produce correctly signed votes.
type Fixture struct {
	PrivVoters PrivVoters

	SignatureScheme fgconsensus.SignatureScheme
}

// NewFixture returns a Fixture with n deterministic voters
// and the [SimpleSignatureScheme].
func NewFixture(n int) *Fixture {
	return &Fixture{
		PrivVoters:      DeterministicVoters(n),
		SignatureScheme: SimpleSignatureScheme{},
	}
}

// VoterSet returns the fixture's voters as a validated set.
func (fx *Fixture) VoterSet() *fgconsensus.VoterSet {
	vs, err := fgconsensus.NewVoterSet(fx.PrivVoters.Voters())
	if err != nil {
		panic(fmt.Errorf("BUG: fixture voter set failed validation: %w", err))
	}
	return vs
}

// SignedPrevote returns a signed prevote from the voter at index i,
// naming target, in the given round.
func (fx *Fixture) SignedPrevote(
	ctx context.Context, i int, roundNumber uint64, target fgconsensus.Target,
) fgconsensus.SignedMessage {
	content, err := fgconsensus.PrevoteSignBytes(roundNumber, target, fx.SignatureScheme)
	if err != nil {
		panic(fmt.Errorf("BUG: failed to build prevote sign bytes: %w", err))
	}

	sig, err := fx.PrivVoters[i].Signer.Sign(ctx, content)
	if err != nil {
		panic(fmt.Errorf("BUG: failed to sign prevote: %w", err))
	}

	return fgconsensus.SignedMessage{
		Message:   fgconsensus.Prevote{TargetHash: target.Hash, TargetNumber: target.Number},
		Signature: sig,
		VoterID:   fx.PrivVoters[i].Voter.ID,
	}
}

// SignedPrecommit returns a signed precommit from the voter at index i,
// naming target, in the given round.
func (fx *Fixture) SignedPrecommit(
	ctx context.Context, i int, roundNumber uint64, target fgconsensus.Target,
) fgconsensus.SignedMessage {
	content, err := fgconsensus.PrecommitSignBytes(roundNumber, target, fx.SignatureScheme)
	if err != nil {
		panic(fmt.Errorf("BUG: failed to build precommit sign bytes: %w", err))
	}

	sig, err := fx.PrivVoters[i].Signer.Sign(ctx, content)
	if err != nil {
		panic(fmt.Errorf("BUG: failed to sign precommit: %w", err))
	}

	return fgconsensus.SignedMessage{
		Message:   fgconsensus.Precommit{TargetHash: target.Hash, TargetNumber: target.Number},
		Signature: sig,
		VoterID:   fx.PrivVoters[i].Voter.ID,
	}
}
