package fgconsensus

// SignedPrecommit is a single validated precommit with its signature,
// as retained by the round ledger.
type SignedPrecommit struct {
	Precommit Precommit
	Signature []byte
	VoterID   string
}

// Commit is a finalized block target
// together with the set of precommits that justify finalizing it.
type Commit struct {
	Target Target

	Precommits []SignedPrecommit
}
