package fgconsensus

// Equivocation is evidence that a single voter signed
// two conflicting votes of the same kind within one round.
//
// First and Second are both the same concrete message type,
// either [Prevote] or [Precommit].
type Equivocation struct {
	RoundNumber uint64
	VoterID     string

	First    Message
	FirstSig []byte

	Second    Message
	SecondSig []byte
}
