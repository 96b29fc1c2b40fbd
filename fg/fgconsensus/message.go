package fgconsensus

// Message is the unsigned content of a single vote-protocol message:
// one of [Prevote], [Precommit], or [PrimaryPropose].
//
// The interface is closed; no implementations exist outside this package.
type Message interface {
	// Target returns the block the message names.
	Target() Target

	isMessage()
}

// Prevote is the first vote kind cast within a round.
type Prevote struct {
	TargetHash   string
	TargetNumber uint64
}

func (p Prevote) Target() Target {
	return Target{Hash: p.TargetHash, Number: p.TargetNumber}
}

func (Prevote) isMessage() {}

// Precommit is the second vote kind cast within a round.
type Precommit struct {
	TargetHash   string
	TargetNumber uint64
}

func (p Precommit) Target() Target {
	return Target{Hash: p.TargetHash, Number: p.TargetNumber}
}

func (Precommit) isMessage() {}

// PrimaryPropose is the block hint the round's primary voter
// may broadcast before prevoting begins.
// It is not a vote and carries no tally weight.
type PrimaryPropose struct {
	TargetHash   string
	TargetNumber uint64
}

func (p PrimaryPropose) Target() Target {
	return Target{Hash: p.TargetHash, Number: p.TargetNumber}
}

func (PrimaryPropose) isMessage() {}

// SignedMessage is a [Message] as it arrives from the network,
// together with the signature and the ID of the voter who cast it.
//
// The signature has not been validated when a SignedMessage is constructed;
// validation happens when the message is imported into the round ledger.
type SignedMessage struct {
	Message   Message
	Signature []byte
	VoterID   string
}
