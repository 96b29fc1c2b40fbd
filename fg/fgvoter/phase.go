package fgvoter

// Phase is the driver's position within a round's vote sequence.
//
// Phases are strictly ordered; a round never regresses to an earlier phase.
// [PhaseProposed] differs from [PhaseStart] only in that
// the primary block hint has been sent.
type Phase uint8

//go:generate go run golang.org/x/tools/cmd/stringer -type Phase -trimprefix=Phase .
const (
	// Zero value is an invalid phase,
	// so an unset phase cannot be mistaken for the start of a round.
	PhaseInvalid Phase = iota

	// Nothing cast yet; the primary block hint may still be sent.
	PhaseStart

	// The primary block hint has been sent; no prevote cast yet.
	PhaseProposed

	// The prevote decision has been made for this round.
	PhasePrevoted

	// The precommit decision has been made.
	// Terminal for voting; the driver keeps absorbing votes
	// until the round is safe to finish.
	PhasePrecommitted
)
