package fgconsensus

// RoundState is a read-only snapshot of another round's progress.
//
// A round driver holds the previous round's RoundState
// to judge whether its own finalized estimate is already safe;
// it never mutates the snapshot.
type RoundState struct {
	// The round's current best-guess finalizable block, if any.
	Estimate *Target

	// The block the round has finalized, if any.
	Finalized *Target
}
