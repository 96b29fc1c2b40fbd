// Package fgvoter contains the per-round voting driver:
// the state machine that sequences the primary block hint,
// the prevote, and the precommit for one finality round,
// while multiplexing incoming votes, phase timers,
// and state updates from the previous round.
//
// The driver owns no network or storage;
// those concerns arrive through the [Environment] and the channels
// in [RoundConfig], and vote accounting lives behind [Ledger].
package fgvoter
