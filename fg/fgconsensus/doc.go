// Package fgconsensus contains the core types for the finality gadget:
// vote messages and their signing scheme, weighted voter sets,
// block targets, commits, and equivocation evidence.
//
// The types here are deliberately plain;
// behavior lives in fground (vote accounting)
// and fgvoter (the round driver).
package fgconsensus
