package fgconsensus

// Target is a reference to a single block: its hash and its height.
//
// The hash is a plain string, not a byte slice,
// so that Target is comparable and usable as a map key.
type Target struct {
	Hash   string
	Number uint64
}
