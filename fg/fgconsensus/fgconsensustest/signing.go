package fgconsensustest

import (
	"fmt"
	"io"

	"github.com/gordian-engine/gfinality/fg/fgconsensus"
)

// SimpleSignatureScheme is a [fgconsensus.SignatureScheme]
// with a human-readable signing content, for use in tests.
//
// It must not be used in production,
// as the content is neither versioned nor unambiguous
// against arbitrary block hashes.
type SimpleSignatureScheme struct{}

func (SimpleSignatureScheme) WritePrevoteSigningContent(
	w io.Writer, roundNumber uint64, target fgconsensus.Target,
) (int, error) {
	return fmt.Fprintf(w, "PREVOTE:%d:%d:%s", roundNumber, target.Number, target.Hash)
}

func (SimpleSignatureScheme) WritePrecommitSigningContent(
	w io.Writer, roundNumber uint64, target fgconsensus.Target,
) (int, error) {
	return fmt.Fprintf(w, "PRECOMMIT:%d:%d:%s", roundNumber, target.Number, target.Hash)
}
