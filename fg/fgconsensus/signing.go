package fgconsensus

import (
	"bytes"
	"fmt"
	"io"
)

// SignatureScheme defines the content that voters sign
// for each vote kind within a round.
//
// The round number is part of the signing content,
// so a signature from one round cannot be replayed into another.
type SignatureScheme interface {
	WritePrevoteSigningContent(w io.Writer, roundNumber uint64, target Target) (int, error)
	WritePrecommitSigningContent(w io.Writer, roundNumber uint64, target Target) (int, error)
}

// PrevoteSignBytes returns the sign bytes for a prevote naming target,
// in the given round, under the given scheme.
func PrevoteSignBytes(roundNumber uint64, target Target, s SignatureScheme) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.WritePrevoteSigningContent(&buf, roundNumber, target); err != nil {
		return nil, fmt.Errorf("failed to write prevote signing content: %w", err)
	}
	return buf.Bytes(), nil
}

// PrecommitSignBytes returns the sign bytes for a precommit naming target,
// in the given round, under the given scheme.
func PrecommitSignBytes(roundNumber uint64, target Target, s SignatureScheme) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.WritePrecommitSigningContent(&buf, roundNumber, target); err != nil {
		return nil, fmt.Errorf("failed to write precommit signing content: %w", err)
	}
	return buf.Bytes(), nil
}
