// Package gfcrypto provides the cryptographic abstractions
// the finality gadget relies upon.
package gfcrypto

import "context"

// PubKey is the interface for the public key types the finality gadget understands.
type PubKey interface {
	// PubKeyBytes is the raw serialized representation of this public key.
	PubKeyBytes() []byte

	// Equal reports whether other represents the same public key.
	Equal(other PubKey) bool

	// Verify reports whether sig is a valid signature of msg by this key.
	Verify(msg, sig []byte) bool
}

// Signer is the interface for producing signatures that the
// corresponding [PubKey] will accept.
//
// Sign takes a context because some signer implementations
// delegate to a remote service.
type Signer interface {
	PubKey() PubKey

	Sign(ctx context.Context, input []byte) ([]byte, error)
}
