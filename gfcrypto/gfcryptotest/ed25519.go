package gfcryptotest

import (
	"crypto/ed25519"
	"fmt"
	"sync"

	"github.com/gordian-engine/gfinality/gfcrypto"
	"golang.org/x/crypto/blake2b"
)

var (
	muSigners sync.Mutex

	generatedSigners []gfcrypto.Ed25519Signer
)

// DeterministicEd25519Signers returns a deterministic set of n signers.
//
// Deterministic keys are useful in tests for two reasons.
// First, subsequent runs of the same test use the same keys,
// so logs involving keys or voter IDs do not change across runs.
// Second, the generated keys are cached,
// so repeated calls cost effectively zero CPU time
// beyond the first call with the largest n.
func DeterministicEd25519Signers(n int) []gfcrypto.Ed25519Signer {
	muSigners.Lock()
	defer muSigners.Unlock()

	for i := len(generatedSigners); i < n; i++ {
		seed := blake2b.Sum256(fmt.Appendf(nil, "gfinality-ed25519-%d", i))
		priv := ed25519.NewKeyFromSeed(seed[:])
		generatedSigners = append(generatedSigners, gfcrypto.NewEd25519Signer(priv))
	}

	out := make([]gfcrypto.Ed25519Signer, n)
	copy(out, generatedSigners[:n])
	return out
}
