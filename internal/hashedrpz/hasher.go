// Package hashedrpz implements the HashedRPZ label-hashing core: it derives
// a hashed left-hand-side from a plaintext DNS name so that a blocklist
// operator can publish RPZ entries without revealing the names they block,
// while a resolver holding the same key can still perform ancestor lookups
// against intermediate hashed suffixes.
package hashedrpz

import "github.com/dlukt/hashedrpz/internal/digest"

// defaultCapacity is the output capacity assumed by Hash and
// HashWithWildcard. It stands in for the caller-allocated output buffer of
// the reference C API; 255 matches the DNS ownername limit the length
// guard is already budgeting against; a Go caller has no reason to want a
// larger one.
const defaultCapacity = 255

// Callback is invoked once per label emitted during a hash call — including
// the wildcard label, if any — in right-to-left order. subdomain is the
// plaintext cumulative suffix that produced hashedSoFar, the hashed output
// accumulated up to and including this label. It is a pure observer: it
// must not (and cannot, through this API) mutate hasher state.
type Callback func(subdomain, hashedSoFar string)

// Hasher derives HashedRPZ labels under a single secret key. It owns an
// exclusive digest state that is fully reset before and finalized within
// every label hash, so a Hasher is safe to reuse across any number of Hash
// / HashWithWildcard calls but is not itself safe for concurrent use from
// more than one goroutine — create one Hasher per goroutine that needs one
// (see internal/batch for the pattern).
type Hasher struct {
	key    []byte
	digest *digest.State
}

// New derives a Hasher from key. The key is retained for the lifetime of
// the Hasher because the digest primitive re-derives from it implicitly on
// every reset; it is immutable thereafter.
func New(key string) (*Hasher, error) {
	return &Hasher{
		key:    []byte(key),
		digest: digest.New(key),
	}, nil
}

// Reset is a documented no-op. The reference C header declares
// hrpz_reset but the reference source never defines it; the digest state
// is already fully re-initialized before every label hash (see
// internal/digest.State.Sum), so there is nothing left for an explicit
// reset to do. It exists to preserve the public surface the header implies.
func (h *Hasher) Reset() {}

// Close releases h. It zeroes the retained key copy and is idempotent and
// safe to call on a nil Hasher, matching hrpz_cleanup's contract.
func (h *Hasher) Close() error {
	if h == nil {
		return nil
	}
	for i := range h.key {
		h.key[i] = 0
	}
	h.key = nil
	return nil
}
