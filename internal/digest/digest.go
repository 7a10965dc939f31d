// Package digest adapts a third-party keyed hash into the two primitives
// the HashedRPZ core needs: a re-initializable derive-key digest and a
// base32-hex-lowercase encoder.
package digest

import (
	"encoding/base32"
	"strings"

	"github.com/zeebo/blake3"
)

// hexLC is RFC 4648 §7's base32hex alphabet, lowercased and unpadded.
var hexLC = base32.HexEncoding.WithPadding(base32.NoPadding)

// Sizes a label's digest may take, selected by State.Size.
const (
	SizeSmall  = 4
	SizeMedium = 8
	SizeLarge  = 16
)

// State is a re-initializable keyed digest belonging exclusively to one
// caller. It is derived once from a secret key via BLAKE3's derive-key
// construction; each label hash resets it and feeds the label's cumulative
// suffix as the key material, per the BLAKE3 derive-key contract.
//
// Unlike the reference C implementation (which re-initializes the whole
// hasher from scratch for every label because the C BLAKE3 API has no
// reset operation), this holds a single *blake3.Hasher and calls Reset
// between labels. zeebo/blake3's Hasher keeps no state outside the struct
// itself, so distinct States never contend with each other and no
// process-wide lock is required (see DESIGN.md).
type State struct {
	h *blake3.Hasher
}

// New derives a fresh digest state from key.
func New(key string) *State {
	return &State{h: blake3.NewDeriveKey(key)}
}

// Size buckets a label's character length into a digest size, per the
// HashedRPZ length-proportional sizing rule: short labels get a small
// digest so the encoded output doesn't leak more of the input's length
// than a coarse bucket.
func Size(labelChars int) int {
	switch {
	case labelChars < 4:
		return SizeSmall
	case labelChars < 8:
		return SizeMedium
	default:
		return SizeLarge
	}
}

// Sum resets the state, hashes data as derive-key material, and returns an
// n-byte digest. n must be <= 16 (the widest bucket Size ever returns).
func (s *State) Sum(data []byte, n int) []byte {
	s.h.Reset()
	_, _ = s.h.Write(data)
	out := make([]byte, n)
	_, _ = s.h.Digest().Read(out)
	return out
}

// Encode returns the base32-hex-lowercase encoding of sum, matching
// RFC 4648 §7 with the padding stripped and the result lowercased.
func Encode(sum []byte) string {
	return strings.ToLower(hexLC.EncodeToString(sum))
}
