package hashedrpz

import (
	"strings"

	"github.com/dlukt/hashedrpz/internal/digest"
)

// dnsOwnernameLimit is the DNS wire ownername limit (RFC 1035).
const dnsOwnernameLimit = 255

// maxLabelDigest is the widest digest a single label can ever produce
// (digest.SizeLarge), reserved out of the length budget alongside room for
// a leading "*." wildcard prefix.
const maxLabelDigest = 16

// Hash derives the hashed left-hand-side of lhs under h's key, bounded by
// the DNS ownername budget origin implies. lhs may end in a single
// trailing dot (fully-qualified input); it is stripped and ignored. origin
// is used only to compute the length budget — its content is never hashed.
//
// cb, if non-nil, is invoked once per emitted label (see Callback) in
// right-to-left order, for every label successfully emitted before any
// failure.
func (h *Hasher) Hash(lhs, origin string, cb Callback) (string, error) {
	out, err := h.run(lhs, origin, defaultCapacity, cb)
	if err != nil {
		return "", err
	}
	return out, nil
}

// run is Hash's implementation, parameterized by output capacity so tests
// can exercise CodeInvalidInputs without a real caller-side buffer. Unlike
// Hash, it returns the best-effort partial output alongside a CodeTooLong
// error, since HashWithWildcard needs that partial prefix to build its
// synthetic wildcard. For every other error the returned string is
// meaningless and must be discarded by the caller.
func (h *Hasher) run(lhs, origin string, capacity int, cb Callback) (string, error) {
	if capacity < 5 {
		return "", newError(CodeInvalidInputs)
	}
	if origin == "" || origin[0] == '.' {
		return "", newError(CodeInvalidOriginDomain)
	}

	n := len(lhs)
	if n == 0 {
		return "", newError(CodeEmptyLabel)
	}

	// end is the exclusive end of the input after stripping one trailing
	// dot (fully-qualified input is tolerated).
	end := n
	if lhs[end-1] == '.' {
		end--
		if end == 0 || lhs[end-1] == '.' {
			return "", newError(CodeEmptySublabel)
		}
	}

	// maxDomainLen reserves the widest possible label digest, the dot
	// before origin, and origin's own length out of the 255-byte budget.
	maxDomainLen := dnsOwnernameLimit - maxLabelDigest - 1 - len(origin)

	var committed []string // encoded labels, in right-to-left discovery order
	curLen := 0

	joinCommitted := func() string {
		if len(committed) == 0 {
			return ""
		}
		parts := make([]string, len(committed))
		for i, v := range committed {
			parts[len(committed)-1-i] = v
		}
		return strings.Join(parts, ".")
	}

	labelEnd := end
	lhsStart := end - 1

	for i := end - 1; ; i-- {
		c := lhs[i]
		if c != '.' {
			lhsStart = i
		}

		if c == '*' {
			// A wildcard must be at the very start of lhs and the sole
			// character in its label.
			if i != 0 || labelEnd != lhsStart+1 {
				return joinCommitted(), newError(CodeWildcardNotAtStart)
			}
			if curLen+2 > capacity {
				return joinCommitted(), newError(CodeTooLong)
			}
			final := "*." + joinCommitted()
			if cb != nil {
				cb(lhs[lhsStart:end], final)
			}
			return final, nil
		}

		if c != '.' && i != 0 {
			continue
		}

		// Hit a label separator or the start of lhs: hash this label's
		// cumulative suffix.
		if lhsStart >= labelEnd {
			return joinCommitted(), newError(CodeEmptySublabel)
		}

		labelChars := labelEnd - lhsStart
		size := digest.Size(labelChars)
		sum := h.digest.Sum([]byte(lhs[lhsStart:end]), size)
		enc := digest.Encode(sum)
		blen := len(enc)

		// The capacity check reserves the separating dot unconditionally,
		// even ahead of the first label where none will actually be
		// written, matching the reference's finalcur+blen+1>finallen guard.
		if curLen+blen+1 > capacity {
			return joinCommitted(), newError(CodeTooLong)
		}

		sep := 0
		if curLen != 0 {
			sep = 1
		}
		committed = append(committed, enc)
		curLen += blen + sep

		if curLen >= maxDomainLen {
			// Written to the buffer, but too long to publish: the
			// callback for this label is deliberately not invoked.
			return joinCommitted(), newError(CodeTooLong)
		}

		if cb != nil {
			cb(lhs[lhsStart:end], joinCommitted())
		}

		labelEnd = lhsStart - 1
		if i == 0 {
			if c == '.' {
				// A leading dot leaves an empty label at the start of lhs.
				return joinCommitted(), newError(CodeEmptySublabel)
			}
			break
		}
	}

	return joinCommitted(), nil
}
