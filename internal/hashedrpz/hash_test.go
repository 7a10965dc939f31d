package hashedrpz

import (
	"strings"
	"testing"
)

func mustHasher(t *testing.T, key string) *Hasher {
	t.Helper()
	h, err := New(key)
	if err != nil {
		t.Fatalf("New(%q): %v", key, err)
	}
	return h
}

func TestHashDeterministic(t *testing.T) {
	h := mustHasher(t, "testkey")
	a, err := h.Hash("www.example.com", "rpz.example.net", nil)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := h.Hash("www.example.com", "rpz.example.net", nil)
	if err != nil {
		t.Fatalf("Hash (second call): %v", err)
	}
	if a != b {
		t.Fatalf("Hash is not deterministic: %q != %q", a, b)
	}
}

func TestHashKeySeparation(t *testing.T) {
	h1 := mustHasher(t, "keyone")
	h2 := mustHasher(t, "keytwo")

	a, err := h1.Hash("www.example.com", "rpz.example.net", nil)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := h2.Hash("www.example.com", "rpz.example.net", nil)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if a == b {
		t.Fatalf("distinct keys produced the same hash: %q", a)
	}
}

func TestHashCumulativeSuffix(t *testing.T) {
	// Each label's digest covers its cumulative suffix, not the label in
	// isolation: labels over a shared suffix hash identically, and distinct
	// leaves over that suffix hash differently.
	h := mustHasher(t, "testkey")

	outA, err := h.Hash("www.example.com", "rpz.example.net", nil)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	outB, err := h.Hash("mail.example.com", "rpz.example.net", nil)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	labelsA := strings.Split(outA, ".")
	labelsB := strings.Split(outB, ".")
	if len(labelsA) < 2 || len(labelsB) < 2 {
		t.Fatalf("expected at least two labels, got %q and %q", outA, outB)
	}
	// "example.com" is a shared suffix under both inputs, so its hashed
	// labels must match; "www" and "mail" differ but share the same
	// remaining suffix, so they must differ from each other too.
	if labelsA[len(labelsA)-1] != labelsB[len(labelsB)-1] {
		t.Fatalf("shared tld suffix diverged: %q vs %q", labelsA, labelsB)
	}
	if labelsA[len(labelsA)-2] != labelsB[len(labelsB)-2] {
		t.Fatalf("shared 'example' suffix diverged: %q vs %q", labelsA, labelsB)
	}
	if labelsA[0] == labelsB[0] {
		t.Fatalf("distinct leaf labels under a shared suffix collided: %q", labelsA[0])
	}
}

func TestHashDigestSizeGrowsWithLabelLength(t *testing.T) {
	h := mustHasher(t, "testkey")

	var gotLens []int
	_, err := h.Hash("a.ab.abcdefgh.example.com", "rpz.example.net", func(subdomain, hashedSoFar string) {
		labels := strings.Split(hashedSoFar, ".")
		gotLens = append(gotLens, len(labels[0])) // the newest label is leftmost
	})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	// com (3 chars) -> 4-byte digest, example (7) -> 8, abcdefgh (8) -> 16,
	// ab and a -> 4; unpadded base32 widths 7, 13, 26, 7, 7.
	want := []int{7, 13, 26, 7, 7}
	if len(gotLens) != len(want) {
		t.Fatalf("got %d callbacks, want %d", len(gotLens), len(want))
	}
	for i := range want {
		if gotLens[i] != want[i] {
			t.Errorf("label %d encoded width = %d, want %d", i, gotLens[i], want[i])
		}
	}
}

func TestHashInvalidOrigin(t *testing.T) {
	h := mustHasher(t, "testkey")

	cases := []string{"", ".example.net"}
	for _, origin := range cases {
		if _, err := h.Hash("www.example.com", origin, nil); !isCode(err, CodeInvalidOriginDomain) {
			t.Errorf("origin %q: want CodeInvalidOriginDomain, got %v", origin, err)
		}
	}
}

func TestHashEmptyLabel(t *testing.T) {
	h := mustHasher(t, "testkey")
	if _, err := h.Hash("", "rpz.example.net", nil); !isCode(err, CodeEmptyLabel) {
		t.Fatalf("want CodeEmptyLabel, got %v", err)
	}
}

func TestHashEmptySublabel(t *testing.T) {
	h := mustHasher(t, "testkey")

	cases := []string{"www..example.com", ".www.example.com"}
	for _, lhs := range cases {
		if _, err := h.Hash(lhs, "rpz.example.net", nil); !isCode(err, CodeEmptySublabel) {
			t.Errorf("lhs %q: want CodeEmptySublabel, got %v", lhs, err)
		}
	}
}

func TestHashTrailingDotTolerated(t *testing.T) {
	h := mustHasher(t, "testkey")

	a, err := h.Hash("www.example.com", "rpz.example.net", nil)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := h.Hash("www.example.com.", "rpz.example.net", nil)
	if err != nil {
		t.Fatalf("Hash (trailing dot): %v", err)
	}
	if a != b {
		t.Fatalf("trailing dot changed output: %q != %q", a, b)
	}
}

func TestHashLiteralWildcardAtStart(t *testing.T) {
	h := mustHasher(t, "testkey")

	var calls int
	out, err := h.Hash("*.example.com", "rpz.example.net", func(subdomain, hashedSoFar string) {
		calls++
	})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(out, "*.") {
		t.Fatalf("expected wildcard prefix, got %q", out)
	}
	if calls != 3 {
		t.Fatalf("want 3 callbacks (com, example.com, then the literal leading wildcard), got %d", calls)
	}
}

func TestHashWildcardNotAtStart(t *testing.T) {
	h := mustHasher(t, "testkey")

	cases := []string{"www.*.example.com", "m*.example.net", "*.*.example.net"}
	for _, lhs := range cases {
		if _, err := h.Hash(lhs, "rpz.example.net", nil); !isCode(err, CodeWildcardNotAtStart) {
			t.Errorf("lhs %q: want CodeWildcardNotAtStart, got %v", lhs, err)
		}
	}
}

func TestHashWildcardNotAtStartCallbackCount(t *testing.T) {
	h := mustHasher(t, "testkey")

	var calls int
	_, err := h.Hash("*.*.example.net", "rpz.example.net", func(subdomain, hashedSoFar string) {
		calls++
	})
	if !isCode(err, CodeWildcardNotAtStart) {
		t.Fatalf("want CodeWildcardNotAtStart, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("want 2 callbacks before the wildcard failure, got %d", calls)
	}
}

func TestHashInvalidCapacity(t *testing.T) {
	h := mustHasher(t, "testkey")
	if _, err := h.run("www.example.com", "rpz.example.net", 4, nil); !isCode(err, CodeInvalidInputs) {
		t.Fatalf("want CodeInvalidInputs, got %v", err)
	}
}

func TestHashTooLongManyLabels(t *testing.T) {
	h := mustHasher(t, "testkey")

	// Right to left: 20 three-char labels (7 encoded chars each), then
	// four-char labels (13 each). The budget under rpz.example.net is 223;
	// 24 labels reach 215 and the 25th crosses it at 229.
	labels := make([]string, 27)
	for i := range labels {
		labels[i] = "lbl"
		if i < 7 {
			labels[i] = "lbls"
		}
	}
	lhs := strings.Join(labels, ".")

	var calls int
	_, err := h.Hash(lhs, "rpz.example.net", func(subdomain, hashedSoFar string) {
		calls++
	})
	if !isCode(err, CodeTooLong) {
		t.Fatalf("want CodeTooLong, got %v", err)
	}
	if calls != 24 {
		t.Fatalf("want exactly 24 callbacks before TOO_LONG, got %d", calls)
	}
}

// specKey is the key used throughout the source test corpus's known-answer
// vectors. Pinning these down exercises the full pipeline end to end,
// including that zeebo/blake3's NewDeriveKey produces byte-identical
// output to the reference derive-key construction — none of the other
// tests in this file would catch a drift there, since they only assert
// structural properties under an arbitrary key.
const specKey = "teststring: 0KjULoiv d2VFuNPc RVabpOq3 eN6bmK0Z 2gwjCgDf fU2HVN5A 1Bz08wW4 Uy0JTMX0"

func TestHashKnownAnswers(t *testing.T) {
	h := mustHasher(t, specKey)

	cases := []struct {
		lhs  string
		want string
	}{
		{"com", "8r4m02g"},
		{"org.", "8v95da8"},
		{"www.example.com", "qtr7pq8.slhf50h8dgst0.8r4m02g"},
	}
	for _, tt := range cases {
		got, err := h.Hash(tt.lhs, "rpz.example.net", nil)
		if err != nil {
			t.Errorf("Hash(%q): %v", tt.lhs, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Hash(%q) = %q, want %q", tt.lhs, got, tt.want)
		}
	}
}

func TestHashWithWildcardKnownAnswer(t *testing.T) {
	h := mustHasher(t, specKey)

	out, wasWildcarded, err := h.HashWithWildcard("*.example.net", "rpz.example.net", nil)
	if err != nil {
		t.Fatalf("HashWithWildcard: %v", err)
	}
	if wasWildcarded {
		t.Fatalf("a literal leading wildcard is not a salvage")
	}
	want := "*.kj8qsm2gn1o42.1qpnbgg"
	if out != want {
		t.Fatalf("HashWithWildcard(%q) = %q, want %q", "*.example.net", out, want)
	}
}

func isCode(err error, code Code) bool {
	e, ok := err.(*Error)
	return ok && e.Code() == code
}
