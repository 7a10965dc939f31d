package hashedrpz

import "testing"

func TestNewThenHashIndependentOfReset(t *testing.T) {
	h := mustHasher(t, "testkey")
	h.Reset() // documented no-op; must not disturb anything

	out, err := h.Hash("www.example.com", "rpz.example.net", nil)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if out == "" {
		t.Fatalf("Hash returned empty output")
	}
}

func TestCloseIsIdempotentAndNilSafe(t *testing.T) {
	var nilHasher *Hasher
	if err := nilHasher.Close(); err != nil {
		t.Fatalf("Close on nil Hasher: %v", err)
	}

	h := mustHasher(t, "testkey")
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if h.key != nil {
		t.Fatalf("Close did not clear retained key")
	}
}
