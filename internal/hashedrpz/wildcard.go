package hashedrpz

// HashWithWildcard behaves like Hash, except a CodeTooLong failure is
// salvaged: the labels hashed up to and including the one that crossed the
// length budget are kept (the budget's reserve leaves room for that label),
// and a synthetic "*." is prepended in place of the labels left unhashed.
// The returned bool reports whether that salvage happened — it is
// false both on a clean success and on any error other than CodeTooLong,
// including a literal leading "*" in lhs, which Hash already handles as an
// ordinary successful wildcard and never needs salvaging.
func (h *Hasher) HashWithWildcard(lhs, origin string, cb Callback) (string, bool, error) {
	out, err := h.run(lhs, origin, defaultCapacity, cb)
	if err == nil {
		return out, false, nil
	}
	if !IsTooLong(err) {
		return "", false, err
	}

	salvaged := "*." + out
	if out == "" {
		salvaged = "*"
	}
	return salvaged, true, nil
}
