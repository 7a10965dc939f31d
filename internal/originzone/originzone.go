// Package originzone provides optional, CLI-only DNS-syntax validation for
// the origin domain and left-hand-side names fed into hashedrpz. The
// hashedrpz core never imports this package: its length and character
// rules are deliberately limited to what the hashing algorithm itself
// requires. This package exists for hashedrpzctl's --strict flag, for
// operators who want to reject garbage input before it's ever hashed.
package originzone

import (
	"fmt"
	"strings"

	"github.com/miekg/dns"
	"golang.org/x/net/idna"
)

const (
	maxDomainLength = 253 // RFC 1035, excluding the trailing root label
	maxLabelLength  = 63
)

// lookupProfile maps input to ASCII using the same strict lookup rules a
// resolver applies, rejecting malformed IDN input early rather than
// letting it reach the hasher as opaque bytes.
var lookupProfile = idna.New(
	idna.MapForLookup(),
	idna.StrictDomainName(true),
)

// ValidateOrigin checks that origin is a syntactically valid, fully
// qualified DNS zone name. It returns the ASCII (punycode) form with no
// trailing dot, which is what hashedrpz.Hasher.Hash expects for its
// length-budget computation.
func ValidateOrigin(origin string) (string, error) {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return "", fmt.Errorf("originzone: origin domain must not be empty")
	}

	ascii, err := lookupProfile.ToASCII(strings.ToLower(origin))
	if err != nil {
		return "", fmt.Errorf("originzone: invalid origin domain %q: %w", origin, err)
	}
	ascii = strings.TrimSuffix(ascii, ".")

	if _, ok := dns.IsDomainName(ascii); !ok {
		return "", fmt.Errorf("originzone: %q is not a valid domain name", origin)
	}
	if len(ascii)+1 > maxDomainLength {
		return "", fmt.Errorf("originzone: origin domain too long: %d > %d", len(ascii), maxDomainLength-1)
	}

	return ascii, nil
}

// ValidateLHS checks that lhs, the plaintext name to be hashed, is either
// a syntactically valid DNS name or a valid wildcard form ("*" or a name
// beginning with "*."). It does not check lhs against origin: the two are
// unrelated inputs to hashedrpz, unlike a zone-relative owner name.
func ValidateLHS(lhs string) error {
	lhs = strings.TrimSpace(lhs)
	if lhs == "" {
		return fmt.Errorf("originzone: left-hand-side must not be empty")
	}

	check := lhs
	if check == "*" {
		return nil
	}
	if strings.HasPrefix(check, "*.") {
		check = check[2:]
	}
	if check == "" {
		return fmt.Errorf("originzone: %q has no labels after the wildcard", lhs)
	}

	ascii, err := lookupProfile.ToASCII(strings.ToLower(check))
	if err != nil {
		return fmt.Errorf("originzone: invalid left-hand-side %q: %w", lhs, err)
	}

	for i, label := range dnsLabels(ascii) {
		if len(label) == 0 {
			return fmt.Errorf("originzone: empty label at position %d in %q", i, lhs)
		}
		if len(label) > maxLabelLength {
			return fmt.Errorf("originzone: label too long at position %d in %q", i, lhs)
		}
	}

	return nil
}

func dnsLabels(name string) []string {
	name = strings.TrimSuffix(name, ".")
	if name == "" {
		return nil
	}
	return strings.Split(name, ".")
}
