// Package rpzpublish turns a hashed name into the resource records an RPZ
// zone actually serves. RPZ expresses policy through the RR type under the
// trigger owner name: CNAME "." for NXDOMAIN, CNAME "*." for NODATA, and a
// local CNAME target for a walled-garden redirect. See RFC 9375, which
// codifies the de facto RPZ action encoding this package builds.
package rpzpublish

import (
	"fmt"

	"github.com/miekg/dns"
)

// Action is one of the RPZ trigger actions this package can encode as a
// CNAME target.
type Action int

const (
	// ActionNXDOMAIN answers the trigger name with NXDOMAIN.
	ActionNXDOMAIN Action = iota
	// ActionNODATA answers the trigger name with NODATA.
	ActionNODATA
	// ActionPassthru exempts the trigger name from policy entirely.
	ActionPassthru
	// ActionRedirect answers the trigger name with an operator-chosen
	// CNAME target (a walled-garden page, typically).
	ActionRedirect
)

// targetFor returns the CNAME RDATA RFC 9375 assigns to action, or "" for
// ActionRedirect, whose target is caller-supplied.
func targetFor(action Action) string {
	switch action {
	case ActionNXDOMAIN:
		return "."
	case ActionNODATA:
		return "*."
	case ActionPassthru:
		return "rpz-passthru."
	default:
		return ""
	}
}

// BuildTrigger constructs the RPZ policy RR for a hashed owner name. owner
// must already be fully qualified with the RPZ origin (that is, the string
// returned by hashedrpz plus the dot-joined origin). ttl is copied into the
// RR as given; a zero TTL is not replaced by any default.
//
// target is only consulted for ActionRedirect; it is otherwise ignored.
func BuildTrigger(owner string, action Action, ttl uint32, target string) (dns.RR, error) {
	owner = dns.Fqdn(owner)

	cnameTarget := targetFor(action)
	if action == ActionRedirect {
		if target == "" {
			return nil, fmt.Errorf("rpzpublish: ActionRedirect requires a non-empty target")
		}
		cnameTarget = dns.Fqdn(target)
	}

	return &dns.CNAME{
		Hdr: dns.RR_Header{
			Name:   owner,
			Rrtype: dns.TypeCNAME,
			Class:  dns.ClassINET,
			Ttl:    ttl,
		},
		Target: cnameTarget,
	}, nil
}

// ParseAction maps a config/flag action name to its Action value. Names
// match RFC 9375's policy names, lowercase.
func ParseAction(name string) (Action, error) {
	switch name {
	case "nxdomain":
		return ActionNXDOMAIN, nil
	case "nodata":
		return ActionNODATA, nil
	case "passthru":
		return ActionPassthru, nil
	case "redirect":
		return ActionRedirect, nil
	default:
		return 0, fmt.Errorf("rpzpublish: unknown action %q", name)
	}
}

// BuildWildcardTrigger is BuildTrigger for an owner already carrying a
// "*." prefix, as produced by hashedrpz.Hasher.HashWithWildcard's salvage
// path. RPZ requires the wildcard label to sit directly under the trigger
// name it covers, which hashedrpz's output already guarantees; this helper
// exists only so callers don't have to special-case wildcard owners when
// wiring up a publish pipeline.
func BuildWildcardTrigger(hashedOwner, origin string, action Action, ttl uint32, target string) (dns.RR, error) {
	owner := hashedOwner + "." + origin
	return BuildTrigger(owner, action, ttl, target)
}
