// Package dnsupdate pushes hashed RPZ trigger records into a live zone via
// RFC 2136 dynamic update, TSIG-authenticated. hashedrpzctl's core only
// derives hashed names and builds the resulting dns.RR values
// (internal/rpzpublish); this package is what actually ships them to an
// authoritative server for operators who want publish-on-hash rather than
// a zone file they reload out of band.
package dnsupdate

import (
	"fmt"
	"time"

	"github.com/miekg/dns"
)

// Client issues RFC 2136 updates against a single authoritative server.
type Client struct {
	server        string
	tsigName      string
	tsigSecret    string
	tsigAlgorithm string
	timeout       time.Duration
}

// NewClient creates an update client. tsigName and tsigSecret may both be
// empty to send unsigned updates, for servers authorizing by source
// address instead.
func NewClient(server, tsigName, tsigSecret, tsigAlgorithm string) *Client {
	return &Client{
		server:        server,
		tsigName:      tsigName,
		tsigSecret:    tsigSecret,
		tsigAlgorithm: tsigAlgorithm,
		timeout:       30 * time.Second,
	}
}

// SetTimeout overrides the default 30 second read/write timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.timeout = d
}

func (c *Client) send(msg *dns.Msg) (*dns.Msg, error) {
	client := &dns.Client{
		Net:          "tcp",
		ReadTimeout:  c.timeout,
		WriteTimeout: c.timeout,
	}

	if c.tsigName != "" && c.tsigSecret != "" {
		msg.SetTsig(c.tsigName, c.tsigAlgorithm, 300, time.Now().Unix())
	}

	response, _, err := client.Exchange(msg, c.server)
	if err != nil {
		return nil, fmt.Errorf("dns update failed: %w", err)
	}
	if response == nil {
		return nil, fmt.Errorf("no response from dns server")
	}
	if response.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("dns update failed with rcode: %s (%d)",
			dns.RcodeToString[response.Rcode], response.Rcode)
	}

	return response, nil
}

// PublishTrigger replaces whatever RRset currently exists at trigger's
// owner name with trigger itself. Replacing (rather than appending) keeps
// re-hashing the same name under an unchanged key idempotent: publishing
// twice leaves the zone in the same state as publishing once.
func (c *Client) PublishTrigger(zone string, trigger dns.RR) (*dns.Msg, error) {
	update := new(dns.Msg)
	update.SetUpdate(dns.Fqdn(zone))

	hdr := trigger.Header()
	update.RemoveRRset([]dns.RR{
		&dns.RR_Header{
			Name:   hdr.Name,
			Rrtype: hdr.Rrtype,
			Class:  dns.ClassANY,
		},
	})
	update.Insert([]dns.RR{trigger})

	return c.send(update)
}

// WithdrawTrigger removes whatever RRset exists at owner under zone,
// regardless of type. Used when a name rolls off a blocklist.
func (c *Client) WithdrawTrigger(zone, owner string) (*dns.Msg, error) {
	update := new(dns.Msg)
	update.SetUpdate(dns.Fqdn(zone))

	update.RemoveRRset([]dns.RR{
		&dns.RR_Header{
			Name:   dns.Fqdn(owner),
			Rrtype: dns.TypeANY,
			Class:  dns.ClassANY,
		},
	})

	return c.send(update)
}

// Query performs a plain lookup against the configured server, useful for
// doctor-style precondition checks before a publish run.
func (c *Client) Query(name string, rrType uint16) (*dns.Msg, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), rrType)
	msg.RecursionDesired = false

	client := &dns.Client{
		Net:         "udp",
		ReadTimeout: c.timeout,
	}

	response, _, err := client.Exchange(msg, c.server)
	if err != nil {
		return nil, fmt.Errorf("dns query failed: %w", err)
	}
	if response == nil {
		return nil, fmt.Errorf("no response from dns server")
	}
	if response.Rcode != dns.RcodeSuccess && response.Rcode != dns.RcodeNameError {
		return nil, fmt.Errorf("dns query failed with rcode: %s", dns.RcodeToString[response.Rcode])
	}

	return response, nil
}
