// Package config loads hashedrpzctl's YAML configuration file: the
// secret key, the RPZ origin, and the policy flags that govern how
// oversized or malformed names are handled.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents hashedrpzctl's configuration file.
type Config struct {
	Key     KeyConfig     `yaml:"key"`
	Origin  OriginConfig  `yaml:"origin"`
	Policy  PolicyConfig  `yaml:"policy"`
	Logging LoggingConfig `yaml:"logging"`
	Publish PublishConfig `yaml:"publish"`

	// Path to the config file itself, retained for error messages.
	configPath string
}

// KeyConfig selects the secret key a Hasher derives from. Exactly one of
// Value or File should be set; File takes precedence when both are.
type KeyConfig struct {
	Value string `yaml:"value"` // inline secret, for local testing only
	File  string `yaml:"file"`  // path to a file holding the secret

	// Loaded secret (not in YAML, populated by Load).
	Secret string `yaml:"-"`
}

// OriginConfig names the RPZ zone the hashed names will be published
// under. Its length directly shrinks the budget available to the hashed
// labels themselves.
type OriginConfig struct {
	Domain string `yaml:"domain"`
}

// PolicyConfig controls how hashedrpzctl handles names that don't fit
// cleanly, and how many workers batch operations use.
type PolicyConfig struct {
	AddWildcards  bool `yaml:"add_wildcards"`   // salvage TOO_LONG via HashWithWildcard
	IgnoreTooLong bool `yaml:"ignore_too_long"` // skip TOO_LONG names instead of failing the run
	Strict        bool `yaml:"strict"`          // validate DNS syntax before hashing
	Workers       int  `yaml:"workers"`         // batch hasher concurrency
}

// LoggingConfig contains audit logging settings.
type LoggingConfig struct {
	AuditJSONL string `yaml:"audit_jsonl"` // optional JSONL audit log path
}

// PublishConfig controls whether hashedrpzctl pushes each hashed trigger
// straight into a live RPZ zone via RFC 2136 dynamic update, instead of
// (or alongside) printing the hashed names to stdout.
type PublishConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Server        string `yaml:"server"`        // authoritative server, host:port
	Zone          string `yaml:"zone"`          // defaults to origin.domain when empty
	Action        string `yaml:"action"`        // nxdomain | nodata | passthru | redirect
	Target        string `yaml:"target"`        // CNAME target, required for action=redirect
	TTL           uint32 `yaml:"ttl"`           // trigger RR TTL
	TSIGName      string `yaml:"tsig_name"`     // optional TSIG key name
	TSIGSecret    string `yaml:"tsig_secret"`   // optional TSIG key secret
	TSIGAlgorithm string `yaml:"tsig_algorithm"` // e.g. hmac-sha256, defaults to it when a TSIG key is set
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Policy: PolicyConfig{
			AddWildcards:  false,
			IgnoreTooLong: false,
			Strict:        false,
			Workers:       4,
		},
	}
}

// Load loads the configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.configPath = path

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Key.File != "" {
		secret, err := os.ReadFile(cfg.Key.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read key file: %w", err)
		}
		cfg.Key.Secret = strings.TrimSpace(string(secret))
	} else {
		cfg.Key.Secret = cfg.Key.Value
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Key.Secret == "" {
		return fmt.Errorf("key.value or key.file is required")
	}
	if c.Origin.Domain == "" {
		return fmt.Errorf("origin.domain is required")
	}
	if c.Policy.Workers < 1 {
		return fmt.Errorf("policy.workers must be at least 1")
	}
	if c.Publish.Enabled {
		if c.Publish.Server == "" {
			return fmt.Errorf("publish.server is required when publish.enabled is set")
		}
		switch c.Publish.Action {
		case "nxdomain", "nodata", "passthru", "redirect":
		default:
			return fmt.Errorf("publish.action must be one of nxdomain, nodata, passthru, redirect")
		}
		if c.Publish.Action == "redirect" && c.Publish.Target == "" {
			return fmt.Errorf("publish.target is required when publish.action is redirect")
		}
		if c.Publish.Zone == "" {
			c.Publish.Zone = c.Origin.Domain
		}
		if c.Publish.TSIGName != "" && c.Publish.TSIGAlgorithm == "" {
			c.Publish.TSIGAlgorithm = "hmac-sha256."
		}
	}
	return nil
}
