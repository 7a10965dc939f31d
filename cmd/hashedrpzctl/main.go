package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/miekg/dns"
	"github.com/spf13/cobra"

	"github.com/dlukt/hashedrpz/internal/audit"
	"github.com/dlukt/hashedrpz/internal/batch"
	"github.com/dlukt/hashedrpz/internal/config"
	"github.com/dlukt/hashedrpz/internal/dnsupdate"
	"github.com/dlukt/hashedrpz/internal/hashedrpz"
	"github.com/dlukt/hashedrpz/internal/originzone"
	"github.com/dlukt/hashedrpz/internal/rpzpublish"
)

var (
	cfgFile string
	verbose bool
	version = "dev"

	flagKey           string
	flagKeyFile       string
	flagOrigin        string
	flagAddWildcards  bool
	flagIgnoreTooLong bool
	flagStrict        bool
	flagWorkers       int

	flagPublish       bool
	flagPublishServer string
	flagPublishZone   string
	flagPublishAction string
	flagPublishTarget string
	flagPublishTTL    uint32
	flagTSIGName      string
	flagTSIGSecret    string
	flagTSIGAlgorithm string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hashedrpzctl",
		Short: "Hash DNS names for privacy-preserving RPZ publication",
		Long: `hashedrpzctl derives HashedRPZ labels from plaintext DNS names.

Each label of a name is hashed right-to-left under a shared secret key, so
a resolver that holds the same key can still walk ancestor suffixes for an
RPZ lookup, while a published zone reveals nothing about the names it
blocks to anyone without the key.`,
		Version: version,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (optional; flags override it)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(hashCmd())
	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolvedConfig merges an optional config file with command-line flags,
// with flags always taking precedence over the file.
func resolvedConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()

	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if flagKeyFile != "" {
		data, err := os.ReadFile(flagKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read key file: %w", err)
		}
		cfg.Key.Secret = trimNewline(data)
	}
	if flagKey != "" {
		cfg.Key.Secret = flagKey
	}
	if flagOrigin != "" {
		cfg.Origin.Domain = flagOrigin
	}
	if flagAddWildcards {
		cfg.Policy.AddWildcards = true
	}
	if flagIgnoreTooLong {
		cfg.Policy.IgnoreTooLong = true
	}
	if flagStrict {
		cfg.Policy.Strict = true
	}
	if flagWorkers > 0 {
		cfg.Policy.Workers = flagWorkers
	}

	if flagPublish {
		cfg.Publish.Enabled = true
	}
	if flagPublishServer != "" {
		cfg.Publish.Server = flagPublishServer
	}
	if flagPublishZone != "" {
		cfg.Publish.Zone = flagPublishZone
	}
	if flagPublishAction != "" {
		cfg.Publish.Action = flagPublishAction
	}
	if flagPublishTarget != "" {
		cfg.Publish.Target = flagPublishTarget
	}
	if flagPublishTTL > 0 {
		cfg.Publish.TTL = flagPublishTTL
	}
	if flagTSIGName != "" {
		cfg.Publish.TSIGName = flagTSIGName
	}
	if flagTSIGSecret != "" {
		cfg.Publish.TSIGSecret = flagTSIGSecret
	}
	if flagTSIGAlgorithm != "" {
		cfg.Publish.TSIGAlgorithm = flagTSIGAlgorithm
	}

	return cfg, cfg.Validate()
}

func trimNewline(b []byte) string {
	s := string(b)
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func hashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash [names...]",
		Short: "Hash one or more left-hand-side names",
		Long: `Hashes each name argument (or each line of stdin, if no names are given)
under the configured key and origin domain, printing the result as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolvedConfig()
			if err != nil {
				return err
			}

			logger := audit.NewLogger(os.Stderr, cfg.Logging.AuditJSONL)
			logger.SetVerbose(verbose)
			defer logger.Close()
			logger.WithOp("hash").WithOrigin(cfg.Origin.Domain)

			origin := cfg.Origin.Domain
			if cfg.Policy.Strict {
				ascii, err := originzone.ValidateOrigin(origin)
				if err != nil {
					res := audit.NewErrorResult("hash", logger.RequestID(), audit.ExitValidationError, "invalid origin domain", err.Error())
					if outErr := res.Output(); outErr != nil {
						logger.Error(outErr.Error())
					}
					os.Exit(audit.ExitValidationError)
				} else {
					origin = ascii
				}
			}

			names := args
			if len(names) == 0 {
				names, err = readStdinLines()
				if err != nil {
					return err
				}
			}

			reqs := make([]batch.Request, len(names))
			for i, name := range names {
				reqs[i] = batch.Request{Index: i, LHS: name}
			}

			results, err := batch.Run(context.Background(), cfg.Key.Secret, origin, cfg.Policy.Workers, reqs)
			if err != nil {
				res := audit.NewErrorResult("hash", logger.RequestID(), audit.ExitInternalError, "batch hashing failed", err.Error())
				if outErr := res.Output(); outErr != nil {
					logger.Error(outErr.Error())
				}
				os.Exit(audit.ExitInternalError)
			}

			result := audit.NewResult("hash", logger.RequestID(), cfg.Origin.Domain)
			tooLongCount := 0
			wildcardCount := 0

			var salvageHasher *hashedrpz.Hasher
			if cfg.Policy.AddWildcards {
				salvageHasher = mustHasherFor(cfg)
			}

			var updateClient *dnsupdate.Client
			var publishAction rpzpublish.Action
			if cfg.Publish.Enabled {
				publishAction, err = rpzpublish.ParseAction(cfg.Publish.Action)
				if err != nil {
					res := audit.NewErrorResult("hash", logger.RequestID(), audit.ExitValidationError, "invalid publish action", err.Error())
					if outErr := res.Output(); outErr != nil {
						logger.Error(outErr.Error())
					}
					os.Exit(audit.ExitValidationError)
				}
				updateClient = dnsupdate.NewClient(cfg.Publish.Server, cfg.Publish.TSIGName, cfg.Publish.TSIGSecret, cfg.Publish.TSIGAlgorithm)
			}

			publish := func(owner string, wildcard bool, plainOwner string) {
				var trigger dns.RR
				var berr error
				if wildcard {
					trigger, berr = rpzpublish.BuildWildcardTrigger(plainOwner, origin, publishAction, cfg.Publish.TTL, cfg.Publish.Target)
				} else {
					trigger, berr = rpzpublish.BuildTrigger(owner, publishAction, cfg.Publish.TTL, cfg.Publish.Target)
				}
				if berr != nil {
					result.AddWarning(fmt.Sprintf("%s: build trigger: %v", owner, berr))
					return
				}
				if _, perr := updateClient.PublishTrigger(cfg.Publish.Zone, trigger); perr != nil {
					result.AddWarning(fmt.Sprintf("%s: publish: %v", owner, perr))
					return
				}
				logger.Info(fmt.Sprintf("published trigger for %s", owner))
			}

			for _, r := range results {
				if cfg.Policy.Strict {
					if verr := originzone.ValidateLHS(r.LHS); verr != nil {
						result.AddWarning(fmt.Sprintf("%s: %v", r.LHS, verr))
						continue
					}
				}

				if r.Err != nil {
					if hashedrpz.IsTooLong(r.Err) {
						tooLongCount++
						if cfg.Policy.AddWildcards {
							hashed, _, werr := salvageHasher.HashWithWildcard(r.LHS, origin, nil)
							if werr == nil {
								wildcardCount++
								result.AddHashed(hashed + "." + origin)
								logger.WriteAuditLabel(audit.LabelEntry{Subdomain: r.LHS, HashedSoFar: hashed, WasWildcarded: true})
								if updateClient != nil {
									publish(hashed+"."+origin, true, hashed)
								}
								continue
							}
						}
						if cfg.Policy.IgnoreTooLong {
							result.AddWarning(fmt.Sprintf("%s: %v", r.LHS, r.Err))
							continue
						}
					}
					result.AddWarning(fmt.Sprintf("%s: %v", r.LHS, r.Err))
					continue
				}

				full := r.Hashed + "." + origin
				result.AddHashed(full)
				logger.WriteAuditLabel(audit.LabelEntry{Subdomain: r.LHS, HashedSoFar: r.Hashed, WasWildcarded: r.WasWildcarded})
				if updateClient != nil {
					publish(full, false, "")
				}
			}

			result.TooLongCount = tooLongCount
			result.WildcardCount = wildcardCount
			if err := result.Output(); err != nil {
				return err
			}
			if tooLongCount > 0 && !cfg.Policy.AddWildcards && !cfg.Policy.IgnoreTooLong {
				os.Exit(audit.ExitTooLongUnhandled)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagKey, "key", "", "secret key material")
	cmd.Flags().StringVar(&flagKeyFile, "key-file", "", "path to a file containing the secret key")
	cmd.Flags().StringVar(&flagOrigin, "origindomain", "", "RPZ origin domain names are published under")
	cmd.Flags().BoolVar(&flagAddWildcards, "addwildcards", false, "salvage over-length names as a wildcard prefix instead of failing")
	cmd.Flags().BoolVar(&flagIgnoreTooLong, "ignoretoolong", false, "skip over-length names instead of failing the run")
	cmd.Flags().BoolVar(&flagStrict, "strict", false, "validate DNS syntax before hashing")
	cmd.Flags().IntVar(&flagWorkers, "workers", 0, "number of concurrent hashing workers (0 = use config default)")

	cmd.Flags().BoolVar(&flagPublish, "publish", false, "push each hashed trigger into a live zone via RFC 2136 dynamic update")
	cmd.Flags().StringVar(&flagPublishServer, "publish-server", "", "authoritative server to send updates to, host:port")
	cmd.Flags().StringVar(&flagPublishZone, "publish-zone", "", "zone to update (defaults to the origin domain)")
	cmd.Flags().StringVar(&flagPublishAction, "publish-action", "", "RPZ action to encode: nxdomain, nodata, passthru, redirect")
	cmd.Flags().StringVar(&flagPublishTarget, "publish-target", "", "CNAME target, required when publish-action is redirect")
	cmd.Flags().Uint32Var(&flagPublishTTL, "publish-ttl", 0, "trigger RR TTL")
	cmd.Flags().StringVar(&flagTSIGName, "tsig-name", "", "TSIG key name for authenticated updates")
	cmd.Flags().StringVar(&flagTSIGSecret, "tsig-secret", "", "TSIG key secret for authenticated updates")
	cmd.Flags().StringVar(&flagTSIGAlgorithm, "tsig-algorithm", "", "TSIG algorithm (defaults to hmac-sha256 when a TSIG key is set)")

	return cmd
}

func mustHasherFor(cfg *config.Config) *hashedrpz.Hasher {
	h, _ := hashedrpz.New(cfg.Key.Secret)
	return h
}

func readStdinLines() ([]string, error) {
	scanner := bufio.NewScanner(os.Stdin)
	var lines []string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return lines, nil
}

func doctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that a config file and key are usable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolvedConfig()
			if err != nil {
				return err
			}

			logger := audit.NewLogger(os.Stderr, cfg.Logging.AuditJSONL)
			defer logger.Close()
			logger.WithOp("doctor")

			result := audit.NewResult("doctor", logger.RequestID(), cfg.Origin.Domain)

			if _, err := hashedrpz.New(cfg.Key.Secret); err != nil {
				result.AddWarning(fmt.Sprintf("key rejected: %v", err))
			}
			if cfg.Policy.Strict {
				if _, err := originzone.ValidateOrigin(cfg.Origin.Domain); err != nil {
					result.AddWarning(fmt.Sprintf("origin domain invalid under --strict: %v", err))
				}
			}
			if cfg.Publish.Enabled {
				if _, err := rpzpublish.ParseAction(cfg.Publish.Action); err != nil {
					result.AddWarning(err.Error())
				}
				client := dnsupdate.NewClient(cfg.Publish.Server, cfg.Publish.TSIGName, cfg.Publish.TSIGSecret, cfg.Publish.TSIGAlgorithm)
				if _, err := client.Query(cfg.Publish.Zone, dns.TypeSOA); err != nil {
					result.AddWarning(fmt.Sprintf("publish server unreachable: %v", err))
				}
			}

			return result.Output()
		},
	}
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hashedrpzctl version %s\n", version)
			fmt.Printf("digest: github.com/zeebo/blake3\n")
			fmt.Printf("dns: github.com/miekg/dns\n")
		},
	}
}
