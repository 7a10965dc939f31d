package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig() returned nil")
	}
	if cfg.Policy.Workers != 4 {
		t.Errorf("DefaultConfig().Policy.Workers = %d, want 4", cfg.Policy.Workers)
	}
	if cfg.Policy.AddWildcards {
		t.Error("DefaultConfig().Policy.AddWildcards = true, want false")
	}
	if cfg.Policy.Strict {
		t.Error("DefaultConfig().Policy.Strict = true, want false")
	}
}

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("inline key value", func(t *testing.T) {
		path := filepath.Join(tmpDir, "inline.yaml")
		contents := `
key:
  value: supersecretkey
origin:
  domain: rpz.example.net
policy:
  workers: 8
  add_wildcards: true
`
		if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Key.Secret != "supersecretkey" {
			t.Errorf("Key.Secret = %q, want %q", cfg.Key.Secret, "supersecretkey")
		}
		if cfg.Origin.Domain != "rpz.example.net" {
			t.Errorf("Origin.Domain = %q, want %q", cfg.Origin.Domain, "rpz.example.net")
		}
		if cfg.Policy.Workers != 8 {
			t.Errorf("Policy.Workers = %d, want 8", cfg.Policy.Workers)
		}
		if !cfg.Policy.AddWildcards {
			t.Error("Policy.AddWildcards = false, want true")
		}
	})

	t.Run("key loaded from file takes precedence", func(t *testing.T) {
		keyPath := filepath.Join(tmpDir, "secret.key")
		if err := os.WriteFile(keyPath, []byte("  from-file-secret  \n"), 0o600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}

		path := filepath.Join(tmpDir, "keyfile.yaml")
		contents := `
key:
  value: ignored
  file: ` + keyPath + `
origin:
  domain: rpz.example.net
`
		if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Key.Secret != "from-file-secret" {
			t.Errorf("Key.Secret = %q, want %q", cfg.Key.Secret, "from-file-secret")
		}
	})

	t.Run("missing key fails validation", func(t *testing.T) {
		path := filepath.Join(tmpDir, "missingkey.yaml")
		contents := `
origin:
  domain: rpz.example.net
`
		if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Error("Load() with no key succeeded, want error")
		}
	})

	t.Run("missing origin fails validation", func(t *testing.T) {
		path := filepath.Join(tmpDir, "missingorigin.yaml")
		contents := `
key:
  value: supersecretkey
`
		if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Error("Load() with no origin succeeded, want error")
		}
	})

	t.Run("nonexistent file", func(t *testing.T) {
		if _, err := Load(filepath.Join(tmpDir, "does-not-exist.yaml")); err == nil {
			t.Error("Load() of a missing file succeeded, want error")
		}
	})
}

func TestValidatePublishDefaultsZoneToOrigin(t *testing.T) {
	cfg := &Config{
		Key:     KeyConfig{Secret: "k"},
		Origin:  OriginConfig{Domain: "rpz.example.net"},
		Policy:  PolicyConfig{Workers: 1},
		Publish: PublishConfig{Enabled: true, Server: "127.0.0.1:53", Action: "nxdomain"},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Publish.Zone != "rpz.example.net" {
		t.Errorf("Publish.Zone = %q, want it defaulted to origin.domain", cfg.Publish.Zone)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name: "valid",
			cfg: &Config{
				Key:    KeyConfig{Secret: "k"},
				Origin: OriginConfig{Domain: "rpz.example.net"},
				Policy: PolicyConfig{Workers: 1},
			},
		},
		{
			name: "zero workers",
			cfg: &Config{
				Key:    KeyConfig{Secret: "k"},
				Origin: OriginConfig{Domain: "rpz.example.net"},
				Policy: PolicyConfig{Workers: 0},
			},
			wantErr: true,
		},
		{
			name: "publish enabled without server",
			cfg: &Config{
				Key:     KeyConfig{Secret: "k"},
				Origin:  OriginConfig{Domain: "rpz.example.net"},
				Policy:  PolicyConfig{Workers: 1},
				Publish: PublishConfig{Enabled: true, Action: "nxdomain"},
			},
			wantErr: true,
		},
		{
			name: "publish redirect without target",
			cfg: &Config{
				Key:     KeyConfig{Secret: "k"},
				Origin:  OriginConfig{Domain: "rpz.example.net"},
				Policy:  PolicyConfig{Workers: 1},
				Publish: PublishConfig{Enabled: true, Server: "127.0.0.1:53", Action: "redirect"},
			},
			wantErr: true,
		},
		{
			name: "publish enabled and valid",
			cfg: &Config{
				Key:     KeyConfig{Secret: "k"},
				Origin:  OriginConfig{Domain: "rpz.example.net"},
				Policy:  PolicyConfig{Workers: 1},
				Publish: PublishConfig{Enabled: true, Server: "127.0.0.1:53", Action: "nxdomain"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
