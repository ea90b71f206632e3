package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// PolicyConfig selects which collections the modifier-shape check applies to.
//
// Except names collections that are exempt. A non-empty Only restricts the
// check to the listed collections, making every other collection exempt.
// When both are set they are applied independently: a collection is exempt
// if either list makes it so.
type PolicyConfig struct {
	Only   []string `yaml:"only,omitempty" json:"only,omitempty"`
	Except []string `yaml:"except,omitempty" json:"except,omitempty"`
}

// DefaultConfig returns the empty policy: every collection is checked.
func DefaultConfig() *PolicyConfig {
	return &PolicyConfig{}
}

// Clone returns a copy that shares no slices with cfg.
func (cfg *PolicyConfig) Clone() *PolicyConfig {
	if cfg == nil {
		return DefaultConfig()
	}
	return &PolicyConfig{
		Only:   slices.Clone(cfg.Only),
		Except: slices.Clone(cfg.Except),
	}
}

// Exempt reports whether collection skips the modifier-shape check.
func (cfg *PolicyConfig) Exempt(collection string) bool {
	if cfg == nil {
		return false
	}
	if slices.Contains(cfg.Except, collection) {
		return true
	}
	return len(cfg.Only) > 0 && !slices.Contains(cfg.Only, collection)
}

// Validate returns human-readable warnings. It never rejects a config.
func (cfg *PolicyConfig) Validate() []string {
	if cfg == nil {
		return nil
	}
	var warnings []string
	if len(cfg.Only) > 0 && len(cfg.Except) > 0 {
		warnings = append(warnings, "both only and except are set; a collection is exempt if either list exempts it")
	}
	for _, name := range cfg.Only {
		if strings.TrimSpace(name) == "" {
			warnings = append(warnings, "only contains a blank collection name")
			break
		}
	}
	for _, name := range cfg.Except {
		if strings.TrimSpace(name) == "" {
			warnings = append(warnings, "except contains a blank collection name")
			break
		}
	}
	for _, name := range cfg.Except {
		if slices.Contains(cfg.Only, name) {
			warnings = append(warnings, fmt.Sprintf("collection %q is listed in both only and except; it is exempt", name))
		}
	}
	return warnings
}

// DefaultPath returns ~/.safeupdate/policy.yaml, or "" if there is no home dir.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".safeupdate", "policy.yaml")
}

// LoadConfig loads policy configuration from a YAML file.
// Empty path falls back to ~/.safeupdate/policy.yaml.
// Missing file returns defaults. Invalid YAML returns an error.
func LoadConfig(path string) (*PolicyConfig, error) {
	cfg, _, err := LoadConfigWithHash(path)
	return cfg, err
}

// LoadConfigWithHash loads policy configuration and returns its SHA-256 hash.
// The hash is computed over the raw YAML bytes on disk.
// When no file exists (defaults used), the hash is the SHA-256 of empty input.
func LoadConfigWithHash(path string) (*PolicyConfig, string, error) {
	if path == "" {
		path = DefaultPath()
	}

	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, "", fmt.Errorf("failed to read policy config: %w", err)
		}
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, "", err
	}
	return cfg, HashBytes(data), nil
}

// ParseConfig decodes YAML policy bytes. Empty input yields the default config.
func ParseConfig(data []byte) (*PolicyConfig, error) {
	cfg := DefaultConfig()
	if len(data) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse policy config: %w", err)
	}
	return cfg, nil
}

// HashBytes returns "sha256:<hex>" of data.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(h[:])
}

// DefaultConfigYAML returns a commented YAML template for init.
func DefaultConfigYAML() string {
	return `# safeupdate collection policy
# Generated by: safeupdate init
#
# Every update is checked in this order:
#   1. Empty selector -> rejected unless allowEmptySelector or upsert is set
#   2. Modifier without $-operators -> rejected unless replace is set
#      or the collection is exempt
#
# Exemption applies to check 2 only. The file is reloaded on change by
# "safeupdate serve"; a new file replaces the old policy entirely.

# Collections that skip the modifier check.
except: []

# When non-empty, only these collections get the modifier check.
only: []
`
}
