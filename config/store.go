package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/safedep/dry/log"
)

// Credential is one record in the credential store.
type Credential struct {
	Level   string `json:"level"`
	Trusted bool   `json:"trusted"`
}

// Credentials maps a principal name to its credential record.
type Credentials map[string]Credential

// DefaultPrincipalName is the fallback entry consulted for callers that
// have no identity bound in the session environment.
const DefaultPrincipalName = "default_user"

// DefaultCredentials is the store seeded by `blpfs init`.
func DefaultCredentials() Credentials {
	return Credentials{
		DefaultPrincipalName: {Level: "UNCLASSIFIED", Trusted: false},
		"root":               {Level: "TOP_SECRET", Trusted: true},
	}
}

// LoadStore reads the credential store. A missing store is not an
// error: it yields an empty store, which resolves every principal to
// the anonymous fallback.
//
// The store is intentionally re-read on every call. The mediator's
// freshness guarantee (credential changes apply to the very next
// operation) depends on no caching happening here.
func LoadStore(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debugf("credential store %s does not exist, using empty store", path)
			return Credentials{}, nil
		}
		return nil, fmt.Errorf("failed to read credential store %s: %w", path, err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credential store %s: %w", path, err)
	}

	return creds, nil
}

// SaveStore writes the credential store as indented JSON so operators
// can hand-edit it.
func SaveStore(path string, creds Credentials) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create credential store directory %s: %w", dir, err)
		}
	}

	data, err := json.MarshalIndent(creds, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal credential store: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write credential store %s: %w", path, err)
	}

	return nil
}
