package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// ErrMissingAPIKey is returned when no credential is known for a provider.
var ErrMissingAPIKey = errors.New("api key not configured")

const apiKeySuffix = "_API_KEY"

// KeyRing maps completion provider ids to API keys. It is built once at
// startup so the pipeline never reads the process environment itself.
type KeyRing struct {
	keys map[string]string
}

// NewKeyRing copies keys, normalizing provider ids.
func NewKeyRing(keys map[string]string) *KeyRing {
	kr := &KeyRing{keys: make(map[string]string, len(keys))}
	for id, key := range keys {
		if key = strings.TrimSpace(key); key != "" {
			kr.keys[normalizeProviderID(id)] = key
		}
	}
	return kr
}

// KeyRingFromEnviron collects every NAME_API_KEY=value entry, e.g.
// DEEPSEEK_API_KEY becomes provider "deepseek".
func KeyRingFromEnviron(environ []string) *KeyRing {
	keys := make(map[string]string)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasSuffix(name, apiKeySuffix) {
			continue
		}
		id := strings.TrimSuffix(name, apiKeySuffix)
		if id == "" {
			continue
		}
		keys[id] = value
	}
	return NewKeyRing(keys)
}

// APIKey returns the key registered for providerID.
func (k *KeyRing) APIKey(providerID string) (string, error) {
	if k == nil {
		return "", fmt.Errorf("%w: %q", ErrMissingAPIKey, providerID)
	}
	key, ok := k.keys[normalizeProviderID(providerID)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMissingAPIKey, providerID)
	}
	return key, nil
}

// Providers lists the provider ids that have a key.
func (k *KeyRing) Providers() []string {
	if k == nil {
		return nil
	}
	ids := make([]string, 0, len(k.keys))
	for id := range k.keys {
		ids = append(ids, id)
	}
	return ids
}

// LoadDotEnv loads the given .env files into the process environment.
// Files that do not exist are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

func normalizeProviderID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	return strings.NewReplacer("-", "_", " ", "_", ".", "_").Replace(id)
}
