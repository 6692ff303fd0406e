// Package credentials selects account tokens from a configuration snapshot.
//
// Tokens are configured one per account under a common key prefix, for
// example DISCORD_TOKEN_7 and DISCORD_TOKEN_12. The package never reads the
// process environment itself; the entry point builds the snapshot once with
// [Environ] and passes it in.
package credentials

import (
	"sort"
	"strings"

	"github.com/jpalmerr/tokenwatch/internal/account"
)

// DefaultPrefix is the key prefix used when none is configured.
const DefaultPrefix = "DISCORD_TOKEN_"

// Read returns identifier → secret for every key in env that starts with
// prefix. The identifier is the key with the prefix removed. Keys equal to
// the bare prefix and blank values are ignored.
func Read(env map[string]string, prefix string) map[string]string {
	found := make(map[string]string)
	if prefix == "" {
		return found
	}

	for key, value := range env {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		id := strings.TrimPrefix(key, prefix)
		if id == "" {
			continue
		}
		secret := strings.TrimSpace(value)
		if secret == "" {
			continue
		}
		found[id] = secret
	}
	return found
}

// List is [Read] returning credentials sorted by identifier.
func List(env map[string]string, prefix string) []account.Credential {
	found := Read(env, prefix)

	ids := make([]string, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	creds := make([]account.Credential, len(ids))
	for i, id := range ids {
		creds[i] = account.Credential{Identifier: id, Secret: found[id]}
	}
	return creds
}

// Environ converts KEY=VALUE pairs (as returned by os.Environ) into a map.
// Later duplicates win. Entries without '=' are skipped.
func Environ(pairs []string) map[string]string {
	env := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}
