package query

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/meridian-logistics/backoffice/internal/resources"
)

// cacheKey canonicalizes (resource, id, params) into the cache key. Two
// semantically equal parameter sets always map to the same key regardless of
// insertion order; anything less silently duplicates network calls.
func cacheKey(res resources.Resource, id string, params map[string]string) string {
	var b strings.Builder
	b.WriteString(res.String())
	b.WriteByte('|')
	b.WriteString(id)
	b.WriteByte('|')
	b.WriteString(resources.CanonicalQuery(params))
	return b.String()
}

// Digest compacts a cache key for log lines and task payloads.
func Digest(key string) string {
	sum := blake2b.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}
