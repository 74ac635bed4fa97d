package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// KeyPrefix namespaces every LLM response entry.
const KeyPrefix = "llm_"

// Key derives the cache key for a (payload, kind) pair.
func Key(payload, kind string) string {
	sum := sha256.Sum256([]byte(payload))
	return KeyPrefix + kind + "_" + hex.EncodeToString(sum[:])
}
