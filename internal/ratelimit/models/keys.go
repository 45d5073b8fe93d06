package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SanitizeKeySegment escapes delimiter characters in rate limit key segments
// so a crafted identifier containing ':' cannot address another bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// KeyID is a stable, non-reversible identifier for an API key. It is what
// appears in bucket keys, logs and audit events.
func KeyID(apiKey string) string {
	if apiKey == "" {
		return string(TierAnonymous)
	}
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:8])
}

// NewBucketKey returns the sliding-window key for an API key id.
func NewBucketKey(keyID string) string {
	return "rl:key:" + SanitizeKeySegment(keyID)
}

// AnonymousKeyID scopes the anonymous tier to one client address so callers
// without a key do not share a single allowance.
func AnonymousKeyID(clientIP string) string {
	if clientIP == "" || clientIP == "unknown" {
		return string(TierAnonymous)
	}
	return string(TierAnonymous) + "-" + SanitizeKeySegment(clientIP)
}
