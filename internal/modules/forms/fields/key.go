package fields

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	nonKeyChars = regexp.MustCompile(`[^a-z0-9]+`)
	keyPattern  = regexp.MustCompile(`^[a-z0-9_]+$`)
)

// NormalizeKey turns a label or typed key into a canonical field key:
// lowercase, runs of other characters collapsed to "_", no "_" at either end.
func NormalizeKey(s string) string {
	key := nonKeyChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "_")
	return strings.Trim(key, "_")
}

// NormalizeKeyOr normalizes s and falls back to the normalized fallback when
// nothing is left.
func NormalizeKeyOr(s, fallback string) string {
	if key := NormalizeKey(s); key != "" {
		return key
	}
	return NormalizeKey(fallback)
}

// FallbackKey is the key given to the field at position i when it has none.
func FallbackKey(i int) string {
	return "field_" + strconv.Itoa(i+1)
}

// ValidKey reports whether key already has the canonical form.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}
