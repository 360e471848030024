package utils

import "strings"

// NormalizeAddress lowercases and trims an SMTP address or holder string so
// comparisons are stable across directory sources.
func NormalizeAddress(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// HolderMatches reports whether a permission holder string refers to the
// target address. Holder strings may be domain-qualified (DOMAIN\user or
// user@domain forms), so this is a normalized containment test. Containment
// can over-match when one address is a prefix of another within a longer
// holder string; callers surface findings for review rather than treating a
// match as proof.
func HolderMatches(holder, target string) bool {
	h := NormalizeAddress(holder)
	t := NormalizeAddress(target)
	if h == "" || t == "" {
		return false
	}
	return strings.Contains(h, t)
}
