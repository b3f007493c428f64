package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Fingerprint identifies an anonymous visitor: SHA-256 of ip|userAgent|source.
func Fingerprint(ip, userAgent, source string) string {
	return HashString(ip + "|" + userAgent + "|" + source)
}

// HashString returns the hex encoded SHA-256 of s.
func HashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// DayStart truncates t to midnight UTC. Per-day dedup keys use it.
func DayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
