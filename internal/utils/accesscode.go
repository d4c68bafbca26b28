package utils

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"time"
)

// AccessCodeLength is the fixed length of every issued access code.
const AccessCodeLength = 8

// accessCodeAlphabet excludes visually ambiguous characters (0, 1, O, I)
// so codes survive being read over the phone or copied by hand.
const accessCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// accessCodePattern is the format pre-filter applied before any database
// lookup. It is deliberately wider than the generation alphabet: a
// well-formed code that was never issued resolves to NotFound, not to a
// format error.
var accessCodePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

// GenerateAccessCode returns one candidate access code sampled uniformly
// from the restricted alphabet. Uniqueness against stored codes is the
// caller's responsibility.
func GenerateAccessCode() (string, error) {
	buf := make([]byte, AccessCodeLength)
	max := big.NewInt(int64(len(accessCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = accessCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// IsValidAccessCode reports whether code has the shape of an issued code.
func IsValidAccessCode(code string) bool {
	return accessCodePattern.MatchString(code)
}

// CalculateExpirationDate returns the retention deadline for content
// created at date: exactly 3 calendar months later, with month and year
// rollover normalized (e.g. 2025-11-15 expires 2026-02-15).
func CalculateExpirationDate(date time.Time) time.Time {
	return date.AddDate(0, 3, 0)
}

// IsExpired reports whether the deadline has passed at the given instant.
func IsExpired(expiresAt, now time.Time) bool {
	return expiresAt.Before(now)
}
