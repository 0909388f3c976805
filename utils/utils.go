package utils

import (
	"math/rand"
	"time"
)

const base36Chars = "0123456789abcdefghijklmnopqrstuvwxyz"

var seededRand = rand.New(rand.NewSource(time.Now().UnixNano()))

// RandomBase36 returns a random lowercase base36 string of length n.
func RandomBase36(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = base36Chars[seededRand.Intn(len(base36Chars))]
	}
	return string(b)
}

// NewMatchID creates a match identifier with a 6-char random suffix.
func NewMatchID() string {
	return "match-" + RandomBase36(6)
}

// NewSessionID creates a per-connection session identifier.
func NewSessionID() string {
	return RandomBase36(20)
}

// DerivePlayerMatchID combines a session id with a match id into the stable
// per-match player identity: the session id minus its last four characters
// plus the last three characters of the match id. Collisions between
// session ids sharing a prefix are treated as "already present" by the
// match, which returns the existing id.
func DerivePlayerMatchID(sessionID, matchID string) string {
	base := sessionID
	if len(base) > 4 {
		base = base[:len(base)-4]
	}
	suffix := matchID
	if len(suffix) > 3 {
		suffix = suffix[len(suffix)-3:]
	}
	return base + suffix
}

// Clamp restricts v to the closed interval [min, max].
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ClampInt restricts v to the closed interval [min, max].
func ClampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// NowMS is the current wallclock time in milliseconds. time.Now carries a
// monotonic reading, so differences between NowMS values are monotonic.
func NowMS() int64 {
	return time.Now().UnixMilli()
}
