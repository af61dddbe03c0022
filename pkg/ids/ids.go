// Package ids mints prefixed, time-ordered unique identifiers for the
// daemon's aggregates (runs, sessions, steps, turns, messages, tool calls,
// attachments).
package ids

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
	"time"
)

// Prefixes for each id domain. Callers should use these constants rather
// than raw strings so the vocabulary stays centralized.
const (
	PrefixRun        = "run"
	PrefixSession    = "sess"
	PrefixTurn       = "turn"
	PrefixMessage    = "msg"
	PrefixToolCall   = "call"
	PrefixStep       = "step"
	PrefixAttachment = "att"
)

// randomBytes is the number of random bytes appended to each id, giving
// well over 50 bits of entropy once base32-encoded.
const randomBytes = 10

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// New mints an id of the form "<prefix>_<ts>_<rand>". ts is a compacted
// UTC ISO-8601 timestamp with microsecond precision so ids minted within
// the same process sort lexicographically in creation order. rand is
// cryptographically random and lowercased.
func New(prefix string) string {
	return newAt(prefix, time.Now())
}

func newAt(prefix string, t time.Time) string {
	ts := t.UTC().Format("20060102T150405.000000")
	var buf [randomBytes]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing is a platform-level failure the rest of the
		// process cannot meaningfully recover from; fall back to a
		// timestamp-derived suffix rather than panicking.
		fallback := fmt.Sprintf("%x", t.UnixNano())
		return strings.ToLower(fmt.Sprintf("%s_%s_%s", prefix, ts, fallback))
	}
	suffix := strings.ToLower(encoding.EncodeToString(buf[:]))
	return fmt.Sprintf("%s_%s_%s", prefix, ts, suffix)
}

// HasPrefix reports whether id was minted with the given prefix.
func HasPrefix(id, prefix string) bool {
	return strings.HasPrefix(id, prefix+"_")
}
