package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewMessageID builds a message ID from the creation timestamp plus a short
// random suffix. The timestamp prefix keeps IDs ordered by creation time;
// the suffix makes two sends in the same millisecond distinct instead of
// overwriting each other.
func NewMessageID(now time.Time) string {
	return fmt.Sprintf("%013d-%s", now.UnixMilli(), uuid.NewString()[:8])
}

// ParseMessageTime recovers the creation timestamp from a message ID.
// Falls back to the zero time for IDs it does not recognize.
func ParseMessageTime(id string) time.Time {
	ms, _, found := strings.Cut(id, "-")
	if !found {
		ms = id
	}
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(n)
}
