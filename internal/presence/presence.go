// Package presence decides at read time whether a stored record is still live.
// Nothing here is persisted: a record goes stale by the passage of time alone.
package presence

import "time"

const (
	ParticipantWindow = 30 * time.Second
	CursorWindow      = 5 * time.Second
)

// IsActive reports whether now - lastSeen < window. Equal is stale.
func IsActive(lastSeen, now time.Time, window time.Duration) bool {
	return now.Sub(lastSeen) < window
}

// Active returns the items whose lastSeen is inside the window, in input order.
func Active[T any](items []T, lastSeen func(T) time.Time, now time.Time, window time.Duration) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if IsActive(lastSeen(it), now, window) {
			out = append(out, it)
		}
	}
	return out
}

// Count is Active without the allocation.
func Count[T any](items []T, lastSeen func(T) time.Time, now time.Time, window time.Duration) int {
	n := 0
	for _, it := range items {
		if IsActive(lastSeen(it), now, window) {
			n++
		}
	}
	return n
}
