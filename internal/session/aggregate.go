package session

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Aggregate folds sessions into per-user totals. Sessions are folded in
// completed_at order so the display fields come from the latest session
// that carried them. Entries are ordered by total time, ties keep the
// order in which users first appeared.
func Aggregate(sessions []*Session) []Entry {
	ordered := make([]*Session, len(sessions))
	copy(ordered, sessions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CompletedAt.Before(ordered[j].CompletedAt)
	})

	index := map[uuid.UUID]int{}
	entries := []Entry{}

	for _, s := range ordered {
		i, ok := index[s.UserID]
		if !ok {
			i = len(entries)
			index[s.UserID] = i
			entries = append(entries, Entry{UserID: s.UserID})
		}

		e := &entries[i]
		e.TotalTime += s.Duration
		e.TotalSessions++
		if s.UserName != "" {
			e.UserName = s.UserName
		}
		if s.UserInitial != "" {
			e.UserInitial = s.UserInitial
		}
		if s.UserAvatarURL != "" {
			e.UserAvatarURL = s.UserAvatarURL
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalTime > entries[j].TotalTime
	})
	return entries
}

// PeriodStart returns the first instant counted by a period, in loc.
func PeriodStart(p Period, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)

	switch p {
	case PeriodToday:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc), nil
	case PeriodThisMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc), nil
	case PeriodLifetime:
		return time.Unix(0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unknown period %q", p)
	}
}
