package audit

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InMemoryStore holds the log in process memory, newest entries appended last.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryStore) matches(entry Entry, filter Filter) bool {
	if filter.Action != "" && entry.Action != filter.Action {
		return false
	}
	if filter.UserID != uuid.Nil && entry.UserID != filter.UserID {
		return false
	}
	if !filter.From.IsZero() && entry.Timestamp.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && entry.Timestamp.After(filter.To) {
		return false
	}
	return true
}

func (s *InMemoryStore) List(_ context.Context, filter Filter) ([]Entry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Entry
	// Walk backwards so results come out newest-first.
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.matches(s.entries[i], filter) {
			matched = append(matched, s.entries[i])
		}
	}

	total := len(matched)
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	start := (page - 1) * limit
	if start >= total {
		return []Entry{}, total, nil
	}
	end := min(start+limit, total)
	return matched[start:end], total, nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 100
	}
	var matched []Entry
	for i := len(s.entries) - 1; i >= 0 && len(matched) < limit; i-- {
		if s.entries[i].UserID == userID {
			matched = append(matched, s.entries[i])
		}
	}
	return matched, nil
}

func (s *InMemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byAction := make(map[Action]*ActionStat)
	users := make(map[uuid.UUID]struct{})
	for _, entry := range s.entries {
		users[entry.UserID] = struct{}{}
		stat, ok := byAction[entry.Action]
		if !ok {
			stat = &ActionStat{Action: entry.Action}
			byAction[entry.Action] = stat
		}
		stat.Count++
		if entry.Timestamp.After(stat.LastOccurred) {
			stat.LastOccurred = entry.Timestamp
		}
	}

	stats := Stats{
		TotalEntries:  len(s.entries),
		DistinctUsers: len(users),
		Actions:       make([]ActionStat, 0, len(byAction)),
	}
	for _, stat := range byAction {
		stats.Actions = append(stats.Actions, *stat)
	}
	sortActionStats(stats.Actions)
	return stats, nil
}
