package launcher

import (
	"sync"

	"github.com/summerlab/appagent/internal/domain"
)

// history keeps the bounded in-memory launch audit trail. When the entry
// count exceeds the cap it is trimmed in bulk down to trimTo, so trimming
// amortizes instead of shifting on every append.
type history struct {
	mu      sync.Mutex
	entries []domain.HistoryEntry
	cap     int
	trimTo  int
}

func newHistory(cap, trimTo int) *history {
	if cap <= 0 {
		cap = 100
	}
	if trimTo <= 0 || trimTo > cap {
		trimTo = cap / 2
	}
	return &history{cap: cap, trimTo: trimTo}
}

func (h *history) Append(e domain.HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
	if len(h.entries) > h.cap {
		trimmed := make([]domain.HistoryEntry, h.trimTo)
		copy(trimmed, h.entries[len(h.entries)-h.trimTo:])
		h.entries = trimmed
	}
}

// Recent returns up to limit entries, oldest first, newest last.
func (h *history) Recent(limit int) []domain.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.HistoryEntry, limit)
	copy(out, h.entries[n-limit:])
	return out
}

func (h *history) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

func (h *history) CountResult(r domain.LaunchResult) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	count := 0
	for _, e := range h.entries {
		if e.Result == r {
			count++
		}
	}
	return count
}
