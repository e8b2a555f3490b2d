package scanner

import (
	"os"
	"sort"
	"strings"

	"github.com/summerlab/appagent/internal/domain"
)

// Aggregator merges scanner outputs into a capped, sorted, deduplicated
// record set.
type Aggregator struct {
	maxApps int
	exists  func(path string) bool
}

// NewAggregator creates an aggregator capping results at maxApps.
func NewAggregator(maxApps int) *Aggregator {
	return &Aggregator{maxApps: maxApps, exists: regularFileExists}
}

// NewAggregatorWithExists creates an aggregator with a custom path-existence
// check (for testing).
func NewAggregatorWithExists(maxApps int, exists func(string) bool) *Aggregator {
	return &Aggregator{maxApps: maxApps, exists: exists}
}

// Aggregate deduplicates the concatenated scanner outputs:
//
//  1. drop records whose path is empty or no longer a regular file,
//  2. first-seen path wins, regardless of source,
//  3. case-insensitive name collisions keep the higher-priority source;
//     equal priority keeps the first-encountered record,
//  4. sort survivors by display name, case-insensitive,
//  5. hard-truncate the tail beyond maxApps.
func (a *Aggregator) Aggregate(records []domain.AppRecord) []domain.AppRecord {
	seenPaths := make(map[string]struct{}, len(records))
	byName := make(map[string]domain.AppRecord, len(records))
	order := make([]string, 0, len(records))

	for _, rec := range records {
		rec = rec.Normalized()

		if rec.Path == "" || !a.exists(rec.Path) {
			continue // Scanner raced with a filesystem change
		}
		if _, dup := seenPaths[rec.Path]; dup {
			continue
		}
		seenPaths[rec.Path] = struct{}{}

		key := strings.ToLower(rec.Name)
		existing, collision := byName[key]
		if !collision {
			byName[key] = rec
			order = append(order, key)
			continue
		}
		if rec.Source.Priority() > existing.Source.Priority() {
			byName[key] = rec
		}
	}

	result := make([]domain.AppRecord, 0, len(order))
	for _, key := range order {
		result = append(result, byName[key])
	}

	sort.SliceStable(result, func(i, j int) bool {
		return strings.ToLower(result[i].DisplayName) < strings.ToLower(result[j].DisplayName)
	})

	if a.maxApps > 0 && len(result) > a.maxApps {
		result = result[:a.maxApps]
	}
	return result
}

func regularFileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
