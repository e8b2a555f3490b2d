package scanner

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/summerlab/appagent/internal/domain"
)

func noneExist(string) bool { return false }

func existsAll(string) bool { return true }

// TestAggregate_PathUniqueness verifies the first record for a path wins.
func TestAggregate_PathUniqueness(t *testing.T) {
	agg := NewAggregatorWithExists(0, existsAll)

	out := agg.Aggregate([]domain.AppRecord{
		{Name: "firefox", Path: "/usr/bin/firefox", Source: domain.SourceBinDirectory},
		{Name: "Firefox Web Browser", Path: "/usr/bin/firefox", Source: domain.SourceDesktopEntry},
	})

	require.Len(t, out, 1)
	assert.Equal(t, "firefox", out[0].Name)
	assert.Equal(t, domain.SourceBinDirectory, out[0].Source)
}

// TestAggregate_NameCollisionPriority verifies the higher-priority source
// wins a case-insensitive name collision.
func TestAggregate_NameCollisionPriority(t *testing.T) {
	agg := NewAggregatorWithExists(0, existsAll)

	out := agg.Aggregate([]domain.AppRecord{
		{Name: "Chrome", Path: `C:\apps\chrome-uninstall.exe`, Source: domain.SourceRegistryUninstall},
		{Name: "chrome", Path: `C:\apps\chrome.lnk.exe`, Source: domain.SourceShortcutStartMenu},
	})

	require.Len(t, out, 1)
	assert.Equal(t, domain.SourceShortcutStartMenu, out[0].Source)
	assert.Equal(t, `C:\apps\chrome.lnk.exe`, out[0].Path)
}

// TestAggregate_EqualPriorityKeepsFirst verifies ties keep the record seen
// first.
func TestAggregate_EqualPriorityKeepsFirst(t *testing.T) {
	agg := NewAggregatorWithExists(0, existsAll)

	out := agg.Aggregate([]domain.AppRecord{
		{Name: "editor", Path: "/a/editor", Source: domain.SourceShortcutDesktop},
		{Name: "editor", Path: "/b/editor", Source: domain.SourceShortcutStartMenu},
	})

	require.Len(t, out, 1)
	assert.Equal(t, "/a/editor", out[0].Path)
}

// TestAggregate_DropsMissingPaths verifies records whose path vanished are
// dropped.
func TestAggregate_DropsMissingPaths(t *testing.T) {
	agg := NewAggregatorWithExists(0, noneExist)

	out := agg.Aggregate([]domain.AppRecord{
		{Name: "ghost", Path: "/gone/ghost", Source: domain.SourceBinDirectory},
		{Name: "empty", Path: "", Source: domain.SourceBinDirectory},
	})

	assert.Empty(t, out)
}

// TestAggregate_SortedByDisplayName verifies case-insensitive output
// ordering.
func TestAggregate_SortedByDisplayName(t *testing.T) {
	agg := NewAggregatorWithExists(0, existsAll)

	out := agg.Aggregate([]domain.AppRecord{
		{Name: "zsh", Path: "/bin/zsh", Source: domain.SourceBinDirectory},
		{Name: "bash", DisplayName: "Bash", Path: "/bin/bash", Source: domain.SourceBinDirectory},
		{Name: "awk", Path: "/bin/awk", Source: domain.SourceBinDirectory},
	})

	require.Len(t, out, 3)
	assert.Equal(t, "awk", out[0].Name)
	assert.Equal(t, "bash", out[1].Name)
	assert.Equal(t, "zsh", out[2].Name)
}

// TestAggregate_CapsResultSet verifies hard truncation at maxApps.
func TestAggregate_CapsResultSet(t *testing.T) {
	agg := NewAggregatorWithExists(3, existsAll)

	var records []domain.AppRecord
	for i := 0; i < 10; i++ {
		records = append(records, domain.AppRecord{
			Name:   fmt.Sprintf("app%02d", i),
			Path:   fmt.Sprintf("/bin/app%02d", i),
			Source: domain.SourceBinDirectory,
		})
	}

	out := agg.Aggregate(records)
	assert.Len(t, out, 3)
}

// TestAggregate_Idempotent verifies re-aggregating the output is a no-op.
func TestAggregate_Idempotent(t *testing.T) {
	agg := NewAggregatorWithExists(0, existsAll)

	in := []domain.AppRecord{
		{Name: "b", Path: "/bin/b", Source: domain.SourceBinDirectory},
		{Name: "a", Path: "/bin/a", Source: domain.SourceDesktopEntry},
	}

	once := agg.Aggregate(in)
	twice := agg.Aggregate(once)
	assert.Equal(t, once, twice)
}

// TestAggregate_DefaultsDisplayName verifies normalization fills DisplayName.
func TestAggregate_DefaultsDisplayName(t *testing.T) {
	agg := NewAggregatorWithExists(0, existsAll)

	out := agg.Aggregate([]domain.AppRecord{
		{Name: "vim", Path: "/usr/bin/vim", Source: domain.SourceBinDirectory},
	})

	require.Len(t, out, 1)
	assert.Equal(t, "vim", out[0].DisplayName)
}
