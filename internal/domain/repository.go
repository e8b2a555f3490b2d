package domain

import (
	"context"
	"time"
)

// SourceScanner discovers application candidates from one data source.
// Scanners never propagate internal failures to the caller: a scanner that
// cannot read its source returns an error which the cache counts and logs,
// contributing zero records for that source.
type SourceScanner interface {
	// Name returns a stable identifier for logs and stats bucketing.
	Name() string

	// Scan enumerates the source and returns candidate records.
	Scan(ctx context.Context) ([]AppRecord, error)
}

// AppIndex is the read side of the scan cache.
// Implementation: scanner.Cache (TTL + single-flight scan guard).
type AppIndex interface {
	// EnsureScanned returns once cached results are available, scanning
	// only if empty, forced, or past TTL.
	EnsureScanned(ctx context.Context, force bool) error

	// Apps returns a snapshot copy of the cached records.
	Apps(ctx context.Context, force bool) ([]AppRecord, error)

	// Find resolves a name to a record, exactly first and then by
	// substring containment when fuzzy is set.
	Find(ctx context.Context, name string, fuzzy bool) (*AppRecord, error)

	// Refresh re-scans unconditionally, ignoring TTL.
	Refresh(ctx context.Context) error

	// Stats returns the stats of the most recent completed scan.
	Stats() ScanStats

	// LastScan returns when the most recent scan completed, zero if never.
	LastScan() time.Time
}

// ProcessManager handles OS process operations.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// FindByExecutable returns PIDs of live processes whose executable
	// path or image name matches the given path.
	FindByExecutable(path string) ([]int, error)

	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool

	// Terminate asks a process to exit (SIGTERM or platform equivalent).
	Terminate(pid int) error

	// Usage returns cpu and memory percentages for a live PID.
	Usage(pid int) (cpu float64, mem float32, err error)
}

// LaunchStrategy starts a process in one OS-specific way. Strategies are
// probed in a fixed order: the first one that is available on this system
// and can handle the launch wins.
type LaunchStrategy interface {
	// Name tags the strategy in LaunchStatus.LaunchMethod.
	Name() string

	// Available reports whether this strategy can be used on this system.
	// This is a presence probe, not an attempt.
	Available() bool

	// CanHandle reports whether this strategy applies to the given spec.
	CanHandle(spec LaunchSpec) bool

	// Start spawns the process and returns its PID.
	Start(ctx context.Context, spec LaunchSpec) (pid int, err error)
}

// AppLauncher resolves, launches, tracks and terminates applications.
type AppLauncher interface {
	Launch(ctx context.Context, appName string, args []string, opts LaunchOptions) LaunchStatus
	Terminate(ctx context.Context, appName string) LaunchStatus
	RunningApps(ctx context.Context) []RunningAppInfo
	History(limit int) []HistoryEntry
	HistoryTotal() int
	Stats() LauncherStats
}

// HistoryStore persists launch audit records beyond process lifetime.
// Implementation: SQLite; optional - the in-memory capped history is
// authoritative for the history operation.
type HistoryStore interface {
	Append(ctx context.Context, entry HistoryEntry) error
	Recent(ctx context.Context, limit int) ([]HistoryEntry, error)
	Close() error
}
