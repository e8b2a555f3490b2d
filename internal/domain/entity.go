// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// Source identifies where a discovered application record came from.
// It is a closed set; the value drives deduplication priority and nothing else.
type Source string

const (
	SourceRegistryAppPaths      Source = "registry_app_paths"
	SourceRegistryUninstall     Source = "registry_uninstall"
	SourceRegistryUserUninstall Source = "registry_user_uninstall"
	SourceDesktopEntry          Source = "desktop_entry"
	SourceApplicationsDir       Source = "applications_directory"
	SourceBinDirectory          Source = "bin_directory"
	SourceShortcutStartMenu     Source = "shortcut_start_menu"
	SourceShortcutDesktop       Source = "shortcut_desktop"
	SourceShortcutCommon        Source = "shortcut_common"
)

// sourcePriority ranks sources for name-collision resolution.
// Higher wins. Unknown sources rank 0.
var sourcePriority = map[Source]int{
	SourceDesktopEntry:          5,
	SourceApplicationsDir:       5,
	SourceShortcutStartMenu:     4,
	SourceShortcutDesktop:       4,
	SourceShortcutCommon:        4,
	SourceRegistryAppPaths:      3,
	SourceRegistryUninstall:     2,
	SourceRegistryUserUninstall: 1,
	SourceBinDirectory:          1,
}

// Priority returns the dedup ranking for this source.
func (s Source) Priority() int {
	return sourcePriority[s]
}

// AppRecord is a single discovered application candidate.
// Records are created fresh on every scan pass and never mutated afterwards;
// a later scan supersedes (not patches) the record for the same key.
type AppRecord struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Path        string `json:"path"`
	Source      Source `json:"source"`

	// ShortcutPath is set only for shortcut-sourced records. Launching via
	// such a record invokes the shortcut rather than the target directly.
	ShortcutPath string `json:"shortcut_path,omitempty"`

	// DesktopFile is set only for desktop-entry records and carries the
	// originating .desktop file so the launcher can go through gtk-launch.
	DesktopFile string `json:"desktop_file,omitempty"`

	// Best-effort descriptive metadata.
	Description     string    `json:"description,omitempty"`
	Icon            string    `json:"icon,omitempty"`
	InstallLocation string    `json:"install_location,omitempty"`
	Publisher       string    `json:"publisher,omitempty"`
	Version         string    `json:"version,omitempty"`
	LastModified    time.Time `json:"last_modified,omitempty"`
}

// Normalized returns a copy with DisplayName defaulted to Name.
func (r AppRecord) Normalized() AppRecord {
	if r.DisplayName == "" {
		r.DisplayName = r.Name
	}
	return r
}

// ScanStats summarizes a completed scan pass.
type ScanStats struct {
	TotalScanned      int     `json:"total_scanned"`
	RegistryCount     int     `json:"registry_count"`
	DesktopEntryCount int     `json:"desktop_entry_count"`
	BundleCount       int     `json:"bundle_count"`
	BinCount          int     `json:"bin_count"`
	ShortcutCount     int     `json:"shortcut_count"`
	ErrorCount        int     `json:"error_count"`
	ScanDuration      float64 `json:"scan_duration"` // seconds
}

// LaunchResult classifies the outcome of a launch or terminate attempt.
type LaunchResult string

const (
	LaunchSuccess             LaunchResult = "success"
	LaunchFailed              LaunchResult = "failed"
	LaunchAlreadyRunning      LaunchResult = "already_running"
	LaunchNotFound            LaunchResult = "not_found"
	LaunchAccessDenied        LaunchResult = "access_denied"
	LaunchInvalidPath         LaunchResult = "invalid_path"
	LaunchTimeout             LaunchResult = "timeout"
	LaunchUnsupportedPlatform LaunchResult = "unsupported_platform"
)

// LaunchStatus is the terminal outcome of a single launch attempt.
type LaunchStatus struct {
	Result       LaunchResult `json:"result"`
	Message      string       `json:"message"`
	AppName      string       `json:"app_name,omitempty"`
	ProcessID    int          `json:"process_id,omitempty"`
	StartTime    time.Time    `json:"start_time,omitempty"`
	ErrorDetails string       `json:"error_details,omitempty"`
	LaunchMethod string       `json:"launch_method,omitempty"`
}

// LaunchOptions are per-request overrides for a launch.
type LaunchOptions struct {
	WorkingDir string `json:"working_dir,omitempty"`
	Elevated   bool   `json:"elevated,omitempty"`
	Display    string `json:"display,omitempty"`
}

// RunningProcess tracks a process spawned by the launcher.
// Entries are inserted after a successful launch and evicted by the process
// monitor once the PID is observed dead, or on an explicit terminate.
type RunningProcess struct {
	PID       int       `json:"pid"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	StartTime time.Time `json:"start_time"`
}

// RunningAppInfo is the caller-facing view of a tracked process,
// enriched with live resource usage.
type RunningAppInfo struct {
	Name          string    `json:"name"`
	PID           int       `json:"pid"`
	Path          string    `json:"path"`
	StartTime     time.Time `json:"start_time"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float32   `json:"memory_percent"`
}

// HistoryEntry is one append-only launch audit record.
type HistoryEntry struct {
	Timestamp    time.Time    `json:"timestamp"`
	AppName      string       `json:"app_name"`
	AppPath      string       `json:"app_path"`
	Result       LaunchResult `json:"result"`
	ProcessID    int          `json:"process_id,omitempty"`
	Duration     float64      `json:"duration"` // seconds
	LaunchMethod string       `json:"launch_method,omitempty"`
	Platform     string       `json:"platform"`
}

// LauncherStats aggregates launcher activity for the stats operation.
type LauncherStats struct {
	TotalLaunches      int       `json:"total_launches"`
	SuccessfulLaunches int       `json:"successful_launches"`
	SuccessRate        float64   `json:"success_rate"`
	RunningProcesses   int       `json:"running_processes"`
	Platform           string    `json:"platform"`
	ScannerStats       ScanStats `json:"scanner_stats"`
}

// LaunchSpec is the fully resolved input handed to a launch strategy.
type LaunchSpec struct {
	Record     AppRecord
	Args       []string
	WorkingDir string
	Env        []string
	Elevated   bool
}
