// Package platform detects the OS family and exposes the directory sets and
// executable-validity rules the source scanners depend on. Detection happens
// once at startup; nothing here is re-checked per call.
package platform

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Family is the coarse OS classification driving scanner composition.
type Family string

const (
	FamilyWindows Family = "windows"
	FamilyLinux   Family = "linux"
	FamilyDarwin  Family = "darwin"
	FamilyUnknown Family = "unknown"
)

// Platform holds the per-OS hints resolved at startup.
type Platform struct {
	Family Family

	// DesktopEntryDirs are scanned for .desktop files (Linux).
	DesktopEntryDirs []string

	// BinDirs are scanned for execute-permitted regular files (Unix).
	BinDirs []string

	// BundleDirs are scanned for .app bundles (macOS).
	BundleDirs []string

	// StartMenuDirs, DesktopDirs and CommonShortcutDirs are scanned for
	// .lnk shortcut files (Windows).
	StartMenuDirs      []string
	DesktopDirs        []string
	CommonShortcutDirs []string

	// ExecutableExts are the extensions accepted as executables. Empty on
	// Unix, where the execute permission bit decides instead.
	ExecutableExts []string
}

// Detect builds the Platform for the current OS.
func Detect() *Platform {
	return detectFor(runtime.GOOS, os.Getenv, os.UserHomeDir)
}

// detectFor is the testable core of Detect.
func detectFor(goos string, getenv func(string) string, homeDir func() (string, error)) *Platform {
	home, _ := homeDir()

	switch goos {
	case "windows":
		programData := getenv("PROGRAMDATA")
		if programData == "" {
			programData = `C:\ProgramData`
		}
		appData := getenv("APPDATA")
		public := getenv("PUBLIC")
		if public == "" {
			public = `C:\Users\Public`
		}
		return &Platform{
			Family: FamilyWindows,
			StartMenuDirs: []string{
				filepath.Join(programData, `Microsoft\Windows\Start Menu\Programs`),
				filepath.Join(appData, `Microsoft\Windows\Start Menu\Programs`),
			},
			DesktopDirs: []string{
				filepath.Join(home, "Desktop"),
			},
			CommonShortcutDirs: []string{
				filepath.Join(public, "Desktop"),
			},
			ExecutableExts: []string{".exe", ".bat", ".cmd", ".ps1"},
		}

	case "linux":
		return &Platform{
			Family: FamilyLinux,
			DesktopEntryDirs: []string{
				"/usr/share/applications",
				filepath.Join(home, ".local", "share", "applications"),
			},
			BinDirs: []string{
				"/usr/bin",
				"/usr/local/bin",
				filepath.Join(home, ".local", "bin"),
			},
		}

	case "darwin":
		return &Platform{
			Family: FamilyDarwin,
			BundleDirs: []string{
				"/Applications",
				"/System/Applications",
				filepath.Join(home, "Applications"),
			},
			BinDirs: []string{
				"/usr/local/bin",
				"/opt/homebrew/bin",
			},
		}
	}

	return &Platform{Family: FamilyUnknown}
}

// HasExecutableExt reports whether the path carries a recognized executable
// extension. Always true on extension-less platforms.
func (p *Platform) HasExecutableExt(path string) bool {
	if len(p.ExecutableExts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range p.ExecutableExts {
		if ext == e {
			return true
		}
	}
	return false
}

// IsExecutable reports whether info describes a launchable regular file:
// extension-checked on Windows, execute-permission-checked elsewhere.
func (p *Platform) IsExecutable(path string, info os.FileInfo) bool {
	if !info.Mode().IsRegular() {
		return false
	}
	if p.Family == FamilyWindows {
		return p.HasExecutableExt(path)
	}
	return info.Mode().Perm()&0111 != 0
}

// FindExecutable resolves a bare command name via PATH.
func (p *Platform) FindExecutable(name string) (string, bool) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, true
	}
	return abs, true
}

// String implements fmt.Stringer for log fields.
func (f Family) String() string {
	return string(f)
}
