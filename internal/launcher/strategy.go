// Package launcher resolves application names, launches and tracks processes,
// and keeps the launch audit history.
package launcher

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/summerlab/appagent/internal/domain"
	"github.com/summerlab/appagent/internal/platform"
)

// StrategiesFor returns the ordered launch strategies for the detected
// platform. More specific strategies come first; the plain direct spawn is
// always last. Availability is probed once, at construction.
func StrategiesFor(p *platform.Platform) []domain.LaunchStrategy {
	switch p.Family {
	case platform.FamilyWindows:
		return []domain.LaunchStrategy{
			newElevatedRunasStrategy(),
			newShortcutStrategy(),
			newDirectStrategy(),
		}
	case platform.FamilyLinux:
		return []domain.LaunchStrategy{
			newElevatedPkexecStrategy(),
			newDesktopEntryStrategy(),
			newDirectStrategy(),
		}
	case platform.FamilyDarwin:
		return []domain.LaunchStrategy{
			newElevatedOsascriptStrategy(),
			newBundleOpenStrategy(),
			newDirectStrategy(),
		}
	}
	return nil
}

// startDetached spawns cmd in its own session (where the OS supports it) so
// the child is not tied to the agent's process group, and reaps it in the
// background to avoid zombies.
func startDetached(cmd *exec.Cmd) (int, error) {
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	pid := cmd.Process.Pid
	go func() { _ = cmd.Wait() }()
	return pid, nil
}

// directStrategy executes the record's path directly. It is the fallback for
// every non-elevated launch.
type directStrategy struct{}

func newDirectStrategy() *directStrategy { return &directStrategy{} }

func (s *directStrategy) Name() string    { return "direct" }
func (s *directStrategy) Available() bool { return true }

func (s *directStrategy) CanHandle(spec domain.LaunchSpec) bool {
	return !spec.Elevated
}

func (s *directStrategy) Start(ctx context.Context, spec domain.LaunchSpec) (int, error) {
	cmd := exec.Command(spec.Record.Path, spec.Args...)
	cmd.Dir = spec.WorkingDir
	cmd.Env = spec.Env
	return startDetached(cmd)
}

// desktopEntryStrategy launches desktop-entry-sourced records through
// gtk-launch instead of executing the resolved path directly, so the entry's
// own activation semantics apply.
type desktopEntryStrategy struct {
	gtkLaunchPath string
}

func newDesktopEntryStrategy() *desktopEntryStrategy {
	path, _ := exec.LookPath("gtk-launch")
	return &desktopEntryStrategy{gtkLaunchPath: path}
}

func (s *desktopEntryStrategy) Name() string    { return "desktop_entry" }
func (s *desktopEntryStrategy) Available() bool { return s.gtkLaunchPath != "" }

func (s *desktopEntryStrategy) CanHandle(spec domain.LaunchSpec) bool {
	return !spec.Elevated &&
		spec.Record.Source == domain.SourceDesktopEntry &&
		spec.Record.DesktopFile != ""
}

func (s *desktopEntryStrategy) Start(ctx context.Context, spec domain.LaunchSpec) (int, error) {
	entryID := strings.TrimSuffix(filepath.Base(spec.Record.DesktopFile), ".desktop")
	args := append([]string{entryID}, spec.Args...)
	cmd := exec.Command(s.gtkLaunchPath, args...)
	cmd.Dir = spec.WorkingDir
	cmd.Env = spec.Env
	return startDetached(cmd)
}

// bundleOpenStrategy launches macOS .app bundles via the open helper,
// passing trailing arguments after an --args separator.
type bundleOpenStrategy struct {
	openPath string
}

func newBundleOpenStrategy() *bundleOpenStrategy {
	path, _ := exec.LookPath("open")
	return &bundleOpenStrategy{openPath: path}
}

func (s *bundleOpenStrategy) Name() string    { return "macos_open" }
func (s *bundleOpenStrategy) Available() bool { return s.openPath != "" }

func (s *bundleOpenStrategy) CanHandle(spec domain.LaunchSpec) bool {
	return !spec.Elevated && strings.HasSuffix(spec.Record.InstallLocation, ".app")
}

func (s *bundleOpenStrategy) Start(ctx context.Context, spec domain.LaunchSpec) (int, error) {
	args := []string{spec.Record.InstallLocation}
	if len(spec.Args) > 0 {
		args = append(args, "--args")
		args = append(args, spec.Args...)
	}
	cmd := exec.Command(s.openPath, args...)
	cmd.Dir = spec.WorkingDir
	cmd.Env = spec.Env
	return startDetached(cmd)
}

// shortcutStrategy invokes Windows shortcut-sourced records via their .lnk
// file so the shortcut's working directory and arguments apply.
type shortcutStrategy struct {
	cmdPath string
}

func newShortcutStrategy() *shortcutStrategy {
	path, _ := exec.LookPath("cmd")
	return &shortcutStrategy{cmdPath: path}
}

func (s *shortcutStrategy) Name() string    { return "shortcut" }
func (s *shortcutStrategy) Available() bool { return s.cmdPath != "" }

func (s *shortcutStrategy) CanHandle(spec domain.LaunchSpec) bool {
	return !spec.Elevated && spec.Record.ShortcutPath != ""
}

func (s *shortcutStrategy) Start(ctx context.Context, spec domain.LaunchSpec) (int, error) {
	args := append([]string{"/c", "start", "", spec.Record.ShortcutPath}, spec.Args...)
	cmd := exec.Command(s.cmdPath, args...)
	cmd.Dir = spec.WorkingDir
	cmd.Env = spec.Env
	return startDetached(cmd)
}

// elevatedRunasStrategy wraps Windows launches in runas for elevation.
type elevatedRunasStrategy struct {
	runasPath string
}

func newElevatedRunasStrategy() *elevatedRunasStrategy {
	path, _ := exec.LookPath("runas")
	return &elevatedRunasStrategy{runasPath: path}
}

func (s *elevatedRunasStrategy) Name() string    { return "elevated_runas" }
func (s *elevatedRunasStrategy) Available() bool { return s.runasPath != "" }

func (s *elevatedRunasStrategy) CanHandle(spec domain.LaunchSpec) bool {
	return spec.Elevated
}

func (s *elevatedRunasStrategy) Start(ctx context.Context, spec domain.LaunchSpec) (int, error) {
	commandLine := quoteJoin(spec.Record.Path, spec.Args)
	cmd := exec.Command(s.runasPath, "/user:Administrator", commandLine)
	cmd.Dir = spec.WorkingDir
	cmd.Env = spec.Env
	return startDetached(cmd)
}

// elevatedPkexecStrategy prefixes Linux launches with pkexec for elevation.
type elevatedPkexecStrategy struct {
	pkexecPath string
}

func newElevatedPkexecStrategy() *elevatedPkexecStrategy {
	path, _ := exec.LookPath("pkexec")
	return &elevatedPkexecStrategy{pkexecPath: path}
}

func (s *elevatedPkexecStrategy) Name() string    { return "elevated_pkexec" }
func (s *elevatedPkexecStrategy) Available() bool { return s.pkexecPath != "" }

func (s *elevatedPkexecStrategy) CanHandle(spec domain.LaunchSpec) bool {
	return spec.Elevated
}

func (s *elevatedPkexecStrategy) Start(ctx context.Context, spec domain.LaunchSpec) (int, error) {
	args := append([]string{"--user", "root", spec.Record.Path}, spec.Args...)
	cmd := exec.Command(s.pkexecPath, args...)
	cmd.Dir = spec.WorkingDir
	cmd.Env = spec.Env
	return startDetached(cmd)
}

// elevatedOsascriptStrategy routes macOS elevation through an
// administrator-privileges shell script.
type elevatedOsascriptStrategy struct {
	osascriptPath string
}

func newElevatedOsascriptStrategy() *elevatedOsascriptStrategy {
	path, _ := exec.LookPath("osascript")
	return &elevatedOsascriptStrategy{osascriptPath: path}
}

func (s *elevatedOsascriptStrategy) Name() string    { return "elevated_osascript" }
func (s *elevatedOsascriptStrategy) Available() bool { return s.osascriptPath != "" }

func (s *elevatedOsascriptStrategy) CanHandle(spec domain.LaunchSpec) bool {
	return spec.Elevated
}

func (s *elevatedOsascriptStrategy) Start(ctx context.Context, spec domain.LaunchSpec) (int, error) {
	script := fmt.Sprintf("do shell script %q with administrator privileges",
		quoteJoin(spec.Record.Path, spec.Args))
	cmd := exec.Command(s.osascriptPath, "-e", script)
	cmd.Dir = spec.WorkingDir
	cmd.Env = spec.Env
	return startDetached(cmd)
}

// quoteJoin builds a single command line with each argument double-quoted.
// Backslashes pass through untouched; Windows paths must survive verbatim.
func quoteJoin(path string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, `"`+path+`"`)
	for _, a := range args {
		parts = append(parts, `"`+a+`"`)
	}
	return strings.Join(parts, " ")
}

// Ensure strategies implement domain.LaunchStrategy.
var (
	_ domain.LaunchStrategy = (*directStrategy)(nil)
	_ domain.LaunchStrategy = (*desktopEntryStrategy)(nil)
	_ domain.LaunchStrategy = (*bundleOpenStrategy)(nil)
	_ domain.LaunchStrategy = (*shortcutStrategy)(nil)
	_ domain.LaunchStrategy = (*elevatedRunasStrategy)(nil)
	_ domain.LaunchStrategy = (*elevatedPkexecStrategy)(nil)
	_ domain.LaunchStrategy = (*elevatedOsascriptStrategy)(nil)
)
