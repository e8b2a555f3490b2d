package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/summerlab/appagent/internal/domain"
	"github.com/summerlab/appagent/internal/platform"
)

// Config tunes launch behavior. Zero values are filled in by New.
type Config struct {
	// CheckAlreadyRunning short-circuits a launch when a live process with
	// the same executable path is already tracked or found on the system.
	CheckAlreadyRunning bool

	// ValidateExecutable verifies the resolved path before spawning.
	ValidateExecutable bool

	// WaitForStartup blocks for StartupGrace after spawning and probes
	// whether the process is still alive.
	WaitForStartup bool
	StartupGrace   time.Duration

	// MaxRetries bounds spawn attempts. Only transient spawn failures are
	// retried; permission and missing-file errors are terminal.
	MaxRetries   int
	RetryBackoff time.Duration

	// Display overrides the DISPLAY variable injected on Linux launches.
	Display string

	// Debug attaches raw spawn error text to generic failures. Off by
	// default so internal paths do not leak to normal callers.
	Debug bool
}

func (c Config) withDefaults() Config {
	if c.StartupGrace <= 0 {
		c.StartupGrace = 5 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = time.Second
	}
	return c
}

// DefaultConfig returns the standard agent launch configuration.
func DefaultConfig() Config {
	return Config{
		CheckAlreadyRunning: true,
		ValidateExecutable:  true,
		WaitForStartup:      true,
	}.withDefaults()
}

// Launcher implements domain.AppLauncher: it resolves names through the app
// index, dispatches to the first applicable strategy, tracks spawned
// processes and records every attempt in the audit history.
type Launcher struct {
	index      domain.AppIndex
	plat       *platform.Platform
	procs      domain.ProcessManager
	strategies []domain.LaunchStrategy
	cfg        Config
	logger     *zap.Logger
	history    *history
	store      domain.HistoryStore

	mu      sync.Mutex
	running map[int]domain.RunningProcess
}

var _ domain.AppLauncher = (*Launcher)(nil)

// New creates a Launcher. strategies must come from StrategiesFor so the
// ordering contract holds; store may be nil to skip persistent history.
func New(
	index domain.AppIndex,
	plat *platform.Platform,
	procs domain.ProcessManager,
	strategies []domain.LaunchStrategy,
	cfg Config,
	store domain.HistoryStore,
	logger *zap.Logger,
) *Launcher {
	return &Launcher{
		index:      index,
		plat:       plat,
		procs:      procs,
		strategies: strategies,
		cfg:        cfg.withDefaults(),
		logger:     logger,
		history:    newHistory(100, 50),
		store:      store,
		running:    make(map[int]domain.RunningProcess),
	}
}

// Launch resolves appName and starts it. The returned status is always
// populated; launch problems surface as a non-success Result, never a panic.
func (l *Launcher) Launch(ctx context.Context, appName string, args []string, opts domain.LaunchOptions) domain.LaunchStatus {
	started := time.Now()

	if l.plat.Family == platform.FamilyUnknown {
		return domain.LaunchStatus{
			Result:  domain.LaunchUnsupportedPlatform,
			Message: fmt.Sprintf("unsupported platform %s", runtime.GOOS),
			AppName: appName,
		}
	}

	rec, err := l.index.Find(ctx, appName, true)
	if err != nil {
		return domain.LaunchStatus{
			Result:       domain.LaunchFailed,
			Message:      "application lookup failed",
			AppName:      appName,
			ErrorDetails: err.Error(),
		}
	}
	if rec == nil {
		return domain.LaunchStatus{
			Result:  domain.LaunchNotFound,
			Message: fmt.Sprintf("application %q not found", appName),
			AppName: appName,
		}
	}

	if l.cfg.ValidateExecutable {
		if reason, ok := l.validate(rec.Path); !ok {
			return domain.LaunchStatus{
				Result:       domain.LaunchInvalidPath,
				Message:      fmt.Sprintf("invalid executable path for %q", rec.DisplayName),
				AppName:      rec.DisplayName,
				ErrorDetails: reason,
			}
		}
	}

	if l.cfg.CheckAlreadyRunning {
		if pid, ok := l.findRunning(rec.Path); ok {
			return domain.LaunchStatus{
				Result:    domain.LaunchAlreadyRunning,
				Message:   fmt.Sprintf("%s is already running", rec.DisplayName),
				AppName:   rec.DisplayName,
				ProcessID: pid,
			}
		}
	}

	spec := domain.LaunchSpec{
		Record:     *rec,
		Args:       args,
		WorkingDir: workingDir(rec, opts),
		Env:        l.buildEnv(opts),
		Elevated:   opts.Elevated,
	}

	strat := l.pickStrategy(spec)
	if strat == nil {
		return domain.LaunchStatus{
			Result:  domain.LaunchFailed,
			Message: fmt.Sprintf("no launch strategy available for %q", rec.DisplayName),
			AppName: rec.DisplayName,
		}
	}

	pid, launchErr := l.startWithRetry(ctx, strat, spec)
	status := l.buildStatus(rec, strat.Name(), pid, launchErr)
	l.record(ctx, rec, status, time.Since(started))

	if status.Result != domain.LaunchSuccess {
		return status
	}

	if l.cfg.WaitForStartup {
		select {
		case <-ctx.Done():
		case <-time.After(l.cfg.StartupGrace):
		}
		if !l.procs.IsRunning(pid) {
			l.logger.Warn("process exited during startup grace period",
				zap.String("app", rec.DisplayName),
				zap.Int("pid", pid))
		}
	}

	l.track(domain.RunningProcess{
		PID:       pid,
		Name:      rec.DisplayName,
		Path:      rec.Path,
		StartTime: status.StartTime,
	})

	l.logger.Info("application launched",
		zap.String("app", rec.DisplayName),
		zap.Int("pid", pid),
		zap.String("method", strat.Name()))
	return status
}

// startWithRetry attempts the spawn up to MaxRetries times, backing off
// between attempts. Terminal failures abort the loop immediately.
func (l *Launcher) startWithRetry(ctx context.Context, strat domain.LaunchStrategy, spec domain.LaunchSpec) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= l.cfg.MaxRetries; attempt++ {
		pid, err := strat.Start(ctx, spec)
		if err == nil {
			return pid, nil
		}
		lastErr = err
		if classify(err) != domain.LaunchFailed {
			return 0, err
		}
		l.logger.Warn("launch attempt failed",
			zap.String("app", spec.Record.DisplayName),
			zap.String("method", strat.Name()),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt < l.cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(l.cfg.RetryBackoff):
			}
		}
	}
	return 0, lastErr
}

func (l *Launcher) buildStatus(rec *domain.AppRecord, method string, pid int, err error) domain.LaunchStatus {
	if err != nil {
		result := classify(err)
		details := err.Error()
		if result == domain.LaunchFailed && !l.cfg.Debug {
			details = ""
		}
		return domain.LaunchStatus{
			Result:       result,
			Message:      fmt.Sprintf("failed to launch %q", rec.DisplayName),
			AppName:      rec.DisplayName,
			ErrorDetails: details,
			LaunchMethod: method,
		}
	}
	return domain.LaunchStatus{
		Result:       domain.LaunchSuccess,
		Message:      fmt.Sprintf("launched %s", rec.DisplayName),
		AppName:      rec.DisplayName,
		ProcessID:    pid,
		StartTime:    time.Now(),
		LaunchMethod: method,
	}
}

// classify maps a spawn error to its terminal result. Anything that is not
// recognizably permanent counts as failed and stays retryable.
func classify(err error) domain.LaunchResult {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domain.LaunchTimeout
	case errors.Is(err, os.ErrPermission):
		return domain.LaunchAccessDenied
	case errors.Is(err, os.ErrNotExist), errors.Is(err, exec.ErrNotFound):
		return domain.LaunchNotFound
	default:
		return domain.LaunchFailed
	}
}

// validate checks that path points at a launchable regular file.
func (l *Launcher) validate(path string) (reason string, ok bool) {
	info, err := os.Stat(path)
	if err != nil {
		return err.Error(), false
	}
	if !info.Mode().IsRegular() {
		return "not a regular file", false
	}
	if info.Size() == 0 {
		return "file is empty", false
	}
	if !l.plat.IsExecutable(path, info) {
		return "not executable", false
	}
	return "", true
}

// findRunning checks the tracked registry first, then asks the process
// manager for any live process with the same executable.
func (l *Launcher) findRunning(path string) (int, bool) {
	l.mu.Lock()
	for pid, proc := range l.running {
		if proc.Path == path && l.procs.IsRunning(pid) {
			l.mu.Unlock()
			return pid, true
		}
	}
	l.mu.Unlock()

	pids, err := l.procs.FindByExecutable(path)
	if err != nil || len(pids) == 0 {
		return 0, false
	}
	return pids[0], true
}

func (l *Launcher) pickStrategy(spec domain.LaunchSpec) domain.LaunchStrategy {
	for _, s := range l.strategies {
		if s.Available() && s.CanHandle(spec) {
			return s
		}
	}
	return nil
}

// buildEnv extends the agent environment with the launch display override.
// Only Linux launches need DISPLAY plumbing; other platforms inherit as-is.
func (l *Launcher) buildEnv(opts domain.LaunchOptions) []string {
	if l.plat.Family != platform.FamilyLinux {
		return nil
	}
	display := opts.Display
	if display == "" {
		display = l.cfg.Display
	}
	if display == "" {
		return nil
	}
	return append(os.Environ(), "DISPLAY="+display)
}

// workingDir resolves the child's working directory: explicit option, then
// the recorded install location, then the executable's own directory.
func workingDir(rec *domain.AppRecord, opts domain.LaunchOptions) string {
	if opts.WorkingDir != "" {
		return opts.WorkingDir
	}
	if rec.InstallLocation != "" {
		return rec.InstallLocation
	}
	return filepath.Dir(rec.Path)
}

func (l *Launcher) record(ctx context.Context, rec *domain.AppRecord, status domain.LaunchStatus, elapsed time.Duration) {
	entry := domain.HistoryEntry{
		Timestamp:    time.Now(),
		AppName:      rec.DisplayName,
		AppPath:      rec.Path,
		Result:       status.Result,
		ProcessID:    status.ProcessID,
		Duration:     elapsed.Seconds(),
		LaunchMethod: status.LaunchMethod,
		Platform:     string(l.plat.Family),
	}
	l.history.Append(entry)
	if l.store != nil {
		if err := l.store.Append(ctx, entry); err != nil {
			l.logger.Warn("failed to persist history entry", zap.Error(err))
		}
	}
}

func (l *Launcher) track(proc domain.RunningProcess) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.running[proc.PID] = proc
}

// Terminate resolves appName and asks every tracked or discovered instance
// to exit.
func (l *Launcher) Terminate(ctx context.Context, appName string) domain.LaunchStatus {
	rec, err := l.index.Find(ctx, appName, true)
	if err != nil || rec == nil {
		return domain.LaunchStatus{
			Result:  domain.LaunchNotFound,
			Message: fmt.Sprintf("application %q not found", appName),
			AppName: appName,
		}
	}

	pids := l.collectPIDs(rec.Path)
	if len(pids) == 0 {
		return domain.LaunchStatus{
			Result:  domain.LaunchFailed,
			Message: fmt.Sprintf("no running instance of %q", rec.DisplayName),
			AppName: rec.DisplayName,
		}
	}

	terminated := 0
	var lastErr error
	for _, pid := range pids {
		if err := l.procs.Terminate(pid); err != nil {
			lastErr = err
			continue
		}
		terminated++
		l.untrack(pid)
	}

	if terminated == 0 {
		return domain.LaunchStatus{
			Result:       domain.LaunchFailed,
			Message:      fmt.Sprintf("failed to terminate %q", rec.DisplayName),
			AppName:      rec.DisplayName,
			ErrorDetails: lastErr.Error(),
		}
	}
	l.logger.Info("application terminated",
		zap.String("app", rec.DisplayName),
		zap.Int("instances", terminated))
	return domain.LaunchStatus{
		Result:  domain.LaunchSuccess,
		Message: fmt.Sprintf("terminated %d instance(s) of %s", terminated, rec.DisplayName),
		AppName: rec.DisplayName,
	}
}

func (l *Launcher) collectPIDs(path string) []int {
	seen := make(map[int]bool)
	var pids []int
	l.mu.Lock()
	for pid, proc := range l.running {
		if proc.Path == path {
			seen[pid] = true
			pids = append(pids, pid)
		}
	}
	l.mu.Unlock()
	found, err := l.procs.FindByExecutable(path)
	if err == nil {
		for _, pid := range found {
			if !seen[pid] {
				pids = append(pids, pid)
			}
		}
	}
	return pids
}

func (l *Launcher) untrack(pid int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.running, pid)
}

// RunningApps returns all tracked processes that are still alive, enriched
// with live resource usage. Dead entries found along the way are evicted.
func (l *Launcher) RunningApps(ctx context.Context) []domain.RunningAppInfo {
	l.mu.Lock()
	procs := make([]domain.RunningProcess, 0, len(l.running))
	for _, proc := range l.running {
		procs = append(procs, proc)
	}
	l.mu.Unlock()

	infos := make([]domain.RunningAppInfo, 0, len(procs))
	for _, proc := range procs {
		if !l.procs.IsRunning(proc.PID) {
			l.untrack(proc.PID)
			continue
		}
		cpu, mem, err := l.procs.Usage(proc.PID)
		if err != nil {
			l.logger.Debug("usage probe failed",
				zap.Int("pid", proc.PID), zap.Error(err))
		}
		infos = append(infos, domain.RunningAppInfo{
			Name:          proc.Name,
			PID:           proc.PID,
			Path:          proc.Path,
			StartTime:     proc.StartTime,
			CPUPercent:    cpu,
			MemoryPercent: mem,
		})
	}
	return infos
}

// History returns up to limit audit entries, oldest first.
func (l *Launcher) History(limit int) []domain.HistoryEntry {
	return l.history.Recent(limit)
}

// HistoryTotal returns the number of retained audit entries.
func (l *Launcher) HistoryTotal() int {
	return l.history.Len()
}

// Stats summarizes launcher activity together with the latest scan stats.
func (l *Launcher) Stats() domain.LauncherStats {
	total := l.history.Len()
	success := l.history.CountResult(domain.LaunchSuccess)
	rate := 0.0
	if total > 0 {
		rate = float64(success) / float64(total)
	}
	l.mu.Lock()
	runningCount := len(l.running)
	l.mu.Unlock()
	return domain.LauncherStats{
		TotalLaunches:      total,
		SuccessfulLaunches: success,
		SuccessRate:        rate,
		RunningProcesses:   runningCount,
		Platform:           string(l.plat.Family),
		ScannerStats:       l.index.Stats(),
	}
}

// snapshot and remove expose the running registry to the process monitor.
func (l *Launcher) snapshot() []domain.RunningProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	procs := make([]domain.RunningProcess, 0, len(l.running))
	for _, proc := range l.running {
		procs = append(procs, proc)
	}
	return procs
}

func (l *Launcher) remove(pid int) {
	l.untrack(pid)
}
