// Package infra implements infrastructure concerns (process inspection and
// launch-history storage).
package infra

import (
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/summerlab/appagent/internal/domain"
)

// ProcessManagerImpl implements domain.ProcessManager using gopsutil.
type ProcessManagerImpl struct{}

// NewProcessManager creates a new process manager.
func NewProcessManager() domain.ProcessManager {
	return &ProcessManagerImpl{}
}

// FindByExecutable returns PIDs of live processes whose executable path or
// image name matches the given path (case-insensitive).
func (pm *ProcessManagerImpl) FindByExecutable(path string) ([]int, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	pathLower := strings.ToLower(path)
	baseLower := strings.ToLower(filepath.Base(path))

	var found []int
	for _, p := range procs {
		exe, err := p.Exe()
		if err == nil && strings.EqualFold(exe, path) {
			found = append(found, int(p.Pid))
			continue
		}

		// Exe may be unreadable for other users' processes; fall back to
		// the image name.
		name, err := p.Name()
		if err != nil {
			continue // Process may have exited
		}
		if strings.ToLower(name) == baseLower || strings.ToLower(name) == pathLower {
			found = append(found, int(p.Pid))
		}
	}

	return found, nil
}

// IsRunning checks if a PID exists and is running.
func (pm *ProcessManagerImpl) IsRunning(pid int) bool {
	running, err := process.PidExists(int32(pid))
	return err == nil && running
}

// Terminate asks a process to exit (SIGTERM on Unix, TerminateProcess on
// Windows; gopsutil picks the right one).
func (pm *ProcessManagerImpl) Terminate(pid int) error {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	return p.Terminate()
}

// Usage returns cpu and memory percentages for a live PID.
func (pm *ProcessManagerImpl) Usage(pid int) (float64, float32, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return 0, 0, err
	}
	cpu, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	mem, err := p.MemoryPercent()
	if err != nil {
		return cpu, 0, err
	}
	return cpu, mem, nil
}

// Ensure ProcessManagerImpl implements domain.ProcessManager.
var _ domain.ProcessManager = (*ProcessManagerImpl)(nil)
