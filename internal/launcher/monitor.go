package launcher

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/summerlab/appagent/internal/domain"
)

// processRegistry is the slice of Launcher the monitor needs: list tracked
// processes and evict dead ones.
type processRegistry interface {
	snapshot() []domain.RunningProcess
	remove(pid int)
}

// Monitor periodically sweeps the tracked process registry and evicts PIDs
// that are no longer alive. Lifecycle is explicit: Start spawns the loop,
// Stop blocks until it has exited. A Monitor is single-use.
type Monitor struct {
	registry    processRegistry
	procs       domain.ProcessManager
	interval    time.Duration
	errInterval time.Duration
	logger      *zap.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewMonitor creates a stopped monitor sweeping at interval, backing off to
// errInterval after a sweep failure.
func NewMonitor(l *Launcher, interval, errInterval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if errInterval <= 0 {
		errInterval = 10 * time.Second
	}
	return &Monitor{
		registry:    l,
		procs:       l.procs,
		interval:    interval,
		errInterval: errInterval,
		logger:      logger,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start launches the sweep loop in its own goroutine.
func (m *Monitor) Start() {
	go m.run()
}

// Stop signals the loop and waits for it to exit.
func (m *Monitor) Stop() {
	close(m.stopCh)
	<-m.doneCh
}

func (m *Monitor) run() {
	defer close(m.doneCh)
	m.logger.Info("process monitor started",
		zap.Duration("interval", m.interval))

	timer := time.NewTimer(m.interval)
	defer timer.Stop()
	for {
		select {
		case <-m.stopCh:
			m.logger.Info("process monitor stopped")
			return
		case <-timer.C:
			next := m.interval
			if err := m.sweep(); err != nil {
				m.logger.Error("monitor sweep failed", zap.Error(err))
				next = m.errInterval
			}
			timer.Reset(next)
		}
	}
}

// sweep evicts tracked PIDs that are no longer running. Panics from the
// process layer are contained here so one bad probe cannot kill the loop.
func (m *Monitor) sweep() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep panic: %v", r)
		}
	}()
	for _, proc := range m.registry.snapshot() {
		if m.procs.IsRunning(proc.PID) {
			continue
		}
		m.registry.remove(proc.PID)
		m.logger.Info("tracked process exited",
			zap.String("app", proc.Name),
			zap.Int("pid", proc.PID))
	}
	return nil
}
