//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/summerlab/appagent/internal/agent"
	"github.com/summerlab/appagent/internal/domain"
	"github.com/summerlab/appagent/internal/launcher"
	"github.com/summerlab/appagent/internal/platform"
	"github.com/summerlab/appagent/internal/scanner"
)

// fixedScanner feeds a predetermined record set into the cache.
type fixedScanner struct {
	records []domain.AppRecord
}

func (s *fixedScanner) Name() string { return "fixed" }

func (s *fixedScanner) Scan(ctx context.Context) ([]domain.AppRecord, error) {
	return s.records, nil
}

// fakeStrategy spawns nothing and reports a fixed PID.
type fakeStrategy struct {
	pid int
}

func (s *fakeStrategy) Name() string                          { return "direct" }
func (s *fakeStrategy) Available() bool                       { return true }
func (s *fakeStrategy) CanHandle(spec domain.LaunchSpec) bool { return true }

func (s *fakeStrategy) Start(ctx context.Context, spec domain.LaunchSpec) (int, error) {
	return s.pid, nil
}

// fakeProcs treats exactly one PID as alive.
type fakeProcs struct {
	alivePID int
}

func (p *fakeProcs) FindByExecutable(path string) ([]int, error) { return nil, nil }
func (p *fakeProcs) IsRunning(pid int) bool                      { return pid == p.alivePID }
func (p *fakeProcs) Terminate(pid int) error                     { return nil }
func (p *fakeProcs) Usage(pid int) (float64, float32, error)     { return 0, 0, nil }

var _ = Describe("Agent", func() {
	var (
		tmpDir string
		a      *agent.Agent
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "appagent-integration-*")
		Expect(err).NotTo(HaveOccurred())

		notepad := filepath.Join(tmpDir, "notepad")
		Expect(os.WriteFile(notepad, []byte("#!/bin/sh\n"), 0o755)).To(Succeed())

		src := &fixedScanner{records: []domain.AppRecord{
			{Name: "notepad", Path: notepad, Source: domain.SourceRegistryAppPaths},
		}}

		cache := scanner.NewCache(
			scanner.CacheConfig{TTL: time.Hour},
			[]domain.SourceScanner{src},
			zap.NewNop(),
		)

		plat := &platform.Platform{Family: platform.FamilyLinux}
		l := launcher.New(
			cache,
			plat,
			&fakeProcs{alivePID: 31337},
			[]domain.LaunchStrategy{&fakeStrategy{pid: 31337}},
			launcher.Config{
				CheckAlreadyRunning: true,
				ValidateExecutable:  true,
				MaxRetries:          3,
				RetryBackoff:        time.Millisecond,
			},
			nil,
			zap.NewNop(),
		)

		a = agent.New(cache, l, nil, zap.NewNop())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("list-apps", func() {
		It("reports the discovered application", func() {
			resp := a.Handle(context.Background(), agent.Request{ToolName: agent.ToolListApps})

			Expect(resp.Success).To(BeTrue())
			data := resp.Data.(map[string]any)
			Expect(data["total_count"]).To(Equal(1))

			apps := data["apps"].([]domain.AppRecord)
			Expect(apps).To(HaveLen(1))
			Expect(apps[0].Name).To(Equal("notepad"))
		})
	})

	Describe("launch-app", func() {
		It("starts the application and reports its process id", func() {
			resp := a.Handle(context.Background(), agent.Request{
				ToolName: agent.ToolLaunchApp,
				App:      "notepad",
			})

			Expect(resp.Success).To(BeTrue())
			Expect(resp.Status).To(Equal(agent.StatusAppStarted))

			data := resp.Data.(map[string]any)
			Expect(data["process_id"]).To(Equal(31337))
		})

		It("then reports the process as running", func() {
			a.Handle(context.Background(), agent.Request{
				ToolName: agent.ToolLaunchApp,
				App:      "notepad",
			})

			resp := a.Handle(context.Background(), agent.Request{ToolName: agent.ToolListRunningApps})

			Expect(resp.Success).To(BeTrue())
			data := resp.Data.(map[string]any)
			Expect(data["total_count"]).To(Equal(1))
		})

		It("records the launch in history", func() {
			a.Handle(context.Background(), agent.Request{
				ToolName: agent.ToolLaunchApp,
				App:      "notepad",
			})

			resp := a.Handle(context.Background(), agent.Request{ToolName: agent.ToolGetLaunchHistory})

			Expect(resp.Success).To(BeTrue())
			data := resp.Data.(map[string]any)
			Expect(data["total_records"]).To(Equal(1))
		})

		It("resolves fuzzily typed names", func() {
			resp := a.Handle(context.Background(), agent.Request{
				ToolName: agent.ToolLaunchApp,
				App:      "note",
			})

			Expect(resp.Success).To(BeTrue())
			Expect(resp.Status).To(Equal(agent.StatusAppStarted))
		})

		It("rejects an unknown application with a suggestion", func() {
			resp := a.Handle(context.Background(), agent.Request{
				ToolName: agent.ToolLaunchApp,
				App:      "definitely-not-installed",
			})

			Expect(resp.Success).To(BeFalse())
			Expect(resp.Status).To(Equal(string(domain.LaunchNotFound)))
			Expect(resp.ErrorCode).To(Equal(agent.CodeNotFound))
			Expect(resp.Suggestion).NotTo(BeEmpty())
		})
	})
})
