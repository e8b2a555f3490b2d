package agent

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/summerlab/appagent/internal/domain"
)

// fakeIndex implements domain.AppIndex for testing.
type fakeIndex struct {
	apps       []domain.AppRecord
	appsErr    error
	refreshErr error
	stats      domain.ScanStats
	lastScan   time.Time
}

func (f *fakeIndex) EnsureScanned(ctx context.Context, force bool) error { return nil }

func (f *fakeIndex) Apps(ctx context.Context, force bool) ([]domain.AppRecord, error) {
	return f.apps, f.appsErr
}

func (f *fakeIndex) Find(ctx context.Context, name string, fuzzy bool) (*domain.AppRecord, error) {
	for _, rec := range f.apps {
		if rec.Name == name {
			return &rec, nil
		}
	}
	return nil, nil
}

func (f *fakeIndex) Refresh(ctx context.Context) error { return f.refreshErr }
func (f *fakeIndex) Stats() domain.ScanStats           { return f.stats }
func (f *fakeIndex) LastScan() time.Time               { return f.lastScan }

// fakeLauncher implements domain.AppLauncher with scripted statuses.
type fakeLauncher struct {
	launchStatus domain.LaunchStatus
	termStatus   domain.LaunchStatus
	running      []domain.RunningAppInfo
	history      []domain.HistoryEntry
	stats        domain.LauncherStats
	panicOnStats bool

	launchedApp  string
	launchedArgs []string
}

func (f *fakeLauncher) Launch(ctx context.Context, appName string, args []string, opts domain.LaunchOptions) domain.LaunchStatus {
	f.launchedApp = appName
	f.launchedArgs = args
	return f.launchStatus
}

func (f *fakeLauncher) Terminate(ctx context.Context, appName string) domain.LaunchStatus {
	return f.termStatus
}

func (f *fakeLauncher) RunningApps(ctx context.Context) []domain.RunningAppInfo { return f.running }
func (f *fakeLauncher) History(limit int) []domain.HistoryEntry                 { return f.history }
func (f *fakeLauncher) HistoryTotal() int                                       { return len(f.history) }

func (f *fakeLauncher) Stats() domain.LauncherStats {
	if f.panicOnStats {
		panic("stats blew up")
	}
	return f.stats
}

func newTestAgent(index domain.AppIndex, l domain.AppLauncher) *Agent {
	return New(index, l, nil, zap.NewNop())
}

// TestHandle_UnknownTool verifies an unrecognized operation is rejected with
// UNKNOWN_TOOL.
func TestHandle_UnknownTool(t *testing.T) {
	a := newTestAgent(&fakeIndex{}, &fakeLauncher{})

	resp := a.Handle(context.Background(), Request{ToolName: "make-coffee"})

	assert.False(t, resp.Success)
	assert.Equal(t, CodeUnknownTool, resp.ErrorCode)
	assert.NotEmpty(t, resp.RequestID)
}

// TestHandle_MissingToolName verifies validation rejects an empty operation.
func TestHandle_MissingToolName(t *testing.T) {
	a := newTestAgent(&fakeIndex{}, &fakeLauncher{})

	resp := a.Handle(context.Background(), Request{})

	assert.False(t, resp.Success)
	assert.Equal(t, CodeInvalidRequest, resp.ErrorCode)
}

// TestHandle_EchoesRequestID verifies a caller-supplied request id survives.
func TestHandle_EchoesRequestID(t *testing.T) {
	a := newTestAgent(&fakeIndex{}, &fakeLauncher{})

	resp := a.Handle(context.Background(), Request{ToolName: ToolListApps, RequestID: "req-7"})

	assert.Equal(t, "req-7", resp.RequestID)
}

// TestHandle_LaunchSuccess verifies the app_started envelope.
func TestHandle_LaunchSuccess(t *testing.T) {
	l := &fakeLauncher{launchStatus: domain.LaunchStatus{
		Result:       domain.LaunchSuccess,
		Message:      "launched Editor",
		AppName:      "Editor",
		ProcessID:    4242,
		StartTime:    time.Now(),
		LaunchMethod: "direct",
	}}
	a := newTestAgent(&fakeIndex{}, l)

	resp := a.Handle(context.Background(), Request{
		ToolName: ToolLaunchApp,
		App:      "editor",
		Args:     ArgList{"--safe-mode"},
	})

	assert.True(t, resp.Success)
	assert.Equal(t, StatusAppStarted, resp.Status)
	assert.Equal(t, "editor", l.launchedApp)
	assert.Equal(t, []string{"--safe-mode"}, l.launchedArgs)

	data := resp.Data.(map[string]any)
	assert.Equal(t, 4242, data["process_id"])
	assert.Equal(t, "direct", data["launch_method"])
}

// TestHandle_LaunchWithoutApp verifies omission returns a selection list, not
// an error.
func TestHandle_LaunchWithoutApp(t *testing.T) {
	index := &fakeIndex{apps: []domain.AppRecord{
		{Name: "vim", DisplayName: "Vim"},
		{Name: "emacs", DisplayName: "Emacs"},
	}}
	a := newTestAgent(index, &fakeLauncher{})

	resp := a.Handle(context.Background(), Request{ToolName: ToolLaunchApp})

	assert.True(t, resp.Success)
	assert.Equal(t, "app_selection", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, 2, data["total_count"])
	assert.ElementsMatch(t, []string{"Vim", "Emacs"}, data["apps"])
}

// TestHandle_LaunchNotFound verifies the failure envelope carries the error
// code and a suggestion.
func TestHandle_LaunchNotFound(t *testing.T) {
	l := &fakeLauncher{launchStatus: domain.LaunchStatus{
		Result:  domain.LaunchNotFound,
		Message: `application "ghost" not found`,
	}}
	a := newTestAgent(&fakeIndex{}, l)

	resp := a.Handle(context.Background(), Request{ToolName: ToolLaunchApp, App: "ghost"})

	assert.False(t, resp.Success)
	assert.Equal(t, string(domain.LaunchNotFound), resp.Status)
	assert.Equal(t, CodeNotFound, resp.ErrorCode)
	assert.NotEmpty(t, resp.Suggestion)
}

// TestHandle_LaunchAlreadyRunning verifies already-running reports success
// with the existing pid.
func TestHandle_LaunchAlreadyRunning(t *testing.T) {
	l := &fakeLauncher{launchStatus: domain.LaunchStatus{
		Result:    domain.LaunchAlreadyRunning,
		Message:   "Editor is already running",
		AppName:   "Editor",
		ProcessID: 1234,
	}}
	a := newTestAgent(&fakeIndex{}, l)

	resp := a.Handle(context.Background(), Request{ToolName: ToolLaunchApp, App: "editor"})

	assert.True(t, resp.Success)
	assert.Equal(t, string(domain.LaunchAlreadyRunning), resp.Status)
}

// TestHandle_ListApps verifies pagination fields.
func TestHandle_ListApps(t *testing.T) {
	index := &fakeIndex{
		apps: []domain.AppRecord{
			{Name: "a"}, {Name: "b"}, {Name: "c"},
		},
		stats:    domain.ScanStats{TotalScanned: 3},
		lastScan: time.Now(),
	}
	a := newTestAgent(index, &fakeLauncher{})

	resp := a.Handle(context.Background(), Request{ToolName: ToolListApps, Limit: 2})

	require.True(t, resp.Success)
	data := resp.Data.(map[string]any)
	assert.Equal(t, 3, data["total_count"])
	assert.Len(t, data["apps"], 2)
	assert.Equal(t, true, data["has_more"])
}

// TestHandle_TerminateRequiresApp verifies the parameter check.
func TestHandle_TerminateRequiresApp(t *testing.T) {
	a := newTestAgent(&fakeIndex{}, &fakeLauncher{})

	resp := a.Handle(context.Background(), Request{ToolName: ToolTerminateApp})

	assert.False(t, resp.Success)
	assert.Equal(t, CodeInvalidRequest, resp.ErrorCode)
}

// TestHandle_History verifies history payload and totals.
func TestHandle_History(t *testing.T) {
	l := &fakeLauncher{history: []domain.HistoryEntry{
		{AppName: "vim", Result: domain.LaunchSuccess},
	}}
	a := newTestAgent(&fakeIndex{}, l)

	resp := a.Handle(context.Background(), Request{ToolName: ToolGetLaunchHistory})

	require.True(t, resp.Success)
	data := resp.Data.(map[string]any)
	assert.Equal(t, 1, data["total_records"])
}

// TestHandle_StatsCountsRequests verifies the process-wide counters update
// on both success and failure paths.
func TestHandle_StatsCountsRequests(t *testing.T) {
	a := newTestAgent(&fakeIndex{}, &fakeLauncher{})

	a.Handle(context.Background(), Request{ToolName: ToolListApps})
	a.Handle(context.Background(), Request{ToolName: "bogus"})
	resp := a.Handle(context.Background(), Request{ToolName: ToolGetStats})

	require.True(t, resp.Success)
	data := resp.Data.(map[string]any)
	agentStats := data["agent_stats"].(map[string]any)
	// The in-flight get-stats request is already counted in the total; its
	// own success lands after the response is built.
	assert.Equal(t, int64(3), agentStats["total_requests"])
	assert.Equal(t, int64(1), agentStats["successful_requests"])
	assert.Equal(t, int64(1), agentStats["failed_requests"])
}

// TestHandle_PanicBecomesInternalError verifies the façade converts handler
// panics instead of crashing.
func TestHandle_PanicBecomesInternalError(t *testing.T) {
	a := newTestAgent(&fakeIndex{}, &fakeLauncher{panicOnStats: true})

	resp := a.Handle(context.Background(), Request{ToolName: ToolGetStats})

	assert.False(t, resp.Success)
	assert.Equal(t, CodeInternalError, resp.ErrorCode)
}

// TestArgList_Unmarshal verifies string-or-list acceptance.
func TestArgList_Unmarshal(t *testing.T) {
	var fromString ArgList
	require.NoError(t, json.Unmarshal([]byte(`"--flag"`), &fromString))
	assert.Equal(t, ArgList{"--flag"}, fromString)

	var split ArgList
	require.NoError(t, json.Unmarshal([]byte(`"--incognito --new-window"`), &split))
	assert.Equal(t, ArgList{"--incognito", "--new-window"}, split)

	var padded ArgList
	require.NoError(t, json.Unmarshal([]byte(`"  -a   -b "`), &padded))
	assert.Equal(t, ArgList{"-a", "-b"}, padded)

	var fromList ArgList
	require.NoError(t, json.Unmarshal([]byte(`["-a","-b"]`), &fromList))
	assert.Equal(t, ArgList{"-a", "-b"}, fromList)

	var fromList2 ArgList
	require.NoError(t, json.Unmarshal([]byte(`["--path", "a b"]`), &fromList2))
	assert.Equal(t, ArgList{"--path", "a b"}, fromList2)

	var invalid ArgList
	assert.Error(t, json.Unmarshal([]byte(`42`), &invalid))
}
