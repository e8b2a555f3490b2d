// Package agent is the request façade: it maps named operations arriving as
// JSON envelopes onto the scanner cache and launcher, and wraps every result
// in a uniform response envelope.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/summerlab/appagent/internal/domain"
)

// Operation names accepted in Request.ToolName.
const (
	ToolLaunchApp        = "launch-app"
	ToolListApps         = "list-apps"
	ToolTerminateApp     = "terminate-app"
	ToolListRunningApps  = "list-running-apps"
	ToolRefreshApps      = "refresh-apps"
	ToolGetLaunchHistory = "get-launch-history"
	ToolGetStats         = "get-stats"
)

// Error codes carried in Response.ErrorCode.
const (
	CodeNotFound       = "NOT_FOUND"
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInternalError  = "INTERNAL_ERROR"
	CodeUnknownTool    = "UNKNOWN_TOOL"
)

// StatusAppStarted is the success status of a completed launch.
const StatusAppStarted = "app_started"

// ArgList accepts either a single string or a list of strings; the string
// form is split on whitespace, the list form passes through as-is.
type ArgList []string

func (a *ArgList) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*a = ArgList(strings.Fields(single))
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("args must be a string or a list of strings")
	}
	*a = ArgList(many)
	return nil
}

// Request is the incoming operation envelope.
type Request struct {
	ToolName     string               `json:"tool_name"`
	RequestID    string               `json:"request_id,omitempty"`
	App          string               `json:"app,omitempty"`
	Args         ArgList              `json:"args,omitempty"`
	Options      domain.LaunchOptions `json:"options,omitempty"`
	ForceRefresh bool                 `json:"force_refresh,omitempty"`
	Limit        int                  `json:"limit,omitempty"`
}

// Response is the uniform outgoing envelope. Data is operation-specific.
type Response struct {
	Success    bool   `json:"success"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id"`
	Data       any    `json:"data,omitempty"`
	ErrorCode  string `json:"error_code,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// suggestions maps launch failure kinds to a caller-facing hint.
var suggestions = map[domain.LaunchResult]string{
	domain.LaunchNotFound:            "check the application name or refresh the application list",
	domain.LaunchAccessDenied:        "try launching with elevated privileges",
	domain.LaunchInvalidPath:         "refresh the application list; the installation may have moved",
	domain.LaunchFailed:              "check that the application can start on this system",
	domain.LaunchTimeout:             "the application took too long to start",
	domain.LaunchUnsupportedPlatform: "application launching is not supported on this platform",
}

// Agent dispatches requests. Counters are process-wide and reset only on
// restart.
type Agent struct {
	index    domain.AppIndex
	launcher domain.AppLauncher
	logger   *zap.Logger
	metrics  *Metrics
	started  time.Time

	totalRequests atomic.Int64
	successCount  atomic.Int64
	failureCount  atomic.Int64
	handlers      map[string]func(ctx context.Context, req Request) Response
}

// New wires the façade over the app index and launcher. metrics may be nil.
func New(index domain.AppIndex, launcher domain.AppLauncher, metrics *Metrics, logger *zap.Logger) *Agent {
	a := &Agent{
		index:    index,
		launcher: launcher,
		logger:   logger,
		metrics:  metrics,
		started:  time.Now(),
	}
	a.handlers = map[string]func(ctx context.Context, req Request) Response{
		ToolLaunchApp:        a.handleLaunch,
		ToolListApps:         a.handleList,
		ToolTerminateApp:     a.handleTerminate,
		ToolListRunningApps:  a.handleRunning,
		ToolRefreshApps:      a.handleRefresh,
		ToolGetLaunchHistory: a.handleHistory,
		ToolGetStats:         a.handleStats,
	}
	return a
}

// Handle validates and dispatches one request. It never panics: handler
// panics are caught and converted to an INTERNAL_ERROR response.
func (a *Agent) Handle(ctx context.Context, req Request) (resp Response) {
	start := time.Now()
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	a.totalRequests.Add(1)
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("handler panic",
				zap.String("tool", req.ToolName),
				zap.Any("panic", r))
			resp = Response{
				Success:   false,
				Status:    "error",
				Message:   "internal error while handling request",
				RequestID: req.RequestID,
				ErrorCode: CodeInternalError,
			}
		}
		if resp.Success {
			a.successCount.Add(1)
		} else {
			a.failureCount.Add(1)
		}
		a.metrics.observe(req.ToolName, resp.Success, time.Since(start))
	}()

	if req.ToolName == "" {
		return Response{
			Success:   false,
			Status:    "error",
			Message:   "tool_name is required",
			RequestID: req.RequestID,
			ErrorCode: CodeInvalidRequest,
		}
	}
	handler, ok := a.handlers[req.ToolName]
	if !ok {
		return Response{
			Success:   false,
			Status:    "error",
			Message:   fmt.Sprintf("unknown tool %q", req.ToolName),
			RequestID: req.RequestID,
			ErrorCode: CodeUnknownTool,
		}
	}

	a.logger.Debug("dispatching request",
		zap.String("tool", req.ToolName),
		zap.String("request_id", req.RequestID))
	return handler(ctx, req)
}

func (a *Agent) handleLaunch(ctx context.Context, req Request) Response {
	if req.App == "" {
		return a.selectionList(ctx, req)
	}

	start := time.Now()
	status := a.launcher.Launch(ctx, req.App, []string(req.Args), req.Options)

	switch status.Result {
	case domain.LaunchSuccess:
		return Response{
			Success:   true,
			Status:    StatusAppStarted,
			Message:   status.Message,
			RequestID: req.RequestID,
			Data: map[string]any{
				"app_name":      status.AppName,
				"process_id":    status.ProcessID,
				"start_time":    status.StartTime,
				"launch_method": status.LaunchMethod,
				"duration":      time.Since(start).Seconds(),
			},
		}
	case domain.LaunchAlreadyRunning:
		return Response{
			Success:   true,
			Status:    string(status.Result),
			Message:   status.Message,
			RequestID: req.RequestID,
			Data: map[string]any{
				"app_name":   status.AppName,
				"process_id": status.ProcessID,
			},
		}
	default:
		resp := Response{
			Success:    false,
			Status:     string(status.Result),
			Message:    status.Message,
			RequestID:  req.RequestID,
			Suggestion: suggestions[status.Result],
		}
		if status.Result == domain.LaunchNotFound {
			resp.ErrorCode = CodeNotFound
		}
		if status.ErrorDetails != "" {
			resp.Data = map[string]any{"error_details": status.ErrorDetails}
		}
		return resp
	}
}

// selectionList answers a launch request that omitted the app name with the
// list of launchable names instead of an error.
func (a *Agent) selectionList(ctx context.Context, req Request) Response {
	apps, err := a.index.Apps(ctx, false)
	if err != nil {
		return a.internalError(req, err)
	}
	names := make([]string, 0, len(apps))
	for _, app := range apps {
		names = append(names, app.DisplayName)
	}
	return Response{
		Success:   true,
		Status:    "app_selection",
		Message:   "specify an application to launch",
		RequestID: req.RequestID,
		Data: map[string]any{
			"apps":        names,
			"total_count": len(names),
		},
	}
}

func (a *Agent) handleList(ctx context.Context, req Request) Response {
	apps, err := a.index.Apps(ctx, req.ForceRefresh)
	if err != nil {
		return a.internalError(req, err)
	}
	total := len(apps)
	limit := req.Limit
	if limit <= 0 || limit > total {
		limit = total
	}
	return Response{
		Success:   true,
		Status:    "ok",
		Message:   fmt.Sprintf("%d applications available", total),
		RequestID: req.RequestID,
		Data: map[string]any{
			"total_count":  total,
			"apps":         apps[:limit],
			"has_more":     limit < total,
			"scan_stats":   a.index.Stats(),
			"last_updated": a.index.LastScan(),
		},
	}
}

func (a *Agent) handleTerminate(ctx context.Context, req Request) Response {
	if req.App == "" {
		return Response{
			Success:   false,
			Status:    "error",
			Message:   "app is required for terminate-app",
			RequestID: req.RequestID,
			ErrorCode: CodeInvalidRequest,
		}
	}
	status := a.launcher.Terminate(ctx, req.App)
	if status.Result != domain.LaunchSuccess {
		resp := Response{
			Success:    false,
			Status:     string(status.Result),
			Message:    status.Message,
			RequestID:  req.RequestID,
			Suggestion: suggestions[status.Result],
		}
		if status.Result == domain.LaunchNotFound {
			resp.ErrorCode = CodeNotFound
		}
		return resp
	}
	return Response{
		Success:   true,
		Status:    "app_terminated",
		Message:   status.Message,
		RequestID: req.RequestID,
		Data:      map[string]any{"app_name": status.AppName},
	}
}

func (a *Agent) handleRunning(ctx context.Context, req Request) Response {
	running := a.launcher.RunningApps(ctx)
	return Response{
		Success:   true,
		Status:    "ok",
		Message:   fmt.Sprintf("%d tracked processes", len(running)),
		RequestID: req.RequestID,
		Data: map[string]any{
			"running_apps": running,
			"total_count":  len(running),
		},
	}
}

func (a *Agent) handleRefresh(ctx context.Context, req Request) Response {
	if err := a.index.Refresh(ctx); err != nil {
		return a.internalError(req, err)
	}
	return Response{
		Success:   true,
		Status:    "ok",
		Message:   "application list refreshed",
		RequestID: req.RequestID,
		Data: map[string]any{
			"refresh_time": time.Now(),
			"scan_stats":   a.index.Stats(),
		},
	}
}

func (a *Agent) handleHistory(ctx context.Context, req Request) Response {
	history := a.launcher.History(req.Limit)
	return Response{
		Success:   true,
		Status:    "ok",
		Message:   fmt.Sprintf("%d history entries", len(history)),
		RequestID: req.RequestID,
		Data: map[string]any{
			"history":       history,
			"total_records": a.launcher.HistoryTotal(),
		},
	}
}

func (a *Agent) handleStats(ctx context.Context, req Request) Response {
	return Response{
		Success:   true,
		Status:    "ok",
		Message:   "agent statistics",
		RequestID: req.RequestID,
		Data: map[string]any{
			"agent_stats": map[string]any{
				"total_requests":      a.totalRequests.Load(),
				"successful_requests": a.successCount.Load(),
				"failed_requests":     a.failureCount.Load(),
			},
			"launcher_stats": a.launcher.Stats(),
			"uptime":         time.Since(a.started).Seconds(),
		},
	}
}

func (a *Agent) internalError(req Request, err error) Response {
	a.logger.Error("request failed",
		zap.String("tool", req.ToolName),
		zap.String("request_id", req.RequestID),
		zap.Error(err))
	return Response{
		Success:   false,
		Status:    "error",
		Message:   "internal error while handling request",
		RequestID: req.RequestID,
		ErrorCode: CodeInternalError,
	}
}
