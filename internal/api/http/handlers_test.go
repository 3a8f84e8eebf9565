package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/GriffinCanCode/CodeShin/backend/internal/domain/layout"
	"github.com/GriffinCanCode/CodeShin/backend/internal/domain/sandbox"
	"github.com/GriffinCanCode/CodeShin/backend/internal/domain/workspace"
	"github.com/GriffinCanCode/CodeShin/backend/internal/infrastructure/resilience"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	problems map[string]*workspace.Problem
	askErr   error
	state    resilience.State
	saved    []string
}

func (f *fakeBackend) Problem(_ context.Context, id string) (*workspace.Problem, error) {
	if p, ok := f.problems[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("problem %s: %w", id, workspace.ErrProblemNotFound)
}

func (f *fakeBackend) Autosave(_ context.Context, _, _, source string) error {
	f.saved = append(f.saved, source)
	return nil
}

func (f *fakeBackend) Submit(context.Context, string, string, string) (*workspace.Submission, error) {
	return &workspace.Submission{Version: 1, Message: "Solution submitted"}, nil
}

func (f *fakeBackend) Draft(context.Context, string) (*workspace.Draft, error) {
	return nil, nil
}

func (f *fakeBackend) Ask(_ context.Context, _, _, message, _ string) (string, error) {
	if f.askErr != nil {
		return "", f.askErr
	}
	return "echo: " + message, nil
}

func (f *fakeBackend) Recommend(context.Context, string, string) ([]string, error) {
	return []string{"2", "5"}, nil
}

func (f *fakeBackend) History(_ context.Context, _ string, page, size int) (*workspace.HistoryPage, error) {
	if page > 2 {
		return nil, fmt.Errorf("page %d: %w", page, workspace.ErrPageOutOfRange)
	}
	return &workspace.HistoryPage{
		Entries:      []workspace.HistoryEntry{{ProblemID: "1", ProblemTitle: "Two Sum", Version: page, Status: "Passed"}},
		Page:         page,
		PageSize:     size,
		TotalPages:   2,
		TotalRecords: 2,
	}, nil
}

func (f *fakeBackend) BreakerState() resilience.State { return f.state }

func (f *fakeBackend) providers() workspace.Providers {
	return workspace.Providers{Problems: f, Progress: f, Assistant: f, Recommendations: f, History: f}
}

type envelope struct {
	Success    bool                  `json:"success"`
	Error      string                `json:"error"`
	Applied    bool                  `json:"applied"`
	Reply      string                `json:"reply"`
	Reset      bool                  `json:"reset"`
	ProblemIDs []string              `json:"problem_ids"`
	Workspace  workspace.View        `json:"workspace"`
	Workspaces []workspace.Summary   `json:"workspaces"`
	Layout     layout.Snapshot       `json:"layout"`
	History    workspace.HistoryPage `json:"history"`
	Result     struct {
		Stdout   string             `json:"stdout"`
		Terminal string             `json:"terminal"`
		Error    *sandbox.ErrorInfo `json:"error"`
	} `json:"result"`
}

func newTestRouter(t *testing.T, backend *fakeBackend, providers workspace.Providers) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	loaders := func() sandbox.Loader {
		return sandbox.NewGojaLoader(sandbox.DefaultEngineConfig(), nil)
	}
	manager := workspace.NewManager(workspace.DefaultConfig(), loaders, providers, nil)
	t.Cleanup(manager.Shutdown)

	var status BackendStatus
	if backend != nil {
		status = backend
	}
	router := gin.New()
	NewHandlers(manager, nil, status, nil).Register(router)
	return router
}

// health is the /health body, whose workspaces key carries stats.
type health struct {
	Status     string          `json:"status"`
	Workspaces workspace.Stats `json:"workspaces"`
	Backend    struct {
		Breaker string `json:"breaker"`
	} `json:"backend"`
}

func serve(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func do(t *testing.T, router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := serve(router, method, path, body)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func openWorkspace(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w, env := do(t, router, http.MethodPost, "/workspaces", `{"user_id": "u1", "problem_id": "1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NotEmpty(t, env.Workspace.ID)
	return env.Workspace.ID
}

func twoSum() *fakeBackend {
	return &fakeBackend{problems: map[string]*workspace.Problem{
		"1": {ID: "1", Title: "Two Sum"},
	}}
}

func getHealth(t *testing.T, router *gin.Engine) health {
	t.Helper()
	w := serve(router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var h health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h), w.Body.String())
	return h
}

func TestRootAndHealth(t *testing.T) {
	backend := twoSum()
	router := newTestRouter(t, backend, backend.providers())

	w, _ := do(t, router, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), Version)

	h := getHealth(t, router)
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, "closed", h.Backend.Breaker)
	assert.Zero(t, h.Workspaces.ActiveWorkspaces)

	openWorkspace(t, router)
	backend.state = resilience.StateOpen
	h = getHealth(t, router)
	assert.Equal(t, "degraded", h.Status)
	assert.Equal(t, "open", h.Backend.Breaker)
	assert.Equal(t, 1, h.Workspaces.ActiveWorkspaces)
}

func TestOpenWorkspace(t *testing.T) {
	backend := twoSum()
	router := newTestRouter(t, backend, backend.providers())

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"opens with problem", `{"user_id": "u1", "problem_id": "1"}`, http.StatusCreated},
		{"missing user", `{"problem_id": "1"}`, http.StatusBadRequest},
		{"malformed json", `{"user_id":`, http.StatusBadRequest},
		{"unknown problem", `{"user_id": "u1", "problem_id": "404"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, router, http.MethodPost, "/workspaces", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantStatus == http.StatusCreated, env.Success)
			if env.Success {
				assert.Equal(t, "Two Sum", env.Workspace.Problem.Title)
				assert.Equal(t, []float64{25, 50, 25}, env.Workspace.Layout.Sizes)
				assert.Equal(t, sandbox.StateUnloaded, env.Workspace.Sandbox)
			} else {
				assert.NotEmpty(t, env.Error)
			}
		})
	}
}

func TestWorkspaceLifecycle(t *testing.T) {
	backend := twoSum()
	router := newTestRouter(t, backend, backend.providers())
	id := openWorkspace(t, router)

	w, env := do(t, router, http.MethodGet, "/workspaces", "")
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, env.Workspaces, 1)
	assert.Equal(t, id, env.Workspaces[0].ID)

	w, _ = do(t, router, http.MethodGet, "/workspaces/stats", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"active_workspaces":1`)

	w, _ = do(t, router, http.MethodDelete, "/workspaces/"+id, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = do(t, router, http.MethodGet, "/workspaces/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)

	w, _ = do(t, router, http.MethodDelete, "/workspaces/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRun(t *testing.T) {
	backend := twoSum()
	router := newTestRouter(t, backend, backend.providers())
	id := openWorkspace(t, router)

	w, _ := do(t, router, http.MethodPut, "/workspaces/"+id+"/source", `{"source": "print('hi')"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, env := do(t, router, http.MethodPost, "/workspaces/"+id+"/run", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, env.Result.Error)
	assert.Equal(t, "hi\n", env.Result.Stdout)
	assert.Equal(t, "hi\n", env.Result.Terminal)
	assert.True(t, env.Layout.Terminal.Visible)

	do(t, router, http.MethodPut, "/workspaces/"+id+"/source", `{"source": "print('partial'); throw new Error('bad input')"}`)
	w, env = do(t, router, http.MethodPost, "/workspaces/"+id+"/run", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Result.Error)
	assert.Equal(t, sandbox.KindExecution, env.Result.Error.Kind)
	assert.Empty(t, env.Result.Stdout)
	assert.Contains(t, env.Result.Terminal, "bad input")

	w, env = do(t, router, http.MethodGet, "/workspaces/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, sandbox.StateReady, env.Workspace.Sandbox)
	assert.EqualValues(t, 2, env.Workspace.Runs)

	// Only a failed load can be retried.
	_, env = do(t, router, http.MethodPost, "/workspaces/"+id+"/sandbox/retry", "")
	assert.False(t, env.Reset)
}

func TestUpdateSourceValidation(t *testing.T) {
	router := newTestRouter(t, nil, workspace.Providers{})
	id := openWorkspace(t, router)
	path := "/workspaces/" + id + "/source"

	sourceBody := func(source string) string {
		b, err := json.Marshal(map[string]string{"source": source})
		require.NoError(t, err)
		return string(b)
	}

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"missing source", `{}`, http.StatusBadRequest},
		{"empty source", `{"source": ""}`, http.StatusOK},
		{"escaped characters", sourceBody(strings.Repeat("<", 100000)), http.StatusOK},
		{"escaped at limit", sourceBody(strings.Repeat("<", MaxSourceBytes)), http.StatusOK},
		{"decoded over limit", sourceBody(strings.Repeat("x", MaxSourceBytes+1)), http.StatusRequestEntityTooLarge},
		{"body over limit", sourceBody(strings.Repeat("x", maxSourceBody)), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, router, http.MethodPut, path, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code, env.Error)
		})
	}

	w, env := do(t, router, http.MethodGet, "/workspaces/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, env.Workspace.Source, MaxSourceBytes)
}

func TestOpenWorkspaceSourceLimit(t *testing.T) {
	router := newTestRouter(t, nil, workspace.Providers{})

	body := func(source string) string {
		b, err := json.Marshal(OpenRequest{UserID: "u1", Source: source})
		require.NoError(t, err)
		return string(b)
	}

	w, env := do(t, router, http.MethodPost, "/workspaces", body(strings.Repeat("<", 100000)))
	require.Equal(t, http.StatusCreated, w.Code, env.Error)
	assert.Len(t, env.Workspace.Source, 100000)

	w, _ = do(t, router, http.MethodPost, "/workspaces", body(strings.Repeat("x", MaxSourceBytes+1)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestLayoutRoutes(t *testing.T) {
	router := newTestRouter(t, nil, workspace.Providers{})
	id := openWorkspace(t, router)
	base := "/workspaces/" + id

	w, env := do(t, router, http.MethodPost, base+"/layout/toggle", `{"pane": "assistant"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, env.Layout.Sizes, 2)
	assert.InDelta(t, 100.0/3, env.Layout.Sizes[0], 1e-9)
	assert.InDelta(t, 200.0/3, env.Layout.Sizes[1], 1e-9)
	assert.Equal(t, []float64{25, 50, 25}, env.Layout.SavedSizes)

	w, env = do(t, router, http.MethodPost, base+"/layout/toggle", `{"pane": "assistant"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []float64{25, 50, 25}, env.Layout.Sizes)

	for _, pane := range []string{"editor", "sidebar"} {
		w, env = do(t, router, http.MethodPost, base+"/layout/toggle", `{"pane": "`+pane+`"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code, pane)
		assert.NotEmpty(t, env.Error)
	}

	// Resize outside a drag is ignored.
	_, env = do(t, router, http.MethodPost, base+"/layout/resize", `{"sizes": [20, 60, 20]}`)
	assert.False(t, env.Applied)
	assert.Equal(t, []float64{25, 50, 25}, env.Layout.Sizes)

	_, env = do(t, router, http.MethodPost, base+"/layout/drag/start", "")
	assert.True(t, env.Layout.Dragging)

	_, env = do(t, router, http.MethodPost, base+"/layout/resize", `{"sizes": [20, 60, 20]}`)
	assert.True(t, env.Applied)
	assert.InDeltaSlice(t, []float64{20, 60, 20}, env.Layout.Sizes, 1e-9)

	w, env = do(t, router, http.MethodPost, base+"/layout/drag/end", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, env.Layout.Dragging)
	assert.InDeltaSlice(t, []float64{20, 60, 20}, env.Layout.Sizes, 1e-9)

	_, env = do(t, router, http.MethodPost, base+"/layout/restore", "")
	assert.Equal(t, []float64{25, 50, 25}, env.Layout.Sizes)

	w, _ = do(t, router, http.MethodPost, base+"/layout/container", `{"width": -5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, env = do(t, router, http.MethodPost, base+"/layout/container", `{"width": 400}`)
	assert.Equal(t, 25.0, env.Layout.MinPercent)

	_, env = do(t, router, http.MethodPost, base+"/terminal/toggle", "")
	assert.True(t, env.Layout.Terminal.Visible)

	_, env = do(t, router, http.MethodPost, base+"/terminal/resize", `{"sizes": [60, 40]}`)
	assert.True(t, env.Applied)
	assert.InDeltaSlice(t, []float64{60, 40}, env.Layout.Terminal.Sizes, 1e-9)

	w, env = do(t, router, http.MethodGet, base+"/layout", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.InDeltaSlice(t, []float64{60, 40}, env.Layout.Terminal.Sizes, 1e-9)

	w, _ = do(t, router, http.MethodPost, "/workspaces/ws_missing/layout/restore", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBackendRelays(t *testing.T) {
	backend := twoSum()
	router := newTestRouter(t, backend, backend.providers())
	id := openWorkspace(t, router)
	base := "/workspaces/" + id

	do(t, router, http.MethodPut, base+"/source", `{"source": "x = 1"}`)
	w, _ := do(t, router, http.MethodPost, base+"/autosave", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"x = 1"}, backend.saved)

	w, _ = do(t, router, http.MethodPost, base+"/submit", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":1`)

	_, env := do(t, router, http.MethodPost, base+"/assistant", `{"message": "hint?"}`)
	assert.Equal(t, "echo: hint?", env.Reply)

	w, _ = do(t, router, http.MethodPost, base+"/assistant", `{"message": ""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, router, http.MethodPost, base+"/assistant", `{"message": "   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	backend.askErr = errors.New("practice backend gpt_interaction: 500 upstream")
	w, env = do(t, router, http.MethodPost, base+"/assistant", `{"message": "hint?"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, env.Error, "upstream")

	backend.askErr = fmt.Errorf("gpt_interaction: %w", resilience.ErrCircuitOpen)
	w, _ = do(t, router, http.MethodPost, base+"/assistant", `{"message": "hint?"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	_, env = do(t, router, http.MethodGet, base+"/recommendations", "")
	assert.Equal(t, []string{"2", "5"}, env.ProblemIDs)
}

func TestHistory(t *testing.T) {
	backend := twoSum()
	router := newTestRouter(t, backend, backend.providers())
	base := "/workspaces/" + openWorkspace(t, router) + "/history"

	w, env := do(t, router, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, w.Code, env.Error)
	assert.Equal(t, 1, env.History.Page)
	assert.Equal(t, workspace.DefaultHistoryPageSize, env.History.PageSize)
	require.Len(t, env.History.Entries, 1)
	assert.Equal(t, "Two Sum", env.History.Entries[0].ProblemTitle)

	w, env = do(t, router, http.MethodGet, base+"?page=2&page_size=100", "")
	require.Equal(t, http.StatusOK, w.Code, env.Error)
	assert.Equal(t, 2, env.History.Page)
	assert.Equal(t, 100, env.History.PageSize)

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{"page out of range", "?page=3", http.StatusNotFound},
		{"negative page", "?page=-1", http.StatusBadRequest},
		{"page size too large", "?page_size=5000", http.StatusBadRequest},
		{"not a number", "?page=abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, router, http.MethodGet, base+tt.query, "")
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestRelaysWithoutProviders(t *testing.T) {
	router := newTestRouter(t, nil, workspace.Providers{})
	id := openWorkspace(t, router)

	for _, path := range []string{"/autosave", "/submit"} {
		w, _ := do(t, router, http.MethodPost, "/workspaces/"+id+path, "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
	for _, path := range []string{"/recommendations", "/history"} {
		w, _ := do(t, router, http.MethodGet, "/workspaces/"+id+path, "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{workspace.ErrWorkspaceNotFound, http.StatusNotFound},
		{fmt.Errorf("x: %w", workspace.ErrProblemNotFound), http.StatusNotFound},
		{fmt.Errorf("history: %w", workspace.ErrPageOutOfRange), http.StatusNotFound},
		{layout.ErrPaneFixed, http.StatusBadRequest},
		{workspace.ErrEmptyMessage, http.StatusBadRequest},
		{workspace.ErrManagerClosed, http.StatusServiceUnavailable},
		{resilience.ErrTooManyRequests, http.StatusServiceUnavailable},
		{errors.New("other"), http.StatusTeapot},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err, http.StatusTeapot), tt.err.Error())
	}
}
