package http

import (
	"errors"
	"net/http"

	"github.com/GriffinCanCode/CodeShin/backend/internal/domain/layout"
	"github.com/GriffinCanCode/CodeShin/backend/internal/domain/workspace"
	"github.com/GriffinCanCode/CodeShin/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/CodeShin/backend/internal/infrastructure/resilience"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// BackendStatus reports the health of the practice backend client.
type BackendStatus interface {
	BreakerState() resilience.State
}

// Handlers contains all HTTP handlers
type Handlers struct {
	manager *workspace.Manager
	metrics *monitoring.Metrics
	backend BackendStatus
	logger  *zap.Logger
}

// NewHandlers creates a new handler set. metrics and backend may be nil.
func NewHandlers(manager *workspace.Manager, metrics *monitoring.Metrics, backend BackendStatus, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		manager: manager,
		metrics: metrics,
		backend: backend,
		logger:  logger,
	}
}

// Register mounts the workspace routes on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	ws := r.Group("/workspaces")
	ws.POST("", h.OpenWorkspace)
	ws.GET("", h.ListWorkspaces)
	ws.GET("/stats", h.WorkspaceStats)
	ws.GET("/:id", h.GetWorkspace)
	ws.DELETE("/:id", h.CloseWorkspace)
	ws.PUT("/:id/source", h.UpdateSource)
	ws.POST("/:id/run", h.Run)
	ws.POST("/:id/sandbox/retry", h.RetrySandbox)

	ws.GET("/:id/layout", h.GetLayout)
	ws.POST("/:id/layout/toggle", h.TogglePane)
	ws.POST("/:id/layout/drag/start", h.BeginDrag)
	ws.POST("/:id/layout/resize", h.Resize)
	ws.POST("/:id/layout/drag/end", h.EndDrag)
	ws.POST("/:id/layout/restore", h.RestoreLayout)
	ws.POST("/:id/layout/container", h.SetContainer)
	ws.POST("/:id/terminal/toggle", h.ToggleTerminal)
	ws.POST("/:id/terminal/resize", h.ResizeTerminal)

	ws.POST("/:id/autosave", h.Autosave)
	ws.POST("/:id/submit", h.Submit)
	ws.POST("/:id/assistant", h.Ask)
	ws.GET("/:id/recommendations", h.Recommendations)
	ws.GET("/:id/history", h.History)
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "CodeShin Workspace Service",
		"version": Version,
	})
}

// Health reports workspace statistics, request metrics and the backend
// circuit breaker. An open breaker marks the service degraded.
func (h *Handlers) Health(c *gin.Context) {
	status := "healthy"
	body := gin.H{
		"workspaces": h.manager.Stats(),
	}
	if h.metrics != nil {
		body["metrics"] = h.metrics.Snapshot()
	}
	if h.backend != nil {
		state := h.backend.BreakerState()
		body["backend"] = gin.H{"breaker": state}
		if state == resilience.StateOpen {
			status = "degraded"
		}
	}
	body["status"] = status
	c.JSON(http.StatusOK, body)
}

// statusFor maps an error to an HTTP status, using fallback for errors the
// domain does not classify.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, workspace.ErrWorkspaceNotFound),
		errors.Is(err, workspace.ErrWorkspaceClosed),
		errors.Is(err, workspace.ErrProblemNotFound),
		errors.Is(err, workspace.ErrPageOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, layout.ErrPaneFixed),
		errors.Is(err, layout.ErrUnknownPane),
		errors.Is(err, workspace.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, workspace.ErrManagerClosed),
		errors.Is(err, workspace.ErrProviderUnavailable),
		errors.Is(err, resilience.ErrCircuitOpen),
		errors.Is(err, resilience.ErrTooManyRequests):
		return http.StatusServiceUnavailable
	default:
		return fallback
	}
}

// fail records err on the context and writes the error envelope.
func (h *Handlers) fail(c *gin.Context, err error, fallback int) {
	status := statusFor(err, fallback)
	_ = c.Error(err)
	if status >= http.StatusInternalServerError {
		h.logger.Warn("Request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err))
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

// bind decodes the JSON body into req, answering 400 on failure and 413 when
// the body exceeds its limit.
func (h *Handlers) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(err)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.tooLarge(c)
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid request: " + err.Error(),
		})
		return false
	}
	return true
}

func (h *Handlers) tooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{
		"success": false,
		"error":   "source too large",
	})
}

// workspace resolves the :id parameter.
func (h *Handlers) workspace(c *gin.Context) (*workspace.Workspace, bool) {
	ws, err := h.manager.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err, http.StatusNotFound)
		return nil, false
	}
	return ws, true
}
