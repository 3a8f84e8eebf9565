package http

import (
	"net/http"

	"github.com/GriffinCanCode/CodeShin/backend/internal/domain/workspace"
	"github.com/gin-gonic/gin"
)

// MaxSourceBytes bounds an editor source upload.
const MaxSourceBytes = 256 << 10

// maxSourceBody bounds the JSON body carrying a source. JSON escaping can
// grow a byte up to six (\u003c), so the decoded length is checked separately.
const maxSourceBody = 6*MaxSourceBytes + 1024

// OpenRequest opens a workspace for a learner.
type OpenRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	ProblemID string `json:"problem_id"`
	Source    string `json:"source"`
}

// SourceRequest replaces the editor content. An empty source is allowed.
type SourceRequest struct {
	Source *string `json:"source" binding:"required"`
}

// OpenWorkspace restores the learner's problem and draft into a new workspace
func (h *Handlers) OpenWorkspace(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSourceBody)
	var req OpenRequest
	if !h.bind(c, &req) {
		return
	}
	if len(req.Source) > MaxSourceBytes {
		h.tooLarge(c)
		return
	}

	ws, err := h.manager.Open(c.Request.Context(), workspace.OpenOptions{
		UserID:    req.UserID,
		ProblemID: req.ProblemID,
		Source:    req.Source,
	})
	if err != nil {
		h.fail(c, err, http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"workspace": ws.View(),
	})
}

// ListWorkspaces lists all open workspaces
func (h *Handlers) ListWorkspaces(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"workspaces": h.manager.List(),
	})
}

// WorkspaceStats returns manager statistics
func (h *Handlers) WorkspaceStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   h.manager.Stats(),
	})
}

// GetWorkspace returns the full workspace view
func (h *Handlers) GetWorkspace(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"workspace": ws.View(),
	})
}

// CloseWorkspace tears down a workspace and its sandbox
func (h *Handlers) CloseWorkspace(c *gin.Context) {
	wsID := c.Param("id")
	if err := h.manager.Close(wsID); err != nil {
		h.fail(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"workspace_id": wsID,
	})
}

// UpdateSource replaces the editor content
func (h *Handlers) UpdateSource(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSourceBody)
	var req SourceRequest
	if !h.bind(c, &req) {
		return
	}
	if len(*req.Source) > MaxSourceBytes {
		h.tooLarge(c)
		return
	}

	ws.SetSource(*req.Source)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Run executes the current source. A failed run is still a successful
// request; the failure is reported in the result.
func (h *Handlers) Run(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}

	out := ws.Run(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  out,
		"layout":  ws.Layout().Snapshot(),
	})
}

// RetrySandbox clears a failed interpreter load
func (h *Handlers) RetrySandbox(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}

	reset := ws.RetrySandbox()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"reset":   reset,
		"sandbox": ws.Host().State(),
	})
}
