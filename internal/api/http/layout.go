package http

import (
	"net/http"

	"github.com/GriffinCanCode/CodeShin/backend/internal/domain/layout"
	"github.com/GriffinCanCode/CodeShin/backend/internal/domain/workspace"
	"github.com/gin-gonic/gin"
)

// ToggleRequest names the pane to show or hide.
type ToggleRequest struct {
	Pane string `json:"pane" binding:"required"`
}

// SizesRequest carries pane sizes in percent.
type SizesRequest struct {
	Sizes []float64 `json:"sizes" binding:"required"`
}

// EndDragRequest carries optional final sizes.
type EndDragRequest struct {
	Sizes []float64 `json:"sizes"`
}

// ContainerRequest reports the rendered container extent in pixels. Zero
// leaves a dimension unchanged.
type ContainerRequest struct {
	Width  float64 `json:"width" binding:"gte=0"`
	Height float64 `json:"height" binding:"gte=0"`
}

// updateLayout applies fn and writes the resulting snapshot.
func (h *Handlers) updateLayout(c *gin.Context, ws *workspace.Workspace, op string, fn func(*layout.Session) (bool, error)) {
	snap, applied, err := ws.UpdateLayout(op, fn)
	if err != nil {
		h.fail(c, err, http.StatusBadRequest)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"applied": applied,
		"layout":  snap,
	})
}

// GetLayout returns the current pane layout
func (h *Handlers) GetLayout(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"layout":  ws.Layout().Snapshot(),
	})
}

// TogglePane shows or hides a pane
func (h *Handlers) TogglePane(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var req ToggleRequest
	if !h.bind(c, &req) {
		return
	}

	h.updateLayout(c, ws, "toggle", func(s *layout.Session) (bool, error) {
		pane, err := layout.ParsePaneID(req.Pane)
		if err != nil {
			return false, err
		}
		return true, s.Toggle(pane)
	})
}

// BeginDrag starts a gutter drag
func (h *Handlers) BeginDrag(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	h.updateLayout(c, ws, "drag_start", func(s *layout.Session) (bool, error) {
		s.BeginDrag()
		return true, nil
	})
}

// Resize applies sizes during a drag
func (h *Handlers) Resize(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var req SizesRequest
	if !h.bind(c, &req) {
		return
	}
	h.updateLayout(c, ws, "resize", func(s *layout.Session) (bool, error) {
		return s.Resize(req.Sizes), nil
	})
}

// EndDrag finishes a drag
func (h *Handlers) EndDrag(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var req EndDragRequest
	if c.Request.ContentLength != 0 && !h.bind(c, &req) {
		return
	}
	h.updateLayout(c, ws, "drag_end", func(s *layout.Session) (bool, error) {
		return s.EndDrag(req.Sizes), nil
	})
}

// RestoreLayout resets the default split
func (h *Handlers) RestoreLayout(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	h.updateLayout(c, ws, "restore", func(s *layout.Session) (bool, error) {
		s.Restore()
		return true, nil
	})
}

// SetContainer updates the container size used for minimum pane widths
func (h *Handlers) SetContainer(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var req ContainerRequest
	if !h.bind(c, &req) {
		return
	}
	h.updateLayout(c, ws, "container", func(s *layout.Session) (bool, error) {
		s.SetContainerSize(req.Width, req.Height)
		return true, nil
	})
}

// ToggleTerminal shows or hides the terminal sub-pane
func (h *Handlers) ToggleTerminal(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	h.updateLayout(c, ws, "terminal_toggle", func(s *layout.Session) (bool, error) {
		s.ToggleTerminal()
		return true, nil
	})
}

// ResizeTerminal sets the editor/terminal split
func (h *Handlers) ResizeTerminal(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var req SizesRequest
	if !h.bind(c, &req) {
		return
	}
	h.updateLayout(c, ws, "terminal_resize", func(s *layout.Session) (bool, error) {
		return s.ResizeTerminal(req.Sizes), nil
	})
}
