package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AskRequest is a learner question for the assistant pane.
type AskRequest struct {
	Message string `json:"message" binding:"required,max=4000"`
}

// HistoryQuery pages through the learner's submissions.
type HistoryQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=1000"`
}

// Autosave stores the current source as the learner's draft
func (h *Handlers) Autosave(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	if err := ws.Autosave(c.Request.Context()); err != nil {
		h.fail(c, err, http.StatusBadGateway)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Submit sends the current source for grading
func (h *Handlers) Submit(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	sub, err := ws.Submit(c.Request.Context())
	if err != nil {
		h.fail(c, err, http.StatusBadGateway)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"submission": sub,
	})
}

// Ask relays a question to the assistant
func (h *Handlers) Ask(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var req AskRequest
	if !h.bind(c, &req) {
		return
	}

	reply, err := ws.Ask(c.Request.Context(), req.Message)
	if err != nil {
		h.fail(c, err, http.StatusBadGateway)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"reply":   reply,
	})
}

// Recommendations lists suggested problems
func (h *Handlers) Recommendations(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	ids, err := ws.Recommendations(c.Request.Context())
	if err != nil {
		h.fail(c, err, http.StatusBadGateway)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"problem_ids": ids,
	})
}

// History lists the learner's past submissions
func (h *Handlers) History(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var q HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid query: " + err.Error(),
		})
		return
	}

	page, err := ws.History(c.Request.Context(), q.Page, q.PageSize)
	if err != nil {
		h.fail(c, err, http.StatusBadGateway)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"history": page,
	})
}
