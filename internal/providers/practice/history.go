package practice

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/GriffinCanCode/CodeShin/backend/internal/domain/workspace"
	"github.com/go-resty/resty/v2"
)

type historyRow struct {
	ProblemID        int64   `json:"problem_id"`
	ProblemTitle     string  `json:"problem_id__title"`
	Version          int     `json:"version"`
	IsPassed         bool    `json:"is_passed"`
	SubmissionStatus *string `json:"submission_status"`
	Timestamp        string  `json:"timestamp"`
}

type historyResponse struct {
	History      []historyRow `json:"history"`
	TotalPages   int          `json:"total_pages"`
	CurrentPage  int          `json:"current_page"`
	TotalRecords int          `json:"total_records"`
}

// The backend emits timezone-aware timestamps, or naive ones when time zone
// support is off.
var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"}

// History returns one page of the learner's graded submissions. A page past
// the end maps to workspace.ErrPageOutOfRange.
func (c *Client) History(ctx context.Context, userID string, page, size int) (*workspace.HistoryPage, error) {
	var body historyResponse
	_, err := c.do(ctx, "get_user_history", func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParams(map[string]string{
			"user_id":   userID,
			"page":      strconv.Itoa(page),
			"page_size": strconv.Itoa(size),
		}).SetResult(&body).Get("/api/get_user_history/")
	})
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("page %d: %w", page, workspace.ErrPageOutOfRange)
	}
	if err != nil {
		return nil, err
	}

	entries := make([]workspace.HistoryEntry, len(body.History))
	for i, row := range body.History {
		entries[i] = workspace.HistoryEntry{
			ProblemID:    strconv.FormatInt(row.ProblemID, 10),
			ProblemTitle: row.ProblemTitle,
			Version:      row.Version,
			Passed:       row.IsPassed,
			Status:       submissionStatus(row),
			SubmittedAt:  parseTimestamp(row.Timestamp),
		}
	}

	current := body.CurrentPage
	if current == 0 {
		current = page
	}
	return &workspace.HistoryPage{
		Entries:      entries,
		Page:         current,
		PageSize:     size,
		TotalPages:   body.TotalPages,
		TotalRecords: body.TotalRecords,
	}, nil
}

// submissionStatus prefers the grader's status, falling back to pass/fail.
func submissionStatus(row historyRow) string {
	switch {
	case row.SubmissionStatus != nil && *row.SubmissionStatus != "":
		return *row.SubmissionStatus
	case row.IsPassed:
		return "Passed"
	default:
		return "Failed"
	}
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
