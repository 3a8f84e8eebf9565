package practice

import (
	"context"
	"errors"
	"strconv"

	"github.com/GriffinCanCode/CodeShin/backend/internal/domain/workspace"
	"github.com/go-resty/resty/v2"
)

type autosaveRequest struct {
	UserID       string `json:"user_id"`
	ProblemID    string `json:"problem_id"`
	AutosaveCode string `json:"autosave_code"`
}

type submitRequest struct {
	UserID       string `json:"user_id"`
	ProblemID    string `json:"problem_id"`
	SolutionCode string `json:"solution_code"`
}

type submitResponse struct {
	Message string `json:"message"`
	Version int    `json:"version"`
}

type progressResponse struct {
	CurrentProblemID int64   `json:"current_problem_id"`
	AutosaveCode     *string `json:"autosave_code"`
	SubmittedCode    *string `json:"submitted_code"`
}

// Autosave stores the learner's in-progress code.
func (c *Client) Autosave(ctx context.Context, userID, problemID, source string) error {
	_, err := c.do(ctx, "autosave_code", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(autosaveRequest{
			UserID:       userID,
			ProblemID:    problemID,
			AutosaveCode: source,
		}).Post("/api/autosave_code/")
	})
	return err
}

// Submit sends code for scoring and returns the new version number.
func (c *Client) Submit(ctx context.Context, userID, problemID, source string) (*workspace.Submission, error) {
	var body submitResponse
	_, err := c.do(ctx, "submit_code", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(submitRequest{
			UserID:       userID,
			ProblemID:    problemID,
			SolutionCode: source,
		}).SetResult(&body).Post("/api/submit_code/")
	})
	if err != nil {
		return nil, err
	}
	return &workspace.Submission{Version: body.Version, Message: body.Message}, nil
}

// Draft returns the learner's current problem and saved code, or nil when the
// learner has no progress yet.
func (c *Client) Draft(ctx context.Context, userID string) (*workspace.Draft, error) {
	var body progressResponse
	_, err := c.do(ctx, "get_progress_and_code", func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParam("user_id", userID).SetResult(&body).Get("/api/get_progress_and_code/")
	})
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	draft := &workspace.Draft{ProblemID: strconv.FormatInt(body.CurrentProblemID, 10)}
	if body.AutosaveCode != nil {
		draft.AutosaveCode = *body.AutosaveCode
	}
	if body.SubmittedCode != nil {
		draft.SubmittedCode = *body.SubmittedCode
	}
	return draft, nil
}
