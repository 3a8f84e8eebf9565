package practice

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-resty/resty/v2"
)

type assistantRequest struct {
	UserID    string `json:"user_id"`
	ProblemID string `json:"problem_id"`
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
}

type assistantResponse struct {
	Message  string `json:"message"`
	GPTReply string `json:"gpt_reply"`
}

type recommendationResponse struct {
	RecommendedProblems []int64 `json:"recommended_problems"`
}

// Ask relays a learner question to the tutor and returns its reply.
func (c *Client) Ask(ctx context.Context, userID, problemID, message, source string) (string, error) {
	var body assistantResponse
	_, err := c.do(ctx, "gpt_interaction", func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(assistantRequest{
			UserID:    userID,
			ProblemID: problemID,
			Message:   message,
			Code:      source,
		}).SetResult(&body).Post("/api/gpt_interaction/")
	})
	if err != nil {
		return "", err
	}
	return body.GPTReply, nil
}

// Recommend returns the problem IDs stored for the learner. Having none is
// not an error.
func (c *Client) Recommend(ctx context.Context, userID, _ string) ([]string, error) {
	var body recommendationResponse
	_, err := c.do(ctx, "get_recommendations", func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParam("user_id", userID).SetResult(&body).Get("/api/get_recommendations/")
	})
	if errors.Is(err, ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(body.RecommendedProblems))
	for i, id := range body.RecommendedProblems {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return ids, nil
}
