package practice

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GriffinCanCode/CodeShin/backend/internal/domain/workspace"
	"github.com/GriffinCanCode/CodeShin/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/CodeShin/backend/internal/infrastructure/tracing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, tweak ...func(*Config)) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	config := DefaultConfig()
	config.BaseURL = srv.URL
	config.Timeout = 5 * time.Second
	config.MaxRetries = 0
	config.RetryWaitMin = time.Millisecond
	config.RetryWaitMax = 5 * time.Millisecond
	for _, fn := range tweak {
		fn(&config)
	}
	return NewClient(config, nil, nil)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func TestProblem(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/problems/", r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("id"))
		writeJSON(w, http.StatusOK, `{
			"id": 42,
			"title": "Two Sum",
			"description": "<p>Given <b>nums</b>   and target.</p><script>alert(1)</script><pre>Input: [1,2]\nOutput: 3</pre>",
			"difficulty": "Easy",
			"is_premium": false,
			"acceptance_rate": null,
			"url": null,
			"related_topics": ["Array"]
		}`)
	})

	p, err := client.Problem(t.Context(), "42")
	require.NoError(t, err)

	assert.Equal(t, "42", p.ID)
	assert.Equal(t, "Two Sum", p.Title)
	assert.NotContains(t, p.Description, "<script")
	assert.Contains(t, p.Description, "<b>nums</b>")
	assert.Equal(t, "Given nums and target.", p.Summary)
	assert.Equal(t, []string{"Input: [1,2]\nOutput: 3"}, p.Examples)
	assert.Zero(t, p.AcceptanceRate)
	assert.Empty(t, p.URL)
	assert.Equal(t, []string{"Array"}, p.RelatedTopics)
}

func TestProblemNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"error": "Problem not found"}`)
	})

	_, err := client.Problem(t.Context(), "7")
	assert.ErrorIs(t, err, workspace.ErrProblemNotFound)
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"first paragraph", "<p>One.</p><p>Two.</p>", "One."},
		{"skips empty paragraphs", "<p> </p><p>Two.</p>", "Two."},
		{"falls back to text", "<div>Plain   text</div>", "Plain text"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, summarize(tt.html))
		})
	}

	long := "<p>" + strings.Repeat("word ", 100) + "</p>"
	got := []rune(summarize(long))
	assert.LessOrEqual(t, len(got), summaryLength+3)
	assert.Equal(t, "...", string(got[len(got)-3:]))
}

func TestProgress(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/autosave_code/":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, map[string]string{"user_id": "u1", "problem_id": "3", "autosave_code": "print(1)"}, body)
			writeJSON(w, http.StatusOK, `{"message": "Code autosaved successfully"}`)
		case "/api/submit_code/":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "print(2)", body["solution_code"])
			writeJSON(w, http.StatusOK, `{"message": "Solution submitted", "version": 2}`)
		case "/api/get_progress_and_code/":
			assert.Equal(t, "u1", r.URL.Query().Get("user_id"))
			writeJSON(w, http.StatusOK, `{"current_problem_id": 3, "autosave_code": "print(1)", "submitted_code": null}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	ctx := t.Context()

	require.NoError(t, client.Autosave(ctx, "u1", "3", "print(1)"))

	sub, err := client.Submit(ctx, "u1", "3", "print(2)")
	require.NoError(t, err)
	assert.Equal(t, &workspace.Submission{Version: 2, Message: "Solution submitted"}, sub)

	draft, err := client.Draft(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, &workspace.Draft{ProblemID: "3", AutosaveCode: "print(1)"}, draft)
}

func TestDraftNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"error": "User progress not found"}`)
	})

	draft, err := client.Draft(t.Context(), "u1")
	assert.NoError(t, err)
	assert.Nil(t, draft)
}

func TestAssistant(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/gpt_interaction/":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "why?", body["message"])
			assert.Equal(t, "x = 1", body["code"])
			writeJSON(w, http.StatusOK, `{"message": "ok", "gpt_reply": "Because."}`)
		case "/api/get_recommendations/":
			writeJSON(w, http.StatusOK, `{"recommended_problems": [3, 7]}`)
		}
	})
	ctx := t.Context()

	reply, err := client.Ask(ctx, "u1", "3", "why?", "x = 1")
	require.NoError(t, err)
	assert.Equal(t, "Because.", reply)

	ids, err := client.Recommend(ctx, "u1", "3")
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "7"}, ids)
}

func TestRecommendNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"error": "No recommendations found for this user"}`)
	})

	ids, err := client.Recommend(t.Context(), "u1", "3")
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.NotNil(t, ids)
}

func TestHistory(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/get_user_history/", r.URL.Path)
		assert.Equal(t, "u1", r.URL.Query().Get("user_id"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "50", r.URL.Query().Get("page_size"))
		writeJSON(w, http.StatusOK, `{
			"history": [
				{"problem_id": 1, "problem_id__title": "Two Sum", "version": 3, "is_passed": true,
				 "submission_status": null, "timestamp": "2025-03-01T12:30:00.123Z"},
				{"problem_id": 9, "problem_id__title": "Palindrome", "version": 1, "is_passed": false,
				 "submission_status": "Time Limit Exceeded", "timestamp": "2025-03-02T08:00:00"},
				{"problem_id": 4, "problem_id__title": "Median", "version": 2, "is_passed": false,
				 "submission_status": null, "timestamp": "garbage"}
			],
			"total_pages": 4,
			"current_page": 2,
			"total_records": 153
		}`)
	})

	page, err := client.History(t.Context(), "u1", 2, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 50, page.PageSize)
	assert.Equal(t, 4, page.TotalPages)
	assert.Equal(t, 153, page.TotalRecords)
	require.Len(t, page.Entries, 3)

	first := page.Entries[0]
	assert.Equal(t, "1", first.ProblemID)
	assert.Equal(t, "Two Sum", first.ProblemTitle)
	assert.Equal(t, 3, first.Version)
	assert.True(t, first.Passed)
	assert.Equal(t, "Passed", first.Status)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 30, 0, 123000000, time.UTC), first.SubmittedAt)

	assert.Equal(t, "Time Limit Exceeded", page.Entries[1].Status)
	assert.Equal(t, time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC), page.Entries[1].SubmittedAt)

	assert.Equal(t, "Failed", page.Entries[2].Status)
	assert.True(t, page.Entries[2].SubmittedAt.IsZero())
}

func TestHistoryPageOutOfRange(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"error": "Page out of range"}`)
	})

	_, err := client.History(t.Context(), "u1", 9, 10)
	assert.ErrorIs(t, err, workspace.ErrPageOutOfRange)
}

func TestAPIErrorMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"error": "Invalid user_id"}`)
	})

	err := client.Autosave(t.Context(), "bad", "3", "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Invalid user_id", apiErr.Message)
	assert.Equal(t, "autosave_code", apiErr.Endpoint)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestBreaker(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusBadRequest)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, int(status.Load()), `{"error": "nope"}`)
	}, func(c *Config) {
		c.BreakerFailures = 2
	})
	ctx := t.Context()

	for i := 0; i < 5; i++ {
		_, err := client.Problem(ctx, "1")
		require.Error(t, err)
	}
	assert.Equal(t, resilience.StateClosed, client.BreakerState(), "client errors must not trip the breaker")

	status.Store(http.StatusInternalServerError)
	for i := 0; i < 2; i++ {
		_, err := client.Problem(ctx, "1")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	}
	assert.Equal(t, resilience.StateOpen, client.BreakerState())

	_, err := client.Problem(ctx, "1")
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
}

func TestRetryPolicy(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, `{"error": "busy"}`)
	}, func(c *Config) {
		c.MaxRetries = 2
	})
	ctx := t.Context()

	_, err := client.Problem(ctx, "1")
	require.Error(t, err)
	assert.Equal(t, int32(3), hits.Load(), "reads are retried")

	hits.Store(0)
	_, err = client.Submit(ctx, "u1", "1", "x")
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load(), "writes are not retried on server errors")
}

func TestWritesNotRetriedOnTransportError(t *testing.T) {
	var posts atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusOK, `{}`)
			return
		}
		posts.Add(1)
		conn, _, err := w.(http.Hijacker).Hijack()
		require.NoError(t, err)
		conn.Close()
	}, func(c *Config) {
		c.MaxRetries = 3
	})

	_, err := client.Submit(t.Context(), "u1", "1", "x")
	require.Error(t, err)
	assert.Equal(t, int32(1), posts.Load())
}

func TestTracePropagation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "trace-1", r.Header.Get(tracing.TraceHeader))
		assert.Equal(t, "span-1", r.Header.Get(tracing.SpanHeader))
		writeJSON(w, http.StatusOK, `{"recommended_problems": []}`)
	})

	header := http.Header{}
	header.Set(tracing.TraceHeader, "trace-1")
	header.Set(tracing.SpanHeader, "span-1")
	ctx := tracing.Extract(t.Context(), header)

	ids, err := client.Recommend(ctx, "u1", "1")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
