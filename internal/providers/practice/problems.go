package practice

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/GriffinCanCode/CodeShin/backend/internal/domain/workspace"
	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/go-resty/resty/v2"
)

// summaryLength bounds the plain-text problem summary, in runes.
const summaryLength = 280

type problemResponse struct {
	ID             int64    `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Difficulty     string   `json:"difficulty"`
	IsPremium      bool     `json:"is_premium"`
	AcceptanceRate *float64 `json:"acceptance_rate"`
	URL            *string  `json:"url"`
	RelatedTopics  []string `json:"related_topics"`
}

// Problem fetches one problem. The description is sanitized; a plain-text
// summary and the example blocks are extracted from it.
func (c *Client) Problem(ctx context.Context, id string) (*workspace.Problem, error) {
	var body problemResponse
	_, err := c.do(ctx, "problems", func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParam("id", id).SetResult(&body).Get("/api/problems/")
	})
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("problem %s: %w", id, workspace.ErrProblemNotFound)
	}
	if err != nil {
		return nil, err
	}

	description := c.sanitizer.Sanitize(body.Description)
	p := &workspace.Problem{
		ID:            strconv.FormatInt(body.ID, 10),
		Title:         body.Title,
		Description:   description,
		Summary:       summarize(description),
		Examples:      examples(description),
		Difficulty:    body.Difficulty,
		IsPremium:     body.IsPremium,
		RelatedTopics: body.RelatedTopics,
	}
	if body.AcceptanceRate != nil {
		p.AcceptanceRate = *body.AcceptanceRate
	}
	if body.URL != nil {
		p.URL = *body.URL
	}
	return p, nil
}

// summarize returns the first paragraph of an HTML description as plain text.
func summarize(description string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err != nil {
		return ""
	}

	text := doc.Find("p").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.TrimSpace(s.Text()) != ""
	}).First().Text()
	if strings.TrimSpace(text) == "" {
		text = doc.Text()
	}

	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) > summaryLength {
		runes := []rune(text)
		text = strings.TrimSpace(string(runes[:summaryLength])) + "..."
	}
	return text
}

// examples returns the text of every <pre> block, where problem statements
// keep their sample input and output.
func examples(description string) []string {
	doc, err := htmlquery.Parse(strings.NewReader(description))
	if err != nil {
		return nil
	}

	var out []string
	for _, node := range htmlquery.Find(doc, "//pre") {
		if text := strings.TrimSpace(htmlquery.InnerText(node)); text != "" {
			out = append(out, text)
		}
	}
	return out
}
