package practice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"unicode/utf8"

	"github.com/GriffinCanCode/CodeShin/backend/internal/infrastructure/monitoring"
	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

var (
	// ErrScriptTooLarge is returned when a script exceeds MaxScriptBytes.
	ErrScriptTooLarge = errors.New("script exceeds size limit")
	// ErrNotText is returned when a script body is not text.
	ErrNotText = errors.New("script is not text")
)

// FetchScript downloads a prelude script and returns it as UTF-8. It matches
// sandbox.FetchFunc. Scripts are usually hosted off the practice backend, so
// the request bypasses the breaker.
func (c *Client) FetchScript(ctx context.Context, url string) (string, error) {
	timer := monitoring.NewTimer(c.metrics, "script")

	resp, err := c.resty.R().
		SetContext(ctx).
		SetHeader("Accept", "*/*").
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		timer.Stop("error")
		return "", fmt.Errorf("fetch script %s: %w", url, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		timer.Stop("error")
		return "", &APIError{Endpoint: "script", Status: resp.StatusCode()}
	}

	data, err := readLimited(body, c.config.MaxScriptBytes)
	if err != nil {
		timer.Stop("error")
		return "", fmt.Errorf("fetch script %s: %w", url, err)
	}

	src, err := decodeScript(data, resp.Header().Get("Content-Type"))
	if err != nil {
		timer.Stop("error")
		return "", fmt.Errorf("fetch script %s: %w", url, err)
	}
	timer.Stop("success")

	c.logger.Debug("Fetched script", zap.String("url", url), zap.Int("bytes", len(data)))
	return src, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrScriptTooLarge
	}
	return data, nil
}

// decodeScript rejects binary bodies and converts legacy encodings to UTF-8.
// A charset in contentType wins over detection.
func decodeScript(data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	detected := mimetype.Detect(data)
	if !isText(detected) {
		return "", fmt.Errorf("%w: detected %s", ErrNotText, detected.String())
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	var (
		r   io.Reader
		err error
	)
	if _, params, perr := mime.ParseMediaType(contentType); perr == nil && params["charset"] != "" {
		r, err = charset.NewReader(bytes.NewReader(data), contentType)
	} else {
		best, derr := chardet.NewTextDetector().DetectBest(data)
		if derr != nil {
			return "", fmt.Errorf("detect charset: %w", derr)
		}
		r, err = charset.NewReaderLabel(best.Charset, bytes.NewReader(data))
	}
	if err != nil {
		return "", fmt.Errorf("decode charset: %w", err)
	}

	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decode charset: %w", err)
	}
	return string(decoded), nil
}

func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
