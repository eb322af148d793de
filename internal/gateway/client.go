package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shareit/internal/models"

	"github.com/rs/zerolog"
)

// Response is what the server answered, relayed to the client verbatim.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// ServerClient forwards validated requests to the ShareIt server.
type ServerClient struct {
	baseURL string
	http    *http.Client
	retry   RetryPolicy
	logger  *zerolog.Logger
}

func NewServerClient(baseURL string, timeout time.Duration, retry RetryPolicy, logger *zerolog.Logger) *ServerClient {
	return &ServerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		retry:   retry,
		logger:  logger,
	}
}

// Forward sends method, path and query with the given body and caller
// headers. GETs are retried on transport errors.
func (c *ServerClient) Forward(ctx context.Context, method, path, rawQuery string, header http.Header, body []byte) (*Response, error) {
	target := c.baseURL + path
	if rawQuery != "" {
		target += "?" + rawQuery
	}

	attempts := 1
	if method == http.MethodGet && c.retry.MaxRetries > 0 {
		attempts += c.retry.MaxRetries
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := c.do(ctx, method, target, header, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if attempt == attempts || ctx.Err() != nil {
			break
		}
		c.logger.Warn().Err(err).
			Str("method", method).
			Str("path", path).
			Int("attempt", attempt).
			Msg("server request failed, retrying")
		if err := c.retry.wait(ctx, attempt); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("forward %s %s: %w", method, path, lastErr)
}

var forwardedHeaders = []string{models.UserIDHeader, "Content-Type", "X-Request-Id"}

func (c *ServerClient) do(ctx context.Context, method, target string, header http.Header, body []byte) (*Response, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	for _, name := range forwardedHeaders {
		if v := header.Get(name); v != "" {
			req.Header.Set(name, v)
		}
	}
	if len(body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: raw}, nil
}
