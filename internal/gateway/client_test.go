package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string, retries int) *ServerClient {
	logger := zerolog.New(io.Discard)
	return NewServerClient(baseURL, time.Second, RetryPolicy{MaxRetries: retries, InitialDelay: time.Millisecond}, &logger)
}

func TestServerClientForward(t *testing.T) {
	var gotUser, gotBody, gotQuery, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = r.Header.Get("X-Sharer-User-Id")
		gotRequestID = r.Header.Get("X-Request-Id")
		gotQuery = r.URL.RawQuery
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"taken"}`))
	}))
	t.Cleanup(srv.Close)

	header := http.Header{}
	header.Set("X-Sharer-User-Id", "5")
	header.Set("X-Request-Id", "req-1")
	header.Set("Authorization", "secret")

	client := newTestClient(srv.URL+"/", 0)
	resp, err := client.Forward(context.Background(), http.MethodPost, "/users", "a=1", header, []byte(`{"name":"x"}`))
	require.NoError(t, err)

	assert.Equal(t, http.StatusConflict, resp.Status)
	assert.JSONEq(t, `{"error":"taken"}`, string(resp.Body))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "5", gotUser)
	assert.Equal(t, "req-1", gotRequestID)
	assert.Equal(t, "a=1", gotQuery)
	assert.Equal(t, `{"name":"x"}`, gotBody)
}

type flakyTransport struct {
	failures int32
	calls    atomic.Int32
}

func (f *flakyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	n := f.calls.Add(1)
	if n <= f.failures {
		return nil, errors.New("connection refused")
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(`[]`)),
		Request:    r,
	}, nil
}

func TestServerClientRetriesGet(t *testing.T) {
	transport := &flakyTransport{failures: 2}
	client := newTestClient("http://server", 2)
	client.http = &http.Client{Transport: transport}

	resp, err := client.Forward(context.Background(), http.MethodGet, "/users", "", http.Header{}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, int32(3), transport.calls.Load())
}

func TestServerClientGivesUp(t *testing.T) {
	transport := &flakyTransport{failures: 10}
	client := newTestClient("http://server", 2)
	client.http = &http.Client{Transport: transport}

	_, err := client.Forward(context.Background(), http.MethodGet, "/users", "", http.Header{}, nil)
	require.Error(t, err)
	assert.Equal(t, int32(3), transport.calls.Load())
}

func TestServerClientDoesNotRetryWrites(t *testing.T) {
	transport := &flakyTransport{failures: 1}
	client := newTestClient("http://server", 3)
	client.http = &http.Client{Transport: transport}

	_, err := client.Forward(context.Background(), http.MethodPost, "/users", "", http.Header{}, []byte(`{}`))
	require.Error(t, err)
	assert.Equal(t, int32(1), transport.calls.Load())
}
