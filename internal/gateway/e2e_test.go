package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shareit/internal/api"
	"shareit/internal/config"
	"shareit/internal/models"
	"shareit/internal/repository"
	"shareit/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stack struct {
	t  *testing.T
	gw *httptest.Server
}

func newStack(t *testing.T) *stack {
	t.Helper()
	logger := zerolog.New(io.Discard)
	store := repository.NewMemoryStore()
	srv := api.NewServer(config.APIConfig{}, models.DefaultPageSize, api.Services{
		Users:    service.NewUserService(store, nil, &logger),
		Items:    service.NewItemService(store, nil, &logger),
		Bookings: service.NewBookingService(store, nil, &logger),
		Requests: service.NewRequestService(store, nil, &logger),
	}, store, nil, &logger)
	backend := httptest.NewServer(srv.Handler())
	t.Cleanup(backend.Close)

	client := NewServerClient(backend.URL, 5*time.Second, RetryPolicy{MaxRetries: 0}, &logger)
	gw := httptest.NewServer(New(config.GatewayConfig{}, client, &logger).Handler())
	t.Cleanup(gw.Close)
	return &stack{t: t, gw: gw}
}

func (s *stack) do(method, path string, userID int64, body string) (int, map[string]any) {
	s.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.gw.URL+path, reader)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		req.Header.Set("X-Sharer-User-Id", fmt.Sprint(userID))
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func respID(t *testing.T, body map[string]any) int64 {
	t.Helper()
	v, ok := body["id"].(float64)
	require.True(t, ok, "response has no id: %v", body)
	return int64(v)
}

func TestGatewayToServerBookingFlow(t *testing.T) {
	s := newStack(t)

	status, body := s.do(http.MethodPost, "/users", 0, `{"name":"Owner","email":"owner@example.com"}`)
	require.Equal(t, http.StatusOK, status, body)
	owner := respID(t, body)

	status, body = s.do(http.MethodPost, "/users", 0, `{"name":"Booker","email":"booker@example.com"}`)
	require.Equal(t, http.StatusOK, status, body)
	booker := respID(t, body)

	status, body = s.do(http.MethodPost, "/users", 0, `{"name":"Dup","email":"owner@example.com"}`)
	assert.Equal(t, http.StatusConflict, status)

	status, body = s.do(http.MethodPost, "/items", owner, `{"name":"Drill","description":"Cordless drill","available":true}`)
	require.Equal(t, http.StatusOK, status, body)
	item := respID(t, body)

	start := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	end := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)
	status, body = s.do(http.MethodPost, "/bookings", booker,
		fmt.Sprintf(`{"itemId":%d,"start":"%s","end":"%s"}`, item, start, end))
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "WAITING", body["status"])
	booking := respID(t, body)

	status, body = s.do(http.MethodPost, "/bookings", owner,
		fmt.Sprintf(`{"itemId":%d,"start":"%s","end":"%s"}`, item, start, end))
	assert.Equal(t, http.StatusNotFound, status, body)

	status, body = s.do(http.MethodPatch, fmt.Sprintf("/bookings/%d?approved=true", booking), owner, "")
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "APPROVED", body["status"])

	status, body = s.do(http.MethodPatch, fmt.Sprintf("/bookings/%d?approved=false", booking), owner, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Booking has APPROVED already.", body["error"])

	status, body = s.do(http.MethodGet, fmt.Sprintf("/bookings/%d", booking), 9999, "")
	assert.Equal(t, http.StatusNotFound, status, body)
}

func TestGatewayToServerRejectsBeforeForwarding(t *testing.T) {
	s := newStack(t)

	status, body := s.do(http.MethodPost, "/users", 0, `{"name":"","email":"x@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Field name must not be blank.", body["error"])

	status, _ = s.do(http.MethodGet, "/users", 0, "")
	require.Equal(t, http.StatusOK, status)
}
