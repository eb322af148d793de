package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shareit/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockForwarder struct {
	mock.Mock
}

func (m *mockForwarder) Forward(ctx context.Context, method, path, rawQuery string, header http.Header, body []byte) (*Response, error) {
	args := m.Called(method, path, rawQuery, string(body))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Response), args.Error(1)
}

func okResponse(body string) *Response {
	return &Response{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   []byte(body),
	}
}

func newTestGateway(t *testing.T, cfg config.GatewayConfig) (*Gateway, *mockForwarder) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	fwd := new(mockForwarder)
	return New(cfg, fwd, &logger), fwd
}

func send(g *Gateway, method, target string, userID string, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if userID != "" {
		req.Header.Set("X-Sharer-User-Id", userID)
	}
	rec := httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, req)
	return rec
}

func TestGatewayForwardsValidRequests(t *testing.T) {
	g, fwd := newTestGateway(t, config.GatewayConfig{})
	body := `{"name":"Ann","email":"ann@example.com"}`
	fwd.On("Forward", http.MethodPost, "/users", "", body).Return(okResponse(`{"id":1}`), nil)

	rec := send(g, http.MethodPost, "/users", "", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	fwd.AssertExpectations(t)
}

func TestGatewayRelaysServerErrors(t *testing.T) {
	g, fwd := newTestGateway(t, config.GatewayConfig{})
	fwd.On("Forward", http.MethodGet, "/bookings/7", "", "").Return(&Response{
		Status: http.StatusNotFound,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   []byte(`{"error":"Booking with 7 id not found."}`),
	}, nil)

	rec := send(g, http.MethodGet, "/bookings/7", "1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Booking with 7 id not found."}`, rec.Body.String())
}

func TestGatewayRejectsLocally(t *testing.T) {
	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	later := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)
	past := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)

	tests := []struct {
		name    string
		method  string
		target  string
		userID  string
		body    string
		wantMsg string
	}{
		{"BadEmail", http.MethodPost, "/users", "", `{"name":"Ann","email":"nope"}`, "Field email must be a valid email."},
		{"BrokenJSON", http.MethodPost, "/users", "", `{"name":`, ""},
		{"MissingHeader", http.MethodPost, "/items", "", `{"name":"Drill","description":"d","available":true}`, "Missing X-Sharer-User-Id header."},
		{"BadHeader", http.MethodGet, "/items/1", "abc", "", "Invalid X-Sharer-User-Id header: abc"},
		{"ItemWithoutAvailable", http.MethodPost, "/items", "1", `{"name":"Drill","description":"d"}`, "Field available must not be blank."},
		{"BlankComment", http.MethodPost, "/items/1/comment", "1", `{"text":"  "}`, "Field text must not be blank."},
		{"BlankRequest", http.MethodPost, "/requests", "1", `{"description":""}`, "Field description must not be blank."},
		{"CrossedTimes", http.MethodPost, "/bookings", "1", `{"itemId":1,"start":"` + later + `","end":"` + future + `"}`, "Wrong timecodes."},
		{"PastStart", http.MethodPost, "/bookings", "1", `{"itemId":1,"start":"` + past + `","end":"` + future + `"}`, "Field start must not be in the past."},
		{"UnknownState", http.MethodGet, "/bookings?state=UNSUPPORTED_STATUS", "1", "", "Unknown state: UNSUPPORTED_STATUS"},
		{"NegativeFrom", http.MethodGet, "/bookings/owner?from=-1", "1", "", "Uncorrected numbering of page: from -1, size 10"},
		{"ZeroSize", http.MethodGet, "/requests/all?size=0", "1", "", "Uncorrected numbering of page: from 0, size 0"},
		{"TextSize", http.MethodGet, "/items/search?text=x&size=ten", "", "", "Invalid size: ten"},
		{"BadApproved", http.MethodPatch, "/bookings/1?approved=yes", "1", "", "Invalid approved: yes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, fwd := newTestGateway(t, config.GatewayConfig{})
			rec := send(g, tt.method, tt.target, tt.userID, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			if tt.wantMsg != "" {
				assert.JSONEq(t, `{"error":"`+tt.wantMsg+`"}`, rec.Body.String())
			}
			fwd.AssertNotCalled(t, "Forward", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestGatewayAcceptsValidBooking(t *testing.T) {
	g, fwd := newTestGateway(t, config.GatewayConfig{})
	start := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	end := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)
	body := `{"itemId":1,"start":"` + start + `","end":"` + end + `"}`
	fwd.On("Forward", http.MethodPost, "/bookings", "", body).Return(okResponse(`{"id":3}`), nil)

	rec := send(g, http.MethodPost, "/bookings", "2", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	fwd.AssertExpectations(t)
}

func TestGatewayPassesQuery(t *testing.T) {
	g, fwd := newTestGateway(t, config.GatewayConfig{})
	fwd.On("Forward", http.MethodGet, "/bookings", "state=past&from=0&size=5", "").Return(okResponse(`[]`), nil)
	fwd.On("Forward", http.MethodPatch, "/bookings/4", "approved=false", "").Return(okResponse(`{}`), nil)

	assert.Equal(t, http.StatusOK, send(g, http.MethodGet, "/bookings?state=past&from=0&size=5", "1", "").Code)
	assert.Equal(t, http.StatusOK, send(g, http.MethodPatch, "/bookings/4?approved=false", "1", "").Code)
	fwd.AssertExpectations(t)
}

func TestGatewayServerDown(t *testing.T) {
	g, fwd := newTestGateway(t, config.GatewayConfig{})
	fwd.On("Forward", http.MethodGet, "/users", "", "").Return(nil, errors.New("dial tcp: refused"))

	rec := send(g, http.MethodGet, "/users", "", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"server unavailable"}`, rec.Body.String())
}

func TestGatewayHealthz(t *testing.T) {
	g, fwd := newTestGateway(t, config.GatewayConfig{})
	rec := send(g, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	fwd.AssertNotCalled(t, "Forward", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGatewayRateLimit(t *testing.T) {
	g, fwd := newTestGateway(t, config.GatewayConfig{RateLimit: config.GatewayRateLimitConfig{RPS: 0.001, Burst: 2}})
	fwd.On("Forward", http.MethodGet, "/users", "", "").Return(okResponse(`[]`), nil)

	require.Equal(t, http.StatusOK, send(g, http.MethodGet, "/users", "9", "").Code)
	require.Equal(t, http.StatusOK, send(g, http.MethodGet, "/users", "9", "").Code)
	rec := send(g, http.MethodGet, "/users", "9", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	assert.Equal(t, http.StatusOK, send(g, http.MethodGet, "/users", "10", "").Code)
}
