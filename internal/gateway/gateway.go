package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shareit/internal/api"
	"shareit/internal/config"
	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// Forwarder relays a request to the server.
type Forwarder interface {
	Forward(ctx context.Context, method, path, rawQuery string, header http.Header, body []byte) (*Response, error)
}

// rule describes what the gateway checks before forwarding a route.
type rule struct {
	user     bool
	body     func() any
	page     bool
	state    bool
	approved bool
}

type Gateway struct {
	client    Forwarder
	validator *Validator
	logger    *zerolog.Logger
	handler   http.Handler
	server    *http.Server
}

func New(cfg config.GatewayConfig, client Forwarder, logger *zerolog.Logger) *Gateway {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	g := &Gateway{
		client:    client,
		validator: NewValidator(),
		logger:    logger,
	}

	mux := http.NewServeMux()
	g.routes(mux)

	g.handler = api.Chain(mux,
		api.RequestIDMiddleware,
		api.LoggingMiddleware(logger),
		api.RecoverMiddleware(logger),
		newClientLimiter(cfg.RateLimit).Wrap,
	)
	g.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           g.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return g
}

func (g *Gateway) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /readyz", g.route(rule{}))

	mux.Handle("POST /users", g.route(rule{body: func() any { return &UserCreateDTO{} }}))
	mux.Handle("PATCH /users/{userId}", g.route(rule{body: func() any { return &UserUpdateDTO{} }}))
	mux.Handle("GET /users/{userId}", g.route(rule{}))
	mux.Handle("GET /users", g.route(rule{}))
	mux.Handle("DELETE /users/{userId}", g.route(rule{}))

	mux.Handle("POST /items", g.route(rule{user: true, body: func() any { return &ItemCreateDTO{} }}))
	mux.Handle("PATCH /items/{itemId}", g.route(rule{user: true, body: func() any { return &ItemUpdateDTO{} }}))
	mux.Handle("GET /items/{itemId}", g.route(rule{user: true}))
	mux.Handle("GET /items", g.route(rule{user: true, page: true}))
	mux.Handle("GET /items/search", g.route(rule{page: true}))
	mux.Handle("POST /items/{itemId}/comment", g.route(rule{user: true, body: func() any { return &CommentDTO{} }}))

	mux.Handle("POST /bookings", g.route(rule{user: true, body: func() any { return &BookingDTO{} }}))
	mux.Handle("PATCH /bookings/{bookingId}", g.route(rule{user: true, approved: true}))
	mux.Handle("GET /bookings/{bookingId}", g.route(rule{user: true}))
	mux.Handle("GET /bookings", g.route(rule{user: true, page: true, state: true}))
	mux.Handle("GET /bookings/owner", g.route(rule{user: true, page: true, state: true}))

	mux.Handle("POST /requests", g.route(rule{user: true, body: func() any { return &RequestDTO{} }}))
	mux.Handle("GET /requests", g.route(rule{user: true}))
	mux.Handle("GET /requests/all", g.route(rule{user: true, page: true}))
	mux.Handle("GET /requests/{requestId}", g.route(rule{user: true}))
}

func (g *Gateway) Handler() http.Handler {
	return g.handler
}

func (g *Gateway) Start() error {
	g.logger.Info().Str("addr", g.server.Addr).Msg("Gateway listening")
	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	return g.server.Shutdown(ctx)
}

func (g *Gateway) route(rl rule) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "request body too large")
			return
		}
		if err := g.check(rl, r, body); err != nil {
			writeError(w, api.StatusFor(err), err.Error())
			return
		}

		resp, err := g.client.Forward(r.Context(), r.Method, r.URL.Path, r.URL.RawQuery, r.Header, body)
		if err != nil {
			g.logger.Error().Err(err).
				Str("request_id", api.RequestID(r.Context())).
				Str("path", r.URL.Path).
				Msg("forward failed")
			writeError(w, http.StatusBadGateway, "server unavailable")
			return
		}

		if ct := resp.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.WriteHeader(resp.Status)
		_, _ = w.Write(resp.Body)
	})
}

func (g *Gateway) check(rl rule, r *http.Request, body []byte) error {
	if rl.user {
		if err := requireUser(r); err != nil {
			return err
		}
	}
	if rl.body != nil {
		dto := rl.body()
		if err := json.Unmarshal(body, dto); err != nil {
			return domain.Validation("Invalid JSON body: %s", err.Error())
		}
		if err := g.validator.Struct(dto); err != nil {
			return err
		}
	}

	q := r.URL.Query()
	if rl.page {
		if err := checkPage(q.Get("from"), q.Get("size")); err != nil {
			return err
		}
	}
	if rl.state {
		if _, err := models.ParseState(q.Get("state")); err != nil {
			return err
		}
	}
	if rl.approved {
		raw := strings.TrimSpace(q.Get("approved"))
		if _, err := strconv.ParseBool(raw); err != nil {
			return domain.Validation("Invalid approved: %s", raw)
		}
	}
	return nil
}

func requireUser(r *http.Request) error {
	raw := strings.TrimSpace(r.Header.Get(models.UserIDHeader))
	if raw == "" {
		return domain.Validation("Missing %s header.", models.UserIDHeader)
	}
	if id, err := strconv.ParseInt(raw, 10, 64); err != nil || id <= 0 {
		return domain.Validation("Invalid %s header: %s", models.UserIDHeader, raw)
	}
	return nil
}

func checkPage(rawFrom, rawSize string) error {
	from, size := 0, models.DefaultPageSize
	var err error
	if s := strings.TrimSpace(rawFrom); s != "" {
		if from, err = strconv.Atoi(s); err != nil {
			return domain.Validation("Invalid from: %s", s)
		}
	}
	if s := strings.TrimSpace(rawSize); s != "" {
		if size, err = strconv.Atoi(s); err != nil {
			return domain.Validation("Invalid size: %s", s)
		}
	}
	if from < 0 || size <= 0 {
		return domain.Validation("Uncorrected numbering of page: from %d, size %d", from, size)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
