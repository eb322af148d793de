package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"shareit/internal/domain"
	"shareit/internal/models"
)

const clientKeyUnknown = "unknown"

// callerID reads the acting user from the X-Sharer-User-Id header.
func callerID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get(models.UserIDHeader))
	if raw == "" {
		return 0, domain.Validation("Missing %s header.", models.UserIDHeader)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Validation("Invalid %s header: %s", models.UserIDHeader, raw)
	}
	return id, nil
}

// clientKey identifies the caller for rate limiting: the user id header when
// present, the remote host otherwise.
func clientKey(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(models.UserIDHeader)); id != "" {
		return "user:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return "ip:" + host
	}
	return clientKeyUnknown
}
