package models

const (
	// UserIDHeader carries the caller id on every request.
	UserIDHeader = "X-Sharer-User-Id"

	// DefaultPageSize is used when a listing request omits size.
	DefaultPageSize = 10
)
