// Package session implements the durable Session Store of spec §4.9: each
// session is a JSON document keyed by session_id, holding the full message
// history and the most recently resolved ResolverContext, backed by
// modernc.org/sqlite and fronted by an in-process cache.
package session

import (
	"time"

	"github.com/fdadevices/openfda-agent/internal/model"
)

// Document is the full persisted state of one session (spec §6's
// "Persisted state" JSON shape).
type Document struct {
	ID              string                `json:"id"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	Messages        []model.Message       `json:"messages"`
	ResolverContext model.ResolverContext `json:"resolver_context"`
	Usage           SessionUsage          `json:"usage"`
}

// SessionUsage is the per-session accounting record of spec §4.10.
type SessionUsage struct {
	TotalCostUSD float64 `json:"total_cost"`
	RequestCount int     `json:"request_count"`
	LimitUSD     float64 `json:"limit"`
}

// Summary is the lightweight projection List returns (most-recent first),
// cheap enough to enumerate without deserializing every message list.
type Summary struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	TotalCostUSD float64   `json:"cost_usd"`
}
