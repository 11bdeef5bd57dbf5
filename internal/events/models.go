// Package events carries the registry's append-only event stream.
//
// Events are emitted from domain logic after a mutation commits and fan out
// to pluggable sinks (in-memory store for tests, Kafka for deployments). The
// stream is append-only and never read back by the registry itself.
package events

import (
	"time"

	"badgemint/internal/identity/models"
	id "badgemint/pkg/domain"
)

// Action names the registry mutations that produce events.
type Action string

const (
	ActionIdentityMinted  Action = "identity_minted"
	ActionIdentityUpdated Action = "identity_updated"
)

// Event is the transport-agnostic payload published on every committed mint
// or update. The stored registry state carries no back-pointer from token to
// holder; this stream is the only place that link is recorded.
type Event struct {
	ID            string      `json:"id"`
	Action        Action      `json:"action"`
	Timestamp     time.Time   `json:"timestamp"`
	Caller        id.HolderID `json:"caller"`
	TokenID       id.TokenID  `json:"token_id"`
	Username      string      `json:"username"`
	Contributions uint32      `json:"contributions"`
	Tier          models.Tier `json:"tier"`
	// ProofDigest is a BLAKE2b-256 hex digest of the submitted proof blob,
	// recorded for correlation without persisting the raw proof in the
	// stream.
	ProofDigest string `json:"proof_digest,omitempty"`
	// Request metadata captured by middleware, when present.
	RequestID string `json:"request_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}
