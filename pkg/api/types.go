package api

import (
	"context"

	"github.com/ssargent/brokerdb/pkg/codec"
	"github.com/ssargent/brokerdb/pkg/store"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind   string
	Port   int
	APIKey string // Guards the POST routes; empty leaves them open
}

// ICheckpointStore is the persistence the server inspects and writes
type ICheckpointStore interface {
	Path() string
	Exists() bool
	Save(ctx context.Context, state *store.State) (*store.CheckpointResult, error)
	Load(ctx context.Context) (*store.State, *store.LoadResult, error)
}

// StateResponse describes the state currently held by the server
type StateResponse struct {
	Path    string        `json:"path"`
	Loaded  bool          `json:"loaded"`
	Digest  string        `json:"digest,omitempty"`
	Chunks  int           `json:"chunks"`
	Skipped int           `json:"skipped"`
	Summary store.Summary `json:"summary"`
	Issues  []string      `json:"issues,omitempty"`
}

// ClientResponse is one client session
type ClientResponse struct {
	ID                    string `json:"id"`
	SessionExpiryTime     int64  `json:"session_expiry_time"`
	SessionExpiryInterval uint32 `json:"session_expiry_interval"`
	LastMID               uint16 `json:"last_mid"`
}

// ClientMessageResponse is one in-flight or queued message of a client
type ClientMessageResponse struct {
	StoreID   uint64 `json:"store_id"`
	MID       uint16 `json:"mid"`
	QoS       uint8  `json:"qos"`
	State     string `json:"state"`
	Direction string `json:"direction"`
	Retain    bool   `json:"retain"`
	Dup       bool   `json:"dup"`
	Topic     string `json:"topic,omitempty"`
}

// SubscriptionResponse is one subscription of a client
type SubscriptionResponse struct {
	Topic      string `json:"topic"`
	QoS        uint8  `json:"qos"`
	Options    uint8  `json:"options"`
	Identifier uint32 `json:"identifier,omitempty"`
}

// ClientDetailResponse gathers everything recorded for one client
type ClientDetailResponse struct {
	Client        ClientResponse          `json:"client"`
	Messages      []ClientMessageResponse `json:"messages"`
	Subscriptions []SubscriptionResponse  `json:"subscriptions"`
}

// RetainedResponse is one retained message. Payload is base64 in JSON.
type RetainedResponse struct {
	StoreID  uint64 `json:"store_id"`
	Topic    string `json:"topic"`
	QoS      uint8  `json:"qos"`
	SourceID string `json:"source_id,omitempty"`
	Payload  []byte `json:"payload"`
}

// CheckpointResponse describes a checkpoint written through the API
type CheckpointResponse struct {
	ID         string `json:"id"`
	Path       string `json:"path"`
	Chunks     int    `json:"chunks"`
	Bytes      int64  `json:"bytes"`
	Digest     string `json:"digest"`
	DurationMS int64  `json:"duration_ms"`
}

func newClientResponse(c *codec.Client) ClientResponse {
	return ClientResponse{
		ID:                    c.ID,
		SessionExpiryTime:     c.SessionExpiryTime,
		SessionExpiryInterval: c.SessionExpiryInterval,
		LastMID:               c.LastMID,
	}
}
