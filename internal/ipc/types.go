package ipc

import (
	"time"

	"github.com/fmueller/streamplay/internal/engine"
)

// ServiceName is the JSON-RPC service prefix, e.g. "StreamPlay.Invoke".
const ServiceName = "StreamPlay"

// MethodCall is one named operation with its arguments.
type MethodCall struct {
	Method string         `json:"method"`
	Args   map[string]any `json:"args,omitempty"`
}

type StatusRequest struct{}

type StatusResponse struct {
	PID       int             `json:"pid"`
	Socket    string          `json:"socket"`
	StartedAt time.Time       `json:"started_at"`
	Engine    engine.Snapshot `json:"engine"`
}
