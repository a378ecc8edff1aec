// Package server implements the network transports binding protocol
// handlers to live connections: HTTP+SSE for browser-connected hosts and
// stdio for desktop-process-spawned hosts.
package server

import (
	"context"
	"encoding/json"
)

// MessageHandler processes one raw JSON-RPC message and returns the
// response value, or nil for notifications.
type MessageHandler interface {
	HandleMessage(ctx context.Context, rawMessage json.RawMessage) interface{}
}

// HandlerFactory creates a fresh protocol handler for one connection
// session. Handlers carry per-connection subscription and resource state;
// sharing one handler across clients would leak state between them, so
// every SSE connection gets its own instance.
type HandlerFactory func(sessionID string) MessageHandler

// MessageHandlerFunc adapts a function to the MessageHandler interface.
type MessageHandlerFunc func(ctx context.Context, rawMessage json.RawMessage) interface{}

// HandleMessage calls the underlying function.
func (f MessageHandlerFunc) HandleMessage(ctx context.Context, rawMessage json.RawMessage) interface{} {
	return f(ctx, rawMessage)
}
