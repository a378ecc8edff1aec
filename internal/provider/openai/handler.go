package openai

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/FreePeak/golang-widget-sdk/internal/domain"
	"github.com/FreePeak/golang-widget-sdk/internal/domain/shared"
	"github.com/FreePeak/golang-widget-sdk/pkg/types"
)

// protocolHandler serves the JSON-RPC protocol for exactly one session.
// Each connection gets a fresh instance so subscription state never leaks
// between clients; the transport tears it down via Close when the session
// ends.
type protocolHandler struct {
	adapter   *Adapter
	sessionID string

	mu            sync.Mutex
	initialized   bool
	subscriptions map[string]struct{}
}

func newProtocolHandler(adapter *Adapter, sessionID string) *protocolHandler {
	return &protocolHandler{
		adapter:       adapter,
		sessionID:     sessionID,
		subscriptions: make(map[string]struct{}),
	}
}

func (h *protocolHandler) HandleMessage(ctx context.Context, message json.RawMessage) interface{} {
	var req struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      interface{}     `json:"id,omitempty"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params,omitempty"`
	}
	if err := json.Unmarshal(message, &req); err != nil {
		return shared.NewErrorResponse(nil, shared.ParseError, "invalid JSON")
	}
	if req.JSONRPC != shared.JSONRPCVersion {
		return shared.NewErrorResponse(req.ID, shared.InvalidRequest, "unsupported JSON-RPC version")
	}

	if req.ID == nil {
		// Notifications produce no response.
		return nil
	}

	switch req.Method {
	case shared.MethodInitialize:
		return h.processInitialize(req.ID)
	case shared.MethodPing:
		return shared.NewResponse(req.ID, struct{}{})
	case shared.MethodListTools:
		return h.processListTools(req.ID)
	case shared.MethodCallTool:
		return h.processCallTool(ctx, req.ID, req.Params)
	case shared.MethodListResources:
		return h.processListResources(req.ID)
	case shared.MethodReadResource:
		return h.processReadResource(ctx, req.ID, req.Params)
	case shared.MethodSubscribeResource:
		return h.processSubscribe(req.ID, req.Params)
	case shared.MethodUnsubscribeResource:
		return h.processUnsubscribe(req.ID, req.Params)
	default:
		return shared.NewErrorResponse(req.ID, shared.MethodNotFound, "method not found: "+req.Method)
	}
}

func (h *protocolHandler) processInitialize(id interface{}) interface{} {
	h.mu.Lock()
	h.initialized = true
	h.mu.Unlock()

	return shared.NewResponse(id, shared.InitializeResult{
		ProtocolVersion: shared.ProtocolVersion,
		ServerInfo: shared.ServerInfo{
			Name:    h.adapter.deps.Name,
			Version: h.adapter.deps.Version,
		},
		Capabilities: shared.Capabilities{
			Tools: &shared.ToolsCapability{ListChanged: true},
			Resources: &shared.ResourcesCapability{
				Subscribe:   true,
				ListChanged: true,
			},
		},
	})
}

func (h *protocolHandler) processListTools(id interface{}) interface{} {
	tools := h.adapter.deps.Tools.GetAll()
	wire := make([]shared.Tool, 0, len(tools))
	for _, tool := range tools {
		converted, err := h.adapter.convertTool(tool)
		if err != nil {
			return shared.NewErrorResponse(id, shared.InternalError, err.Error())
		}
		wire = append(wire, converted)
	}
	return shared.NewResponse(id, shared.ListToolsResult{Tools: wire})
}

func (h *protocolHandler) processCallTool(ctx context.Context, id interface{}, params json.RawMessage) interface{} {
	var p shared.CallToolParams
	if err := json.Unmarshal(params, &p); err != nil {
		return shared.NewErrorResponse(id, shared.InvalidParams, "invalid tools/call params")
	}
	tool, err := h.adapter.deps.Tools.Get(p.Name)
	if err != nil {
		return shared.NewErrorResponse(id, shared.NotFound, err.Error())
	}

	result := h.adapter.handleToolCall(ctx, tool, p.Arguments, types.ToolContext{
		Provider:  ProviderName,
		SessionID: h.sessionID,
	})
	return shared.NewResponse(id, result)
}

func (h *protocolHandler) processListResources(id interface{}) interface{} {
	if !h.adapter.componentsEnabled() {
		return shared.NewResponse(id, shared.ListResourcesResult{Resources: []shared.Resource{}})
	}
	return shared.NewResponse(id, shared.ListResourcesResult{Resources: h.adapter.resources.List()})
}

func (h *protocolHandler) processReadResource(ctx context.Context, id interface{}, params json.RawMessage) interface{} {
	var p shared.ReadResourceParams
	if err := json.Unmarshal(params, &p); err != nil || p.URI == "" {
		return shared.NewErrorResponse(id, shared.InvalidParams, "invalid resources/read params")
	}
	if !h.adapter.componentsEnabled() {
		return shared.NewErrorResponse(id, shared.NotFound, "resource not found: "+p.URI)
	}

	contents, err := h.adapter.resources.Read(ctx, p.URI)
	if err != nil {
		var notFound *domain.ResourceNotFoundError
		if errors.As(err, &notFound) {
			return shared.NewErrorResponse(id, shared.NotFound, err.Error())
		}
		return shared.NewErrorResponse(id, shared.InternalError, err.Error())
	}
	return shared.NewResponse(id, shared.ReadResourceResult{Contents: contents})
}

func (h *protocolHandler) processSubscribe(id interface{}, params json.RawMessage) interface{} {
	var p shared.SubscribeResourceParams
	if err := json.Unmarshal(params, &p); err != nil || p.URI == "" {
		return shared.NewErrorResponse(id, shared.InvalidParams, "invalid resources/subscribe params")
	}
	if _, ok := domain.TypeFromWidgetURI(p.URI); !ok {
		return shared.NewErrorResponse(id, shared.NotFound, "resource not found: "+p.URI)
	}

	h.mu.Lock()
	h.subscriptions[p.URI] = struct{}{}
	h.mu.Unlock()
	return shared.NewResponse(id, struct{}{})
}

func (h *protocolHandler) processUnsubscribe(id interface{}, params json.RawMessage) interface{} {
	var p shared.SubscribeResourceParams
	if err := json.Unmarshal(params, &p); err != nil || p.URI == "" {
		return shared.NewErrorResponse(id, shared.InvalidParams, "invalid resources/unsubscribe params")
	}

	h.mu.Lock()
	delete(h.subscriptions, p.URI)
	h.mu.Unlock()
	return shared.NewResponse(id, struct{}{})
}

func (h *protocolHandler) subscribedTo(uri string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.subscriptions[uri]
	return ok
}

// Close detaches the handler from the adapter's live-session index. Called
// by the transport when the connection closes.
func (h *protocolHandler) Close() error {
	h.adapter.handlers.Delete(h.sessionID)
	return nil
}
