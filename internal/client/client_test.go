package client

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FreePeak/golang-widget-sdk/internal/domain/shared"
	"github.com/FreePeak/golang-widget-sdk/internal/infrastructure/server"
)

func TestReconnectDelayIsLinear(t *testing.T) {
	base := 500 * time.Millisecond

	assert.Equal(t, 500*time.Millisecond, ReconnectDelay(base, 1))
	assert.Equal(t, time.Second, ReconnectDelay(base, 2))
	assert.Equal(t, 2500*time.Millisecond, ReconnectDelay(base, 5))
	assert.Equal(t, 500*time.Millisecond, ReconnectDelay(base, 0), "attempt numbers below one clamp to one")
}

func TestErrorKindStrings(t *testing.T) {
	assert.Equal(t, "timeout", KindTimeout.String())
	assert.Equal(t, "refused", KindRefused.String())
	assert.Equal(t, "protocol", KindProtocol.String())
}

func TestErrorFormatting(t *testing.T) {
	err := newError(KindTimeout, "tools/call", context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "tools/call")
	assert.Contains(t, err.Error(), "timeout")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConnStateStrings(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "errored", StateErrored.String())
}

func TestNormalizeResultParsesJSONText(t *testing.T) {
	result := NormalizeResult(&shared.CallToolResult{
		Content: []shared.Content{{Type: "text", Text: `{"temp":4}`}},
	})

	assert.False(t, result.IsError)
	assert.Equal(t, `{"temp":4}`, result.Text)
	require.NotNil(t, result.Output)
	assert.Equal(t, float64(4), result.Output["temp"])
}

func TestNormalizeResultPrefersStructuredContent(t *testing.T) {
	result := NormalizeResult(&shared.CallToolResult{
		Content:           []shared.Content{{Type: "text", Text: "summary"}},
		StructuredContent: map[string]interface{}{"temp": 4},
	})

	assert.Equal(t, "summary", result.Text)
	assert.Equal(t, map[string]interface{}{"temp": 4}, result.Output)
}

func TestNormalizeResultNonJSONText(t *testing.T) {
	result := NormalizeResult(&shared.CallToolResult{
		Content: []shared.Content{{Type: "text", Text: "plain words"}},
		IsError: true,
	})

	assert.True(t, result.IsError)
	assert.Equal(t, "plain words", result.Text)
	assert.Nil(t, result.Output)
}

// --- integration against the real SSE transport ---

func startBackend(t *testing.T) (baseURL string) {
	t.Helper()
	factory := func(sessionID string) server.MessageHandler {
		return server.MessageHandlerFunc(func(ctx context.Context, message json.RawMessage) interface{} {
			var req shared.JSONRPCRequest
			if err := json.Unmarshal(message, &req); err != nil {
				return shared.NewErrorResponse(nil, shared.ParseError, "bad json")
			}
			switch req.Method {
			case shared.MethodInitialize:
				return shared.NewResponse(req.ID, shared.InitializeResult{
					ProtocolVersion: shared.ProtocolVersion,
					ServerInfo:      shared.ServerInfo{Name: "backend", Version: "0.0.1"},
				})
			case shared.MethodListResources:
				return shared.NewResponse(req.ID, shared.ListResourcesResult{Resources: []shared.Resource{
					{URI: "ui://widget/card.html", Name: "Card", MIMEType: "text/html+skybridge"},
					{URI: "file://not-a-widget", Name: "Other"},
				}})
			case shared.MethodReadResource:
				return shared.NewResponse(req.ID, shared.ReadResourceResult{Contents: []shared.ResourceContent{
					{URI: "ui://widget/card.html", MIMEType: "text/html+skybridge", Text: "<html>widget</html>"},
				}})
			case shared.MethodCallTool:
				return shared.NewResponse(req.ID, shared.CallToolResult{
					Content: []shared.Content{{Type: "text", Text: `{"ok":true}`}},
				})
			default:
				return shared.NewErrorResponse(req.ID, shared.MethodNotFound, "nope")
			}
		})
	}

	s := server.NewSSEServer(shared.ServerInfo{Name: "backend", Version: "0.0.1"}, factory, server.NewNotificationSender())
	require.NoError(t, s.Start("127.0.0.1:0"))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return "http://" + s.Addr()
}

func TestConnectAndListWidgets(t *testing.T) {
	c := New(startBackend(t), WithRequestTimeout(5*time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, c.Connect(ctx))
	defer c.Disconnect()
	assert.Equal(t, StateConnected, c.State())
	assert.NotEmpty(t, c.SessionID())

	widgets, err := c.ListWidgets(ctx)
	require.NoError(t, err)
	require.Len(t, widgets, 1, "non-widget resources are filtered out")
	assert.Equal(t, "card", widgets[0].Type)
}

func TestConnectIsIdempotent(t *testing.T) {
	c := New(startBackend(t), WithRequestTimeout(5*time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, c.Connect(ctx))
	defer c.Disconnect()
	firstSession := c.SessionID()

	require.NoError(t, c.Connect(ctx))
	assert.Equal(t, firstSession, c.SessionID(), "a second Connect must not open a new session")
}

func TestLoadWidgetUsesCache(t *testing.T) {
	c := New(startBackend(t), WithRequestTimeout(5*time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	defer c.Disconnect()

	html, err := c.LoadWidget(ctx, "ui://widget/card.html")
	require.NoError(t, err)
	assert.Equal(t, "<html>widget</html>", html)

	c.mu.Lock()
	_, cached := c.widgetCache["ui://widget/card.html"]
	c.mu.Unlock()
	assert.True(t, cached)
}

func TestDisconnectClearsState(t *testing.T) {
	c := New(startBackend(t), WithRequestTimeout(5*time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))

	_, err := c.LoadWidget(ctx, "ui://widget/card.html")
	require.NoError(t, err)

	c.Disconnect()
	assert.Equal(t, StateDisconnected, c.State())
	assert.Empty(t, c.SessionID())

	c.mu.Lock()
	cacheLen := len(c.widgetCache)
	c.mu.Unlock()
	assert.Zero(t, cacheLen, "the widget cache dies with the connection")

	// Disconnecting again is harmless.
	c.Disconnect()
}

func TestCallToolNormalizesResult(t *testing.T) {
	c := New(startBackend(t), WithRequestTimeout(5*time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	defer c.Disconnect()

	result, err := c.CallTool(ctx, "anything", map[string]interface{}{"x": 1})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, true, result.Output["ok"])
}

func TestConnectRefusedServer(t *testing.T) {
	c := New("http://127.0.0.1:1", WithRequestTimeout(500*time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := c.Connect(ctx)
	require.Error(t, err)
	var clientErr *Error
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, KindRefused, clientErr.Kind)
}
