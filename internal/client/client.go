// Package client is the development-time protocol client used by preview
// tooling. It speaks the server's SSE transport: one long-lived event
// stream per connection, with requests POSTed to the session's message
// endpoint and responses arriving on either channel.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	sse "github.com/r3labs/sse/v2"
	backoff "gopkg.in/cenkalti/backoff.v1"

	"github.com/FreePeak/golang-widget-sdk/internal/domain/shared"
	"github.com/FreePeak/golang-widget-sdk/internal/infrastructure/logging"
)

// ConnState is the client's connection lifecycle state.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateErrored
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Client talks to a running widget server over SSE. It is safe for
// concurrent use.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	logger         *logging.Logger
	requestTimeout time.Duration
	reconnectDelay time.Duration
	maxReconnects  int

	mu           sync.Mutex
	state        ConnState
	sessionID    string
	messageURL   string
	streamCancel context.CancelFunc
	ready        chan struct{}
	pending      map[string]chan shared.JSONRPCResponse
	widgetCache  map[string]string
	reconnecting bool
	reconnectTmr *time.Timer
	attempts     int
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithClientLogger(logger *logging.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRequestTimeout bounds how long a single request waits for its
// response.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) { c.requestTimeout = d }
}

// WithReconnect tunes the linear backoff: attempt n waits n*delay, up to
// maxAttempts before the client gives up and stays errored.
func WithReconnect(delay time.Duration, maxAttempts int) Option {
	return func(c *Client) {
		c.reconnectDelay = delay
		c.maxReconnects = maxAttempts
	}
}

// New creates a client for the server at baseURL (e.g.
// "http://localhost:8000").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		logger:         logging.NewNop(),
		requestTimeout: 10 * time.Second,
		reconnectDelay: time.Second,
		maxReconnects:  5,
		pending:        make(map[string]chan shared.JSONRPCResponse),
		widgetCache:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State reports the current connection state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the server-assigned session id, empty until connected.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Connect opens the event stream and performs the initialize handshake.
// Calling it while connected or connecting is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	ready := make(chan struct{})
	c.ready = ready
	streamCtx, cancel := context.WithCancel(context.Background())
	c.streamCancel = cancel
	c.mu.Unlock()

	go c.runStream(streamCtx)

	select {
	case <-ready:
	case <-ctx.Done():
		c.teardown(StateDisconnected)
		return newError(KindTimeout, "connect", ctx.Err())
	case <-time.After(c.requestTimeout):
		c.teardown(StateErrored)
		return newError(KindRefused, "connect", errors.New("no endpoint event from server"))
	}

	if _, err := c.call(ctx, shared.MethodInitialize, map[string]interface{}{
		"protocolVersion": shared.ProtocolVersion,
		"clientInfo":      map[string]interface{}{"name": "widget-preview", "version": "dev"},
	}); err != nil {
		c.teardown(StateErrored)
		return err
	}

	c.mu.Lock()
	c.state = StateConnected
	c.attempts = 0
	c.mu.Unlock()
	c.logger.Info("connected", logging.Fields{"session": c.SessionID()})
	return nil
}

// runStream owns the SSE subscription for one connection attempt. It
// returns when the stream ends; a non-deliberate end schedules a
// reconnect.
func (c *Client) runStream(ctx context.Context) {
	stream := sse.NewClient(c.baseURL + "/sse")
	stream.ReconnectStrategy = &backoff.StopBackOff{}

	err := stream.SubscribeRawWithContext(ctx, func(msg *sse.Event) {
		switch string(msg.Event) {
		case "connected":
			var payload struct {
				SessionID string `json:"sessionId"`
			}
			if json.Unmarshal(msg.Data, &payload) == nil {
				c.mu.Lock()
				c.sessionID = payload.SessionID
				c.mu.Unlock()
			}
		case "endpoint":
			resolved, err := resolveURL(c.baseURL+"/", string(msg.Data))
			if err != nil {
				c.logger.Warn("bad endpoint event", logging.Fields{"data": string(msg.Data)})
				return
			}
			c.mu.Lock()
			c.messageURL = resolved
			ready := c.ready
			c.ready = nil
			c.mu.Unlock()
			if ready != nil {
				close(ready)
			}
		case "message":
			c.dispatch(msg.Data)
		}
	})

	if ctx.Err() != nil {
		// Deliberate disconnect.
		return
	}
	c.logger.Warn("event stream ended", logging.Fields{"error": fmt.Sprint(err)})
	c.scheduleReconnect()
}

// dispatch routes a streamed JSON-RPC message to its waiting request, if
// any. Notifications and unmatched responses are logged and dropped.
func (c *Client) dispatch(data []byte) {
	var resp shared.JSONRPCResponse
	if err := json.Unmarshal(data, &resp); err != nil || resp.ID == nil {
		c.logger.Debug("ignoring stream message", logging.Fields{"data": string(data)})
		return
	}
	key := fmt.Sprint(resp.ID)

	c.mu.Lock()
	ch, ok := c.pending[key]
	if ok {
		delete(c.pending, key)
	}
	c.mu.Unlock()
	if ok {
		ch <- resp
	}
}

// scheduleReconnect arms the linear-backoff timer: attempt n fires after
// n*delay. After maxReconnects failed attempts the client stays errored.
func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	if c.reconnecting || c.state == StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.attempts++
	if c.attempts > c.maxReconnects {
		c.state = StateErrored
		c.mu.Unlock()
		c.logger.Error("giving up after failed reconnect attempts", logging.Fields{"attempts": c.maxReconnects})
		return
	}
	c.reconnecting = true
	c.state = StateConnecting
	attempt := c.attempts
	delay := ReconnectDelay(c.reconnectDelay, attempt)
	c.reconnectTmr = time.AfterFunc(delay, func() {
		c.mu.Lock()
		c.reconnecting = false
		c.state = StateDisconnected
		c.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), c.requestTimeout)
		defer cancel()
		if err := c.Connect(ctx); err != nil {
			c.logger.Warn("reconnect attempt failed", logging.Fields{
				"attempt": attempt,
				"error":   err.Error(),
			})
			c.scheduleReconnect()
		}
	})
	c.mu.Unlock()
	c.logger.Info("reconnecting", logging.Fields{"attempt": attempt, "delay": delay.String()})
}

// ReconnectDelay computes the wait before reconnect attempt n under
// linear backoff.
func ReconnectDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt) * base
}

// Disconnect tears the connection down: the stream context is cancelled,
// any armed reconnect timer is stopped, in-flight requests fail, and the
// widget cache is dropped. Idempotent.
func (c *Client) Disconnect() {
	c.teardown(StateDisconnected)
	c.logger.Info("disconnected", nil)
}

func (c *Client) teardown(final ConnState) {
	c.mu.Lock()
	if c.streamCancel != nil {
		c.streamCancel()
		c.streamCancel = nil
	}
	if c.reconnectTmr != nil {
		c.reconnectTmr.Stop()
		c.reconnectTmr = nil
	}
	c.reconnecting = false
	c.attempts = 0
	c.sessionID = ""
	c.messageURL = ""
	c.widgetCache = make(map[string]string)
	pending := c.pending
	c.pending = make(map[string]chan shared.JSONRPCResponse)
	c.state = final
	c.mu.Unlock()

	for id, ch := range pending {
		ch <- shared.NewErrorResponse(id, shared.InternalError, "connection closed")
	}
}

// call performs one JSON-RPC round trip. The response may come back on
// the POST body or on the event stream; whichever lands first wins.
func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	c.mu.Lock()
	messageURL := c.messageURL
	c.mu.Unlock()
	if messageURL == "" {
		return nil, newError(KindRefused, method, errors.New("not connected"))
	}

	id := uuid.New().String()
	body, err := json.Marshal(shared.JSONRPCRequest{
		JSONRPC: shared.JSONRPCVersion,
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, newError(KindProtocol, method, err)
	}

	ch := make(chan shared.JSONRPCResponse, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, messageURL, bytes.NewReader(body))
	if err != nil {
		return nil, newError(KindProtocol, method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newError(KindRefused, method, err)
	}
	defer httpResp.Body.Close()

	var direct shared.JSONRPCResponse
	if decodeErr := json.NewDecoder(httpResp.Body).Decode(&direct); decodeErr == nil && fmt.Sprint(direct.ID) == id {
		return c.unwrap(method, direct)
	}

	select {
	case resp := <-ch:
		return c.unwrap(method, resp)
	case <-ctx.Done():
		return nil, newError(KindTimeout, method, ctx.Err())
	case <-time.After(c.requestTimeout):
		return nil, newError(KindTimeout, method, errors.New("no response"))
	}
}

func (c *Client) unwrap(method string, resp shared.JSONRPCResponse) (json.RawMessage, error) {
	if resp.Error != nil {
		return nil, newError(KindProtocol, method, errors.Errorf("server error %d: %s", resp.Error.Code, resp.Error.Message))
	}
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, newError(KindProtocol, method, err)
	}
	return raw, nil
}

func resolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}
