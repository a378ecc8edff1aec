package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FreePeak/golang-widget-sdk/internal/domain/shared"
	"github.com/FreePeak/golang-widget-sdk/internal/infrastructure/logging"
)

// sseSession represents one active SSE connection. It owns exactly one
// protocol handler instance; the handler and all its per-session state are
// torn down with the connection.
type sseSession struct {
	id         string
	handler    MessageHandler
	eventQueue chan string
	notifChan  NotificationChannel
	done       chan struct{}
	closeOnce  sync.Once
}

func (s *sseSession) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if closer, ok := s.handler.(io.Closer); ok {
			_ = closer.Close()
		}
	})
}

// SSEServer exposes a protocol handler over HTTP+SSE: one persistent event
// stream per client for server-to-client messages, plus a POST endpoint
// for client-to-server messages correlated by session id.
type SSEServer struct {
	info            shared.ServerInfo
	newHandler      HandlerFactory
	notifier        *NotificationSender
	logger          *logging.Logger
	sseEndpoint     string
	messageEndpoint string
	sessions        sync.Map
	srv             *http.Server
	listener        net.Listener
	mu              sync.Mutex
}

// SSEOption configures an SSEServer.
type SSEOption func(*SSEServer)

// WithSSEEndpoint sets the SSE endpoint path.
func WithSSEEndpoint(endpoint string) SSEOption {
	return func(s *SSEServer) {
		s.sseEndpoint = endpoint
	}
}

// WithMessageEndpoint sets the message endpoint path.
func WithMessageEndpoint(endpoint string) SSEOption {
	return func(s *SSEServer) {
		s.messageEndpoint = endpoint
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *logging.Logger) SSEOption {
	return func(s *SSEServer) {
		s.logger = logger
	}
}

// NewSSEServer creates an SSE server. newHandler is invoked once per
// incoming SSE connection to build that connection's protocol handler.
func NewSSEServer(info shared.ServerInfo, newHandler HandlerFactory, notifier *NotificationSender, opts ...SSEOption) *SSEServer {
	s := &SSEServer{
		info:            info,
		newHandler:      newHandler,
		notifier:        notifier,
		logger:          logging.NewNop(),
		sseEndpoint:     "/sse",
		messageEndpoint: "/messages",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP routes: the SSE stream, the message endpoint,
// and the liveness/metadata endpoints outside the protocol itself.
func (s *SSEServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Get(s.sseEndpoint, s.handleSSE)
	r.Post(s.messageEndpoint, s.handleMessage)
	r.Get("/health", s.handleHealth)
	r.Get("/info", s.handleInfo)
	return r
}

// Start binds the listener synchronously, then serves in the background.
// A bind failure is returned immediately rather than surfacing later from
// the serving goroutine.
func (s *SSEServer) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.srv = &http.Server{Handler: s.Router()}
	srv := s.srv
	s.mu.Unlock()

	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("sse server stopped", logging.Fields{"error": serveErr.Error()})
		}
	}()
	return nil
}

// Addr returns the bound listener address, or empty before Start.
func (s *SSEServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown closes all active sessions and stops the HTTP server,
// releasing the listener before returning.
func (s *SSEServer) Shutdown(ctx context.Context) error {
	s.sessions.Range(func(key, value interface{}) bool {
		value.(*sseSession).close()
		s.sessions.Delete(key)
		return true
	})

	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// handleSSE handles an incoming SSE connection: allocates a session id,
// builds this connection's protocol handler, and streams queued events
// until the client goes away.
func (s *SSEServer) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	sessionID := uuid.New().String()
	session := &sseSession{
		id:         sessionID,
		handler:    s.newHandler(sessionID),
		eventQueue: make(chan string, 100),
		notifChan:  make(NotificationChannel, 100),
		done:       make(chan struct{}),
	}

	s.sessions.Store(sessionID, session)
	defer func() {
		s.sessions.Delete(sessionID)
		session.close()
	}()

	s.notifier.RegisterSession(sessionID, r.UserAgent(), session.notifChan)
	defer s.notifier.UnregisterSession(sessionID)

	// Forward per-session notifications into the event queue.
	go func() {
		for {
			select {
			case notification, open := <-session.notifChan:
				if !open {
					return
				}
				data, err := json.Marshal(notification)
				if err != nil {
					continue
				}
				select {
				case session.eventQueue <- formatEvent("message", string(data)):
				case <-session.done:
					return
				}
			case <-session.done:
				return
			case <-r.Context().Done():
				return
			}
		}
	}()

	s.logger.Debug("sse session opened", logging.Fields{"sessionId": sessionID})

	fmt.Fprint(w, formatEvent("connected", fmt.Sprintf(`{"sessionId": %q}`, sessionID)))
	flusher.Flush()
	fmt.Fprint(w, formatEvent("endpoint", fmt.Sprintf("%s?sessionId=%s", s.messageEndpoint, sessionID)))
	flusher.Flush()

	for {
		select {
		case event := <-session.eventQueue:
			fmt.Fprint(w, event)
			flusher.Flush()
		case <-session.done:
			return
		case <-r.Context().Done():
			s.logger.Debug("sse session closed", logging.Fields{"sessionId": sessionID})
			return
		}
	}
}

// handleMessage processes one client-to-server JSON-RPC message and sends
// the response back through both the SSE stream and the HTTP response.
func (s *SSEServer) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		sessionID = r.Header.Get("X-Session-Id")
	}
	if sessionID == "" {
		writeJSONRPCError(w, nil, shared.InvalidParams, "Missing sessionId")
		return
	}

	value, ok := s.sessions.Load(sessionID)
	if !ok {
		writeJSONRPCError(w, nil, shared.InvalidParams, "Invalid session ID")
		return
	}
	session := value.(*sseSession)

	var rawMessage json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&rawMessage); err != nil {
		writeJSONRPCError(w, nil, shared.ParseError, "Parse error")
		return
	}

	response := session.handler.HandleMessage(r.Context(), rawMessage)

	if response == nil {
		// Notification: nothing to send back.
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if data, err := json.Marshal(response); err == nil {
		select {
		case session.eventQueue <- formatEvent("message", string(data)):
		case <-session.done:
		default:
			s.logger.Warn("event queue full, dropping response copy", logging.Fields{"sessionId": sessionID})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(response)
}

func (s *SSEServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *SSEServer) handleInfo(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"name":     s.info.Name,
		"version":  s.info.Version,
		"protocol": shared.ProtocolVersion,
	})
}

// SendEventToSession queues an event for a specific session's stream.
func (s *SSEServer) SendEventToSession(sessionID string, event interface{}) error {
	value, ok := s.sessions.Load(sessionID)
	if !ok {
		return fmt.Errorf("session not found: %s", sessionID)
	}
	session := value.(*sseSession)

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	select {
	case session.eventQueue <- formatEvent("message", string(data)):
		return nil
	case <-session.done:
		return fmt.Errorf("session closed")
	default:
		return fmt.Errorf("event queue full")
	}
}

// SessionCount returns the number of live SSE sessions.
func (s *SSEServer) SessionCount() int {
	count := 0
	s.sessions.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

func formatEvent(name, data string) string {
	return fmt.Sprintf("event: %s\ndata: %s\n\n", name, data)
}

func writeJSONRPCError(w http.ResponseWriter, id interface{}, code shared.ErrorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(shared.NewErrorResponse(id, code, message))
}
