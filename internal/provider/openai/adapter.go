package openai

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/FreePeak/golang-widget-sdk/internal/domain"
	"github.com/FreePeak/golang-widget-sdk/internal/domain/shared"
	"github.com/FreePeak/golang-widget-sdk/internal/infrastructure/logging"
	"github.com/FreePeak/golang-widget-sdk/internal/infrastructure/server"
	"github.com/FreePeak/golang-widget-sdk/internal/provider"
)

// ProviderName identifies this adapter in tool contexts, schema caches,
// and bundle cache keys.
const ProviderName = "openai"

type adapterState int

const (
	stateUninitialized adapterState = iota
	stateInitialized
	stateServing
	stateStopped
)

// Adapter serves the shared registries to ChatGPT over SSE or stdio.
// Lifecycle: New -> Initialize -> StartServer -> StopServer -> Cleanup.
// Starting before Initialize fails loudly; stopping with nothing running
// is a no-op.
type Adapter struct {
	cfg    provider.OpenAIConfig
	logger *logging.Logger

	mu       sync.Mutex
	state    adapterState
	deps     provider.Deps
	info     *domain.ServerInfo
	sse      *server.SSEServer
	stdio    *server.StdioTransport
	notifier *server.NotificationSender

	resources *ResourceRegistry

	// handlers indexes live per-session protocol handlers by session ID
	// so resource-update notifications reach only subscribed sessions.
	handlers sync.Map
}

// New builds an adapter from its transport configuration. The adapter is
// inert until Initialize wires in the registries.
func New(cfg provider.OpenAIConfig) (*Adapter, error) {
	switch cfg.Transport {
	case provider.TransportSSE, provider.TransportStdio:
	case "":
		cfg.Transport = provider.TransportSSE
	default:
		return nil, errors.Errorf("unsupported transport %q", cfg.Transport)
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	return &Adapter{cfg: cfg, logger: logging.NewNop()}, nil
}

func (a *Adapter) Name() string { return ProviderName }

// Initialize accepts the shared registries and prepares the resource
// surface. It must run exactly once before StartServer.
func (a *Adapter) Initialize(ctx context.Context, deps provider.Deps) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != stateUninitialized {
		return domain.NewLifecycleError("initialize", "adapter already initialized")
	}
	if deps.Tools == nil || deps.Components == nil {
		return domain.NewLifecycleError("initialize", "registries are required")
	}

	a.deps = deps
	if deps.Logger != nil {
		a.logger = deps.Logger.With(map[string]interface{}{"provider": ProviderName})
	}
	a.notifier = server.NewNotificationSender()
	a.resources = NewResourceRegistry(deps.Components, deps.Bundler, a.logger)
	a.state = stateInitialized

	a.logger.Debug("adapter initialized", map[string]interface{}{
		"tools":      deps.Tools.Len(),
		"components": deps.Components.Len(),
	})
	return nil
}

// StartServer brings up the configured transport. SSE binds its listener
// synchronously so a port conflict surfaces here, not later.
func (a *Adapter) StartServer(ctx context.Context) (*domain.ServerInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case stateUninitialized:
		return nil, domain.NewLifecycleError("start", "adapter not initialized")
	case stateServing:
		return nil, domain.NewLifecycleError("start", "server already running")
	}

	info := &domain.ServerInfo{
		Provider:  ProviderName,
		Transport: string(a.cfg.Transport),
		Status:    domain.ServerStatusStarting,
		Host:      a.cfg.Host,
		Port:      a.cfg.Port,
	}

	var err error
	switch a.cfg.Transport {
	case provider.TransportStdio:
		err = a.startStdio(ctx)
	default:
		err = a.startSSE()
	}
	if err != nil {
		info.Status = domain.ServerStatusError
		info.Err = err
		a.info = info
		return nil, err
	}

	// With port 0 the listener picks the port; report the real one.
	if a.sse != nil {
		if _, portStr, splitErr := net.SplitHostPort(a.sse.Addr()); splitErr == nil {
			if port, convErr := strconv.Atoi(portStr); convErr == nil {
				info.Port = port
			}
		}
	}

	info.Status = domain.ServerStatusRunning
	a.info = info
	a.state = stateServing
	a.logger.Info("server started", map[string]interface{}{
		"transport": info.Transport,
		"addr":      fmt.Sprintf("%s:%d", info.Host, info.Port),
	})
	started := *info
	return &started, nil
}

func (a *Adapter) startSSE() error {
	sse := server.NewSSEServer(
		shared.ServerInfo{Name: a.deps.Name, Version: a.deps.Version},
		a.newHandler,
		a.notifier,
		server.WithLogger(a.logger),
	)
	if err := sse.Start(fmt.Sprintf("%s:%d", a.cfg.Host, a.cfg.Port)); err != nil {
		return errors.Wrap(err, "starting SSE server")
	}
	a.sse = sse
	return nil
}

func (a *Adapter) startStdio(ctx context.Context) error {
	transport := server.NewStdioTransport(
		a.newHandler("stdio"),
		server.WithStdioLogger(a.logger),
	)
	a.stdio = transport
	go func() {
		if err := transport.Start(ctx); err != nil {
			a.logger.Error("stdio transport stopped", map[string]interface{}{"error": err.Error()})
		}
	}()
	return nil
}

// newHandler is the per-connection handler factory: every session gets a
// fresh protocol handler carrying its own subscription state.
func (a *Adapter) newHandler(sessionID string) server.MessageHandler {
	h := newProtocolHandler(a, sessionID)
	a.handlers.Store(sessionID, h)
	return h
}

// StopServer shuts down the running transport. Calling it when nothing is
// running is a no-op.
func (a *Adapter) StopServer(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != stateServing {
		return nil
	}
	if a.info != nil {
		a.info.Status = domain.ServerStatusStopping
	}

	var err error
	if a.sse != nil {
		err = a.sse.Shutdown(ctx)
		a.sse = nil
	}
	if a.stdio != nil {
		err = multierr.Append(err, a.stdio.Close())
		a.stdio = nil
	}

	a.handlers.Range(func(key, _ interface{}) bool {
		a.handlers.Delete(key)
		return true
	})

	if a.info != nil {
		a.info.Status = domain.ServerStatusStopped
	}
	a.state = stateStopped
	a.logger.Info("server stopped", nil)
	return err
}

// Cleanup releases everything the adapter holds. Safe to call in any
// state; a still-running server is stopped first.
func (a *Adapter) Cleanup(ctx context.Context) error {
	err := a.StopServer(ctx)

	a.mu.Lock()
	a.info = nil
	a.state = stateStopped
	a.mu.Unlock()
	return err
}

// Servers reports the current server, if any. Callers get a copy; the
// adapter keeps ownership of the live record.
func (a *Adapter) Servers() []*domain.ServerInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.info == nil {
		return nil
	}
	copied := *a.info
	return []*domain.ServerInfo{&copied}
}

// ResourceInvalidated tells connected clients a widget changed: every
// session learns the list changed, and sessions subscribed to the widget's
// URI get a targeted update notification.
func (a *Adapter) ResourceInvalidated(componentType string) {
	a.mu.Lock()
	notifier := a.notifier
	a.mu.Unlock()
	if notifier == nil {
		return
	}

	uri := domain.WidgetURI(componentType)
	ctx := context.Background()
	notifier.Broadcast(ctx, shared.NotificationResourcesChanged, nil)

	a.handlers.Range(func(key, value interface{}) bool {
		h, ok := value.(*protocolHandler)
		if !ok || !h.subscribedTo(uri) {
			return true
		}
		if err := notifier.Send(ctx, h.sessionID, shared.NotificationResourceUpdated, map[string]interface{}{"uri": uri}); err != nil {
			a.logger.Debug("dropping resource notification", map[string]interface{}{
				"session": h.sessionID,
				"error":   err.Error(),
			})
		}
		return true
	})
}

func (a *Adapter) componentsEnabled() bool {
	return !a.cfg.DisableComponents && a.resources != nil
}
