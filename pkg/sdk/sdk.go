// Package sdk is the public entry point: declare tools and components,
// attach providers, start serving. A typical server is a handful of
// lines:
//
//	app := sdk.New("weather", "1.0.0", sdk.WithComponentRoot("./widgets"))
//	app.RegisterTool(weatherTool)
//	app.RegisterComponent(weatherCard)
//	app.AddProvider(provider.OpenAIConfig{Transport: provider.TransportSSE, Port: 8000})
//	app.Start(ctx)
package sdk

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/FreePeak/golang-widget-sdk/internal/bundler"
	"github.com/FreePeak/golang-widget-sdk/internal/domain"
	"github.com/FreePeak/golang-widget-sdk/internal/infrastructure/logging"
	"github.com/FreePeak/golang-widget-sdk/internal/provider"
	"github.com/FreePeak/golang-widget-sdk/internal/provider/openai"
	"github.com/FreePeak/golang-widget-sdk/internal/registry"
	"github.com/FreePeak/golang-widget-sdk/pkg/types"
)

// adapterFactory builds an adapter from its typed configuration. The
// table lives here, outside the provider packages, so adding a provider
// never creates an import cycle.
var adapterFactories = map[provider.Kind]func(provider.Config) (provider.Adapter, error){
	provider.KindOpenAI: func(cfg provider.Config) (provider.Adapter, error) {
		typed, ok := cfg.(provider.OpenAIConfig)
		if !ok {
			return nil, errors.Errorf("openai adapter cannot use %T config", cfg)
		}
		return openai.New(typed)
	},
}

// resourceNotifier is implemented by adapters that push resource-change
// notifications to connected clients.
type resourceNotifier interface {
	ResourceInvalidated(componentType string)
}

// App wires the registries, the bundler, and provider adapters together.
type App struct {
	name    string
	version string
	logger  *logging.Logger

	tools      *registry.ToolRegistry
	components *registry.ComponentRegistry
	bundler    *bundler.Bundler

	componentRoot string
	sourceMaps    bool
	watch         bool

	mu       sync.Mutex
	adapters []provider.Adapter
	started  bool
	watchCtx context.CancelFunc
}

// Option configures an App.
type Option func(*App)

func WithLogger(logger *logging.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithComponentRoot sets the directory component source paths resolve
// against. Without it, component registration still works but serving
// widgets fails at bundle time.
func WithComponentRoot(dir string) Option {
	return func(a *App) { a.componentRoot = dir }
}

// WithSourceMaps enables inline source maps in bundled output.
func WithSourceMaps() Option {
	return func(a *App) { a.sourceMaps = true }
}

// WithWatch recompiles components when their sources change and notifies
// connected clients. Development use only.
func WithWatch() Option {
	return func(a *App) { a.watch = true }
}

// New creates an App. Name and version are reported to clients during
// the protocol handshake.
func New(name, version string, opts ...Option) *App {
	a := &App{
		name:       name,
		version:    version,
		logger:     logging.NewNop(),
		tools:      registry.NewToolRegistry(),
		components: registry.NewComponentRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}

	bundlerOpts := []bundler.Option{
		bundler.WithLogger(a.logger),
		bundler.WithInvalidateFunc(a.notifyResourceChanged),
	}
	if a.sourceMaps {
		bundlerOpts = append(bundlerOpts, bundler.WithSourceMap())
	}
	root := a.componentRoot
	if root == "" {
		root = "."
	}
	a.bundler = bundler.New(root, bundlerOpts...)
	return a
}

// RegisterTool adds a tool definition. Tool names are unique; a second
// registration under the same name fails.
func (a *App) RegisterTool(tool *types.Tool) error {
	return a.tools.Register(tool)
}

// RegisterComponent adds a component definition. Component types are
// unique; a second registration under the same type fails.
func (a *App) RegisterComponent(component *types.Component) error {
	return a.components.Register(component)
}

// AddProvider attaches an adapter built from the given configuration.
// Providers must be added before Start.
func (a *App) AddProvider(cfg provider.Config) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return domain.NewLifecycleError("add provider", "app already started")
	}

	factory, ok := adapterFactories[cfg.Kind()]
	if !ok {
		return errors.Errorf("unknown provider kind %q", cfg.Kind())
	}
	adapter, err := factory(cfg)
	if err != nil {
		return err
	}
	a.adapters = append(a.adapters, adapter)
	return nil
}

// Start initializes every adapter and brings up its server. It fails on
// the first adapter that cannot start; already-started adapters are shut
// down again so Start never leaves a half-running app behind.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return domain.NewLifecycleError("start", "app already started")
	}
	if len(a.adapters) == 0 {
		return domain.NewLifecycleError("start", "no providers configured")
	}

	deps := provider.Deps{
		Name:       a.name,
		Version:    a.version,
		Tools:      a.tools,
		Components: a.components,
		Bundler:    a.bundler,
		Logger:     a.logger,
	}

	var startedAdapters []provider.Adapter
	for _, adapter := range a.adapters {
		if err := adapter.Initialize(ctx, deps); err != nil {
			a.rollback(ctx, startedAdapters)
			return errors.Wrapf(err, "initializing %s", adapter.Name())
		}
		info, err := adapter.StartServer(ctx)
		if err != nil {
			a.rollback(ctx, startedAdapters)
			return errors.Wrapf(err, "starting %s", adapter.Name())
		}
		startedAdapters = append(startedAdapters, adapter)
		a.logger.Info("provider serving", logging.Fields{
			"provider":  info.Provider,
			"transport": info.Transport,
		})
	}

	if a.watch {
		watchCtx, cancel := context.WithCancel(context.Background())
		a.watchCtx = cancel
		go func() {
			if err := a.bundler.Watch(watchCtx); err != nil && watchCtx.Err() == nil {
				a.logger.Error("source watcher stopped", logging.Fields{"error": err.Error()})
			}
		}()
	}

	a.started = true
	return nil
}

func (a *App) rollback(ctx context.Context, started []provider.Adapter) {
	for _, adapter := range started {
		if err := adapter.StopServer(ctx); err != nil {
			a.logger.Warn("rollback stop failed", logging.Fields{
				"provider": adapter.Name(),
				"error":    err.Error(),
			})
		}
	}
}

// Shutdown stops every adapter and the source watcher. Errors are
// collected, not short-circuited, so one bad adapter cannot block the
// rest from stopping.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.watchCtx != nil {
		a.watchCtx()
		a.watchCtx = nil
	}

	var err error
	for _, adapter := range a.adapters {
		err = multierr.Append(err, adapter.StopServer(ctx))
		err = multierr.Append(err, adapter.Cleanup(ctx))
	}
	a.started = false
	return err
}

// Servers reports every running server across all adapters.
func (a *App) Servers() []*domain.ServerInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	var infos []*domain.ServerInfo
	for _, adapter := range a.adapters {
		infos = append(infos, adapter.Servers()...)
	}
	return infos
}

// Tools exposes the tool registry, mainly for tests and introspection.
func (a *App) Tools() *registry.ToolRegistry { return a.tools }

// Components exposes the component registry.
func (a *App) Components() *registry.ComponentRegistry { return a.components }

func (a *App) notifyResourceChanged(componentType string) {
	a.mu.Lock()
	adapters := append([]provider.Adapter(nil), a.adapters...)
	a.mu.Unlock()
	for _, adapter := range adapters {
		if notifier, ok := adapter.(resourceNotifier); ok {
			notifier.ResourceInvalidated(componentType)
		}
	}
}
