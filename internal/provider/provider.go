// Package provider defines the contract between the universal
// tool/component model and the host-specific wire bindings.
package provider

import (
	"context"

	"github.com/FreePeak/golang-widget-sdk/internal/bundler"
	"github.com/FreePeak/golang-widget-sdk/internal/domain"
	"github.com/FreePeak/golang-widget-sdk/internal/infrastructure/logging"
	"github.com/FreePeak/golang-widget-sdk/internal/registry"
)

// Kind identifies a known provider variant.
type Kind string

// Known provider kinds.
const (
	KindOpenAI Kind = "openai"
)

// TransportKind selects how a provider server binds to its host.
type TransportKind string

// Supported transports.
const (
	TransportSSE   TransportKind = "sse"
	TransportStdio TransportKind = "stdio"
)

// Config is the sum type over provider configurations. Each variant
// carries its own strongly-typed options; adapter construction dispatches
// on the kind rather than duck-typing a factory field.
type Config interface {
	Kind() Kind
}

// OpenAIConfig configures the OpenAI (ChatGPT apps) provider.
type OpenAIConfig struct {
	Transport TransportKind
	Host      string
	Port      int

	// DisableComponents drops rich component metadata from responses,
	// for hosts whose capability set excludes them.
	DisableComponents bool
}

// Kind returns KindOpenAI.
func (OpenAIConfig) Kind() Kind {
	return KindOpenAI
}

// Deps are the collaborators handed to an adapter at Initialize time.
// Registries are passed by reference; adapters never own ambient state.
type Deps struct {
	Name       string
	Version    string
	Tools      *registry.ToolRegistry
	Components *registry.ComponentRegistry
	Bundler    *bundler.Bundler
	Logger     *logging.Logger
}

// Adapter binds the universal model to one host platform's wire protocol
// and manages its live server instances.
//
// Lifecycle: uninitialized -> initialized -> serving -> stopped.
// Initialize is called exactly once; StartServer before Initialize is a
// programmer error and fails loudly. StopServer on an adapter with no
// live server is a no-op.
type Adapter interface {
	Name() string
	Initialize(ctx context.Context, deps Deps) error
	StartServer(ctx context.Context) (*domain.ServerInfo, error)
	StopServer(ctx context.Context) error
	Cleanup(ctx context.Context) error
	Servers() []*domain.ServerInfo
}
