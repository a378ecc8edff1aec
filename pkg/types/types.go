// Package types defines the provider-agnostic tool and component model
// shared between the SDK surface and the provider adapters.
package types

import (
	"context"

	"github.com/FreePeak/golang-widget-sdk/pkg/schema"
)

// DisplayMode is the layout mode a host renders a component in.
type DisplayMode string

// Display modes supported by hosts.
const (
	DisplayModeInline     DisplayMode = "inline"
	DisplayModePiP        DisplayMode = "pip"
	DisplayModeFullscreen DisplayMode = "fullscreen"
)

// Theme is the host color scheme.
type Theme string

// Themes supported by hosts.
const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ProviderMeta is a sparse map of provider-specific metadata keyed by
// provider name. Lookups for providers that set nothing return nil.
type ProviderMeta map[string]map[string]interface{}

// For returns the metadata bag for the given provider, or nil when absent.
func (m ProviderMeta) For(provider string) map[string]interface{} {
	if m == nil {
		return nil
	}
	return m[provider]
}

// ToolContext carries per-invocation information into a tool handler.
type ToolContext struct {
	Provider  string
	SessionID string
}

// HandlerFunc executes a tool call. Input has already been validated and
// default values applied.
type HandlerFunc func(ctx context.Context, input map[string]interface{}, tc ToolContext) (*Response, error)

// Tool is a named, schema-validated callable exposed to hosts.
type Tool struct {
	Name        string
	Title       string
	Description string
	Schema      *schema.Schema
	Handler     HandlerFunc
	Meta        ProviderMeta
}

// PropSpec describes one component prop for dev-time editing affordances.
// It is never used for runtime validation.
type PropSpec struct {
	Type        string
	Required    bool
	Description string
	Enum        []string
	Default     interface{}
}

// Component declares a renderable UI component backed by a source file.
type Component struct {
	Type        string
	Title       string
	Description string
	SourcePath  string
	Props       map[string]PropSpec
	Meta        ProviderMeta
}

// Bundle is the compiled, self-contained artifact derived from a Component
// for one provider.
type Bundle struct {
	Type      string
	Code      string
	URL       string
	SourceMap string
	Provider  string
}
