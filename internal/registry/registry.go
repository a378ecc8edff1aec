// Package registry holds the in-memory tool, component, and bundle
// registries. Registries are explicit objects injected into the app
// builder and the provider adapters; they are mutated only during setup
// and read-only while serving.
package registry

import (
	"fmt"
	"sync"

	"github.com/FreePeak/golang-widget-sdk/internal/domain"
	"github.com/FreePeak/golang-widget-sdk/pkg/types"
)

// ToolRegistry enforces uniqueness of tool names.
type ToolRegistry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]*types.Tool
}

// NewToolRegistry creates an empty ToolRegistry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]*types.Tool)}
}

// Register adds a tool. Registering a second tool under an existing name
// fails and leaves the registry untouched.
func (r *ToolRegistry) Register(tool *types.Tool) error {
	if tool == nil {
		return fmt.Errorf("tool cannot be nil")
	}
	if tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tool %q has no handler", tool.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return domain.NewDuplicateToolError(tool.Name)
	}
	r.tools[tool.Name] = tool
	r.order = append(r.order, tool.Name)
	return nil
}

// Get retrieves a tool by name.
func (r *ToolRegistry) Get(name string) (*types.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	if !ok {
		return nil, domain.NewToolNotFoundError(name)
	}
	return tool, nil
}

// Has reports whether a tool is registered under the name.
func (r *ToolRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// GetAll returns all tools in registration order.
func (r *ToolRegistry) GetAll() []*types.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]*types.Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// Len returns the number of registered tools.
func (r *ToolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

type bundleKey struct {
	componentType string
	provider      string
}

// ComponentRegistry enforces uniqueness of component types and owns the
// bundles derived from them. At most one bundle is kept live per
// (type, provider) pair.
type ComponentRegistry struct {
	mu         sync.RWMutex
	order      []string
	components map[string]*types.Component
	bundles    map[bundleKey]*types.Bundle
}

// NewComponentRegistry creates an empty ComponentRegistry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		components: make(map[string]*types.Component),
		bundles:    make(map[bundleKey]*types.Bundle),
	}
}

// Register adds a component definition. Registering a second component
// under an existing type fails and leaves the registry untouched.
func (r *ComponentRegistry) Register(component *types.Component) error {
	if component == nil {
		return fmt.Errorf("component cannot be nil")
	}
	if component.Type == "" {
		return fmt.Errorf("component type cannot be empty")
	}
	if component.SourcePath == "" {
		return fmt.Errorf("component %q has no source path", component.Type)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.components[component.Type]; exists {
		return domain.NewDuplicateComponentError(component.Type)
	}
	r.components[component.Type] = component
	r.order = append(r.order, component.Type)
	return nil
}

// Get retrieves a component definition by type.
func (r *ComponentRegistry) Get(componentType string) (*types.Component, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	component, ok := r.components[componentType]
	if !ok {
		return nil, domain.NewComponentNotRegisteredError(componentType)
	}
	return component, nil
}

// Has reports whether a component is registered under the type.
func (r *ComponentRegistry) Has(componentType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.components[componentType]
	return ok
}

// GetAll returns all component definitions in registration order.
func (r *ComponentRegistry) GetAll() []*types.Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	components := make([]*types.Component, 0, len(r.order))
	for _, componentType := range r.order {
		components = append(components, r.components[componentType])
	}
	return components
}

// Len returns the number of registered components.
func (r *ComponentRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// RegisterBundle stores a derived bundle, replacing any previous bundle
// for the same (type, provider) pair. The parent component must exist.
func (r *ComponentRegistry) RegisterBundle(bundle *types.Bundle) error {
	if bundle == nil {
		return fmt.Errorf("bundle cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.components[bundle.Type]; !exists {
		return domain.NewComponentNotRegisteredError(bundle.Type)
	}
	r.bundles[bundleKey{componentType: bundle.Type, provider: bundle.Provider}] = bundle
	return nil
}

// Bundle retrieves the live bundle for a (type, provider) pair.
func (r *ComponentRegistry) Bundle(componentType, provider string) (*types.Bundle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bundle, ok := r.bundles[bundleKey{componentType: componentType, provider: provider}]
	return bundle, ok
}
