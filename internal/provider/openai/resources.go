package openai

import (
	"context"
	"fmt"

	"github.com/FreePeak/golang-widget-sdk/internal/bundler"
	"github.com/FreePeak/golang-widget-sdk/internal/domain"
	"github.com/FreePeak/golang-widget-sdk/internal/domain/shared"
	"github.com/FreePeak/golang-widget-sdk/internal/infrastructure/logging"
	"github.com/FreePeak/golang-widget-sdk/internal/registry"
)

// ResourceRegistry exposes every registered component as a widget resource
// under the ui://widget/ URI space. Reading a resource compiles the
// component on demand and serves the wrapped HTML document ChatGPT embeds
// in its sandbox iframe.
type ResourceRegistry struct {
	components *registry.ComponentRegistry
	bundler    *bundler.Bundler
	logger     *logging.Logger
}

func NewResourceRegistry(components *registry.ComponentRegistry, b *bundler.Bundler, logger *logging.Logger) *ResourceRegistry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ResourceRegistry{components: components, bundler: b, logger: logger}
}

// List returns one resource descriptor per registered component, in
// registration order.
func (r *ResourceRegistry) List() []shared.Resource {
	components := r.components.GetAll()
	resources := make([]shared.Resource, 0, len(components))
	for _, c := range components {
		resources = append(resources, shared.Resource{
			URI:         domain.WidgetURI(c.Type),
			Name:        c.Title,
			Description: c.Description,
			MIMEType:    domain.WidgetMIMEType,
		})
	}
	return resources
}

// Read resolves a widget URI to its bundled HTML document. Unknown URIs
// and unregistered component types both surface as not-found; compile
// failures keep their attribution so the caller sees which component and
// file broke.
func (r *ResourceRegistry) Read(ctx context.Context, uri string) ([]shared.ResourceContent, error) {
	componentType, ok := domain.TypeFromWidgetURI(uri)
	if !ok {
		return nil, domain.NewResourceNotFoundError(uri)
	}
	component, err := r.components.Get(componentType)
	if err != nil {
		return nil, domain.NewResourceNotFoundError(uri)
	}

	bundle, err := r.bundler.Bundle(ctx, component, ProviderName)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", uri, err)
	}
	if err := r.components.RegisterBundle(bundle); err != nil {
		return nil, err
	}

	r.logger.Debug("serving widget resource", map[string]interface{}{
		"uri":   uri,
		"bytes": len(bundle.Code),
	})
	return []shared.ResourceContent{{
		URI:      uri,
		MIMEType: domain.WidgetMIMEType,
		Text:     bundler.WrapHTML(bundle),
	}}, nil
}
