package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FreePeak/golang-widget-sdk/internal/domain"
	"github.com/FreePeak/golang-widget-sdk/pkg/types"
)

func newTool(name string) *types.Tool {
	return &types.Tool{
		Name: name,
		Handler: func(ctx context.Context, input map[string]interface{}, tc types.ToolContext) (*types.Response, error) {
			return types.NewResponse().WithText("ok"), nil
		},
	}
}

func TestToolRegistryRegisterAndGet(t *testing.T) {
	r := NewToolRegistry()

	require.NoError(t, r.Register(newTool("alpha")))
	tool, err := r.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", tool.Name)
	assert.True(t, r.Has("alpha"))
	assert.Equal(t, 1, r.Len())
}

func TestToolRegistryRejectsDuplicates(t *testing.T) {
	r := NewToolRegistry()
	require.NoError(t, r.Register(newTool("alpha")))

	err := r.Register(newTool("alpha"))
	require.Error(t, err)
	var dup *domain.DuplicateToolError
	assert.ErrorAs(t, err, &dup)
	assert.Equal(t, 1, r.Len(), "failed registration must not change the registry")
}

func TestToolRegistryRejectsInvalidTools(t *testing.T) {
	r := NewToolRegistry()

	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(&types.Tool{Handler: newTool("x").Handler}))
	assert.Error(t, r.Register(&types.Tool{Name: "no-handler"}))
}

func TestToolRegistryGetUnknown(t *testing.T) {
	r := NewToolRegistry()

	_, err := r.Get("missing")
	var notFound *domain.ToolNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestToolRegistryPreservesInsertionOrder(t *testing.T) {
	r := NewToolRegistry()
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, r.Register(newTool(name)))
	}

	all := r.GetAll()
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].Name)
	assert.Equal(t, "a", all[1].Name)
	assert.Equal(t, "b", all[2].Name)
}

func TestComponentRegistryRegisterAndGet(t *testing.T) {
	r := NewComponentRegistry()

	require.NoError(t, r.Register(&types.Component{
		Type:       "card",
		SourcePath: "card.js",
		Props: map[string]types.PropSpec{
			"location": {Type: "string", Required: true},
		},
	}))
	component, err := r.Get("card")
	require.NoError(t, err)
	assert.Equal(t, "card.js", component.SourcePath)
	assert.True(t, component.Props["location"].Required)
}

func TestComponentRegistryRejectsDuplicates(t *testing.T) {
	r := NewComponentRegistry()
	require.NoError(t, r.Register(&types.Component{Type: "card", SourcePath: "card.js"}))

	err := r.Register(&types.Component{Type: "card", SourcePath: "other.js"})
	var dup *domain.DuplicateComponentError
	assert.ErrorAs(t, err, &dup)
}

func TestComponentRegistryGetUnknown(t *testing.T) {
	r := NewComponentRegistry()

	_, err := r.Get("missing")
	var notRegistered *domain.ComponentNotRegisteredError
	assert.ErrorAs(t, err, &notRegistered)
}

func TestRegisterBundleRequiresParentComponent(t *testing.T) {
	r := NewComponentRegistry()

	err := r.RegisterBundle(&types.Bundle{Type: "card", Provider: "openai", Code: "x"})
	var notRegistered *domain.ComponentNotRegisteredError
	assert.ErrorAs(t, err, &notRegistered)
}

func TestBundleRoundTrip(t *testing.T) {
	r := NewComponentRegistry()
	require.NoError(t, r.Register(&types.Component{Type: "card", SourcePath: "card.js"}))
	require.NoError(t, r.RegisterBundle(&types.Bundle{Type: "card", Provider: "openai", Code: "code-v1"}))

	bundle, ok := r.Bundle("card", "openai")
	require.True(t, ok)
	assert.Equal(t, "code-v1", bundle.Code)

	_, ok = r.Bundle("card", "other-provider")
	assert.False(t, ok, "bundles are cached per provider")

	// Re-registering replaces the previous bundle for the same pair.
	require.NoError(t, r.RegisterBundle(&types.Bundle{Type: "card", Provider: "openai", Code: "code-v2"}))
	bundle, ok = r.Bundle("card", "openai")
	require.True(t, ok)
	assert.Equal(t, "code-v2", bundle.Code)
}
