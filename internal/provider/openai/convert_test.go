package openai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FreePeak/golang-widget-sdk/internal/provider"
	"github.com/FreePeak/golang-widget-sdk/internal/registry"
	"github.com/FreePeak/golang-widget-sdk/internal/testutil"
	"github.com/FreePeak/golang-widget-sdk/pkg/schema"
	"github.com/FreePeak/golang-widget-sdk/pkg/types"
)

func newTestAdapter(t *testing.T, opts ...func(*provider.OpenAIConfig)) *Adapter {
	t.Helper()
	cfg := provider.OpenAIConfig{Transport: provider.TransportSSE}
	for _, opt := range opts {
		opt(&cfg)
	}
	a, err := New(cfg)
	require.NoError(t, err)

	tools := registry.NewToolRegistry()
	require.NoError(t, tools.Register(testutil.EchoTool()))
	components := registry.NewComponentRegistry()
	require.NoError(t, components.Register(&types.Component{
		Type:       "weather-card",
		Title:      "Weather Card",
		SourcePath: "weather-card.js",
	}))

	require.NoError(t, a.Initialize(context.Background(), provider.Deps{
		Name:       "test-server",
		Version:    "0.0.1",
		Tools:      tools,
		Components: components,
	}))
	return a
}

func TestConvertSchemaStripsEngineProperties(t *testing.T) {
	out, err := ConvertSchema(map[string]interface{}{
		"$schema":     "http://json-schema.org/draft-07/schema#",
		"$id":         "https://example.com/schema",
		"$defs":       map[string]interface{}{},
		"definitions": map[string]interface{}{},
		"type":        "object",
		"properties":  map[string]interface{}{},
	})
	require.NoError(t, err)

	converted, ok := out.(map[string]interface{})
	require.True(t, ok)
	assert.NotContains(t, converted, "$schema")
	assert.NotContains(t, converted, "$id")
	assert.NotContains(t, converted, "$defs")
	assert.NotContains(t, converted, "definitions")
	assert.Contains(t, converted, "properties")
}

func TestConvertSchemaEnsuresObjectType(t *testing.T) {
	out, err := ConvertSchema(map[string]interface{}{"properties": map[string]interface{}{}})
	require.NoError(t, err)
	assert.Equal(t, "object", out.(map[string]interface{})["type"])

	out, err = ConvertSchema(nil)
	require.NoError(t, err)
	assert.Equal(t, "object", out.(map[string]interface{})["type"])
}

func TestConvertToolFlattensMetadata(t *testing.T) {
	a := newTestAdapter(t)
	tool := &types.Tool{
		Name:        "get_weather",
		Title:       "Get Weather",
		Description: "weather lookup",
		Schema:      schema.Object(schema.String("location", schema.Required())),
		Handler:     testutil.EchoTool().Handler,
		Meta: types.ProviderMeta{
			"openai": {
				"component":        "weather-card",
				"widgetAccessible": true,
			},
			"anthropic": {
				"component": "should-not-leak",
			},
		},
	}

	wire, err := a.convertTool(tool)
	require.NoError(t, err)

	assert.Equal(t, "get_weather", wire.Name)
	assert.Equal(t, "Get Weather", wire.Title)
	assert.Equal(t, "ui://widget/weather-card.html", wire.Meta[metaOutputTemplate])
	assert.Equal(t, true, wire.Meta[metaWidgetAccessible])
	assert.NotContains(t, wire.Meta, "component")

	inputSchema, ok := wire.InputSchema.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "object", inputSchema["type"])
}

func TestConvertToolWithoutSchemaOrMeta(t *testing.T) {
	a := newTestAdapter(t)
	wire, err := a.convertTool(&types.Tool{Name: "bare", Handler: testutil.EchoTool().Handler})
	require.NoError(t, err)

	assert.Nil(t, wire.Meta)
	assert.Equal(t, map[string]interface{}{"type": "object"}, wire.InputSchema)
}

func TestConvertResponsePreservesContentOrder(t *testing.T) {
	a := newTestAdapter(t)
	response := types.NewResponse().
		WithText("first").
		WithError("boom").
		WithText("last")

	wire, err := a.convertResponse(response)
	require.NoError(t, err)

	require.Len(t, wire.Content, 3)
	assert.Equal(t, "first", wire.Content[0].Text)
	assert.Equal(t, "Error: boom", wire.Content[1].Text)
	assert.Equal(t, "last", wire.Content[2].Text)
	assert.True(t, wire.IsError)
}

func TestConvertResponseBindsComponent(t *testing.T) {
	a := newTestAdapter(t)
	props := map[string]interface{}{"location": "Oslo"}
	response := types.NewResponse().
		WithText("Oslo: 4°C").
		WithComponent("weather-card", props)

	wire, err := a.convertResponse(response)
	require.NoError(t, err)

	assert.Equal(t, "ui://widget/weather-card.html", wire.Meta[metaOutputTemplate])
	assert.Equal(t, props, wire.StructuredContent)
	require.Len(t, wire.Content, 1)
	assert.Equal(t, "Oslo: 4°C", wire.Content[0].Text)
}

func TestConvertResponseSynthesizesFallbackText(t *testing.T) {
	a := newTestAdapter(t)
	response := types.NewResponse().WithComponent("weather-card", nil)

	wire, err := a.convertResponse(response)
	require.NoError(t, err)

	require.Len(t, wire.Content, 1, "a result must never reach the host empty")
	assert.Equal(t, "[Component: weather-card]", wire.Content[0].Text)
}

func TestConvertResponseRejectsUnregisteredComponent(t *testing.T) {
	a := newTestAdapter(t)
	response := types.NewResponse().WithComponent("no-such-card", nil)

	_, err := a.convertResponse(response)
	assert.Error(t, err, "dropping the component silently would lose information")
}

func TestConvertResponseComponentsDisabled(t *testing.T) {
	a := newTestAdapter(t, func(cfg *provider.OpenAIConfig) {
		cfg.DisableComponents = true
	})
	response := types.NewResponse().WithComponent("weather-card", map[string]interface{}{"x": 1})

	wire, err := a.convertResponse(response)
	require.NoError(t, err)

	assert.NotContains(t, wire.Meta, metaOutputTemplate)
	assert.Nil(t, wire.StructuredContent)
	require.Len(t, wire.Content, 1)
	assert.Equal(t, "[Component: weather-card]", wire.Content[0].Text)
}

func TestHandleToolCallValidatesInput(t *testing.T) {
	a := newTestAdapter(t)
	tool, err := a.deps.Tools.Get("echo")
	require.NoError(t, err)

	result := a.handleToolCall(context.Background(), tool, map[string]interface{}{}, types.ToolContext{Provider: ProviderName})

	assert.True(t, result.IsError)
	require.NotEmpty(t, result.Content)
	assert.Contains(t, result.Content[0].Text, "Invalid input")
}

func TestHandleToolCallAppliesDefaults(t *testing.T) {
	var seen map[string]interface{}
	a := newTestAdapter(t)
	tool := &types.Tool{
		Name:   "capture",
		Schema: schema.Object(schema.String("mode", schema.Default("auto"))),
		Handler: func(ctx context.Context, input map[string]interface{}, tc types.ToolContext) (*types.Response, error) {
			seen = input
			return types.NewResponse().WithText("ok"), nil
		},
	}

	result := a.handleToolCall(context.Background(), tool, map[string]interface{}{}, types.ToolContext{})

	assert.False(t, result.IsError)
	assert.Equal(t, "auto", seen["mode"])
}

func TestHandleToolCallContainsHandlerErrors(t *testing.T) {
	a := newTestAdapter(t)
	tool := &types.Tool{
		Name: "failing",
		Handler: func(ctx context.Context, input map[string]interface{}, tc types.ToolContext) (*types.Response, error) {
			return nil, assert.AnError
		},
	}

	result := a.handleToolCall(context.Background(), tool, nil, types.ToolContext{})

	assert.True(t, result.IsError)
	require.NotEmpty(t, result.Content)
	assert.Contains(t, result.Content[0].Text, "Error: ")
}

func TestHandleToolCallContainsPanics(t *testing.T) {
	a := newTestAdapter(t)
	tool := &types.Tool{
		Name: "panicking",
		Handler: func(ctx context.Context, input map[string]interface{}, tc types.ToolContext) (*types.Response, error) {
			panic("kaboom")
		},
	}

	result := a.handleToolCall(context.Background(), tool, nil, types.ToolContext{})

	assert.True(t, result.IsError)
	require.NotEmpty(t, result.Content)
	assert.Contains(t, result.Content[0].Text, "kaboom")
}
