package openai

import (
	"context"
	"fmt"

	"github.com/FreePeak/golang-widget-sdk/internal/domain"
	"github.com/FreePeak/golang-widget-sdk/internal/domain/shared"
	"github.com/FreePeak/golang-widget-sdk/pkg/types"
)

// Wire metadata keys the ChatGPT host understands.
const (
	metaOutputTemplate   = "openai/outputTemplate"
	metaWidgetAccessible = "openai/widgetAccessible"
	metaVisibility       = "openai/visibility"
)

// ConvertSchema turns a raw validation schema into the wire-format input
// schema. Engine-internal properties carry no meaning on the wire and are
// stripped.
func ConvertSchema(raw map[string]interface{}) (interface{}, error) {
	if raw == nil {
		return map[string]interface{}{"type": "object"}, nil
	}
	for _, key := range []string{"$schema", "$id", "$defs", "definitions"} {
		delete(raw, key)
	}
	if _, ok := raw["type"]; !ok {
		raw["type"] = "object"
	}
	return raw, nil
}

// convertTool maps a universal tool to its wire definition, converting the
// input schema through the per-provider cache and flattening the sparse
// openai metadata bag into wire-level keys.
func (a *Adapter) convertTool(tool *types.Tool) (shared.Tool, error) {
	var inputSchema interface{} = map[string]interface{}{"type": "object"}
	if tool.Schema != nil {
		converted, err := tool.Schema.ProviderSchema(ProviderName, ConvertSchema)
		if err != nil {
			return shared.Tool{}, err
		}
		inputSchema = converted
	}

	meta := make(map[string]interface{})
	if bag := tool.Meta.For(ProviderName); bag != nil {
		if componentType, ok := bag["component"].(string); ok {
			meta[metaOutputTemplate] = domain.WidgetURI(componentType)
		}
		if v, ok := bag["outputTemplate"]; ok {
			meta[metaOutputTemplate] = v
		}
		if v, ok := bag["widgetAccessible"]; ok {
			meta[metaWidgetAccessible] = v
		}
		if v, ok := bag["visibility"]; ok {
			meta[metaVisibility] = v
		}
	}
	if len(meta) == 0 {
		meta = nil
	}

	return shared.Tool{
		Name:        tool.Name,
		Title:       tool.Title,
		Description: tool.Description,
		InputSchema: inputSchema,
		Meta:        meta,
	}, nil
}

// convertResponse maps a universal response to the wire result. Error
// content items become "Error: " text because the wire has no native error
// content. A referenced component resolves to its resource URI in the
// result metadata; an unregistered component is a conversion error rather
// than silently dropped information. The result always carries at least
// one content item.
func (a *Adapter) convertResponse(response *types.Response) (shared.CallToolResult, error) {
	var out shared.CallToolResult

	for _, item := range response.Content {
		switch item.Kind {
		case types.ContentText:
			out.Content = append(out.Content, shared.Content{Type: "text", Text: item.Text})
		case types.ContentImage:
			out.Content = append(out.Content, shared.Content{Type: "image", URI: item.URL, MIMEType: item.MIMEType})
		case types.ContentResource:
			out.Content = append(out.Content, shared.Content{Type: "resource", URI: item.URI, MIMEType: item.MIMEType})
		case types.ContentError:
			out.Content = append(out.Content, shared.Content{Type: "text", Text: "Error: " + item.Message})
			out.IsError = true
		default:
			return shared.CallToolResult{}, fmt.Errorf("unknown content kind %q", item.Kind)
		}
	}

	if ref := response.Component; ref != nil {
		if a.componentsEnabled() {
			if _, err := a.deps.Components.Get(ref.Type); err != nil {
				return shared.CallToolResult{}, err
			}
			if out.Meta == nil {
				out.Meta = make(map[string]interface{})
			}
			out.Meta[metaOutputTemplate] = domain.WidgetURI(ref.Type)
			if ref.Props != nil {
				out.StructuredContent = ref.Props
			}
			for k, v := range ref.Meta {
				out.Meta[k] = v
			}
		}
		if len(out.Content) == 0 {
			// The response must never reach the host empty.
			out.Content = append(out.Content, shared.Content{
				Type: "text",
				Text: fmt.Sprintf("[Component: %s]", ref.Type),
			})
		}
	}

	for k, v := range response.Meta {
		if out.Meta == nil {
			out.Meta = make(map[string]interface{})
		}
		out.Meta[k] = v
	}

	return out, nil
}

// handleToolCall validates input and executes the tool handler. Nothing a
// tool does may escape as a transport error: validation failures, handler
// errors, and handler panics all degrade to a well-formed error-bearing
// result so a single tool's bug cannot crash the serving connection.
func (a *Adapter) handleToolCall(ctx context.Context, tool *types.Tool, args map[string]interface{}, tc types.ToolContext) (result shared.CallToolResult) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("tool handler panicked", map[string]interface{}{
				"tool":  tool.Name,
				"panic": fmt.Sprint(r),
			})
			result = errorResult(fmt.Sprintf("Error: tool %q panicked: %v", tool.Name, r))
		}
	}()

	input := args
	if tool.Schema != nil {
		validated := tool.Schema.Validate(args)
		if !validated.Valid {
			return errorResult("Invalid input: " + validated.ErrorText())
		}
		input = validated.Data
	}

	response, err := tool.Handler(ctx, input, tc)
	if err != nil {
		return errorResult("Error: " + err.Error())
	}
	if response == nil {
		return errorResult(fmt.Sprintf("Error: tool %q returned no response", tool.Name))
	}

	converted, err := a.convertResponse(response)
	if err != nil {
		return errorResult("Error: " + err.Error())
	}
	return converted
}

func errorResult(message string) shared.CallToolResult {
	return shared.CallToolResult{
		Content: []shared.Content{{Type: "text", Text: message}},
		IsError: true,
	}
}
