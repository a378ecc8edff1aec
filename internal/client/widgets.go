package client

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/FreePeak/golang-widget-sdk/internal/domain"
	"github.com/FreePeak/golang-widget-sdk/internal/domain/shared"
	"github.com/FreePeak/golang-widget-sdk/internal/infrastructure/logging"
)

// WidgetInfo describes one widget resource exposed by the server.
type WidgetInfo struct {
	Type        string
	URI         string
	Name        string
	Description string
}

// ToolResult is the normalized outcome of a tool call.
type ToolResult struct {
	Output  map[string]interface{}
	Text    string
	IsError bool
	Meta    map[string]interface{}
}

// ListTools fetches the server's tool definitions.
func (c *Client) ListTools(ctx context.Context) ([]shared.Tool, error) {
	raw, err := c.call(ctx, shared.MethodListTools, struct{}{})
	if err != nil {
		return nil, err
	}
	var result shared.ListToolsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, newError(KindProtocol, shared.MethodListTools, err)
	}
	return result.Tools, nil
}

// ListWidgets lists the server's resources and keeps only those in the
// widget URI space.
func (c *Client) ListWidgets(ctx context.Context) ([]WidgetInfo, error) {
	raw, err := c.call(ctx, shared.MethodListResources, struct{}{})
	if err != nil {
		return nil, err
	}
	var result shared.ListResourcesResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, newError(KindProtocol, shared.MethodListResources, err)
	}

	widgets := make([]WidgetInfo, 0, len(result.Resources))
	for _, res := range result.Resources {
		componentType, ok := domain.TypeFromWidgetURI(res.URI)
		if !ok {
			continue
		}
		widgets = append(widgets, WidgetInfo{
			Type:        componentType,
			URI:         res.URI,
			Name:        res.Name,
			Description: res.Description,
		})
	}
	return widgets, nil
}

// LoadWidget fetches a widget's HTML document, consulting the local cache
// first. The cache lives for the duration of the connection; Disconnect
// clears it.
func (c *Client) LoadWidget(ctx context.Context, uri string) (string, error) {
	c.mu.Lock()
	if html, ok := c.widgetCache[uri]; ok {
		c.mu.Unlock()
		return html, nil
	}
	c.mu.Unlock()

	raw, err := c.call(ctx, shared.MethodReadResource, shared.ReadResourceParams{URI: uri})
	if err != nil {
		return "", err
	}
	var result shared.ReadResourceResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", newError(KindProtocol, shared.MethodReadResource, err)
	}
	if len(result.Contents) == 0 {
		return "", newError(KindProtocol, shared.MethodReadResource, errors.Errorf("empty contents for %s", uri))
	}

	content := result.Contents[0]
	html := content.Text
	if html == "" && content.Blob != "" {
		decoded, err := base64.StdEncoding.DecodeString(content.Blob)
		if err != nil {
			return "", newError(KindProtocol, shared.MethodReadResource, errors.Wrap(err, "decoding blob"))
		}
		html = string(decoded)
	}

	c.mu.Lock()
	c.widgetCache[uri] = html
	c.mu.Unlock()
	c.logger.Debug("widget cached", logging.Fields{"uri": uri, "bytes": len(html)})
	return html, nil
}

// InvalidateWidget drops one cached widget document, forcing the next
// load to refetch.
func (c *Client) InvalidateWidget(uri string) {
	c.mu.Lock()
	delete(c.widgetCache, uri)
	c.mu.Unlock()
}

// CallTool invokes a server tool and normalizes the wire result: the
// first text content item is surfaced as Text and, when it parses as a
// JSON object, as Output.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (*ToolResult, error) {
	raw, err := c.call(ctx, shared.MethodCallTool, shared.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}
	var wire shared.CallToolResult
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, newError(KindProtocol, shared.MethodCallTool, err)
	}
	return NormalizeResult(&wire), nil
}

// NormalizeResult converts a wire tool result into the client's ToolResult.
func NormalizeResult(wire *shared.CallToolResult) *ToolResult {
	result := &ToolResult{IsError: wire.IsError, Meta: wire.Meta}
	for _, item := range wire.Content {
		if item.Type == "text" {
			result.Text = item.Text
			break
		}
	}
	if structured, ok := wire.StructuredContent.(map[string]interface{}); ok {
		result.Output = structured
	} else if result.Text != "" {
		var parsed map[string]interface{}
		if json.Unmarshal([]byte(result.Text), &parsed) == nil {
			result.Output = parsed
		}
	}
	return result
}
