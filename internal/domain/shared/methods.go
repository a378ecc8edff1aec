package shared

// MCP method names.
const (
	// Core methods
	MethodInitialize = "initialize"
	MethodPing       = "ping"

	// Resource methods
	MethodListResources       = "resources/list"
	MethodReadResource        = "resources/read"
	MethodSubscribeResource   = "resources/subscribe"
	MethodUnsubscribeResource = "resources/unsubscribe"

	// Tool methods
	MethodListTools = "tools/list"
	MethodCallTool  = "tools/call"

	// Server-initiated notifications
	NotificationInitialized         = "notifications/initialized"
	NotificationResourcesChanged    = "notifications/resources/list_changed"
	NotificationResourceUpdated     = "notifications/resources/updated"
	NotificationToolsChanged        = "notifications/tools/list_changed"
)

// ProtocolVersion is the MCP protocol revision this server speaks.
const ProtocolVersion = "2024-11-05"

// InitializeParams represents parameters for the initialize method.
type InitializeParams struct {
	ProtocolVersion string     `json:"protocolVersion"`
	ClientInfo      ServerInfo `json:"clientInfo"`
}

// InitializeResult represents the result of the initialize method.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
	Capabilities    Capabilities `json:"capabilities"`
	Instructions    string       `json:"instructions,omitempty"`
}

// ListResourcesResult represents the result of the resources/list method.
type ListResourcesResult struct {
	Resources []Resource `json:"resources"`
}

// ReadResourceParams represents parameters for the resources/read method.
type ReadResourceParams struct {
	URI string `json:"uri"`
}

// ReadResourceResult represents the result of the resources/read method.
type ReadResourceResult struct {
	Contents []ResourceContent `json:"contents"`
}

// SubscribeResourceParams represents parameters for resources/subscribe
// and resources/unsubscribe.
type SubscribeResourceParams struct {
	URI string `json:"uri"`
}

// ListToolsResult represents the result of the tools/list method.
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

// CallToolParams represents parameters for the tools/call method.
type CallToolParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// CallToolResult represents the result of the tools/call method.
type CallToolResult struct {
	Content           []Content              `json:"content"`
	StructuredContent interface{}            `json:"structuredContent,omitempty"`
	IsError           bool                   `json:"isError,omitempty"`
	Meta              map[string]interface{} `json:"_meta,omitempty"`
}
