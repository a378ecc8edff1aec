package types

// ContentKind tags one item in a response's content sequence.
type ContentKind string

// Content kinds a tool handler may return.
const (
	ContentText     ContentKind = "text"
	ContentImage    ContentKind = "image"
	ContentResource ContentKind = "resource"
	ContentError    ContentKind = "error"
)

// Content is one item in a response's ordered content sequence. Only the
// fields relevant to its Kind are set.
type Content struct {
	Kind     ContentKind
	Text     string // ContentText
	URL      string // ContentImage
	MIMEType string // ContentImage, ContentResource
	URI      string // ContentResource
	Message  string // ContentError
}

// ComponentRef binds a response to a registered component.
type ComponentRef struct {
	Type  string
	Props map[string]interface{}
	Meta  map[string]interface{}
}

// Response is the universal, provider-agnostic return value of a tool
// handler. Provider adapters convert it to their wire shape.
type Response struct {
	Content   []Content
	Component *ComponentRef
	Meta      map[string]interface{}
}

// NewResponse creates an empty response.
func NewResponse() *Response {
	return &Response{}
}

// WithText appends a text content item.
func (r *Response) WithText(text string) *Response {
	r.Content = append(r.Content, Content{Kind: ContentText, Text: text})
	return r
}

// WithImage appends an image content item.
func (r *Response) WithImage(url, mimeType string) *Response {
	r.Content = append(r.Content, Content{Kind: ContentImage, URL: url, MIMEType: mimeType})
	return r
}

// WithResource appends a resource-reference content item.
func (r *Response) WithResource(uri, mimeType string) *Response {
	r.Content = append(r.Content, Content{Kind: ContentResource, URI: uri, MIMEType: mimeType})
	return r
}

// WithError appends an error content item. The response itself remains a
// well-formed value; adapters render it as provider-appropriate error text.
func (r *Response) WithError(message string) *Response {
	r.Content = append(r.Content, Content{Kind: ContentError, Message: message})
	return r
}

// WithComponent attaches a component reference. The component type must be
// registered before the response reaches a provider adapter.
func (r *Response) WithComponent(componentType string, props map[string]interface{}) *Response {
	r.Component = &ComponentRef{Type: componentType, Props: props}
	return r
}

// WithMeta sets one free-form metadata key.
func (r *Response) WithMeta(key string, value interface{}) *Response {
	if r.Meta == nil {
		r.Meta = make(map[string]interface{})
	}
	r.Meta[key] = value
	return r
}

// HasContent reports whether the response carries at least one content item.
func (r *Response) HasContent() bool {
	return len(r.Content) > 0
}
