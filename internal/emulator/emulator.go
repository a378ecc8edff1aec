// Package emulator reproduces the ChatGPT widget host surface outside the
// real host, so components can be exercised in local previews and tests.
// It mirrors the window.openai globals, the host API methods, and the
// host-dispatched events, with the same isolation guarantee the real host
// gives: state handed out or taken in is always deep-cloned, so no caller
// can mutate emulator state through a shared reference.
package emulator

import (
	"context"
	"net/url"
	"sync"

	"github.com/mohae/deepcopy"
	"github.com/pkg/errors"

	"github.com/FreePeak/golang-widget-sdk/internal/infrastructure/logging"
	"github.com/FreePeak/golang-widget-sdk/pkg/types"
)

// Host-dispatched event names, matching what bundled components listen for.
const (
	EventSetGlobals   = "openai:set_globals"
	EventToolResponse = "openai:tool_response"
)

// State is the full window.openai global surface.
type State struct {
	ToolInput   map[string]interface{}
	ToolOutput  map[string]interface{}
	WidgetState map[string]interface{}
	DisplayMode types.DisplayMode
	Theme       types.Theme
	MaxHeight   int
	Locale      string
}

// ToolResult is what a widget-initiated tool call yields.
type ToolResult struct {
	Output  map[string]interface{}
	Text    string
	IsError bool
}

// ToolCaller executes widget-initiated tool calls. In previews this is
// backed by the development protocol client; tests plug in fakes.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]interface{}) (*ToolResult, error)
}

// GrantFunc decides which display mode the host actually grants for a
// request. The granted mode may differ from the requested one.
type GrantFunc func(requested types.DisplayMode) types.DisplayMode

type globalsListener func(changed map[string]interface{})
type toolResponseListener func(toolName string, result *ToolResult)

// Emulator holds host state for a single simulated widget session.
type Emulator struct {
	mu      sync.Mutex
	state   State
	caller  ToolCaller
	grant   GrantFunc
	logger  *logging.Logger
	nextSub int

	globalsSubs      map[int]globalsListener
	toolResponseSubs map[int]toolResponseListener

	followups []string
	opened    []string
}

// Option configures an Emulator.
type Option func(*Emulator)

// WithToolCaller wires the backend that serves widget-initiated tool calls.
func WithToolCaller(caller ToolCaller) Option {
	return func(e *Emulator) { e.caller = caller }
}

// WithDisplayModeGrant overrides the display-mode grant policy. The
// default grants whatever is requested.
func WithDisplayModeGrant(grant GrantFunc) Option {
	return func(e *Emulator) { e.grant = grant }
}

func WithLogger(logger *logging.Logger) Option {
	return func(e *Emulator) { e.logger = logger }
}

func WithLocale(locale string) Option {
	return func(e *Emulator) { e.state.Locale = locale }
}

func WithTheme(theme types.Theme) Option {
	return func(e *Emulator) { e.state.Theme = theme }
}

func WithMaxHeight(px int) Option {
	return func(e *Emulator) { e.state.MaxHeight = px }
}

// New creates an emulator with host defaults: inline display, light
// theme, en-US locale.
func New(opts ...Option) *Emulator {
	e := &Emulator{
		state: State{
			DisplayMode: types.DisplayModeInline,
			Theme:       types.ThemeLight,
			MaxHeight:   480,
			Locale:      "en-US",
		},
		logger:           logging.NewNop(),
		globalsSubs:      make(map[int]globalsListener),
		toolResponseSubs: make(map[int]toolResponseListener),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot returns a deep copy of the current state. Mutating the copy
// has no effect on the emulator.
func (e *Emulator) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cloneStateLocked()
}

func (e *Emulator) cloneStateLocked() State {
	out := e.state
	out.ToolInput = cloneMap(e.state.ToolInput)
	out.ToolOutput = cloneMap(e.state.ToolOutput)
	out.WidgetState = cloneMap(e.state.WidgetState)
	return out
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	return deepcopy.Copy(m).(map[string]interface{})
}

// SeedToolCall installs the input/output of the tool call that produced
// the widget, as the host does before the widget first renders.
func (e *Emulator) SeedToolCall(input, output map[string]interface{}) {
	e.mu.Lock()
	e.state.ToolInput = cloneMap(input)
	e.state.ToolOutput = cloneMap(output)
	changed := map[string]interface{}{
		"toolInput":  e.cloneStateLocked().ToolInput,
		"toolOutput": e.cloneStateLocked().ToolOutput,
	}
	e.mu.Unlock()
	e.dispatchGlobals(changed)
}

// SetWidgetState persists widget-private state, cloned on the way in. The
// host treats it as opaque and echoes it back through the globals event.
func (e *Emulator) SetWidgetState(state map[string]interface{}) {
	e.mu.Lock()
	e.state.WidgetState = cloneMap(state)
	changed := map[string]interface{}{"widgetState": e.cloneStateLocked().WidgetState}
	e.mu.Unlock()
	e.dispatchGlobals(changed)
}

// SetGlobals applies a partial host-side update (theme, locale, max
// height) and notifies subscribers with only the keys that changed.
func (e *Emulator) SetGlobals(update map[string]interface{}) error {
	changed := make(map[string]interface{}, len(update))
	e.mu.Lock()
	for key, value := range update {
		switch key {
		case "theme":
			theme, ok := value.(string)
			if !ok {
				e.mu.Unlock()
				return errors.Errorf("theme must be a string, got %T", value)
			}
			e.state.Theme = types.Theme(theme)
			changed[key] = theme
		case "locale":
			locale, ok := value.(string)
			if !ok {
				e.mu.Unlock()
				return errors.Errorf("locale must be a string, got %T", value)
			}
			e.state.Locale = locale
			changed[key] = locale
		case "maxHeight":
			px, ok := toInt(value)
			if !ok {
				e.mu.Unlock()
				return errors.Errorf("maxHeight must be a number, got %T", value)
			}
			e.state.MaxHeight = px
			changed[key] = px
		default:
			e.mu.Unlock()
			return errors.Errorf("unknown global %q", key)
		}
	}
	e.mu.Unlock()
	if len(changed) > 0 {
		e.dispatchGlobals(changed)
	}
	return nil
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// CallTool runs a widget-initiated tool call through the configured
// backend and dispatches the result as a tool-response event.
func (e *Emulator) CallTool(ctx context.Context, name string, args map[string]interface{}) (*ToolResult, error) {
	e.mu.Lock()
	caller := e.caller
	e.mu.Unlock()
	if caller == nil {
		return nil, errors.New("no tool backend configured")
	}

	result, err := caller.CallTool(ctx, name, cloneMap(args))
	if err != nil {
		return nil, errors.Wrapf(err, "calling tool %q", name)
	}
	if result == nil {
		return nil, errors.Errorf("tool %q returned no result", name)
	}
	if result.IsError {
		return nil, errors.Errorf("tool %q failed: %s", name, result.Text)
	}

	e.dispatchToolResponse(name, result)
	return result, nil
}

// RequestDisplayMode asks for a layout change. The grant policy may
// return a different mode than requested; whatever is granted becomes the
// current mode and is announced through the globals event.
func (e *Emulator) RequestDisplayMode(requested types.DisplayMode) (types.DisplayMode, error) {
	switch requested {
	case types.DisplayModeInline, types.DisplayModePiP, types.DisplayModeFullscreen:
	default:
		return "", errors.Errorf("unknown display mode %q", requested)
	}

	e.mu.Lock()
	granted := requested
	if e.grant != nil {
		granted = e.grant(requested)
	}
	unchanged := granted == e.state.DisplayMode
	e.state.DisplayMode = granted
	e.mu.Unlock()

	if !unchanged {
		e.dispatchGlobals(map[string]interface{}{"displayMode": string(granted)})
	}
	return granted, nil
}

// SendFollowupTurn records a message the widget asked the assistant to
// continue the conversation with.
func (e *Emulator) SendFollowupTurn(message string) error {
	if message == "" {
		return errors.New("followup message cannot be empty")
	}
	e.mu.Lock()
	e.followups = append(e.followups, message)
	e.mu.Unlock()
	e.logger.Info("followup turn requested", map[string]interface{}{"message": message})
	return nil
}

// Followups returns the follow-up messages requested so far.
func (e *Emulator) Followups() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.followups...)
}

// OpenExternal records a request to open a URL outside the widget
// sandbox. Only http and https URLs are accepted.
func (e *Emulator) OpenExternal(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrap(err, "invalid URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.Errorf("refusing to open %q: only http and https URLs are allowed", rawURL)
	}
	e.mu.Lock()
	e.opened = append(e.opened, rawURL)
	e.mu.Unlock()
	e.logger.Info("external URL opened", map[string]interface{}{"url": rawURL})
	return nil
}

// OpenedURLs returns the external URLs opened so far.
func (e *Emulator) OpenedURLs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.opened...)
}

// SubscribeGlobals registers a listener for globals-change events. The
// returned cancel function removes it; cancelling twice is harmless.
func (e *Emulator) SubscribeGlobals(fn func(changed map[string]interface{})) (cancel func()) {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.globalsSubs[id] = fn
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(e.globalsSubs, id)
		e.mu.Unlock()
	}
}

// SubscribeToolResponse registers a listener for widget-initiated tool
// call results.
func (e *Emulator) SubscribeToolResponse(fn func(toolName string, result *ToolResult)) (cancel func()) {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.toolResponseSubs[id] = fn
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(e.toolResponseSubs, id)
		e.mu.Unlock()
	}
}

func (e *Emulator) dispatchGlobals(changed map[string]interface{}) {
	e.mu.Lock()
	listeners := make([]globalsListener, 0, len(e.globalsSubs))
	for _, fn := range e.globalsSubs {
		listeners = append(listeners, fn)
	}
	e.mu.Unlock()
	for _, fn := range listeners {
		fn(cloneMap(changed))
	}
}

func (e *Emulator) dispatchToolResponse(toolName string, result *ToolResult) {
	e.mu.Lock()
	listeners := make([]toolResponseListener, 0, len(e.toolResponseSubs))
	for _, fn := range e.toolResponseSubs {
		listeners = append(listeners, fn)
	}
	e.mu.Unlock()

	for _, fn := range listeners {
		copied := *result
		copied.Output = cloneMap(result.Output)
		fn(toolName, &copied)
	}
}
