package emulator_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FreePeak/golang-widget-sdk/internal/emulator"
	"github.com/FreePeak/golang-widget-sdk/internal/testutil"
	"github.com/FreePeak/golang-widget-sdk/pkg/types"
)

func TestSnapshotDefaults(t *testing.T) {
	em := emulator.New()
	state := em.Snapshot()

	assert.Equal(t, types.DisplayModeInline, state.DisplayMode)
	assert.Equal(t, types.ThemeLight, state.Theme)
	assert.Equal(t, "en-US", state.Locale)
}

func TestSnapshotIsIsolated(t *testing.T) {
	em := emulator.New()
	em.SeedToolCall(
		map[string]interface{}{"location": "Oslo"},
		map[string]interface{}{"nested": map[string]interface{}{"temp": 4}},
	)

	snapshot := em.Snapshot()
	snapshot.ToolOutput["nested"].(map[string]interface{})["temp"] = 999
	snapshot.ToolInput["location"] = "corrupted"

	fresh := em.Snapshot()
	assert.Equal(t, 4, fresh.ToolOutput["nested"].(map[string]interface{})["temp"])
	assert.Equal(t, "Oslo", fresh.ToolInput["location"])
}

func TestSetWidgetStateClonesInput(t *testing.T) {
	em := emulator.New()
	state := map[string]interface{}{"selected": "a"}
	em.SetWidgetState(state)

	state["selected"] = "mutated-after-set"

	assert.Equal(t, "a", em.Snapshot().WidgetState["selected"])
}

func TestSetWidgetStateNotifiesSubscribers(t *testing.T) {
	em := emulator.New()
	var changed map[string]interface{}
	cancel := em.SubscribeGlobals(func(c map[string]interface{}) { changed = c })
	defer cancel()

	em.SetWidgetState(map[string]interface{}{"tab": "details"})

	require.NotNil(t, changed)
	widgetState, ok := changed["widgetState"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "details", widgetState["tab"])
	assert.NotContains(t, changed, "theme", "only changed keys are announced")
}

func TestSetGlobalsPartialUpdate(t *testing.T) {
	em := emulator.New()
	var changed map[string]interface{}
	cancel := em.SubscribeGlobals(func(c map[string]interface{}) { changed = c })
	defer cancel()

	require.NoError(t, em.SetGlobals(map[string]interface{}{"theme": "dark"}))

	assert.Equal(t, types.ThemeDark, em.Snapshot().Theme)
	assert.Equal(t, map[string]interface{}{"theme": "dark"}, changed)
}

func TestSetGlobalsRejectsUnknownKeys(t *testing.T) {
	em := emulator.New()
	assert.Error(t, em.SetGlobals(map[string]interface{}{"displayMode": "pip"}))
	assert.Error(t, em.SetGlobals(map[string]interface{}{"theme": 42}))
}

func TestCancelledSubscriberStopsReceiving(t *testing.T) {
	em := emulator.New()
	calls := 0
	cancel := em.SubscribeGlobals(func(map[string]interface{}) { calls++ })

	em.SetWidgetState(map[string]interface{}{"n": 1})
	cancel()
	cancel() // second cancel is harmless
	em.SetWidgetState(map[string]interface{}{"n": 2})

	assert.Equal(t, 1, calls)
}

func TestCallToolDispatchesResponse(t *testing.T) {
	caller := &testutil.RecordingCaller{
		Result: map[string]interface{}{"temp": 4},
		Text:   `{"temp":4}`,
	}
	em := emulator.New(emulator.WithToolCaller(caller))

	var gotName string
	var gotResult *emulator.ToolResult
	cancel := em.SubscribeToolResponse(func(name string, result *emulator.ToolResult) {
		gotName = name
		gotResult = result
	})
	defer cancel()

	result, err := em.CallTool(context.Background(), "get_weather", map[string]interface{}{"location": "Oslo"})
	require.NoError(t, err)

	assert.Equal(t, 1, caller.CallCount())
	assert.Equal(t, map[string]interface{}{"temp": 4}, result.Output)
	assert.Equal(t, "get_weather", gotName)
	require.NotNil(t, gotResult)
	assert.Equal(t, map[string]interface{}{"temp": 4}, gotResult.Output)
}

func TestCallToolWithoutBackendFails(t *testing.T) {
	em := emulator.New()
	_, err := em.CallTool(context.Background(), "anything", nil)
	assert.Error(t, err)
}

func TestCallToolSurfacesErrorResults(t *testing.T) {
	caller := &testutil.RecordingCaller{Text: "Invalid input: location is required", IsError: true}
	em := emulator.New(emulator.WithToolCaller(caller))

	_, err := em.CallTool(context.Background(), "get_weather", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid input")
}

type nilResultCaller struct{}

func (nilResultCaller) CallTool(context.Context, string, map[string]interface{}) (*emulator.ToolResult, error) {
	return nil, nil
}

func TestCallToolRejectsMissingResult(t *testing.T) {
	em := emulator.New(emulator.WithToolCaller(nilResultCaller{}))

	_, err := em.CallTool(context.Background(), "get_weather", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no result")
}

func TestRequestDisplayModeGrantsRequested(t *testing.T) {
	em := emulator.New()

	granted, err := em.RequestDisplayMode(types.DisplayModeFullscreen)
	require.NoError(t, err)
	assert.Equal(t, types.DisplayModeFullscreen, granted)
	assert.Equal(t, types.DisplayModeFullscreen, em.Snapshot().DisplayMode)
}

func TestRequestDisplayModeHonorsGrantPolicy(t *testing.T) {
	em := emulator.New(emulator.WithDisplayModeGrant(func(types.DisplayMode) types.DisplayMode {
		return types.DisplayModeInline
	}))

	granted, err := em.RequestDisplayMode(types.DisplayModeFullscreen)
	require.NoError(t, err)
	assert.Equal(t, types.DisplayModeInline, granted, "the granted mode wins over the requested one")
	assert.Equal(t, types.DisplayModeInline, em.Snapshot().DisplayMode)
}

func TestRequestDisplayModeRejectsUnknownMode(t *testing.T) {
	em := emulator.New()
	_, err := em.RequestDisplayMode("cinema")
	assert.Error(t, err)
}

func TestOpenExternalValidatesScheme(t *testing.T) {
	em := emulator.New()

	require.NoError(t, em.OpenExternal("https://example.com/docs"))
	assert.Error(t, em.OpenExternal("javascript:alert(1)"))
	assert.Error(t, em.OpenExternal("file:///etc/passwd"))

	assert.Equal(t, []string{"https://example.com/docs"}, em.OpenedURLs())
}

func TestSendFollowupTurn(t *testing.T) {
	em := emulator.New()

	require.NoError(t, em.SendFollowupTurn("show me tomorrow"))
	assert.Error(t, em.SendFollowupTurn(""))
	assert.Equal(t, []string{"show me tomorrow"}, em.Followups())
}

func TestInjectionScriptEmbedsState(t *testing.T) {
	em := emulator.New(emulator.WithTheme(types.ThemeDark))
	em.SeedToolCall(nil, map[string]interface{}{"temp": 4})

	script, err := em.InjectionScript()
	require.NoError(t, err)

	assert.Contains(t, script, "window.openai")
	assert.Contains(t, script, `"theme":"dark"`)
	assert.Contains(t, script, `"temp":4`)
}

func TestPreviewDocumentInjectsBeforeWidgetScript(t *testing.T) {
	em := emulator.New()
	widgetHTML := `<!DOCTYPE html><html><body><div id="widget-root"></div><script>useHost();</script></body></html>`

	doc, err := em.PreviewDocument(widgetHTML)
	require.NoError(t, err)

	injected := strings.Index(doc, "window.openai")
	widget := strings.Index(doc, "useHost();")
	require.GreaterOrEqual(t, injected, 0)
	require.GreaterOrEqual(t, widget, 0)
	assert.Less(t, injected, widget, "the host API must exist before widget code runs")
}

func TestPreviewDocumentRequiresScript(t *testing.T) {
	em := emulator.New()
	_, err := em.PreviewDocument("<html><body>static</body></html>")
	assert.Error(t, err)
}
