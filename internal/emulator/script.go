package emulator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// InjectionScript renders the bootstrap that defines window.openai inside
// a preview page. The embedded globals are a JSON snapshot of the current
// emulator state; the API methods record their calls and dispatch the
// same DOM events the real host does, so a component behaves identically
// whether it runs here or inside ChatGPT.
func (e *Emulator) InjectionScript() (string, error) {
	snapshot := e.Snapshot()
	globals, err := json.Marshal(map[string]interface{}{
		"toolInput":   snapshot.ToolInput,
		"toolOutput":  snapshot.ToolOutput,
		"widgetState": snapshot.WidgetState,
		"displayMode": string(snapshot.DisplayMode),
		"theme":       string(snapshot.Theme),
		"maxHeight":   snapshot.MaxHeight,
		"locale":      snapshot.Locale,
	})
	if err != nil {
		return "", errors.Wrap(err, "encoding host globals")
	}

	return fmt.Sprintf(`(() => {
  const globals = %s;
  const dispatch = (name, detail) =>
    window.dispatchEvent(new CustomEvent(name, { detail }));
  window.openai = {
    ...globals,
    setWidgetState: async (state) => {
      window.openai.widgetState = state;
      dispatch(%q, { globals: { widgetState: state } });
    },
    callTool: async (name, args) => {
      console.warn("callTool is not wired in static previews", name, args);
      return null;
    },
    requestDisplayMode: async ({ mode }) => {
      window.openai.displayMode = mode;
      dispatch(%q, { globals: { displayMode: mode } });
      return { mode };
    },
    sendFollowupTurn: async ({ message }) => {
      console.log("followup turn:", message);
    },
    openExternal: ({ href }) => {
      window.open(href, "_blank", "noopener");
    },
  };
})();`, globals, EventSetGlobals, EventSetGlobals), nil
}

// PreviewDocument splices the injection script into a bundled widget
// document, ahead of the first script element. The host contract requires
// window.openai to exist before any component code runs; a document with
// no script at all is rejected because there is nothing to preview.
func (e *Emulator) PreviewDocument(widgetHTML string) (string, error) {
	bootstrap, err := e.InjectionScript()
	if err != nil {
		return "", err
	}

	idx := strings.Index(widgetHTML, "<script>")
	if idx < 0 {
		return "", errors.New("widget document contains no script element")
	}
	return widgetHTML[:idx] + "<script>" + bootstrap + "</script>\n" + widgetHTML[idx:], nil
}
