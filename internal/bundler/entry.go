package bundler

import (
	"fmt"
	"path/filepath"
)

// renderEntry synthesizes the bundle's entry module. It imports the real
// component, mounts it into the root node with the host-injected globals,
// and re-renders whenever the host dispatches a set_globals notification.
// The host can push new tool output into an already-mounted component
// without a page reload, so the listener stays registered for the life of
// the document; exactly one listener is installed, at mount.
func renderEntry(sourcePath string) string {
	importPath := filepath.ToSlash(sourcePath)
	return fmt.Sprintf(`import component from %q;

var root = document.getElementById("widget-root");

function render() {
  var globals = window.openai || {};
  component(root, globals.toolOutput || null, globals);
}

window.addEventListener("openai:set_globals", render);
render();
`, importPath)
}

const devShimNamespace = "widget-sdk-dev-shim"

// devShimSource replaces the dev-only hooks package inside production
// bundles. The real package depends on the dev server and test harness,
// which must never reach a shipped bundle; these runtime-aware
// equivalents keep the same call sites working against window.openai.
const devShimSource = `
export function useOpenAiGlobal(key) {
  return (window.openai || {})[key];
}

export function useWidgetState() {
  var api = window.openai || {};
  return [api.widgetState, function (state) {
    if (api.setWidgetState) {
      return api.setWidgetState(state);
    }
    return Promise.resolve();
  }];
}

export function onToolResponse(handler) {
  var listener = function (event) { handler(event.detail); };
  window.addEventListener("openai:tool_response", listener);
  return function () {
    window.removeEventListener("openai:tool_response", listener);
  };
}

export function callHostTool(name, args) {
  var api = window.openai || {};
  if (!api.callTool) {
    return Promise.reject(new Error("host tool bridge unavailable"));
  }
  return api.callTool(name, args);
}
`
