// Command widget-preview renders a server's widget into a standalone
// HTML file a browser can open, with the host API emulated so the
// component behaves as it would inside the real host.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/FreePeak/golang-widget-sdk/internal/client"
	"github.com/FreePeak/golang-widget-sdk/internal/emulator"
	"github.com/FreePeak/golang-widget-sdk/internal/infrastructure/logging"
	"github.com/FreePeak/golang-widget-sdk/pkg/types"
)

func main() {
	var (
		serverURL = flag.String("server", "http://localhost:8000", "widget server base URL")
		widget    = flag.String("widget", "", "component type to preview (defaults to the first one)")
		tool      = flag.String("tool", "", "tool to call before rendering")
		toolArgs  = flag.String("args", "{}", "JSON arguments for the tool call")
		outPath   = flag.String("out", "preview.html", "output HTML file")
		theme     = flag.String("theme", "light", "host theme (light or dark)")
	)
	flag.Parse()

	logger, err := logging.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := client.New(*serverURL, client.WithClientLogger(logger))
	if err := c.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect to %s: %v", *serverURL, err)
	}
	defer c.Disconnect()

	widgets, err := c.ListWidgets(ctx)
	if err != nil {
		log.Fatalf("Failed to list widgets: %v", err)
	}
	if len(widgets) == 0 {
		log.Fatal("Server exposes no widgets")
	}

	selected := widgets[0]
	if *widget != "" {
		found := false
		for _, w := range widgets {
			if w.Type == *widget {
				selected = w
				found = true
				break
			}
		}
		if !found {
			log.Fatalf("Widget %q not found; server has %d widget(s)", *widget, len(widgets))
		}
	}
	log.Printf("Previewing widget %q (%s)", selected.Type, selected.URI)

	em := emulator.New(
		emulator.WithToolCaller(&callerAdapter{c}),
		emulator.WithTheme(themeFromFlag(*theme)),
		emulator.WithLogger(logger),
	)

	if *tool != "" {
		var args map[string]interface{}
		if err := json.Unmarshal([]byte(*toolArgs), &args); err != nil {
			log.Fatalf("Invalid -args JSON: %v", err)
		}
		result, err := c.CallTool(ctx, *tool, args)
		if err != nil {
			log.Fatalf("Tool call failed: %v", err)
		}
		if result.IsError {
			log.Fatalf("Tool returned an error: %s", result.Text)
		}
		em.SeedToolCall(args, result.Output)
		log.Printf("Seeded preview with %q result", *tool)
	}

	html, err := c.LoadWidget(ctx, selected.URI)
	if err != nil {
		log.Fatalf("Failed to load widget: %v", err)
	}
	doc, err := em.PreviewDocument(html)
	if err != nil {
		log.Fatalf("Failed to build preview document: %v", err)
	}

	if err := os.WriteFile(*outPath, []byte(doc), 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", *outPath, err)
	}
	log.Printf("Wrote %s (%d bytes); open it in a browser", *outPath, len(doc))
}

func themeFromFlag(name string) types.Theme {
	if name == "dark" {
		return types.ThemeDark
	}
	return types.ThemeLight
}

// callerAdapter lets the emulator route widget-initiated tool calls
// through the protocol client.
type callerAdapter struct {
	client *client.Client
}

func (a *callerAdapter) CallTool(ctx context.Context, name string, args map[string]interface{}) (*emulator.ToolResult, error) {
	result, err := a.client.CallTool(ctx, name, args)
	if err != nil {
		return nil, err
	}
	return &emulator.ToolResult{
		Output:  result.Output,
		Text:    result.Text,
		IsError: result.IsError,
	}, nil
}
