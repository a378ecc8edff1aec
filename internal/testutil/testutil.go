// Package testutil holds fixtures shared by the package tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/FreePeak/golang-widget-sdk/internal/emulator"
	"github.com/FreePeak/golang-widget-sdk/pkg/schema"
	"github.com/FreePeak/golang-widget-sdk/pkg/types"
)

// EchoTool returns a tool that echoes its "message" argument back as
// text. The schema requires message and defaults "repeat" to 1.
func EchoTool() *types.Tool {
	return &types.Tool{
		Name:        "echo",
		Title:       "Echo",
		Description: "Echoes back the input message",
		Schema: schema.Object(
			schema.String("message", schema.Required()),
			schema.Integer("repeat", schema.Default(float64(1))),
		),
		Handler: func(ctx context.Context, input map[string]interface{}, tc types.ToolContext) (*types.Response, error) {
			message, _ := input["message"].(string)
			return types.NewResponse().WithText(message), nil
		},
	}
}

// WriteComponentSource writes a minimal component module under dir and
// returns a Component pointing at it. The source renders its tool output
// as text so bundle tests have something real to compile.
func WriteComponentSource(t *testing.T, dir, componentType string) *types.Component {
	t.Helper()
	source := `export default function widget(root, toolOutput) {
  root.textContent = JSON.stringify(toolOutput);
}
`
	path := filepath.Join(dir, componentType+".js")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("writing component source: %v", err)
	}
	return &types.Component{
		Type:       componentType,
		Title:      componentType,
		SourcePath: componentType + ".js",
	}
}

// RecordingCaller is a tool-call backend that records invocations and
// returns canned results.
type RecordingCaller struct {
	mu      sync.Mutex
	Calls   []RecordedCall
	Result  map[string]interface{}
	Text    string
	IsError bool
	Err     error
}

// RecordedCall is one invocation seen by a RecordingCaller.
type RecordedCall struct {
	Name string
	Args map[string]interface{}
}

// CallTool records the invocation and returns the configured result.
func (r *RecordingCaller) CallTool(ctx context.Context, name string, args map[string]interface{}) (*emulator.ToolResult, error) {
	r.mu.Lock()
	r.Calls = append(r.Calls, RecordedCall{Name: name, Args: args})
	r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	return &emulator.ToolResult{Output: r.Result, Text: r.Text, IsError: r.IsError}, nil
}

// CallCount returns how many invocations were recorded.
func (r *RecordingCaller) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Calls)
}
