package bundler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FreePeak/golang-widget-sdk/pkg/types"
)

const widgetSource = `export default function widget(root, toolOutput) {
  const box = document.createElement("div");
  box.className = "flex p-4 bg-white";
  box.textContent = JSON.stringify(toolOutput);
  root.appendChild(box);
}
`

func writeWidget(t *testing.T, dir, name, source string) *types.Component {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".js"), []byte(source), 0o644))
	return &types.Component{Type: name, Title: name, SourcePath: name + ".js"}
}

func TestBundleCompilesComponent(t *testing.T) {
	dir := t.TempDir()
	component := writeWidget(t, dir, "card", widgetSource)
	b := New(dir)

	bundle, err := b.Bundle(context.Background(), component, "openai")
	require.NoError(t, err)

	assert.Equal(t, "card", bundle.Type)
	assert.Equal(t, "openai", bundle.Provider)
	assert.NotEmpty(t, bundle.Code)
	assert.Contains(t, bundle.Code, "widget-root", "entry must mount into the root node")
}

func TestBundleMissingSource(t *testing.T) {
	dir := t.TempDir()
	b := New(dir)

	_, err := b.Bundle(context.Background(), &types.Component{
		Type:       "ghost",
		SourcePath: "ghost.js",
	}, "openai")

	require.Error(t, err)
	var notFound *ComponentSourceNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ghost", notFound.Type)
	assert.Contains(t, notFound.Path, "ghost.js", "the error must name the missing path")
}

func TestBundleSyntaxErrorIsAttributed(t *testing.T) {
	dir := t.TempDir()
	component := writeWidget(t, dir, "broken", "export default function ( {")
	b := New(dir)

	_, err := b.Bundle(context.Background(), component, "openai")
	require.Error(t, err)
	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "broken", compileErr.Type)
}

func TestBundleCacheHitSkipsRecompile(t *testing.T) {
	dir := t.TempDir()
	component := writeWidget(t, dir, "card", widgetSource)
	b := New(dir)
	ctx := context.Background()

	first, err := b.Bundle(ctx, component, "openai")
	require.NoError(t, err)
	second, err := b.Bundle(ctx, component, "openai")
	require.NoError(t, err)

	assert.Same(t, first, second, "unchanged source must come from the cache")
}

func TestBundleRecompilesAfterSourceChange(t *testing.T) {
	dir := t.TempDir()
	component := writeWidget(t, dir, "card", widgetSource)
	b := New(dir)
	ctx := context.Background()

	first, err := b.Bundle(ctx, component, "openai")
	require.NoError(t, err)

	// Bump mtime explicitly; resolution on some filesystems is one second.
	bumped := time.Now().Add(2 * time.Second)
	source := filepath.Join(dir, "card.js")
	require.NoError(t, os.WriteFile(source, []byte(widgetSource+"\n// changed\n"), 0o644))
	require.NoError(t, os.Chtimes(source, bumped, bumped))

	second, err := b.Bundle(ctx, component, "openai")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestBundleCachedPerProvider(t *testing.T) {
	dir := t.TempDir()
	component := writeWidget(t, dir, "card", widgetSource)
	b := New(dir)
	ctx := context.Background()

	openaiBundle, err := b.Bundle(ctx, component, "openai")
	require.NoError(t, err)
	otherBundle, err := b.Bundle(ctx, component, "other")
	require.NoError(t, err)

	assert.NotSame(t, openaiBundle, otherBundle)
	assert.Equal(t, "other", otherBundle.Provider)
}

func TestInvalidateDropsCachedBundles(t *testing.T) {
	dir := t.TempDir()
	component := writeWidget(t, dir, "card", widgetSource)
	b := New(dir)
	ctx := context.Background()

	first, err := b.Bundle(ctx, component, "openai")
	require.NoError(t, err)

	b.Invalidate("card")

	second, err := b.Bundle(ctx, component, "openai")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestBundleAllCollectsErrors(t *testing.T) {
	dir := t.TempDir()
	good := writeWidget(t, dir, "good", widgetSource)
	bad := &types.Component{Type: "bad", SourcePath: "missing.js"}
	b := New(dir)

	bundles, err := b.BundleAll(context.Background(), []*types.Component{good, bad}, "openai")

	require.Error(t, err, "one broken component must not hide in a batch")
	assert.Contains(t, bundles, "good", "healthy components still compile")
	assert.NotContains(t, bundles, "bad")
}

func TestBundleSubstitutesDevHooks(t *testing.T) {
	dir := t.TempDir()
	source := `import { useOpenAiGlobal } from "@widget-sdk/dev";
export default function widget(root) {
  root.textContent = String(useOpenAiGlobal("theme"));
}
`
	component := writeWidget(t, dir, "hooked", source)
	b := New(dir)

	bundle, err := b.Bundle(context.Background(), component, "openai")
	require.NoError(t, err)

	assert.NotContains(t, bundle.Code, DevHooksPackage, "the dev package must never survive into a bundle")
	assert.Contains(t, bundle.Code, "window.openai")
}

func TestBundleIncludesThemeCSS(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "styles"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "styles", "theme.css"),
		[]byte("body{margin:0}"),
		0o644,
	))
	component := writeWidget(t, dir, "card", widgetSource)
	b := New(dir)

	bundle, err := b.Bundle(context.Background(), component, "openai")
	require.NoError(t, err)
	assert.Contains(t, bundle.Code, "body{margin:0}")
}

func TestBundleWithoutThemeStillCompiles(t *testing.T) {
	dir := t.TempDir()
	component := writeWidget(t, dir, "card", widgetSource)
	b := New(dir)

	bundle, err := b.Bundle(context.Background(), component, "openai")
	require.NoError(t, err)
	assert.NotEmpty(t, bundle.Code)
}

func TestWrapHTML(t *testing.T) {
	doc := WrapHTML(&types.Bundle{Type: "card", Code: "console.log(1);"})

	assert.Contains(t, doc, "<!DOCTYPE html>")
	assert.Contains(t, doc, `id="widget-root"`)
	assert.Contains(t, doc, "console.log(1);")
	rootIdx := strings.Index(doc, `id="widget-root"`)
	scriptIdx := strings.Index(doc, "<script>")
	assert.Less(t, rootIdx, scriptIdx, "the root node must exist before the script runs")
}
