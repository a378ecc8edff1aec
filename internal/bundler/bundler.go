// Package bundler compiles component source files into self-contained,
// browser-executable bundles: one minified IIFE script per component with
// its CSS inlined, cached by source modification time.
package bundler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"

	"github.com/FreePeak/golang-widget-sdk/internal/infrastructure/logging"
	"github.com/FreePeak/golang-widget-sdk/pkg/types"
)

type cacheEntry struct {
	mtime  time.Time
	bundle *types.Bundle
}

// Bundler produces and caches component bundles. A bundle is recomputed
// exactly when its source file's modification time changes; concurrent
// requests for the same uncached component are coalesced so only one
// compilation runs.
type Bundler struct {
	rootDir   string
	logger    *logging.Logger
	sourcemap bool

	mu      sync.Mutex
	cache   map[string]*cacheEntry // keyed by type\x00provider
	sources map[string]string      // absolute source path -> component type
	group   singleflight.Group

	themeOnce sync.Once
	themeCSS  string
	themeOK   bool

	onInvalidate func(componentType string)
}

// Option configures a Bundler.
type Option func(*Bundler)

// WithLogger sets the bundler logger.
func WithLogger(logger *logging.Logger) Option {
	return func(b *Bundler) {
		b.logger = logger
	}
}

// WithSourceMap enables inline source maps in bundle output.
func WithSourceMap() Option {
	return func(b *Bundler) {
		b.sourcemap = true
	}
}

// WithInvalidateFunc sets a callback invoked when Watch invalidates a
// cached bundle.
func WithInvalidateFunc(fn func(componentType string)) Option {
	return func(b *Bundler) {
		b.onInvalidate = fn
	}
}

// New creates a Bundler rooted at rootDir. Component source paths resolve
// relative to it.
func New(rootDir string, opts ...Option) *Bundler {
	b := &Bundler{
		rootDir: rootDir,
		logger:  logging.NewNop(),
		cache:   make(map[string]*cacheEntry),
		sources: make(map[string]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bundle compiles one component for one provider, or returns the cached
// bundle when the source file is unchanged.
func (b *Bundler) Bundle(ctx context.Context, component *types.Component, provider string) (*types.Bundle, error) {
	sourcePath := component.SourcePath
	if !filepath.IsAbs(sourcePath) {
		sourcePath = filepath.Join(b.rootDir, sourcePath)
	}

	info, err := os.Stat(sourcePath)
	if err != nil {
		return nil, NewComponentSourceNotFoundError(component.Type, sourcePath)
	}
	mtime := info.ModTime()

	key := component.Type + "\x00" + provider

	b.mu.Lock()
	if entry, ok := b.cache[key]; ok && entry.mtime.Equal(mtime) {
		bundle := entry.bundle
		b.mu.Unlock()
		return bundle, nil
	}
	b.mu.Unlock()

	// Coalesce concurrent misses for the same key: only one compilation
	// runs, everyone gets its result.
	result, err, _ := b.group.Do(key, func() (interface{}, error) {
		b.mu.Lock()
		if entry, ok := b.cache[key]; ok && entry.mtime.Equal(mtime) {
			bundle := entry.bundle
			b.mu.Unlock()
			return bundle, nil
		}
		b.mu.Unlock()

		bundle, compileErr := b.compile(ctx, component, provider, sourcePath)
		if compileErr != nil {
			return nil, compileErr
		}

		b.mu.Lock()
		b.cache[key] = &cacheEntry{mtime: mtime, bundle: bundle}
		b.sources[sourcePath] = component.Type
		b.mu.Unlock()
		return bundle, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*types.Bundle), nil
}

// BundleAll bundles every component. One broken component does not abort
// the others; all per-component failures are joined into the returned
// error alongside the successful bundles.
func (b *Bundler) BundleAll(ctx context.Context, components []*types.Component, provider string) (map[string]*types.Bundle, error) {
	bundles := make(map[string]*types.Bundle, len(components))
	var errs error
	for _, component := range components {
		bundle, err := b.Bundle(ctx, component, provider)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		bundles[component.Type] = bundle
	}
	return bundles, errs
}

// Invalidate drops any cached bundles for the given component type.
func (b *Bundler) Invalidate(componentType string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key := range b.cache {
		if strings.HasPrefix(key, componentType+"\x00") {
			delete(b.cache, key)
		}
	}
}

func (b *Bundler) compile(ctx context.Context, component *types.Component, provider, sourcePath string) (*types.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.logger.Debug("bundling component", logging.Fields{
		"type":   component.Type,
		"source": sourcePath,
	})

	entry := renderEntry(sourcePath)

	buildResult := api.Build(api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   entry,
			ResolveDir: b.rootDir,
			Sourcefile: component.Type + "-entry.js",
			Loader:     api.LoaderJS,
		},
		Bundle:            true,
		Write:             false,
		Metafile:          true,
		Format:            api.FormatIIFE,
		Platform:          api.PlatformBrowser,
		Target:            api.ES2020,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		Sourcemap:         b.sourcemapMode(),
		Loader: map[string]api.Loader{
			".js":  api.LoaderJS,
			".jsx": api.LoaderJSX,
			".ts":  api.LoaderTS,
			".tsx": api.LoaderTSX,
			".css": api.LoaderCSS,
			".svg": api.LoaderDataURL,
			".png": api.LoaderDataURL,
		},
		Plugins: []api.Plugin{devShimPlugin()},
	})

	if len(buildResult.Errors) > 0 {
		first := buildResult.Errors[0]
		file := sourcePath
		if first.Location != nil && first.Location.File != "" && first.Location.File != "<stdin>" {
			file = first.Location.File
		}
		return nil, NewCompileError(component.Type, file, first.Text)
	}
	if len(buildResult.OutputFiles) == 0 {
		return nil, NewCompileError(component.Type, sourcePath, "no output produced")
	}

	code := string(buildResult.OutputFiles[0].Contents)

	if css := b.buildCSS(component, buildResult.Metafile); css != "" {
		code = styleInjector(css) + code
	}

	return &types.Bundle{
		Type:     component.Type,
		Code:     code,
		Provider: provider,
	}, nil
}

func (b *Bundler) sourcemapMode() api.SourceMap {
	if b.sourcemap {
		return api.SourceMapInline
	}
	return api.SourceMapNone
}

// buildCSS runs the CSS pipeline scoped to the files that actually ended
// up in the bundle, per the build metafile. A missing theme stylesheet
// degrades to an unstyled bundle with a one-time warning; styling is an
// enhancement, not correctness-critical.
func (b *Bundler) buildCSS(component *types.Component, metafile string) string {
	b.themeOnce.Do(func() {
		themePath := filepath.Join(b.rootDir, "styles", "theme.css")
		data, err := os.ReadFile(themePath)
		if err != nil {
			b.logger.Warn("theme stylesheet not found, emitting unstyled bundles", logging.Fields{
				"path": themePath,
			})
			return
		}
		b.themeCSS = string(data)
		b.themeOK = true
	})
	if !b.themeOK {
		return ""
	}

	classes := b.scanBundleClasses(component, metafile)
	utilities := GenerateCSS(classes)

	var sb strings.Builder
	sb.WriteString(b.themeCSS)
	if utilities != "" {
		if !strings.HasSuffix(b.themeCSS, "\n") {
			sb.WriteByte('\n')
		}
		sb.WriteString(utilities)
	}
	return sb.String()
}

// scanBundleClasses extracts utility class tokens from the source files
// listed as inputs in the esbuild metafile, keeping the CSS proportional
// to what this bundle actually imports.
func (b *Bundler) scanBundleClasses(component *types.Component, metafile string) []string {
	var meta struct {
		Inputs map[string]json.RawMessage `json:"inputs"`
	}
	if err := json.Unmarshal([]byte(metafile), &meta); err != nil {
		b.logger.Warn("unreadable build metafile, skipping utility CSS", logging.Fields{
			"type": component.Type,
		})
		return nil
	}

	seen := make(map[string]bool)
	for input := range meta.Inputs {
		if strings.Contains(input, "<") { // synthetic stdin entry
			continue
		}
		switch filepath.Ext(input) {
		case ".js", ".jsx", ".ts", ".tsx":
		default:
			continue
		}
		path := input
		if !filepath.IsAbs(path) {
			path = filepath.Join(b.rootDir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		for _, class := range ScanClasses(string(data)) {
			seen[class] = true
		}
	}

	classes := make([]string, 0, len(seen))
	for class := range seen {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	return classes
}

// WrapHTML wraps a bundle into the resource document served to hosts: a
// root node plus the executable script, fully self-contained.
func WrapHTML(bundle *types.Bundle) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body>
<div id="widget-root"></div>
<script>%s</script>
</body>
</html>
`, bundle.Code)
}

func styleInjector(css string) string {
	encoded, _ := json.Marshal(css)
	return fmt.Sprintf(`(function(){var s=document.createElement("style");s.textContent=%s;document.head.appendChild(s);})();`, encoded)
}
