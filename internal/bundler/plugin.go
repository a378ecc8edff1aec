package bundler

import "github.com/evanw/esbuild/pkg/api"

// DevHooksPackage is the import specifier of the dev-only hooks package
// that components may reference. The bundler intercepts it and substitutes
// inline runtime-aware implementations.
const DevHooksPackage = "@widget-sdk/dev"

func devShimPlugin() api.Plugin {
	return api.Plugin{
		Name: "widget-sdk-dev-shim",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `^@widget-sdk/dev$`},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{Path: args.Path, Namespace: devShimNamespace}, nil
				})
			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: devShimNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					contents := devShimSource
					return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
				})
		},
	}
}
