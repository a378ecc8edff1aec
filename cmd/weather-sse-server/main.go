package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FreePeak/golang-widget-sdk/internal/config"
	"github.com/FreePeak/golang-widget-sdk/internal/infrastructure/logging"
	"github.com/FreePeak/golang-widget-sdk/pkg/schema"
	"github.com/FreePeak/golang-widget-sdk/pkg/sdk"
	"github.com/FreePeak/golang-widget-sdk/pkg/types"
)

const (
	serverName      = "Weather Widget Server"
	serverVersion   = "0.1.0"
	shutdownTimeout = 10 * time.Second
)

var conditions = []string{"sunny", "cloudy", "rainy", "snowy", "windy"}

func main() {
	var (
		port       = flag.Int("port", 8000, "port to listen on")
		widgets    = flag.String("widgets", "examples/widgets", "component source directory")
		watch      = flag.Bool("watch", false, "recompile widgets on source changes")
		configPath = flag.String("config", "", "optional YAML config file; overrides the other flags")
	)
	flag.Parse()

	cfg := config.Default()
	cfg.Name = serverName
	cfg.Version = serverVersion
	cfg.RootDir = *widgets
	cfg.Watch = *watch
	cfg.Providers[0].Port = *port
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	logger, err := logging.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	opts := []sdk.Option{
		sdk.WithLogger(logger),
		sdk.WithComponentRoot(cfg.RootDir),
		sdk.WithSourceMaps(),
	}
	if cfg.Watch {
		opts = append(opts, sdk.WithWatch())
	}
	app := sdk.New(cfg.Name, cfg.Version, opts...)

	weatherSchema := schema.Object(
		schema.String("location",
			schema.Description("City to report weather for"),
			schema.Required(),
		),
		schema.String("units",
			schema.Description("Unit system"),
			schema.Enum("metric", "imperial"),
			schema.Default("metric"),
		),
	)

	if err := app.RegisterTool(&types.Tool{
		Name:        "get_weather",
		Title:       "Get Weather",
		Description: "Returns current weather for a location",
		Schema:      weatherSchema,
		Handler:     getWeather,
		Meta: types.ProviderMeta{
			"openai": {
				"component":        "weather-card",
				"widgetAccessible": true,
			},
		},
	}); err != nil {
		log.Fatalf("Failed to register tool: %v", err)
	}

	if err := app.RegisterComponent(&types.Component{
		Type:        "weather-card",
		Title:       "Weather Card",
		Description: "Current conditions for a city",
		SourcePath:  "weather-card.js",
		Props: map[string]types.PropSpec{
			"location":    {Type: "string", Required: true},
			"temperature": {Type: "number"},
			"condition":   {Type: "string"},
		},
	}); err != nil {
		log.Fatalf("Failed to register component: %v", err)
	}

	providerConfigs, err := cfg.ProviderConfigs()
	if err != nil {
		log.Fatalf("Invalid provider config: %v", err)
	}
	for _, pc := range providerConfigs {
		if err := app.AddProvider(pc); err != nil {
			log.Fatalf("Failed to add provider: %v", err)
		}
	}

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	for _, info := range app.Servers() {
		log.Printf("Server is running on http://%s:%d (SSE endpoint: /sse)", info.Host, info.Port)
	}
	log.Println("Press Ctrl+C to stop")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	<-shutdown

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Shutdown failed: %v", err)
	}
	log.Println("Server stopped gracefully")
}

func getWeather(ctx context.Context, input map[string]interface{}, tc types.ToolContext) (*types.Response, error) {
	location, _ := input["location"].(string)
	units, _ := input["units"].(string)

	temp := rand.Intn(30)
	unitLabel := "°C"
	if units == "imperial" {
		temp = temp*9/5 + 32
		unitLabel = "°F"
	}
	condition := conditions[rand.Intn(len(conditions))]

	return types.NewResponse().
		WithText(fmt.Sprintf("%s: %d%s, %s", location, temp, unitLabel, condition)).
		WithComponent("weather-card", map[string]interface{}{
			"location":    location,
			"temperature": temp,
			"condition":   condition,
			"units":       units,
		}), nil
}
