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

	"github.com/FreePeak/golang-widget-sdk/internal/infrastructure/logging"
	"github.com/FreePeak/golang-widget-sdk/internal/provider"
	"github.com/FreePeak/golang-widget-sdk/pkg/schema"
	"github.com/FreePeak/golang-widget-sdk/pkg/sdk"
	"github.com/FreePeak/golang-widget-sdk/pkg/types"
)

const (
	serverName    = "Weather Widget Server"
	serverVersion = "0.1.0"
)

var conditions = []string{"sunny", "cloudy", "rainy", "snowy", "windy"}

func main() {
	widgets := flag.String("widgets", "examples/widgets", "component source directory")
	flag.Parse()

	// Log to stderr only: stdout belongs to the protocol.
	logger, err := logging.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	app := sdk.New(serverName, serverVersion,
		sdk.WithLogger(logger),
		sdk.WithComponentRoot(*widgets),
	)

	if err := app.RegisterTool(weatherTool()); err != nil {
		log.Fatalf("Failed to register tool: %v", err)
	}
	if err := app.RegisterComponent(&types.Component{
		Type:        "weather-card",
		Title:       "Weather Card",
		Description: "Current conditions for a city",
		SourcePath:  "weather-card.js",
	}); err != nil {
		log.Fatalf("Failed to register component: %v", err)
	}

	if err := app.AddProvider(provider.OpenAIConfig{
		Transport: provider.TransportStdio,
	}); err != nil {
		log.Fatalf("Failed to add provider: %v", err)
	}

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	<-shutdown

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Shutdown failed: %v", err)
	}
}

func weatherTool() *types.Tool {
	return &types.Tool{
		Name:        "get_weather",
		Title:       "Get Weather",
		Description: "Returns current weather for a location",
		Schema: schema.Object(
			schema.String("location",
				schema.Description("City to report weather for"),
				schema.Required(),
			),
			schema.String("units",
				schema.Enum("metric", "imperial"),
				schema.Default("metric"),
			),
		),
		Handler: func(ctx context.Context, input map[string]interface{}, tc types.ToolContext) (*types.Response, error) {
			location, _ := input["location"].(string)
			temp := rand.Intn(30)
			condition := conditions[rand.Intn(len(conditions))]
			return types.NewResponse().
				WithText(fmt.Sprintf("%s: %d°C, %s", location, temp, condition)).
				WithComponent("weather-card", map[string]interface{}{
					"location":    location,
					"temperature": temp,
					"condition":   condition,
				}), nil
		},
		Meta: types.ProviderMeta{
			"openai": {"component": "weather-card"},
		},
	}
}
