// Package config loads server configuration from YAML files, with
// defaults suitable for local development.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/FreePeak/golang-widget-sdk/internal/provider"
)

// ProviderConfig selects and tunes one provider adapter.
type ProviderConfig struct {
	Kind              string `yaml:"kind"`
	Transport         string `yaml:"transport"`
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	DisableComponents bool   `yaml:"disableComponents"`
}

// Config is the full server configuration.
type Config struct {
	Name      string           `yaml:"name"`
	Version   string           `yaml:"version"`
	RootDir   string           `yaml:"rootDir"`
	LogLevel  string           `yaml:"logLevel"`
	Watch     bool             `yaml:"watch"`
	Providers []ProviderConfig `yaml:"providers"`
}

// Default returns the configuration used when no file is given: one
// openai SSE provider on localhost:8000, sources in the working
// directory.
func Default() *Config {
	return &Config{
		Name:     "widget-server",
		Version:  "0.1.0",
		RootDir:  ".",
		LogLevel: "info",
		Providers: []ProviderConfig{{
			Kind:      string(provider.KindOpenAI),
			Transport: string(provider.TransportSSE),
			Host:      "localhost",
			Port:      8000,
		}},
	}
}

// Load reads a YAML config file and fills in defaults for anything it
// leaves unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	return Parse(data)
}

// Parse decodes YAML configuration bytes.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	cfg.Providers = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	if len(cfg.Providers) == 0 {
		cfg.Providers = Default().Providers
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Name == "" {
		return errors.New("name cannot be empty")
	}
	for i, p := range c.Providers {
		if p.Kind == "" {
			return errors.Errorf("providers[%d]: kind is required", i)
		}
		switch p.Transport {
		case "", string(provider.TransportSSE), string(provider.TransportStdio):
		default:
			return errors.Errorf("providers[%d]: unknown transport %q", i, p.Transport)
		}
		if p.Port < 0 || p.Port > 65535 {
			return errors.Errorf("providers[%d]: invalid port %d", i, p.Port)
		}
	}
	return nil
}

// ProviderConfigs maps the file-level provider entries to typed adapter
// configs.
func (c *Config) ProviderConfigs() ([]provider.Config, error) {
	configs := make([]provider.Config, 0, len(c.Providers))
	for i, p := range c.Providers {
		switch provider.Kind(p.Kind) {
		case provider.KindOpenAI:
			configs = append(configs, provider.OpenAIConfig{
				Transport:         provider.TransportKind(p.Transport),
				Host:              p.Host,
				Port:              p.Port,
				DisableComponents: p.DisableComponents,
			})
		default:
			return nil, errors.Errorf("providers[%d]: unknown provider kind %q", i, p.Kind)
		}
	}
	return configs, nil
}
