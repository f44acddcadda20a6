// Package config loads the engine configuration from YAML with environment
// expansion and validates it.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"door43-helps-engine/internal/crossref"
	"door43-helps-engine/internal/highlight"
)

type Config struct {
	Language          string            `yaml:"language" validate:"required"`
	Resources         map[string]string `yaml:"resources" validate:"dive,keys,required,endkeys,required"`
	ActiveResources   []string          `yaml:"active_resources" validate:"dive,required"`
	AppendixLevel     int               `yaml:"appendix_level" validate:"min=0,max=10"`
	ReferencedInLabel string            `yaml:"referenced_in_label"`
	ResourceTitles    map[string]string `yaml:"resource_titles"`
	Highlight         HighlightConfig   `yaml:"highlight"`
	Log               LogConfig         `yaml:"log"`
	Server            ServerConfig      `yaml:"server"`
	Fetch             FetchConfig       `yaml:"fetch"`
}

type HighlightConfig struct {
	Tag         string `yaml:"tag" validate:"required,startswith=<"`
	BreakOnWord bool   `yaml:"break_on_word"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

type FetchConfig struct {
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
	DialTimeout time.Duration `yaml:"dial_timeout" validate:"gt=0"`
	SizeCap     int64         `yaml:"size_cap" validate:"gt=0"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Language:          "en",
		Resources:         map[string]string{},
		AppendixLevel:     crossref.DefaultAppendixLevel,
		ReferencedInLabel: "Go back to",
		Highlight: HighlightConfig{
			Tag:         highlight.DefaultTag,
			BreakOnWord: true,
		},
		Log:    LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{Addr: ":8080"},
		Fetch: FetchConfig{
			Timeout:     20 * time.Second,
			DialTimeout: 5 * time.Second,
			SizeCap:     8 << 20,
		},
	}
}

// Load reads a YAML config file on top of the defaults. A .env file in the
// working directory is loaded first and ${VAR} references are expanded. An
// empty path returns the validated defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RegistryOptions returns the crossref options described by the config.
func (c *Config) RegistryOptions() []crossref.Option {
	opts := []crossref.Option{
		crossref.WithAppendixLevel(c.AppendixLevel),
		crossref.WithReferencedInLabel(c.ReferencedInLabel),
	}
	if len(c.ActiveResources) > 0 {
		opts = append(opts, crossref.WithActiveResources(c.ActiveResources...))
	}
	if len(c.ResourceTitles) > 0 {
		opts = append(opts, crossref.WithResourceTitles(c.ResourceTitles))
	}
	return opts
}

// HighlightOptions returns the highlight options described by the config.
func (c *Config) HighlightOptions() []highlight.Option {
	return []highlight.Option{
		highlight.WithTag(c.Highlight.Tag),
		highlight.WithBreakOnWord(c.Highlight.BreakOnWord),
	}
}
