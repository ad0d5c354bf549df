// Package config loads queryrun's configuration: built-in defaults,
// then an optional YAML file, then QUERYRUN_-prefixed environment
// variables, each layer overriding the last. CLI flags sit above all
// of this and are applied by the command layer.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/dohyun-p/queryrun/internal/logging"
)

const envPrefix = "QUERYRUN_"

type Config struct {
	Server  ServerConfig   `koanf:"server"`
	Schema  SchemaConfig   `koanf:"schema"`
	Otel    OtelConfig     `koanf:"otel"`
	Logging logging.Config `koanf:"logging"`
	// Debug routes full error diagnostics to the log for every request.
	Debug bool `koanf:"debug"`
}

type ServerConfig struct {
	Addr         string        `koanf:"addr"`
	Pretty       bool          `koanf:"pretty"`
	Timeout      time.Duration `koanf:"timeout"`
	MaxBodyBytes int64         `koanf:"max_body_bytes"`
	CORSOrigins  []string      `koanf:"cors_origins"`
}

type SchemaConfig struct {
	// Path is the SDL file the server executes against.
	Path string `koanf:"path"`
	// DataPath optionally names a JSON document used as the root value.
	DataPath string `koanf:"data_path"`
}

type OtelConfig struct {
	Endpoint string `koanf:"endpoint"`
	Service  string `koanf:"service"`
}

// Load builds the configuration. path may be empty to skip the file
// layer.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]any{
		"server.addr":    ":8080",
		"server.timeout": "10s",
		"otel.service":   "queryrun",
		"logging.level":  "info",
		"logging.format": "json",
		"logging.output": "stderr",
	}
	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return nil, err
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %q: %w", path, err)
		}
	}

	// Double underscore separates nesting levels so keys like
	// server.max_body_bytes stay addressable:
	// QUERYRUN_SERVER__MAX_BODY_BYTES.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
