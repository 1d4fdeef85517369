package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/cuemby/burrow/pkg/registry"
	"github.com/cuemby/burrow/pkg/types"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultCluster is the ECS cluster managed when none is configured
	DefaultCluster = "mage-data-prep-development-cluster"

	// DefaultRegion is used when neither AWS_REGION_NAME nor AWS_REGION is set
	DefaultRegion = "us-west-2"
)

// Config holds burrow configuration
type Config struct {
	Cluster        string         `yaml:"cluster"`
	Region         string         `yaml:"region"`
	EndpointURL    string         `yaml:"endpoint_url"`
	LaunchCommand  string         `yaml:"launch_command"`
	LaunchType     string         `yaml:"launch_type"`
	AssignPublicIP *bool          `yaml:"assign_public_ip"`
	Registry       RegistryConfig `yaml:"registry"`
	API            APIConfig      `yaml:"api"`
	Log            LogConfig      `yaml:"log"`
}

// RegistryConfig selects and locates the name registry. An empty Path means
// the backend's default file; see Config.RegistryPath.
type RegistryConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// APIConfig configures the HTTP API served by `burrow serve`
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures logging
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
	File  string `yaml:"file"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Cluster:       DefaultCluster,
		Region:        DefaultRegion,
		LaunchCommand: types.DefaultLaunchCommand,
		LaunchType:    types.DefaultLaunchType,
		Registry:      RegistryConfig{Backend: registry.BackendFile},
		API: APIConfig{Addr: "127.0.0.1:8080"},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order of precedence.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables
func (c *Config) ApplyEnv() {
	c.Cluster = envOrDefault("BURROW_CLUSTER", c.Cluster)
	c.Region = envOrDefault("AWS_REGION", c.Region)
	c.Region = envOrDefault("AWS_REGION_NAME", c.Region)
	c.EndpointURL = envOrDefault("BURROW_ENDPOINT_URL", c.EndpointURL)
	c.LaunchCommand = envOrDefault("BURROW_LAUNCH_COMMAND", c.LaunchCommand)
	c.Registry.Backend = envOrDefault("BURROW_REGISTRY_BACKEND", c.Registry.Backend)
	c.Registry.Path = envOrDefault("BURROW_REGISTRY_PATH", c.Registry.Path)
	c.API.Addr = envOrDefault("BURROW_API_ADDR", c.API.Addr)
	c.Log.Level = envOrDefault("BURROW_LOG_LEVEL", c.Log.Level)
	c.Log.File = envOrDefault("BURROW_LOG_FILE", c.Log.File)
	if v := os.Getenv("BURROW_ASSIGN_PUBLIC_IP"); v != "" {
		b := v == "true" || v == "1"
		c.AssignPublicIP = &b
	}
}

// RegistryPath returns the configured registry location, or the default
// file of the configured backend when no path was set
func (c Config) RegistryPath() string {
	if c.Registry.Path != "" {
		return c.Registry.Path
	}
	return registry.DefaultPath(c.Registry.Backend)
}

// PublicIP reports whether new tasks get a public IP. Defaults to true since
// the reconciled view reports public addresses.
func (c Config) PublicIP() bool {
	if c.AssignPublicIP == nil {
		return true
	}
	return *c.AssignPublicIP
}

// Validate checks required configuration
func (c Config) Validate() error {
	if c.Cluster == "" {
		return fmt.Errorf("ECS cluster name is required")
	}
	if c.Region == "" {
		return fmt.Errorf("AWS region is required")
	}
	switch c.Registry.Backend {
	case registry.BackendFile, registry.BackendBolt:
	default:
		return fmt.Errorf("unknown registry backend %q (want %q or %q)",
			c.Registry.Backend, registry.BackendFile, registry.BackendBolt)
	}
	if !strings.Contains(c.LaunchCommand, "{name}") {
		return fmt.Errorf("launch command %q must contain {name}", c.LaunchCommand)
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
