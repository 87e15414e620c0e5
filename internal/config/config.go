// Package config loads service configuration from an optional YAML file
// layered under STAGEGATE_-prefixed environment variables.
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Storage StorageConfig `koanf:"storage"`
	Auth    AuthConfig    `koanf:"auth"`
	Authz   AuthzConfig   `koanf:"authz"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type StorageConfig struct {
	Path string `koanf:"path"`
}

type AuthConfig struct {
	Tokens []TokenConfig `koanf:"tokens"`
}

// TokenConfig maps a SHA-256 token hash to a principal name. Generate hashes
// with cmd/tokengen.
type TokenConfig struct {
	TokenHash string `koanf:"token_hash"`
	Principal string `koanf:"principal"`
}

type AuthzConfig struct {
	Grants []GrantConfig `koanf:"grants"`
}

// GrantConfig assigns a role to a principal on a resource. An empty resource
// is a platform-wide grant for the resource type.
type GrantConfig struct {
	Principal string `koanf:"principal"`
	Resource  string `koanf:"resource"`
	Type      string `koanf:"type"`
	Role      string `koanf:"role"`
}

// Load reads configuration from path (ignored when absent) and the
// environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	// Environment overrides, e.g. STAGEGATE_SERVER_PORT
	if err := k.Load(env.Provider("STAGEGATE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "STAGEGATE_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("storage.path") {
		k.Set("storage.path", "./data/stagegate.db")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
