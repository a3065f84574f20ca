// Package config loads scenesyncd's configuration from built-in defaults,
// a YAML file, and SCENESYNC_*-prefixed environment variables, in that
// order of increasing precedence; when no config file is found, only the
// built-in defaults apply. Adapted from the teacher pack's
// marmos91-dittofs pkg/config package: the same viper-plus-mapstructure
// shape, narrowed from dittofs's NFS/SMB/Kerberos-scale surface down to
// the handful of knobs a single scenesyncd host or joiner actually needs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is scenesyncd's static configuration. Session-dynamic state
// (who is connected, the live role table, the scene graph) is never
// part of it; this only covers what a host needs before it starts
// accepting connections.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Session SessionConfig `mapstructure:"session" yaml:"session"`
	Network NetworkConfig `mapstructure:"network" yaml:"network"`
	Roles   RolesConfig   `mapstructure:"roles" yaml:"roles"`
	Admin   AdminConfig   `mapstructure:"admin" yaml:"admin"`
}

// LoggingConfig holds a log level name (default "info"). It is loaded
// and defaulted but not applied: scenesyncd's commands take internal/logx's
// level from the LOG_LEVEL environment variable (logx.Init).
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// SessionConfig holds the defaults a host applies when no per-session
// override is given on the command line (spec.md §4.7 HostSession
// parameters).
type SessionConfig struct {
	Name              string        `mapstructure:"name" yaml:"name"`
	MaxUsers          int           `mapstructure:"max_users" yaml:"max_users"`
	ProtocolVersion   uint32        `mapstructure:"protocol_version" yaml:"protocol_version"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" yaml:"heartbeat_interval"`
	PresenceTimeout   time.Duration `mapstructure:"presence_timeout" yaml:"presence_timeout"`
	OperationTimeout  time.Duration `mapstructure:"operation_timeout" yaml:"operation_timeout"`
}

// NetworkConfig selects and configures the transport a host or joiner
// uses, per spec.md §5's transport-agnostic Dispatcher.
type NetworkConfig struct {
	// Mode is "wsrelay" or "p2p" (internal/transport/wsrelay,
	// internal/transport/p2p).
	Mode string `mapstructure:"mode" yaml:"mode"`

	// ListenAddr is the wsrelay host's listen address; an empty value is
	// replaced by the built-in default.
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`

	// JoinURL is the wsrelay URL a joiner dials, unused in wsrelay-host
	// or p2p mode.
	JoinURL string `mapstructure:"join_url" yaml:"join_url"`

	// STUNServers configures the p2p transport's ICE gathering.
	STUNServers []string `mapstructure:"stun_servers" yaml:"stun_servers"`
}

// RolesConfig configures internal/permission.Store, the durable
// username-to-role table (spec.md §4.5).
type RolesConfig struct {
	// DatabasePath is the sqlite3 DSN passed to permission.OpenStore.
	// Empty defaults to an on-disk file under the config directory so a
	// restarted host doesn't silently forget every grant.
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
}

// AdminConfig configures pkg/metrics's HTTP surface (/metrics,
// /healthz), grounded on ghjramos-aistore's admin listener pattern.
type AdminConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// Load loads configuration from built-in defaults, the config file, and
// the environment, in that order of increasing precedence. When no
// config file is found it returns the built-in defaults without reading
// the environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if found {
		if err := v.Unmarshal(cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
			return nil, fmt.Errorf("config: unmarshal: %w", err)
		}
		applyDefaults(cfg)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path in YAML, creating parent directories as
// needed, mirroring the teacher pack's SaveConfig (used by scenesyncd's
// "init" subcommand to seed a starter config file).
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("SCENESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks lets config files and SCENESYNC_* env vars express
// durations as "30s"/"5m" instead of raw nanosecond integers.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(durationDecodeHook())
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch val := data.(type) {
		case string:
			return time.ParseDuration(val)
		case int:
			return time.Duration(val), nil
		case int64:
			return time.Duration(val), nil
		case float64:
			return time.Duration(val), nil
		default:
			return data, nil
		}
	}
}

func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "scenesyncd")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "scenesyncd")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the
// default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
