package config

import "time"

// Built-in defaults, applied to whatever Load's file+env unmarshal left
// unset. Mirrors the teacher pack's ApplyDefaults/GetDefaultConfig pair:
// zero values are replaced, explicit values are preserved.
const (
	defaultSessionName       = "untitled-scene"
	defaultMaxUsers          = 32
	defaultHeartbeatInterval = 1 * time.Second
	defaultPresenceTimeout   = 30 * time.Second
	defaultOperationTimeout  = 15 * time.Second
	defaultNetworkMode       = "wsrelay"
	defaultListenAddr        = ":7777"
	defaultAdminListenAddr   = ":9090"
)

// defaultConfig returns a Config with every field set to its built-in
// default, used both as Load's fallback when no file is present and as
// the base applyDefaults fills holes into.
func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Session.Name == "" {
		cfg.Session.Name = defaultSessionName
	}
	if cfg.Session.MaxUsers == 0 {
		cfg.Session.MaxUsers = defaultMaxUsers
	}
	if cfg.Session.ProtocolVersion == 0 {
		cfg.Session.ProtocolVersion = 1 << 16
	}
	if cfg.Session.HeartbeatInterval == 0 {
		cfg.Session.HeartbeatInterval = defaultHeartbeatInterval
	}
	if cfg.Session.PresenceTimeout == 0 {
		cfg.Session.PresenceTimeout = defaultPresenceTimeout
	}
	if cfg.Session.OperationTimeout == 0 {
		cfg.Session.OperationTimeout = defaultOperationTimeout
	}

	if cfg.Network.Mode == "" {
		cfg.Network.Mode = defaultNetworkMode
	}
	if cfg.Network.ListenAddr == "" {
		cfg.Network.ListenAddr = defaultListenAddr
	}

	if cfg.Roles.DatabasePath == "" {
		cfg.Roles.DatabasePath = defaultRolesPath()
	}

	if cfg.Admin.ListenAddr == "" {
		cfg.Admin.ListenAddr = defaultAdminListenAddr
	}
}

func defaultRolesPath() string {
	return getConfigDir() + "/roles.db"
}
