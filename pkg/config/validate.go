package config

import (
	"fmt"

	"github.com/scenesync/core/internal/opmodel"
)

// Validate checks a fully-defaulted Config for values the rest of the
// core can't tolerate (an over-bound MaxUsers, an empty session name,
// an unrecognized transport mode) before a host or joiner starts wiring
// components around it.
func Validate(cfg *Config) error {
	if cfg.Session.Name == "" {
		return fmt.Errorf("config: session.name must not be empty")
	}
	if cfg.Session.MaxUsers <= 0 || cfg.Session.MaxUsers > opmodel.MaxUsers {
		return fmt.Errorf("config: session.max_users must be in (0, %d], got %d", opmodel.MaxUsers, cfg.Session.MaxUsers)
	}
	if cfg.Session.HeartbeatInterval <= 0 {
		return fmt.Errorf("config: session.heartbeat_interval must be positive")
	}
	if cfg.Session.PresenceTimeout <= cfg.Session.HeartbeatInterval {
		return fmt.Errorf("config: session.presence_timeout must exceed heartbeat_interval")
	}
	if cfg.Session.OperationTimeout <= 0 {
		return fmt.Errorf("config: session.operation_timeout must be positive")
	}

	switch cfg.Network.Mode {
	case "wsrelay", "p2p":
	default:
		return fmt.Errorf("config: network.mode must be %q or %q, got %q", "wsrelay", "p2p", cfg.Network.Mode)
	}
	if cfg.Network.Mode == "wsrelay" && cfg.Network.ListenAddr == "" && cfg.Network.JoinURL == "" {
		return fmt.Errorf("config: wsrelay mode requires either network.listen_addr (hosting) or network.join_url (joining)")
	}

	return nil
}
