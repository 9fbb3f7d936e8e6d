// Package config loads and validates chatlink configuration.
//
// Config is read from a YAML file with ${VAR} environment expansion, then
// filled out with defaults and validated.
package config

import (
	"time"

	"github.com/rickgao/chatlink/internal/connection"
)

// Config is the top-level client configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Connection ConnectionConfig `yaml:"connection"`
	Reconnect  ReconnectConfig  `yaml:"reconnect"`
}

// ServerConfig locates the chat backend.
type ServerConfig struct {
	// WSURL is the base WebSocket URL, e.g. wss://chat.example.com.
	// The per-conversation endpoint is derived from it.
	WSURL string `yaml:"ws_url"`

	// AuthToken is passed through to the dial as a bearer token. How it
	// is minted and authorized is outside this client.
	AuthToken string `yaml:"auth_token"`
}

// ConnectionConfig tunes the channel and its heartbeat.
type ConnectionConfig struct {
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	BufferSize        int           `yaml:"buffer_size"`

	// StrictLiveness force-closes the channel when a heartbeat probe
	// goes unanswered for two intervals. Off by default.
	StrictLiveness bool `yaml:"strict_liveness"`
}

// ReconnectConfig tunes the backoff schedule after unexpected closes.
type ReconnectConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// ManagerConfig converts the loaded configuration into the connection
// package's form.
func (c *Config) ManagerConfig() connection.ManagerConfig {
	return connection.ManagerConfig{
		WSBaseURL:         c.Server.WSURL,
		AuthToken:         c.Server.AuthToken,
		HandshakeTimeout:  c.Connection.HandshakeTimeout,
		WriteTimeout:      c.Connection.WriteTimeout,
		BufferSize:        c.Connection.BufferSize,
		HeartbeatInterval: c.Connection.HeartbeatInterval,
		StrictLiveness:    c.Connection.StrictLiveness,
		MaxAttempts:       c.Reconnect.MaxAttempts,
		BackoffBase:       c.Reconnect.BaseDelay,
		BackoffCap:        c.Reconnect.MaxDelay,
	}
}
