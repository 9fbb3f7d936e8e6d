package connection

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Errors
var (
	ErrNotConnected       = errors.New("not connected")
	ErrAlreadyClosed      = errors.New("already closed")
	ErrConversationActive = errors.New("conversation already has an active connection")
)

// State is the connection lifecycle state. Exactly one Manager owns exactly
// one State at a time.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ClientConfig configures a low-level WebSocket client.
type ClientConfig struct {
	URL              string        // Full channel endpoint URL
	AuthToken        string        // Optional bearer token; minting/authorizing it is the caller's concern
	HandshakeTimeout time.Duration // Dial timeout
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       256,
	}
}

// ManagerConfig configures a Connection Manager.
type ManagerConfig struct {
	WSBaseURL         string        // e.g. wss://chat.example.com
	AuthToken         string        // Optional bearer token passed through to the dial
	HandshakeTimeout  time.Duration // Dial timeout per attempt
	WriteTimeout      time.Duration // Write deadline for sends
	BufferSize        int           // Inbound message buffer size
	HeartbeatInterval time.Duration // Liveness probe period
	StrictLiveness    bool          // Force-close when a probe goes unanswered for two intervals
	MaxAttempts       int           // Reconnect attempt ceiling
	BackoffBase       time.Duration // Base delay for exponential backoff
	BackoffCap        time.Duration // Upper bound on backoff delay
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      5 * time.Second,
		BufferSize:        256,
		HeartbeatInterval: 30 * time.Second,
		MaxAttempts:       5,
		BackoffBase:       1 * time.Second,
		BackoffCap:        30 * time.Second,
	}
}

func (c ManagerConfig) applyDefaults() ManagerConfig {
	def := DefaultManagerConfig()
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.BufferSize == 0 {
		c.BufferSize = def.BufferSize
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = def.HeartbeatInterval
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.BackoffBase == 0 {
		c.BackoffBase = def.BackoffBase
	}
	if c.BackoffCap == 0 {
		c.BackoffCap = def.BackoffCap
	}
	return c
}

// Endpoint derives the channel address for a conversation. The mapping is
// deterministic: <base>/ws/chat/<conversation_id>/. The address is fixed
// for the life of one Manager.
func Endpoint(base, conversationID string) (string, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return "", errors.New("empty conversation id")
	}

	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("parse ws base url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported ws scheme %q", u.Scheme)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/ws/chat/" + url.PathEscape(conversationID) + "/"
	return u.String(), nil
}
