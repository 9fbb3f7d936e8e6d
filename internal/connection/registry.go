package connection

import (
	"log/slog"
	"sync"

	"github.com/rickgao/chatlink/internal/router"
)

// Registry is the composition-side ownership check: it refuses to create a
// second Manager for a conversation that already has a live one. This
// replaces any process-wide "already initialized" flag with explicit
// per-conversation ownership.
type Registry struct {
	cfg    ManagerConfig
	logger *slog.Logger

	mu     sync.Mutex
	active map[string]*Manager
}

// NewRegistry creates a Registry that stamps every Manager with cfg.
func NewRegistry(cfg ManagerConfig, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		cfg:    cfg,
		logger: logger,
		active: make(map[string]*Manager),
	}
}

// Acquire creates and registers a Manager for the conversation. It returns
// ErrConversationActive while a previous Manager for the same conversation
// has not been released.
func (r *Registry) Acquire(conversationID string, handlers router.Handlers) (*Manager, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.active[conversationID]; exists {
		return nil, ErrConversationActive
	}

	m, err := NewManager(r.cfg, conversationID, handlers, r.logger)
	if err != nil {
		return nil, err
	}
	r.active[conversationID] = m
	return m, nil
}

// Release disconnects and unregisters the conversation's Manager. Safe to
// call for a conversation that was never acquired.
func (r *Registry) Release(conversationID string) {
	r.mu.Lock()
	m := r.active[conversationID]
	delete(r.active, conversationID)
	r.mu.Unlock()

	if m != nil {
		m.Disconnect()
	}
}

// Active returns the number of registered managers.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
