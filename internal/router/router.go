package router

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/rickgao/chatlink/internal/protocol"
)

// Handlers enumerates the caller's optional callbacks. A nil field means
// "do nothing". The set is fixed at construction and read-only thereafter.
type Handlers struct {
	// OnConnect fires when the channel reaches the Open state.
	OnConnect func()

	// OnDisconnect fires when the channel closes. final is true when no
	// further reconnect will be attempted (manual close or attempts
	// exhausted).
	OnDisconnect func(final bool)

	// OnMessage receives persisted chat messages, both broadcasts and
	// echoes of the caller's own sends.
	OnMessage func(protocol.ChatMessage)

	// OnError receives transport and protocol errors. Non-fatal: closure
	// is signaled separately through OnDisconnect.
	OnError func(error)

	OnStreamStart func(protocol.StreamStart)
	OnStreamToken func(protocol.StreamToken)
	OnStreamEnd   func(protocol.StreamEnd)

	// OnTyping receives agent and user typing indicators.
	OnTyping func(protocol.TypingIndicator)

	OnMessageEdited  func(protocol.MessageEdited)
	OnMessageDeleted func(protocol.MessageDeleted)

	// OnPong is a liveness hook; the connection manager uses it to track
	// heartbeat responses. Most callers leave it nil.
	OnPong func(protocol.Pong)
}

// Stats contains dispatch counters.
type Stats struct {
	Received     int64
	Routed       int64
	UnknownTypes int64
	DecodeErrors int64
}

// Router routes inbound frames to the registered Handlers.
type Router struct {
	handlers Handlers
	logger   *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// New creates a Router over the given handler table.
func New(handlers Handlers, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		handlers: handlers,
		logger:   logger,
	}
}

// Stats returns a snapshot of the dispatch counters.
func (r *Router) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Dispatch decodes one frame and invokes the matching callback
// synchronously. It never panics and never propagates an error: malformed
// frames and unknown discriminants are counted, logged, and dropped.
func (r *Router) Dispatch(data []byte) {
	r.count(func(s *Stats) { s.Received++ })

	msg, err := protocol.Decode(data)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownType) {
			r.logger.Debug("dropping unknown message type", "error", err)
			r.count(func(s *Stats) { s.UnknownTypes++ })
		} else {
			r.logger.Warn("dropping malformed frame", "error", err)
			r.count(func(s *Stats) { s.DecodeErrors++ })
		}
		return
	}

	switch m := msg.(type) {
	case protocol.ConnectionEstablished:
		// Informational only; no caller callback, no state change.
		r.logger.Info("connection established",
			"conversation_id", m.ConversationID.String(),
			"user_id", m.UserID.String(),
		)

	case protocol.ChatMessage:
		if r.handlers.OnMessage != nil {
			r.handlers.OnMessage(m)
		}

	case protocol.StreamStart:
		if r.handlers.OnStreamStart != nil {
			r.handlers.OnStreamStart(m)
		}

	case protocol.StreamToken:
		if r.handlers.OnStreamToken != nil {
			r.handlers.OnStreamToken(m)
		}

	case protocol.StreamEnd:
		if r.handlers.OnStreamEnd != nil {
			r.handlers.OnStreamEnd(m)
		}

	case protocol.TypingIndicator:
		if r.handlers.OnTyping != nil {
			r.handlers.OnTyping(m)
		}

	case protocol.MessageEdited:
		if r.handlers.OnMessageEdited != nil {
			r.handlers.OnMessageEdited(m)
		}

	case protocol.MessageDeleted:
		if r.handlers.OnMessageDeleted != nil {
			r.handlers.OnMessageDeleted(m)
		}

	case protocol.ServerError:
		if r.handlers.OnError != nil {
			r.handlers.OnError(m.Err())
		}

	case protocol.Pong:
		if r.handlers.OnPong != nil {
			r.handlers.OnPong(m)
		}

	default:
		// Decode only returns types from the closed set; reaching here
		// means a new kind was added without a dispatch arm.
		r.logger.Warn("no dispatch arm for message", "type", msg.Type())
		r.count(func(s *Stats) { s.UnknownTypes++ })
		return
	}

	r.count(func(s *Stats) { s.Routed++ })
}

func (r *Router) count(f func(*Stats)) {
	r.mu.Lock()
	f(&r.stats)
	r.mu.Unlock()
}
