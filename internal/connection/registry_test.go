package connection

import (
	"context"
	"errors"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/rickgao/chatlink/internal/router"
)

func TestRegistry_RefusesDuplicateConversation(t *testing.T) {
	r := NewRegistry(testManagerConfig("ws://localhost:1"), nil)

	first, err := r.Acquire("42", router.Handlers{})
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if first == nil {
		t.Fatal("Acquire returned nil manager")
	}

	if _, err := r.Acquire("42", router.Handlers{}); !errors.Is(err, ErrConversationActive) {
		t.Errorf("duplicate Acquire returned %v, want ErrConversationActive", err)
	}

	// A different conversation is independent.
	if _, err := r.Acquire("43", router.Handlers{}); err != nil {
		t.Errorf("Acquire for second conversation failed: %v", err)
	}

	if got := r.Active(); got != 2 {
		t.Errorf("Active = %d, want 2", got)
	}
}

func TestRegistry_ReleaseAllowsReacquire(t *testing.T) {
	r := NewRegistry(testManagerConfig("ws://localhost:1"), nil)

	if _, err := r.Acquire("42", router.Handlers{}); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	r.Release("42")

	if _, err := r.Acquire("42", router.Handlers{}); err != nil {
		t.Errorf("re-Acquire after Release failed: %v", err)
	}
}

func TestRegistry_ReleaseUnknownConversation(t *testing.T) {
	r := NewRegistry(testManagerConfig("ws://localhost:1"), nil)
	r.Release("never-acquired") // must not panic
}

func TestRegistry_ReleaseDisconnects(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	r := NewRegistry(testManagerConfig(wsURL(server)), nil)

	m, err := r.Acquire("42", router.Handlers{})
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	r.Release("42")

	if m.State() != StateClosed {
		t.Errorf("State = %v after Release, want closed", m.State())
	}
}

func TestRegistry_RejectsBadConversationID(t *testing.T) {
	r := NewRegistry(testManagerConfig("ws://localhost:1"), nil)

	if _, err := r.Acquire("", router.Handlers{}); err == nil {
		t.Error("Acquire with empty conversation id succeeded")
	}
	if got := r.Active(); got != 0 {
		t.Errorf("Active = %d after failed Acquire, want 0", got)
	}
}
