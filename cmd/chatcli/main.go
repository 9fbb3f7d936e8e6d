// chatcli connects to a conversation channel and bridges it to the terminal.
// Incoming messages, stream tokens and typing indicators print to stdout;
// lines read from stdin are sent as chat messages.
//
// Usage: go run ./cmd/chatcli --config configs/chatcli.local.yaml --conversation 42
//
// In-session commands:
//
//	/typing on|off   - toggle the typing indicator
//	/edit <id> <txt> - edit an earlier message
//	/delete <id>     - delete an earlier message
//	/stats           - print channel statistics
//	/quit            - disconnect and exit
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rickgao/chatlink/internal/config"
	"github.com/rickgao/chatlink/internal/connection"
	"github.com/rickgao/chatlink/internal/protocol"
	"github.com/rickgao/chatlink/internal/router"
	"github.com/rickgao/chatlink/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/chatcli.local.yaml", "path to config file")
	conversation := flag.String("conversation", "", "conversation id to join")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	// Set up structured logging
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting chatcli",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	if *conversation == "" {
		logger.Error("--conversation is required")
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	registry := connection.NewRegistry(cfg.ManagerConfig(), logger)

	// closed carries the terminal disconnect so the stdin loop can exit.
	closed := make(chan struct{})

	handlers := router.Handlers{
		OnConnect: func() {
			fmt.Println("* connected")
		},
		OnDisconnect: func(final bool) {
			if final {
				fmt.Println("* disconnected")
				select {
				case <-closed:
				default:
					close(closed)
				}
				return
			}
			fmt.Println("* connection lost, reconnecting...")
		},
		OnMessage: func(m protocol.ChatMessage) {
			if m.Sent {
				fmt.Printf("* delivered (id=%s temp_id=%s)\n", m.Message.ID, m.TempID)
				return
			}
			fmt.Printf("[%s] %s\n", m.Message.Role, m.Message.Content)
		},
		OnStreamStart: func(s protocol.StreamStart) {
			fmt.Print("[agent] ")
		},
		OnStreamToken: func(s protocol.StreamToken) {
			fmt.Print(s.Token)
		},
		OnStreamEnd: func(s protocol.StreamEnd) {
			fmt.Println()
		},
		OnTyping: func(t protocol.TypingIndicator) {
			who := t.Username
			if t.Agent {
				who = "agent"
			}
			if t.IsTyping {
				fmt.Printf("* %s is typing...\n", who)
			}
		},
		OnMessageEdited: func(e protocol.MessageEdited) {
			fmt.Printf("* message %s edited: %s\n", e.MessageID, e.NewContent)
		},
		OnMessageDeleted: func(d protocol.MessageDeleted) {
			fmt.Printf("* message %s deleted\n", d.MessageID)
		},
		OnError: func(err error) {
			fmt.Printf("* error: %v\n", err)
		},
	}

	mgr, err := registry.Acquire(*conversation, handlers)
	if err != nil {
		logger.Error("failed to acquire channel", "conversation_id", *conversation, "error", err)
		os.Exit(1)
	}
	defer registry.Release(*conversation)

	logger.Info("joining conversation",
		"conversation_id", *conversation,
		"endpoint", mgr.Endpoint(),
	)

	if err := mgr.Connect(ctx); err != nil {
		// Connect failures schedule a retry internally; surface the first
		// error but keep the session alive.
		logger.Warn("initial connect failed, retrying", "error", err)
	}

	// Bridge stdin lines to the channel.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "/") {
				if runCommand(mgr, line) {
					cancel()
					return
				}
				continue
			}
			if tempID, ok := mgr.SendMessage(line, ""); ok {
				logger.Debug("message sent", "temp_id", tempID)
			} else {
				fmt.Println("* not connected, message dropped")
			}
		}
		cancel()
	}()

	select {
	case <-ctx.Done():
	case <-closed:
	}

	mgr.Disconnect()
	logger.Info("chatcli stopped")
}

// runCommand handles a /-prefixed input line. Returns true when the
// session should end.
func runCommand(mgr *connection.Manager, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit":
		return true
	case "/typing":
		on := len(fields) > 1 && fields[1] == "on"
		mgr.SendTyping(on)
	case "/edit":
		if len(fields) < 3 {
			fmt.Println("usage: /edit <id> <new content>")
			return false
		}
		content := strings.Join(fields[2:], " ")
		mgr.SendEdit(protocol.FlexID(fields[1]), content)
	case "/delete":
		if len(fields) != 2 {
			fmt.Println("usage: /delete <id>")
			return false
		}
		mgr.SendDelete(protocol.FlexID(fields[1]))
	case "/stats":
		st := mgr.Stats()
		fmt.Printf("* state=%s attempts=%d received=%d routed=%d unknown=%d decode_errors=%d\n",
			st.State, st.Attempts,
			st.Router.Received, st.Router.Routed,
			st.Router.UnknownTypes, st.Router.DecodeErrors,
		)
	default:
		fmt.Printf("unknown command %q\n", fields[0])
	}
	return false
}
