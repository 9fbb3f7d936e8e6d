package protocol

import "encoding/json"

// Outbound discriminant values.
const (
	TypeChatMessage   = "chat_message"
	TypeTyping        = "typing"
	TypePing          = "ping"
	TypeEditMessage   = "edit_message"
	TypeDeleteMessage = "delete_message"
)

// Outbound is a client-to-server envelope. The set of implementations is
// closed; constructors below prefill the discriminant.
type Outbound interface {
	outbound()
}

// ChatFrame sends a new chat message. TempID correlates the eventual echo.
type ChatFrame struct {
	Kind    string `json:"type"`
	Message string `json:"message"`
	TempID  string `json:"temp_id"`
}

func (ChatFrame) outbound() {}

// NewChat builds a chat_message frame.
func NewChat(content, tempID string) ChatFrame {
	return ChatFrame{Kind: TypeChatMessage, Message: content, TempID: tempID}
}

// TypingFrame reports the local user's typing state.
type TypingFrame struct {
	Kind     string `json:"type"`
	IsTyping bool   `json:"is_typing"`
}

func (TypingFrame) outbound() {}

// NewTyping builds a typing frame.
func NewTyping(isTyping bool) TypingFrame {
	return TypingFrame{Kind: TypeTyping, IsTyping: isTyping}
}

// PingFrame is the heartbeat liveness probe.
type PingFrame struct {
	Kind string `json:"type"`
}

func (PingFrame) outbound() {}

// NewPing builds a ping frame.
func NewPing() PingFrame {
	return PingFrame{Kind: TypePing}
}

// EditFrame rewrites the content of an earlier message.
type EditFrame struct {
	Kind      string `json:"type"`
	MessageID FlexID `json:"message_id"`
	Content   string `json:"content"`
}

func (EditFrame) outbound() {}

// NewEdit builds an edit_message frame.
func NewEdit(messageID FlexID, content string) EditFrame {
	return EditFrame{Kind: TypeEditMessage, MessageID: messageID, Content: content}
}

// DeleteFrame removes an earlier message.
type DeleteFrame struct {
	Kind      string `json:"type"`
	MessageID FlexID `json:"message_id"`
}

func (DeleteFrame) outbound() {}

// NewDelete builds a delete_message frame.
func NewDelete(messageID FlexID) DeleteFrame {
	return DeleteFrame{Kind: TypeDeleteMessage, MessageID: messageID}
}

// Encode serializes an outbound envelope to a text frame.
func Encode(out Outbound) ([]byte, error) {
	return json.Marshal(out)
}
