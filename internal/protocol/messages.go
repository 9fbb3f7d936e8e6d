package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Inbound discriminant values.
const (
	TypeConnectionEstablished = "connection_established"
	TypeMessage               = "message"
	TypeMessageSent           = "message_sent"
	TypeStreamStart           = "stream_start"
	TypeStreamToken           = "stream_token"
	TypeStreamEnd             = "stream_end"
	TypeAgentTyping           = "agent_typing"
	TypeUserTyping            = "user_typing"
	TypeMessageEdited         = "message_edited"
	TypeMessageDeleted        = "message_deleted"
	TypeError                 = "error"
	TypePong                  = "pong"
)

// ErrUnknownType marks a frame whose discriminant is not in the closed set.
// Callers log and drop these; they are never connection faults.
var ErrUnknownType = errors.New("unknown message type")

// Message is an inbound envelope. The set of implementations is closed:
// every recognized discriminant maps to exactly one struct below.
type Message interface {
	// Type returns the wire discriminant this message decoded from.
	Type() string
}

// FlexID tolerates servers that serialize ids as either JSON numbers or
// strings (e.g. conversation_id arrives as 42 or "42").
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %w", err)
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

func (f FlexID) String() string { return string(f) }

// Int returns the id as an integer, or 0 if it is not numeric.
func (f FlexID) Int() int64 {
	n, err := strconv.ParseInt(string(f), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// ConnectionEstablished is the server's acknowledgement after accept.
type ConnectionEstablished struct {
	ConversationID FlexID `json:"conversation_id"`
	UserID         FlexID `json:"user_id"`
	Timestamp      string `json:"timestamp"`
}

func (ConnectionEstablished) Type() string { return TypeConnectionEstablished }

// MessageBody is the payload shared by message broadcasts and echoes.
type MessageBody struct {
	ID        FlexID `json:"id"`
	TempID    string `json:"temp_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	UserID    FlexID `json:"user_id"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
}

// ChatMessage is a persisted chat message, either a broadcast ("message")
// or the echo confirming the caller's own send ("message_sent").
type ChatMessage struct {
	ConversationID FlexID      `json:"conversation_id"`
	Message        MessageBody `json:"message"`
	TempID         string      `json:"temp_id"`

	// Sent is true for "message_sent" echoes.
	Sent bool `json:"-"`
}

func (m ChatMessage) Type() string {
	if m.Sent {
		return TypeMessageSent
	}
	return TypeMessage
}

// StreamStart signals the beginning of an incremental agent response.
type StreamStart struct {
	MessageID FlexID `json:"message_id"`
	Timestamp string `json:"timestamp"`
}

func (StreamStart) Type() string { return TypeStreamStart }

// StreamToken carries one incremental content fragment.
type StreamToken struct {
	MessageID   FlexID `json:"message_id"`
	Token       string `json:"token"`
	Accumulated string `json:"accumulated"`
	Index       int    `json:"index"`
}

func (StreamToken) Type() string { return TypeStreamToken }

// StreamEnd terminates a streaming sequence.
type StreamEnd struct {
	MessageID FlexID `json:"message_id"`
	Timestamp string `json:"timestamp"`
}

func (StreamEnd) Type() string { return TypeStreamEnd }

// TypingIndicator reports typing state for the agent or another user.
type TypingIndicator struct {
	UserID   FlexID `json:"user_id"`
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`

	// Agent is true for "agent_typing" frames.
	Agent bool `json:"-"`
}

func (t TypingIndicator) Type() string {
	if t.Agent {
		return TypeAgentTyping
	}
	return TypeUserTyping
}

// MessageEdited reports an in-place edit of an earlier message.
type MessageEdited struct {
	MessageID  FlexID `json:"message_id"`
	NewContent string `json:"new_content"`
	EditedAt   string `json:"edited_at"`
}

func (MessageEdited) Type() string { return TypeMessageEdited }

// MessageDeleted reports removal of an earlier message.
type MessageDeleted struct {
	MessageID FlexID `json:"message_id"`
	DeletedAt string `json:"deleted_at"`
}

func (MessageDeleted) Type() string { return TypeMessageDeleted }

// ServerError is a protocol-level error reported by the counterpart.
type ServerError struct {
	Detail    string `json:"error"`
	TempID    string `json:"temp_id"`
	Timestamp string `json:"timestamp"`
}

func (ServerError) Type() string { return TypeError }

// Err converts the frame into a Go error carrying the server description.
func (e ServerError) Err() error {
	return fmt.Errorf("server error: %s", e.Detail)
}

// Pong is the keepalive acknowledgement for a ping probe.
type Pong struct {
	Timestamp string `json:"timestamp"`
}

func (Pong) Type() string { return TypePong }

// envelope is used for fast discriminant extraction.
type envelope struct {
	Type string `json:"type"`
}

// Decode parses one inbound frame into its typed message.
//
// Malformed JSON returns an unmarshal error. A valid object whose "type" is
// outside the closed set returns an error wrapping ErrUnknownType; callers
// treat both as log-and-drop, never as connection faults.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	switch env.Type {
	case TypeConnectionEstablished:
		return decodeInto[ConnectionEstablished](data)

	case TypeMessage:
		return decodeInto[ChatMessage](data)

	case TypeMessageSent:
		msg, err := decodeInto[ChatMessage](data)
		if err != nil {
			return nil, err
		}
		msg.Sent = true
		return msg, nil

	case TypeStreamStart:
		return decodeInto[StreamStart](data)

	case TypeStreamToken:
		return decodeInto[StreamToken](data)

	case TypeStreamEnd:
		return decodeInto[StreamEnd](data)

	case TypeAgentTyping:
		ind, err := decodeInto[TypingIndicator](data)
		if err != nil {
			return nil, err
		}
		ind.Agent = true
		return ind, nil

	case TypeUserTyping:
		return decodeInto[TypingIndicator](data)

	case TypeMessageEdited:
		return decodeInto[MessageEdited](data)

	case TypeMessageDeleted:
		return decodeInto[MessageDeleted](data)

	case TypeError:
		return decodeInto[ServerError](data)

	case TypePong:
		return decodeInto[Pong](data)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

func decodeInto[T Message](data []byte) (T, error) {
	var msg T
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("decode %T: %w", msg, err)
	}
	return msg, nil
}
