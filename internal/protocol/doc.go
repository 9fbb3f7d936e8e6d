// Package protocol defines the chat channel wire format.
//
// Every frame is a UTF-8 JSON object with a mandatory "type" discriminant.
// Inbound frames decode into a closed set of message structs so dispatch
// can be exhaustive; unknown discriminants surface as ErrUnknownType and
// are dropped at the boundary, keeping the client forward compatible.
//
// Key inbound kinds: connection_established, message, message_sent,
// stream_start, stream_token, stream_end, agent_typing, user_typing,
// message_edited, message_deleted, error, pong.
//
// Outbound kinds: chat_message, typing, ping, edit_message, delete_message.
package protocol
