// Package connection implements the resilient chat channel client.
//
// The Connection Manager:
//   - Owns exactly one WebSocket channel per conversation
//   - Drives the Idle/Connecting/Open/Closing/Closed state machine
//   - Reconnects after unexpected closes with exponential backoff,
//     retiring the channel once attempts are exhausted
//   - Runs a single heartbeat probe timer for the life of each open channel
//   - Feeds inbound frames to the Message Router in delivery order
package connection
