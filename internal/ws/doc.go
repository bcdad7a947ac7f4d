// Package ws implements the WebSocket side of the UART bridge: the client
// registry with bounded per-client queues, the per-connection read and write
// pumps, and the coordinator that relays bytes between the serial link and
// the connected clients.
//
// Outbound traffic to a client is either a binary frame (raw serial bytes,
// unmodified) or a JSON control message of type info, warning or error.
// Inbound binary frames are written verbatim to the serial link; text frames
// are not interpreted.
package ws
