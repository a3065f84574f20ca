// Package transport defines the boundary between the single-threaded
// core and whatever I/O layer moves bytes between sites (spec.md §5):
// "the transport may be implemented with background I/O threads, but its
// interface to the core is a non-blocking queue: the core pulls
// fully-formed frames."
package transport

// Transport is implemented by internal/transport/wsrelay (a WebSocket
// control-plane hub/client pair) and internal/transport/p2p (a
// pion/webrtc peer with a reliable-ordered and an unreliable-unordered
// data channel). Dispatcher only ever sees this interface.
type Transport interface {
	// SendReliable enqueues frame for ordered, at-least-once delivery to
	// every connected peer. Used for Operation, Chat, Selection, Session,
	// and PermissionChange messages.
	SendReliable(frame []byte) error

	// SendUnreliable enqueues frame for best-effort, possibly-reordered
	// delivery. Used for Heartbeat and cursor/camera PresenceUpdate
	// traffic, where loss is acceptable (spec.md §4.6).
	SendUnreliable(frame []byte) error

	// Recv returns the next fully-formed inbound frame without blocking.
	// ok is false when no frame is currently queued; Dispatcher treats
	// this as "nothing to do this tick" rather than an error.
	Recv() (frame []byte, ok bool)

	// Close releases the transport's sockets/connections.
	Close() error
}
