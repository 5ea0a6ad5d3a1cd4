// Package session owns the client side of a FIX session.
//
// Ownership boundary:
// - dial with keepalive, optional TLS and retry/backoff
// - logon/logout/heartbeat exchanges and sequence numbers
// - linked-ack receive and pending order tracking
// - traffic log of every message sent and received
package session
