// Package dialer provides the outbound dialers used by the relay.
//
// The tunnel server reaches CONNECT destinations with the direct dialer. The
// agent reaches the tunnel server with the TLS dialer, which returns the
// encrypted connection once the handshake has completed.
package dialer
