// Package proxy implements the two connection supervisors of the tunnel and
// the relay engine they share.
//
// AgentServer accepts local SOCKS5 clients and forwards their traffic
// through a TLS connection to the tunnel server without interpreting it.
// TunnelServer terminates those TLS connections, runs the SOCKS5 handshake
// and dials the requested destination. Both finish by handing the two legs
// to Relay.
//
// Every accepted connection is handled by its own goroutine with no state
// shared with other connections; a failure, or even a panic, ends only that
// connection.
package proxy
