// Package tunnel wraps established transport connections in TLS for both
// ends of the relay and loads the TLS material they need.
//
// The agent uses Client to encrypt its leg to the tunnel server; the server
// uses Server to terminate it. Both return *tls.Conn, which satisfies
// net.Conn, so relaying code never needs to know whether a leg is encrypted.
//
// Credentials are loaded once at startup with LoadServerConfig and
// LoadClientConfig. The resulting *tls.Config values must not be modified
// afterwards; they are shared by every connection.
package tunnel
