package tunnel

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
)

// ErrHandshake reports a failed TLS handshake (certificate or protocol
// negotiation failure).
var ErrHandshake = errors.New("tls handshake")

// Client performs a TLS client handshake over conn, verifying the server
// certificate against cfg.ServerName. On error the caller still owns conn
// and is responsible for closing it.
func Client(ctx context.Context, conn net.Conn, cfg *tls.Config) (*tls.Conn, error) {
	tc := tls.Client(conn, cfg)
	if err := tc.HandshakeContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: client: %w", ErrHandshake, err)
	}
	return tc, nil
}

// Server performs a TLS server handshake over conn using the identity in
// cfg. On error the caller still owns conn and is responsible for closing it.
func Server(ctx context.Context, conn net.Conn, cfg *tls.Config) (*tls.Conn, error) {
	tc := tls.Server(conn, cfg)
	if err := tc.HandshakeContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: server: %w", ErrHandshake, err)
	}
	return tc, nil
}
