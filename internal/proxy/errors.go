package proxy

import (
	"errors"

	"github.com/die-net/tlsocks/internal/dialer"
	"github.com/die-net/tlsocks/internal/socks5"
	"github.com/die-net/tlsocks/internal/tunnel"
)

// ErrIO reports a transport read or write failure on a connection leg.
var ErrIO = errors.New("i/o failure")

// ErrorKind classifies a connection error for logs and metrics.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, socks5.ErrMalformedRequest):
		return "malformed_request"
	case errors.Is(err, socks5.ErrUnsupportedAddressKind):
		return "unsupported_address_kind"
	case errors.Is(err, socks5.ErrUnsupportedCommand):
		return "unsupported_command"
	case errors.Is(err, dialer.ErrDial):
		return "dial_failure"
	case errors.Is(err, tunnel.ErrHandshake):
		return "tls_handshake"
	case errors.Is(err, errPanic):
		return "panic"
	default:
		return "io"
	}
}
