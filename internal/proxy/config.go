package proxy

import (
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/die-net/tlsocks/internal/dialer"
)

type Config struct {
	// NegotiationTimeout bounds everything before relaying starts: reading
	// the greeting, the TLS handshake and the SOCKS5 exchange. Zero disables
	// it.
	NegotiationTimeout time.Duration

	KeepAlive net.KeepAliveConfig

	// Dialer opens the far leg: the tunnel server for the agent, CONNECT
	// destinations for the tunnel server.
	Dialer dialer.Dialer

	Logger zerolog.Logger
}
