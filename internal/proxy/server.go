package proxy

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog"

	"github.com/die-net/tlsocks/internal/metrics"
	"github.com/die-net/tlsocks/internal/socks5"
	"github.com/die-net/tlsocks/internal/tunnel"
)

// TunnelServer terminates TLS connections from agents, answers the SOCKS5
// exchange they carry and relays to the requested destination.
type TunnelServer struct {
	ctx       context.Context
	cfg       Config
	tlsConfig *tls.Config
	log       zerolog.Logger
}

// NewTunnelServer returns a tunnel server presenting the identity in tlsCfg.
// Destinations are dialed with cfg.Dialer.
func NewTunnelServer(ctx context.Context, cfg Config, tlsCfg *tls.Config) (*TunnelServer, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Dialer == nil {
		return nil, errors.New("tunnel server: missing dialer")
	}
	if tlsCfg == nil {
		return nil, errors.New("tunnel server: missing tls config")
	}
	return &TunnelServer{
		ctx:       ctx,
		cfg:       cfg,
		tlsConfig: tlsCfg,
		log:       cfg.Logger.With().Str("component", metrics.RoleServer).Logger(),
	}, nil
}

// Serve accepts agent connections on ln until ln is closed.
func (s *TunnelServer) Serve(ln net.Listener) error {
	return serve(s.ctx, ln, metrics.RoleServer, s.log, s.handle)
}

func (s *TunnelServer) handle(ctx context.Context, conn net.Conn, log *zerolog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	clearDeadline := negotiationDeadline(conn, s.cfg.NegotiationTimeout)

	tc, err := tunnel.Server(ctx, conn, s.tlsConfig)
	if err != nil {
		return err
	}
	defer tc.Close()

	up, target, err := socks5.ServerHandshake(tc, func(t socks5.Target) (net.Conn, error) {
		return s.cfg.Dialer.DialContext(ctx, "tcp", t.String())
	})
	if err != nil {
		if target.Kind != 0 {
			return fmt.Errorf("connect %s: %w", target, err)
		}
		return fmt.Errorf("socks5 handshake: %w", err)
	}
	defer up.Close()

	clearDeadline()

	l := log.With().Stringer("target", target).Logger()
	l.Debug().Msg("connected")

	stats, err := Relay(ctx, tc, up)
	recordRelay(metrics.RoleServer, stats, &l)
	return err
}
