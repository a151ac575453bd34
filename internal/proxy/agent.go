package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog"

	"github.com/die-net/tlsocks/internal/metrics"
	"github.com/die-net/tlsocks/internal/socks5"
)

// AgentServer accepts local SOCKS5 clients and tunnels each one to the
// tunnel server. It does not interpret the SOCKS5 exchange beyond checking
// the version byte of the greeting; the tunnel server answers it.
type AgentServer struct {
	ctx      context.Context
	cfg      Config
	upstream string
	log      zerolog.Logger
}

// NewAgentServer returns an agent that reaches the tunnel server at upstream
// through cfg.Dialer, normally a *dialer.TLSDialer.
func NewAgentServer(ctx context.Context, cfg Config, upstream string) (*AgentServer, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Dialer == nil {
		return nil, errors.New("agent: missing dialer")
	}
	if upstream == "" {
		return nil, errors.New("agent: missing tunnel server address")
	}
	return &AgentServer{
		ctx:      ctx,
		cfg:      cfg,
		upstream: upstream,
		log:      cfg.Logger.With().Str("component", metrics.RoleAgent).Logger(),
	}, nil
}

// Serve accepts SOCKS5 clients on ln until ln is closed.
func (s *AgentServer) Serve(ln net.Listener) error {
	return serve(s.ctx, ln, metrics.RoleAgent, s.log, s.handle)
}

func (s *AgentServer) handle(ctx context.Context, conn net.Conn, log *zerolog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	clearDeadline := negotiationDeadline(conn, s.cfg.NegotiationTimeout)

	bp := relayBuffers.Get()
	defer relayBuffers.Put(bp)
	buf := *bp

	n, err := conn.Read(buf)
	if err != nil {
		return fmt.Errorf("%w: read greeting: %w", ErrIO, err)
	}
	if buf[0] != socks5.Version {
		return fmt.Errorf("%w: not a socks5 greeting (version %d)", socks5.ErrMalformedRequest, buf[0])
	}

	up, err := s.cfg.Dialer.DialContext(ctx, "tcp", s.upstream)
	if err != nil {
		return err
	}
	defer up.Close()
	clearUpDeadline := negotiationDeadline(up, s.cfg.NegotiationTimeout)

	if _, err := up.Write(buf[:n]); err != nil {
		return fmt.Errorf("%w: forward greeting: %w", ErrIO, err)
	}

	n, err = up.Read(buf)
	if err != nil {
		return fmt.Errorf("%w: read greeting reply: %w", ErrIO, err)
	}
	if _, err := conn.Write(buf[:n]); err != nil {
		return fmt.Errorf("%w: forward greeting reply: %w", ErrIO, err)
	}

	clearDeadline()
	clearUpDeadline()

	stats, err := Relay(ctx, conn, up)
	recordRelay(metrics.RoleAgent, stats, log)
	return err
}
