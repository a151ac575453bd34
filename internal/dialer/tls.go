package dialer

import (
	"context"
	"crypto/tls"
	"errors"
	"net"

	"github.com/die-net/tlsocks/internal/tunnel"
)

// TLSDialer dials the tunnel server and performs the TLS client handshake,
// returning the encrypted connection.
type TLSDialer struct {
	cfg       Config
	tlsConfig *tls.Config
	direct    Dialer
}

// NewTLSDialer returns a dialer that wraps connections in TLS. tlsCfg is
// shared by all connections and must not be modified afterwards.
func NewTLSDialer(cfg Config, tlsCfg *tls.Config) (*TLSDialer, error) {
	if tlsCfg == nil {
		return nil, errors.New("tls dialer: missing tls config")
	}

	return &TLSDialer{
		cfg:       cfg,
		tlsConfig: tlsCfg,
		direct:    NewDirectDialer(cfg),
	}, nil
}

func (d *TLSDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	conn, err := d.direct.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}

	hctx := ctx
	if d.cfg.NegotiationTimeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, d.cfg.NegotiationTimeout)
		defer cancel()
	}

	tc, err := tunnel.Client(hctx, conn, d.tlsConfig)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return tc, nil
}

var _ Dialer = (*TLSDialer)(nil)
