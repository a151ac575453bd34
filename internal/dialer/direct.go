package dialer

import (
	"context"
	"fmt"
	"net"

	"github.com/die-net/tlsocks/internal/conn"
)

type directDialer struct {
	cfg Config
}

// NewDirectDialer returns a Dialer that connects straight to the requested
// address.
func NewDirectDialer(cfg Config) Dialer {
	return &directDialer{cfg: cfg}
}

func (d *directDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	nd := net.Dialer{
		Timeout:         d.cfg.DialTimeout,
		KeepAliveConfig: d.cfg.KeepAlive,
		Control:         conn.DialControl(d.cfg.UserTimeout),
	}

	c, err := nd.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrDial, network, address, err)
	}

	return c, nil
}
