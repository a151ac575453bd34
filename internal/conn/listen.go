// Package conn holds TCP socket plumbing shared by the agent and the tunnel
// server: listeners and per-socket options.
package conn

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Options are applied to every TCP connection a listener accepts.
type Options struct {
	KeepAlive net.KeepAliveConfig

	// UserTimeout is how long written data may stay unacknowledged before
	// the kernel gives up on the peer and fails the connection. Zero keeps
	// the system default. Only Linux supports it; elsewhere it is ignored.
	UserTimeout time.Duration
}

// ListenTCP listens on network/addr. Accepted TCP connections get opts
// applied before they are returned.
func ListenTCP(ctx context.Context, network, addr string, opts Options) (net.Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s %s: %w", network, addr, err)
	}
	return &listener{Listener: ln, opts: opts}, nil
}

type listener struct {
	net.Listener
	opts Options
}

func (l *listener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}

	tc, ok := c.(*net.TCPConn)
	if !ok {
		return c, nil
	}
	_ = tc.SetKeepAliveConfig(l.opts.KeepAlive)
	if l.opts.UserTimeout > 0 {
		raw, err := tc.SyscallConn()
		if err == nil {
			err = setUserTimeout(raw, l.opts.UserTimeout)
		}
		if err != nil {
			_ = tc.Close()
			return nil, fmt.Errorf("tcp user timeout: %w", err)
		}
	}
	return tc, nil
}
