package dialer

import (
	"net"
	"time"
)

type Config struct {
	DialTimeout        time.Duration
	NegotiationTimeout time.Duration
	KeepAlive          net.KeepAliveConfig

	// UserTimeout sets TCP_USER_TIMEOUT on dialed sockets (Linux only).
	UserTimeout time.Duration
}
