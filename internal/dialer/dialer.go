package dialer

import (
	"context"
	"errors"
	"net"
)

// ErrDial reports that an outbound connection could not be established.
var ErrDial = errors.New("dial failure")

// Dialer mirrors the net.Dialer interface.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}
