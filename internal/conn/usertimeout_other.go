//go:build !linux

package conn

import (
	"errors"
	"net"
	"syscall"
	"time"
)

func DialControl(time.Duration) func(network, address string, c syscall.RawConn) error {
	return nil
}

func UserTimeout(net.Conn) (time.Duration, error) {
	return 0, errors.ErrUnsupported
}

func setUserTimeout(syscall.RawConn, time.Duration) error {
	return nil
}
