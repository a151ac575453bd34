package socks5

import (
	"fmt"
	"io"
	"net"
)

// DialFunc opens the connection to a CONNECT destination.
type DialFunc func(Target) (net.Conn, error)

// ServerHandshake runs the greeting and CONNECT exchange on rw, calling dial
// for the requested destination. On success the success reply has been
// written and the destination connection is returned; the caller owns it.
//
// On failure nothing further is written to rw and the returned error wraps
// one of this package's sentinels, the dial error, or the I/O error.
func ServerHandshake(rw io.ReadWriter, dial DialFunc) (net.Conn, Target, error) {
	var h Handshake

	greeting, err := ReadGreeting(rw)
	if err != nil {
		return nil, Target{}, err
	}
	reply, err := h.Greeting(greeting)
	if err != nil {
		return nil, Target{}, err
	}
	if _, err := rw.Write(reply); err != nil {
		return nil, Target{}, fmt.Errorf("negotiation reply: %w", err)
	}

	req, err := ReadRequest(rw)
	if err != nil {
		return nil, Target{}, err
	}
	target, err := h.Request(req)
	if err != nil {
		return nil, Target{}, err
	}

	up, err := dial(target)
	if err != nil {
		h.Fail()
		return nil, target, err
	}

	reply, err = h.Connected()
	if err != nil {
		_ = up.Close()
		return nil, target, err
	}
	if _, err := rw.Write(reply); err != nil {
		_ = up.Close()
		return nil, target, fmt.Errorf("success reply: %w", err)
	}

	return up, target, nil
}
