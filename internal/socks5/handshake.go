package socks5

import (
	"fmt"
	"slices"

	txsocks5 "github.com/txthinking/socks5"
)

// State is the position of a Handshake in the SOCKS5 exchange.
type State int

const (
	StateAwaitGreeting State = iota
	StateAwaitRequest
	StateEstablished
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateAwaitGreeting:
		return "await-greeting"
	case StateAwaitRequest:
		return "await-request"
	case StateEstablished:
		return "established"
	case StateRejected:
		return "rejected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Handshake is the server-side SOCKS5 state machine for one connection.
// It only interprets bytes; reading and writing the stream is left to the
// caller (see ServerHandshake). The zero value awaits a greeting.
//
// Any error moves the machine to StateRejected, after which every call
// fails. Rejections never produce reply bytes.
type Handshake struct {
	state  State
	target Target
	// dialing is set between a decoded request and Connected/Fail.
	dialing bool
}

// State returns the current state.
func (h *Handshake) State() State {
	return h.state
}

// Target returns the destination decoded by Request.
func (h *Handshake) Target() Target {
	return h.target
}

// Greeting consumes [VER, NMETHODS, METHODS...] and returns the reply to
// send. Only "no authentication" is ever selected, whatever the client
// offers, so the method bytes are not inspected and may be absent.
func (h *Handshake) Greeting(b []byte) ([]byte, error) {
	if h.state != StateAwaitGreeting {
		return nil, h.reject(fmt.Errorf("%w: greeting in state %s", ErrMalformedRequest, h.state))
	}
	if len(b) < 2 {
		return nil, h.reject(fmt.Errorf("%w: short greeting", ErrMalformedRequest))
	}
	if b[0] != txsocks5.Ver {
		return nil, h.reject(fmt.Errorf("%w: version %d", ErrMalformedRequest, b[0]))
	}
	if b[1] == 0 {
		return nil, h.reject(fmt.Errorf("%w: no methods offered", ErrMalformedRequest))
	}

	h.state = StateAwaitRequest
	return slices.Clone(noAuthReply), nil
}

// Request consumes [VER, CMD, RSV, ATYP, DST.ADDR, DST.PORT] and returns the
// destination the caller should dial. The caller reports the outcome with
// Connected or Fail.
func (h *Handshake) Request(b []byte) (Target, error) {
	if h.state != StateAwaitRequest || h.dialing {
		return Target{}, h.reject(fmt.Errorf("%w: request in state %s", ErrMalformedRequest, h.state))
	}
	if len(b) < 3 {
		return Target{}, h.reject(fmt.Errorf("%w: short request", ErrMalformedRequest))
	}
	if b[0] != txsocks5.Ver {
		return Target{}, h.reject(fmt.Errorf("%w: version %d", ErrMalformedRequest, b[0]))
	}
	if b[1] != txsocks5.CmdConnect {
		return Target{}, h.reject(fmt.Errorf("%w: command %d", ErrUnsupportedCommand, b[1]))
	}

	t, err := DecodeTarget(b[3:])
	if err != nil {
		return Target{}, h.reject(err)
	}

	h.target = t
	h.dialing = true
	return t, nil
}

// Connected records a successful dial and returns the success reply.
func (h *Handshake) Connected() ([]byte, error) {
	if h.state != StateAwaitRequest || !h.dialing {
		return nil, h.reject(fmt.Errorf("%w: connected in state %s", ErrMalformedRequest, h.state))
	}
	h.dialing = false
	h.state = StateEstablished
	return slices.Clone(successReply), nil
}

// Fail records a failed dial.
func (h *Handshake) Fail() {
	h.dialing = false
	h.state = StateRejected
}

func (h *Handshake) reject(err error) error {
	h.Fail()
	return err
}
