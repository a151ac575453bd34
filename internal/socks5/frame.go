package socks5

import (
	"fmt"
	"io"

	txsocks5 "github.com/txthinking/socks5"
)

// ReadGreeting reads one greeting frame from r. When the header already
// rules the greeting out (wrong version, no methods) only the header is
// returned, so a misbehaving peer cannot make the server wait for bytes it
// will never use.
func ReadGreeting(r io.Reader) ([]byte, error) {
	b := make([]byte, 2, 2+255)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("read greeting: %w", err)
	}
	if b[0] != txsocks5.Ver || b[1] == 0 {
		return b, nil
	}

	return readMore(r, b, int(b[1]), "greeting methods")
}

// ReadRequest reads one request frame from r, stopping after the header
// when the version, command or address type is one the Handshake rejects.
func ReadRequest(r io.Reader) ([]byte, error) {
	b := make([]byte, 4, 4+1+255+2)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	if b[0] != txsocks5.Ver || b[1] != txsocks5.CmdConnect {
		return b, nil
	}

	tag := Kind(b[3])
	var domainLen byte
	if tag == KindDomain {
		var err error
		if b, err = readMore(r, b, 1, "domain length"); err != nil {
			return nil, err
		}
		domainLen = b[4]
	}

	n, ok := targetLen(tag, domainLen)
	if !ok {
		return b, nil
	}

	// The address tag (and domain length) are already in b.
	return readMore(r, b, 3+n-len(b), "request address")
}

func readMore(r io.Reader, b []byte, n int, what string) ([]byte, error) {
	off := len(b)
	b = append(b, make([]byte, n)...)
	if _, err := io.ReadFull(r, b[off:]); err != nil {
		return nil, fmt.Errorf("read %s: %w", what, err)
	}
	return b, nil
}
