package socks5

import "errors"

var (
	// ErrMalformedRequest reports bytes that do not match the expected
	// framing, including truncated input and a version byte other than 5.
	ErrMalformedRequest = errors.New("socks5: malformed request")

	// ErrUnsupportedAddressKind reports a well-formed address type this
	// server does not handle, notably IPv6.
	ErrUnsupportedAddressKind = errors.New("socks5: unsupported address kind")

	// ErrUnsupportedCommand reports a request other than CONNECT.
	ErrUnsupportedCommand = errors.New("socks5: unsupported command")
)
