package socks5

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"

	txsocks5 "github.com/txthinking/socks5"
)

// Kind is the address type of a CONNECT destination.
type Kind byte

const (
	KindIPv4   Kind = Kind(txsocks5.ATYPIPv4)
	KindDomain Kind = Kind(txsocks5.ATYPDomain)
	KindIPv6   Kind = Kind(txsocks5.ATYPIPv6)
)

func (k Kind) String() string {
	switch k {
	case KindIPv4:
		return "ipv4"
	case KindDomain:
		return "domain"
	case KindIPv6:
		return "ipv6"
	default:
		return "atyp(" + strconv.Itoa(int(k)) + ")"
	}
}

// Target is a decoded CONNECT destination.
type Target struct {
	Kind Kind
	// Addr is set for KindIPv4.
	Addr netip.Addr
	// Host is set for KindDomain.
	Host string
	Port uint16
}

// Hostname returns the address or domain without the port.
func (t Target) Hostname() string {
	if t.Kind == KindIPv4 {
		return t.Addr.String()
	}
	return t.Host
}

// String returns host:port, suitable for dialing.
func (t Target) String() string {
	return net.JoinHostPort(t.Hostname(), strconv.Itoa(int(t.Port)))
}

// DecodeTarget parses ATYP, DST.ADDR and DST.PORT from b. Bytes after the
// port are ignored.
func DecodeTarget(b []byte) (Target, error) {
	if len(b) < 1 {
		return Target{}, fmt.Errorf("%w: missing address type", ErrMalformedRequest)
	}

	switch k := Kind(b[0]); k {
	case KindIPv4:
		if len(b) < 1+4+2 {
			return Target{}, fmt.Errorf("%w: short ipv4 address", ErrMalformedRequest)
		}
		return Target{
			Kind: k,
			Addr: netip.AddrFrom4([4]byte(b[1:5])),
			Port: binary.BigEndian.Uint16(b[5:7]),
		}, nil
	case KindDomain:
		if len(b) < 2 {
			return Target{}, fmt.Errorf("%w: missing domain length", ErrMalformedRequest)
		}
		n := int(b[1])
		if len(b) < 2+n+2 {
			return Target{}, fmt.Errorf("%w: short domain address", ErrMalformedRequest)
		}
		return Target{
			Kind: k,
			Host: strings.ToValidUTF8(string(b[2:2+n]), "\uFFFD"),
			Port: binary.BigEndian.Uint16(b[2+n : 2+n+2]),
		}, nil
	default:
		return Target{}, fmt.Errorf("%w: %s", ErrUnsupportedAddressKind, k)
	}
}

// targetLen returns how many bytes the address beginning with tag occupies,
// given the domain length byte when tag is KindDomain. ok is false for
// unsupported kinds.
func targetLen(tag Kind, domainLen byte) (n int, ok bool) {
	switch tag {
	case KindIPv4:
		return 1 + 4 + 2, true
	case KindDomain:
		return 1 + 1 + int(domainLen) + 2, true
	default:
		return 0, false
	}
}
