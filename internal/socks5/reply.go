package socks5

import (
	"bytes"
	"io"

	txsocks5 "github.com/txthinking/socks5"
)

var (
	// noAuthReply is the greeting reply selecting "no authentication".
	noAuthReply = mustEncode(txsocks5.NewNegotiationReply(txsocks5.MethodNone))

	// successReply is the CONNECT success reply. The bound address is always
	// reported as 0.0.0.0:0; clients relying on BND.ADDR will see that
	// placeholder rather than the real local address.
	successReply = mustEncode(txsocks5.NewReply(txsocks5.RepSuccess, txsocks5.ATYPIPv4, []byte{0x00, 0x00, 0x00, 0x00}, []byte{0x00, 0x00}))
)

type writerTo interface {
	WriteTo(w io.Writer) (int64, error)
}

func mustEncode(m writerTo) []byte {
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Version is the SOCKS protocol version byte.
const Version = txsocks5.Ver
