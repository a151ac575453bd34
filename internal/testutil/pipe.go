package testutil

import (
	"net"
	"testing"
)

// TCPPipe returns both ends of a loopback TCP connection. Unlike net.Pipe,
// writes are buffered by the kernel, which TLS handshakes over a single
// goroutine per side rely on.
func TCPPipe(t *testing.T) (client, server net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	type result struct {
		c   net.Conn
		err error
	}
	accepted := make(chan result, 1)
	go func() {
		c, err := ln.Accept()
		accepted <- result{c, err}
	}()

	client, err = net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	r := <-accepted
	if r.err != nil {
		_ = client.Close()
		t.Fatal(r.err)
	}

	t.Cleanup(func() {
		_ = client.Close()
		_ = r.c.Close()
	})
	return client, r.c
}
