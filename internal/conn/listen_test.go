package conn

import (
	"context"
	"net"
	"testing"
)

// acceptOne dials ln and returns both ends.
func acceptOne(t *testing.T, ln net.Listener, d *net.Dialer) (client, server net.Conn) {
	t.Helper()

	type result struct {
		c   net.Conn
		err error
	}
	accepted := make(chan result, 1)
	go func() {
		c, err := ln.Accept()
		accepted <- result{c, err}
	}()

	client, err := d.DialContext(context.Background(), "tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = client.Close() })

	r := <-accepted
	if r.err != nil {
		t.Fatal(r.err)
	}
	t.Cleanup(func() { _ = r.c.Close() })
	return client, r.c
}

func TestListenTCP(t *testing.T) {
	ln, err := ListenTCP(context.Background(), "tcp", "127.0.0.1:0", Options{KeepAlive: net.KeepAliveConfig{Enable: true}})
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	_, c := acceptOne(t, ln, &net.Dialer{})
	if _, ok := c.(*net.TCPConn); !ok {
		t.Fatalf("got %T want *net.TCPConn", c)
	}
}

func TestListenTCPInvalid(t *testing.T) {
	if _, err := ListenTCP(context.Background(), "tcp", "256.0.0.1:0", Options{}); err == nil {
		t.Fatal("expected error")
	}
}
