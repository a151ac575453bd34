package dialer

import (
	"context"
	"testing"
	"time"

	"github.com/die-net/tlsocks/internal/conn"
	"github.com/die-net/tlsocks/internal/testutil"
)

func TestDirectDialerUserTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	echoLn := testutil.StartEchoTCPServer(t, ctx)
	defer echoLn.Close()

	d := NewDirectDialer(Config{DialTimeout: time.Second, UserTimeout: 4 * time.Second})
	c, err := d.DialContext(ctx, "tcp", echoLn.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	got, err := conn.UserTimeout(c)
	if err != nil {
		t.Fatal(err)
	}
	if got != 4*time.Second {
		t.Fatalf("TCP_USER_TIMEOUT %v want 4s", got)
	}
}
