package proxy

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

type relayResult struct {
	stats RelayStats
	err   error
}

func startRelay(ctx context.Context, near, far io.ReadWriteCloser) <-chan relayResult {
	done := make(chan relayResult, 1)
	go func() {
		stats, err := Relay(ctx, near, far)
		done <- relayResult{stats, err}
	}()
	return done
}

func waitRelay(t *testing.T, done <-chan relayResult) relayResult {
	t.Helper()

	select {
	case r := <-done:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not finish")
		return relayResult{}
	}
}

func TestRelayDeliversInOrderThenCompletes(t *testing.T) {
	nearPeer, near := net.Pipe()
	farPeer, far := net.Pipe()
	defer farPeer.Close()

	msg := make([]byte, 64*1024+123)
	if _, err := rand.Read(msg); err != nil {
		t.Fatal(err)
	}

	done := startRelay(context.Background(), near, far)

	go func() {
		// Several writes of odd sizes; order must survive chunking.
		for rest := msg; len(rest) > 0; {
			n := min(len(rest), 1000)
			if _, err := nearPeer.Write(rest[:n]); err != nil {
				return
			}
			rest = rest[n:]
		}
		_ = nearPeer.Close()
	}()

	got, err := io.ReadAll(farPeer)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, msg) {
		t.Fatalf("far side received %d bytes, want %d identical bytes", len(got), len(msg))
	}

	r := waitRelay(t, done)
	if r.err != nil {
		t.Fatalf("relay err=%v want nil after clean EOF", r.err)
	}
	if r.stats.NearToFar != int64(len(msg)) || r.stats.FarToNear != 0 {
		t.Fatalf("stats %+v", r.stats)
	}
}

func TestRelayBothDirections(t *testing.T) {
	nearPeer, near := net.Pipe()
	farPeer, far := net.Pipe()
	defer farPeer.Close()

	done := startRelay(context.Background(), near, far)

	up := bytes.Repeat([]byte("up"), 5000)
	down := bytes.Repeat([]byte("down"), 3000)

	go func() { _, _ = nearPeer.Write(up) }()
	got := make([]byte, len(up))
	if _, err := io.ReadFull(farPeer, got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, up) {
		t.Fatal("up direction corrupted")
	}

	go func() { _, _ = farPeer.Write(down) }()
	got = make([]byte, len(down))
	if _, err := io.ReadFull(nearPeer, got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, down) {
		t.Fatal("down direction corrupted")
	}

	_ = nearPeer.Close()

	r := waitRelay(t, done)
	if r.err != nil {
		t.Fatal(r.err)
	}
	if r.stats.NearToFar != int64(len(up)) || r.stats.FarToNear != int64(len(down)) {
		t.Fatalf("stats %+v", r.stats)
	}
}

type failingStream struct {
	err    error
	closed chan struct{}
}

func (s *failingStream) Read([]byte) (int, error)    { return 0, s.err }
func (s *failingStream) Write(b []byte) (int, error) { return len(b), nil }
func (s *failingStream) Close() error {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
	return nil
}

func TestRelayFirstToFinishOnError(t *testing.T) {
	boom := errors.New("boom")
	near := &failingStream{err: boom, closed: make(chan struct{})}

	// far never sends and never closes on its own.
	farPeer, far := net.Pipe()
	defer farPeer.Close()

	r := waitRelay(t, startRelay(context.Background(), near, far))

	if !errors.Is(r.err, ErrIO) || !errors.Is(r.err, boom) {
		t.Fatalf("err=%v want ErrIO wrapping boom", r.err)
	}
	select {
	case <-near.closed:
	default:
		t.Fatal("near stream not closed")
	}
	if _, err := farPeer.Read(make([]byte, 1)); !errors.Is(err, io.EOF) {
		t.Fatalf("far stream not closed: %v", err)
	}
}

func TestRelayContextCancel(t *testing.T) {
	nearPeer, near := net.Pipe()
	defer nearPeer.Close()
	farPeer, far := net.Pipe()
	defer farPeer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := startRelay(ctx, near, far)
	cancel()

	r := waitRelay(t, done)
	if !errors.Is(r.err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", r.err)
	}
}

func TestBufferPool(t *testing.T) {
	p := newBufferPool(16)
	b := p.Get()
	if len(*b) != 16 {
		t.Fatalf("len %d want 16", len(*b))
	}
	p.Put(b)
}
