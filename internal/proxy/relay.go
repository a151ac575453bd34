package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"
)

// RelayStats counts the bytes Relay delivered in each direction.
type RelayStats struct {
	NearToFar int64
	FarToNear int64
}

// errLegDone ends a forwarding loop that saw a clean EOF.
var errLegDone = errors.New("relay leg done")

// Relay copies bytes between near and far in both directions until either
// direction stops, whichever comes first. A direction stops at EOF or on the
// first read or write error; nothing is retried.
//
// When the first direction stops both streams are closed, which ends the
// other direction too. Bytes that direction had read but not yet written are
// dropped: there is no half-close, so a peer that shuts down its write side
// early may lose the tail of the response. Canceling ctx closes both
// streams as well.
//
// Relay returns nil if the first direction to stop reached EOF, and an
// ErrIO-wrapped error otherwise.
func Relay(ctx context.Context, near, far io.ReadWriteCloser) (RelayStats, error) {
	var stats RelayStats

	g, gctx := errgroup.WithContext(ctx)

	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			_ = near.Close()
			_ = far.Close()
		})
	}
	defer closeBoth()

	g.Go(func() error {
		return forward(far, near, &stats.NearToFar)
	})

	g.Go(func() error {
		return forward(near, far, &stats.FarToNear)
	})

	// Either loop returning cancels gctx; closing both sides unblocks the
	// loop still running.
	g.Go(func() error {
		<-gctx.Done()
		closeBoth()
		return nil
	})

	err := g.Wait()
	if ctx.Err() != nil {
		return stats, ctx.Err()
	}
	if errors.Is(err, errLegDone) {
		return stats, nil
	}
	return stats, fmt.Errorf("%w: %w", ErrIO, err)
}

// forward copies src to dst in chunks of at most relayBufferSize bytes. It
// always returns a non-nil error so the errgroup cancels on the first
// direction to stop.
func forward(dst io.Writer, src io.Reader, written *int64) error {
	bp := relayBuffers.Get()
	defer relayBuffers.Put(bp)
	buf := *bp

	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			*written += int64(nw)
			if werr != nil {
				return fmt.Errorf("write: %w", werr)
			}
			if nw != nr {
				return fmt.Errorf("write: %w", io.ErrShortWrite)
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return errLegDone
			}
			return fmt.Errorf("read: %w", rerr)
		}
	}
}
