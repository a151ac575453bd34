package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/die-net/tlsocks/internal/metrics"
)

var errPanic = errors.New("panic")

// handlerFunc handles one accepted connection. The supervisor closes conn
// after it returns.
type handlerFunc func(ctx context.Context, conn net.Conn, log *zerolog.Logger) error

// serve accepts connections from ln until it is closed or ctx is done,
// handling each on its own goroutine. Accept errors other than a closed
// listener are logged and retried with backoff.
func serve(ctx context.Context, ln net.Listener, role string, log zerolog.Logger, handle handlerFunc) error {
	var delay time.Duration
	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("accept: %w", err)
			}

			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay = min(2*delay, time.Second)
			}
			log.Warn().Err(err).Dur("retry_in", delay).Msg("accept failed")

			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return fmt.Errorf("accept: %w", err)
			}
		}
		delay = 0

		go supervise(ctx, c, role, log, handle)
	}
}

// supervise runs handle for conn and contains whatever it returns, including
// a panic, to this one connection.
func supervise(ctx context.Context, conn net.Conn, role string, log zerolog.Logger, handle handlerFunc) {
	start := time.Now()
	l := log.With().
		Str("conn", uuid.NewString()).
		Stringer("remote", conn.RemoteAddr()).
		Logger()

	metrics.ConnectionsTotal.WithLabelValues(role).Inc()
	active := metrics.ActiveConnections.WithLabelValues(role)
	active.Inc()

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errPanic, r)
			l.Error().Err(err).Msg("recovered from panic in connection handler")
		}
		_ = conn.Close()
		active.Dec()
		metrics.ConnectionDuration.WithLabelValues(role).Observe(time.Since(start).Seconds())

		if err != nil {
			kind := ErrorKind(err)
			metrics.ErrorsTotal.WithLabelValues(role, kind).Inc()
			l.Debug().Err(err).Str("kind", kind).Dur("duration", time.Since(start)).Msg("connection failed")
			return
		}
		l.Debug().Dur("duration", time.Since(start)).Msg("connection closed")
	}()

	err = handle(ctx, conn, &l)
}

// negotiationDeadline applies timeout to conn and returns a func clearing it.
func negotiationDeadline(conn net.Conn, timeout time.Duration) func() {
	if timeout <= 0 {
		return func() {}
	}
	_ = conn.SetDeadline(time.Now().Add(timeout))
	return func() { _ = conn.SetDeadline(time.Time{}) }
}

func recordRelay(role string, stats RelayStats, log *zerolog.Logger) {
	metrics.RelayedBytesTotal.WithLabelValues(role, metrics.DirectionUp).Add(float64(stats.NearToFar))
	metrics.RelayedBytesTotal.WithLabelValues(role, metrics.DirectionDown).Add(float64(stats.FarToNear))
	log.Debug().Int64("up_bytes", stats.NearToFar).Int64("down_bytes", stats.FarToNear).Msg("relay finished")
}
