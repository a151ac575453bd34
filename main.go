package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // Intentionally exposed on debug port.
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/die-net/tlsocks/internal/config"
	"github.com/die-net/tlsocks/internal/conn"
	"github.com/die-net/tlsocks/internal/dialer"
	"github.com/die-net/tlsocks/internal/metrics"
	"github.com/die-net/tlsocks/internal/proxy"
	"github.com/die-net/tlsocks/internal/tunnel"
)

const (
	defaultAgentListen  = "0.0.0.0:8080"
	defaultServerListen = "0.0.0.0:8000"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		role   = pflag.String("role", "", "Which end of the tunnel to run: agent (local SOCKS5 listener) | server (TLS listener dialing destinations)")
		listen = pflag.String("listen", "", "Listen address (default "+defaultAgentListen+" for agent, "+defaultServerListen+" for server)")

		serverAddr = pflag.String("server", "", "Agent: tunnel server host:port")
		serverName = pflag.String("server-name", "", "Agent: expected server certificate name (default: host of --server)")
		caFile     = pflag.String("ca-file", "", "Agent: PEM bundle of trusted roots for the server certificate (default: system roots)")

		certFile       = pflag.String("cert-file", "", "Server: PEM certificate chain")
		keyFile        = pflag.String("key-file", "", "Server: PEM private key")
		pkcs12File     = pflag.String("pkcs12-file", "", "Server: PKCS#12 (.pfx) bundle with certificate and key, instead of --cert-file/--key-file")
		pkcs12Password = pflag.String("pkcs12-password", "", "Server: password for --pkcs12-file")

		configFile         = pflag.String("config", "", "Optional ini file with flag values; keys in a section named after the role override top-level keys")
		debugListen        = pflag.String("debug-listen", "", "Debug HTTP listen address exposing /debug/pprof and /metrics (e.g. 127.0.0.1:6060). Empty disables.")
		dialTimeout        = pflag.Duration("dial-timeout", 10*time.Second, "Timeout for outbound DNS lookup and TCP connect")
		negotiationTimeout = pflag.Duration("negotiation-timeout", 10*time.Second, "Timeout for TLS and SOCKS5 negotiation before relaying starts")
		tcpKeepAlive       = pflag.String("tcp-keepalive", "45:45:3", "TCP keepalive: on|off|keepidle:keepintvl:keepcnt")
		tcpUserTimeout     = pflag.Duration("tcp-user-timeout", 5*time.Minute, "Linux: fail a connection whose sent data stays unacknowledged this long (0 keeps the system default)")
		logFormat          = pflag.String("log-format", "console", "Log format: console|json")
		verbose            = pflag.Bool("verbose", false, "Enable per-connection logging")
	)

	pflag.CommandLine.SortFlags = false
	pflag.Parse()

	if *role != metrics.RoleAgent && *role != metrics.RoleServer {
		return fmt.Errorf("--role must be %q or %q", metrics.RoleAgent, metrics.RoleServer)
	}

	if *configFile != "" {
		if err := config.Apply(pflag.CommandLine, *configFile, *role); err != nil {
			return err
		}
	}

	logger, err := newLogger(os.Stderr, *logFormat, *verbose)
	if err != nil {
		return fmt.Errorf("invalid --log-format: %w", err)
	}
	log.Logger = logger

	ka, err := parseTCPKeepAlive(*tcpKeepAlive)
	if err != nil {
		return fmt.Errorf("invalid --tcp-keepalive: %w", err)
	}

	cfg := proxy.Config{
		NegotiationTimeout: *negotiationTimeout,
		KeepAlive:          ka,
		Logger:             logger,
	}

	dialCfg := dialer.Config{
		DialTimeout:        *dialTimeout,
		NegotiationTimeout: cfg.NegotiationTimeout,
		KeepAlive:          cfg.KeepAlive,
		UserTimeout:        *tcpUserTimeout,
	}

	g, ctx := errgroup.WithContext(context.Background())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var srv interface{ Serve(net.Listener) error }
	switch *role {
	case metrics.RoleAgent:
		if *listen == "" {
			*listen = defaultAgentListen
		}
		if *serverAddr == "" {
			return errors.New("agent: --server is required")
		}
		name := *serverName
		if name == "" {
			host, _, err := net.SplitHostPort(*serverAddr)
			if err != nil {
				return fmt.Errorf("invalid --server: %w", err)
			}
			name = host
		}

		tlsCfg, err := tunnel.LoadClientConfig(name, *caFile)
		if err != nil {
			return err
		}
		cfg.Dialer, err = dialer.NewTLSDialer(dialCfg, tlsCfg)
		if err != nil {
			return err
		}
		srv, err = proxy.NewAgentServer(ctx, cfg, *serverAddr)
		if err != nil {
			return err
		}

	case metrics.RoleServer:
		if *listen == "" {
			*listen = defaultServerListen
		}
		tlsCfg, err := tunnel.LoadServerConfig(tunnel.Credential{
			CertFile:       *certFile,
			KeyFile:        *keyFile,
			PKCS12File:     *pkcs12File,
			PKCS12Password: *pkcs12Password,
		})
		if err != nil {
			return err
		}
		cfg.Dialer = dialer.NewDirectDialer(dialCfg)
		srv, err = proxy.NewTunnelServer(ctx, cfg, tlsCfg)
		if err != nil {
			return err
		}
	}

	if *debugListen != "" {
		http.Handle("/metrics", promhttp.Handler())
		debugSrv := &http.Server{Handler: http.DefaultServeMux} //nolint:gosec // Not concerned about timeouts on debug port.
		lc := net.ListenConfig{KeepAliveConfig: cfg.KeepAlive}
		debugLn, err := lc.Listen(ctx, "tcp", *debugListen)
		if err != nil {
			return fmt.Errorf("debug listen: %w", err)
		}
		context.AfterFunc(ctx, func() {
			_ = debugSrv.Close()
			_ = debugLn.Close()
		})

		g.Go(func() error {
			if err := debugSrv.Serve(debugLn); err != nil {
				return fmt.Errorf("debug serve: %w", err)
			}
			return nil
		})
		log.Info().Str("addr", *debugListen).Msg("debug listening")
	}

	ln, err := conn.ListenTCP(ctx, "tcp", *listen, conn.Options{
		KeepAlive:   cfg.KeepAlive,
		UserTimeout: *tcpUserTimeout,
	})
	if err != nil {
		return fmt.Errorf("%s listen: %w", *role, err)
	}
	context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && ctx.Err() == nil {
			return fmt.Errorf("%s serve: %w", *role, err)
		}
		return nil
	})

	ev := log.Info().Str("role", *role).Str("addr", *listen)
	if *role == metrics.RoleAgent {
		ev = ev.Str("server", *serverAddr)
	}
	ev.Msg("listening")

	err = g.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	log.Info().Msg("shutting down")
	return err
}

func newLogger(w io.Writer, format string, verbose bool) (zerolog.Logger, error) {
	switch format {
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	case "json":
	default:
		return zerolog.Logger{}, fmt.Errorf("unknown format %q", format)
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

func parseTCPKeepAlive(s string) (net.KeepAliveConfig, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return net.KeepAliveConfig{}, errors.New("empty")
	}
	if s == "on" {
		return net.KeepAliveConfig{Enable: true}, nil
	}
	if s == "off" {
		return net.KeepAliveConfig{Enable: false}, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return net.KeepAliveConfig{}, errors.New("expected on|off|keepidle:keepintvl:keepcnt")
	}
	keepIdle, err := parsePositiveSeconds(parts[0])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepidle: %w", err)
	}
	keepIntvl, err := parsePositiveSeconds(parts[1])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepintvl: %w", err)
	}
	keepCnt, err := parsePositiveInt(parts[2])
	if err != nil {
		return net.KeepAliveConfig{}, fmt.Errorf("keepcnt: %w", err)
	}

	return net.KeepAliveConfig{
		Enable:   true,
		Idle:     keepIdle,
		Interval: keepIntvl,
		Count:    keepCnt,
	}, nil
}

func parsePositiveSeconds(s string) (time.Duration, error) {
	n, err := parsePositiveInt(s)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("must be > 0")
	}
	return n, nil
}
