package tunnel

import (
	"context"
	"crypto/tls"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
	"software.sslmate.com/src/go-pkcs12"

	"github.com/die-net/tlsocks/internal/testutil"
)

func TestClientServerHandshake(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cert := testutil.NewCertificate(t)
	certFile, keyFile := cert.WriteFiles(t)

	serverCfg, err := LoadServerConfig(Credential{CertFile: certFile, KeyFile: keyFile})
	if err != nil {
		t.Fatal(err)
	}

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(caFile, cert.CertPEM, 0o600); err != nil {
		t.Fatal(err)
	}
	clientCfg, err := LoadClientConfig(testutil.TestServerName, caFile)
	if err != nil {
		t.Fatal(err)
	}

	clientConn, serverConn := testutil.TCPPipe(t)
	defer clientConn.Close()
	defer serverConn.Close()

	g := errgroup.Group{}
	g.Go(func() error {
		tc, err := Server(ctx, serverConn, serverCfg)
		if err != nil {
			return err
		}
		buf := make([]byte, 5)
		if _, err := tc.Read(buf); err != nil {
			return err
		}
		_, err = tc.Write(buf)
		return err
	})

	tc, err := Client(ctx, clientConn, clientCfg)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEcho(t, tc, tc, []byte("hello"))

	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}

func TestClientRejectsWrongServerName(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cert := testutil.NewCertificate(t)
	clientCfg := cert.ClientConfig(t)
	clientCfg.ServerName = "other.test"

	clientConn, serverConn := testutil.TCPPipe(t)
	defer clientConn.Close()

	errc := make(chan error, 1)
	go func() {
		defer serverConn.Close()
		_, err := Server(ctx, serverConn, cert.ServerConfig())
		errc <- err
	}()

	_, err := Client(ctx, clientConn, clientCfg)
	if !errors.Is(err, ErrHandshake) {
		t.Fatalf("client err=%v want ErrHandshake", err)
	}
	_ = clientConn.Close()

	if err := <-errc; !errors.Is(err, ErrHandshake) {
		t.Fatalf("server err=%v want ErrHandshake", err)
	}
}

func TestServerRejectsPlaintext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cert := testutil.NewCertificate(t)

	clientConn, serverConn := testutil.TCPPipe(t)
	defer clientConn.Close()
	defer serverConn.Close()

	go func() { _, _ = clientConn.Write([]byte{5, 1, 0, 0, 0, 0, 0, 0, 0, 0}) }()

	if _, err := Server(ctx, serverConn, cert.ServerConfig()); !errors.Is(err, ErrHandshake) {
		t.Fatalf("err=%v want ErrHandshake", err)
	}
}

func TestLoadServerConfig(t *testing.T) {
	cert := testutil.NewCertificate(t)
	certFile, keyFile := cert.WriteFiles(t)

	junk := filepath.Join(t.TempDir(), "junk.p12")
	if err := os.WriteFile(junk, []byte("not pkcs12"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		cred    Credential
		wantErr bool
	}{
		{name: "pem pair", cred: Credential{CertFile: certFile, KeyFile: keyFile}},
		{name: "missing everything", cred: Credential{}, wantErr: true},
		{name: "cert without key", cred: Credential{CertFile: certFile}, wantErr: true},
		{name: "key mismatch", cred: Credential{CertFile: keyFile, KeyFile: certFile}, wantErr: true},
		{name: "both kinds", cred: Credential{CertFile: certFile, KeyFile: keyFile, PKCS12File: junk}, wantErr: true},
		{name: "bad pkcs12", cred: Credential{PKCS12File: junk, PKCS12Password: "123456"}, wantErr: true},
		{name: "missing pkcs12", cred: Credential{PKCS12File: filepath.Join(t.TempDir(), "nope.p12")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadServerConfig(tt.cred)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(cfg.Certificates) != 1 {
				t.Fatalf("got %d certificates", len(cfg.Certificates))
			}
			if cfg.MinVersion != tls.VersionTLS12 {
				t.Fatalf("MinVersion %x", cfg.MinVersion)
			}
		})
	}
}

func TestLoadClientConfig(t *testing.T) {
	if _, err := LoadClientConfig("", ""); err == nil {
		t.Fatal("expected error for empty server name")
	}

	cfg, err := LoadClientConfig("example.com", "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RootCAs != nil {
		t.Fatal("expected system roots")
	}
	if cfg.ServerName != "example.com" {
		t.Fatalf("ServerName %q", cfg.ServerName)
	}

	empty := filepath.Join(t.TempDir(), "empty.pem")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadClientConfig("example.com", empty); err == nil {
		t.Fatal("expected error for ca file without certificates")
	}
}

func writePKCS12(t *testing.T, enc *pkcs12.Encoder, cert testutil.Certificate, password string) string {
	t.Helper()

	data, err := enc.Encode(cert.Key, cert.Leaf, nil, password)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "ssl.pfx")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadServerConfigPKCS12(t *testing.T) {
	encoders := []struct {
		name string
		enc  *pkcs12.Encoder
	}{
		{name: "modern", enc: pkcs12.Modern},
		{name: "legacy", enc: pkcs12.LegacyDES},
	}

	for _, tt := range encoders {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			cert := testutil.NewCertificate(t)
			path := writePKCS12(t, tt.enc, cert, "123456")

			if _, err := LoadServerConfig(Credential{PKCS12File: path, PKCS12Password: "wrong"}); err == nil {
				t.Fatal("expected error for wrong password")
			}

			serverCfg, err := LoadServerConfig(Credential{PKCS12File: path, PKCS12Password: "123456"})
			if err != nil {
				t.Fatal(err)
			}

			clientConn, serverConn := testutil.TCPPipe(t)

			g := errgroup.Group{}
			g.Go(func() error {
				tc, err := Server(ctx, serverConn, serverCfg)
				if err != nil {
					return err
				}
				buf := make([]byte, 5)
				if _, err := tc.Read(buf); err != nil {
					return err
				}
				_, err = tc.Write(buf)
				return err
			})

			tc, err := Client(ctx, clientConn, cert.ClientConfig(t))
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEcho(t, tc, tc, []byte("hello"))

			if err := g.Wait(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestParsePKCS12KeyMismatch(t *testing.T) {
	cert := testutil.NewCertificate(t)
	other := testutil.NewCertificate(t)

	data, err := pkcs12.Modern.Encode(other.Key, cert.Leaf, nil, "123456")
	if err != nil {
		t.Skipf("encoder refuses mismatched key: %v", err)
	}
	if _, err := ParsePKCS12(data, "123456"); err == nil {
		t.Fatal("expected error for key not matching certificate")
	}
}
