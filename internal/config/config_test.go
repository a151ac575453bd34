package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tlsocks.ini")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func newFlagSet() (*pflag.FlagSet, *string, *string, *time.Duration) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	listen := fs.String("listen", "0.0.0.0:8080", "")
	server := fs.String("server", "", "")
	timeout := fs.Duration("dial-timeout", 10*time.Second, "")
	return fs, listen, server, timeout
}

func TestApply(t *testing.T) {
	path := writeConfig(t, `
dial_timeout = 3s
server = default.example:8000

[agent]
server = agent.example:8000

[server]
listen = 0.0.0.0:8000
`)

	fs, listen, server, timeout := newFlagSet()
	if err := fs.Parse([]string{"--listen", "127.0.0.1:1080"}); err != nil {
		t.Fatal(err)
	}

	if err := Apply(fs, path, "agent"); err != nil {
		t.Fatal(err)
	}

	if *listen != "127.0.0.1:1080" {
		t.Fatalf("listen %q: command line must win", *listen)
	}
	if *server != "agent.example:8000" {
		t.Fatalf("server %q: role section must override default section", *server)
	}
	if *timeout != 3*time.Second {
		t.Fatalf("dial-timeout %v", *timeout)
	}
}

func TestApplyOtherRoleSectionIgnored(t *testing.T) {
	path := writeConfig(t, `
[server]
listen = 0.0.0.0:8000
`)

	fs, listen, _, _ := newFlagSet()
	if err := Apply(fs, path, "agent"); err != nil {
		t.Fatal(err)
	}
	if *listen != "0.0.0.0:8080" {
		t.Fatalf("listen %q", *listen)
	}
}

func TestApplyErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown key", body: "bogus = 1\n"},
		{name: "bad value", body: "dial-timeout = soon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, _, _, _ := newFlagSet()
			if err := Apply(fs, writeConfig(t, tt.body), "agent"); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	fs, _, _, _ := newFlagSet()
	if err := Apply(fs, filepath.Join(t.TempDir(), "missing.ini"), "agent"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
