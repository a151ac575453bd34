// Package config reads optional ini files that supply values for
// command-line flags.
//
// Keys are flag names (underscores may stand in for dashes). Keys outside
// any section apply to every role; a section named after the role overrides
// them. Flags given explicitly on the command line always win.
//
//	pkcs12-password = 123456
//
//	[server]
//	listen = 0.0.0.0:8000
//	pkcs12-file = /etc/tlsocks/ssl.pfx
//
//	[agent]
//	server = tunnel.example.com:8000
package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	ini "gopkg.in/ini.v1"
)

// Apply loads the ini file at path and sets every flag in fs that was not
// changed on the command line.
func Apply(fs *pflag.FlagSet, path, section string) error {
	f, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}

	values := make(map[string]string)
	for _, name := range []string{ini.DefaultSection, section} {
		sec, err := f.GetSection(name)
		if err != nil {
			continue
		}
		for _, k := range sec.Keys() {
			values[strings.ReplaceAll(k.Name(), "_", "-")] = k.String()
		}
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		fl := fs.Lookup(name)
		if fl == nil {
			return fmt.Errorf("config %s: unknown key %q", path, name)
		}
		if fl.Changed {
			continue
		}
		if err := fs.Set(name, values[name]); err != nil {
			return fmt.Errorf("config %s: %s: %w", path, name, err)
		}
	}

	return nil
}
