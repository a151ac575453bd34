package tunnel

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"software.sslmate.com/src/go-pkcs12"
)

// Credential locates the server identity. Either CertFile and KeyFile (PEM)
// or PKCS12File (with optional PKCS12Password) must be set.
type Credential struct {
	CertFile string
	KeyFile  string

	PKCS12File     string
	PKCS12Password string
}

// LoadServerConfig loads the server identity and returns the TLS
// configuration shared by all tunnel connections.
func LoadServerConfig(cred Credential) (*tls.Config, error) {
	cert, err := loadCertificate(cred)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// LoadClientConfig returns the agent's TLS configuration. The server
// certificate is verified against serverName using the roots in caFile, or
// the system roots when caFile is empty.
func LoadClientConfig(serverName, caFile string) (*tls.Config, error) {
	if serverName == "" {
		return nil, errors.New("tls client: missing server name")
	}

	cfg := &tls.Config{
		ServerName:         serverName,
		MinVersion:         tls.VersionTLS12,
		ClientSessionCache: tls.NewLRUClientSessionCache(0),
	}

	if caFile != "" {
		data, err := os.ReadFile(caFile) //nolint:gosec // Path is from user config.
		if err != nil {
			return nil, fmt.Errorf("reading ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(data) {
			return nil, fmt.Errorf("ca file %s: no certificates found", caFile)
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}

func loadCertificate(cred Credential) (tls.Certificate, error) {
	switch {
	case cred.PKCS12File != "":
		if cred.CertFile != "" || cred.KeyFile != "" {
			return tls.Certificate{}, errors.New("tls server: use either a pkcs12 file or a cert/key pair, not both")
		}
		return LoadPKCS12(cred.PKCS12File, cred.PKCS12Password)
	case cred.CertFile != "" && cred.KeyFile != "":
		cert, err := tls.LoadX509KeyPair(cred.CertFile, cred.KeyFile)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("loading key pair: %w", err)
		}
		return cert, nil
	default:
		return tls.Certificate{}, errors.New("tls server: missing certificate (need cert and key files, or a pkcs12 file)")
	}
}

// LoadPKCS12 reads a PKCS#12 (.pfx/.p12) bundle holding one certificate
// chain and private key, decrypting it with password.
func LoadPKCS12(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is from user config.
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("reading pkcs12 file: %w", err)
	}
	return ParsePKCS12(data, password)
}

// ParsePKCS12 decodes a PKCS#12 bundle into a tls.Certificate. Both the
// legacy RC2/3DES encoding and the AES/SHA-256 encoding written by current
// OpenSSL are accepted. CA certificates in the bundle follow the leaf in the
// returned chain.
func ParsePKCS12(data []byte, password string) (tls.Certificate, error) {
	key, leaf, cas, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decoding pkcs12: %w", err)
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return tls.Certificate{}, fmt.Errorf("pkcs12: unsupported private key type %T", key)
	}
	pub, ok := signer.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !pub.Equal(leaf.PublicKey) {
		return tls.Certificate{}, errors.New("pkcs12: private key does not match certificate")
	}

	cert := tls.Certificate{
		Certificate: [][]byte{leaf.Raw},
		PrivateKey:  key,
		Leaf:        leaf,
	}
	for _, ca := range cas {
		cert.Certificate = append(cert.Certificate, ca.Raw)
	}
	return cert, nil
}
