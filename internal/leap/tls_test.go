package leap

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// testPKI is a throwaway CA with a bridge certificate and a client
// certificate signed by it.
type testPKI struct {
	caCert   *x509.Certificate
	caKey    *ecdsa.PrivateKey
	caPEM    []byte
	server   tls.Certificate
	keyfile  string
	certfile string
	cafile   string
}

func newTestPKI(t *testing.T, dir string) *testPKI {
	t.Helper()

	caKey := generateKey(t)
	caTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "caseta-test-ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTmpl, caTmpl, &caKey.PublicKey, caKey)
	if err != nil {
		t.Fatalf("creating CA: %v", err)
	}
	caCert, err := x509.ParseCertificate(caDER)
	if err != nil {
		t.Fatalf("parsing CA: %v", err)
	}

	p := &testPKI{
		caCert: caCert,
		caKey:  caKey,
		caPEM:  pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: caDER}),
	}

	// The bridge certificate names the bridge serial, not its address.
	serverCertPEM, serverKeyPEM := p.issue(t, 2, "012345ab", x509.ExtKeyUsageServerAuth)
	p.server, err = tls.X509KeyPair(serverCertPEM, serverKeyPEM)
	if err != nil {
		t.Fatalf("loading server pair: %v", err)
	}

	clientCertPEM, clientKeyPEM := p.issue(t, 3, "graylogic", x509.ExtKeyUsageClientAuth)
	p.keyfile = writeFile(t, dir, "caseta.key", clientKeyPEM)
	p.certfile = writeFile(t, dir, "caseta.crt", clientCertPEM)
	p.cafile = writeFile(t, dir, "caseta-bridge.crt", p.caPEM)
	return p
}

func (p *testPKI) issue(t *testing.T, serial int64, cn string, usage x509.ExtKeyUsage) (certPEM, keyPEM []byte) {
	t.Helper()

	key := generateKey(t)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{usage},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, p.caCert, &key.PublicKey, p.caKey)
	if err != nil {
		t.Fatalf("issuing %s: %v", cn, err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshalling key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
}

func (p *testPKI) serverConfig() *tls.Config {
	pool := x509.NewCertPool()
	pool.AddCert(p.caCert)
	return &tls.Config{
		Certificates: []tls.Certificate{p.server},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    pool,
		MinVersion:   tls.VersionTLS12,
	}
}

func generateKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	return key
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestNewTLS_ConnectsWithBridgeCA(t *testing.T) {
	pki := newTestPKI(t, t.TempDir())
	f := newFakeBridge()
	f.tlsConfig = pki.serverConfig()

	s, err := NewTLS("192.168.1.20", pki.keyfile, pki.certfile, pki.cafile, WithDialer(f.dial))
	if err != nil {
		t.Fatalf("NewTLS() error = %v", err)
	}
	defer s.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !s.IsConnected() {
		t.Error("IsConnected() = false")
	}
	if len(s.Devices()) != 5 {
		t.Errorf("Devices() = %d, want 5", len(s.Devices()))
	}
}

func TestNewTLS_RejectsUnknownBridge(t *testing.T) {
	dir := t.TempDir()
	pki := newTestPKI(t, dir)
	other := newTestPKI(t, t.TempDir())

	f := newFakeBridge()
	f.tlsConfig = pki.serverConfig()

	// Trust a different CA than the one that signed the bridge.
	s, err := NewTLS("192.168.1.20", pki.keyfile, pki.certfile, other.cafile, WithDialer(f.dial))
	if err != nil {
		t.Fatalf("NewTLS() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = s.Connect(ctx)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
	if s.IsConnected() {
		t.Error("IsConnected() = true after rejected handshake")
	}
}

func TestNewTLS_InvalidFiles(t *testing.T) {
	dir := t.TempDir()
	pki := newTestPKI(t, dir)
	garbage := writeFile(t, dir, "garbage.pem", []byte("not a certificate"))
	missing := filepath.Join(dir, "missing.pem")

	tests := []struct {
		name     string
		keyfile  string
		certfile string
		cafile   string
	}{
		{"missing keyfile", missing, pki.certfile, pki.cafile},
		{"missing certfile", pki.keyfile, missing, pki.cafile},
		{"missing ca", pki.keyfile, pki.certfile, missing},
		{"garbage key", garbage, pki.certfile, pki.cafile},
		{"garbage ca", pki.keyfile, pki.certfile, garbage},
		{"key and cert swapped", pki.certfile, pki.keyfile, pki.cafile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewTLS("192.168.1.20", tt.keyfile, tt.certfile, tt.cafile)
			if !errors.Is(err, ErrInvalidCertificate) {
				t.Errorf("NewTLS() error = %v, want ErrInvalidCertificate", err)
			}
			if s != nil {
				t.Error("NewTLS() returned a bridge alongside an error")
			}
		})
	}
}

func TestLoadTLSConfig(t *testing.T) {
	pki := newTestPKI(t, t.TempDir())

	cfg, err := loadTLSConfig(pki.keyfile, pki.certfile, pki.cafile)
	if err != nil {
		t.Fatalf("loadTLSConfig() error = %v", err)
	}
	if cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %x, want TLS 1.2", cfg.MinVersion)
	}
	if len(cfg.Certificates) != 1 {
		t.Errorf("Certificates = %d, want 1", len(cfg.Certificates))
	}
	if cfg.VerifyConnection == nil {
		t.Error("VerifyConnection not set")
	}
	if err := cfg.VerifyConnection(tls.ConnectionState{}); err == nil {
		t.Error("VerifyConnection() accepted a connection without certificates")
	}
}
