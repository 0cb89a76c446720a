package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generateSelfSignedPair writes a fresh self-signed cert/key PEM pair to
// dir and returns their paths.
func generateSelfSignedPair(t *testing.T, dir string, serial int64) (certPath, keyPath string) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject:      pkix.Name{CommonName: "gobite-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")

	certOut, err := os.Create(certPath)
	require.NoError(t, err)
	require.NoError(t, pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: der}))
	require.NoError(t, certOut.Close())

	keyOut, err := os.Create(keyPath)
	require.NoError(t, err)
	require.NoError(t, pem.Encode(keyOut, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}))
	require.NoError(t, keyOut.Close())

	return certPath, keyPath
}

func TestLoadTLSMaterialServesLoadedCertificate(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := generateSelfSignedPair(t, dir, 1)

	mat, err := LoadTLSMaterial(certPath, keyPath, false, nil)
	require.NoError(t, err)
	defer mat.Close()

	cert, err := mat.GetCertificate(nil)
	require.NoError(t, err)
	assert.NotNil(t, cert.Leaf)
}

func TestLoadTLSMaterialRejectsMissingFiles(t *testing.T) {
	_, err := LoadTLSMaterial("/does/not/exist.pem", "/does/not/exist-key.pem", false, nil)
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestTLSMaterialHotReloadSwapsCertificate(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := generateSelfSignedPair(t, dir, 1)

	logger, err := NewLogger("error", "text")
	require.NoError(t, err)

	mat, err := LoadTLSMaterial(certPath, keyPath, true, logger)
	require.NoError(t, err)
	defer mat.Close()

	before, _ := mat.GetCertificate(nil)

	generateSelfSignedPair(t, dir, 2)

	require.Eventually(t, func() bool {
		after, _ := mat.GetCertificate(nil)
		return after.Leaf.SerialNumber.Cmp(before.Leaf.SerialNumber) != 0
	}, 3*time.Second, 50*time.Millisecond)
}
