package provider

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
)

func TestIssuedFromTLS(t *testing.T) {
	notBefore := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	notAfter := notBefore.Add(90 * 24 * time.Hour)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		DNSNames:     []string{"shop.example.com"},
	}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	t.Run("parses leaf from raw chain", func(t *testing.T) {
		issued, err := issuedFromTLS("shop.example.com", &tls.Certificate{Certificate: [][]byte{der}})
		require.NoError(t, err)
		assert.True(t, issued.IssuedAt.Equal(notBefore))
		assert.True(t, issued.ExpiresAt.Equal(notAfter))
	})

	t.Run("empty chain is a provisioning error", func(t *testing.T) {
		_, err := issuedFromTLS("shop.example.com", &tls.Certificate{})
		var perr *ProvisioningError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, domain.DomainName("shop.example.com"), perr.Domain)
	})
}

func TestRetryableACMEError(t *testing.T) {
	retryable := []error{
		errors.New("acme: rate limit exceeded for example.com"),
		errors.New("dial tcp: connection refused"),
		errors.New("acme: HTTP 503 Service Unavailable"),
		errors.New("context deadline exceeded (Client.Timeout exceeded)"),
	}
	for _, err := range retryable {
		assert.True(t, retryableACMEError(err), "expected retry for %v", err)
	}

	permanent := []error{
		nil,
		errors.New("acme: authorization failed: CAA record forbids issuance"),
		errors.New("acme: invalid order: domain not authorized"),
	}
	for _, err := range permanent {
		assert.False(t, retryableACMEError(err), "expected fail-fast for %v", err)
	}
}
