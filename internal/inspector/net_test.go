package inspector

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyDNSError(t *testing.T) {
	t.Run("nxdomain reads as missing record", func(t *testing.T) {
		err := classifyDNSError("TXT", "shop.example.com", &net.DNSError{
			Err:        "no such host",
			Name:       "shop.example.com",
			IsNotFound: true,
		})
		assert.Contains(t, err.Error(), "no TXT record found for shop.example.com")
	})

	t.Run("timeout reads as temporary", func(t *testing.T) {
		err := classifyDNSError("CNAME", "shop.example.com", &net.DNSError{
			Err:       "i/o timeout",
			Name:      "shop.example.com",
			IsTimeout: true,
		})
		assert.Contains(t, err.Error(), "temporary failure resolving CNAME record")
	})

	t.Run("other errors keep generic wording", func(t *testing.T) {
		err := classifyDNSError("A", "shop.example.com", &net.DNSError{
			Err:  "server misbehaving",
			Name: "shop.example.com",
		})
		assert.Contains(t, err.Error(), "resolve A record for shop.example.com")
	})
}

func TestCertificateInfo_ExpiryWindows(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	cert := &CertificateInfo{NotAfter: now.Add(10 * 24 * time.Hour)}
	assert.True(t, cert.ExpiresWithin(now, 30*24*time.Hour))
	assert.False(t, cert.Expired(now))

	lapsed := &CertificateInfo{NotAfter: now.Add(-time.Hour)}
	assert.True(t, lapsed.Expired(now))
	assert.True(t, lapsed.ExpiresWithin(now, time.Minute))

	fresh := &CertificateInfo{NotAfter: now.Add(90 * 24 * time.Hour)}
	assert.False(t, fresh.ExpiresWithin(now, 30*24*time.Hour))
	assert.False(t, fresh.Expired(now))
}

func TestNewNetInspector_DefaultTimeout(t *testing.T) {
	n := NewNetInspector(0)
	assert.Equal(t, defaultProbeTimeout, n.timeout)

	n = NewNetInspector(3 * time.Second)
	assert.Equal(t, 3*time.Second, n.timeout)
}
