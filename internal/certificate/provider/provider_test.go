package provider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kessotolo/ConversationalCommerce-sub002/internal/certificate/provider"
	customdomain "github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
	dErrors "github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain-errors"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/platform/circuit"
)

type issuePayload struct {
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func TestPlatformManagedIssue(t *testing.T) {
	issued := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	expires := issued.Add(90 * 24 * time.Hour)
	name := domain.DomainName("shop.example.com")

	t.Run("successful issuance", func(t *testing.T) {
		var gotBody struct {
			Domain string `json:"domain"`
		}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/v1/certificates", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(issuePayload{IssuedAt: issued, ExpiresAt: expires})
		}))
		defer srv.Close()

		p := provider.NewPlatformManaged(srv.URL)
		got, err := p.Issue(context.Background(), name)
		require.NoError(t, err)
		assert.Equal(t, "shop.example.com", gotBody.Domain)
		assert.True(t, got.IssuedAt.Equal(issued))
		assert.True(t, got.ExpiresAt.Equal(expires))
	})

	t.Run("rejection carries the CA detail", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "domain not eligible", http.StatusUnprocessableEntity)
		}))
		defer srv.Close()

		p := provider.NewPlatformManaged(srv.URL)
		_, err := p.Issue(context.Background(), name)
		var perr *provider.ProvisioningError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, customdomain.SSLProviderPlatformManaged, perr.Provider)
		assert.Contains(t, perr.Error(), "422")
		assert.Contains(t, perr.Error(), "domain not eligible")
	})

	t.Run("invalid validity window is rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(issuePayload{IssuedAt: expires, ExpiresAt: issued})
		}))
		defer srv.Close()

		p := provider.NewPlatformManaged(srv.URL)
		_, err := p.Issue(context.Background(), name)
		var perr *provider.ProvisioningError
		require.ErrorAs(t, err, &perr)
		assert.Contains(t, perr.Reason, "validity window")
	})
}

func TestPlatformManagedBreaker(t *testing.T) {
	name := domain.DomainName("shop.example.com")

	t.Run("opens after consecutive server failures and fails fast", func(t *testing.T) {
		var hits atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		breaker := circuit.New("test-ca", circuit.WithFailureThreshold(3))
		p := provider.NewPlatformManaged(srv.URL, provider.WithPlatformBreaker(breaker))

		for i := 0; i < 3; i++ {
			_, err := p.Issue(context.Background(), name)
			require.Error(t, err)
		}
		require.True(t, breaker.IsOpen())

		_, err := p.Issue(context.Background(), name)
		var perr *provider.ProvisioningError
		require.ErrorAs(t, err, &perr)
		assert.Contains(t, perr.Reason, "circuit is open")
		assert.Equal(t, int64(3), hits.Load(), "open breaker must not reach the CA")
	})

	t.Run("client rejections do not trip the breaker", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		breaker := circuit.New("test-ca", circuit.WithFailureThreshold(2))
		p := provider.NewPlatformManaged(srv.URL, provider.WithPlatformBreaker(breaker))

		for i := 0; i < 5; i++ {
			_, err := p.Issue(context.Background(), name)
			require.Error(t, err)
		}
		assert.False(t, breaker.IsOpen())
	})
}

func TestRegistry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(issuePayload{
			IssuedAt:  time.Now(),
			ExpiresAt: time.Now().Add(time.Hour),
		})
	}))
	defer srv.Close()

	reg := provider.NewRegistry()

	_, err := reg.Get(customdomain.SSLProviderACME)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

	p := provider.NewPlatformManaged(srv.URL)
	reg.Register(customdomain.SSLProviderPlatformManaged, p)

	got, err := reg.Get(customdomain.SSLProviderPlatformManaged)
	require.NoError(t, err)
	assert.Same(t, p, got)
}
