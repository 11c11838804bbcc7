package certificate

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kessotolo/ConversationalCommerce-sub002/internal/certificate/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded certificate store for tests and single-node
// development. Records are cloned on the way in and out.
type InMemory struct {
	mu    sync.RWMutex
	byID  map[domain.CertificateID]*models.SSLCertificate
	order []domain.CertificateID
}

func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[domain.CertificateID]*models.SSLCertificate)}
}

// Put records a freshly issued certificate, superseding the previous
// active record for the same domain in the same step.
func (s *InMemory) Put(_ context.Context, cert *models.SSLCertificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[cert.ID]; exists {
		return sentinel.ErrConflict
	}
	for _, existing := range s.byID {
		if existing.Domain == cert.Domain && existing.Status == models.CertificateStatusActive {
			existing.Supersede(cert.CreatedAt)
		}
	}
	s.byID[cert.ID] = cloneCert(cert)
	s.order = append(s.order, cert.ID)
	return nil
}

// GetActive returns the single active certificate for a domain.
func (s *InMemory) GetActive(_ context.Context, name domain.DomainName) (*models.SSLCertificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, cert := range s.byID {
		if cert.Domain == name && cert.Status == models.CertificateStatusActive {
			return cloneCert(cert), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// History returns every certificate ever issued for a domain, newest
// first.
func (s *InMemory) History(_ context.Context, name domain.DomainName) ([]*models.SSLCertificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.SSLCertificate
	for i := len(s.order) - 1; i >= 0; i-- {
		cert := s.byID[s.order[i]]
		if cert.Domain == name {
			out = append(out, cloneCert(cert))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IssuedAt.After(out[j].IssuedAt)
	})
	return out, nil
}

// ListActive returns all active certificates, soonest expiry first. The
// renewal scheduler uses it to re-arm timers after a restart.
func (s *InMemory) ListActive(_ context.Context) ([]*models.SSLCertificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.SSLCertificate
	for _, cert := range s.byID {
		if cert.Status == models.CertificateStatusActive {
			out = append(out, cloneCert(cert))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExpiresAt.Before(out[j].ExpiresAt)
	})
	return out, nil
}

// ListExpiring returns active certificates whose expiry is at or before
// the cutoff. The sweep marks them expired when renewal never happened.
func (s *InMemory) ListExpiring(_ context.Context, cutoff time.Time) ([]*models.SSLCertificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.SSLCertificate
	for _, cert := range s.byID {
		if cert.Status == models.CertificateStatusActive && !cert.ExpiresAt.After(cutoff) {
			out = append(out, cloneCert(cert))
		}
	}
	return out, nil
}

// MarkExpired moves one certificate record to the expired state.
func (s *InMemory) MarkExpired(_ context.Context, id domain.CertificateID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cert, ok := s.byID[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	cert.MarkExpired(now)
	return nil
}

func cloneCert(c *models.SSLCertificate) *models.SSLCertificate {
	cp := *c
	return &cp
}
