package domainconfig

import (
	"context"
	"sync"

	"github.com/kessotolo/ConversationalCommerce-sub002/internal/customdomain/models"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded domain store for tests and single-node
// development. Records are cloned on the way in and out so callers can
// only mutate through Execute.
type InMemory struct {
	mu     sync.RWMutex
	byName map[domain.DomainName]*models.DomainConfig
	byID   map[domain.DomainID]domain.DomainName
}

func NewInMemory() *InMemory {
	return &InMemory{
		byName: make(map[domain.DomainName]*models.DomainConfig),
		byID:   make(map[domain.DomainID]domain.DomainName),
	}
}

// Create inserts a new domain. Returns sentinel.ErrConflict when the name
// is already registered; released rows keep their name reserved.
func (s *InMemory) Create(_ context.Context, d *models.DomainConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[d.Domain]; exists {
		return sentinel.ErrConflict
	}
	s.byName[d.Domain] = clone(d)
	s.byID[d.ID] = d.Domain
	return nil
}

func (s *InMemory) FindByDomain(_ context.Context, name domain.DomainName) (*models.DomainConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.byName[name]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(d), nil
}

func (s *InMemory) FindByID(_ context.Context, domainID domain.DomainID) (*models.DomainConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name, ok := s.byID[domainID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.byName[name]), nil
}

// FindByTenantAndDomain enforces tenant scoping: a domain registered by
// another tenant is indistinguishable from an absent one.
func (s *InMemory) FindByTenantAndDomain(_ context.Context, tenantID domain.TenantID, name domain.DomainName) (*models.DomainConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.byName[name]
	if !ok || d.TenantID != tenantID {
		return nil, sentinel.ErrNotFound
	}
	return clone(d), nil
}

func (s *InMemory) ListByTenant(_ context.Context, tenantID domain.TenantID) ([]*models.DomainConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.DomainConfig
	for _, d := range s.byName {
		if d.TenantID == tenantID {
			out = append(out, clone(d))
		}
	}
	return out, nil
}

// ListActive returns every domain the background sweep should visit:
// all records that have not been released.
func (s *InMemory) ListActive(_ context.Context) ([]*models.DomainConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.DomainConfig
	for _, d := range s.byName {
		if d.Status != models.DomainStatusReleased {
			out = append(out, clone(d))
		}
	}
	return out, nil
}

// Execute performs an atomic read-validate-mutate on one domain. The lock
// is held across both callbacks so concurrent writers always observe each
// other's committed state, which is what lets transition guards reject
// stale writes.
func (s *InMemory) Execute(_ context.Context, name domain.DomainName, validate func(*models.DomainConfig) error, mutate func(*models.DomainConfig)) (*models.DomainConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.byName[name]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(d); err != nil {
		return nil, err
	}
	mutate(d)
	d.Version++
	return clone(d), nil
}

func clone(d *models.DomainConfig) *models.DomainConfig {
	cp := *d
	if d.VerifiedAt != nil {
		t := *d.VerifiedAt
		cp.VerifiedAt = &t
	}
	return &cp
}
