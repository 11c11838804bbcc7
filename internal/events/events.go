// Package events defines the domain lifecycle events emitted by the
// custom-domain subsystem and the publishers that deliver them.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/domain"
)

// Type names a domain lifecycle event.
type Type string

const (
	TypeDomainRegistered Type = "domain.registered"
	TypeDomainVerified   Type = "domain.verified"
	TypeDomainSuspended  Type = "domain.suspended"
	TypeDomainReinstated Type = "domain.reinstated"
	TypeDomainReleased   Type = "domain.released"
	TypeDomainFailed     Type = "domain.failed"

	TypeCertificateIssued  Type = "certificate.issued"
	TypeCertificateRenewed Type = "certificate.renewed"
	TypeCertificateFailed  Type = "certificate.failed"
	TypeCertificateExpired Type = "certificate.expired"
)

// Event is emitted from domain logic to capture lifecycle changes. Keep it
// transport-agnostic so sinks (Kafka, in-memory, log) can fan out.
type Event struct {
	ID         string            `json:"id"`
	Type       Type              `json:"type"`
	TenantID   domain.TenantID   `json:"tenant_id"`
	Domain     string            `json:"domain"`
	OccurredAt time.Time         `json:"occurred_at"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// New builds an event with a fresh ID. OccurredAt is stamped by the
// publisher when left zero.
func New(eventType Type, tenantID domain.TenantID, domainName string) Event {
	return Event{
		ID:       uuid.NewString(),
		Type:     eventType,
		TenantID: tenantID,
		Domain:   domainName,
	}
}

// WithMetadata attaches a metadata entry, allocating the map lazily.
func (e Event) WithMetadata(key, value string) Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string, 1)
	}
	e.Metadata[key] = value
	return e
}
