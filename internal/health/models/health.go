// Package models holds the health snapshot reported for a custom domain.
package models

import "time"

// DomainHealth is the best-effort health snapshot for one custom domain.
// It is ephemeral: recomputed on demand, cached for a short TTL, and never
// the system of record for domain state.
type DomainHealth struct {
	Domain    string `json:"domain"`
	IsHealthy bool   `json:"is_healthy"`

	DNSResolves    bool  `json:"dns_resolves"`
	HTTPStatus     int   `json:"http_status"`
	ResponseTimeMS int64 `json:"response_time_ms"`

	SSLValid     bool       `json:"ssl_valid"`
	SSLExpiresAt *time.Time `json:"ssl_expires_at,omitempty"`

	LastChecked time.Time `json:"last_checked"`

	// Issues lists every sub-check problem in the order the probes ran.
	// Always non-nil so the JSON shape stays stable.
	Issues []string `json:"issues"`
}

// AddIssue appends a problem description.
func (h *DomainHealth) AddIssue(issue string) {
	h.Issues = append(h.Issues, issue)
}

// HasIssues reports whether any sub-check recorded a problem.
func (h *DomainHealth) HasIssues() bool {
	return len(h.Issues) > 0
}

// Clone returns a deep copy so cached snapshots stay immutable.
func (h *DomainHealth) Clone() *DomainHealth {
	cp := *h
	cp.Issues = append([]string{}, h.Issues...)
	if h.SSLExpiresAt != nil {
		t := *h.SSLExpiresAt
		cp.SSLExpiresAt = &t
	}
	return &cp
}
