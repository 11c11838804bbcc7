package models

import (
	"time"
)

// Check names used as keys in VerificationResult.Checks. The set is part
// of the API surface; dashboards and the storefront onboarding UI key off
// these strings.
const (
	CheckTXTRecord   = "txt_record"
	CheckCNAMERecord = "cname_record"
	CheckReachable   = "reachable"
)

// VerificationResult is the per-attempt outcome of an ownership check. It
// is ephemeral: the orchestrator consumes it to decide a status transition
// and hands it to the caller, but it is never persisted on its own.
//
// A probe that errored (DNS servfail, socket timeout) is recorded as a
// false check, indistinguishable from a cleanly absent record. Callers in
// the request path and the sweep both rely on Verify never failing.
type VerificationResult struct {
	Domain string `json:"domain"`
	// Checks maps check name → pass. Always contains all three keys.
	Checks   map[string]bool `json:"checks"`
	Verified bool            `json:"verified"`
	// NextSteps names the exact record value(s) still missing so the
	// merchant can self-serve the fix. Empty when Verified.
	NextSteps []string  `json:"next_steps"`
	CheckedAt time.Time `json:"checked_at"`
}

// NewVerificationResult folds the three check outcomes into a result.
// For each failed check it appends the remediation hint:
//   - txt_record: the exact expected TXT value (token round-trips intact)
//   - cname_record: "Add CNAME record pointing to: <target>"
//   - reachable: a generic reachability hint
func NewVerificationResult(d *DomainConfig, txtOK, cnameOK, reachable bool, now time.Time) *VerificationResult {
	result := &VerificationResult{
		Domain: d.Domain.String(),
		Checks: map[string]bool{
			CheckTXTRecord:   txtOK,
			CheckCNAMERecord: cnameOK,
			CheckReachable:   reachable,
		},
		Verified:  txtOK && cnameOK && reachable,
		NextSteps: []string{},
		CheckedAt: now,
	}
	if !txtOK {
		result.NextSteps = append(result.NextSteps, d.ExpectedTXTRecord())
	}
	if !cnameOK {
		result.NextSteps = append(result.NextSteps, "Add CNAME record pointing to: "+d.CNAMETarget.String())
	}
	if !reachable {
		result.NextSteps = append(result.NextSteps, "Ensure the domain responds to HTTP requests with a status below 500")
	}
	return result
}

// Instructions is the setup payload returned to the registering caller.
// The shape is shown verbatim to end users during onboarding, so the field
// set and key names are stable.
type Instructions struct {
	TXTRecord    string   `json:"txt_record"`
	CNAMERecord  string   `json:"cname_record"`
	Instructions []string `json:"instructions"`
}

// SetupInstructions builds the DNS setup steps for the domain.
func (d *DomainConfig) SetupInstructions() *Instructions {
	return &Instructions{
		TXTRecord:   d.ExpectedTXTRecord(),
		CNAMERecord: d.CNAMETarget.String(),
		Instructions: []string{
			"Add a TXT record on " + d.Domain.String() + " with the value " + d.ExpectedTXTRecord(),
			"Add a CNAME record pointing " + d.Domain.String() + " to " + d.CNAMETarget.String(),
			"Wait for DNS propagation (up to 48 hours), then request verification",
		},
	}
}
