package models

import (
	"fmt"

	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/platform/sentinel"
)

// DomainStatus is the lifecycle state of a custom domain.
//
// The happy path is:
//
//	pending_verification → verified → ssl_pending → ssl_active
//
// Side branches: ssl_failed (issuance error, retryable), suspended
// (administrative hold, reachable from any non-released state), failed
// (verification abandoned), expired (certificate lapsed). released is the
// sole hard-terminal state and replaces deletion.
type DomainStatus string

const (
	DomainStatusPendingVerification DomainStatus = "pending_verification"
	DomainStatusVerified            DomainStatus = "verified"
	DomainStatusSSLPending          DomainStatus = "ssl_pending"
	DomainStatusSSLActive           DomainStatus = "ssl_active"
	DomainStatusSSLFailed           DomainStatus = "ssl_failed"
	DomainStatusSuspended           DomainStatus = "suspended"
	DomainStatusFailed              DomainStatus = "failed"
	DomainStatusExpired             DomainStatus = "expired"
	DomainStatusReleased            DomainStatus = "released"
)

// allowedTransitions is the single source of truth for the state machine.
// Every mutation path (request handlers, sweep loop, renewal timers) goes
// through CanTransitionTo, so a write that would regress or clobber a state
// is rejected in exactly one place.
//
// suspended and failed exit only through explicit operator action
// (reinstate, re-register); expired exits only through renewal. Automated
// writers never move a domain out of those states.
var allowedTransitions = map[DomainStatus][]DomainStatus{
	DomainStatusPendingVerification: {DomainStatusVerified, DomainStatusSuspended, DomainStatusFailed, DomainStatusReleased},
	DomainStatusVerified:            {DomainStatusSSLPending, DomainStatusSuspended, DomainStatusReleased},
	DomainStatusSSLPending:          {DomainStatusSSLActive, DomainStatusSSLFailed, DomainStatusSuspended, DomainStatusReleased},
	DomainStatusSSLActive:           {DomainStatusSSLPending, DomainStatusExpired, DomainStatusSuspended, DomainStatusReleased},
	DomainStatusSSLFailed:           {DomainStatusSSLPending, DomainStatusSuspended, DomainStatusReleased},
	DomainStatusSuspended:           {DomainStatusPendingVerification, DomainStatusReleased},
	DomainStatusFailed:              {DomainStatusPendingVerification, DomainStatusReleased},
	DomainStatusExpired:             {DomainStatusSSLPending, DomainStatusSuspended, DomainStatusReleased},
	DomainStatusReleased:            {},
}

// CanTransitionTo reports whether the state machine permits moving from s
// to target. A transition to the current state is never permitted; callers
// that want idempotent re-application must short-circuit before mutating.
func (s DomainStatus) CanTransitionTo(target DomainStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// MustTransitionTo returns sentinel.ErrInvalidState (wrapped with both
// states for logs) when the transition is not permitted.
func (s DomainStatus) MustTransitionTo(target DomainStatus) error {
	if !s.CanTransitionTo(target) {
		return fmt.Errorf("%w: cannot transition domain from %s to %s", sentinel.ErrInvalidState, s, target)
	}
	return nil
}

// Valid reports whether s is a member of the closed enum. Statuses arrive
// from storage and from API payloads, so unknown values must be caught
// before they reach the transition table.
func (s DomainStatus) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// AdministrativelyHeld reports whether automated writers (verification,
// sweep, renewal) must leave the domain alone. Suspension is an operator
// decision and release is permanent; neither may be clobbered by a
// concurrent background result.
func (s DomainStatus) AdministrativelyHeld() bool {
	return s == DomainStatusSuspended || s == DomainStatusReleased
}

// VerificationEligible reports whether running ownership verification can
// have any effect on the domain. Held, abandoned, and lapsed domains exit
// their states only through explicit operations, never through a routine
// verification pass.
func (s DomainStatus) VerificationEligible() bool {
	switch s {
	case DomainStatusPendingVerification, DomainStatusVerified,
		DomainStatusSSLPending, DomainStatusSSLActive, DomainStatusSSLFailed:
		return true
	default:
		return false
	}
}

// Verified reports whether domain ownership has been proven at some point
// in the current registration. SSL states imply a prior successful
// verification.
func (s DomainStatus) Verified() bool {
	switch s {
	case DomainStatusVerified, DomainStatusSSLPending, DomainStatusSSLActive,
		DomainStatusSSLFailed, DomainStatusExpired:
		return true
	default:
		return false
	}
}

func (s DomainStatus) String() string {
	return string(s)
}
