// Package requestcontext carries request-scoped values between the HTTP
// middleware that sets them and the services that read them. It stays free
// of net/http so the sweeper, the debouncer, and service tests can use the
// same accessors without importing transport code.
//
// The request time deserves a note: middleware pins it once per request, and
// every timestamp written during that request (verified_at, updated_at,
// certificate issue times) reads it through Now. Tests inject a fixed clock
// the same way:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

type (
	adminSubjectKey struct{}
	requestIDKey    struct{}
	requestTimeKey  struct{}
)

// WithAdminSubject injects the subject claim of a verified admin token.
func WithAdminSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, adminSubjectKey{}, subject)
}

// AdminSubject reports who authenticated as admin, for audit logs and event
// metadata. Empty when the request never passed the admin gate.
func AdminSubject(ctx context.Context) string {
	subject, _ := ctx.Value(adminSubjectKey{}).(string)
	return subject
}

// WithRequestID injects the request correlation ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID reports the request correlation ID, or empty outside a request.
func RequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey{}).(string)
	return requestID
}

// WithTime pins the timestamp Now reports for the rest of the request.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Now reports the pinned request time. Contexts without one (background
// workers between passes, ad-hoc tooling) fall back to the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
