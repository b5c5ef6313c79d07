// Package requestcontext provides HTTP-independent accessors for
// request-scoped values. Middleware sets them; services and handlers read
// them without importing net/http.
package requestcontext

import (
	"context"
	"time"
)

type (
	requestIDKey   struct{}
	partyDomainKey struct{}
	partyRoleKey   struct{}
	requestTimeKey struct{}
)

// WithRequestID stores the request correlation ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request correlation ID, or "" when unset.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// WithParty stores the authenticated market party's domain and role.
func WithParty(ctx context.Context, partyDomain, role string) context.Context {
	ctx = context.WithValue(ctx, partyDomainKey{}, partyDomain)
	return context.WithValue(ctx, partyRoleKey{}, role)
}

// PartyDomain returns the authenticated party's domain, or "" when unset.
func PartyDomain(ctx context.Context) string {
	v, _ := ctx.Value(partyDomainKey{}).(string)
	return v
}

// PartyRole returns the authenticated party's role, or "" when unset.
func PartyRole(ctx context.Context) string {
	v, _ := ctx.Value(partyRoleKey{}).(string)
	return v
}

// WithTime injects a request-scoped time; tests use it to pin "now".
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// Now returns the request-scoped time, falling back to wall-clock time.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
