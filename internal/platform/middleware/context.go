// Package middleware carries the HTTP cross-cutting concerns: request
// metadata capture, bearer-token authentication and the authorization
// gates used by the account and business routes.
package middleware

import (
	"context"

	"pymegate/internal/auth/token"
)

type contextKeyIdentity struct{}

// WithIdentity stores the verified token identity. Exported so handler
// tests can authenticate without running the middleware chain.
func WithIdentity(ctx context.Context, identity token.Identity) context.Context {
	return context.WithValue(ctx, contextKeyIdentity{}, identity)
}

// IdentityFrom retrieves the authenticated identity, if any.
func IdentityFrom(ctx context.Context) (token.Identity, bool) {
	identity, ok := ctx.Value(contextKeyIdentity{}).(token.Identity)
	return identity, ok
}
