package http

import (
	"context"

	"bluecollar-backend/internal/security"
)

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *security.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the caller set by the auth middleware.
func PrincipalFromContext(ctx context.Context) (*security.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*security.Principal)
	return p, ok && p != nil
}
