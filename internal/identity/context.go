package identity

import (
	"context"

	"gatekeeper/internal/domain"
)

type principalKey struct{}

// WithPrincipal stores p on ctx for downstream handlers.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by the admission stage, if any.
func FromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok
}
