package token

import "context"

type claimsContextKey struct{}
type rawTokenContextKey struct{}

// ContextWithClaims attaches validated claims to the context.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	if claims == nil {
		return ctx
	}
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext extracts validated claims from the context.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	if ctx == nil {
		return nil, false
	}
	claims, ok := ctx.Value(claimsContextKey{}).(*Claims)
	return claims, ok && claims != nil
}

// ContextWithRawToken stores the raw bearer token inside the context so
// logout can revoke the credential it was called with.
func ContextWithRawToken(ctx context.Context, raw string) context.Context {
	if raw == "" {
		return ctx
	}
	return context.WithValue(ctx, rawTokenContextKey{}, raw)
}

// RawTokenFromContext returns the bearer token if previously attached.
func RawTokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	raw, ok := ctx.Value(rawTokenContextKey{}).(string)
	return raw, ok && raw != ""
}
