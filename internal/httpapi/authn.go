package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"stridelog/internal/token"
)

// withAuth requires a valid, unrevoked access token. Every rejection gets the
// same status and body regardless of cause; the distinguishing detail is
// logged and counted but never returned to the caller.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			a.metrics.Increment("auth_missing_token")
			writeError(w, http.StatusUnauthorized, "authentication failed")
			return
		}

		claims, err := a.tokens.Validate(r.Context(), raw, token.TypeAccess)
		if err != nil {
			a.recordAuthFailure(r, err)
			if errors.Is(err, token.ErrAuthenticationFailed) {
				writeError(w, http.StatusUnauthorized, "authentication failed")
			} else {
				writeError(w, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		ctx := token.ContextWithClaims(r.Context(), claims)
		ctx = token.ContextWithRawToken(ctx, raw)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *API) recordAuthFailure(r *http.Request, err error) {
	name := "auth_failure"
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		name = "auth_token_expired"
	case errors.Is(err, token.ErrTokenRevoked):
		name = "auth_token_revoked"
	case errors.Is(err, token.ErrInvalidSignature):
		name = "auth_invalid_signature"
	case errors.Is(err, token.ErrWrongTokenType):
		name = "auth_wrong_token_type"
	case errors.Is(err, token.ErrMalformedToken):
		name = "auth_malformed_token"
	case errors.Is(err, token.ErrRevocationCheck):
		name = "auth_revocation_check_failure"
	}
	a.metrics.Increment(name)
	a.log.Warn().Err(err).Str("path", r.URL.Path).Msg("access token rejected")
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	scheme, rest, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	rest = strings.TrimSpace(rest)
	return rest, rest != ""
}
