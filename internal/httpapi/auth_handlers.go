package httpapi

import (
	"errors"
	"net/http"
	"time"

	"stridelog/internal/account"
	"stridelog/internal/audit"
	"stridelog/internal/token"
)

type registerRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Profile  map[string]any `json:"profile,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

type tokenResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token,omitempty"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at,omitempty"`
}

func pairResponse(pair token.Pair) tokenResponse {
	return tokenResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || len(req.Password) < 8 {
		a.audit.Log(r.Context(), audit.ActionValidationInput, "auth", audit.OutcomeFailure,
			map[string]any{"reason": "missing email or short password"})
		writeError(w, http.StatusBadRequest, "email and a password of at least 8 characters are required")
		return
	}

	acct, err := a.accounts.Register(r.Context(), req.Email, req.Password, req.Profile)
	if err != nil {
		a.metrics.Increment("register_failure")
		a.audit.Auth().Register(r.Context(), "", audit.OutcomeFailure, map[string]any{"email": req.Email})
		if errors.Is(err, account.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, "account already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	pair, err := a.tokens.Issue(r.Context(), acct.ID, acct.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token issuance failed")
		return
	}
	a.metrics.Increment("register_success")
	a.audit.Auth().Register(r.Context(), acct.ID, audit.OutcomeSuccess, nil)
	writeJSON(w, http.StatusCreated, pairResponse(pair))
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	acct, err := a.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		a.metrics.Increment("login_failure")
		a.audit.Auth().Login(r.Context(), "", audit.OutcomeFailure, map[string]any{"email": req.Email})
		writeError(w, http.StatusUnauthorized, "authentication failed")
		return
	}

	pair, err := a.tokens.Issue(r.Context(), acct.ID, acct.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token issuance failed")
		return
	}
	a.metrics.Increment("login_success")
	a.audit.Auth().Login(r.Context(), acct.ID, audit.OutcomeSuccess, nil)
	writeJSON(w, http.StatusOK, pairResponse(pair))
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pair, err := a.tokens.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		a.metrics.Increment("refresh_failure")
		a.audit.Auth().Refresh(r.Context(), "", audit.OutcomeFailure, nil)
		a.respondAuthError(w, r, err)
		return
	}
	claims, err := a.tokens.Validate(r.Context(), pair.AccessToken, token.TypeAccess)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token issuance failed")
		return
	}
	a.metrics.Increment("refresh_success")
	a.audit.Auth().Refresh(r.Context(), claims.Subject, audit.OutcomeSuccess, nil)
	writeJSON(w, http.StatusOK, pairResponse(pair))
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	raw, ok := token.RawTokenFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication failed")
		return
	}

	claims, err := a.tokens.Logout(r.Context(), raw, req.RefreshToken)
	if err != nil {
		a.respondAuthError(w, r, err)
		return
	}
	a.metrics.Increment("logout")
	a.audit.Auth().Logout(r.Context(), claims.Subject, audit.OutcomeSuccess, nil)
	w.WriteHeader(http.StatusNoContent)
}

// respondAuthError answers every token failure with the same body so the
// response does not reveal which check rejected the credential. The precise
// kind goes to the log.
func (a *API) respondAuthError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, token.ErrAuthenticationFailed) {
		a.log.Warn().Err(err).Str("path", r.URL.Path).Msg("token rejected")
		writeError(w, http.StatusUnauthorized, "authentication failed")
		return
	}
	a.log.Error().Err(err).Str("path", r.URL.Path).Msg("authentication error")
	writeError(w, http.StatusInternalServerError, "authentication error")
}
