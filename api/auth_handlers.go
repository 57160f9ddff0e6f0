package api

import (
	"net/http"

	"github.com/jmcleod/gatehouse/user"
)

// Login handles POST /session. Credentials arrive as a Basic Authorization
// header; a successful login responds with the minted session token.
//
// Bad credentials and a store failure both come back as the same
// unauthenticated response: the client learns nothing about whether the
// identity exists or the store is down. The store failure is still visible
// to operators through the engine's log.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	identity, password, ok := basicCredentials(r)
	if !ok {
		writeUnauthenticated(w)
		return
	}

	principal, err := a.sessions.Login(user.NormalizeIdentity(identity), password)
	if err != nil {
		a.audit.logEvent(AuditLoginFailure, r, "")
		writeUnauthenticated(w)
		return
	}

	a.audit.logEvent(AuditLoginSuccess, r, principal.Identity)
	writeJSON(w, http.StatusOK, LoginResponse{
		Token:    principal.Token,
		Identity: principal.Identity,
	})
}

// Logout handles DELETE /session. The bearer token that authenticated the
// request is the session being ended, so this cannot miss.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}
	a.sessions.Logout(principal.Token)
	a.audit.logEvent(AuditLogout, r, principal.Identity)
	w.WriteHeader(http.StatusNoContent)
}
