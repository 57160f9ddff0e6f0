package api

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/jmcleod/gatehouse/session"
)

type contextKey int

const principalKey contextKey = iota

const (
	basicScheme  = "Basic"
	bearerScheme = "Bearer"
)

// parseAuthorization splits an Authorization header into its scheme and a
// single credential blob. Headers with no scheme, no blob, or embedded
// whitespace in the blob are rejected.
func parseAuthorization(header string) (scheme, blob string, ok bool) {
	scheme, blob, found := strings.Cut(header, " ")
	if !found || scheme == "" || blob == "" || strings.ContainsAny(blob, " \t") {
		return "", "", false
	}
	return scheme, blob, true
}

// basicCredentials extracts an identity/password pair from a Basic
// Authorization header. The scheme name must match exactly.
func basicCredentials(r *http.Request) (identity, password string, ok bool) {
	scheme, blob, ok := parseAuthorization(r.Header.Get("Authorization"))
	if !ok || scheme != basicScheme {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", "", false
	}
	identity, password, found := strings.Cut(string(decoded), ":")
	if !found {
		return "", "", false
	}
	return identity, password, true
}

// bearerToken extracts the token from a Bearer Authorization header. The
// scheme name must match exactly and the credential must be a single token.
func bearerToken(r *http.Request) (string, bool) {
	scheme, blob, ok := parseAuthorization(r.Header.Get("Authorization"))
	if !ok || scheme != bearerScheme {
		return "", false
	}
	return blob, true
}

// SessionMiddleware authenticates a Bearer token against the session engine
// and stores the principal on the request context. A missing or malformed
// header, a wrong scheme, and an unknown token all produce the same
// unauthenticated response.
func (a *API) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeUnauthenticated(w)
			return
		}
		principal, ok := a.sessions.GetActiveSession(token)
		if !ok {
			a.audit.logEvent(AuditSessionRejected, r, "")
			writeUnauthenticated(w)
			return
		}
		ctx := context.WithValue(r.Context(), principalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PrincipalFromContext returns the authenticated principal stored by
// SessionMiddleware.
func PrincipalFromContext(ctx context.Context) (session.Principal, bool) {
	p, ok := ctx.Value(principalKey).(session.Principal)
	return p, ok
}
