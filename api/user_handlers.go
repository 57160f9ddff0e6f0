package api

import (
	"net/http"

	"github.com/jmcleod/gatehouse/user"
)

// CreateUser handles POST /user.
func (a *API) CreateUser(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[CreateUserRequest](w, r)
	if !ok {
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	rec, err := a.users.Create(user.NewUser{
		Identity:    req.Identity,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		mapError(w, err)
		return
	}

	a.audit.logEvent(AuditUserCreated, r, rec.Identity)
	writeJSON(w, http.StatusCreated, UserResponse{
		Identity:    rec.Identity,
		DisplayName: rec.DisplayName,
	})
}

// GetUser handles GET /user for the authenticated identity.
//
// A 404 here means the record was deleted while the session was still live;
// the session alone does not prove store membership.
func (a *API) GetUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}
	rec, err := a.users.Get(principal.Identity)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{
		Identity:    rec.Identity,
		DisplayName: rec.DisplayName,
	})
}

// UpdateUser handles PATCH /user. A rename carries the caller's session
// forward, so the same token keeps working under the new identity.
func (a *API) UpdateUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}
	req, ok := decodeJSON[UpdateUserRequest](w, r)
	if !ok {
		return
	}

	rec, err := a.users.Modify(principal.Identity, user.Update{
		Identity:    req.Identity,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	}, principal.Token)
	if err != nil {
		mapError(w, err)
		return
	}

	a.audit.logEvent(AuditUserUpdated, r, rec.Identity)
	writeJSON(w, http.StatusOK, UserResponse{
		Identity:    rec.Identity,
		DisplayName: rec.DisplayName,
	})
}

// DeleteUser handles DELETE /user. Every session of the identity is
// invalidated, including the one making this request.
func (a *API) DeleteUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeUnauthenticated(w)
		return
	}
	if err := a.users.Delete(principal.Identity); err != nil {
		mapError(w, err)
		return
	}
	a.audit.logEvent(AuditUserDeleted, r, principal.Identity)
	w.WriteHeader(http.StatusNoContent)
}
