package httpapi

import (
	"net/http"

	"opsboard.dev/internal/audit"
	"opsboard.dev/internal/auth"
)

func (a *API) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.requireRole(w, r, auth.RoleOwner, auth.RoleAdmin); !ok {
		return
	}
	entries, err := a.audit.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
