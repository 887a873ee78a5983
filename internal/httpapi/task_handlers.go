package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"opsboard.dev/internal/auth"
	"opsboard.dev/internal/task"
)

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type updateTaskRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Status      *string  `json:"status"`
	Category    *string  `json:"category"`
	SortOrder   *float64 `json:"sortOrder"`
}

func (a *API) handleTasksCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		identity, ok := a.requireRole(w, r, auth.RoleOwner, auth.RoleAdmin, auth.RoleViewer)
		if !ok {
			return
		}
		tasks, err := a.tasks.List(r.Context(), identity)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		if tasks == nil {
			tasks = []*task.Task{}
		}
		writeJSON(w, http.StatusOK, tasks)
	case http.MethodPost:
		identity, ok := a.requireRole(w, r, auth.RoleOwner, auth.RoleAdmin)
		if !ok {
			return
		}
		var req createTaskRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		created, err := a.tasks.Create(r.Context(), task.CreateInput{
			Title:       req.Title,
			Description: req.Description,
			Category:    req.Category,
		}, identity)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleTaskResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	if rest == "" || strings.Contains(rest, "/") {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	if rest == "reorder" {
		a.handleReorder(w, r)
		return
	}
	switch r.Method {
	case http.MethodPut:
		identity, ok := a.requireRole(w, r, auth.RoleOwner, auth.RoleAdmin)
		if !ok {
			return
		}
		var req updateTaskRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		updated, err := a.tasks.Update(r.Context(), rest, task.Patch{
			Title:       req.Title,
			Description: req.Description,
			Status:      req.Status,
			Category:    req.Category,
			SortOrder:   req.SortOrder,
		}, identity)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		identity, ok := a.requireRole(w, r, auth.RoleOwner, auth.RoleAdmin)
		if !ok {
			return
		}
		if err := a.tasks.Remove(r.Context(), rest, identity); err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	default:
		methodNotAllowed(w, r, http.MethodPut, http.MethodDelete)
	}
}

// handleReorder accepts the whole board state from the client. A body that
// is valid JSON but not an array of entries is acknowledged without effect,
// so stale clients never see an error from a no-op drag.
func (a *API) handleReorder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	identity, ok := a.requireRole(w, r, auth.RoleOwner, auth.RoleAdmin)
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	var entries []task.ReorderEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}
	if err := a.tasks.Reorder(r.Context(), entries, identity); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
