package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// PermissionHandler proxies the admin permission-management routes to the
// backend, which owns permission storage. Requests must already carry a live
// session; the middleware-provided access token becomes the bearer credential.
type PermissionHandler struct {
	relay  backendRelay
	logger *slog.Logger
}

// NewPermissionHandler creates a PermissionHandler.
func NewPermissionHandler(backend backendRelay, logger *slog.Logger) *PermissionHandler {
	return &PermissionHandler{relay: backend, logger: logger}
}

// List handles GET /api/permissions.
func (h *PermissionHandler) List(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, http.MethodGet, "/api/permissions/", false)
}

// Create handles POST /api/permissions.
func (h *PermissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, http.MethodPost, "/api/permissions/", true)
}

// UserPermissions handles GET /api/users/{id}/permissions.
func (h *PermissionHandler) UserPermissions(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, http.MethodGet, "/api/users/"+chi.URLParam(r, "id")+"/permissions/", false)
}

// UpdateUserPermissions handles PUT /api/users/{id}/permissions.
func (h *PermissionHandler) UpdateUserPermissions(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, http.MethodPut, "/api/users/"+chi.URLParam(r, "id")+"/permissions/", true)
}

func (h *PermissionHandler) proxy(w http.ResponseWriter, r *http.Request, method, path string, hasBody bool) {
	info := SessionFromContext(r.Context())
	if info == nil {
		unauthorized(w)
		return
	}

	var body []byte
	if hasBody {
		var payload json.RawMessage
		if err := decodeJSONBody(w, r, &payload); err != nil {
			writeJSONError(w, err)
			return
		}
		body = payload
	}

	status, respBody, err := h.relay.Forward(r.Context(), method, path, body, info.AccessToken)
	if err != nil {
		h.relayError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(respBody)
}

func (h *PermissionHandler) relayError(w http.ResponseWriter, err error) {
	h.logger.Error("permission proxy failed", "error", err)
	writeErrorDetails(w, http.StatusInternalServerError, "Failed to reach backend", err.Error())
}
