package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/inkwell/internal/domain"
	"github.com/utafrali/inkwell/pkg/httputil"
	"github.com/utafrali/inkwell/pkg/pagination"
)

// UserHandler handles HTTP requests for user endpoints.
type UserHandler struct {
	users  UserService
	blogs  BlogService
	logger *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(users UserService, blogs BlogService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, blogs: blogs, logger: logger}
}

// UpdateUserRequest is the JSON request body for a profile update. Absent
// fields are left unchanged.
type UpdateUserRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Role      *string `json:"role" validate:"omitempty,oneof=writer moderator admin"`
}

func (req UpdateUserRequest) fields() domain.UserFields {
	f := domain.UserFields{FirstName: req.FirstName, LastName: req.LastName}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		f.Role = &role
	}
	return f
}

// Me handles GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		httputil.WriteError(w, r, errNoPrincipal, h.logger)
		return
	}

	user, err := h.users.Get(r.Context(), p.ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, user)
}

// List handles GET /api/v1/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	users, total, err := h.users.List(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(users, total, params))
}

// Get handles GET /api/v1/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, user)
}

// Update handles PATCH /api/v1/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		httputil.WriteError(w, r, errNoPrincipal, h.logger)
		return
	}
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.Update(r.Context(), p, id, req.fields())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, user)
}

// Remove handles DELETE /api/v1/users/{id}
func (h *UserHandler) Remove(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		httputil.WriteError(w, r, errNoPrincipal, h.logger)
		return
	}
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.users.Remove(r.Context(), p, id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Blogs handles GET /api/v1/users/{id}/blogs
func (h *UserHandler) Blogs(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	params := pagination.FromRequest(r)

	blogs, total, err := h.blogs.ListByUser(r.Context(), id, params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(blogs, total, params))
}
