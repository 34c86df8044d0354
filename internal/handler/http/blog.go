package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/inkwell/pkg/httputil"
	"github.com/utafrali/inkwell/pkg/pagination"
)

// BlogHandler handles HTTP requests for blog endpoints.
type BlogHandler struct {
	service BlogService
	logger  *slog.Logger
}

// NewBlogHandler creates a new blog HTTP handler.
func NewBlogHandler(svc BlogService, logger *slog.Logger) *BlogHandler {
	return &BlogHandler{service: svc, logger: logger}
}

// BlogRequest is the JSON request body for creating or renaming a blog.
type BlogRequest struct {
	Name string `json:"name" validate:"required,notblank,max=200"`
}

// Create handles POST /api/v1/blogs
func (h *BlogHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		httputil.WriteError(w, r, errNoPrincipal, h.logger)
		return
	}

	var req BlogRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	blog, err := h.service.Create(r.Context(), p, req.Name)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, blog)
}

// List handles GET /api/v1/blogs?title=&page=&per_page=
func (h *BlogHandler) List(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	blogs, total, err := h.service.List(r.Context(), r.URL.Query().Get("title"), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(blogs, total, params))
}

// Get handles GET /api/v1/blogs/{id}
func (h *BlogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	blog, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, blog)
}

// Update handles PATCH /api/v1/blogs/{id}
func (h *BlogHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		httputil.WriteError(w, r, errNoPrincipal, h.logger)
		return
	}
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req BlogRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	blog, err := h.service.Update(r.Context(), p, id, req.Name)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, blog)
}

// Remove handles DELETE /api/v1/blogs/{id}
func (h *BlogHandler) Remove(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		httputil.WriteError(w, r, errNoPrincipal, h.logger)
		return
	}
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Remove(r.Context(), p, id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
