package httpx

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	domainauth "github.com/target/media-console/internal/domain/auth"
	"github.com/target/media-console/internal/domain/model"
	"github.com/target/media-console/internal/service"
)

// ResourceServiceInterface is the CRUD surface behind /api/{resource}.
type ResourceServiceInterface interface {
	List(ctx context.Context, scope service.Scope, name string, q model.ListQuery) (model.ListResult, error)
	Get(ctx context.Context, scope service.Scope, name, id string) (json.RawMessage, error)
	Create(ctx context.Context, scope service.Scope, name string, body json.RawMessage) (json.RawMessage, error)
	Update(ctx context.Context, scope service.Scope, name, id string, body json.RawMessage) (json.RawMessage, error)
	Delete(ctx context.Context, scope service.Scope, name, id string) error
}

// ResourceHandlers serves the tenant-scoped collections.
type ResourceHandlers struct {
	Svc    ResourceServiceInterface
	Logger *slog.Logger
}

func (h *ResourceHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// resourceRequirement gates reads on a collection's read role and writes on its write role.
// Unknown collections only require a signed-in caller; the handler answers 404.
func resourceRequirement(r *http.Request) domainauth.Requirement {
	c, ok := model.LookupCollection(r.PathValue("resource"))
	if !ok {
		return domainauth.Requirement{MinRole: domainauth.RoleViewer}
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		return domainauth.Requirement{MinRole: c.ReadRole}
	default:
		return domainauth.Requirement{MinRole: c.WriteRole}
	}
}

func scopeOf(r *http.Request) (service.Scope, bool) {
	store, ok := GetSessionFromContext(r.Context())
	if !ok {
		return service.Scope{}, false
	}
	return service.Scope{SID: SIDFromContext(r.Context()), Token: store.Token()}, true
}

// List handles GET /api/{resource}?skip=&limit=&<filters>.
func (h *ResourceHandlers) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(r)
	if !ok {
		sessionFrom(w, r)
		return
	}
	skip, limit := ParseSkipLimit(r, defaultListLimit, maxListLimit)
	res, err := h.Svc.List(r.Context(), scope, r.PathValue("resource"), model.ListQuery{
		Skip:    skip,
		Limit:   limit,
		Filters: listFilters(r),
	})
	if err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	if res.Items == nil {
		res.Items = []json.RawMessage{}
	}
	WriteJSON(w, http.StatusOK, res)
}

// Get handles GET /api/{resource}/{id}.
func (h *ResourceHandlers) Get(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(r)
	if !ok {
		sessionFrom(w, r)
		return
	}
	out, err := h.Svc.Get(r.Context(), scope, r.PathValue("resource"), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

// Create handles POST /api/{resource}.
func (h *ResourceHandlers) Create(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(r)
	if !ok {
		sessionFrom(w, r)
		return
	}
	body, ok := readRawJSON(w, r)
	if !ok {
		return
	}
	out, err := h.Svc.Create(r.Context(), scope, r.PathValue("resource"), body)
	if err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	WriteJSON(w, http.StatusCreated, out)
}

// Update handles PATCH /api/{resource}/{id}.
func (h *ResourceHandlers) Update(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(r)
	if !ok {
		sessionFrom(w, r)
		return
	}
	body, ok := readRawJSON(w, r)
	if !ok {
		return
	}
	out, err := h.Svc.Update(r.Context(), scope, r.PathValue("resource"), r.PathValue("id"), body)
	if err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

// Delete handles DELETE /api/{resource}/{id}.
func (h *ResourceHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeOf(r)
	if !ok {
		sessionFrom(w, r)
		return
	}
	if err := h.Svc.Delete(r.Context(), scope, r.PathValue("resource"), r.PathValue("id")); err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
