package handlers

import (
	"net/http"

	"github.com/digital-blueprint/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

// CatalogHandler serves the read-only section catalog.
type CatalogHandler struct {
	catalogService *services.CatalogService
}

func NewCatalogHandler(catalogService *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// CatalogRouter registers section routes on the given router. The {section}
// segment is a slug for the section itself and an id for its prompts.
func CatalogRouter(r chi.Router, catalogService *services.CatalogService) {
	handler := NewCatalogHandler(catalogService)

	r.Get("/", handler.ListSections)
	r.Route("/{section}", func(r chi.Router) {
		r.Get("/", handler.GetSection)
		r.Get("/prompts", handler.ListPrompts)
	})
}

func (h *CatalogHandler) ListSections(w http.ResponseWriter, r *http.Request) {
	sections, err := h.catalogService.ListSections(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "sections not found", "failed to list sections")
		return
	}
	writeJSON(w, http.StatusOK, sections)
}

func (h *CatalogHandler) GetSection(w http.ResponseWriter, r *http.Request) {
	section, err := h.catalogService.GetSectionBySlug(r.Context(), chi.URLParam(r, "section"))
	if err != nil {
		writeServiceError(w, r, err, "section not found", "failed to fetch section")
		return
	}
	writeJSON(w, http.StatusOK, section)
}

func (h *CatalogHandler) ListPrompts(w http.ResponseWriter, r *http.Request) {
	prompts, err := h.catalogService.ListPrompts(r.Context(), chi.URLParam(r, "section"))
	if err != nil {
		writeServiceError(w, r, err, "section not found", "failed to list prompts")
		return
	}
	writeJSON(w, http.StatusOK, prompts)
}
