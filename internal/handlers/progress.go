package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/digital-blueprint/apiserver/internal/report"
	"github.com/digital-blueprint/apiserver/internal/services"
	"github.com/digital-blueprint/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	paramUserID    = "userId"
	paramSectionID = "sectionId"
	mergeResponses = "merge"
)

// ProgressHandler serves per-user progress and reports.
type ProgressHandler struct {
	progressService *services.ProgressService
	reportService   *services.ReportService
	secret          []byte
}

func NewProgressHandler(progressService *services.ProgressService, reportService *services.ReportService, jwtSecret string) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
		reportService:   reportService,
		secret:          []byte(jwtSecret),
	}
}

// ProgressRouter registers progress routes on a router mounted at
// /users/{userId}/progress.
func ProgressRouter(r chi.Router, progressService *services.ProgressService, reportService *services.ReportService, jwtSecret string) {
	handler := NewProgressHandler(progressService, reportService, jwtSecret)

	r.Use(handler.authorizeUser)
	r.Get("/", handler.ListProgress)
	r.Post("/", handler.CreateProgress)
	r.Route("/{sectionId}", func(r chi.Router) {
		r.Get("/", handler.GetProgress)
		r.Patch("/", handler.UpdateProgress)
		r.Get("/report", handler.ExportReport)
		r.Post("/report/archive", handler.ArchiveReport)
	})
}

// authorizeUser lets anonymous requests through. A request carrying a bearer
// token must be signed by us and address the token's own user.
func (h *ProgressHandler) authorizeUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		subject, err := parseTokenSubject(tokenString, h.secret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if subject != chi.URLParam(r, paramUserID) {
			writeError(w, http.StatusForbidden, "token does not belong to this user")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *ProgressHandler) ListProgress(w http.ResponseWriter, r *http.Request) {
	items, err := h.progressService.List(r.Context(), chi.URLParam(r, paramUserID))
	if err != nil {
		writeServiceError(w, r, err, "progress not found", "failed to list progress")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.progressService.Get(r.Context(), chi.URLParam(r, paramUserID), chi.URLParam(r, paramSectionID))
	if err != nil {
		writeServiceError(w, r, err, "progress not found", "failed to fetch progress")
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *ProgressHandler) CreateProgress(w http.ResponseWriter, r *http.Request) {
	var req ProgressRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	progress, err := h.progressService.Create(r.Context(), chi.URLParam(r, paramUserID), req.input())
	if err != nil {
		writeServiceError(w, r, err, "section not found", "failed to create progress")
		return
	}
	writeJSON(w, http.StatusCreated, progress)
}

// UpdateProgress applies a partial update. Responses replace the stored map
// unless the request asks for ?responses=merge.
func (h *ProgressHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("responses")
	if mode != "" && mode != mergeResponses && mode != "replace" {
		writeError(w, http.StatusBadRequest, "responses must be merge or replace")
		return
	}

	var req ProgressRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	progress, err := h.progressService.Update(
		r.Context(),
		chi.URLParam(r, paramUserID),
		chi.URLParam(r, paramSectionID),
		req.input(),
		mode == mergeResponses,
	)
	if err != nil {
		writeServiceError(w, r, err, "progress not found", "failed to update progress")
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (h *ProgressHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "format must be json, html or pdf")
		return
	}

	result, err := h.reportService.Export(r.Context(), chi.URLParam(r, paramUserID), chi.URLParam(r, paramSectionID), format)
	if err != nil {
		if errors.Is(err, report.ErrPDFDependencyMissing) {
			writeError(w, http.StatusServiceUnavailable, "pdf export is not available")
			return
		}
		writeServiceError(w, r, err, "progress not found", "failed to export report")
		return
	}

	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (h *ProgressHandler) ArchiveReport(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "format must be json, html or pdf")
		return
	}

	archived, err := h.reportService.Archive(r.Context(), chi.URLParam(r, paramUserID), chi.URLParam(r, paramSectionID), format)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrStorageDisabled):
			writeError(w, http.StatusServiceUnavailable, "report storage is not configured")
		case errors.Is(err, report.ErrPDFDependencyMissing):
			writeError(w, http.StatusServiceUnavailable, "pdf export is not available")
		default:
			writeServiceError(w, r, err, "progress not found", "failed to archive report")
		}
		return
	}
	writeJSON(w, http.StatusCreated, archived)
}

// ProgressRequest is the body of progress create and update requests. Other
// Progress fields such as id and lastUpdated are ignored.
type ProgressRequest struct {
	UserID           *string         `json:"userId"`
	SectionID        *string         `json:"sectionId"`
	CompletedPrompts *int            `json:"completedPrompts"`
	TotalPrompts     *int            `json:"totalPrompts"`
	Responses        types.Responses `json:"responses"`
	IsCompleted      *bool           `json:"isCompleted"`
}

func (req ProgressRequest) input() services.ProgressInput {
	return services.ProgressInput{
		UserID:           req.UserID,
		SectionID:        req.SectionID,
		CompletedPrompts: req.CompletedPrompts,
		TotalPrompts:     req.TotalPrompts,
		Responses:        req.Responses,
		IsCompleted:      req.IsCompleted,
	}
}
