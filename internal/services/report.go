package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/digital-blueprint/apiserver/internal/report"
	"github.com/digital-blueprint/apiserver/internal/storage"
	"github.com/digital-blueprint/apiserver/types"
)

// ErrStorageDisabled is returned by Archive when no object storage is configured.
var ErrStorageDisabled = errors.New("report storage not configured")

// ArchivedReport describes a report stored in object storage.
type ArchivedReport struct {
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
	Filename string `json:"filename"`
	Size     int    `json:"size"`
}

// ReportService assembles reports from stored progress.
type ReportService struct {
	catalog  CatalogRepository
	progress ProgressRepository
	renderer *report.Renderer
	storage  *storage.Storage
	location *time.Location
	now      func() time.Time
}

// NewReportService wires the service. A nil storage disables archiving and a
// nil location dates reports in UTC.
func NewReportService(catalog CatalogRepository, progress ProgressRepository, renderer *report.Renderer, store *storage.Storage, location *time.Location) *ReportService {
	if location == nil {
		location = time.UTC
	}
	return &ReportService{
		catalog:  catalog,
		progress: progress,
		renderer: renderer,
		storage:  store,
		location: location,
		now:      time.Now,
	}
}

// Document assembles the report of userID for the section.
func (s *ReportService) Document(ctx context.Context, userID, sectionID string) (report.Document, error) {
	section, err := s.catalog.GetSection(ctx, sectionID)
	if err != nil {
		return report.Document{}, fmt.Errorf("section %s: %w", sectionID, err)
	}
	prompts, err := s.catalog.ListPrompts(ctx, sectionID)
	if err != nil {
		return report.Document{}, fmt.Errorf("list prompts: %w", err)
	}
	progress, err := s.progress.GetForSection(ctx, userID, sectionID)
	if err != nil {
		return report.Document{}, fmt.Errorf("progress of %s: %w", userID, err)
	}

	return report.Assemble(section, prompts, progress.Responses, s.now().In(s.location)), nil
}

// Export renders the report in the given format.
func (s *ReportService) Export(ctx context.Context, userID, sectionID string, format report.Format) (report.Result, error) {
	doc, err := s.Document(ctx, userID, sectionID)
	if err != nil {
		return report.Result{}, err
	}
	return s.renderer.Render(ctx, doc, format)
}

// Preview renders a report from responses that were never stored.
func (s *ReportService) Preview(ctx context.Context, sectionID string, responses types.Responses, format report.Format) (report.Result, error) {
	section, err := s.catalog.GetSection(ctx, sectionID)
	if err != nil {
		return report.Result{}, fmt.Errorf("section %s: %w", sectionID, err)
	}
	prompts, err := s.catalog.ListPrompts(ctx, sectionID)
	if err != nil {
		return report.Result{}, fmt.Errorf("list prompts: %w", err)
	}
	var v violations
	checkResponses(&v, responses, prompts)
	if err := v.err(); err != nil {
		return report.Result{}, err
	}
	doc := report.Assemble(section, prompts, responses, s.now().In(s.location))
	return s.renderer.Render(ctx, doc, format)
}

// Archive renders the report and uploads it under reports/<userID>/.
func (s *ReportService) Archive(ctx context.Context, userID, sectionID string, format report.Format) (ArchivedReport, error) {
	if s.storage == nil {
		return ArchivedReport{}, ErrStorageDisabled
	}

	result, err := s.Export(ctx, userID, sectionID, format)
	if err != nil {
		return ArchivedReport{}, err
	}

	key := "reports/" + url.PathEscape(userID) + "/" + result.Filename
	if err := s.storage.PutBytes(ctx, key, result.Data, result.MimeType); err != nil {
		return ArchivedReport{}, fmt.Errorf("upload %s: %w", key, err)
	}

	return ArchivedReport{
		Bucket:   s.storage.Bucket(),
		Key:      key,
		Filename: result.Filename,
		Size:     len(result.Data),
	}, nil
}
