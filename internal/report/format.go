package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Format is an output format of a rendered report.
type Format string

const (
	FormatJSON Format = "json"
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

var (
	// ErrUnsupportedFormat is returned for formats other than json, html and pdf.
	ErrUnsupportedFormat = errors.New("unsupported report format")

	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("report pdf dependency missing")
)

// ParseFormat parses a format name. An empty name selects JSON.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatHTML, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// MimeType returns the content type of the format.
func (f Format) MimeType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/json"
	}
}

// Filename returns the download name of a report for the section slug.
func Filename(slug string, f Format) string {
	return slug + "-blueprint-report." + string(f)
}

// Result is a rendered report.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// PDFPrinter turns an HTML page into PDF bytes.
type PDFPrinter interface {
	PrintPDF(ctx context.Context, html string) ([]byte, error)
}

// Renderer renders documents to bytes.
type Renderer struct {
	pdf PDFPrinter
}

// NewRenderer returns a renderer that prints PDFs with pdf. A nil printer
// makes PDF rendering fail with ErrPDFDependencyMissing.
func NewRenderer(pdf PDFPrinter) *Renderer {
	return &Renderer{pdf: pdf}
}

func (r *Renderer) Render(ctx context.Context, doc Document, format Format) (Result, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(doc, "", "  ")
	case FormatHTML:
		data, err = RenderHTML(doc)
	case FormatPDF:
		if r.pdf == nil {
			return Result{}, fmt.Errorf("%w: no pdf printer configured", ErrPDFDependencyMissing)
		}
		var html []byte
		html, err = RenderHTML(doc)
		if err == nil {
			data, err = r.pdf.PrintPDF(ctx, string(html))
		}
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return Result{}, fmt.Errorf("render %s report: %w", format, err)
	}

	return Result{
		Data:     data,
		Filename: Filename(doc.Slug, format),
		MimeType: format.MimeType(),
	}, nil
}
