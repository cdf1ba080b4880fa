package report

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const (
	pdfTimeout = 30 * time.Second

	// A4 in inches.
	a4WidthIn  = 8.27
	a4HeightIn = 11.69
)

// ChromePrinter prints HTML to PDF with a headless Chrome started per call.
type ChromePrinter struct {
	ExecPath string
}

// NewChromePrinter locates a Chrome or Chromium binary. It returns
// ErrPDFDependencyMissing when none is installed.
func NewChromePrinter() (*ChromePrinter, error) {
	for _, name := range []string{"chromium-browser", "chromium", "google-chrome", "headless-shell"} {
		if path, err := exec.LookPath(name); err == nil {
			return &ChromePrinter{ExecPath: path}, nil
		}
	}
	return nil, fmt.Errorf("%w: chromium not installed", ErrPDFDependencyMissing)
}

func (p *ChromePrinter) PrintPDF(ctx context.Context, html string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, pdfTimeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(p.ExecPath),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	var pdf []byte
	err := chromedp.Run(taskCtx,
		chromedp.Navigate("data:text/html;charset=utf-8,"+dataURLEscape(html)),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4WidthIn).
				WithPaperHeight(a4HeightIn).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome pdf generation failed: %w", err)
	}
	return pdf, nil
}

// dataURLEscape percent-encodes s for a data URL. Spaces become %20, not +.
func dataURLEscape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
