// Package report assembles a section report as a list of drawable blocks and
// renders it to JSON, HTML or PDF.
package report

// A4 page geometry in millimetres.
const (
	PageWidth  = 210.0
	PageHeight = 297.0
	Margin     = 20.0

	// breakThreshold is the y position past which the next block starts on a
	// new page.
	breakThreshold = PageHeight - 80
)

// Kind is the type of a drawable block.
type Kind string

const (
	KindText      Kind = "text"
	KindRect      Kind = "rect"
	KindCircle    Kind = "circle"
	KindLine      Kind = "line"
	KindPageBreak Kind = "pageBreak"
)

// Roles tag blocks with their meaning in the report.
const (
	RoleBrand        = "brand"
	RoleHeader       = "header"
	RoleTitle        = "title"
	RoleCaption      = "caption"
	RoleQuote        = "quote"
	RoleHeading      = "heading"
	RoleSummary      = "summary"
	RoleInsight      = "insight"
	RoleQuestion     = "question"
	RoleQuestionNote = "questionNote"
	RoleAnswer       = "answer"
	RoleAction       = "action"
	RoleFooter       = "footer"
	RoleDivider      = "divider"
)

// Color is an RGB triple.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

var (
	brandPink  = Color{255, 0, 149}
	brandCyan  = Color{0, 180, 216}
	textDark   = Color{40, 40, 40}
	textBody   = Color{60, 60, 60}
	textMuted  = Color{80, 80, 80}
	textSubtle = Color{100, 100, 100}
	textFooter = Color{150, 150, 150}
	quoteFill  = Color{245, 245, 245}
)

// Block is one drawable element. Coordinates are millimetres from the top-left
// corner of the page; text Y is the baseline of the first line.
type Block struct {
	Kind Kind   `json:"kind"`
	Role string `json:"role,omitempty"`

	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`

	// Rect size, circle radius and line end point.
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Radius float64 `json:"radius,omitempty"`
	X2     float64 `json:"x2,omitempty"`
	Y2     float64 `json:"y2,omitempty"`

	// LineWidth is the stroke width of a line block.
	LineWidth float64 `json:"lineWidth,omitempty"`

	// Lines holds the already wrapped text of a text block.
	Lines    []string `json:"lines,omitempty"`
	FontSize float64  `json:"fontSize,omitempty"`

	Color *Color `json:"color,omitempty"`
}

// Document is the assembled report.
type Document struct {
	Slug   string  `json:"slug"`
	Title  string  `json:"title"`
	Phase  int     `json:"phase"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Blocks []Block `json:"blocks"`
}

// Pages splits the block list at page breaks.
func (d Document) Pages() [][]Block {
	pages := [][]Block{{}}
	for _, b := range d.Blocks {
		if b.Kind == KindPageBreak {
			pages = append(pages, []Block{})
			continue
		}
		last := len(pages) - 1
		pages[last] = append(pages[last], b)
	}
	return pages
}

// Count returns how many blocks carry role.
func (d Document) Count(role string) int {
	n := 0
	for _, b := range d.Blocks {
		if b.Role == role {
			n++
		}
	}
	return n
}
