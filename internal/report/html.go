package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"strconv"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var reportTemplate = template.Must(template.New("report.html.tmpl").Funcs(template.FuncMap{
	"mm":      formatMM,
	"pt":      func(size float64) float64 { return size * ptToMM },
	"advance": lineAdvance,
	"inc":     func(i int) int { return i + 1 },
	"rgb": func(c *Color) string {
		if c == nil {
			return "#000000"
		}
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	},
}).ParseFS(templateFS, "templates/report.html.tmpl"))

// RenderHTML renders every page of doc as an absolutely positioned SVG
// sheet sized in millimetres, so printing it reproduces the layout.
func RenderHTML(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatMM(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
