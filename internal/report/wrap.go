package report

import (
	"strings"
	"unicode/utf8"
)

const (
	// ptToMM converts a font size in points to millimetres.
	ptToMM = 0.3528

	// avgGlyphWidth is the average Helvetica glyph advance as a fraction of
	// the font size.
	avgGlyphWidth = 0.5
)

// lineAdvance is the vertical distance between wrapped lines.
func lineAdvance(fontSize float64) float64 {
	return fontSize * 0.4
}

// wrap splits text into lines no wider than width millimetres at fontSize.
// Words longer than a line are split.
func wrap(text string, width, fontSize float64) []string {
	perLine := int(width / (fontSize * ptToMM * avgGlyphWidth))
	if perLine < 1 {
		perLine = 1
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}

		var current strings.Builder
		currentLen := 0
		flush := func() {
			lines = append(lines, current.String())
			current.Reset()
			currentLen = 0
		}

		for _, word := range words {
			for utf8.RuneCountInString(word) > perLine {
				if currentLen > 0 {
					flush()
				}
				runes := []rune(word)
				lines = append(lines, string(runes[:perLine]))
				word = string(runes[perLine:])
			}

			n := utf8.RuneCountInString(word)
			switch {
			case currentLen == 0:
			case currentLen+1+n <= perLine:
				current.WriteByte(' ')
				currentLen++
			default:
				flush()
			}
			current.WriteString(word)
			currentLen += n
		}
		if currentLen > 0 {
			flush()
		}
	}
	return lines
}
