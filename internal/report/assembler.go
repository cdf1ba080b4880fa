package report

import (
	"fmt"
	"time"

	"github.com/digital-blueprint/apiserver/types"
)

const (
	programTitle = "Digital Branding Blueprint"
	footerDate   = "1/2/2006"
)

// Assemble lays out the report for one section. Prompts are reported in the
// given order; a prompt is included when responses has an entry for its ID,
// even if the answer is empty. The result depends only on the arguments.
func Assemble(section types.Section, prompts []types.Prompt, responses types.Responses, date time.Time) Document {
	a := &assembler{y: Margin}

	a.header(section)
	a.quote(section.Slug)
	a.summary(section)
	a.insights(section.Insights)
	a.answers(prompts, responses)
	a.actions()
	a.footer(date)

	return Document{
		Slug:   section.Slug,
		Title:  section.Title,
		Phase:  section.Phase,
		Width:  PageWidth,
		Height: PageHeight,
		Blocks: a.blocks,
	}
}

type assembler struct {
	blocks []Block
	y      float64
}

func (a *assembler) add(b Block) {
	a.blocks = append(a.blocks, b)
}

func (a *assembler) text(role string, x, y, size float64, color Color, lines ...string) {
	c := color
	a.add(Block{Kind: KindText, Role: role, X: x, Y: y, FontSize: size, Color: &c, Lines: lines})
}

// wrapped emits text wrapped to width and returns the y position below it.
// Lines whose baseline would pass the break threshold continue on a new page.
func (a *assembler) wrapped(role, text string, x, y, width, size float64, color Color) float64 {
	lines := wrap(text, width, size)
	advance := lineAdvance(size)
	for {
		n := 0
		for n < len(lines) && y+float64(n)*advance <= breakThreshold {
			n++
		}
		if n == 0 && len(lines) > 0 {
			a.add(Block{Kind: KindPageBreak})
			y = Margin
			continue
		}

		a.text(role, x, y, size, color, lines[:n]...)
		y += float64(n) * advance
		lines = lines[n:]
		if len(lines) == 0 {
			return y + 5
		}
		a.add(Block{Kind: KindPageBreak})
		y = Margin
	}
}

func (a *assembler) rect(role string, x, y, w, h float64, fill Color) {
	c := fill
	a.add(Block{Kind: KindRect, Role: role, X: x, Y: y, Width: w, Height: h, Color: &c})
}

func (a *assembler) circle(role string, x, y, r float64, fill Color) {
	c := fill
	a.add(Block{Kind: KindCircle, Role: role, X: x, Y: y, Radius: r, Color: &c})
}

// breakIfFull starts a new page when the cursor has passed the threshold.
func (a *assembler) breakIfFull() {
	if a.y > breakThreshold {
		a.add(Block{Kind: KindPageBreak})
		a.y = Margin
	}
}

func (a *assembler) header(section types.Section) {
	a.circle(RoleBrand, Margin+10, a.y+10, 8, brandPink)
	a.circle(RoleBrand, Margin+25, a.y+10, 8, brandCyan)
	a.text(RoleHeader, Margin+40, a.y+15, 28, textDark, programTitle)
	a.y += 25

	a.text(RoleTitle, Margin, a.y, 20, brandPink, section.Title)
	a.y += 15

	caption := fmt.Sprintf("Phase %d of %d • Executive Strategy Report", section.Phase, types.TotalPhases)
	a.text(RoleCaption, Margin, a.y, 12, textSubtle, caption)
	a.y += 20
}

func (a *assembler) quote(slug string) {
	a.rect(RoleQuote, Margin, a.y, PageWidth-2*Margin, 25, quoteFill)
	a.text(RoleQuote, Margin+10, a.y+15, 14, textMuted, `"`+QuoteFor(slug)+`"`)
	a.y += 35

	pink := brandPink
	a.add(Block{
		Kind:      KindLine,
		Role:      RoleDivider,
		X:         Margin,
		Y:         a.y,
		X2:        PageWidth - Margin,
		Y2:        a.y,
		LineWidth: 2,
		Color:     &pink,
	})
	a.y += 20
}

func (a *assembler) summary(section types.Section) {
	a.text(RoleHeading, Margin, a.y, 16, textDark, "Executive Summary")
	a.y += 12
	a.y = a.wrapped(RoleSummary, section.Description, Margin, a.y, PageWidth-2*Margin, 12, textBody)
	a.y += 15
}

func (a *assembler) insights(insights []string) {
	if len(insights) == 0 {
		return
	}

	a.breakIfFull()
	a.text(RoleHeading, Margin, a.y, 16, textDark, "Key Insights")
	a.y += 12

	for _, insight := range insights {
		a.breakIfFull()
		a.y = a.wrapped(RoleInsight, `• "`+insight+`"`, Margin+5, a.y, PageWidth-2*Margin-5, 12, textMuted)
		a.y += 8
	}
	a.y += 10
}

func (a *assembler) answers(prompts []types.Prompt, responses types.Responses) {
	headed := false
	for i, prompt := range prompts {
		answer, ok := responses[prompt.ID]
		if !ok {
			continue
		}

		if !headed {
			a.breakIfFull()
			a.text(RoleHeading, Margin, a.y, 16, textDark, "Strategic Assessment Results")
			a.y += 15
			headed = true
		}

		a.breakIfFull()
		a.circle(RoleQuestion, Margin+5, a.y+5, 3, brandPink)
		a.text(RoleQuestion, Margin+15, a.y+7, 13, textDark, fmt.Sprintf("%d. %s", i+1, prompt.Title))
		a.y += 15

		if prompt.Description != nil && *prompt.Description != "" {
			a.y = a.wrapped(RoleQuestionNote, *prompt.Description, Margin+15, a.y, PageWidth-35, 10, textSubtle)
			a.y += 5
		}

		a.y = a.wrapped(RoleAnswer, "Answer: "+answer.String(), Margin+15, a.y, PageWidth-35, 11, textBody)
		a.y += 15
	}
}

func (a *assembler) actions() {
	a.breakIfFull()
	a.text(RoleHeading, Margin, a.y, 16, textDark, "Next Steps & Action Items")
	a.y += 15

	for i, item := range actionItems {
		a.breakIfFull()
		a.rect(RoleAction, Margin, a.y, 3, 8, brandCyan)
		a.y = a.wrapped(RoleAction, fmt.Sprintf("%d. %s", i+1, item), Margin+10, a.y+5, PageWidth-35, 11, textBody)
		a.y += 5
	}
}

func (a *assembler) footer(date time.Time) {
	y := PageHeight - 20
	a.text(RoleFooter, Margin, y, 10, textFooter, "Generated by "+programTitle)
	a.text(RoleFooter, PageWidth-Margin-50, y, 10, textFooter, "Generated on "+date.Format(footerDate))
}
