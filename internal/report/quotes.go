package report

var sectionQuotes = map[string]string{
	"personal-power":     "Your mindset is your greatest asset. Everything else is just tactics.",
	"big-idea":           "Ideas are common. Execution is rare. Transformation is legendary.",
	"market-trends":      "The future belongs to those who see it coming.",
	"competitor-secrets": "Your competition teaches you how to win their customers.",
	"audience":           "Speak to everyone, and you speak to no one. Precision creates profit.",
	"new-brand":          "Your brand is what people say about you when you're not in the room.",
	"execute":            "Strategy without execution is hallucination. Execution without strategy is chaos.",
}

// DefaultQuote is used for sections without an entry in the quote table.
const DefaultQuote = "Excellence is not an act, but a habit."

// QuoteFor returns the quote printed for the section slug.
func QuoteFor(slug string) string {
	if quote, ok := sectionQuotes[slug]; ok {
		return quote
	}
	return defaultQuote(slug)
}

// defaultQuote is the fallback for slugs added after the table was written.
func defaultQuote(string) string {
	return DefaultQuote
}

var actionItems = [...]string{
	"Review and refine your responses based on new insights gained",
	"Implement the strategic recommendations outlined in this assessment",
	"Schedule follow-up sessions to track progress and adjust strategy",
	"Share key findings with your core team for alignment and execution",
	"Set measurable milestones for the next 30, 60, and 90 days",
}
