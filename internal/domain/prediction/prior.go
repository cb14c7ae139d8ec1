package prediction

import "context"

// Prior is the statistics provider's own outlook for a fixture. Percentages
// are kept as the provider formats them, e.g. "45%".
type Prior struct {
	Advice      string
	HomePercent string
	DrawPercent string
	AwayPercent string
	Comparison  []ComparisonLine
}

type ComparisonLine struct {
	Metric string
	Home   string
	Away   string
}

type PriorProvider interface {
	FetchPrior(ctx context.Context, externalFixtureID int64) (Prior, bool, error)
}

// Generator sends a prompt to the language model and returns its raw text.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}
