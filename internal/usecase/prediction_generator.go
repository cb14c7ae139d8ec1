package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/prediction"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/ranking"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/teamstats"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/tournament"
	"github.com/riskibarqy/worldcup-predictor/internal/platform/logging"
)

type GenerationOutcome string

const (
	GenerationSuccess        GenerationOutcome = "success"
	GenerationRetriedSuccess GenerationOutcome = "retried_success"
	GenerationFallback       GenerationOutcome = "fallback"
)

const (
	defaultAIRetryDelay   = time.Second
	defaultAIMaxRetries   = 1
	defaultAIReasoning    = "AI prediction"
	defaultWinProbability = 0.5
	defaultPredictedScore = 1
)

type TeamContext struct {
	Team    tournament.Team
	Stats   teamstats.Snapshot
	Ranking *ranking.Ranking
}

// Matchup is everything the prompt is built from.
type Matchup struct {
	MatchID string
	Stage   tournament.Stage
	Home    TeamContext
	Away    TeamContext
	Prior   *prediction.Prior
}

type Generation struct {
	Prediction  prediction.Prediction
	Source      prediction.Source
	Outcome     GenerationOutcome
	Attempts    int
	RateLimited bool
	LastErr     error
}

type PredictionGeneratorConfig struct {
	// RetryDelay is the fixed wait before the single retry.
	RetryDelay time.Duration
}

// PredictionGenerator asks the language model for a prediction and falls back
// to the rule-based one when the model cannot answer.
type PredictionGenerator struct {
	client     prediction.Generator
	validate   *validator.Validate
	retryDelay time.Duration
	maxRetries int
	logger     *logging.Logger
	sleep      func(context.Context, time.Duration) error
}

func NewPredictionGenerator(client prediction.Generator, cfg PredictionGeneratorConfig, logger *logging.Logger) *PredictionGenerator {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultAIRetryDelay
	}
	return &PredictionGenerator{
		client:     client,
		validate:   validator.New(),
		retryDelay: cfg.RetryDelay,
		maxRetries: defaultAIMaxRetries,
		logger:     logger.Named("prediction_generator"),
		sleep:      sleepContext,
	}
}

type generationState int

const (
	stateCall generationState = iota
	stateWaitRetry
	stateSucceeded
	stateFallback
)

// Generate never fails: every path ends in either a model prediction or the
// rule-based fallback.
func (g *PredictionGenerator) Generate(ctx context.Context, matchup Matchup) Generation {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionGenerator.Generate")
	defer span.End()

	var (
		result Generation
		parsed prediction.Prediction
		prompt = BuildPredictionPrompt(matchup)
		state  = stateCall
	)
	if g.client == nil {
		result.LastErr = fmt.Errorf("%w: ai provider is not configured", ErrDependencyUnavailable)
		state = stateFallback
	}

	for {
		switch state {
		case stateCall:
			result.Attempts++
			pred, err := g.call(ctx, prompt)
			if err == nil {
				parsed = pred
				state = stateSucceeded
				continue
			}
			result.LastErr = err
			switch {
			case errors.Is(err, ErrRateLimited):
				result.RateLimited = true
				state = stateFallback
			case result.Attempts > g.maxRetries:
				state = stateFallback
			default:
				g.logger.WarnContext(ctx, "ai prediction attempt failed, retrying",
					"match_id", matchup.MatchID,
					"attempt", result.Attempts,
					"retry_in", g.retryDelay.String(),
					"error", err,
				)
				state = stateWaitRetry
			}

		case stateWaitRetry:
			if err := g.sleep(ctx, g.retryDelay); err != nil {
				result.LastErr = err
				state = stateFallback
				continue
			}
			state = stateCall

		case stateSucceeded:
			result.Prediction = parsed
			result.Source = prediction.SourceAI
			result.Outcome = GenerationSuccess
			if result.Attempts > 1 {
				result.Outcome = GenerationRetriedSuccess
			}
			result.LastErr = nil
			g.logger.InfoContext(ctx, "ai prediction generated",
				"match_id", matchup.MatchID,
				"outcome", result.Outcome,
				"attempts", result.Attempts,
				"winner", parsed.Winner,
			)
			return result

		case stateFallback:
			result.Prediction = prediction.RuleBased(matchup.Home.Team.Name, matchup.Away.Team.Name, matchup.Home.Stats, matchup.Away.Stats)
			result.Source = prediction.SourceFallback
			result.Outcome = GenerationFallback
			g.logger.WarnContext(ctx, "using rule-based prediction",
				"match_id", matchup.MatchID,
				"attempts", result.Attempts,
				"rate_limited", result.RateLimited,
				"degraded", true,
				"error", result.LastErr,
			)
			return result
		}
	}
}

func (g *PredictionGenerator) call(ctx context.Context, prompt string) (prediction.Prediction, error) {
	text, err := g.client.GenerateContent(ctx, prompt)
	if err != nil {
		return prediction.Prediction{}, err
	}
	return g.parse(text)
}

type aiPredictionPayload struct {
	Winner             *string  `json:"winner"`
	WinProbability     *float64 `json:"win_probability"`
	PredictedHomeScore *int     `json:"predicted_home_score"`
	PredictedAwayScore *int     `json:"predicted_away_score"`
	Reasoning          *string  `json:"reasoning"`
	Confidence         *string  `json:"confidence"`
}

// parse accepts bare JSON or JSON wrapped in a markdown code fence. Only the
// winner is mandatory; the other fields get defaults before validation.
func (g *PredictionGenerator) parse(text string) (prediction.Prediction, error) {
	body := stripCodeFence(text)
	if body == "" {
		return prediction.Prediction{}, fmt.Errorf("%w: empty response", ErrMalformedOutput)
	}

	var payload aiPredictionPayload
	if err := sonic.UnmarshalString(body, &payload); err != nil {
		return prediction.Prediction{}, fmt.Errorf("%w: decode prediction: %v", ErrMalformedOutput, err)
	}
	if payload.Winner == nil || strings.TrimSpace(*payload.Winner) == "" {
		return prediction.Prediction{}, fmt.Errorf("%w: winner is missing", ErrMalformedOutput)
	}

	out := prediction.Prediction{
		Winner:             normalizeWinner(*payload.Winner),
		WinProbability:     defaultWinProbability,
		PredictedHomeScore: defaultPredictedScore,
		PredictedAwayScore: defaultPredictedScore,
		Reasoning:          defaultAIReasoning,
		Confidence:         prediction.ConfidenceMedium,
	}
	if payload.WinProbability != nil {
		out.WinProbability = *payload.WinProbability
	}
	if payload.PredictedHomeScore != nil {
		out.PredictedHomeScore = *payload.PredictedHomeScore
	}
	if payload.PredictedAwayScore != nil {
		out.PredictedAwayScore = *payload.PredictedAwayScore
	}
	if payload.Reasoning != nil && strings.TrimSpace(*payload.Reasoning) != "" {
		out.Reasoning = strings.TrimSpace(*payload.Reasoning)
	}
	if payload.Confidence != nil && strings.TrimSpace(*payload.Confidence) != "" {
		out.Confidence = prediction.Confidence(strings.ToLower(strings.TrimSpace(*payload.Confidence)))
	}

	if err := g.validate.Struct(out); err != nil {
		return prediction.Prediction{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return out, nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func normalizeWinner(winner string) string {
	winner = strings.TrimSpace(winner)
	if strings.EqualFold(winner, prediction.WinnerDraw) {
		return prediction.WinnerDraw
	}
	return winner
}

// BuildPredictionPrompt renders the matchup as a plain-text prompt that asks
// for a single JSON object.
func BuildPredictionPrompt(m Matchup) string {
	var b strings.Builder
	b.WriteString("Predict the result of this FIFA World Cup 2026 match")
	if m.Stage != "" && m.Stage != tournament.StageGroup {
		fmt.Fprintf(&b, " (%s)", strings.ReplaceAll(string(m.Stage), "_", " "))
	}
	b.WriteString(":\n\n")

	writeTeamSection(&b, "Home team", m.Home)
	b.WriteString("\n")
	writeTeamSection(&b, "Away team", m.Away)

	if p := m.Prior; p != nil {
		b.WriteString("\nStatistical model outlook:\n")
		fmt.Fprintf(&b, "- Win chance: home %s, draw %s, away %s\n", orNA(p.HomePercent), orNA(p.DrawPercent), orNA(p.AwayPercent))
		fmt.Fprintf(&b, "- Advice: %s\n", orNA(p.Advice))
		for _, line := range p.Comparison {
			fmt.Fprintf(&b, "- %s: %s (home) vs %s (away)\n", line.Metric, orNA(line.Home), orNA(line.Away))
		}
		b.WriteString("Use this outlook as a baseline and refine it with the form, xG and clean sheet figures above.\n")
	}

	b.WriteString(`
Answer with JSON only, using exactly this schema:
{
  "winner": "team name or Draw",
  "win_probability": 0.0-1.0,
  "predicted_home_score": integer,
  "predicted_away_score": integer,
  "reasoning": "short explanation in English (max 200 characters)",
  "confidence": "low | medium | high"
}`)
	return b.String()
}

func writeTeamSection(b *strings.Builder, label string, team TeamContext) {
	fmt.Fprintf(b, "%s: %s\n", label, team.Team.Name)
	if team.Stats.AvgXG != nil {
		fmt.Fprintf(b, "- Average xG: %.2f\n", *team.Stats.AvgXG)
	} else {
		b.WriteString("- Average xG: N/A\n")
	}
	fmt.Fprintf(b, "- Clean sheets: %d\n", team.Stats.CleanSheets)
	fmt.Fprintf(b, "- Recent form: %s\n", orNA(team.Stats.FormString))
	if r := team.Ranking; r != nil && r.Rank > 0 {
		fmt.Fprintf(b, "- FIFA ranking: #%d (%.2f points", r.Rank, r.Points)
		if r.Confederation != "" {
			fmt.Fprintf(b, ", %s", r.Confederation)
		}
		b.WriteString(")\n")
	}
}

func orNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return "N/A"
	}
	return value
}
