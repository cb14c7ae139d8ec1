package apifootball

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/prediction"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/teamstats"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/tournament"
	"github.com/riskibarqy/worldcup-predictor/internal/platform/logging"
	"github.com/riskibarqy/worldcup-predictor/internal/platform/resilience"
	"github.com/riskibarqy/worldcup-predictor/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL     = "https://v3.football.api-sports.io"
	defaultMinInterval = 500 * time.Millisecond
	apiKeyHeader       = "x-apisports-key"
	maxResponseBytes   = 4 << 20
)

var apiKeyParamRegex = regexp.MustCompile(`(?i)(key=)[^&\s"']+`)

// errTransient marks failures worth retrying and counted by the breaker.
var errTransient = crerr.New("api-football transient failure")

var finishedStatuses = map[string]struct{}{"FT": {}, "AET": {}, "PEN": {}}

var liveStatuses = map[string]struct{}{
	"1H": {}, "HT": {}, "2H": {}, "ET": {}, "BT": {}, "P": {}, "SUSP": {}, "INT": {}, "LIVE": {},
}

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MinInterval    time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	logger     *logging.Logger
	breaker    *resilience.CircuitBreaker
	flight     singleflight.Group
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 5 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	minInterval := cfg.MinInterval
	if minInterval <= 0 {
		minInterval = defaultMinInterval
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		limiter:    rate.NewLimiter(rate.Every(minInterval), 1),
		logger:     logger.Named("apifootball"),
		breaker:    resilience.NewCircuitBreakerFromConfig(cfg.CircuitBreaker),
	}
}

// FetchRecentMatches returns the team's last finished fixtures, most recent
// first, with expected goals where the provider has them. One call is made
// per fixture for statistics; a failed statistics call leaves XG nil.
func (c *Client) FetchRecentMatches(ctx context.Context, externalTeamID int64, limit int) (teamstats.FetchResult, error) {
	if externalTeamID <= 0 {
		return teamstats.FetchResult{}, fmt.Errorf("%w: team id must be greater than zero", usecase.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 10
	}

	var envelope fixturesEnvelope
	raw, err := c.doJSON(ctx, "/fixtures", map[string]string{
		"team": strconv.FormatInt(externalTeamID, 10),
		"last": strconv.Itoa(limit),
	}, &envelope)
	if err != nil {
		return teamstats.FetchResult{}, fmt.Errorf("fetch fixtures team_id=%d: %w", externalTeamID, err)
	}

	matches := make([]teamstats.RecentMatch, 0, len(envelope.Response))
	for _, item := range envelope.Response {
		match, ok := toRecentMatch(item, externalTeamID)
		if !ok {
			continue
		}
		xg, err := c.fetchExpectedGoals(ctx, item.Fixture.ID, externalTeamID)
		if err != nil {
			if ctx.Err() != nil {
				return teamstats.FetchResult{}, ctx.Err()
			}
			c.logger.DebugContext(ctx, "fixture statistics unavailable", "fixture_id", item.Fixture.ID, "error", err)
		}
		match.XG = xg
		matches = append(matches, match)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].PlayedAt.After(matches[j].PlayedAt)
	})
	return teamstats.FetchResult{Matches: matches, RawPayload: raw}, nil
}

// FetchPrior reads the provider's own outlook for a fixture. The bool is false
// when the provider has no prediction for it.
func (c *Client) FetchPrior(ctx context.Context, externalFixtureID int64) (prediction.Prior, bool, error) {
	if externalFixtureID <= 0 {
		return prediction.Prior{}, false, nil
	}

	var envelope predictionsEnvelope
	if _, err := c.doJSON(ctx, "/predictions", map[string]string{
		"fixture": strconv.FormatInt(externalFixtureID, 10),
	}, &envelope); err != nil {
		return prediction.Prior{}, false, fmt.Errorf("fetch prediction fixture_id=%d: %w", externalFixtureID, err)
	}
	if len(envelope.Response) == 0 {
		return prediction.Prior{}, false, nil
	}

	item := envelope.Response[0]
	prior := prediction.Prior{
		Advice:      strings.TrimSpace(item.Predictions.Advice),
		HomePercent: item.Predictions.Percent.Home,
		DrawPercent: item.Predictions.Percent.Draw,
		AwayPercent: item.Predictions.Percent.Away,
	}
	for _, line := range []struct {
		metric string
		pair   comparisonPair
	}{
		{"Form", item.Comparison.Form},
		{"Attack", item.Comparison.Att},
		{"Defence", item.Comparison.Def},
		{"Head to head", item.Comparison.H2H},
		{"Goals", item.Comparison.Goals},
		{"Total", item.Comparison.Total},
	} {
		if line.pair.Home == "" && line.pair.Away == "" {
			continue
		}
		prior.Comparison = append(prior.Comparison, prediction.ComparisonLine{
			Metric: line.metric,
			Home:   line.pair.Home,
			Away:   line.pair.Away,
		})
	}
	return prior, true, nil
}

// FetchFixtures lists every fixture of a competition season. Knockout
// fixtures whose teams are not drawn yet come back with zero team ids.
func (c *Client) FetchFixtures(ctx context.Context, leagueID int64, season int) (tournament.FixtureFeed, error) {
	if leagueID <= 0 || season <= 0 {
		return tournament.FixtureFeed{}, fmt.Errorf("%w: league and season are required", usecase.ErrInvalidInput)
	}

	var envelope fixturesEnvelope
	raw, err := c.doJSON(ctx, "/fixtures", map[string]string{
		"league": strconv.FormatInt(leagueID, 10),
		"season": strconv.Itoa(season),
	}, &envelope)
	if err != nil {
		return tournament.FixtureFeed{}, fmt.Errorf("fetch fixtures league=%d season=%d: %w", leagueID, season, err)
	}

	out := make([]tournament.ProviderFixture, 0, len(envelope.Response))
	for _, item := range envelope.Response {
		fixture := tournament.ProviderFixture{
			ExternalID:         item.Fixture.ID,
			Status:             matchStatus(item.Fixture.Status.Short),
			HomeExternalTeamID: item.Teams.Home.ID,
			AwayExternalTeamID: item.Teams.Away.ID,
			HomeGoals:          item.Goals.Home,
			AwayGoals:          item.Goals.Away,
		}
		switch {
		case item.Teams.Home.Winner != nil && *item.Teams.Home.Winner:
			fixture.WinnerExternalTeamID = item.Teams.Home.ID
		case item.Teams.Away.Winner != nil && *item.Teams.Away.Winner:
			fixture.WinnerExternalTeamID = item.Teams.Away.ID
		}
		out = append(out, fixture)
	}
	return tournament.FixtureFeed{Fixtures: out, RawPayload: raw}, nil
}

// FetchCards counts card events per team. A second yellow is reported as its
// own event by the provider and is not also counted as a yellow.
func (c *Client) FetchCards(ctx context.Context, externalFixtureID int64) (map[int64]tournament.Cards, error) {
	if externalFixtureID <= 0 {
		return nil, fmt.Errorf("%w: fixture id must be greater than zero", usecase.ErrInvalidInput)
	}

	var envelope eventsEnvelope
	if _, err := c.doJSON(ctx, "/fixtures/events", map[string]string{
		"fixture": strconv.FormatInt(externalFixtureID, 10),
		"type":    "Card",
	}, &envelope); err != nil {
		return nil, fmt.Errorf("fetch card events fixture_id=%d: %w", externalFixtureID, err)
	}

	out := make(map[int64]tournament.Cards)
	for _, event := range envelope.Response {
		if !strings.EqualFold(strings.TrimSpace(event.Type), "card") {
			continue
		}
		cards := out[event.Team.ID]
		detail := strings.ToLower(event.Detail)
		switch {
		case strings.Contains(detail, "second yellow"):
			cards.SecondYellow++
		case strings.Contains(detail, "red"):
			cards.DirectRed++
		case strings.Contains(detail, "yellow"):
			cards.Yellow++
		default:
			continue
		}
		out[event.Team.ID] = cards
	}
	return out, nil
}

func matchStatus(short string) tournament.MatchStatus {
	short = strings.ToUpper(strings.TrimSpace(short))
	if _, ok := finishedStatuses[short]; ok {
		return tournament.MatchStatusFinished
	}
	if _, ok := liveStatuses[short]; ok {
		return tournament.MatchStatusLive
	}
	return tournament.MatchStatusScheduled
}

func (c *Client) fetchExpectedGoals(ctx context.Context, fixtureID, teamID int64) (*float64, error) {
	var envelope statisticsEnvelope
	if _, err := c.doJSON(ctx, "/fixtures/statistics", map[string]string{
		"fixture": strconv.FormatInt(fixtureID, 10),
		"team":    strconv.FormatInt(teamID, 10),
	}, &envelope); err != nil {
		return nil, err
	}

	for _, block := range envelope.Response {
		if block.Team.ID != 0 && block.Team.ID != teamID {
			continue
		}
		for _, stat := range block.Statistics {
			if !strings.EqualFold(strings.TrimSpace(stat.Type), "expected_goals") {
				continue
			}
			return stat.Value.float()
		}
	}
	return nil, nil
}

func toRecentMatch(item fixtureItem, teamID int64) (teamstats.RecentMatch, bool) {
	if _, ok := finishedStatuses[strings.ToUpper(item.Fixture.Status.Short)]; !ok {
		return teamstats.RecentMatch{}, false
	}
	if item.Goals.Home == nil || item.Goals.Away == nil {
		return teamstats.RecentMatch{}, false
	}

	playedAt, _ := time.Parse(time.RFC3339, item.Fixture.Date)
	out := teamstats.RecentMatch{FixtureID: item.Fixture.ID, PlayedAt: playedAt.UTC()}
	switch teamID {
	case item.Teams.Home.ID:
		out.IsHome = true
		out.Opponent = item.Teams.Away.Name
		out.GoalsFor = *item.Goals.Home
		out.GoalsAgainst = *item.Goals.Away
	case item.Teams.Away.ID:
		out.Opponent = item.Teams.Home.Name
		out.GoalsFor = *item.Goals.Away
		out.GoalsAgainst = *item.Goals.Home
	default:
		return teamstats.RecentMatch{}, false
	}
	return out, true
}

// doJSON performs one rate-limited GET. Retries belong to the caller.
func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) ([]byte, error) {
	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}
	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		var raw []byte
		execErr := c.breaker.Execute(func() error {
			var reqErr error
			raw, reqErr = c.executeRequest(ctx, fullURL)
			return reqErr
		}, isCircuitFailure)
		if stderrors.Is(execErr, resilience.ErrCircuitOpen) {
			c.logger.WarnContext(ctx, "api-football circuit breaker rejected request", "state", c.breaker.State())
			return nil, fmt.Errorf("%w: statistics provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
		return raw, execErr
	})
	if err != nil {
		return nil, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", out)
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("%w: decode provider payload: %v", errTransient, err)
	}
	if apiErr := providerErrors(raw); apiErr != nil {
		return nil, apiErr
	}
	return raw, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %s", errTransient, sanitizeSensitiveText(err.Error(), c.apiKey))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", errTransient, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return raw, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %w: provider status=%d body=%s", errTransient, usecase.ErrRateLimited, resp.StatusCode, abbreviateBody(raw))
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: provider status=%d body=%s", errTransient, resp.StatusCode, abbreviateBody(raw))
	default:
		c.logger.WarnContext(ctx, "api-football request rejected", "url", fullURL, "status", resp.StatusCode)
		return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
	}
}

// providerErrors reads the "errors" field API-Football fills on HTTP 200
// responses, e.g. for quota or plan problems.
func providerErrors(raw []byte) error {
	var envelope errorEnvelope
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		return nil
	}
	messages := envelope.messages()
	if len(messages) == 0 {
		return nil
	}

	detail := strings.Join(messages, "; ")
	for key := range envelope.Errors {
		if strings.EqualFold(key, "rateLimit") || strings.EqualFold(key, "requests") {
			return fmt.Errorf("%w: %w: provider errors: %s", errTransient, usecase.ErrRateLimited, detail)
		}
	}
	return fmt.Errorf("provider errors: %s", detail)
}

func isCircuitFailure(err error) bool {
	return stderrors.Is(err, errTransient)
}

func sanitizeSensitiveText(value, key string) string {
	value = strings.TrimSpace(value)
	if key != "" {
		value = strings.ReplaceAll(value, key, "REDACTED")
	}
	return apiKeyParamRegex.ReplaceAllString(value, "${1}REDACTED")
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
