package fifaranking

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/worldcup-predictor/internal/domain/ranking"
	"github.com/riskibarqy/worldcup-predictor/internal/platform/logging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	defaultPageURL     = "https://inside.fifa.com/fifa-world-ranking/men"
	defaultAPIURL      = "https://inside.fifa.com/api/ranking-overview"
	defaultMinInterval = 2 * time.Second
	defaultUserAgent   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxResponseBytes   = 8 << 20
)

var (
	errRankingTransient = crerr.New("fifa ranking transient failure")
	retryDelays         = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
)

type ClientConfig struct {
	HTTPClient  *http.Client
	PageURL     string
	APIURL      string
	Timeout     time.Duration
	MinInterval time.Duration
	Logger      *logging.Logger
}

// Client reads the published men's world ranking in two steps: the ranking
// page gives the latest date id, the overview API gives the table for it.
type Client struct {
	httpClient *http.Client
	pageURL    string
	apiURL     string
	limiter    *rate.Limiter
	logger     *logging.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	pageURL := strings.TrimSpace(cfg.PageURL)
	if pageURL == "" {
		pageURL = defaultPageURL
	}
	apiURL := strings.TrimSpace(cfg.APIURL)
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	minInterval := cfg.MinInterval
	if minInterval <= 0 {
		minInterval = defaultMinInterval
	}

	return &Client{
		httpClient: httpClient,
		pageURL:    pageURL,
		apiURL:     apiURL,
		limiter:    rate.NewLimiter(rate.Every(minInterval), 1),
		logger:     logger.Named("fifaranking"),
		sleep:      sleepContext,
	}
}

func (c *Client) FetchLatest(ctx context.Context) ([]ranking.Ranking, error) {
	dateID, err := c.latestDateID(ctx)
	if err != nil {
		return nil, err
	}

	values := url.Values{}
	values.Set("locale", "en")
	values.Set("dateId", dateID)
	raw, err := c.get(ctx, c.apiURL+"?"+values.Encode(), "application/json")
	if err != nil {
		return nil, fmt.Errorf("fetch ranking overview date_id=%s: %w", dateID, err)
	}

	var overview overviewResponse
	if err := sonic.Unmarshal(raw, &overview); err != nil {
		return nil, crerr.Wrap(err, "decode ranking overview")
	}

	out := make([]ranking.Ranking, 0, len(overview.Rankings))
	for _, item := range overview.Rankings {
		entry := item.RankingItem
		name := strings.TrimSpace(entry.Name)
		if entry.Rank == nil || name == "" {
			continue
		}
		row := ranking.Ranking{
			Rank:          *entry.Rank,
			TeamName:      name,
			FIFACode:      strings.ToUpper(strings.TrimSpace(entry.CountryCode)),
			Confederation: strings.TrimSpace(item.Tag.ID),
			Points:        entry.TotalPoints,
		}
		if entry.PreviousRank != nil {
			row.PreviousRank = *entry.PreviousRank
		}
		out = append(out, row)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ranking overview date_id=%s returned no teams", dateID)
	}

	c.logger.InfoContext(ctx, "fifa ranking fetched", "date_id", dateID, "teams", len(out))
	return out, nil
}

func (c *Client) latestDateID(ctx context.Context) (string, error) {
	raw, err := c.get(ctx, c.pageURL, "text/html,application/xhtml+xml")
	if err != nil {
		return "", fmt.Errorf("fetch ranking page: %w", err)
	}
	return parseLatestDateID(raw)
}

func parseLatestDateID(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return "", crerr.Wrap(err, "parse ranking page")
	}

	script := strings.TrimSpace(doc.Find("script#__NEXT_DATA__").First().Text())
	if script == "" {
		return "", crerr.New("ranking page has no __NEXT_DATA__ script")
	}

	var next nextData
	if err := sonic.UnmarshalString(script, &next); err != nil {
		return "", crerr.Wrap(err, "decode __NEXT_DATA__")
	}
	years := next.Props.PageProps.PageData.Ranking.Dates
	if len(years) == 0 || len(years[0].Dates) == 0 {
		return "", crerr.New("ranking page lists no ranking dates")
	}
	dateID := strings.TrimSpace(years[0].Dates[0].ID)
	if dateID == "" {
		return "", crerr.New("latest ranking date has no id")
	}
	return dateID, nil
}

// get retries transient failures with 1s, 2s and 4s waits. Every attempt,
// first included, waits on the polite-request limiter.
func (c *Client) get(ctx context.Context, target, accept string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= len(retryDelays); attempt++ {
		if attempt > 0 {
			delay := retryDelays[attempt-1]
			c.logger.WarnContext(ctx, "fifa request failed, retrying", "attempt", attempt, "delay", delay.String(), "error", lastErr)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		raw, err := c.do(ctx, target, accept)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !stderrors.Is(err, errRankingTransient) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) do(ctx context.Context, target, accept string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, crerr.Wrap(err, "create fifa request")
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Referer", c.pageURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %v", errRankingTransient, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", errRankingTransient, err)
	}
	if resp.StatusCode/100 != 2 {
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: status=%d", errRankingTransient, resp.StatusCode)
		}
		return nil, fmt.Errorf("fifa request status=%d", resp.StatusCode)
	}
	return raw, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type nextData struct {
	Props struct {
		PageProps struct {
			PageData struct {
				Ranking struct {
					Dates []struct {
						Dates []struct {
							ID       string `json:"id"`
							DateText string `json:"dateText"`
						} `json:"dates"`
					} `json:"dates"`
				} `json:"ranking"`
			} `json:"pageData"`
		} `json:"pageProps"`
	} `json:"props"`
}

type overviewResponse struct {
	Rankings []struct {
		RankingItem struct {
			Rank         *int    `json:"rank"`
			PreviousRank *int    `json:"previousRank"`
			Name         string  `json:"name"`
			CountryCode  string  `json:"countryCode"`
			TotalPoints  float64 `json:"totalPoints"`
		} `json:"rankingItem"`
		Tag struct {
			ID string `json:"id"`
		} `json:"tag"`
	} `json:"rankings"`
}
