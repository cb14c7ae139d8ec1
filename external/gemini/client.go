package gemini

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/worldcup-predictor/internal/platform/logging"
	"github.com/riskibarqy/worldcup-predictor/internal/platform/resilience"
	"github.com/riskibarqy/worldcup-predictor/internal/usecase"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL     = "https://generativelanguage.googleapis.com"
	defaultModel       = "gemini-2.5-flash"
	defaultTimeout     = 10 * time.Second
	defaultMinInterval = 50 * time.Millisecond
	maxResponseBytes   = 2 << 20
)

var errGeminiTransient = crerr.New("gemini transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Model          string
	Temperature    float64
	Timeout        time.Duration
	MinInterval    time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client calls the generateContent endpoint and returns the first candidate's
// text. It never retries; the prediction generator owns retry policy.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	limiter     *rate.Limiter
	logger      *logging.Logger
	breaker     *resilience.CircuitBreaker
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	minInterval := cfg.MinInterval
	if minInterval <= 0 {
		minInterval = defaultMinInterval
	}

	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		temperature: cfg.Temperature,
		limiter:     rate.NewLimiter(rate.Every(minInterval), 1),
		logger:      logger.Named("gemini"),
		breaker:     resilience.NewCircuitBreakerFromConfig(cfg.CircuitBreaker),
	}
}

func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt is empty", usecase.ErrInvalidInput)
	}
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: gemini api key is not configured", usecase.ErrDependencyUnavailable)
	}

	body, err := c.encodeRequest(prompt)
	if err != nil {
		return "", err
	}

	var text string
	execErr := c.breaker.Execute(func() error {
		var callErr error
		text, callErr = c.call(ctx, body)
		return callErr
	}, isCircuitFailure)
	if stderrors.Is(execErr, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "gemini circuit breaker rejected request", "state", c.breaker.State())
		return "", fmt.Errorf("%w: model is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}
	if execErr != nil {
		return "", execErr
	}
	return text, nil
}

func (c *Client) encodeRequest(prompt string) ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	err := sonic.ConfigDefault.NewEncoder(buf).Encode(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:      c.temperature,
			ResponseMIMEType: "application/json",
		},
	})
	if err != nil {
		return nil, crerr.Wrap(err, "marshal generate request")
	}

	out := make([]byte, buf.Len())
	copy(out, buf.B)
	return out, nil
}

func (c *Client) call(ctx context.Context, body []byte) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return "", crerr.Wrap(err, "create gemini request")
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: send request: %s", errGeminiTransient, redactKey(err.Error(), c.apiKey))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read response body: %v", errGeminiTransient, err)
	}
	c.logger.DebugContext(ctx, "gemini response", "status", resp.StatusCode, "duration_ms", time.Since(started).Milliseconds())

	if resp.StatusCode/100 != 2 {
		return "", statusError(resp.StatusCode, raw)
	}

	var decoded generateResponse
	if err := sonic.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", usecase.ErrMalformedOutput, err)
	}
	if decoded.Error != nil && strings.EqualFold(decoded.Error.Status, "RESOURCE_EXHAUSTED") {
		return "", fmt.Errorf("%w: %w: %s", errGeminiTransient, usecase.ErrRateLimited, decoded.Error.Message)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: response has no candidates", usecase.ErrMalformedOutput)
	}

	var text strings.Builder
	for _, item := range decoded.Candidates[0].Content.Parts {
		text.WriteString(item.Text)
	}
	return text.String(), nil
}

func statusError(status int, raw []byte) error {
	var decoded generateResponse
	_ = sonic.Unmarshal(raw, &decoded)
	detail := abbreviateBody(raw)
	if decoded.Error != nil && decoded.Error.Message != "" {
		detail = decoded.Error.Message
	}

	switch {
	case status == http.StatusTooManyRequests,
		decoded.Error != nil && strings.EqualFold(decoded.Error.Status, "RESOURCE_EXHAUSTED"):
		return fmt.Errorf("%w: %w: status=%d %s", errGeminiTransient, usecase.ErrRateLimited, status, detail)
	case status == http.StatusRequestTimeout || status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: status=%d %s", errGeminiTransient, status, detail)
	default:
		return fmt.Errorf("gemini status=%d %s", status, detail)
	}
}

func isCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	// Quota answers mean the service is up.
	return stderrors.Is(err, errGeminiTransient) && !stderrors.Is(err, usecase.ErrRateLimited)
}

func redactKey(value, key string) string {
	if key == "" {
		return value
	}
	return strings.ReplaceAll(value, url.QueryEscape(key), "REDACTED")
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
