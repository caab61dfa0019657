package riot

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/match-insights/internal/domain/match"
	"github.com/riskibarqy/match-insights/internal/platform/logging"
	"github.com/riskibarqy/match-insights/internal/platform/resilience"
	"github.com/riskibarqy/match-insights/internal/usecase"
)

const (
	defaultRegion  = "americas"
	apiKeyHeader   = "X-Riot-Token"
	maxBodyBytes   = 6 << 20
	matchPath      = "/lol/match/v5/matches/%s"
	timelinePath   = "/lol/match/v5/matches/%s/timeline"
	defaultTimeout = 20 * time.Second
)

var errRiotTransient = crerr.New("riot transient failure")

// Match-v5 is served per continental cluster.
var routingHosts = map[string]string{
	"americas": "https://americas.api.riotgames.com",
	"europe":   "https://europe.api.riotgames.com",
	"asia":     "https://asia.api.riotgames.com",
	"sea":      "https://sea.api.riotgames.com",
}

// Platform ids resolve to their continental cluster so callers can pass
// either form.
var platformRouting = map[string]string{
	"br1": "americas", "la1": "americas", "la2": "americas", "na1": "americas",
	"eun1": "europe", "euw1": "europe", "me1": "europe", "ru": "europe", "tr1": "europe",
	"jp1": "asia", "kr": "asia",
	"oc1": "sea", "ph2": "sea", "sg2": "sea", "th2": "sea", "tw2": "sea", "vn2": "sea",
}

type ClientConfig struct {
	HTTPClient *http.Client
	// BaseURL overrides regional routing entirely when set. Leave empty in
	// production so the region on each request picks the cluster.
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
	Limiter        *resilience.Limiter
}

type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxRetries     int
	backoffBase    time.Duration
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	limiter        *resilience.Limiter
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:         strings.TrimSpace(cfg.APIKey),
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		backoffBase:    time.Second,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
		limiter:        cfg.Limiter,
	}
}

// GetMatch fetches the post-game summary for one match.
func (c *Client) GetMatch(ctx context.Context, region, matchID string) (match.Summary, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return match.Summary{}, fmt.Errorf("%w: match id is required", usecase.ErrInvalidInput)
	}

	var envelope matchEnvelope
	path := fmt.Sprintf(matchPath, url.PathEscape(matchID))
	if err := c.doJSON(ctx, region, path, &envelope); err != nil {
		return match.Summary{}, fmt.Errorf("fetch match match_id=%s: %w", matchID, err)
	}
	return envelope.toDomain(), nil
}

// GetTimeline fetches the per-minute frame timeline for one match.
func (c *Client) GetTimeline(ctx context.Context, region, matchID string) (match.Timeline, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return match.Timeline{}, fmt.Errorf("%w: match id is required", usecase.ErrInvalidInput)
	}

	var envelope timelineEnvelope
	path := fmt.Sprintf(timelinePath, url.PathEscape(matchID))
	if err := c.doJSON(ctx, region, path, &envelope); err != nil {
		return match.Timeline{}, fmt.Errorf("fetch timeline match_id=%s: %w", matchID, err)
	}
	return envelope.toDomain(), nil
}

func (c *Client) doJSON(ctx context.Context, region, path string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "riot circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: match data provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.hostFor(region) + path

	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		if c.limiter != nil {
			if err := c.limiter.Acquire(ctx); err != nil {
				return nil, err
			}
		}

		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if isRiotCircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")
		req.Header.Set(apiKeyHeader, c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errRiotTransient, sanitizeSensitiveText(err.Error(), c.apiKey))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errRiotTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case resp.StatusCode == http.StatusTooManyRequests:
				// The shared limiter should keep us under budget; when the
				// provider still answers 429 the task gets re-queued, so
				// burning local retries here only doubles the damage.
				return nil, &usecase.RateLimitedError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
			case resp.StatusCode == http.StatusNotFound:
				return nil, fmt.Errorf("%w: match does not exist in this region", usecase.ErrNotFound)
			case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
				return nil, fmt.Errorf("%w: provider rejected api key status=%d", usecase.ErrUnauthorized, resp.StatusCode)
			case resp.StatusCode >= http.StatusInternalServerError:
				lastErr = fmt.Errorf("%w: %w", errRiotTransient, &usecase.UpstreamError{Status: resp.StatusCode, Body: abbreviateBody(raw)})
			default:
				return nil, &usecase.UpstreamError{Status: resp.StatusCode, Body: abbreviateBody(raw)}
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * c.backoffBase
		// ±25% jitter.
		backoff += time.Duration(float64(backoff) * 0.25 * (rand.Float64()*2 - 1))
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "riot request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func (c *Client) hostFor(region string) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	key := strings.ToLower(strings.TrimSpace(region))
	if cluster, ok := platformRouting[key]; ok {
		key = cluster
	}
	if host, ok := routingHosts[key]; ok {
		return host
	}
	return routingHosts[defaultRegion]
}

func parseRetryAfter(header string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func isRiotCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errRiotTransient)
}

func sanitizeSensitiveText(value, apiKey string) string {
	value = strings.TrimSpace(value)
	if value == "" || apiKey == "" {
		return value
	}
	return strings.ReplaceAll(value, apiKey, "REDACTED")
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}
