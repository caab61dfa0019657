package usecase

import (
	"math/rand/v2"
	"time"

	"github.com/riskibarqy/match-insights/internal/domain/analysis"
)

// retryBackoffBase spaces retries quadratically: 5s, 20s, 45s before jitter.
const retryBackoffBase = 5 * time.Second

// RetryPolicy decides whether a failed attempt should be re-queued and how
// long to wait before workers may pick it up again. Each delay carries up to
// half its backoff again as random jitter so a burst of simultaneous
// failures does not come back in lockstep. Tests pin the jitter source.
type RetryPolicy struct {
	jitter func(spread time.Duration) time.Duration
}

func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		jitter: func(spread time.Duration) time.Duration {
			if spread <= 0 {
				return 0
			}
			return rand.N(spread)
		},
	}
}

// NextDelay applies the policy to one failed attempt. attempt is the attempt
// that just failed, 1-based.
//
// Permanent failures (missing match, rejected key, rejected request,
// malformed timeline) are never retried: the outcome cannot change. Rate
// limited attempts never come back earlier than the provider asked for,
// jitter included.
func (p *RetryPolicy) NextDelay(reason analysis.FailureReason, retryAfter time.Duration, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts {
		return 0, false
	}

	switch reason {
	case analysis.ReasonNotFound,
		analysis.ReasonAuthError,
		analysis.ReasonUpstreamRejected,
		analysis.ReasonMalformedTimeline:
		return 0, false
	}

	// Upstream outages, storage blips and timeouts are worth another attempt
	// once the backoff has passed.
	delay := backoffForAttempt(attempt)
	delay += p.jitter(delay / 2)
	if reason == analysis.ReasonRateLimited && retryAfter > delay {
		delay = retryAfter
	}
	return delay, true
}

func backoffForAttempt(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(attempt*attempt) * retryBackoffBase
}
