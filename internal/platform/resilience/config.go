package resilience

import "time"

type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	OpenTimeout      time.Duration
	HalfOpenMaxReq   int
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 5,
		OpenTimeout:      15 * time.Second,
		HalfOpenMaxReq:   2,
	}
}

func NormalizeCircuitBreakerConfig(cfg CircuitBreakerConfig) CircuitBreakerConfig {
	defaults := DefaultCircuitBreakerConfig()
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = defaults.OpenTimeout
	}
	if cfg.HalfOpenMaxReq < 1 {
		cfg.HalfOpenMaxReq = defaults.HalfOpenMaxReq
	}
	return cfg
}

// RateLimitConfig bounds outbound request volume against a single upstream.
// Both windows are enforced together: a request proceeds only when the burst
// bucket and the sustained bucket each have a token available.
type RateLimitConfig struct {
	Enabled           bool
	BurstCapacity     int
	BurstWindow       time.Duration
	SustainedCapacity int
	SustainedWindow   time.Duration
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:           true,
		BurstCapacity:     20,
		BurstWindow:       time.Second,
		SustainedCapacity: 100,
		SustainedWindow:   2 * time.Minute,
	}
}

func NormalizeRateLimitConfig(cfg RateLimitConfig) RateLimitConfig {
	defaults := DefaultRateLimitConfig()
	if cfg.BurstCapacity < 1 {
		cfg.BurstCapacity = defaults.BurstCapacity
	}
	if cfg.BurstWindow <= 0 {
		cfg.BurstWindow = defaults.BurstWindow
	}
	if cfg.SustainedCapacity < 1 {
		cfg.SustainedCapacity = defaults.SustainedCapacity
	}
	if cfg.SustainedWindow <= 0 {
		cfg.SustainedWindow = defaults.SustainedWindow
	}
	return cfg
}
