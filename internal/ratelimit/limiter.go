package ratelimit

import "context"

// RateLimiter throttles upstream registry calls per provider.
type RateLimiter interface {
	Allow(ctx context.Context, provider string) (bool, error)
	Wait(ctx context.Context, provider string) error
}
