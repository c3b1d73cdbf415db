package sms

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// SendLimiterStore manages per-recipient send limiters: msisdn -> rate limiter.
// It keeps a burst of alarms from flooding one phone (and the provider).
type SendLimiterStore struct {
	limiters     map[string]*rate.Limiter
	mu           sync.Mutex
	defaultRate  rate.Limit
	defaultBurst int
}

func NewSendLimiterStore(defaultRate rate.Limit, defaultBurst int) *SendLimiterStore {
	return &SendLimiterStore{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  defaultRate,
		defaultBurst: defaultBurst,
	}
}

func (s *SendLimiterStore) GetLimiter(msisdn string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, exists := s.limiters[msisdn]
	if !exists {
		limiter = rate.NewLimiter(s.defaultRate, s.defaultBurst)
		s.limiters[msisdn] = limiter
	}
	return limiter
}

// Wait blocks until the recipient's limiter grants a token or ctx is done.
// A nil store never limits.
func (s *SendLimiterStore) Wait(ctx context.Context, msisdn string) error {
	if s == nil {
		return nil
	}
	return s.GetLimiter(msisdn).Wait(ctx)
}
