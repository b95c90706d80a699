package middleware

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// IPRateLimiter hands out one token-bucket limiter per client IP.
type IPRateLimiter struct {
	limiters sync.Map // ip -> *rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewIPRateLimiter creates a rate limiter allowing r requests/sec with the
// given burst size per IP.
func NewIPRateLimiter(r rate.Limit, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		rate:  r,
		burst: burst,
	}
}

func (i *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	limiter, exists := i.limiters.Load(ip)
	if !exists {
		newLimiter := rate.NewLimiter(i.rate, i.burst)
		i.limiters.Store(ip, newLimiter)
		return newLimiter
	}
	return limiter.(*rate.Limiter)
}

// Allow reports whether the request from ip is within the rate limit.
func (i *IPRateLimiter) Allow(ip string) bool {
	return i.getLimiter(ip).Allow()
}

// RateLimit returns an HTTP middleware that rejects requests exceeding the
// configured rate with 429 Too Many Requests. Relies on an upstream RealIP
// middleware to normalize RemoteAddr.
func RateLimit(r float64, burst int) func(http.Handler) http.Handler {
	limiter := NewIPRateLimiter(rate.Limit(r), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r.RemoteAddr) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
