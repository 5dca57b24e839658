package ratelimit

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

var (
	// Auto remove an idle address after this long
	LRU_EXPIRE_TIME = time.Minute

	// Max amount of addresses tracked at once
	LRU_SIZE = 1024
)

// Throttles requests per remote IP address.
// Safe for concurrent use.
type IpRateLimiter struct {
	// Map key is the remote IP
	limiters *expirable.LRU[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
	mutex    *sync.Mutex
}

// Allows perSecond requests per second for each IP,
// with bursts of up to burst requests.
func NewIpRateLimiter(perSecond float64, burst int) *IpRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &IpRateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](LRU_SIZE, nil, LRU_EXPIRE_TIME),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		mutex:    &sync.Mutex{},
	}
}

// Reports whether a request from ip may proceed now.
func (i *IpRateLimiter) Allow(ip string) bool {
	return i.limiterFor(ip).Allow()
}

func (i *IpRateLimiter) limiterFor(ip string) *rate.Limiter {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	limiter, exists := i.limiters.Get(ip)
	if !exists {
		limiter = rate.NewLimiter(i.limit, i.burst)
		i.limiters.Add(ip, limiter)
	}
	return limiter
}
