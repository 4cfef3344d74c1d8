package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines per-client rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int

	// TTL is how long an idle client keeps its limiter before the sweep
	// reclaims it. Zero means DefaultClientTTL.
	TTL time.Duration
}

// DefaultClientTTL bounds how long a departed client's limiter lingers.
const DefaultClientTTL = 3 * time.Minute

// RateLimit creates a per-IP rate limiting middleware. Syscall injection and
// tick driving make individual clients chatty, so each IP gets its own token
// bucket rather than sharing a global one. Idle clients are swept lazily so
// the map cannot grow without bound.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultClientTTL
	}

	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu        sync.Mutex
		clients   = make(map[string]*client)
		lastSweep = time.Now()
	)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		if now.Sub(lastSweep) > ttl {
			for addr, cl := range clients {
				if now.Sub(cl.lastSeen) > ttl {
					delete(clients, addr)
				}
			}
			lastSweep = now
		}
		cl, ok := clients[ip]
		if !ok {
			cl = &client{
				limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
			}
			clients[ip] = cl
		}
		cl.lastSeen = now
		mu.Unlock()

		if !cl.limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
