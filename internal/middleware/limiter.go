package middleware

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Rate Limit Tiers
const (
	// Payment callbacks and other sensitive endpoints (Strict)
	limitStrict = rate.Limit(2)
	burstStrict = 5

	// General (Default)
	limitGeneral = rate.Limit(10)
	burstGeneral = 20

	// Frontend-heavy apps
	limitFrontend = rate.Limit(20)
	burstFrontend = 40

	// Internal / trusted services
	limitInternal = rate.Limit(100)
	burstInternal = 200
)

// visitor holds the rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	visitors = make(map[string]*visitor)
	mu       sync.Mutex
)

// init starts the background cleanup routine.
func init() {
	go cleanupVisitors()
}

// getVisitor retrieves or creates a rate limiter for the given bucket key.
func getVisitor(key string, r rate.Limit, b int) *rate.Limiter {
	mu.Lock()
	defer mu.Unlock()

	v, exists := visitors[key]
	if !exists {
		limiter := rate.NewLimiter(r, b)
		visitors[key] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// cleanupVisitors removes old entries from the visitors map to prevent memory leaks.
func cleanupVisitors() {
	for {
		time.Sleep(time.Minute)

		mu.Lock()
		for ip, v := range visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(visitors, ip)
			}
		}
		mu.Unlock()
	}
}

// RateLimitMiddleware checks if the request is allowed by the rate limiter.
func RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, burst, tier := resolveRateTier(r)

		var identity string

		// Prefer user identity, then session, then IP.
		if userID, ok := GetUserIDFromContext(r.Context()); ok {
			identity = fmt.Sprintf("user:%d", userID)
		} else if sessionID := r.Header.Get("X-Session-ID"); sessionID != "" {
			identity = "session:" + sessionID
		} else {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			identity = "ip:" + ip
		}

		// Same identity keeps separate quotas per tier.
		key := fmt.Sprintf("%s:%s", identity, tier)

		limiter := getVisitor(key, limit, burst)
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// resolveRateTier determines which rate limit policy applies to the request.
func resolveRateTier(r *http.Request) (rate.Limit, int, string) {
	// Internal / trusted services (secret header)
	internalKey := os.Getenv("INTERNAL_SECRET_KEY")
	if internalKey != "" && r.Header.Get("X-Service-Auth") == internalKey {
		return limitInternal, burstInternal, "internal"
	}

	// Payment collaborator callbacks (Strict)
	if strings.HasSuffix(r.URL.Path, "/payment-callback") {
		return limitStrict, burstStrict, "strict"
	}

	// Frontend-heavy apps (high volume)
	if r.Header.Get("X-Client-Type") == "frontend-heavy" {
		return limitFrontend, burstFrontend, "frontend"
	}

	return limitGeneral, burstGeneral, "general"
}
