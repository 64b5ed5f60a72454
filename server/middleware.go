package server

import (
	"bufio"
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/sharanvkt/insane-dashboard-v2/errors"
	"github.com/sharanvkt/insane-dashboard-v2/logger"
)

type identityKey struct{}

// identityFrom returns the authenticated caller stored by requireIdentity.
func identityFrom(ctx context.Context) string {
	id, _ := ctx.Value(identityKey{}).(string)
	return id
}

// statusWriter records the status code for metrics and logging.
// Hijack is forwarded so websocket upgrades pass through.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	if w.status == 0 {
		w.status = http.StatusSwitchingProtocols
	}
	return h.Hijack()
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// instrument records request count and latency under the route pattern
// rather than the raw path, keeping label cardinality bounded.
func (s *DashboardServer) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		if sw.status == 0 {
			sw.status = http.StatusOK
		}

		elapsed := time.Since(start)
		httpRequestDuration.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())
		httpRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(sw.status)).Inc()

		logger.FromContext(r.Context(), s.logger).Debugw("HTTP request",
			logger.FieldMethod, r.Method,
			logger.FieldPath, r.URL.Path,
			logger.FieldStatus, sw.status,
			logger.FieldDurationMS, elapsed.Milliseconds(),
		)
	})
}

// withRequestID tags each request with an id for log correlation, reusing
// one supplied by the proxy.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

// requireIdentity reads the caller identity set by the authenticating proxy.
func (s *DashboardServer) requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := strings.TrimSpace(r.Header.Get(s.cfg.IdentityHeader))
		if identity == "" {
			s.writeServiceError(w, r, ErrUnauthenticated)
			return
		}
		ctx := context.WithValue(r.Context(), identityKey{}, identity)
		ctx = logger.WithActor(ctx, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimit applies the per-identity token bucket. Must run after
// requireIdentity.
func (s *DashboardServer) rateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(identityFrom(r.Context())) {
			rateLimitedTotal.Inc()
			w.Header().Set("Retry-After", strconv.Itoa(s.limiter.retryAfterSeconds()))
			s.writeServiceError(w, r, ErrRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverPanics turns a handler panic into a 500 instead of a dropped connection.
func (s *DashboardServer) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				logger.FromContext(r.Context(), s.logger).Errorw("Handler panic",
					logger.FieldPath, r.URL.Path,
					"panic", p,
				)
				writeError(w, http.StatusInternalServerError, "Something went wrong, please try again")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// identityLimiter hands out one token bucket per identity.
type identityLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*limiterEntry
	idleTTL  time.Duration
	clock    func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newIdentityLimiter returns nil when perMinute is 0 (unlimited).
func newIdentityLimiter(perMinute, burst int) *identityLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &identityLimiter{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		limiters: make(map[string]*limiterEntry),
		idleTTL:  10 * time.Minute,
		clock:    time.Now,
	}
}

func (l *identityLimiter) allow(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	entry, ok := l.limiters[identity]
	if !ok {
		l.evictIdleLocked(now)
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[identity] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// evictIdleLocked drops buckets that have refilled and gone quiet.
func (l *identityLimiter) evictIdleLocked(now time.Time) {
	for id, e := range l.limiters {
		if now.Sub(e.lastSeen) > l.idleTTL {
			delete(l.limiters, id)
		}
	}
}

func (l *identityLimiter) retryAfterSeconds() int {
	secs := int(math.Round(1 / float64(l.limit)))
	if secs < 1 {
		return 1
	}
	return secs
}
