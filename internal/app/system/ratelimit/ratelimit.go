// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter counts attempts per key in fixed windows. It is safe for
// concurrent use. Call Stop when done to end the sweeper.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type window struct {
	count     int
	expiresAt time.Time
}

// New allows limit attempts per key every period.
func New(limit int, period time.Duration) *Limiter {
	l := &Limiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.sweep(2 * period)
	return l
}

// Allow records an attempt for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.period)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Remaining is how many attempts key has left in its current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !l.now().Before(w.expiresAt) {
		return l.limit
	}
	return max(l.limit-w.count, 0)
}

// Reset forgets key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	delete(l.windows, key)
	l.mu.Unlock()
}

// Stop ends the background sweeper. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) sweep(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-t.C:
			l.mu.Lock()
			now := l.now()
			for k, w := range l.windows {
				if !now.Before(w.expiresAt) {
					delete(l.windows, k)
				}
			}
			l.mu.Unlock()
		}
	}
}

// ClientIP is the first X-Forwarded-For entry, then X-Real-IP, then the
// RemoteAddr host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Messages shown when an auth form is throttled.
const (
	MsgTooManyFromIP     = "محاولات كثيرة. انتظر دقيقة ثم حاول مرة أخرى"
	MsgTooManyForAccount = "محاولات كثيرة لهذا الحساب. انتظر بضع دقائق ثم حاول مرة أخرى"
)

const (
	defaultIPLimit       = 10
	defaultIPPeriod      = time.Minute
	defaultAccountLimit  = 5
	defaultAccountPeriod = 5 * time.Minute
)

// AuthLimiter throttles the sign-in and sign-up forms per client IP and,
// for sign-in, per account email.
type AuthLimiter struct {
	ip      *Limiter
	account *Limiter
}

// NewAuthLimiter allows 10 attempts per IP per minute and 5 sign-ins per
// email per 5 minutes.
func NewAuthLimiter() *AuthLimiter {
	return NewAuthLimiterWith(defaultIPLimit, defaultIPPeriod, defaultAccountLimit, defaultAccountPeriod)
}

func NewAuthLimiterWith(ipLimit int, ipPeriod time.Duration, accountLimit int, accountPeriod time.Duration) *AuthLimiter {
	return &AuthLimiter{
		ip:      New(ipLimit, ipPeriod),
		account: New(accountLimit, accountPeriod),
	}
}

func accountKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CheckSignIn records a sign-in attempt. It returns "" when allowed, or the
// message to show.
func (a *AuthLimiter) CheckSignIn(r *http.Request, email string) string {
	if !a.ip.Allow(ClientIP(r)) {
		return MsgTooManyFromIP
	}
	if k := accountKey(email); k != "" && !a.account.Allow(k) {
		return MsgTooManyForAccount
	}
	return ""
}

// CheckSignUp records a registration attempt against the client IP.
func (a *AuthLimiter) CheckSignUp(r *http.Request) string {
	if !a.ip.Allow(ClientIP(r)) {
		return MsgTooManyFromIP
	}
	return ""
}

// SignedIn clears the account counter after a successful sign-in.
func (a *AuthLimiter) SignedIn(email string) {
	if k := accountKey(email); k != "" {
		a.account.Reset(k)
	}
}

// Stop ends both sweepers.
func (a *AuthLimiter) Stop() {
	a.ip.Stop()
	a.account.Stop()
}
