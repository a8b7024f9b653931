// Package workers holds the app's background loops.
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/souqhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// BrowserSessions is the persisted side of browser sessions.
type BrowserSessions interface {
	// CloseInactive marks sessions idle longer than threshold as ended and
	// returns their ids.
	CloseInactive(ctx context.Context, threshold time.Duration) ([]string, error)
	DeleteClosedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Managers is the in-process side: live session managers keyed by
// browser-session id.
type Managers interface {
	Close(sid string) bool
	CloseIdle(idle time.Duration) []string
}

// TokenPurger deletes refresh tokens that can no longer be used.
type TokenPurger interface {
	PurgeTokens(ctx context.Context, cutoff time.Time) (int64, error)
}

// ReaperConfig tunes the SessionReaper.
type ReaperConfig struct {
	Interval time.Duration
	// Idle is how long a browser session may go unused before it is closed.
	Idle time.Duration
	// Retention is how long closed sessions and dead refresh tokens are kept.
	Retention time.Duration
}

// SessionReaper closes idle browser sessions: it stops their managers
// (which unsubscribes them from auth events) and marks the stored records
// ended. It also prunes old closed sessions and refresh tokens.
type SessionReaper struct {
	sessions BrowserSessions
	managers Managers
	tokens   TokenPurger
	cfg      ReaperConfig
	log      *zap.Logger
	now      func() time.Time

	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewSessionReaper creates a reaper. tokens may be nil.
func NewSessionReaper(sessions BrowserSessions, managers Managers, tokens TokenPurger, cfg ReaperConfig, logger *zap.Logger) *SessionReaper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Idle <= 0 {
		cfg.Idle = 30 * time.Minute
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	return &SessionReaper{
		sessions: sessions,
		managers: managers,
		tokens:   tokens,
		cfg:      cfg,
		log:      logger,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background loop.
func (w *SessionReaper) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("session reaper started",
		zap.Duration("interval", w.cfg.Interval),
		zap.Duration("idle", w.cfg.Idle))
}

// Stop signals the loop to stop and waits for it.
func (w *SessionReaper) Stop() {
	w.once.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("session reaper stopped")
}

func (w *SessionReaper) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), timeouts.Long())
			w.Sweep(ctx)
			cancel()
		}
	}
}

// Sweep runs one pass.
func (w *SessionReaper) Sweep(ctx context.Context) {
	closed := 0
	ids, err := w.sessions.CloseInactive(ctx, w.cfg.Idle)
	if err != nil {
		w.log.Error("close inactive browser sessions", zap.Error(err))
	}
	for _, id := range ids {
		if w.managers.Close(id) {
			closed++
		}
	}
	// Managers whose stored record was already closed elsewhere.
	closed += len(w.managers.CloseIdle(w.cfg.Idle))

	if len(ids) > 0 || closed > 0 {
		w.log.Info("closed idle sessions",
			zap.Int("records", len(ids)),
			zap.Int("managers", closed))
	}

	cutoff := w.now().Add(-w.cfg.Retention)
	if n, err := w.sessions.DeleteClosedBefore(ctx, cutoff); err != nil {
		w.log.Error("delete old browser sessions", zap.Error(err))
	} else if n > 0 {
		w.log.Debug("deleted old browser sessions", zap.Int64("count", n))
	}

	if w.tokens == nil {
		return
	}
	if n, err := w.tokens.PurgeTokens(ctx, cutoff); err != nil {
		w.log.Error("purge refresh tokens", zap.Error(err))
	} else if n > 0 {
		w.log.Debug("purged refresh tokens", zap.Int64("count", n))
	}
}
