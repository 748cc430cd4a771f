package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/walletbot/core/logger"
)

const (
	// DefaultExpiry is the idle time after which a session is swept.
	DefaultExpiry = 24 * time.Hour
	// DefaultSweepInterval is how often the sweeper runs.
	DefaultSweepInterval = time.Hour
)

// Options configures a Store.
type Options struct {
	Backend Backend
	Expiry  time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Store is the in-memory session table backed by a durable Backend.
// Each session has its own mutex; the table lock only guards lookup and insert.
type Store struct {
	backend Backend
	expiry  time.Duration
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	sess Session
	// dead marks an entry removed by the sweeper; holders must look it up again.
	dead bool
}

// NewStore builds a store. A nil backend keeps sessions in memory only.
func NewStore(opts Options) *Store {
	if opts.Backend == nil {
		opts.Backend = NopBackend{}
	}
	if opts.Expiry <= 0 {
		opts.Expiry = DefaultExpiry
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		backend: opts.Backend,
		expiry:  opts.Expiry,
		now:     opts.Now,
		entries: make(map[string]*entry),
	}
}

// acquire returns the live entry for userID with its mutex held, creating a default session if needed.
func (s *Store) acquire(userID string) *entry {
	for {
		s.mu.RLock()
		e := s.entries[userID]
		s.mu.RUnlock()
		if e == nil {
			s.mu.Lock()
			if e = s.entries[userID]; e == nil {
				e = &entry{sess: New(userID, s.now())}
				s.entries[userID] = e
			}
			s.mu.Unlock()
		}
		e.mu.Lock()
		if !e.dead {
			return e
		}
		e.mu.Unlock()
	}
}

// Get returns a snapshot of the user's session, creating it lazily, and stamps LastActivity.
func (s *Store) Get(_ context.Context, userID string) Session {
	e := s.acquire(userID)
	defer e.mu.Unlock()
	e.sess.LastActivity = s.now()
	return e.sess.Clone()
}

// Update applies fn to the user's session under its mutex. If fn returns an
// error the session is left exactly as it was.
func (s *Store) Update(_ context.Context, userID string, fn func(*Session) error) (Session, error) {
	e := s.acquire(userID)
	defer e.mu.Unlock()

	work := e.sess.Clone()
	if err := fn(&work); err != nil {
		return e.sess.Clone(), err
	}
	work.UserID = userID
	work.LastActivity = s.now()
	e.sess = work
	return work.Clone(), nil
}

// Clear resets the user's session to defaults and deletes the durable copy.
func (s *Store) Clear(ctx context.Context, userID string) Session {
	e := s.acquire(userID)
	defer e.mu.Unlock()

	e.sess = New(userID, s.now())
	if err := s.backend.Delete(ctx, userID); err != nil {
		logger.Warn(ctx, "session", "session.delete",
			slog.String("status", "fail"),
			slog.String("backend", s.backend.Name()),
			slog.String("err", err.Error()),
		)
	}
	return e.sess.Clone()
}

// Persist writes the in-memory session to the backend. A pristine session is
// removed from the backend instead of written. Failures are logged; the
// in-memory copy stays authoritative.
func (s *Store) Persist(ctx context.Context, userID string) {
	s.mu.RLock()
	e := s.entries[userID]
	s.mu.RUnlock()
	if e == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dead {
		return
	}
	if e.sess.Pristine() {
		if err := s.backend.Delete(ctx, userID); err != nil {
			logger.Warn(ctx, "session", "session.delete",
				slog.String("status", "fail"),
				slog.String("backend", s.backend.Name()),
				slog.String("err", err.Error()),
			)
		}
		return
	}
	snap := e.sess.Clone()
	if err := s.backend.Save(ctx, &snap); err != nil {
		logger.Warn(ctx, "session", "session.persist",
			slog.String("status", "fail"),
			slog.String("backend", s.backend.Name()),
			slog.String("err", err.Error()),
		)
	}
}

// PersistAll writes every live session, used on shutdown.
func (s *Store) PersistAll(ctx context.Context) {
	for _, id := range s.userIDs() {
		s.Persist(ctx, id)
	}
}

// SweepExpired removes sessions idle for longer than the expiry from memory
// and from the backend. Sessions are locked one at a time.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) int {
	swept := 0
	for _, id := range s.userIDs() {
		s.mu.RLock()
		e := s.entries[id]
		s.mu.RUnlock()
		if e == nil {
			continue
		}

		e.mu.Lock()
		if e.dead || now.Sub(e.sess.LastActivity) <= s.expiry {
			e.mu.Unlock()
			continue
		}
		e.dead = true
		s.mu.Lock()
		if s.entries[id] == e {
			delete(s.entries, id)
		}
		s.mu.Unlock()
		if err := s.backend.Delete(ctx, id); err != nil {
			logger.Warn(ctx, "session", "session.delete",
				slog.String("status", "fail"),
				slog.String("backend", s.backend.Name()),
				slog.String("err", err.Error()),
			)
		}
		e.mu.Unlock()
		swept++
	}
	return swept
}

// RunSweeper calls SweepExpired every interval until ctx is done.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			swept := s.SweepExpired(ctx, s.now())
			logger.Info(ctx, "session", "session.sweep",
				slog.String("status", "ok"),
				slog.Int("swept", swept),
				slog.Int("count", s.Len()),
				slog.Duration("duration", logger.RoundMS(time.Since(start))),
			)
		}
	}
}

// Load reads durable sessions into memory. It must run before traffic is served.
// Records already idle past the expiry are deleted instead of loaded.
func (s *Store) Load(ctx context.Context) error {
	start := time.Now()
	records, err := s.backend.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("session: load from %s: %w", s.backend.Name(), err)
	}

	now := s.now()
	loaded, expired := 0, 0
	s.mu.Lock()
	for _, rec := range records {
		if rec.UserID == "" {
			continue
		}
		if now.Sub(rec.LastActivity) > s.expiry {
			expired++
			if err := s.backend.Delete(ctx, rec.UserID); err != nil {
				logger.Warn(ctx, "session", "session.delete",
					slog.String("status", "fail"),
					slog.String("backend", s.backend.Name()),
					slog.String("err", err.Error()),
				)
			}
			continue
		}
		if _, exists := s.entries[rec.UserID]; exists {
			continue
		}
		rec.repair()
		s.entries[rec.UserID] = &entry{sess: rec}
		loaded++
	}
	s.mu.Unlock()

	logger.Info(ctx, "session", "session.load",
		slog.String("status", "ok"),
		slog.String("backend", s.backend.Name()),
		slog.Int("loaded", loaded),
		slog.Int("swept", expired),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

// Len reports the number of sessions held in memory.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Backend returns the durable backend name, for diagnostics.
func (s *Store) Backend() string {
	return s.backend.Name()
}

func (s *Store) userIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}
