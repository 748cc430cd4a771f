package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/walletbot/core/logger"
	tghelpers "github.com/m3rciful/walletbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// DefaultSequenceWait bounds how long an update waits for the previous update
// of the same user.
const DefaultSequenceWait = 30 * time.Second

type ticket struct {
	user   int64
	prev   <-chan struct{}
	done   chan struct{}
	issued time.Time
}

// Sequencer preserves per-user arrival order. Filter runs on the polling
// goroutine and issues one ticket per update in poll order; Middleware makes
// each handler wait until the user's previous update finished.
type Sequencer struct {
	wait time.Duration

	mu      sync.Mutex
	tail    map[int64]chan struct{}
	tickets map[int]*ticket
}

// NewSequencer builds a sequencer. A non-positive wait selects DefaultSequenceWait.
func NewSequencer(wait time.Duration) *Sequencer {
	if wait <= 0 {
		wait = DefaultSequenceWait
	}
	return &Sequencer{
		wait:    wait,
		tail:    make(map[int64]chan struct{}),
		tickets: make(map[int]*ticket),
	}
}

// Filter is a tele.MiddlewarePoller filter. It never drops updates.
func (s *Sequencer) Filter(upd *tele.Update) bool {
	userID := sequencedUser(upd)
	if userID == 0 {
		return true
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(now)
	t := &ticket{user: userID, prev: s.tail[userID], done: make(chan struct{}), issued: now}
	s.tail[userID] = t.done
	s.tickets[upd.ID] = t
	return true
}

// Middleware waits for the user's previous ticket, runs next, then releases
// the ticket. Updates without a ticket run immediately.
func (s *Sequencer) Middleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		t := s.take(c.Update().ID)
		if t == nil {
			return next(c)
		}
		defer s.release(t)

		if t.prev != nil {
			timer := time.NewTimer(s.wait)
			select {
			case <-t.prev:
				timer.Stop()
			case <-timer.C:
				logger.Warn(tghelpers.BuildContext(c), "tg", "sequence.timeout",
					slog.String("status", "skip"),
					slog.Duration("duration", s.wait),
				)
			}
		}
		return next(c)
	}
}

// Pending reports tickets issued but not yet taken by a handler.
func (s *Sequencer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickets)
}

func (s *Sequencer) take(updateID int) *ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tickets[updateID]
	delete(s.tickets, updateID)
	return t
}

func (s *Sequencer) release(t *ticket) {
	close(t.done)
	s.mu.Lock()
	if s.tail[t.user] == t.done {
		delete(s.tail, t.user)
	}
	s.mu.Unlock()
}

// pruneLocked releases tickets that no handler picked up, so a user is never
// blocked behind an update telebot did not route.
func (s *Sequencer) pruneLocked(now time.Time) {
	for id, t := range s.tickets {
		if now.Sub(t.issued) <= 2*s.wait {
			continue
		}
		delete(s.tickets, id)
		close(t.done)
		if s.tail[t.user] == t.done {
			delete(s.tail, t.user)
		}
	}
}

// sequencedUser returns the sender of the update kinds the bot routes.
func sequencedUser(upd *tele.Update) int64 {
	switch {
	case upd.Callback != nil && upd.Callback.Sender != nil:
		return upd.Callback.Sender.ID
	case upd.Message != nil && upd.Message.Sender != nil && upd.Message.Text != "":
		return upd.Message.Sender.ID
	}
	return 0
}
