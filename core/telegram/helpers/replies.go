package helpers

import (
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

const repliesKey = "replies"

// Replies tallies the outbound calls made while handling one update. Sends are
// counted when queued, edits and acknowledgements when Telegram accepts them.
type Replies struct {
	sent   atomic.Int32
	edited atomic.Int32
	acked  atomic.Bool
	kb     atomic.Bool
}

// TrackReplies attaches a fresh tally to c and returns it.
func TrackReplies(c tele.Context) *Replies {
	r := &Replies{}
	c.Set(repliesKey, r)
	return r
}

// RepliesFrom returns the tally attached to c, or nil.
func RepliesFrom(c tele.Context) *Replies {
	if c == nil {
		return nil
	}
	r, _ := c.Get(repliesKey).(*Replies)
	return r
}

// Snapshot reads the tally. A nil tally reads as empty.
func (r *Replies) Snapshot() (sent, edited int, acked, kb bool) {
	if r == nil {
		return 0, 0, false, false
	}
	return int(r.sent.Load()), int(r.edited.Load()), r.acked.Load(), r.kb.Load()
}

func noteReply(c tele.Context, edit bool, markup *tele.ReplyMarkup) {
	r := RepliesFrom(c)
	if r == nil {
		return
	}
	if edit {
		r.edited.Add(1)
	} else {
		r.sent.Add(1)
	}
	if markup != nil && len(markup.InlineKeyboard) > 0 {
		r.kb.Store(true)
	}
}

func noteAck(c tele.Context) {
	if r := RepliesFrom(c); r != nil {
		r.acked.Store(true)
	}
}
