package middleware

import (
	tghelpers "github.com/m3rciful/walletbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// MessageMetricsMiddleware attaches a reply tally that the handler summary log reads.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		tghelpers.TrackReplies(c)
		return next(c)
	}
}

// GetCounters reports the replies made so far while handling c.
func GetCounters(c tele.Context) (sent, edited int, acked, kb bool) {
	return tghelpers.RepliesFrom(c).Snapshot()
}
