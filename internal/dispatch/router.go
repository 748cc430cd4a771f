// Package dispatch routes button presses, encoded as "name" or "name:payload",
// to registered handlers and applies one failure-recovery policy to all of them.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/m3rciful/walletbot/core/logger"
	"github.com/m3rciful/walletbot/internal/chat"
	"github.com/m3rciful/walletbot/internal/session"
)

const (
	defaultNotAvailable = "This action is not available"
	defaultErrorText    = "⚠️ Something went wrong. Please try again."
)

// Options customizes the router's user-facing fallbacks.
type Options struct {
	NotAvailable string
	ErrorText    string
	Recovery     chat.Keyboard
}

// Router resolves action tokens against a Registry.
type Router struct {
	registry *Registry
	store    *session.Store

	notAvailable string
	errorText    string
	recovery     chat.Keyboard
}

// NewRouter builds a router over a filled registry.
func NewRouter(registry *Registry, store *session.Store, opts Options) *Router {
	if opts.NotAvailable == "" {
		opts.NotAvailable = defaultNotAvailable
	}
	if opts.ErrorText == "" {
		opts.ErrorText = defaultErrorText
	}
	return &Router{
		registry:     registry,
		store:        store,
		notAvailable: opts.NotAvailable,
		errorText:    opts.ErrorText,
		recovery:     opts.Recovery,
	}
}

// Dispatch runs the handler for token at most once and acknowledges the press
// exactly once. Handler errors and panics never escape.
func (r *Router) Dispatch(ctx context.Context, reply chat.Responder, userID, token string) {
	start := time.Now()
	ack := &onceResponder{Responder: reply}

	name, payload, ok := ParseToken(token)
	var h Handler
	if ok {
		h, ok = r.registry.Lookup(name)
	}
	if !ok {
		logger.Warn(ctx, "dispatch", "action.unknown",
			slog.String("status", "skip"),
			slog.String("action", logger.SanitizeLimit(token, 64)),
		)
		r.acknowledge(ctx, ack, r.notAvailable)
		return
	}

	req := Request{
		UserID:  userID,
		Action:  name,
		Payload: payload,
		Session: r.store.Get(ctx, userID),
		Reply:   ack,
	}
	err := r.run(ctx, h, req)
	r.acknowledge(ctx, ack, "")
	if err != nil {
		r.fallback(ctx, ack, req, err)
	}
	r.store.Persist(ctx, userID)

	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("action", name),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	}
	if payload != "" {
		attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 64)))
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", err.Error()))
		logger.Warn(ctx, "dispatch", "action.dispatch", attrs...)
		return
	}
	logger.Info(ctx, "dispatch", "action.dispatch", attrs...)
}

func (r *Router) run(ctx context.Context, h Handler, req Request) (err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "dispatch", "action.panic",
				slog.String("status", "fail"),
				slog.String("action", req.Action),
				slog.Any("err", p),
				slog.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("dispatch: %s panicked: %v", req.Action, p)
		}
	}()
	return h(ctx, req)
}

// fallback clears the menu marker so a retry is not blocked, then tells the
// user: edit the pressed message, else send a new one, else log.
func (r *Router) fallback(ctx context.Context, reply chat.Responder, req Request, cause error) {
	_, _ = r.store.Update(ctx, req.UserID, func(s *session.Session) error {
		s.CurrentAction = ""
		return nil
	})

	editErr := reply.Edit(ctx, r.errorText, r.recovery)
	if editErr == nil {
		return
	}
	sendErr := reply.Send(ctx, r.errorText, r.recovery)
	if sendErr == nil {
		return
	}
	logger.Error(ctx, "dispatch", "action.recover",
		slog.String("status", "fail"),
		slog.String("action", req.Action),
		slog.String("err", cause.Error()),
		slog.String("cause", fmt.Sprintf("edit: %v; send: %v", editErr, sendErr)),
	)
}

func (r *Router) acknowledge(ctx context.Context, reply chat.Responder, text string) {
	if err := reply.Acknowledge(ctx, text); err != nil {
		logger.Debug(ctx, "dispatch", "action.ack",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}

// onceResponder forwards only the first Acknowledge.
type onceResponder struct {
	chat.Responder
	once sync.Once
}

func (o *onceResponder) Acknowledge(ctx context.Context, text string) error {
	var err error
	o.once.Do(func() {
		err = o.Responder.Acknowledge(ctx, text)
	})
	return err
}
