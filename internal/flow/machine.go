// Package flow is the conversation state machine: it interprets free text
// against the session's current step and applies exactly one transition.
package flow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/m3rciful/walletbot/core/logger"
	"github.com/m3rciful/walletbot/internal/chat"
	"github.com/m3rciful/walletbot/internal/remote"
	"github.com/m3rciful/walletbot/internal/session"
	"github.com/m3rciful/walletbot/internal/ui"
)

const (
	// DefaultMaxOTPAttempts bounds failed code submissions per login.
	DefaultMaxOTPAttempts = 5
	// DefaultPendingTTL is how long a confirmation stays valid.
	DefaultPendingTTL = 15 * time.Minute
)

var (
	// ErrAlreadyAuthenticated is returned by StartLogin for a logged-in user.
	ErrAlreadyAuthenticated = errors.New("flow: already authenticated")
	// ErrNotAuthenticated is returned by transitions that need a token.
	ErrNotAuthenticated = errors.New("flow: not authenticated")
	// errStale aborts a write when the step changed while a remote call was in flight.
	errStale = errors.New("flow: step changed concurrently")
)

// Options tunes a Machine. Zero values select the defaults.
type Options struct {
	MaxOTPAttempts int
	PendingTTL     time.Duration
	// NewID overrides correlation id generation in tests.
	NewID func() string
	Now   func() time.Time
}

// Machine owns every step transition. It holds no per-user state itself.
type Machine struct {
	store    *session.Store
	api      remote.Service
	validate *validator.Validate

	maxOTPAttempts int
	pendingTTL     time.Duration
	newID          func() string
	now            func() time.Time
}

// New builds a Machine over the session store and the wallet API.
func New(store *session.Store, api remote.Service, opts Options) *Machine {
	if opts.MaxOTPAttempts <= 0 {
		opts.MaxOTPAttempts = DefaultMaxOTPAttempts
	}
	if opts.PendingTTL <= 0 {
		opts.PendingTTL = DefaultPendingTTL
	}
	if opts.NewID == nil {
		opts.NewID = NewCorrelationID
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Machine{
		store:          store,
		api:            api,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		maxOTPAttempts: opts.MaxOTPAttempts,
		pendingTTL:     opts.PendingTTL,
		newID:          opts.NewID,
		now:            opts.Now,
	}
}

// NewCorrelationID returns a short random id for a pending confirmation.
func NewCorrelationID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// PendingTTL reports how long a confirmation stays valid.
func (m *Machine) PendingTTL() time.Duration { return m.pendingTTL }

// InProgress reports whether the user is in the middle of a free-text step.
func (m *Machine) InProgress(ctx context.Context, userID string) bool {
	return m.store.Get(ctx, userID).InFlow()
}

// Handle consumes one free-text message. Text outside a flow is ignored.
func (m *Machine) Handle(ctx context.Context, reply chat.Responder, userID, text string) error {
	text = strings.TrimSpace(text)
	snap := m.store.Get(ctx, userID)
	if !snap.InFlow() {
		return nil
	}
	defer m.store.Persist(ctx, userID)

	if isCancel(text) {
		m.Cancel(ctx, userID)
		return reply.Send(ctx, ui.MsgCancelled, ui.MainMenu(snap.Authenticated))
	}

	switch snap.Step {
	case session.StepAwaitingEmail:
		return m.handleEmail(ctx, reply, snap, text)
	case session.StepAwaitingOTP:
		return m.handleOTP(ctx, reply, snap, text)
	case session.StepAwaitingTransfer, session.StepAwaitingEmailTransfer, session.StepAwaitingWithdraw:
		return m.handleTransfer(ctx, reply, snap, text)
	}

	logger.Warn(ctx, "flow", "step.unknown",
		slog.String("status", "skip"),
		slog.String("step", string(snap.Step)),
	)
	m.Cancel(ctx, userID)
	return reply.Send(ctx, ui.MsgCancelled, ui.MainMenu(snap.Authenticated))
}

// StartLogin moves the user to the email prompt.
func (m *Machine) StartLogin(ctx context.Context, userID string) error {
	before := m.store.Get(ctx, userID)
	_, err := m.store.Update(ctx, userID, func(s *session.Session) error {
		if s.Authenticated {
			return ErrAlreadyAuthenticated
		}
		s.StartLogin()
		return nil
	})
	if err != nil {
		return err
	}
	logTransition(ctx, before.Step, session.StepAwaitingEmail)
	m.store.Persist(ctx, userID)
	return nil
}

// BeginTransfer records the chosen source wallet and waits for the amount and destination.
func (m *Machine) BeginTransfer(ctx context.Context, userID string, kind session.TransferKind, walletID string) error {
	step := stepFor(kind)
	var from session.Step
	_, err := m.store.Update(ctx, userID, func(s *session.Session) error {
		if !s.Authenticated {
			return ErrNotAuthenticated
		}
		from = s.Step
		s.Step = step
		s.Login = nil
		s.Transfer = &session.TransferFlow{Kind: kind, WalletID: walletID}
		s.CurrentAction = ""
		return nil
	})
	if err != nil {
		return err
	}
	logTransition(ctx, from, step, slog.String("wallet_id", walletID))
	m.store.Persist(ctx, userID)
	return nil
}

// Cancel clears the step and all flow data without any remote call.
// It reports whether there was anything to cancel.
func (m *Machine) Cancel(ctx context.Context, userID string) bool {
	var (
		from session.Step
		had  bool
	)
	_, _ = m.store.Update(ctx, userID, func(s *session.Session) error {
		from = s.Step
		had = s.InFlow() || len(s.Pending) > 0 || s.CurrentAction != ""
		s.ResetFlow()
		return nil
	})
	if had {
		logTransition(ctx, from, session.StepNone, slog.String("outcome", "cancelled"))
	}
	m.store.Persist(ctx, userID)
	return had
}

// Logout resets the session to defaults and removes the durable copy.
func (m *Machine) Logout(ctx context.Context, userID string) session.Session {
	sess := m.store.Clear(ctx, userID)
	logger.Info(ctx, "flow", "auth.logout", slog.String("status", "ok"))
	return sess
}

func (m *Machine) handleEmail(ctx context.Context, reply chat.Responder, snap session.Session, text string) error {
	email := strings.ToLower(text)
	if err := m.validate.Struct(emailInput{Email: email}); err != nil {
		logger.Debug(ctx, "flow", "input.rejected",
			slog.String("status", "rejected"),
			slog.String("step", string(snap.Step)),
		)
		return reply.Send(ctx, ui.MsgInvalidEmail, ui.CancelOnly())
	}

	otp, err := m.api.RequestOTP(ctx, email)
	if err != nil {
		logRemoteFailure(ctx, snap.Step, "otp.request", err)
		return reply.Send(ctx, ui.Failure(remote.UserMessage(err)), ui.CancelOnly())
	}

	_, err = m.store.Update(ctx, snap.UserID, func(s *session.Session) error {
		if s.Step != session.StepAwaitingEmail {
			return errStale
		}
		s.Login = &session.LoginFlow{PendingEmail: email, OTPRequestID: otp.RequestID}
		s.Step = session.StepAwaitingOTP
		return nil
	})
	if err != nil {
		return m.stale(ctx, snap, err)
	}
	logTransition(ctx, snap.Step, session.StepAwaitingOTP, slog.String("email", logger.MaskEmail(email)))
	return reply.Send(ctx, ui.AskOTP(email), ui.CancelOnly())
}

func (m *Machine) handleOTP(ctx context.Context, reply chat.Responder, snap session.Session, text string) error {
	if snap.Login == nil || snap.Login.PendingEmail == "" || snap.Login.OTPRequestID == "" {
		// Nothing to verify against; restart at the email prompt.
		_, _ = m.store.Update(ctx, snap.UserID, func(s *session.Session) error {
			s.StartLogin()
			return nil
		})
		logTransition(ctx, snap.Step, session.StepAwaitingEmail, slog.String("outcome", "fail"))
		return reply.Send(ctx, ui.MsgAskEmail, ui.CancelOnly())
	}

	code := strings.ReplaceAll(text, " ", "")
	if err := m.validate.Struct(otpInput{Code: code}); err != nil {
		return reply.Send(ctx, ui.MsgInvalidOTP, ui.CancelOnly())
	}

	login := *snap.Login
	res, err := m.api.Authenticate(ctx, login.PendingEmail, code, login.OTPRequestID)
	if err != nil {
		return m.otpFailed(ctx, reply, snap, err)
	}

	profile := res.User
	if p, perr := m.api.GetProfile(ctx, res.Token); perr == nil {
		profile = &p
	} else {
		logRemoteFailure(ctx, snap.Step, "profile.fetch", perr)
	}
	orgID := res.OrganizationID
	if orgID == "" && profile != nil {
		orgID = profile.OrganizationID
	}

	_, err = m.store.Update(ctx, snap.UserID, func(s *session.Session) error {
		if s.Step != session.StepAwaitingOTP {
			return errStale
		}
		s.Authenticate(res.Token, orgID, profile)
		return nil
	})
	if err != nil {
		return m.stale(ctx, snap, err)
	}
	logTransition(ctx, snap.Step, session.StepNone,
		slog.String("outcome", "ok"),
		slog.String("email", logger.MaskEmail(login.PendingEmail)),
	)

	name := ""
	if profile != nil {
		name = profile.DisplayName()
	}
	return reply.Send(ctx, ui.LoggedIn(name), ui.MainMenu(true))
}

// otpFailed counts a rejected code. Network failures do not consume an attempt.
func (m *Machine) otpFailed(ctx context.Context, reply chat.Responder, snap session.Session, cause error) error {
	logRemoteFailure(ctx, snap.Step, "otp.verify", cause)
	if errors.Is(cause, remote.ErrNetwork) {
		return reply.Send(ctx, ui.Failure(remote.UserMessage(cause)), ui.CancelOnly())
	}

	locked := false
	_, err := m.store.Update(ctx, snap.UserID, func(s *session.Session) error {
		if s.Step != session.StepAwaitingOTP || s.Login == nil {
			return errStale
		}
		s.Login.Attempts++
		if s.Login.Attempts >= m.maxOTPAttempts {
			locked = true
			s.ResetFlow()
		}
		return nil
	})
	if err != nil {
		return m.stale(ctx, snap, err)
	}
	if locked {
		logTransition(ctx, snap.Step, session.StepNone, slog.String("outcome", "rate_limited"))
		return reply.Send(ctx, ui.MsgTooManyAttempts, ui.MainMenu(false))
	}
	return reply.Send(ctx, ui.MsgOTPFailed, ui.CancelOnly())
}

func (m *Machine) handleTransfer(ctx context.Context, reply chat.Responder, snap session.Session, text string) error {
	if snap.Transfer == nil || !snap.Authenticated {
		m.Cancel(ctx, snap.UserID)
		return reply.Send(ctx, ui.MsgGenericError, ui.MainMenu(snap.Authenticated))
	}
	kind := snap.Transfer.Kind

	in, err := parseTransfer(m.validate, kind, text)
	if err != nil {
		logger.Debug(ctx, "flow", "input.rejected",
			slog.String("status", "rejected"),
			slog.String("step", string(snap.Step)),
		)
		if errors.Is(err, errAmount) {
			return reply.Send(ctx, ui.MsgInvalidAmount, ui.CancelOnly())
		}
		return reply.Send(ctx, malformedMessage(kind), ui.CancelOnly())
	}

	now := m.now()
	pending := session.PendingTransfer{
		Kind:      kind,
		WalletID:  snap.Transfer.WalletID,
		Amount:    in.Amount,
		Recipient: in.Recipient,
		Network:   in.Network,
		CreatedAt: now,
	}
	var id string
	_, err = m.store.Update(ctx, snap.UserID, func(s *session.Session) error {
		if s.Step != snap.Step || s.Transfer == nil {
			return errStale
		}
		s.PrunePending(now.Add(-m.pendingTTL))
		id = m.newID()
		if _, taken := s.Pending[id]; taken {
			id = m.newID()
		}
		s.PutPending(id, pending)
		s.Step = session.StepNone
		s.Transfer = nil
		return nil
	})
	if err != nil {
		return m.stale(ctx, snap, err)
	}
	logTransition(ctx, snap.Step, session.StepNone,
		slog.String("correlation_id", id),
		slog.String("wallet_id", pending.WalletID),
	)
	return reply.Send(ctx, ui.Confirm(pending), ui.Confirmation(confirmAction(kind), id))
}

func (m *Machine) stale(ctx context.Context, snap session.Session, err error) error {
	if !errors.Is(err, errStale) {
		return err
	}
	logger.Info(ctx, "flow", "step.stale",
		slog.String("status", "skip"),
		slog.String("step", string(snap.Step)),
	)
	return nil
}

func stepFor(kind session.TransferKind) session.Step {
	switch kind {
	case session.KindEmail:
		return session.StepAwaitingEmailTransfer
	case session.KindWithdraw:
		return session.StepAwaitingWithdraw
	default:
		return session.StepAwaitingTransfer
	}
}

func confirmAction(kind session.TransferKind) string {
	if kind == session.KindWithdraw {
		return ui.ActionConfirmWithdraw
	}
	return ui.ActionConfirmTransfer
}

func malformedMessage(kind session.TransferKind) string {
	switch kind {
	case session.KindEmail:
		return ui.MsgInvalidEmailSend
	case session.KindWithdraw:
		return ui.MsgInvalidWithdraw
	default:
		return ui.MsgInvalidTransfer
	}
}

func logTransition(ctx context.Context, from, to session.Step, attrs ...slog.Attr) {
	base := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("from_step", stepName(from)),
		slog.String("to_step", stepName(to)),
	}
	logger.Info(ctx, "flow", "step.transition", append(base, attrs...)...)
}

func logRemoteFailure(ctx context.Context, step session.Step, event string, err error) {
	attrs := []slog.Attr{
		slog.String("status", "fail"),
		slog.String("step", stepName(step)),
		slog.String("err", err.Error()),
	}
	var apiErr *remote.APIError
	if errors.As(err, &apiErr) {
		attrs = append(attrs, slog.String("err_code", apiErr.Code()))
	}
	logger.Warn(ctx, "flow", event, attrs...)
}

func stepName(s session.Step) string {
	if s == session.StepNone {
		return "none"
	}
	return string(s)
}
