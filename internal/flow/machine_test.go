package flow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/m3rciful/walletbot/internal/chat/chattest"
	"github.com/m3rciful/walletbot/internal/domain"
	"github.com/m3rciful/walletbot/internal/remote"
	"github.com/m3rciful/walletbot/internal/remote/remotetest"
	"github.com/m3rciful/walletbot/internal/session"
	"github.com/m3rciful/walletbot/internal/ui"
)

const uid = "1001"

func newMachine(t *testing.T, api *remotetest.Stub) (*Machine, *session.Store) {
	t.Helper()
	store := session.NewStore(session.Options{})
	m := New(store, api, Options{MaxOTPAttempts: 3, NewID: func() string { return "c0ffee00" }})
	return m, store
}

func loggedIn(t *testing.T, store *session.Store) {
	t.Helper()
	_, err := store.Update(context.Background(), uid, func(s *session.Session) error {
		s.Authenticate("tok", "org", &domain.Profile{Email: "user@example.com"})
		return nil
	})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
}

func TestInvalidEmailKeepsStepAndSkipsRemote(t *testing.T) {
	api := &remotetest.Stub{}
	m, store := newMachine(t, api)
	ctx := context.Background()
	rec := &chattest.Recorder{}

	if err := m.StartLogin(ctx, uid); err != nil {
		t.Fatalf("start login: %v", err)
	}
	if err := m.Handle(ctx, rec, uid, "not-an-email"); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if got := store.Get(ctx, uid).Step; got != session.StepAwaitingEmail {
		t.Fatalf("step = %q, want awaiting_email", got)
	}
	if api.Calls("RequestOTP") != 0 {
		t.Fatal("RequestOTP must not be called for invalid email")
	}
	if rec.Last().Text != ui.MsgInvalidEmail {
		t.Fatalf("reply = %q", rec.Last().Text)
	}
}

func TestLoginScenario(t *testing.T) {
	api := &remotetest.Stub{
		OTP:     remote.OTPRequest{RequestID: "sid-1"},
		Auth:    remote.AuthResult{Token: "tok-1", OrganizationID: "org-1"},
		Profile: domain.Profile{ID: "p1", FirstName: "Ada", Email: "user@example.com"},
	}
	m, store := newMachine(t, api)
	ctx := context.Background()
	rec := &chattest.Recorder{}

	if err := m.StartLogin(ctx, uid); err != nil {
		t.Fatalf("start login: %v", err)
	}
	if err := m.Handle(ctx, rec, uid, "user@example.com"); err != nil {
		t.Fatalf("email: %v", err)
	}
	sess := store.Get(ctx, uid)
	if sess.Step != session.StepAwaitingOTP || sess.Login == nil || sess.Login.PendingEmail != "user@example.com" || sess.Login.OTPRequestID != "sid-1" {
		t.Fatalf("after email: %+v", sess)
	}

	if err := m.Handle(ctx, rec, uid, "123456"); err != nil {
		t.Fatalf("otp: %v", err)
	}
	sess = store.Get(ctx, uid)
	if !sess.Authenticated || sess.AuthToken != "tok-1" || sess.OrganizationID != "org-1" {
		t.Fatalf("not authenticated: %+v", sess)
	}
	if sess.Step != session.StepNone || sess.Login != nil {
		t.Fatalf("login flow not cleared: %+v", sess)
	}
	if sess.Profile == nil || sess.Profile.FirstName != "Ada" {
		t.Fatalf("profile = %+v", sess.Profile)
	}
	if !strings.Contains(rec.Last().Text, "Ada") {
		t.Fatalf("reply = %q", rec.Last().Text)
	}
}

func TestRequestOTPFailureKeepsStep(t *testing.T) {
	api := &remotetest.Stub{OTPErr: &remote.APIError{Status: 400, Message: "Email not registered"}}
	m, store := newMachine(t, api)
	ctx := context.Background()
	rec := &chattest.Recorder{}

	_ = m.StartLogin(ctx, uid)
	if err := m.Handle(ctx, rec, uid, "user@example.com"); err != nil {
		t.Fatalf("handle: %v", err)
	}
	sess := store.Get(ctx, uid)
	if sess.Step != session.StepAwaitingEmail || sess.Login == nil || sess.Login.PendingEmail != "" {
		t.Fatalf("pre-transition state not preserved: %+v", sess)
	}
	if !strings.Contains(rec.Last().Text, "Email not registered") {
		t.Fatalf("reply = %q", rec.Last().Text)
	}
}

func TestOTPAttemptsAreBounded(t *testing.T) {
	api := &remotetest.Stub{
		OTP:     remote.OTPRequest{RequestID: "sid"},
		AuthErr: &remote.APIError{Status: 400, Message: "Invalid otp"},
	}
	m, store := newMachine(t, api)
	ctx := context.Background()
	rec := &chattest.Recorder{}

	_ = m.StartLogin(ctx, uid)
	_ = m.Handle(ctx, rec, uid, "user@example.com")
	for i := 0; i < 2; i++ {
		_ = m.Handle(ctx, rec, uid, "000000")
		if got := store.Get(ctx, uid).Step; got != session.StepAwaitingOTP {
			t.Fatalf("attempt %d: step = %q", i+1, got)
		}
	}
	_ = m.Handle(ctx, rec, uid, "000000")

	sess := store.Get(ctx, uid)
	if sess.Step != session.StepNone || sess.Login != nil || sess.Authenticated {
		t.Fatalf("flow should be reset after max attempts: %+v", sess)
	}
	if rec.Last().Text != ui.MsgTooManyAttempts {
		t.Fatalf("reply = %q", rec.Last().Text)
	}
	if api.Calls("Authenticate") != 3 {
		t.Fatalf("authenticate calls = %d", api.Calls("Authenticate"))
	}
}

func TestOTPNetworkErrorKeepsAttempts(t *testing.T) {
	api := &remotetest.Stub{
		OTP:     remote.OTPRequest{RequestID: "sid"},
		AuthErr: errors.Join(remote.ErrNetwork, errors.New("dial tcp: refused")),
	}
	m, store := newMachine(t, api)
	ctx := context.Background()
	rec := &chattest.Recorder{}

	_ = m.StartLogin(ctx, uid)
	_ = m.Handle(ctx, rec, uid, "user@example.com")
	_ = m.Handle(ctx, rec, uid, "123456")

	sess := store.Get(ctx, uid)
	if sess.Step != session.StepAwaitingOTP || sess.Login.Attempts != 0 {
		t.Fatalf("network failure must not consume an attempt: %+v", sess.Login)
	}
	if strings.Contains(rec.Last().Text, "refused") {
		t.Fatalf("reply leaks transport detail: %q", rec.Last().Text)
	}
}

func TestMalformedCodeIsRejectedLocally(t *testing.T) {
	api := &remotetest.Stub{OTP: remote.OTPRequest{RequestID: "sid"}}
	m, _ := newMachine(t, api)
	ctx := context.Background()
	rec := &chattest.Recorder{}

	_ = m.StartLogin(ctx, uid)
	_ = m.Handle(ctx, rec, uid, "user@example.com")
	for _, bad := range []string{"12345", "abcdef", "+12345", "1234567"} {
		_ = m.Handle(ctx, rec, uid, bad)
		if rec.Last().Text != ui.MsgInvalidOTP {
			t.Fatalf("%q: reply = %q", bad, rec.Last().Text)
		}
	}
	if api.Calls("Authenticate") != 0 {
		t.Fatal("malformed codes must not reach the API")
	}
}

func TestStartLoginWhenAuthenticated(t *testing.T) {
	m, store := newMachine(t, &remotetest.Stub{})
	loggedIn(t, store)
	if err := m.StartLogin(context.Background(), uid); !errors.Is(err, ErrAlreadyAuthenticated) {
		t.Fatalf("err = %v", err)
	}
}

func TestTransferTextCreatesPendingConfirmation(t *testing.T) {
	m, store := newMachine(t, &remotetest.Stub{})
	ctx := context.Background()
	rec := &chattest.Recorder{}
	loggedIn(t, store)

	if err := m.BeginTransfer(ctx, uid, session.KindWallet, "wallet-42"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if got := store.Get(ctx, uid).Step; got != session.StepAwaitingTransfer {
		t.Fatalf("step = %q", got)
	}

	if err := m.Handle(ctx, rec, uid, "10 0xabc..."); err != nil {
		t.Fatalf("handle: %v", err)
	}
	sess := store.Get(ctx, uid)
	if sess.Step != session.StepNone || sess.Transfer != nil {
		t.Fatalf("step not cleared: %+v", sess)
	}
	p, ok := sess.Pending["c0ffee00"]
	if !ok || p.WalletID != "wallet-42" || p.Amount != "10" || p.Recipient != "0xabc..." {
		t.Fatalf("pending = %+v", sess.Pending)
	}
	actions := rec.Actions()
	if len(actions) != 2 || actions[0] != "confirm_transfer:c0ffee00" || actions[1] != ui.ActionCancel {
		t.Fatalf("keyboard actions = %v", actions)
	}
}

func TestMalformedTransferDoesNotAdvance(t *testing.T) {
	m, store := newMachine(t, &remotetest.Stub{})
	ctx := context.Background()
	rec := &chattest.Recorder{}
	loggedIn(t, store)
	_ = m.BeginTransfer(ctx, uid, session.KindWallet, "wallet-42")

	cases := map[string]string{
		"10":          ui.MsgInvalidTransfer,
		"":            ui.MsgInvalidTransfer,
		"ten 0xabc":   ui.MsgInvalidTransfer,
		"-5 0xabc":    ui.MsgInvalidAmount,
		"0 0xabc":     ui.MsgInvalidAmount,
		"1 2 3 extra": ui.MsgInvalidTransfer,
	}
	for in, want := range cases {
		_ = m.Handle(ctx, rec, uid, in)
		if rec.Last().Text != want {
			t.Fatalf("%q: reply = %q, want %q", in, rec.Last().Text, want)
		}
		sess := store.Get(ctx, uid)
		if sess.Step != session.StepAwaitingTransfer || len(sess.Pending) != 0 {
			t.Fatalf("%q: state advanced: %+v", in, sess)
		}
	}
}

func TestWithdrawAcceptsOptionalNetwork(t *testing.T) {
	m, store := newMachine(t, &remotetest.Stub{})
	ctx := context.Background()
	rec := &chattest.Recorder{}
	loggedIn(t, store)
	_ = m.BeginTransfer(ctx, uid, session.KindWithdraw, "w1")

	_ = m.Handle(ctx, rec, uid, "25.5 0x1234 137")
	p, ok := store.Get(ctx, uid).Pending["c0ffee00"]
	if !ok || p.Kind != session.KindWithdraw || p.Network != "137" || p.Amount != "25.5" {
		t.Fatalf("pending = %+v", p)
	}
	if rec.Actions()[0] != "confirm_withdraw:c0ffee00" {
		t.Fatalf("actions = %v", rec.Actions())
	}
}

func TestEmailTransferValidatesRecipient(t *testing.T) {
	m, store := newMachine(t, &remotetest.Stub{})
	ctx := context.Background()
	rec := &chattest.Recorder{}
	loggedIn(t, store)
	_ = m.BeginTransfer(ctx, uid, session.KindEmail, "w1")

	_ = m.Handle(ctx, rec, uid, "10 0xabc")
	if rec.Last().Text != ui.MsgInvalidEmailSend {
		t.Fatalf("reply = %q", rec.Last().Text)
	}
	_ = m.Handle(ctx, rec, uid, "10 friend@example.com")
	if p := store.Get(ctx, uid).Pending["c0ffee00"]; p.Recipient != "friend@example.com" {
		t.Fatalf("pending = %+v", p)
	}
}

func TestCancelWordClearsAnyStep(t *testing.T) {
	api := &remotetest.Stub{}
	m, store := newMachine(t, api)
	ctx := context.Background()
	rec := &chattest.Recorder{}

	_ = m.StartLogin(ctx, uid)
	if err := m.Handle(ctx, rec, uid, " Cancel "); err != nil {
		t.Fatalf("handle: %v", err)
	}
	sess := store.Get(ctx, uid)
	if sess.InFlow() || sess.Login != nil {
		t.Fatalf("cancel left flow data: %+v", sess)
	}
	if rec.Last().Text != ui.MsgCancelled {
		t.Fatalf("reply = %q", rec.Last().Text)
	}
	if api.Calls("RequestOTP") != 0 {
		t.Fatal("cancel must not call the API")
	}
}

func TestTextOutsideFlowIsIgnored(t *testing.T) {
	api := &remotetest.Stub{}
	m, _ := newMachine(t, api)
	rec := &chattest.Recorder{}

	if m.InProgress(context.Background(), uid) {
		t.Fatal("fresh session should not be in progress")
	}
	if err := m.Handle(context.Background(), rec, uid, "hello"); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(rec.Messages) != 0 {
		t.Fatalf("unexpected replies: %+v", rec.Messages)
	}
}

func TestNewCorrelationID(t *testing.T) {
	a, b := NewCorrelationID(), NewCorrelationID()
	if len(a) != 8 || a == b {
		t.Fatalf("ids %q %q", a, b)
	}
}
