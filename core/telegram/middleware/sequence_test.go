package middleware

import (
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

func textUpdate(id int, user int64, text string) tele.Update {
	return tele.Update{ID: id, Message: &tele.Message{Text: text, Sender: &tele.User{ID: user}, Chat: &tele.Chat{ID: user}}}
}

func TestSequencerPreservesPerUserOrder(t *testing.T) {
	seq := NewSequencer(time.Second)
	u1 := textUpdate(1, 7, "first")
	u2 := textUpdate(2, 7, "second")
	seq.Filter(&u1)
	seq.Filter(&u2)

	order := make(chan int, 2)
	release := make(chan struct{})
	h := seq.Middleware(func(c tele.Context) error {
		if c.Update().ID == 1 {
			<-release
		}
		order <- c.Update().ID
		return nil
	})

	done := make(chan struct{}, 2)
	go func() { _ = h(tele.NewContext(nil, u2)); done <- struct{}{} }()
	go func() { _ = h(tele.NewContext(nil, u1)); done <- struct{}{} }()

	time.Sleep(50 * time.Millisecond)
	select {
	case id := <-order:
		t.Fatalf("update %d ran before the first one finished", id)
	default:
	}
	close(release)
	if first, second := <-order, <-order; first != 1 || second != 2 {
		t.Fatalf("order = %d, %d", first, second)
	}
	<-done
	<-done
	if seq.Pending() != 0 {
		t.Fatalf("pending tickets = %d", seq.Pending())
	}
}

func TestSequencerDoesNotBlockOtherUsers(t *testing.T) {
	seq := NewSequencer(time.Second)
	u1 := textUpdate(1, 7, "slow")
	u2 := textUpdate(2, 8, "fast")
	seq.Filter(&u1)
	seq.Filter(&u2)

	release := make(chan struct{})
	h := seq.Middleware(func(c tele.Context) error {
		if c.Update().ID == 1 {
			<-release
		}
		return nil
	})
	go func() { _ = h(tele.NewContext(nil, u1)) }()

	finished := make(chan struct{})
	go func() { _ = h(tele.NewContext(nil, u2)); close(finished) }()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("other user's update was blocked")
	}
	close(release)
}

func TestSequencerWaitIsBounded(t *testing.T) {
	seq := NewSequencer(20 * time.Millisecond)
	u1 := textUpdate(1, 7, "never handled")
	u2 := textUpdate(2, 7, "next")
	seq.Filter(&u1)
	seq.Filter(&u2)

	ran := false
	h := seq.Middleware(func(tele.Context) error { ran = true; return nil })
	start := time.Now()
	_ = h(tele.NewContext(nil, u2))
	if !ran {
		t.Fatal("handler did not run after the bounded wait")
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatal("handler should have waited for the previous ticket")
	}
}

func TestSequencerSkipsUnroutedUpdates(t *testing.T) {
	seq := NewSequencer(time.Second)
	photo := tele.Update{ID: 3, Message: &tele.Message{Sender: &tele.User{ID: 7}}}
	if !seq.Filter(&photo) {
		t.Fatal("filter must not drop updates")
	}
	if seq.Pending() != 0 {
		t.Fatal("updates without text get no ticket")
	}
}
