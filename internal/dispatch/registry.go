package dispatch

import (
	"context"
	"fmt"
	"sort"

	"github.com/m3rciful/walletbot/internal/chat"
	"github.com/m3rciful/walletbot/internal/session"
)

// Request is everything a handler sees for one button press.
type Request struct {
	UserID  string
	Action  string
	Payload string
	// Session is a snapshot taken before the handler runs. Writes go through the store.
	Session session.Session
	Reply   chat.Responder
}

// Handler runs one action. A returned error triggers the router's recovery path.
type Handler func(ctx context.Context, req Request) error

// Registry maps action names to handlers. It is filled once at startup.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler. Names must be unique and match [a-z_]+.
func (r *Registry) Register(name string, h Handler) error {
	if !ValidName(name) {
		return fmt.Errorf("dispatch: invalid action name %q", name)
	}
	if h == nil {
		return fmt.Errorf("dispatch: nil handler for %q", name)
	}
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("dispatch: action %q already registered", name)
	}
	r.handlers[name] = h
	return nil
}

// MustRegister is Register for static tables; it panics on error.
func (r *Registry) MustRegister(name string, h Handler) {
	if err := r.Register(name, h); err != nil {
		panic(err)
	}
}

// Lookup returns the handler for name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Names lists registered actions in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
