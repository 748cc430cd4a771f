package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Backend is the durable writer behind the Store. Records are independent per
// user; no operation spans more than one key.
type Backend interface {
	Save(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, userID string) error
	// LoadAll returns every readable record. Unreadable records are skipped and logged.
	LoadAll(ctx context.Context) ([]Session, error)
	Name() string
}

// ErrInvalidUserID is returned for ids that cannot be used as a storage key.
var ErrInvalidUserID = errors.New("session: invalid user id")

// NopBackend keeps nothing; sessions live in memory only.
type NopBackend struct{}

func (NopBackend) Save(context.Context, *Session) error       { return nil }
func (NopBackend) Delete(context.Context, string) error       { return nil }
func (NopBackend) LoadAll(context.Context) ([]Session, error) { return nil, nil }
func (NopBackend) Name() string                               { return "memory" }

// Marshal encodes a session as the indented JSON document stored by every backend.
func Marshal(sess *Session) ([]byte, error) {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("session: encode %s: %w", sess.UserID, err)
	}
	return data, nil
}

// Unmarshal decodes a stored session document.
func Unmarshal(data []byte) (Session, error) {
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("session: decode: %w", err)
	}
	if sess.UserID == "" {
		return Session{}, fmt.Errorf("session: decode: %w", ErrInvalidUserID)
	}
	return sess, nil
}

func validKey(userID string) bool {
	if userID == "" || len(userID) > 64 {
		return false
	}
	for _, r := range userID {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
