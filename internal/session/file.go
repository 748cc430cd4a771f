package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/m3rciful/walletbot/core/logger"
)

const fileExt = ".json"

// FileBackend stores one JSON document per user in Dir.
type FileBackend struct {
	Dir string
}

// NewFileBackend creates dir if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("session: create dir %s: %w", dir, err)
	}
	return &FileBackend{Dir: dir}, nil
}

func (b *FileBackend) Name() string { return "file" }

func (b *FileBackend) path(userID string) (string, error) {
	if !validKey(userID) {
		return "", fmt.Errorf("%w: %q", ErrInvalidUserID, userID)
	}
	return filepath.Join(b.Dir, userID+fileExt), nil
}

// Save writes the document to a temp file and renames it over the old one.
func (b *FileBackend) Save(_ context.Context, sess *Session) error {
	path, err := b.path(sess.UserID)
	if err != nil {
		return err
	}
	data, err := Marshal(sess)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(b.Dir, ".session-*")
	if err != nil {
		return fmt.Errorf("session: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("session: write %s: %w", sess.UserID, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("session: close %s: %w", sess.UserID, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("session: rename %s: %w", sess.UserID, err)
	}
	return nil
}

func (b *FileBackend) Delete(_ context.Context, userID string) error {
	path, err := b.path(userID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session: remove %s: %w", userID, err)
	}
	return nil
}

func (b *FileBackend) LoadAll(ctx context.Context) ([]Session, error) {
	entries, err := os.ReadDir(b.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: read dir %s: %w", b.Dir, err)
	}

	var out []Session
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(b.Dir, name))
		if err != nil {
			logSkipped(ctx, b.Name(), name, err)
			continue
		}
		sess, err := Unmarshal(data)
		if err != nil {
			logSkipped(ctx, b.Name(), name, err)
			continue
		}
		if sess.UserID+fileExt != name {
			logSkipped(ctx, b.Name(), name, fmt.Errorf("%w: file name does not match %q", ErrInvalidUserID, sess.UserID))
			continue
		}
		out = append(out, sess)
	}
	return out, nil
}

func logSkipped(ctx context.Context, backend, key string, err error) {
	logger.Warn(ctx, "session", "session.load.skip",
		slog.String("status", "skip"),
		slog.String("backend", backend),
		slog.String("path", key),
		slog.String("err", err.Error()),
	)
}
