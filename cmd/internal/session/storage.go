package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	tokenFile = "token"
	userFile  = "user"
)

// Storage persists credentials to a state directory as two entries:
// "token" (the raw credential) and "user" (identity, serialized JSON).
// Absence of either entry means unauthenticated state.
type Storage struct {
	dir string
}

// NewStorage creates the state directory if needed and returns a Storage.
func NewStorage(dir string) (*Storage, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("empty state dir")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &Storage{dir: dir}, nil
}

// Save writes both credential entries. The token file is written last so a
// partially written state never looks authenticated.
func (s *Storage) Save(token string, user *User) error {
	if user != nil {
		b, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("marshal user: %w", err)
		}
		if err := writeFileAtomic(filepath.Join(s.dir, userFile), b); err != nil {
			return err
		}
	}
	return writeFileAtomic(filepath.Join(s.dir, tokenFile), []byte(token))
}

// Load reads persisted credentials. Missing entries are not errors: a missing
// token yields an empty token, a missing or unreadable user yields nil (the
// user may lag the token after restoration).
func (s *Storage) Load() (string, *User, error) {
	tb, err := os.ReadFile(filepath.Join(s.dir, tokenFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, nil
		}
		return "", nil, fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(string(tb))
	if token == "" {
		return "", nil, nil
	}

	ub, err := os.ReadFile(filepath.Join(s.dir, userFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return token, nil, nil
		}
		return "", nil, fmt.Errorf("read user: %w", err)
	}

	var u User
	if err := json.Unmarshal(ub, &u); err != nil {
		// Corrupt user entry: keep the token, identity is refetched later.
		return token, nil, nil
	}
	return token, &u, nil
}

// Clear removes both credential entries. Missing files are fine.
func (s *Storage) Clear() error {
	var firstErr error
	for _, name := range []string{tokenFile, userFile} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
