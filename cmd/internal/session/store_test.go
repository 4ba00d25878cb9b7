package session

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStoreRestoreRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	storage, err := NewStorage(dir)
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}

	first := NewStore(testLogger(), storage)
	first.SetCredentials("tok-123", User{ID: 5, UserName: "me"})

	// A new process over the same state dir starts authenticated.
	second := NewStore(testLogger(), storage)
	if second.Authenticated() {
		t.Fatalf("authenticated before Restore")
	}
	if err := second.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	snap := second.Snapshot()
	if snap.Token != "tok-123" {
		t.Fatalf("token=%q want tok-123", snap.Token)
	}
	if snap.User == nil || snap.User.ID != 5 || snap.User.UserName != "me" {
		t.Fatalf("user=%+v", snap.User)
	}
}

func TestStoreClearDestroysPersistedState(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	storage, err := NewStorage(dir)
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}

	s := NewStore(testLogger(), storage)
	s.SetCredentials("tok", User{ID: 5})
	s.Clear()

	if s.Authenticated() {
		t.Fatalf("authenticated after Clear")
	}
	fresh := NewStore(testLogger(), storage)
	if err := fresh.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if fresh.Authenticated() {
		t.Fatalf("cleared session restored")
	}
}

func TestStoreNotifyOnTransitionsOnly(t *testing.T) {
	t.Parallel()

	s := NewStore(testLogger(), nil)
	var seen []bool
	s.OnChange(func(snap Snapshot) { seen = append(seen, snap.Authenticated()) })

	s.Clear() // nothing to destroy: no notification
	s.SetCredentials("tok", User{ID: 5})
	s.Clear()
	s.Clear() // already cleared: no notification

	want := []bool{true, false}
	if len(seen) != len(want) {
		t.Fatalf("notifications=%v want=%v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("notifications=%v want=%v", seen, want)
		}
	}
}

func TestStorageMissingStateIsNotAnError(t *testing.T) {
	t.Parallel()

	storage, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}

	token, user, err := storage.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if token != "" || user != nil {
		t.Fatalf("token=%q user=%+v want empty", token, user)
	}
}

func TestStorageCorruptUserKeepsToken(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	storage, err := NewStorage(dir)
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	if err := storage.Save("tok", &User{ID: 5, UserName: "me"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "user"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("corrupt user file: %v", err)
	}

	token, user, err := storage.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if token != "tok" {
		t.Fatalf("token=%q want tok", token)
	}
	if user != nil {
		t.Fatalf("user=%+v want nil for corrupt entry", user)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	s := NewStore(testLogger(), nil)
	s.SetCredentials("tok", User{ID: 5, UserName: "me"})

	snap := s.Snapshot()
	snap.User.UserName = "mutated"

	if got := s.Snapshot().User.UserName; got != "me" {
		t.Fatalf("store user mutated through snapshot: %q", got)
	}
}
