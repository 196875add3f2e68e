package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	inputs := []Entry{
		{Session: "repl", Source: "set x 1\n", OK: true},
		{Session: "repl", Source: "print y\n", OK: false, Message: "value error: y is undefined"},
		{Session: "s-1", Source: "push 2\n", OK: true},
		{Session: "repl", Source: "print x\n", OK: true},
	}
	var lastID int64
	for _, e := range inputs {
		id, err := s.Record(ctx, e)
		if err != nil {
			t.Fatalf("Record(%q) failed: %v", e.Source, err)
		}
		if id <= lastID {
			t.Errorf("id = %d, want greater than %d", id, lastID)
		}
		lastID = id
	}

	got, err := s.Recent(ctx, "repl", 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent returned %d entries, want 2", len(got))
	}
	if got[0].Source != "print y\n" || got[1].Source != "print x\n" {
		t.Errorf("Recent = %q, %q; want oldest first", got[0].Source, got[1].Source)
	}
	if got[0].OK || got[0].Message != "value error: y is undefined" {
		t.Errorf("failed entry = %+v", got[0])
	}
	if !got[1].OK {
		t.Errorf("entry %d OK = false, want true", got[1].ID)
	}
	if got[1].CreatedAt.IsZero() {
		t.Error("CreatedAt was not set")
	}

	all, err := s.Recent(ctx, "", 0)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("Recent(all) returned %d entries, want 4", len(all))
	}
}

func TestRecordKeepsTimestamp(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	at := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	if _, err := s.Record(ctx, Entry{Session: "a", Source: "pop\n", CreatedAt: at}); err != nil {
		t.Fatal(err)
	}
	got, err := s.Recent(ctx, "a", 1)
	if err != nil {
		t.Fatal(err)
	}
	if !got[0].CreatedAt.Equal(at) {
		t.Errorf("CreatedAt = %v, want %v", got[0].CreatedAt, at)
	}
}

func TestRecordEmptySource(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Record(context.Background(), Entry{Session: "a"}); !errors.Is(err, ErrEmptySource) {
		t.Errorf("Record error = %v, want ErrEmptySource", err)
	}
}

func TestSessionsAndClear(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, sess := range []string{"b", "a", "b", "c"} {
		if _, err := s.Record(ctx, Entry{Session: sess, Source: "pop\n"}); err != nil {
			t.Fatal(err)
		}
	}

	sessions, err := s.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	want := []string{"b", "a", "c"}
	if len(sessions) != len(want) {
		t.Fatalf("Sessions = %v, want %v", sessions, want)
	}
	for i := range want {
		if sessions[i] != want[i] {
			t.Errorf("Sessions[%d] = %q, want %q", i, sessions[i], want[i])
		}
	}

	n, err := s.Clear(ctx, "b")
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Clear removed %d entries, want 2", n)
	}
	if got, _ := s.Recent(ctx, "b", 0); len(got) != 0 {
		t.Errorf("session b still has %d entries", len(got))
	}

	if n, err := s.Clear(ctx, ""); err != nil || n != 2 {
		t.Errorf("Clear(all) = %d, %v; want 2", n, err)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Record(ctx, Entry{Session: "repl", Source: "push 1\n", OK: true}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if s.Path() != path {
		t.Errorf("Path() = %q, want %q", s.Path(), path)
	}
	got, err := s.Recent(ctx, "repl", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Source != "push 1\n" {
		t.Errorf("Recent after reopen = %+v", got)
	}
}
