package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chanfeed/internal/errs"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(filepath.Join(t.TempDir(), "data", "channels.json"), zerolog.Nop())
}

func TestRegistry_ListUninitialized(t *testing.T) {
	reg := newTestRegistry(t)

	channels := reg.List()
	if channels == nil {
		t.Fatal("List() returned nil, want empty slice")
	}
	if len(channels) != 0 {
		t.Errorf("List() len = %d, want 0", len(channels))
	}
}

func TestRegistry_AddPreservesOrder(t *testing.T) {
	reg := newTestRegistry(t)

	for _, id := range []string{"UCb", "UCa", "UCc"} {
		added, err := reg.Add(Channel{ID: id, Title: "Channel " + id, Handle: "@" + id})
		if err != nil {
			t.Fatalf("Add(%s) error = %v", id, err)
		}
		if !added {
			t.Fatalf("Add(%s) = false, want true", id)
		}
	}

	got := reg.List()
	want := []string{"UCb", "UCa", "UCc"}
	if len(got) != len(want) {
		t.Fatalf("List() len = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("List()[%d].ID = %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestRegistry_AddDuplicate(t *testing.T) {
	reg := newTestRegistry(t)

	if _, err := reg.Add(Channel{ID: "UC1", Title: "First"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	before, err := os.ReadFile(reg.Path())
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	added, err := reg.Add(Channel{ID: "UC1", Title: "Renamed"})
	if err != nil {
		t.Fatalf("Add() duplicate error = %v", err)
	}
	if added {
		t.Error("Add() duplicate = true, want false")
	}

	after, _ := os.ReadFile(reg.Path())
	if string(before) != string(after) {
		t.Error("duplicate Add() modified the document")
	}
	if ch, _ := reg.Get("UC1"); ch.Title != "First" {
		t.Errorf("channel title = %q, want %q", ch.Title, "First")
	}
}

func TestRegistry_Remove(t *testing.T) {
	reg := newTestRegistry(t)
	reg.Add(Channel{ID: "UC1"})
	reg.Add(Channel{ID: "UC2"})

	removed, err := reg.Remove("UC1")
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if !removed {
		t.Error("Remove() = false, want true")
	}

	removed, err = reg.Remove("UC1")
	if err != nil {
		t.Fatalf("Remove() second error = %v", err)
	}
	if removed {
		t.Error("Remove() of missing id = true, want false")
	}

	got := reg.List()
	if len(got) != 1 || got[0].ID != "UC2" {
		t.Errorf("List() = %+v, want only UC2", got)
	}
}

func TestRegistry_RemoveLastLeavesEmptyArray(t *testing.T) {
	reg := newTestRegistry(t)
	reg.Add(Channel{ID: "UC1"})
	reg.Remove("UC1")

	data, err := os.ReadFile(reg.Path())
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "[]\n" {
		t.Errorf("document = %q, want %q", data, "[]\n")
	}
}

func TestRegistry_CorruptDocument(t *testing.T) {
	reg := newTestRegistry(t)
	os.MkdirAll(filepath.Dir(reg.Path()), 0755)
	os.WriteFile(reg.Path(), []byte("{not json"), 0644)

	if got := reg.List(); len(got) != 0 {
		t.Errorf("List() on corrupt document len = %d, want 0", len(got))
	}
}

func TestFeed_SaveLoad(t *testing.T) {
	feed := NewFeed(filepath.Join(t.TempDir(), "videos.json"))

	videos, err := feed.Load()
	if err != nil {
		t.Fatalf("Load() missing error = %v", err)
	}
	if len(videos) != 0 {
		t.Errorf("Load() missing len = %d, want 0", len(videos))
	}

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	in := []Video{
		{ID: "v2", Title: "새로운 AI 도구", PublishedAt: now, Category: "AI", Categories: []string{"AI"}},
		{ID: "v1", Title: "older", PublishedAt: now.Add(-time.Hour), Category: "AI", Categories: []string{"AI", "Automation"}},
	}
	if err := feed.Save(in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	out, err := feed.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(out) != 2 || out[0].ID != "v2" || out[1].ID != "v1" {
		t.Fatalf("Load() = %+v, want v2, v1", out)
	}
	if !out[0].PublishedAt.Equal(now) {
		t.Errorf("PublishedAt = %v, want %v", out[0].PublishedAt, now)
	}
	if out[0].Title != "새로운 AI 도구" {
		t.Errorf("Title = %q", out[0].Title)
	}
}

func TestFeed_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "videos.json")
	os.WriteFile(path, []byte("[{"), 0644)

	_, err := NewFeed(path).Load()
	if !errors.Is(err, ErrStorageCorrupt) {
		t.Errorf("Load() error = %v, want ErrStorageCorrupt", err)
	}
	var storErr *StorageError
	if !errors.As(err, &storErr) || storErr.Entity != "videos" {
		t.Errorf("Load() error = %v, want *StorageError for videos", err)
	}
}

func TestAtomicWriter_Abort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	w, err := NewAtomicWriter(path)
	if err != nil {
		t.Fatalf("NewAtomicWriter() error = %v", err)
	}
	w.Write([]byte("partial"))
	if err := w.Abort(); err != nil {
		t.Fatalf("Abort() error = %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("target file exists after Abort()")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("temp files left behind: %d", len(entries))
	}
}

func TestFileLock_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")

	first := NewFileLock(path)
	if err := first.Lock(time.Second); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	second := NewFileLock(path)
	err := second.Lock(50 * time.Millisecond)
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("second Lock() error = %v, want ErrLockTimeout", err)
	}
	if !errors.Is(err, errs.ErrBusy) {
		t.Error("ErrLockTimeout should match errs.ErrBusy")
	}

	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if err := second.Lock(time.Second); err != nil {
		t.Fatalf("Lock() after release error = %v", err)
	}
	second.Unlock()
}
