package storage

import (
	"errors"
	"os"
	"sync"
)

// Feed is the durable video feed document. Every Save replaces the whole
// document; there is no incremental merge with earlier runs.
type Feed struct {
	path string
	mu   sync.Mutex
}

// NewFeed returns a feed backed by the JSON document at path.
func NewFeed(path string) *Feed {
	return &Feed{path: path}
}

// Path returns the location of the backing document.
func (f *Feed) Path() string { return f.path }

// Load returns the stored videos in document order. A missing document is
// an empty feed.
func (f *Feed) Load() ([]Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var videos []Video
	if err := readJSON(f.path, &videos); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Video{}, nil
		}
		return nil, &StorageError{Op: "read", Entity: "videos", ID: f.path, Err: err}
	}
	if videos == nil {
		videos = []Video{}
	}
	return videos, nil
}

// Save atomically replaces the document with videos.
func (f *Feed) Save(videos []Video) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if videos == nil {
		videos = []Video{}
	}
	if err := writeJSON(f.path, videos); err != nil {
		return &StorageError{Op: "write", Entity: "videos", ID: f.path, Err: err}
	}
	return nil
}
