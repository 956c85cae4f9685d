package storage

import (
	"errors"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Registry is the durable, insertion-ordered set of subscribed channels,
// unique by ID. It assumes a single writing process.
type Registry struct {
	path string
	log  zerolog.Logger
	mu   sync.Mutex
}

// NewRegistry returns a registry backed by the JSON document at path.
// The file is created lazily on the first write.
func NewRegistry(path string, log zerolog.Logger) *Registry {
	return &Registry{path: path, log: log}
}

// Path returns the location of the backing document.
func (r *Registry) Path() string { return r.path }

// List returns the registered channels. It never fails: a missing or
// unreadable document yields an empty list.
func (r *Registry) List() []Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

// Get returns the channel with the given id.
func (r *Registry) Get(id string) (Channel, bool) {
	for _, ch := range r.List() {
		if ch.ID == id {
			return ch, true
		}
	}
	return Channel{}, false
}

// Add appends ch and persists the registry. It reports false without
// writing when a channel with the same ID is already registered.
func (r *Registry) Add(ch Channel) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	channels := r.load()
	for _, existing := range channels {
		if existing.ID == ch.ID {
			return false, nil
		}
	}

	channels = append(channels, ch)
	if err := writeJSON(r.path, channels); err != nil {
		return false, &StorageError{Op: "write", Entity: "channels", ID: ch.ID, Err: err}
	}
	return true, nil
}

// Remove deletes the channel with the given id and persists the registry.
// It reports false when no such channel exists.
func (r *Registry) Remove(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	channels := r.load()
	kept := channels[:0:0]
	for _, ch := range channels {
		if ch.ID != id {
			kept = append(kept, ch)
		}
	}
	if len(kept) == len(channels) {
		return false, nil
	}

	if err := writeJSON(r.path, kept); err != nil {
		return false, &StorageError{Op: "write", Entity: "channels", ID: id, Err: err}
	}
	return true, nil
}

func (r *Registry) load() []Channel {
	var channels []Channel
	if err := readJSON(r.path, &channels); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.log.Error().Err(err).Str("path", r.path).Msg("load channels")
		}
		return []Channel{}
	}
	if channels == nil {
		channels = []Channel{}
	}
	return channels
}
