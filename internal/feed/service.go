// Package feed is the inbound surface of the system: it manages the channel
// registry and triggers fetch and publish runs.
package feed

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chanfeed/internal/errs"
	"chanfeed/internal/publish"
	"chanfeed/internal/storage"
	"chanfeed/internal/youtube"
)

// PlaceholderPrefix starts the id of every placeholder channel.
const PlaceholderPrefix = "placeholder-"

var channelIDPattern = regexp.MustCompile(`^(UC[\w-]{22}|placeholder-[\w-]+)$`)

// Resolver maps user input to catalog channels.
type Resolver interface {
	ResolveHandle(ctx context.Context, handle string) (youtube.Channel, error)
	LookupChannel(ctx context.Context, channelID string) (youtube.Channel, error)
}

// Registry is the channel store.
type Registry interface {
	List() []storage.Channel
	Get(id string) (storage.Channel, bool)
	Add(ch storage.Channel) (bool, error)
	Remove(id string) (bool, error)
}

// FeedReader reads the current feed document.
type FeedReader interface {
	Load() ([]storage.Video, error)
}

// Runner executes publish and fetch runs.
type Runner interface {
	Publish(ctx context.Context, days int) (*publish.Report, error)
	FetchOnly(ctx context.Context, days int) (*publish.Report, error)
}

// Options configures a Service.
type Options struct {
	// AllowPlaceholders registers a placeholder channel when the catalog
	// rejects a lookup for quota reasons. Never enabled in production.
	AllowPlaceholders bool
	Logger            zerolog.Logger
}

// Service implements the channel and publish operations.
type Service struct {
	resolver Resolver
	registry Registry
	feed     FeedReader
	runner   Runner
	opts     Options
	log      zerolog.Logger
}

// NewService creates a Service.
func NewService(resolver Resolver, registry Registry, feed FeedReader, runner Runner, opts Options) *Service {
	return &Service{
		resolver: resolver,
		registry: registry,
		feed:     feed,
		runner:   runner,
		opts:     opts,
		log:      opts.Logger.With().Str("component", "feed").Logger(),
	}
}

// ListChannels returns the registered channels in insertion order.
func (s *Service) ListChannels() []storage.Channel {
	return s.registry.List()
}

// AddChannel resolves a channel URL or handle and registers it. Malformed
// input is rejected before any catalog call.
func (s *Service) AddChannel(ctx context.Context, input string) (storage.Channel, error) {
	ref, err := youtube.ParseHandle(input)
	if err != nil {
		return storage.Channel{}, err
	}

	var resolved youtube.Channel
	handle := ref.Handle
	if ref.ChannelID != "" {
		if _, ok := s.registry.Get(ref.ChannelID); ok {
			return storage.Channel{}, fmt.Errorf("channel %s: %w", ref.ChannelID, errs.ErrDuplicate)
		}
		resolved, err = s.resolver.LookupChannel(ctx, ref.ChannelID)
		handle = ref.ChannelID
	} else {
		resolved, err = s.resolver.ResolveHandle(ctx, ref.Handle)
	}

	var ch storage.Channel
	switch {
	case err == nil:
		if resolved.Handle != "" && ref.ChannelID != "" {
			handle = resolved.Handle
		}
		ch = storage.Channel{
			ID:        resolved.ID,
			Title:     resolved.Title,
			Handle:    handle,
			Thumbnail: resolved.Thumbnail,
		}
	case errors.Is(err, errs.ErrQuotaExceeded) && s.opts.AllowPlaceholders:
		ch = storage.Channel{
			ID:          PlaceholderPrefix + uuid.NewString(),
			Title:       fmt.Sprintf("Placeholder (%s)", handle),
			Handle:      handle,
			Placeholder: true,
		}
		s.log.Warn().Err(err).Str("handle", handle).Str("channel_id", ch.ID).
			Msg("catalog quota exceeded, registering placeholder channel")
	default:
		s.log.Warn().Err(err).Str("handle", handle).Msg("channel resolution failed")
		return storage.Channel{}, err
	}

	added, err := s.registry.Add(ch)
	if err != nil {
		return storage.Channel{}, err
	}
	if !added {
		return storage.Channel{}, fmt.Errorf("channel %s: %w", ch.ID, errs.ErrDuplicate)
	}

	s.log.Info().Str("channel_id", ch.ID).Str("handle", ch.Handle).Str("title", ch.Title).Msg("channel added")
	return ch, nil
}

// RemoveChannel unregisters the channel with id.
func (s *Service) RemoveChannel(id string) error {
	if !channelIDPattern.MatchString(id) {
		return fmt.Errorf("%w: invalid channel id %q", errs.ErrValidation, id)
	}

	removed, err := s.registry.Remove(id)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("channel %s: %w", id, errs.ErrNotFound)
	}

	s.log.Info().Str("channel_id", id).Msg("channel removed")
	return nil
}

// Videos returns the current feed, newest first.
func (s *Service) Videos() ([]storage.Video, error) {
	return s.feed.Load()
}

// Publish refreshes the feed over the last days and pushes it.
func (s *Service) Publish(ctx context.Context, days int) (*publish.Report, error) {
	return s.runner.Publish(ctx, days)
}

// FetchOnly refreshes and persists the feed without publishing it.
func (s *Service) FetchOnly(ctx context.Context, days int) (*publish.Report, error) {
	return s.runner.FetchOnly(ctx, days)
}
