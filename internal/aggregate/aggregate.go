// Package aggregate fetches recent uploads for every registered channel in
// parallel and merges them into one categorized, deduplicated feed.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chanfeed/internal/errs"
	"chanfeed/internal/storage"
	"chanfeed/internal/youtube"
)

// Window bounds in days.
const (
	MinWindowDays = 1
	MaxWindowDays = 365
)

// Lister is the part of the catalog the aggregator needs.
type Lister interface {
	ResolveUploadsListing(ctx context.Context, channelID string) (string, error)
	ListRecentItems(ctx context.Context, listingID string, limit int) ([]youtube.Item, error)
}

// Classifier assigns category names to a video.
type Classifier interface {
	Classify(title, description string) []string
}

// Status is the per-channel fetch result.
type Status string

const (
	StatusSuccess Status = "success"
	StatusEmpty   Status = "empty"
	StatusError   Status = "error"
)

// Outcome reports what happened to one channel during a run.
type Outcome struct {
	Status Status `json:"status"`
	Videos int    `json:"videos"`
	Err    string `json:"error,omitempty"`
	// Cause is the underlying error for StatusError outcomes.
	Cause error `json:"-"`
}

// Result is the merged output of a run.
type Result struct {
	Videos    []storage.Video    `json:"videos"`
	Outcomes  map[string]Outcome `json:"outcomes"`
	Histogram Histogram          `json:"histogram"`
	Succeeded int                `json:"succeeded"`
	Empty     int                `json:"empty"`
	Failed    int                `json:"failed"`
}

// FirstError returns the cause of the first failed channel in channels
// order, or nil.
func (r *Result) FirstError(channels []storage.Channel) error {
	for _, ch := range channels {
		if o, ok := r.Outcomes[ch.ID]; ok && o.Cause != nil {
			return o.Cause
		}
	}
	return nil
}

// AllFailed reports whether at least one channel was processed and none of
// them succeeded or came back empty.
func (r *Result) AllFailed() bool {
	return r.Failed > 0 && r.Succeeded == 0 && r.Empty == 0
}

// Observer receives one call per channel per run.
type Observer interface {
	ObserveChannelOutcome(status string)
}

// Config tunes an Aggregator. Zero values select defaults.
type Config struct {
	// ListLimit is the number of items requested per channel.
	ListLimit int
	// Concurrency bounds in-flight channels. 0 means one goroutine per channel.
	Concurrency int
	// Now is the clock used for the recency cutoff.
	Now      func() time.Time
	Logger   zerolog.Logger
	Observer Observer
}

// Aggregator runs one fetch per channel and merges the results.
type Aggregator struct {
	catalog    Lister
	classifier Classifier
	limit      int
	sem        chan struct{}
	now        func() time.Time
	log        zerolog.Logger
	observer   Observer
}

// New creates an Aggregator.
func New(catalog Lister, classifier Classifier, cfg Config) *Aggregator {
	a := &Aggregator{
		catalog:    catalog,
		classifier: classifier,
		limit:      cfg.ListLimit,
		now:        cfg.Now,
		log:        cfg.Logger.With().Str("component", "aggregate").Logger(),
		observer:   cfg.Observer,
	}
	if a.limit <= 0 {
		a.limit = youtube.DefaultListLimit
	}
	if a.now == nil {
		a.now = time.Now
	}
	if cfg.Concurrency > 0 {
		a.sem = make(chan struct{}, cfg.Concurrency)
	}
	return a
}

// ValidateWindow checks that days is within [MinWindowDays, MaxWindowDays].
func ValidateWindow(days int) error {
	if days < MinWindowDays || days > MaxWindowDays {
		return fmt.Errorf("%w: days must be between %d and %d, got %d",
			errs.ErrValidation, MinWindowDays, MaxWindowDays, days)
	}
	return nil
}

type channelResult struct {
	videos []storage.Video
	err    error
}

// Run fetches every channel and returns the merged feed. Per-channel failures
// are recorded in Result.Outcomes and never fail the run; Run itself errors
// only on an invalid window or a missing collaborator.
func (a *Aggregator) Run(ctx context.Context, channels []storage.Channel, windowDays int) (*Result, error) {
	if err := ValidateWindow(windowDays); err != nil {
		return nil, err
	}
	if a.catalog == nil || a.classifier == nil {
		return nil, errors.New("aggregate: catalog and classifier are required")
	}

	cutoff := a.now().Add(-time.Duration(windowDays) * 24 * time.Hour)
	results := make([]channelResult, len(channels))

	var wg sync.WaitGroup
	for i, ch := range channels {
		wg.Add(1)
		go func(i int, ch storage.Channel) {
			defer wg.Done()
			if a.sem != nil {
				select {
				case a.sem <- struct{}{}:
					defer func() { <-a.sem }()
				case <-ctx.Done():
					results[i] = channelResult{err: ctx.Err()}
					return
				}
			}
			results[i] = a.fetchChannel(ctx, ch, cutoff)
		}(i, ch)
	}
	wg.Wait()

	res := &Result{Outcomes: make(map[string]Outcome, len(channels))}
	for i, ch := range channels {
		r := results[i]
		switch {
		case r.err != nil:
			res.Failed++
			res.Outcomes[ch.ID] = Outcome{Status: StatusError, Err: errs.Message(r.err), Cause: r.err}
			a.log.Warn().Err(r.err).Str("channel_id", ch.ID).Str("title", ch.Title).Msg("channel fetch failed")
		case len(r.videos) == 0:
			res.Empty++
			res.Outcomes[ch.ID] = Outcome{Status: StatusEmpty}
		default:
			res.Succeeded++
			res.Outcomes[ch.ID] = Outcome{Status: StatusSuccess, Videos: len(r.videos)}
		}
		if a.observer != nil {
			a.observer.ObserveChannelOutcome(string(res.Outcomes[ch.ID].Status))
		}
	}

	res.Videos = merge(results)
	res.Histogram = NewHistogram(res.Videos)

	a.log.Info().
		Int("channels", len(channels)).
		Int("succeeded", res.Succeeded).
		Int("empty", res.Empty).
		Int("failed", res.Failed).
		Int("videos", len(res.Videos)).
		Msg("aggregation complete")
	return res, nil
}

func (a *Aggregator) fetchChannel(ctx context.Context, ch storage.Channel, cutoff time.Time) channelResult {
	if ch.Placeholder {
		return channelResult{}
	}

	listing, err := a.catalog.ResolveUploadsListing(ctx, ch.ID)
	if err != nil {
		return channelResult{err: err}
	}
	items, err := a.catalog.ListRecentItems(ctx, listing, a.limit)
	if err != nil {
		return channelResult{err: err}
	}

	var videos []storage.Video
	for _, item := range items {
		if item.PublishedAt.Before(cutoff) {
			continue
		}
		categories := a.classifier.Classify(item.Title, item.Description)
		if len(categories) == 0 {
			continue
		}
		channelTitle := item.ChannelTitle
		if channelTitle == "" {
			channelTitle = ch.Title
		}
		videos = append(videos, storage.Video{
			ID:           item.VideoID,
			Title:        item.Title,
			Description:  item.Description,
			ThumbnailURL: item.ThumbnailURL,
			ChannelTitle: channelTitle,
			PublishedAt:  item.PublishedAt,
			Category:     categories[0],
			Categories:   categories,
		})
	}
	return channelResult{videos: videos}
}

// merge deduplicates by video id, the last occurrence in channel order
// winning, then sorts newest first. Ties keep first-seen order.
func merge(results []channelResult) []storage.Video {
	index := make(map[string]int)
	videos := make([]storage.Video, 0)
	for _, r := range results {
		for _, v := range r.videos {
			if i, ok := index[v.ID]; ok {
				videos[i] = v
				continue
			}
			index[v.ID] = len(videos)
			videos = append(videos, v)
		}
	}

	sort.SliceStable(videos, func(i, j int) bool {
		return videos[i].PublishedAt.After(videos[j].PublishedAt)
	})
	return videos
}
