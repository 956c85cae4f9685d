package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"chanfeed/internal/errs"
	"chanfeed/internal/retry"
)

// Endpoint names used for quota accounting, logs and metrics.
const (
	EndpointChannels      = "channels.list"
	EndpointSearch        = "search.list"
	EndpointPlaylistItems = "playlistItems.list"
)

// Observer receives per-call telemetry. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveCatalogCall(endpoint, outcome string, d time.Duration)
	ObserveCatalogRetry(endpoint string)
}

// Options configures an APIClient.
type Options struct {
	APIKey            string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	Retry             retry.Config
	Breaker           BreakerConfig
	Transport         TransportConfig
	Logger            zerolog.Logger
	Observer          Observer
}

// APIClient implements Catalog on top of the YouTube Data API v3.
type APIClient struct {
	service  *ytapi.Service
	limiter  *RateLimiter
	breaker  *CircuitBreaker
	retry    retry.Config
	timeout  time.Duration
	log      zerolog.Logger
	observer Observer
}

var _ Catalog = (*APIClient)(nil)

// NewAPIClient creates a Data API client authenticated with opts.APIKey over
// a pooled HTTP client. Extra client options are appended and may replace it.
func NewAPIClient(ctx context.Context, opts Options, extra ...option.ClientOption) (*APIClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: youtube api key is required", errs.ErrValidation)
	}

	clientOpts := append([]option.ClientOption{
		option.WithHTTPClient(newHTTPClient(opts.APIKey, opts.Transport)),
		option.WithUserAgent("chanfeed"),
	}, extra...)

	service, err := ytapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return newAPIClient(service, opts), nil
}

func newAPIClient(service *ytapi.Service, opts Options) *APIClient {
	cfg := opts.Retry
	if cfg.MaxAttempts == 0 {
		cfg = retry.DefaultConfig()
	}
	return &APIClient{
		service:  service,
		limiter:  NewRateLimiter(opts.RequestsPerSecond),
		breaker:  NewCircuitBreaker(opts.Breaker),
		retry:    cfg,
		timeout:  opts.RequestTimeout,
		log:      opts.Logger.With().Str("component", "youtube").Logger(),
		observer: opts.Observer,
	}
}

// CircuitState returns the breaker state for endpoint.
func (c *APIClient) CircuitState(endpoint string) CircuitState {
	return c.breaker.State(endpoint)
}

// QuotaUsed returns the estimated Data API units spent by this client.
func (c *APIClient) QuotaUsed() int {
	return c.limiter.Spent()
}

// ResolveHandle looks the handle up with channels.list forHandle and falls
// back to a channel search when that returns nothing.
func (c *APIClient) ResolveHandle(ctx context.Context, handle string) (Channel, error) {
	if !handlePattern.MatchString(handle) {
		return Channel{}, fmt.Errorf("%w: invalid handle %q", errs.ErrValidation, handle)
	}

	var (
		ch    Channel
		found bool
	)
	err := c.call(ctx, EndpointChannels, costChannelsList, func(ctx context.Context) error {
		resp, err := c.service.Channels.List([]string{"snippet"}).
			ForHandle(handle).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		if len(resp.Items) > 0 {
			ch, found = channelFromAPI(resp.Items[0]), true
		}
		return nil
	})
	if err != nil {
		return Channel{}, err
	}

	if !found {
		c.log.Debug().Str("handle", handle).Msg("handle lookup empty, searching")
		err = c.call(ctx, EndpointSearch, costSearchList, func(ctx context.Context) error {
			resp, err := c.service.Search.List([]string{"snippet"}).
				Q(handle).
				Type("channel").
				MaxResults(1).
				Context(ctx).
				Do()
			if err != nil {
				return err
			}
			if len(resp.Items) == 0 {
				return fmt.Errorf("handle %s: %w", handle, errs.ErrNotFound)
			}
			ch = channelFromSearch(resp.Items[0])
			return nil
		})
		if err != nil {
			return Channel{}, err
		}
	}

	if ch.ID == "" {
		return Channel{}, fmt.Errorf("handle %s: %w", handle, errs.ErrNotFound)
	}
	ch.Handle = handle
	return ch, nil
}

// LookupChannel fetches channel metadata by id.
func (c *APIClient) LookupChannel(ctx context.Context, channelID string) (Channel, error) {
	var ch Channel
	err := c.call(ctx, EndpointChannels, costChannelsList, func(ctx context.Context) error {
		resp, err := c.service.Channels.List([]string{"snippet"}).
			Id(channelID).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 {
			return fmt.Errorf("channel %s: %w", channelID, errs.ErrNotFound)
		}
		ch = channelFromAPI(resp.Items[0])
		return nil
	})
	if err != nil {
		return Channel{}, err
	}
	if ch.Handle == "" {
		ch.Handle = channelID
	}
	return ch, nil
}

// ResolveUploadsListing returns the uploads playlist id of a channel.
func (c *APIClient) ResolveUploadsListing(ctx context.Context, channelID string) (string, error) {
	var playlistID string
	err := c.call(ctx, EndpointChannels, costChannelsList, func(ctx context.Context) error {
		resp, err := c.service.Channels.List([]string{"contentDetails"}).
			Id(channelID).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 {
			return fmt.Errorf("channel %s: %w", channelID, errs.ErrNotFound)
		}
		details := resp.Items[0].ContentDetails
		if details == nil || details.RelatedPlaylists == nil || details.RelatedPlaylists.Uploads == "" {
			return fmt.Errorf("uploads listing for %s: %w", channelID, errs.ErrNotFound)
		}
		playlistID = details.RelatedPlaylists.Uploads
		return nil
	})
	if err != nil {
		return "", err
	}
	return playlistID, nil
}

// ListRecentItems returns the newest items of a listing. limit <= 0 uses
// DefaultListLimit.
func (c *APIClient) ListRecentItems(ctx context.Context, listingID string, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var items []Item
	err := c.call(ctx, EndpointPlaylistItems, costPlaylistItemsList, func(ctx context.Context) error {
		resp, err := c.service.PlaylistItems.List([]string{"snippet"}).
			PlaylistId(listingID).
			MaxResults(int64(limit)).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}

		items = make([]Item, 0, len(resp.Items))
		for _, pi := range resp.Items {
			item, ok := itemFromAPI(pi)
			if !ok {
				c.log.Debug().Str("listing", listingID).Msg("skipping playlist item without video id or date")
				continue
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// call runs fn under the rate limiter, the per-attempt timeout and the retry
// policy, charging cost quota units per attempt.
func (c *APIClient) call(ctx context.Context, endpoint string, cost int, fn func(context.Context) error) error {
	notify := func(next int, wait time.Duration, err error) {
		c.log.Warn().
			Err(err).
			Str("endpoint", endpoint).
			Int("attempt", next).
			Dur("backoff", wait).
			Msg("retrying catalog call")
		if c.observer != nil {
			c.observer.ObserveCatalogRetry(endpoint)
		}
	}

	return retry.DoNotify(ctx, c.retry, isRetryable, notify, func(ctx context.Context) error {
		if err := c.breaker.Allow(endpoint); err != nil {
			return retry.Permanent(fmt.Errorf("youtube: %s: %w", endpoint, err))
		}
		if err := c.limiter.Wait(ctx); err != nil {
			c.breaker.Record(endpoint, context.Canceled)
			return err
		}

		attemptCtx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		start := time.Now()
		err := classifyError(endpoint, fn(attemptCtx))
		c.limiter.track(endpoint, cost)
		c.breaker.Record(endpoint, err)

		if c.observer != nil {
			outcome := "ok"
			if err != nil {
				outcome = errs.Kind(err)
			}
			c.observer.ObserveCatalogCall(endpoint, outcome, time.Since(start))
		}
		return err
	})
}

// APIError is a non-2xx response from the Data API.
type APIError struct {
	Endpoint   string
	StatusCode int
	Reason     string
	Message    string
	kind       error
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("youtube: %s: %d %s: %s", e.Endpoint, e.StatusCode, e.Reason, e.Message)
	}
	return fmt.Sprintf("youtube: %s: %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// Unwrap exposes the error kind, if the status maps to one.
func (e *APIError) Unwrap() error { return e.kind }

var quotaReasons = map[string]bool{
	"quotaExceeded":         true,
	"rateLimitExceeded":     true,
	"dailyLimitExceeded":    true,
	"userRateLimitExceeded": true,
}

// classifyError converts googleapi errors into *APIError with an errs kind.
func classifyError(endpoint string, err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("youtube: %s: %w", endpoint, err)
	}

	apiErr := &APIError{
		Endpoint:   endpoint,
		StatusCode: gerr.Code,
		Message:    gerr.Message,
	}
	if len(gerr.Errors) > 0 {
		apiErr.Reason = gerr.Errors[0].Reason
	}

	switch gerr.Code {
	case http.StatusTooManyRequests:
		apiErr.kind = errs.ErrQuotaExceeded
	case http.StatusForbidden:
		// Other 403s are key or project restrictions and stay internal.
		if quotaReasons[apiErr.Reason] {
			apiErr.kind = errs.ErrQuotaExceeded
		}
	case http.StatusNotFound:
		apiErr.kind = errs.ErrNotFound
	case http.StatusBadRequest:
		apiErr.kind = errs.ErrValidation
	}
	return apiErr
}

// isRetryable retries network failures, timeouts and 5xx responses. Client
// errors are surfaced immediately.
func isRetryable(err error) bool {
	if !retry.IsRetryable(err) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}

func channelFromAPI(ch *ytapi.Channel) Channel {
	out := Channel{ID: ch.Id}
	if ch.Snippet != nil {
		out.Title = ch.Snippet.Title
		out.Handle = ch.Snippet.CustomUrl
		out.Thumbnail = pickThumbnail(ch.Snippet.Thumbnails, false)
	}
	return out
}

func channelFromSearch(r *ytapi.SearchResult) Channel {
	var out Channel
	if r.Id != nil {
		out.ID = r.Id.ChannelId
	}
	if r.Snippet != nil {
		if out.ID == "" {
			out.ID = r.Snippet.ChannelId
		}
		out.Title = r.Snippet.Title
		if out.Title == "" {
			out.Title = r.Snippet.ChannelTitle
		}
		out.Thumbnail = pickThumbnail(r.Snippet.Thumbnails, false)
	}
	return out
}

func itemFromAPI(pi *ytapi.PlaylistItem) (Item, bool) {
	s := pi.Snippet
	if s == nil || s.ResourceId == nil || s.ResourceId.VideoId == "" {
		return Item{}, false
	}
	published, err := time.Parse(time.RFC3339, s.PublishedAt)
	if err != nil {
		return Item{}, false
	}
	return Item{
		VideoID:      s.ResourceId.VideoId,
		Title:        s.Title,
		Description:  s.Description,
		ThumbnailURL: pickThumbnail(s.Thumbnails, true),
		ChannelTitle: s.ChannelTitle,
		PublishedAt:  published.UTC(),
	}, true
}

// pickThumbnail prefers high then medium for videos and default then medium
// for channel avatars.
func pickThumbnail(t *ytapi.ThumbnailDetails, large bool) string {
	if t == nil {
		return ""
	}
	order := []*ytapi.Thumbnail{t.Default, t.Medium, t.High}
	if large {
		order = []*ytapi.Thumbnail{t.High, t.Medium, t.Default}
	}
	for _, th := range order {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}
