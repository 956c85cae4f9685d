// Package youtube resolves channel handles and lists recent uploads through
// the YouTube Data API v3.
package youtube

import (
	"context"
	"time"
)

// DefaultListLimit is the number of items requested per uploads listing.
const DefaultListLimit = 20

// maxListLimit is the largest page the API accepts for playlistItems.list.
const maxListLimit = 50

// Catalog is the read-only view of the video catalog used by the feed.
type Catalog interface {
	// ResolveHandle maps an "@name" handle to its channel.
	ResolveHandle(ctx context.Context, handle string) (Channel, error)
	// LookupChannel fetches a channel by its "UC..." id.
	LookupChannel(ctx context.Context, channelID string) (Channel, error)
	// ResolveUploadsListing returns the id of the channel's uploads listing.
	ResolveUploadsListing(ctx context.Context, channelID string) (string, error)
	// ListRecentItems returns up to limit items of a listing, newest first.
	ListRecentItems(ctx context.Context, listingID string, limit int) ([]Item, error)
}

// Channel is a channel as reported by the catalog.
type Channel struct {
	ID        string
	Title     string
	Handle    string
	Thumbnail string
}

// Item is a single upload in a listing.
type Item struct {
	VideoID      string
	Title        string
	Description  string
	ThumbnailURL string
	ChannelTitle string
	PublishedAt  time.Time
}
