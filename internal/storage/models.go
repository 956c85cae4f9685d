package storage

import "time"

// Channel is a subscribed catalog channel. Channels are never mutated in
// place; the registry only appends and removes them.
type Channel struct {
	// ID is the opaque catalog identifier (e.g., "UCxxxxxxxxxxxxxxxxxxxxxx").
	ID string `json:"id"`
	// Title is the channel display name.
	Title string `json:"title"`
	// Handle is the user-facing @name the channel was added with.
	Handle string `json:"handle"`
	// Thumbnail is the channel avatar URL, if known.
	Thumbnail string `json:"thumbnail,omitempty"`
	// Placeholder marks a channel registered without catalog confirmation.
	// Placeholder channels are never fetched.
	Placeholder bool `json:"placeholder,omitempty"`
}

// Video is one entry of the published feed. A Video only exists in the feed
// when Categories is non-empty; Category is its first element.
type Video struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	ChannelTitle string    `json:"channelTitle"`
	PublishedAt  time.Time `json:"publishedAt"`
	Category     string    `json:"category"`
	Categories   []string  `json:"categories"`
}
