// Package chanfeed builds a curated, categorized feed of recent videos from a
// registry of YouTube channels and publishes it through git.
//
// Overview
//
// chanfeed is organized as a pipeline:
//
//   - internal/storage: channels.json registry and videos.json feed, written atomically
//   - internal/youtube: YouTube Data API v3 catalog with retry, rate limiting and quota tracking
//   - internal/category: keyword taxonomy and classifier
//   - internal/aggregate: parallel per-channel fetch, recency filter, dedup and sort
//   - internal/publish: fetch, status, add, commit and push state machine
//   - internal/feed: channel management service and application wiring
//   - internal/httpapi: Fiber HTTP API with Prometheus metrics
//
// The chanfeed command in cli/ exposes the same operations on the command
// line and serves the HTTP API.
//
// Configuration
//
// Settings load from multiple sources:
//
//   1. Environment variables (highest priority)
//   2. Config file (CHANFEED_CONFIG, chanfeed.json or ~/.config/chanfeed/chanfeed.json)
//   3. Default values (lowest priority)
//
// Environment variables:
//
//   - CHANFEED_YOUTUBE_API_KEY (or YOUTUBE_API_KEY): YouTube Data API key
//   - CHANFEED_DATA_DIR: Directory holding channels.json and videos.json
//   - CHANFEED_WINDOW_DAYS: Default recency window in days
//   - CHANFEED_REPO_DIR: Git work tree the feed is published from
//   - CHANFEED_REMOTE, CHANFEED_BRANCH: Push target (empty uses upstream)
//   - CHANFEED_MAX_RETRIES: Maximum catalog attempts per call
//   - CHANFEED_INITIAL_BACKOFF, CHANFEED_MAX_BACKOFF: Retry backoff bounds
//   - CHANFEED_ENV: development or production
//   - CHANFEED_ALLOW_PLACEHOLDER_CHANNELS: Register placeholders on quota errors (development only)
//   - CHANFEED_LOG_LEVEL, CHANFEED_LOG_FORMAT: Logging
//
// Error Handling
//
// Every operation reports one of a fixed set of error kinds. Check them with
// errors.Is against the sentinels exported here:
//
//	if errors.Is(err, chanfeed.ErrQuotaExceeded) {
//		fmt.Println("try again tomorrow")
//	}
//
// or map any error to its stable kind name with Kind.
//
// Dependencies
//
// Publishing requires git in PATH and a work tree whose upstream accepts
// pushes without prompting.
package chanfeed
