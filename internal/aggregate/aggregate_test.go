package aggregate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chanfeed/internal/category"
	"chanfeed/internal/errs"
	"chanfeed/internal/storage"
	"chanfeed/internal/youtube"
)

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type fakeCatalog struct {
	mu       sync.Mutex
	items    map[string][]youtube.Item
	failures map[string]error
	calls    []string

	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeCatalog) ResolveUploadsListing(ctx context.Context, channelID string) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.calls = append(f.calls, channelID)
	f.mu.Unlock()

	if err := f.failures[channelID]; err != nil {
		return "", err
	}
	return "UU" + channelID, nil
}

func (f *fakeCatalog) ListRecentItems(ctx context.Context, listingID string, limit int) ([]youtube.Item, error) {
	return f.items[strings.TrimPrefix(listingID, "UU")], nil
}

// titleClassifier tags titles containing "AI" or "code".
type titleClassifier struct{}

func (titleClassifier) Classify(title, _ string) []string {
	var out []string
	if strings.Contains(title, "AI") {
		out = append(out, "AI")
	}
	if strings.Contains(title, "code") {
		out = append(out, "Coding")
	}
	return out
}

func item(id, title string, age time.Duration) youtube.Item {
	return youtube.Item{VideoID: id, Title: title, ChannelTitle: "ch", PublishedAt: testNow.Add(-age)}
}

func newTestAggregator(cat Lister, cfg Config) *Aggregator {
	cfg.Now = func() time.Time { return testNow }
	return New(cat, titleClassifier{}, cfg)
}

func channels(ids ...string) []storage.Channel {
	out := make([]storage.Channel, len(ids))
	for i, id := range ids {
		out[i] = storage.Channel{ID: id, Title: "Channel " + id}
	}
	return out
}

func videoIDs(videos []storage.Video) []string {
	ids := make([]string, len(videos))
	for i, v := range videos {
		ids[i] = v.ID
	}
	return ids
}

func TestRun_RecencyBoundary(t *testing.T) {
	day := 24 * time.Hour
	cat := &fakeCatalog{items: map[string][]youtube.Item{
		"A": {
			item("exact", "AI exactly seven days", 7*day),
			item("inside", "AI six days", 6*day),
			item("just-outside", "AI one second too old", 7*day+time.Second),
			item("old", "AI eight days", 8*day),
		},
	}}

	res, err := newTestAggregator(cat, Config{}).Run(context.Background(), channels("A"), 7)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := videoIDs(res.Videos)
	want := []string{"inside", "exact"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("videos = %v, want %v", got, want)
	}
}

func TestRun_DropsUnclassified(t *testing.T) {
	cat := &fakeCatalog{items: map[string][]youtube.Item{
		"A": {
			item("v1", "AI and code", time.Hour),
			item("v2", "Cooking pasta", time.Hour),
		},
	}}

	res, err := newTestAggregator(cat, Config{}).Run(context.Background(), channels("A"), 7)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(res.Videos) != 1 {
		t.Fatalf("got %d videos, want 1", len(res.Videos))
	}
	v := res.Videos[0]
	if v.Category != "AI" || fmt.Sprint(v.Categories) != "[AI Coding]" {
		t.Errorf("category = %q categories = %v, want AI [AI Coding]", v.Category, v.Categories)
	}
}

func TestRun_DedupLastWins(t *testing.T) {
	cat := &fakeCatalog{items: map[string][]youtube.Item{
		"A": {item("shared", "AI first copy", time.Hour), item("a-only", "AI from A", 2*time.Hour)},
		"B": {item("shared", "AI second copy", time.Hour)},
	}}

	res, err := newTestAggregator(cat, Config{}).Run(context.Background(), channels("A", "B"), 7)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(res.Videos) != 2 {
		t.Fatalf("got %d videos, want 2: %v", len(res.Videos), videoIDs(res.Videos))
	}
	if res.Videos[0].ID != "shared" || res.Videos[0].Title != "AI second copy" {
		t.Errorf("first video = %s %q, want shared \"AI second copy\"", res.Videos[0].ID, res.Videos[0].Title)
	}
	if res.Histogram["AI"] != 2 {
		t.Errorf("histogram[AI] = %d, want 2", res.Histogram["AI"])
	}
}

func TestRun_SortsNewestFirst(t *testing.T) {
	cat := &fakeCatalog{items: map[string][]youtube.Item{
		"A": {item("a3", "AI three hours", 3*time.Hour), item("a1", "AI one hour", time.Hour)},
		"B": {item("b2", "code two hours", 2*time.Hour), item("b4", "code four hours", 4*time.Hour)},
	}}

	res, err := newTestAggregator(cat, Config{}).Run(context.Background(), channels("A", "B"), 7)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := fmt.Sprint(videoIDs(res.Videos))
	if got != "[a1 b2 a3 b4]" {
		t.Errorf("order = %s, want [a1 b2 a3 b4]", got)
	}
	for i := 1; i < len(res.Videos); i++ {
		if res.Videos[i].PublishedAt.After(res.Videos[i-1].PublishedAt) {
			t.Errorf("video %d is newer than video %d", i, i-1)
		}
	}
}

func TestRun_PartialFailure(t *testing.T) {
	cat := &fakeCatalog{
		items: map[string][]youtube.Item{
			"ok":    {item("v1", "AI news", time.Hour)},
			"empty": {item("v2", "Cooking", time.Hour)},
		},
		failures: map[string]error{
			"bad": fmt.Errorf("youtube: %w", errs.ErrTransientNetwork),
		},
	}

	res, err := newTestAggregator(cat, Config{}).Run(context.Background(), channels("ok", "bad", "empty"), 7)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.Succeeded != 1 || res.Empty != 1 || res.Failed != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1", res.Succeeded, res.Empty, res.Failed)
	}
	if got := res.Outcomes["bad"]; got.Status != StatusError || got.Err == "" {
		t.Errorf("outcome[bad] = %+v, want error with message", got)
	}
	if got := res.Outcomes["ok"]; got.Status != StatusSuccess || got.Videos != 1 {
		t.Errorf("outcome[ok] = %+v, want success with 1 video", got)
	}
	if got := res.Outcomes["empty"]; got.Status != StatusEmpty {
		t.Errorf("outcome[empty] = %+v, want empty", got)
	}
	if res.AllFailed() {
		t.Error("AllFailed() = true with a successful channel")
	}
}

func TestRun_AllFailed(t *testing.T) {
	cat := &fakeCatalog{failures: map[string]error{
		"A": errs.ErrQuotaExceeded,
		"B": errs.ErrNotFound,
	}}

	res, err := newTestAggregator(cat, Config{}).Run(context.Background(), channels("A", "B"), 7)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.AllFailed() {
		t.Errorf("AllFailed() = false, outcomes %+v", res.Outcomes)
	}
	if len(res.Videos) != 0 {
		t.Errorf("got %d videos, want 0", len(res.Videos))
	}
}

func TestRun_NoChannels(t *testing.T) {
	res, err := newTestAggregator(&fakeCatalog{}, Config{}).Run(context.Background(), nil, 7)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Videos == nil || len(res.Videos) != 0 {
		t.Errorf("Videos = %#v, want empty non-nil slice", res.Videos)
	}
	if res.AllFailed() {
		t.Error("AllFailed() = true with no channels")
	}
}

func TestRun_PlaceholderNotFetched(t *testing.T) {
	cat := &fakeCatalog{}
	chs := []storage.Channel{{ID: "placeholder-1", Title: "Placeholder (@x)", Placeholder: true}}

	res, err := newTestAggregator(cat, Config{}).Run(context.Background(), chs, 7)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(cat.calls) != 0 {
		t.Errorf("catalog called for placeholder: %v", cat.calls)
	}
	if res.Outcomes["placeholder-1"].Status != StatusEmpty {
		t.Errorf("outcome = %+v, want empty", res.Outcomes["placeholder-1"])
	}
}

func TestRun_InvalidWindow(t *testing.T) {
	agg := newTestAggregator(&fakeCatalog{}, Config{})
	for _, days := range []int{-1, 0, 366} {
		_, err := agg.Run(context.Background(), channels("A"), days)
		if !errors.Is(err, errs.ErrValidation) {
			t.Errorf("Run(days=%d) error = %v, want ErrValidation", days, err)
		}
	}
	for _, days := range []int{1, 365} {
		if err := ValidateWindow(days); err != nil {
			t.Errorf("ValidateWindow(%d) = %v, want nil", days, err)
		}
	}
}

func TestRun_ConcurrencyBound(t *testing.T) {
	cat := &fakeCatalog{delay: 20 * time.Millisecond}

	_, err := newTestAggregator(cat, Config{Concurrency: 2}).Run(context.Background(), channels("A", "B", "C", "D", "E"), 7)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := cat.maxSeen.Load(); got > 2 {
		t.Errorf("max in-flight = %d, want <= 2", got)
	}
	if len(cat.calls) != 5 {
		t.Errorf("catalog calls = %d, want 5", len(cat.calls))
	}
}

func TestRun_WithTaxonomyClassifier(t *testing.T) {
	cat := &fakeCatalog{items: map[string][]youtube.Item{
		"A": {
			item("v1", "Building agents with Claude", time.Hour),
			item("v2", "업무자동화 꿀팁", 2*time.Hour),
			item("v3", "Weekend vlog", 3*time.Hour),
		},
	}}
	agg := New(cat, category.NewClassifier(category.Default()), Config{Now: func() time.Time { return testNow }})

	res, err := agg.Run(context.Background(), channels("A"), 7)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := fmt.Sprint(videoIDs(res.Videos)); got != "[v1 v2]" {
		t.Errorf("videos = %s, want [v1 v2]", got)
	}
	if res.Videos[1].Category != "Automation" {
		t.Errorf("v2 category = %q, want Automation", res.Videos[1].Category)
	}
}

func TestHistogramSorted(t *testing.T) {
	h := Histogram{"Coding": 2, "AI News": 5, "Agents": 2, "Automation": 1}

	got := h.Sorted()
	want := []Bucket{{"AI News", 5}, {"Agents", 2}, {"Coding", 2}, {"Automation", 1}}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Sorted() = %v, want %v", got, want)
	}
	if h.Total() != 10 {
		t.Errorf("Total() = %d, want 10", h.Total())
	}
}

func TestRun_HistogramCountsEveryCategory(t *testing.T) {
	cat := &fakeCatalog{items: map[string][]youtube.Item{
		"A": {item("both", "AI and code", time.Hour), item("ai", "AI only", 2*time.Hour)},
	}}

	res, err := newTestAggregator(cat, Config{}).Run(context.Background(), channels("A"), 7)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := fmt.Sprint(res.Videos[0].Categories); got != "[AI Coding]" {
		t.Fatalf("categories = %s, want [AI Coding]", got)
	}
	if res.Videos[0].Category != "AI" {
		t.Errorf("primary category = %q, want AI", res.Videos[0].Category)
	}
	if res.Histogram["AI"] != 2 {
		t.Errorf("histogram[AI] = %d, want 2", res.Histogram["AI"])
	}
	if res.Histogram["Coding"] != 1 {
		t.Errorf("histogram[Coding] = %d, want 1", res.Histogram["Coding"])
	}
	if total := res.Histogram.Total(); total != 3 {
		t.Errorf("Total() = %d, want 3 for 2 videos", total)
	}
}
