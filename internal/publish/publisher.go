// Package publish runs the fetch, status, add, commit and push pipeline that
// refreshes the feed and ships it through version control.
package publish

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chanfeed/internal/aggregate"
	"chanfeed/internal/errs"
	"chanfeed/internal/storage"
	"chanfeed/internal/vcs"
)

// CommitPrefix starts every automated commit message.
const CommitPrefix = "Auto-update content: "

const commitTimeLayout = "2006-01-02 15:04:05"

// ChannelSource lists the registered channels.
type ChannelSource interface {
	List() []storage.Channel
}

// Aggregator produces the merged feed for a set of channels.
type Aggregator interface {
	Run(ctx context.Context, channels []storage.Channel, windowDays int) (*aggregate.Result, error)
}

// FeedStore persists the merged feed.
type FeedStore interface {
	Save(videos []storage.Video) error
}

// VCS is the version control surface the pipeline drives.
type VCS interface {
	Status(ctx context.Context, paths ...string) (string, error)
	Add(ctx context.Context, paths ...string) error
	Commit(ctx context.Context, message string, paths ...string) (string, error)
	Push(ctx context.Context, remote, branch string) (string, error)
}

// Observer receives run telemetry.
type Observer interface {
	ObservePublish(mode string, state string, d time.Duration)
}

// Config configures a Publisher.
type Config struct {
	// Files are the repository-relative paths staged on publish.
	Files []string
	// Remote and Branch select the push target. Empty pushes to upstream.
	Remote string
	Branch string
	// LockPath, when set, takes an advisory file lock for every run.
	LockPath    string
	LockTimeout time.Duration
	// Development keeps raw error text in the run log. Otherwise failed
	// steps carry only the user-facing message.
	Development bool
	Now         func() time.Time
	Logger      zerolog.Logger
	Observer    Observer
}

// Report is the outcome of one run.
type Report struct {
	RunID             string                       `json:"runId"`
	State             State                        `json:"state"`
	Success           bool                         `json:"success"`
	Message           string                       `json:"message"`
	Log               []Step                       `json:"log"`
	PushOutput        string                       `json:"pushOutput,omitempty"`
	Histogram         aggregate.Histogram          `json:"histogram"`
	VideoCount        int                          `json:"videoCount"`
	ChannelsProcessed int                          `json:"channelsProcessed"`
	ChannelsFailed    int                          `json:"channelsFailed"`
	Outcomes          map[string]aggregate.Outcome `json:"outcomes,omitempty"`
	StartedAt         time.Time                    `json:"startedAt"`
	Duration          time.Duration                `json:"duration"`
}

// Publisher is the single writer of the feed and the repository.
type Publisher struct {
	channels ChannelSource
	agg      Aggregator
	feed     FeedStore
	vcs      VCS
	cfg      Config
	log      zerolog.Logger

	mu sync.Mutex
}

// New creates a Publisher.
func New(channels ChannelSource, agg Aggregator, feed FeedStore, v VCS, cfg Config) *Publisher {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Publisher{
		channels: channels,
		agg:      agg,
		feed:     feed,
		vcs:      v,
		cfg:      cfg,
		log:      cfg.Logger.With().Str("component", "publish").Logger(),
	}
}

// run carries the state of one pipeline execution.
type run struct {
	days      int
	fetchOnly bool
	report    *Report
	err       error
}

// Publish refreshes the feed and pushes it. It returns errs.ErrBusy without
// doing anything when another run is active. A failed run returns both the
// report and the cause.
func (p *Publisher) Publish(ctx context.Context, days int) (*Report, error) {
	return p.execute(ctx, days, false)
}

// FetchOnly refreshes and persists the feed without touching version control.
func (p *Publisher) FetchOnly(ctx context.Context, days int) (*Report, error) {
	return p.execute(ctx, days, true)
}

func (p *Publisher) execute(ctx context.Context, days int, fetchOnly bool) (*Report, error) {
	if err := aggregate.ValidateWindow(days); err != nil {
		return nil, err
	}

	if !p.mu.TryLock() {
		return nil, fmt.Errorf("publish: %w", errs.ErrBusy)
	}
	defer p.mu.Unlock()

	if p.cfg.LockPath != "" {
		lock := storage.NewFileLock(p.cfg.LockPath)
		if err := lock.Lock(p.cfg.LockTimeout); err != nil {
			return nil, fmt.Errorf("publish: %w", err)
		}
		defer lock.Unlock()
	}

	r := &run{
		days:      days,
		fetchOnly: fetchOnly,
		report: &Report{
			RunID:     uuid.NewString(),
			State:     Idle,
			Log:       []Step{},
			Histogram: aggregate.Histogram{},
			StartedAt: p.cfg.Now().UTC(),
		},
	}
	mode := "publish"
	if fetchOnly {
		mode = "fetch"
	}
	log := p.log.With().Str("run_id", r.report.RunID).Str("mode", mode).Logger()
	log.Info().Int("days", days).Msg("run started")

	state := Fetching
	for !state.Terminal() {
		var step Step
		state, step = p.advance(ctx, state, r)
		step.At = p.cfg.Now().UTC()
		r.report.Log = append(r.report.Log, step)

		ev := log.Info()
		if step.Outcome == OutcomeFailed {
			ev = log.Error().Err(r.err)
		}
		ev.Str("step", step.Step).Str("outcome", string(step.Outcome)).Str("detail", step.Detail).Msg("step finished")
	}

	rep := r.report
	rep.State = state
	rep.Success = state.Succeeded()
	rep.Message = p.message(r, state)
	rep.Duration = p.cfg.Now().Sub(rep.StartedAt)

	if p.cfg.Observer != nil {
		p.cfg.Observer.ObservePublish(mode, state.String(), rep.Duration)
	}
	log.Info().
		Str("state", state.String()).
		Bool("success", rep.Success).
		Int("videos", rep.VideoCount).
		Dur("took", rep.Duration).
		Msg("run finished")

	if state == Failed {
		return rep, r.err
	}
	return rep, nil
}

// advance executes the work of state and returns the next state together
// with the log entry describing it.
func (p *Publisher) advance(ctx context.Context, state State, r *run) (State, Step) {
	switch state {
	case Fetching:
		return p.fetch(ctx, r)

	case CheckingChanges:
		status, err := p.vcs.Status(ctx, p.cfg.Files...)
		if err != nil {
			return p.fail(r, StepStatus, err)
		}
		if status == "" {
			return NoChanges, Step{Step: StepStatus, Outcome: OutcomeSkipped, Detail: "no changes"}
		}
		return Staging, Step{Step: StepStatus, Outcome: OutcomeOK, Detail: status}

	case Staging:
		if err := p.vcs.Add(ctx, p.cfg.Files...); err != nil {
			return p.fail(r, StepAdd, err)
		}
		return Committing, Step{Step: StepAdd, Outcome: OutcomeOK}

	case Committing:
		msg := CommitPrefix + p.cfg.Now().UTC().Format(commitTimeLayout)
		out, err := p.vcs.Commit(ctx, msg, p.cfg.Files...)
		if errors.Is(err, vcs.ErrNothingToCommit) {
			return NothingToCommit, Step{Step: StepCommit, Outcome: OutcomeSkipped, Detail: "nothing to commit"}
		}
		if err != nil {
			return p.fail(r, StepCommit, err)
		}
		return Pushing, Step{Step: StepCommit, Outcome: OutcomeOK, Detail: firstLine(out)}

	case Pushing:
		out, err := p.vcs.Push(ctx, p.cfg.Remote, p.cfg.Branch)
		if err != nil {
			return p.fail(r, StepPush, err)
		}
		r.report.PushOutput = out
		return Done, Step{Step: StepPush, Outcome: OutcomeOK}
	}

	return p.fail(r, state.String(), fmt.Errorf("publish: no transition from %s", state))
}

func (p *Publisher) fetch(ctx context.Context, r *run) (State, Step) {
	channels := p.channels.List()
	res, err := p.agg.Run(ctx, channels, r.days)
	if err != nil {
		return p.fail(r, StepFetch, err)
	}

	rep := r.report
	rep.Histogram = res.Histogram
	rep.VideoCount = len(res.Videos)
	rep.ChannelsProcessed = len(channels)
	rep.ChannelsFailed = res.Failed
	rep.Outcomes = res.Outcomes

	if len(channels) > 0 && res.AllFailed() {
		return p.fail(r, StepFetch, fmt.Errorf("all %d channels failed: %w", len(channels), res.FirstError(channels)))
	}

	if err := p.feed.Save(res.Videos); err != nil {
		return p.fail(r, StepFetch, err)
	}

	step := Step{
		Step:    StepFetch,
		Outcome: OutcomeOK,
		Detail:  fmt.Sprintf("%d videos from %d channels", len(res.Videos), len(channels)),
	}
	if res.Failed > 0 {
		step.Outcome = OutcomeWarning
		step.Detail += fmt.Sprintf(", %d failed", res.Failed)
	}

	if r.fetchOnly {
		return Done, step
	}
	return CheckingChanges, step
}

func (p *Publisher) fail(r *run, step string, err error) (State, Step) {
	r.err = err
	detail := errs.Message(err)
	if p.cfg.Development {
		detail = err.Error()
	}
	return Failed, Step{Step: step, Outcome: OutcomeFailed, Detail: detail}
}

func (p *Publisher) message(r *run, state State) string {
	switch state {
	case Done:
		if r.fetchOnly {
			return fmt.Sprintf("Fetched %d videos.", r.report.VideoCount)
		}
		return "Deployment successful."
	case NoChanges:
		return "No changes to deploy."
	case NothingToCommit:
		return "Nothing to commit."
	default:
		return errs.Message(r.err)
	}
}

func firstLine(s string) string {
	for i, c := range s {
		if c == '\n' {
			return s[:i]
		}
	}
	return s
}
