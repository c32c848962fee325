package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"dubshorts/internal/config"
	"dubshorts/internal/mixer"
	"dubshorts/internal/publish"
	"dubshorts/internal/selector"
	"dubshorts/internal/services/ytdlp"
	"dubshorts/internal/tone"
)

// State is a pipeline lifecycle position.
type State string

const (
	StateIdle          State = "idle"
	StateSelecting     State = "selecting"
	StateFetching      State = "fetching"
	StateTranslating   State = "translating"
	StateToneAdjusting State = "tone_adjusting"
	StateMixing        State = "mixing"
	StatePublishing    State = "publishing"
	StateSucceeded     State = "succeeded"
	StateFailed        State = "failed"
)

// Label renders the state for humans ("Tone Adjusting").
func (s State) Label() string {
	if s == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ReplaceAll(string(s), "_", " "))
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// ProcessedPolicy decides when a selected URL is recorded as processed.
type ProcessedPolicy string

const (
	// RecordOnSuccess records the URL only after a successful publish.
	RecordOnSuccess ProcessedPolicy = config.ProcessedOnSuccess
	// RecordAlways records the URL after any run that got past selection.
	RecordAlways ProcessedPolicy = config.ProcessedAlways
)

// Outcome summarizes a finished run.
type Outcome struct {
	RunID         string
	State         State
	URL           string
	NothingToDo   bool
	VideoID       string
	ScheduledTime time.Time
	AssetPath     string
	FailedStage   State
	Cause         error
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Succeeded reports whether the run ended without error.
func (o Outcome) Succeeded() bool {
	return o.State == StateSucceeded
}

// Duration reports wall time spent in the run.
func (o Outcome) Duration() time.Duration {
	if o.StartedAt.IsZero() || o.FinishedAt.IsZero() {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}

// Message is the single summary line logged and reported for the run.
func (o Outcome) Message() string {
	switch {
	case o.State == StateFailed:
		stage := o.FailedStage.Label()
		if stage == "" {
			stage = "Run"
		}
		target := ""
		if o.URL != "" {
			target = " for " + o.URL
		}
		if o.Cause == nil {
			return fmt.Sprintf("%s failed%s", stage, target)
		}
		return fmt.Sprintf("%s failed%s: %v", stage, target, o.Cause)
	case o.NothingToDo:
		return "No unprocessed shorts in backlog"
	case o.State == StateSucceeded:
		return fmt.Sprintf("Published %s as %s, scheduled for %s",
			o.URL, o.VideoID, o.ScheduledTime.UTC().Format(time.RFC3339))
	default:
		return fmt.Sprintf("Run %s", o.State.Label())
	}
}

// Observer receives every state transition together with the selected URL
// (empty before selection).
type Observer func(state State, url string)

// Fetcher downloads a source short into dir.
type Fetcher interface {
	Fetch(ctx context.Context, url, dir string) (ytdlp.Result, error)
}

// Synthesizer renders narration text into an audio file.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, outPath string) error
}

// ToneAdjuster shapes the synthesized narration.
type ToneAdjuster interface {
	Adjust(ctx context.Context, in, out string, settings tone.Settings) error
}

// Mixer renders the final asset.
type Mixer interface {
	Mix(ctx context.Context, req mixer.Request) (mixer.Result, error)
}

// DurationProber reports media lengths in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Publisher uploads the asset into a slot.
type Publisher interface {
	Publish(ctx context.Context, asset string, meta publish.Metadata, alreadyScheduled int) (publish.Result, error)
}

// ProcessedSet is the persisted set of URLs already carried through.
type ProcessedSet interface {
	Load() selector.Set
	Append(url string) (selector.ProcessedRecord, error)
}

// BacklogSource returns the backlog in stored order.
type BacklogSource func() ([]selector.Record, error)
