package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05Z07:00"

// Run-now status values.
const (
	RunNowStarted = "started"
	RunNowError   = "error"
)

// RunNowStartedMessage is reported when a trigger starts a run.
const RunNowStartedMessage = "Automation started"

// RunNowResponse answers a manual trigger.
type RunNowResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
}

// Started reports whether the trigger began a run.
func (r RunNowResponse) Started() bool {
	return r.Status == RunNowStarted
}

// OutcomeSummary describes a finished run.
type OutcomeSummary struct {
	RunID         string  `json:"run_id"`
	State         string  `json:"state"`
	URL           string  `json:"url,omitempty"`
	NothingToDo   bool    `json:"nothing_to_do"`
	VideoID       string  `json:"video_id,omitempty"`
	ScheduledTime string  `json:"scheduled_time,omitempty"`
	FailedStage   string  `json:"failed_stage,omitempty"`
	Error         string  `json:"error,omitempty"`
	Message       string  `json:"message"`
	StartedAt     string  `json:"started_at,omitempty"`
	FinishedAt    string  `json:"finished_at,omitempty"`
	DurationSecs  float64 `json:"duration_seconds"`
}

// StatusResponse summarizes the run manager.
type StatusResponse struct {
	Running       bool            `json:"running"`
	RunID         string          `json:"run_id,omitempty"`
	Source        string          `json:"source,omitempty"`
	Stage         string          `json:"stage,omitempty"`
	StageLabel    string          `json:"stage_label,omitempty"`
	URL           string          `json:"url,omitempty"`
	StartedAt     string          `json:"started_at,omitempty"`
	NextScheduled string          `json:"next_scheduled,omitempty"`
	LastOutcome   *OutcomeSummary `json:"last_outcome,omitempty"`
}

// RunEntry is one run history row.
type RunEntry struct {
	RunID         string  `json:"run_id"`
	Source        string  `json:"source"`
	URL           string  `json:"url,omitempty"`
	State         string  `json:"state"`
	FailedStage   string  `json:"failed_stage,omitempty"`
	ErrorClass    string  `json:"error_class,omitempty"`
	Message       string  `json:"message,omitempty"`
	VideoID       string  `json:"video_id,omitempty"`
	ScheduledTime string  `json:"scheduled_time,omitempty"`
	StartedAt     string  `json:"started_at,omitempty"`
	FinishedAt    string  `json:"finished_at,omitempty"`
	DurationSecs  float64 `json:"duration_seconds"`
}

// RunsResponse wraps run history rows, newest first.
type RunsResponse struct {
	Runs []RunEntry `json:"runs"`
}

// ErrorResponse is the body of every non-2xx answer other than run-now.
type ErrorResponse struct {
	Error string `json:"error"`
}
