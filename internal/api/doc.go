// Package api defines the wire-format types shared by the daemon HTTP server
// and the CLI client.
//
// # Key Types
//
// RunNowResponse: answer to POST /api/run-now. Status is "started" or "error".
//
// StatusResponse: running flag, current stage and URL, the next scheduled
// trigger, and the last outcome.
//
// RunEntry/RunsResponse: run history rows for GET /api/runs.
//
// # Converters
//
// FromStatus: workflow.Status -> StatusResponse.
//
// FromOutcome: pipeline.Outcome -> OutcomeSummary.
//
// FromHistoryRun: history.Run -> RunEntry.
//
// # Design Notes
//
// DTOs use snake_case JSON tags. Timestamps are RFC3339 in UTC and omitted
// when unset.
package api
