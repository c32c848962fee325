// Package pipeline runs one dubbing pass end to end.
//
// A run selects the first unprocessed backlog URL, fetches the source short,
// builds Hindi narration (transcript clean, chunked translation, speech
// synthesis), shapes the narration tone, reconciles video and narration
// durations into a mixed asset, and publishes it into the next free slot.
// Each transition is reported to an Observer; the first failing stage ends the
// run and its error becomes the Outcome cause. Collaborators are interfaces so
// the state machine can be exercised without external tools.
package pipeline
