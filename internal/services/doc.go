// Package services defines shared utilities consumed by the pipeline stages
// and their external collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, triggers, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so every stage failure
//     carries a taxonomy class (selection, fetch, translation, synthesis,
//     mix, publish) alongside a human-readable cause.
//
// Use these helpers when wiring new stage logic so failure reporting stays
// uniform across the pipeline.
package services
