// Package main hosts the dubshorts CLI entrypoint and command graph.
//
// The Cobra-based command tree covers one-shot runs, the long-running daemon,
// status and history inspection, selection and slot previews, batch
// publishing, and configuration scaffolding. It centralizes configuration
// resolution and logging setup so subcommands can focus on output instead of
// wiring.
//
// Keep this package lean: add new functionality to the internal packages
// first, then surface it through dedicated commands or flags here.
package main
