// Package translate wraps the HTTP translation endpoint used to render
// transcripts in the narration language.
//
// Client retries throttling and server errors with exponential backoff and an
// injectable sleeper. Chunked layers sentence-preserving segmentation on top
// of any Translator so long transcripts stay within the endpoint's
// per-request character budget.
package translate
