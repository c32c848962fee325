// Package language normalizes the language settings of a dubbing run.
//
// Translation source and target codes and the edge-tts voice locale are all
// user supplied, in whatever form the user prefers ("Hindi", "hin", "hi").
// Normalize maps them to the short codes the translate endpoint accepts, and
// VoiceMatches catches a voice that would read the translation in the wrong
// language before any media work starts.
package language
