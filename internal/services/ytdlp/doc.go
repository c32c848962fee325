// Package ytdlp fetches a source short with yt-dlp.
//
// Fetch downloads the video, its info JSON, and English subtitles into a work
// directory, then writes the normalized artifacts the pipeline consumes:
// yt_video.mp4, yt_metadata.json and (when subtitles exist) a cleaned
// yt_transcript.txt. yt-dlp itself prefers uploaded subtitles over automatic
// captions when both exist for a language.
package ytdlp
