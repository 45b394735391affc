package domain

import "context"

// ArtifactWriter materializes fetched payloads as on-disk artifacts at
// canonical paths relative to the course root. Implementations must be
// all-or-nothing: a failed or interrupted write never leaves a partial
// file at a final path.
type ArtifactWriter interface {
	// EnsureDir creates a lesson directory if absent.
	EnsureDir(relDir string) error

	// WriteTranscript writes a deterministic timestamped transcript file.
	WriteTranscript(relPath string, cues []TranscriptCue) error

	// WriteVideo assembles the referenced stream into a single video
	// file. Returns MuxError on failure, with any partial output already
	// discarded.
	WriteVideo(ctx context.Context, relPath, streamRef string) error

	// VideoExists reports whether a non-empty video artifact is present.
	VideoExists(relPath string) bool
}
