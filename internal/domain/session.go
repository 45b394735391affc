package domain

import "context"

// TranscriptCue is one caption entry with its position in the video.
type TranscriptCue struct {
	Timestamp string `json:"timestamp"` // as shown on the page, e.g. "02:15"
	Text      string `json:"text"`
}

// Session is the stateful authenticated connection to the remote course
// service. Implementations own a persistent login profile and are slow,
// serialized and occasionally rate-limited; callers must treat every
// method as a remote round-trip and never invoke two concurrently.
type Session interface {
	// Login establishes or refreshes the authenticated session.
	// Credentials may be empty when the profile already holds a login.
	// Returns ErrAuth when the remote rejects the credentials.
	Login(ctx context.Context, email, password string) error

	// FetchHierarchy extracts the raw course hierarchy from a course page.
	FetchHierarchy(ctx context.Context, courseURL string) ([]RawModule, error)

	// FetchStreamRef resolves the opaque stream locator for a video page.
	FetchStreamRef(ctx context.Context, assetURL string) (string, error)

	// FetchTranscript extracts the timestamped transcript of a video
	// page. Returns ErrTranscriptUnavailable when the remote has none.
	FetchTranscript(ctx context.Context, assetURL string) ([]TranscriptCue, error)

	// Close releases the underlying browser session.
	Close() error
}
