package domain

// ProgressRepository defines the interface for per-asset progress
// persistence. Implementations must make every Transition an atomic
// read-validate-write so concurrent workers never interleave or lose
// updates, and must survive a process crash without ever being observed
// in a partially written state.
type ProgressRepository interface {
	// Get returns the progress record for an asset, or a fresh Pending
	// record if the asset has never been seen.
	Get(assetID string) (*AssetProgress, error)

	// Transition moves an asset to a new state after validating the
	// forward-or-Failed rule. Invalid transitions return
	// InvalidTransitionError and leave stored state unchanged.
	Transition(assetID string, to AssetState, meta TransitionMeta) error

	// Snapshot returns an immutable view of all known progress records,
	// used to plan work without holding a lock across slow operations.
	Snapshot() (map[string]AssetProgress, error)

	// Stats returns aggregate counts by state.
	Stats() (*ArchiveStats, error)

	// Close releases the underlying store.
	Close() error
}

// ArchiveStats are aggregate progress counts for one course archive.
type ArchiveStats struct {
	Total             int64 `json:"total"`
	Pending           int64 `json:"pending"`
	Downloading       int64 `json:"downloading"`
	TranscriptDone    int64 `json:"transcript_done"`
	VideoDone         int64 `json:"video_done"`
	Complete          int64 `json:"complete"`
	Failed            int64 `json:"failed"`
	TranscriptMissing int64 `json:"transcript_missing"`
}
