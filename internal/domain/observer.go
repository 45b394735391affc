package domain

// RunObserver receives orchestrator events for display. It is a pure
// event sink: no return values, no influence on control flow.
type RunObserver interface {
	// OnTransition fires after a progress transition has been persisted.
	OnTransition(asset FlatAsset, from, to AssetState)

	// OnAssetSkipped fires when the resume contract skips an asset
	// without any remote calls.
	OnAssetSkipped(asset FlatAsset, state AssetState)

	// OnRetry fires before a retry attempt, with the backoff delay
	// already applied.
	OnRetry(asset FlatAsset, attempt int, err error)
}

// NoopObserver discards all events. Useful for tests and batch runs.
type NoopObserver struct{}

func (NoopObserver) OnTransition(FlatAsset, AssetState, AssetState) {}
func (NoopObserver) OnAssetSkipped(FlatAsset, AssetState)           {}
func (NoopObserver) OnRetry(FlatAsset, int, error)                  {}
