package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/salvatorelai/ocd/internal/domain"
	"github.com/salvatorelai/ocd/pkg/logger"
)

// Orchestrator walks the discovered course tree and supervises fetch work
// per video asset: resume decisions, claiming, retries with backoff, and
// persisting every state transition.
//
// Workers run in parallel up to the configured concurrency, but all
// session calls are serialized through one mutex (the browser session is
// a single shared stateful resource) and spaced by a rate limiter. Local
// I/O and muxing run concurrently across workers.
type Orchestrator struct {
	repo        domain.ProgressRepository
	session     domain.Session
	writer      domain.ArtifactWriter
	config      *domain.RunConfig
	observer    domain.RunObserver
	multiLogger *logger.MultiLogger
	logger      *zap.Logger

	sessionMu sync.Mutex
	limiter   *rate.Limiter

	fatalOnce sync.Once
	fatalErr  error
}

// RunSummary reports what a finished run did.
type RunSummary struct {
	RunID             string `json:"run_id"`
	Complete          int    `json:"complete"`
	Failed            int    `json:"failed"`
	Skipped           int    `json:"skipped"`
	TranscriptMissing int    `json:"transcript_missing"`
}

// NewOrchestrator creates an orchestrator for one course run.
func NewOrchestrator(
	repo domain.ProgressRepository,
	session domain.Session,
	writer domain.ArtifactWriter,
	config *domain.RunConfig,
	observer domain.RunObserver,
	multiLogger *logger.MultiLogger,
	log *zap.Logger,
) *Orchestrator {
	if observer == nil {
		observer = domain.NoopObserver{}
	}
	spacing := config.RequestSpacing
	if spacing <= 0 {
		spacing = time.Millisecond
	}
	return &Orchestrator{
		repo:        repo,
		session:     session,
		writer:      writer,
		config:      config,
		observer:    observer,
		multiLogger: multiLogger,
		logger:      log,
		limiter:     rate.NewLimiter(rate.Every(spacing), 1),
	}
}

// Run processes every asset of the course in depth-first order. A worker
// pool claims assets from the ordered list under mutual exclusion, so each
// asset is handled by exactly one worker per run. Per-asset failures are
// recorded and isolated; only authentication rejection or store corruption
// aborts the run.
func (o *Orchestrator) Run(ctx context.Context, course *domain.Course) (*RunSummary, error) {
	runID := uuid.New().String()
	flat := course.Flatten()

	summary := &RunSummary{RunID: runID}
	var summaryMu sync.Mutex

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if o.multiLogger != nil {
		o.multiLogger.LogRunEvent("run_started",
			zap.String("run_id", runID),
			zap.String("course_id", course.ID),
			zap.Int("assets", len(flat)),
			zap.Bool("transcript_only", o.config.TranscriptOnly))
	}

	workers := o.config.Concurrency
	if workers < 1 {
		workers = 1
	}

	// Workers claim the next index under the mutex; the slice order is
	// the download order.
	next := 0
	var claimMu sync.Mutex
	claim := func() (domain.FlatAsset, bool) {
		claimMu.Lock()
		defer claimMu.Unlock()
		if next >= len(flat) {
			return domain.FlatAsset{}, false
		}
		fa := flat[next]
		next++
		return fa, true
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if ctx.Err() != nil {
					return
				}
				fa, ok := claim()
				if !ok {
					return
				}

				outcome, transcriptMissing := o.processAsset(ctx, runID, fa)

				summaryMu.Lock()
				switch outcome {
				case outcomeComplete:
					summary.Complete++
				case outcomeFailed:
					summary.Failed++
				case outcomeSkipped:
					summary.Skipped++
				}
				if transcriptMissing {
					summary.TranscriptMissing++
				}
				summaryMu.Unlock()

				if outcome == outcomeFatal {
					cancel()
					return
				}
			}
		}()
	}
	wg.Wait()

	if o.multiLogger != nil {
		o.multiLogger.LogRunEvent("run_finished",
			zap.String("run_id", runID),
			zap.Int("complete", summary.Complete),
			zap.Int("failed", summary.Failed),
			zap.Int("skipped", summary.Skipped),
			zap.Int("transcript_missing", summary.TranscriptMissing))
	}

	if o.fatalErr != nil {
		return summary, o.fatalErr
	}
	return summary, nil
}

type assetOutcome int

const (
	outcomeSkipped assetOutcome = iota
	outcomeComplete
	outcomeFailed
	outcomeFatal
)

// processAsset drives one asset through its state machine. The returned
// outcome feeds the run summary; transcriptMissing is reported separately
// because an asset can complete without a transcript.
func (o *Orchestrator) processAsset(ctx context.Context, runID string, fa domain.FlatAsset) (assetOutcome, bool) {
	asset := fa.Asset
	paths := domain.PathsFor(fa)

	progress, err := o.repo.Get(asset.ID)
	if err != nil {
		o.recordFatal(fmt.Errorf("progress store read failed: %w", err))
		return outcomeFatal, false
	}

	// Resume contract: finished work is never re-fetched, no remote calls.
	if progress.IsDoneFor(o.config.TranscriptOnly) {
		o.observer.OnAssetSkipped(fa, progress.State)
		o.logEvent("asset_skipped", runID, asset, zap.String("state", string(progress.State)))
		return outcomeSkipped, false
	}

	if progress.State == domain.StatePending {
		if err := o.transition(fa, domain.StateStructureKnown, domain.TransitionMeta{}); err != nil {
			o.recordFatal(err)
			return outcomeFatal, false
		}
		progress.State = domain.StateStructureKnown
	}

	// Claim the asset. Assets already past Downloading (a transcript-done
	// record being upgraded to full video) stay where they are: state
	// only moves forward.
	if progress.State == domain.StateStructureKnown || progress.State == domain.StateFailed {
		if err := o.transition(fa, domain.StateDownloading, domain.TransitionMeta{Attempted: true}); err != nil {
			o.recordFatal(err)
			return outcomeFatal, false
		}
		progress.State = domain.StateDownloading
	}

	if err := o.writer.EnsureDir(paths.Dir); err != nil {
		o.failAsset(fa, fmt.Sprintf("create directory: %v", err))
		return outcomeFailed, false
	}

	transcriptMissing, err := o.fetchAsset(ctx, runID, fa, paths, progress)
	if err != nil {
		if errors.Is(err, domain.ErrAuth) {
			o.failAsset(fa, err.Error())
			o.recordFatal(err)
			return outcomeFatal, transcriptMissing
		}
		if ctx.Err() != nil {
			// Cancelled mid-flight: persist Failed so the next run
			// picks the asset back up cleanly.
			o.failAsset(fa, "run cancelled")
			return outcomeFailed, transcriptMissing
		}
		o.failAsset(fa, err.Error())
		return outcomeFailed, transcriptMissing
	}

	o.logEvent("asset_completed", runID, asset,
		zap.Bool("transcript_missing", transcriptMissing))
	return outcomeComplete, transcriptMissing
}

// fetchAsset performs the remote fetches and artifact writes for one
// asset, retrying transient failures with exponential backoff up to the
// attempt ceiling, and walks the state machine forward on each completed
// sub-step.
func (o *Orchestrator) fetchAsset(ctx context.Context, runID string, fa domain.FlatAsset, paths domain.CanonicalPaths, progress *domain.AssetProgress) (bool, error) {
	asset := fa.Asset
	state := progress.State
	transcriptMissing := progress.TranscriptMissing

	needTranscript := o.config.TranscriptsWanted() &&
		state != domain.StateTranscriptDone && state != domain.StateVideoDone &&
		!transcriptMissing
	needVideo := !o.config.TranscriptOnly && state != domain.StateVideoDone

	// Existing-file fast path: a video already on disk (e.g. from a run
	// whose process died between write and transition) is not re-muxed.
	if needVideo && o.writer.VideoExists(paths.Video) {
		needVideo = false
		state = domain.StateVideoDone
		if err := o.transition(fa, domain.StateVideoDone, domain.TransitionMeta{VideoPath: paths.Video}); err != nil {
			return transcriptMissing, err
		}
	}

	var streamRef string

	attempts := o.config.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			backoff := o.config.RetryBackoff * time.Duration(1<<(attempt-2))
			o.observer.OnRetry(fa, attempt, lastErr)
			o.logger.Info("Retrying asset",
				zap.String("asset_id", asset.ID),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return transcriptMissing, ctx.Err()
			}
		}

		// Resolve the stream reference lazily, once per run.
		if needVideo && streamRef == "" {
			var ref string
			err := o.sessionCall(ctx, func(callCtx context.Context) error {
				var callErr error
				ref, callErr = o.session.FetchStreamRef(callCtx, asset.URL)
				return callErr
			})
			if err != nil {
				if domain.IsTransient(err) {
					lastErr = err
					continue
				}
				return transcriptMissing, err
			}
			streamRef = ref
			asset.StreamRef = ref
		}

		if needTranscript {
			var cues []domain.TranscriptCue
			err := o.sessionCall(ctx, func(callCtx context.Context) error {
				var callErr error
				cues, callErr = o.session.FetchTranscript(callCtx, asset.URL)
				return callErr
			})
			switch {
			case errors.Is(err, domain.ErrTranscriptUnavailable):
				// Non-fatal: recorded and the asset continues.
				transcriptMissing = true
				needTranscript = false
				o.logEvent("transcript_unavailable", runID, asset)
			case err != nil:
				if domain.IsTransient(err) {
					lastErr = err
					continue
				}
				return transcriptMissing, err
			default:
				if err := o.writer.WriteTranscript(paths.Transcript, cues); err != nil {
					if errors.Is(err, domain.ErrTranscriptUnavailable) {
						transcriptMissing = true
						needTranscript = false
						o.logEvent("transcript_unavailable", runID, asset)
						break
					}
					return transcriptMissing, err
				}
				needTranscript = false
				if state == domain.StateDownloading {
					if err := o.transition(fa, domain.StateTranscriptDone, domain.TransitionMeta{TranscriptPath: paths.Transcript}); err != nil {
						return transcriptMissing, err
					}
					state = domain.StateTranscriptDone
				}
			}
		}

		if needVideo {
			if err := o.writer.WriteVideo(ctx, paths.Video, streamRef); err != nil {
				var muxErr *domain.MuxError
				if errors.As(err, &muxErr) {
					// Partial output is already discarded; muxing the
					// same stream again rarely helps within one run.
					return transcriptMissing, err
				}
				if domain.IsTransient(err) {
					lastErr = err
					continue
				}
				return transcriptMissing, err
			}
			needVideo = false
			if err := o.transition(fa, domain.StateVideoDone, domain.TransitionMeta{VideoPath: paths.Video}); err != nil {
				return transcriptMissing, err
			}
			state = domain.StateVideoDone
		}

		// All requested sub-steps done: finalize.
		return transcriptMissing, o.transition(fa, domain.StateComplete, domain.TransitionMeta{TranscriptMissing: transcriptMissing})
	}

	return transcriptMissing, fmt.Errorf("retries exhausted: %w", lastErr)
}

func sessionCallTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// sessionCall serializes access to the shared browser session, applies
// the inter-request spacing and bounds the call with the remote timeout.
func (o *Orchestrator) sessionCall(ctx context.Context, fn func(context.Context) error) error {
	o.sessionMu.Lock()
	defer o.sessionMu.Unlock()

	if err := o.limiter.Wait(ctx); err != nil {
		return domain.Transient(err)
	}
	callCtx, cancel := sessionCallTimeout(ctx, o.config.RemoteTimeout)
	defer cancel()
	return fn(callCtx)
}

func (o *Orchestrator) failAsset(fa domain.FlatAsset, reason string) {
	if err := o.transition(fa, domain.StateFailed, domain.TransitionMeta{FailReason: reason}); err != nil {
		if o.multiLogger != nil {
			o.multiLogger.LogAppError("Failed to persist failure",
				zap.String("asset_id", fa.Asset.ID),
				zap.Error(err))
		}
	}
	o.logger.Warn("Asset failed",
		zap.String("asset_id", fa.Asset.ID),
		zap.String("title", fa.Asset.Title),
		zap.String("reason", reason))
}

// transition persists a state change and notifies the observer.
func (o *Orchestrator) transition(fa domain.FlatAsset, to domain.AssetState, meta domain.TransitionMeta) error {
	before, err := o.repo.Get(fa.Asset.ID)
	if err != nil {
		return err
	}
	if err := o.repo.Transition(fa.Asset.ID, to, meta); err != nil {
		return err
	}
	o.observer.OnTransition(fa, before.State, to)
	return nil
}

func (o *Orchestrator) recordFatal(err error) {
	o.fatalOnce.Do(func() {
		o.fatalErr = err
		if o.multiLogger != nil {
			o.multiLogger.LogAppError("Run aborted", zap.Error(err))
		}
	})
}

func (o *Orchestrator) logEvent(event, runID string, asset *domain.VideoAsset, fields ...zap.Field) {
	if o.multiLogger == nil {
		return
	}
	all := append([]zap.Field{
		zap.String("run_id", runID),
		zap.String("asset_id", asset.ID),
		zap.String("title", asset.Title),
	}, fields...)
	o.multiLogger.LogRunEvent(event, all...)
}
