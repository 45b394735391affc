package app

import (
	"sync"
	"time"

	"github.com/salvatorelai/ocd/internal/domain"
)

// AssetStatus is one row of the live progress view.
type AssetStatus struct {
	AssetID string            `json:"asset_id"`
	Module  string            `json:"module"`
	Lesson  string            `json:"lesson"`
	Title   string            `json:"title"`
	State   domain.AssetState `json:"state"`
	Retries int               `json:"retries"`
}

// RunTracker keeps an in-memory view of the current run for the status
// API. It implements domain.RunObserver and is safe for concurrent use.
type RunTracker struct {
	mu          sync.RWMutex
	running     bool
	courseID    string
	courseTitle string
	startedAt   time.Time
	order       []string
	statuses    map[string]*AssetStatus
}

// NewRunTracker creates an empty tracker.
func NewRunTracker() *RunTracker {
	return &RunTracker{statuses: make(map[string]*AssetStatus)}
}

// BeginRun resets the tracker for a freshly discovered course.
func (t *RunTracker) BeginRun(course *domain.Course) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = true
	t.courseID = course.ID
	t.courseTitle = course.Title
	t.startedAt = time.Now()
	t.order = t.order[:0]
	t.statuses = make(map[string]*AssetStatus)
	for _, fa := range course.Flatten() {
		t.order = append(t.order, fa.Asset.ID)
		t.statuses[fa.Asset.ID] = &AssetStatus{
			AssetID: fa.Asset.ID,
			Module:  fa.Module.Title,
			Lesson:  fa.Lesson.Title,
			Title:   fa.Asset.Title,
			State:   domain.StatePending,
		}
	}
}

// EndRun marks the run finished. The progress view stays queryable.
func (t *RunTracker) EndRun() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
}

func (t *RunTracker) OnTransition(asset domain.FlatAsset, from, to domain.AssetState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.statuses[asset.Asset.ID]; ok {
		s.State = to
	}
}

func (t *RunTracker) OnAssetSkipped(asset domain.FlatAsset, state domain.AssetState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.statuses[asset.Asset.ID]; ok {
		s.State = state
	}
}

func (t *RunTracker) OnRetry(asset domain.FlatAsset, attempt int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.statuses[asset.Asset.ID]; ok {
		s.Retries++
	}
}

// IsRunning reports whether a run is currently in progress.
func (t *RunTracker) IsRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

// RunStatus is the aggregate progress view.
type RunStatus struct {
	Running     bool       `json:"running"`
	CourseID    string     `json:"course_id,omitempty"`
	CourseTitle string     `json:"course_title,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	Total       int        `json:"total"`
	Done        int        `json:"done"`
	Failed      int        `json:"failed"`
}

// Status returns the aggregate counters for the tracked run.
func (t *RunTracker) Status() RunStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	status := RunStatus{
		Running:     t.running,
		CourseID:    t.courseID,
		CourseTitle: t.courseTitle,
		Total:       len(t.order),
	}
	if !t.startedAt.IsZero() {
		started := t.startedAt
		status.StartedAt = &started
	}
	for _, s := range t.statuses {
		switch s.State {
		case domain.StateComplete:
			status.Done++
		case domain.StateFailed:
			status.Failed++
		}
	}
	return status
}

// Assets returns per-asset statuses in download order.
func (t *RunTracker) Assets() []AssetStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]AssetStatus, 0, len(t.order))
	for _, id := range t.order {
		if s, ok := t.statuses[id]; ok {
			out = append(out, *s)
		}
	}
	return out
}
