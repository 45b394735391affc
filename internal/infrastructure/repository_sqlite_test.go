package infrastructure

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salvatorelai/ocd/internal/domain"
)

func newTestRepo(t *testing.T) *SQLiteProgressRepository {
	t.Helper()
	repo, err := NewSQLiteProgressRepository(filepath.Join(t.TempDir(), "course-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepository_GetUnseenReturnsPending(t *testing.T) {
	repo := newTestRepo(t)

	p, err := repo.Get("unseen")
	require.NoError(t, err)
	assert.Equal(t, domain.StatePending, p.State)
	assert.Equal(t, "unseen", p.AssetID)
}

func TestRepository_TransitionPersists(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "course-x.db")
	repo, err := NewSQLiteProgressRepository(dbPath)
	require.NoError(t, err)

	require.NoError(t, repo.Transition("a1", domain.StateStructureKnown, domain.TransitionMeta{}))
	require.NoError(t, repo.Transition("a1", domain.StateDownloading, domain.TransitionMeta{Attempted: true}))
	require.NoError(t, repo.Close())

	// reopen: progress must survive the restart
	repo, err = NewSQLiteProgressRepository(dbPath)
	require.NoError(t, err)
	defer repo.Close()

	p, err := repo.Get("a1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateDownloading, p.State)
	assert.Equal(t, 1, p.AttemptCount)
	assert.NotNil(t, p.LastAttemptAt)
}

func TestRepository_InvalidTransitionLeavesStateUnchanged(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Transition("a1", domain.StateStructureKnown, domain.TransitionMeta{}))
	require.NoError(t, repo.Transition("a1", domain.StateDownloading, domain.TransitionMeta{}))
	require.NoError(t, repo.Transition("a1", domain.StateTranscriptDone, domain.TransitionMeta{}))
	require.NoError(t, repo.Transition("a1", domain.StateComplete, domain.TransitionMeta{}))

	err := repo.Transition("a1", domain.StatePending, domain.TransitionMeta{})
	var ite *domain.InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, domain.StateComplete, ite.From)

	p, err := repo.Get("a1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateComplete, p.State)
}

func TestRepository_FailedRetriesBackToDownloading(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Transition("a1", domain.StateFailed, domain.TransitionMeta{FailReason: "timeout"}))
	require.NoError(t, repo.Transition("a1", domain.StateDownloading, domain.TransitionMeta{Attempted: true}))

	p, err := repo.Get("a1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateDownloading, p.State)
	assert.Empty(t, p.FailReason)
}

func TestRepository_Snapshot(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Transition("a1", domain.StateComplete, domain.TransitionMeta{}))
	require.NoError(t, repo.Transition("a2", domain.StateFailed, domain.TransitionMeta{FailReason: "mux"}))

	view, err := repo.Snapshot()
	require.NoError(t, err)
	require.Len(t, view, 2)
	assert.Equal(t, domain.StateComplete, view["a1"].State)
	assert.Equal(t, domain.StateFailed, view["a2"].State)
}

func TestRepository_Stats(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Transition("a1", domain.StateComplete, domain.TransitionMeta{}))
	require.NoError(t, repo.Transition("a2", domain.StateComplete, domain.TransitionMeta{TranscriptMissing: true}))
	require.NoError(t, repo.Transition("a3", domain.StateFailed, domain.TransitionMeta{FailReason: "timeout"}))
	require.NoError(t, repo.Transition("a4", domain.StateDownloading, domain.TransitionMeta{}))

	stats, err := repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(2), stats.Complete)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Downloading)
	assert.Equal(t, int64(1), stats.TranscriptMissing)
}

func TestRepository_ConcurrentTransitionsDoNotInterleave(t *testing.T) {
	repo := newTestRepo(t)

	// every worker races Pending -> Downloading for the same asset;
	// exactly one transition may win, the rest must fail validation
	var wg sync.WaitGroup
	wins := make(chan struct{}, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Transition("a1", domain.StateDownloading, domain.TransitionMeta{Attempted: true})
			if err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	assert.Equal(t, 1, won)

	p, err := repo.Get("a1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateDownloading, p.State)
	assert.Equal(t, 1, p.AttemptCount)
}
