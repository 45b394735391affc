package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/salvatorelai/ocd/internal/domain"
	"github.com/salvatorelai/ocd/internal/infrastructure"
	"github.com/salvatorelai/ocd/pkg/logger"
)

// RunRequest describes one acquisition run.
type RunRequest struct {
	CourseURL  string
	CourseName string // optional, derived from the URL slug when empty
	Email      string
	Password   string
}

// RunResult bundles the discovered course with the run summary, so the
// caller can report and verify without rediscovering.
type RunResult struct {
	Course     *domain.Course
	CourseRoot string
	Summary    *RunSummary
}

// Runner performs end-to-end course acquisition: login, structure
// discovery, progress store setup and orchestrated download.
type Runner struct {
	config      *domain.Config
	logger      *zap.Logger
	multiLogger *logger.MultiLogger
	notifier    *infrastructure.NotificationService
	tracker     *RunTracker
}

// NewRunner creates a runner from loaded configuration.
func NewRunner(config *domain.Config, log *zap.Logger, multiLogger *logger.MultiLogger) *Runner {
	return &Runner{
		config:      config,
		logger:      log,
		multiLogger: multiLogger,
		notifier:    infrastructure.NewNotificationService(&config.Notify, log),
	}
}

// SetTracker attaches a tracker that mirrors run progress for the
// status API.
func (r *Runner) SetTracker(tracker *RunTracker) {
	r.tracker = tracker
}

// Run executes a full acquisition run for one course. Repeated runs
// against the same course resume from the persisted progress store.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if req.CourseURL == "" {
		return nil, fmt.Errorf("course URL is required")
	}

	session, err := infrastructure.NewDriverSession(&r.config.Session, r.config.Archive.LogsDir, r.logger)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	defer session.Close()

	r.logger.Info("Logging in", zap.String("base_url", r.config.Session.BaseURL))
	if err := session.Login(ctx, req.Email, req.Password); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	course, err := r.Discover(ctx, session, req)
	if err != nil {
		return nil, err
	}

	r.logger.Info("Course discovered",
		zap.String("course_id", course.ID),
		zap.String("title", course.Title),
		zap.Int("modules", len(course.Modules)),
		zap.Int("assets", course.AssetCount()))

	repo, err := infrastructure.NewSQLiteProgressRepository(
		infrastructure.StateDBPath(r.config.Archive.StateDir, course.ID))
	if err != nil {
		return nil, fmt.Errorf("open progress store: %w", err)
	}
	defer repo.Close()

	courseRoot := filepath.Join(r.config.Archive.BaseDir, domain.SanitizeFolderName(course.Title))
	if err := os.MkdirAll(courseRoot, 0755); err != nil {
		return nil, fmt.Errorf("create course root: %w", err)
	}
	writer := infrastructure.NewArtifactWriter(courseRoot, &r.config.Mux, r.config.Archive.LogsDir)

	var observer domain.RunObserver
	if r.tracker != nil {
		r.tracker.BeginRun(course)
		defer r.tracker.EndRun()
		observer = r.tracker
	}

	orchestrator := NewOrchestrator(repo, session, writer, &r.config.Run, observer, r.multiLogger, r.logger)
	summary, runErr := orchestrator.Run(ctx, course)

	result := &RunResult{Course: course, CourseRoot: courseRoot, Summary: summary}
	if runErr != nil {
		r.notifier.NotifyRunAborted(course.Title, runErr)
		return result, runErr
	}

	r.notifier.NotifyRunCompleted(course.Title, summary.Complete, summary.Failed, summary.Skipped)
	return result, nil
}

// Discover fetches the course hierarchy through the session and builds
// the typed course tree.
func (r *Runner) Discover(ctx context.Context, session domain.Session, req RunRequest) (*domain.Course, error) {
	raw, err := session.FetchHierarchy(ctx, req.CourseURL)
	if err != nil {
		return nil, fmt.Errorf("fetch hierarchy: %w", err)
	}

	name := req.CourseName
	if name == "" {
		name = domain.CourseNameFromURL(req.CourseURL)
	}

	course, err := domain.DiscoverCourse(req.CourseURL, name, raw)
	if err != nil {
		return nil, fmt.Errorf("discover course: %w", err)
	}
	return course, nil
}

// Verify builds the course tree and checks every expected artifact on
// disk, without downloading anything.
func (r *Runner) Verify(ctx context.Context, req RunRequest, reportPath string) (*infrastructure.VerifyReport, error) {
	session, err := infrastructure.NewDriverSession(&r.config.Session, r.config.Archive.LogsDir, r.logger)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	defer session.Close()

	if err := session.Login(ctx, req.Email, req.Password); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	course, err := r.Discover(ctx, session, req)
	if err != nil {
		return nil, err
	}

	courseRoot := filepath.Join(r.config.Archive.BaseDir, domain.SanitizeFolderName(course.Title))
	report, err := infrastructure.VerifyArchive(course, courseRoot, r.config.Run.TranscriptOnly)
	if err != nil {
		return nil, err
	}

	if reportPath != "" && len(report.Missing) > 0 {
		if err := report.WriteMissingList(reportPath); err != nil {
			return report, fmt.Errorf("write missing list: %w", err)
		}
		r.logger.Info("Missing list written", zap.String("path", reportPath))
	}
	return report, nil
}

// Stats returns the persisted progress counters for one course id.
func (r *Runner) Stats(courseID string) (*domain.ArchiveStats, error) {
	repo, err := infrastructure.NewSQLiteProgressRepository(
		infrastructure.StateDBPath(r.config.Archive.StateDir, courseID))
	if err != nil {
		return nil, fmt.Errorf("open progress store: %w", err)
	}
	defer repo.Close()
	return repo.Stats()
}
