package infrastructure

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/salvatorelai/ocd/internal/domain"
)

// ArtifactWriter materializes fetched payloads as files under the course
// root. Every write is all-or-nothing: content goes to a temp file in the
// target directory first and is renamed into place only when complete, so
// a crash or failed mux never leaves a corrupt artifact at a final path.
type ArtifactWriter struct {
	courseRoot string
	muxConfig  *domain.MuxConfig
	logsDir    string
}

// NewArtifactWriter creates a writer rooted at the course archive directory.
func NewArtifactWriter(courseRoot string, muxConfig *domain.MuxConfig, logsDir string) *ArtifactWriter {
	return &ArtifactWriter{
		courseRoot: courseRoot,
		muxConfig:  muxConfig,
		logsDir:    logsDir,
	}
}

// CourseRoot returns the archive root this writer materializes into.
func (w *ArtifactWriter) CourseRoot() string {
	return w.courseRoot
}

// EnsureDir creates the canonical lesson directory if absent.
func (w *ArtifactWriter) EnsureDir(relDir string) error {
	return os.MkdirAll(filepath.Join(w.courseRoot, relDir), 0755)
}

// VideoExists reports whether a non-empty video artifact is already on disk.
func (w *ArtifactWriter) VideoExists(relPath string) bool {
	info, err := os.Stat(filepath.Join(w.courseRoot, relPath))
	return err == nil && info.Size() > 0
}

// WriteTranscript writes the timestamped transcript as a human-readable
// text file, one cue per line prefixed by its timestamp and separated by
// blank lines. Identical input always produces byte-identical output.
func (w *ArtifactWriter) WriteTranscript(relPath string, cues []domain.TranscriptCue) error {
	if len(cues) == 0 {
		return domain.ErrTranscriptUnavailable
	}

	lines := make([]string, 0, len(cues))
	for _, cue := range cues {
		ts := strings.TrimSpace(cue.Timestamp)
		text := strings.TrimSpace(cue.Text)
		if ts == "" || text == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", ts, text))
	}
	if len(lines) == 0 {
		return domain.ErrTranscriptUnavailable
	}

	finalPath := filepath.Join(w.courseRoot, relPath)
	if err := os.MkdirAll(filepath.Dir(finalPath), 0755); err != nil {
		return fmt.Errorf("failed to create transcript directory: %w", err)
	}

	tmpPath := finalPath + ".tmp"
	content := strings.Join(lines, "\n\n") + "\n"
	if err := os.WriteFile(tmpPath, []byte(content), 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to commit transcript: %w", err)
	}
	return nil
}

// WriteVideo assembles the stream into a single mp4 at the canonical path
// by delegating to ffmpeg. The mux writes to a temp file; a non-zero exit
// or missing output discards the partial file and returns MuxError, so a
// retry never observes a half-written artifact.
func (w *ArtifactWriter) WriteVideo(ctx context.Context, relPath, streamRef string) error {
	finalPath := filepath.Join(w.courseRoot, relPath)
	if err := os.MkdirAll(filepath.Dir(finalPath), 0755); err != nil {
		return fmt.Errorf("failed to create video directory: %w", err)
	}

	if w.muxConfig.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.muxConfig.Timeout)
		defer cancel()
	}

	// ffmpeg sniffs the container from the extension, so the temp file
	// keeps .mp4 at the end.
	tmpPath := strings.TrimSuffix(finalPath, ".mp4") + ".tmp.mp4"

	args := []string{
		"-i", streamRef,
		"-c", "copy",
		"-bsf:a", "aac_adtstoasc",
		"-loglevel", "error",
		"-y",
		tmpPath,
	}

	cmd := exec.CommandContext(ctx, w.muxConfig.FFmpegBinary, args...)

	muxLog, logErr := w.openMuxLog()
	if logErr == nil {
		defer muxLog.Close()
		fmt.Fprintf(muxLog, "\n=== [%s] $ %s\n",
			time.Now().Format("2006-01-02 15:04:05"),
			ShellEscapeCommand(w.muxConfig.FFmpegBinary, args...))
		cmd.Stdout = muxLog
		cmd.Stderr = muxLog
	}

	runErr := cmd.Run()

	info, statErr := os.Stat(tmpPath)
	if runErr != nil || statErr != nil || info.Size() == 0 {
		os.Remove(tmpPath)
		err := runErr
		if err == nil {
			err = fmt.Errorf("ffmpeg produced no output")
		}
		if ctx.Err() != nil {
			err = fmt.Errorf("%v (%v)", err, ctx.Err())
		}
		return &domain.MuxError{Output: relPath, Err: err}
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return &domain.MuxError{Output: relPath, Err: err}
	}
	return nil
}

func (w *ArtifactWriter) openMuxLog() (*os.File, error) {
	if err := os.MkdirAll(w.logsDir, 0755); err != nil {
		return nil, err
	}
	name := "mux-" + time.Now().Format("20060102") + ".log"
	return os.OpenFile(filepath.Join(w.logsDir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}
