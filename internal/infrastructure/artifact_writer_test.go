package infrastructure

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salvatorelai/ocd/internal/domain"
)

func testCues() []domain.TranscriptCue {
	return []domain.TranscriptCue{
		{Timestamp: "00:05", Text: "Welcome to the course."},
		{Timestamp: "00:12", Text: "Let's get started."},
		{Timestamp: "", Text: "dropped: no timestamp"},
		{Timestamp: "00:30", Text: "First topic."},
	}
}

func TestWriteTranscript(t *testing.T) {
	root := t.TempDir()
	w := NewArtifactWriter(root, &domain.MuxConfig{}, filepath.Join(root, "logs"))

	rel := filepath.Join("01 - M", "01 - L", "01 - Intro.txt")
	require.NoError(t, w.WriteTranscript(rel, testCues()))

	data, err := os.ReadFile(filepath.Join(root, rel))
	require.NoError(t, err)

	want := "[00:05] Welcome to the course.\n\n[00:12] Let's get started.\n\n[00:30] First topic.\n"
	assert.Equal(t, want, string(data))

	// no temp file left behind
	_, err = os.Stat(filepath.Join(root, rel+".tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestWriteTranscript_Idempotent(t *testing.T) {
	root := t.TempDir()
	w := NewArtifactWriter(root, &domain.MuxConfig{}, filepath.Join(root, "logs"))

	rel := "transcript.txt"
	require.NoError(t, w.WriteTranscript(rel, testCues()))
	first, err := os.ReadFile(filepath.Join(root, rel))
	require.NoError(t, err)

	require.NoError(t, w.WriteTranscript(rel, testCues()))
	second, err := os.ReadFile(filepath.Join(root, rel))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestWriteTranscript_EmptyIsUnavailable(t *testing.T) {
	root := t.TempDir()
	w := NewArtifactWriter(root, &domain.MuxConfig{}, filepath.Join(root, "logs"))

	err := w.WriteTranscript("x.txt", nil)
	assert.ErrorIs(t, err, domain.ErrTranscriptUnavailable)

	err = w.WriteTranscript("x.txt", []domain.TranscriptCue{{Timestamp: "", Text: ""}})
	assert.ErrorIs(t, err, domain.ErrTranscriptUnavailable)
}

// fakeMuxer writes a script that copies fixed bytes to its last argument,
// standing in for ffmpeg.
func fakeMuxer(t *testing.T, dir string, succeed bool) string {
	t.Helper()
	script := filepath.Join(dir, "fake-ffmpeg")
	body := "#!/bin/sh\nfor last; do :; done\nprintf 'muxed' > \"$last\"\n"
	if !succeed {
		body = "#!/bin/sh\nexit 1\n"
	}
	require.NoError(t, os.WriteFile(script, []byte(body), 0755))
	return script
}

func TestWriteVideo(t *testing.T) {
	root := t.TempDir()
	mux := &domain.MuxConfig{FFmpegBinary: fakeMuxer(t, root, true)}
	w := NewArtifactWriter(root, mux, filepath.Join(root, "logs"))

	rel := filepath.Join("01 - M", "01 - L", "01 - Intro.mp4")
	require.NoError(t, w.WriteVideo(context.Background(), rel, "https://streams.example.com/a.m3u8"))

	assert.True(t, w.VideoExists(rel))

	// temp file was renamed away
	_, err := os.Stat(filepath.Join(root, "01 - M", "01 - L", "01 - Intro.tmp.mp4"))
	assert.True(t, os.IsNotExist(err))
}

func TestWriteVideo_FailureDiscardsPartialOutput(t *testing.T) {
	root := t.TempDir()
	mux := &domain.MuxConfig{FFmpegBinary: fakeMuxer(t, root, false)}
	w := NewArtifactWriter(root, mux, filepath.Join(root, "logs"))

	rel := "clip.mp4"
	err := w.WriteVideo(context.Background(), rel, "https://streams.example.com/a.m3u8")

	var muxErr *domain.MuxError
	require.ErrorAs(t, err, &muxErr)
	assert.False(t, w.VideoExists(rel))

	_, statErr := os.Stat(filepath.Join(root, "clip.tmp.mp4"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteVideo_MissingBinary(t *testing.T) {
	root := t.TempDir()
	mux := &domain.MuxConfig{FFmpegBinary: filepath.Join(root, "no-such-ffmpeg")}
	w := NewArtifactWriter(root, mux, filepath.Join(root, "logs"))

	err := w.WriteVideo(context.Background(), "clip.mp4", "ref")
	var muxErr *domain.MuxError
	assert.ErrorAs(t, err, &muxErr)
}
