package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 8317, config.Server.Port)
	assert.Equal(t, 2, config.Run.Concurrency)
	assert.Equal(t, 3, config.Run.MaxRetries)
	assert.Equal(t, 5*time.Second, config.Run.RetryBackoff)
	assert.Equal(t, 2*time.Second, config.Run.RequestSpacing)
	assert.False(t, config.Run.TranscriptOnly)
	assert.True(t, config.Run.TranscriptsWanted())
	assert.Equal(t, "course-session-driver", config.Session.DriverBinary)
	assert.True(t, config.Session.Headless)
	assert.Equal(t, "ffmpeg", config.Mux.FFmpegBinary)
	assert.Equal(t, 30*time.Minute, config.Mux.Timeout)
	assert.True(t, config.Notify.Enabled)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestTranscriptsWanted(t *testing.T) {
	config := RunConfig{SkipTranscript: true}
	assert.False(t, config.TranscriptsWanted())
}
