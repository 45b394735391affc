package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellEscape(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple path",
			input:    "/tmp/simple/path",
			expected: "/tmp/simple/path",
		},
		{
			name:     "path with spaces",
			input:    "/tmp/path with spaces",
			expected: "'/tmp/path with spaces'",
		},
		{
			name:     "path with single quote",
			input:    "/tmp/it's a test",
			expected: `'/tmp/it'"'"'s a test'`,
		},
		{
			name:     "path with dollar sign",
			input:    "/tmp/path$with$dollar",
			expected: "'/tmp/path$with$dollar'",
		},
		{
			name:     "url with query params",
			input:    "https://learning.example.com/videos/123?autoplay=true&t=0",
			expected: "'https://learning.example.com/videos/123?autoplay=true&t=0'",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "''",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ShellEscape(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestShellEscapeCommand(t *testing.T) {
	tests := []struct {
		name     string
		binary   string
		args     []string
		expected string
	}{
		{
			name:     "simple command",
			binary:   "ffmpeg",
			args:     []string{"-version"},
			expected: "ffmpeg -version",
		},
		{
			name:     "output path with spaces",
			binary:   "ffmpeg",
			args:     []string{"-i", "https://cdn.example.com/index.m3u8", "-c", "copy", "/tmp/01 - Intro.mp4"},
			expected: "ffmpeg -i https://cdn.example.com/index.m3u8 -c copy '/tmp/01 - Intro.mp4'",
		},
		{
			name:     "binary with space",
			binary:   "/opt/my tools/ffmpeg",
			args:     []string{"-version"},
			expected: "'/opt/my tools/ffmpeg' -version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ShellEscapeCommand(tt.binary, tt.args...)
			assert.Equal(t, tt.expected, result)
		})
	}
}
