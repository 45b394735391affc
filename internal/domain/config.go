package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Run     RunConfig     `mapstructure:"run"`
	Session SessionConfig `mapstructure:"session"`
	Mux     MuxConfig     `mapstructure:"mux"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig contains the optional status API configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// ArchiveConfig contains on-disk layout configuration
type ArchiveConfig struct {
	BaseDir  string `mapstructure:"base_dir"`  // root under which course folders are created
	StateDir string `mapstructure:"state_dir"` // progress databases, one per course id
	LogsDir  string `mapstructure:"logs_dir"`
}

// RunConfig contains orchestrator configuration
type RunConfig struct {
	Concurrency    int           `mapstructure:"concurrency"`     // worker pool size
	MaxRetries     int           `mapstructure:"max_retries"`     // attempt ceiling per asset
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`   // base for exponential backoff
	RequestSpacing time.Duration `mapstructure:"request_spacing"` // minimum gap between session calls
	RemoteTimeout  time.Duration `mapstructure:"remote_timeout"`  // per remote call
	TranscriptOnly bool          `mapstructure:"transcript_only"`
	SkipTranscript bool          `mapstructure:"skip_transcript"` // video only
}

// TranscriptsWanted reports whether transcripts should be fetched at all.
func (c *RunConfig) TranscriptsWanted() bool {
	return !c.SkipTranscript
}

// SessionConfig contains session driver configuration
type SessionConfig struct {
	DriverBinary string        `mapstructure:"driver_binary"`
	ProfileDir   string        `mapstructure:"profile_dir"` // persisted login state
	BaseURL      string        `mapstructure:"base_url"`
	Headless     bool          `mapstructure:"headless"`
	LoginTimeout time.Duration `mapstructure:"login_timeout"`
}

// MuxConfig contains video assembly configuration
type MuxConfig struct {
	FFmpegBinary string        `mapstructure:"ffmpeg_binary"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// NotifyConfig contains desktop notification configuration
type NotifyConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8317,
		},
		Archive: ArchiveConfig{
			BaseDir:  "$HOME/Downloads/courses",
			StateDir: "$HOME/Downloads/courses/.state",
			LogsDir:  "$HOME/Downloads/courses/.logs",
		},
		Run: RunConfig{
			Concurrency:    2,
			MaxRetries:     3,
			RetryBackoff:   5 * time.Second,
			RequestSpacing: 2 * time.Second,
			RemoteTimeout:  45 * time.Second,
			TranscriptOnly: false,
		},
		Session: SessionConfig{
			DriverBinary: "course-session-driver",
			ProfileDir:   "$HOME/Downloads/courses/.profile",
			BaseURL:      "https://learning.oreilly.com",
			Headless:     true,
			LoginTimeout: 90 * time.Second,
		},
		Mux: MuxConfig{
			FFmpegBinary: "ffmpeg",
			Timeout:      30 * time.Minute,
		},
		Notify: NotifyConfig{
			Enabled: true,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
