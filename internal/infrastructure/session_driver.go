package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/salvatorelai/ocd/internal/domain"
)

// Driver response codes mapped onto the engine's error taxonomy.
const (
	driverCodeAuth         = "auth"
	driverCodeNotAvailable = "not_available"
	driverCodeTransient    = "transient"
)

// driverResponse is the JSON envelope every driver subcommand prints on
// stdout.
type driverResponse struct {
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Code  string          `json:"code,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// DriverSession implements domain.Session by invoking an external browser
// driver binary per operation. The driver owns the actual browser; login
// state lives in a persistent profile directory passed on every call, so
// the engine never carries ambient session state.
//
// Callers must serialize access: the profile-backed browser session is a
// single shared stateful resource.
type DriverSession struct {
	config  *domain.SessionConfig
	logsDir string
	logger  *zap.Logger
}

// NewDriverSession creates a session backed by the configured driver binary.
func NewDriverSession(config *domain.SessionConfig, logsDir string, logger *zap.Logger) (*DriverSession, error) {
	if config.DriverBinary == "" {
		return nil, fmt.Errorf("session driver binary not configured")
	}
	if err := os.MkdirAll(config.ProfileDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}
	return &DriverSession{
		config:  config,
		logsDir: logsDir,
		logger:  logger,
	}, nil
}

// Login establishes or refreshes the authenticated session. Credentials
// are handed to the driver via environment variables so they never appear
// on a command line.
func (s *DriverSession) Login(ctx context.Context, email, password string) error {
	if s.config.LoginTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.LoginTimeout)
		defer cancel()
	}

	env := []string{}
	if email != "" {
		env = append(env, "OCD_EMAIL="+email, "OCD_PASSWORD="+password)
	}

	_, err := s.invoke(ctx, env, "login", "--base-url", s.config.BaseURL)
	return err
}

// FetchHierarchy extracts the raw course hierarchy from a course page.
func (s *DriverSession) FetchHierarchy(ctx context.Context, courseURL string) ([]domain.RawModule, error) {
	data, err := s.invoke(ctx, nil, "hierarchy", "--course-url", courseURL)
	if err != nil {
		return nil, err
	}

	var raw []domain.RawModule
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &domain.MalformedStructureError{
			Reason: fmt.Sprintf("driver returned unparseable hierarchy: %v", err),
		}
	}
	return raw, nil
}

// FetchStreamRef resolves the stream locator for a video page.
func (s *DriverSession) FetchStreamRef(ctx context.Context, assetURL string) (string, error) {
	data, err := s.invoke(ctx, nil, "stream-ref", "--video-url", assetURL)
	if err != nil {
		return "", err
	}

	var ref struct {
		StreamURL string `json:"stream_url"`
	}
	if err := json.Unmarshal(data, &ref); err != nil {
		return "", domain.Transient(fmt.Errorf("unparseable stream reference: %w", err))
	}
	if ref.StreamURL == "" {
		return "", domain.Transient(fmt.Errorf("driver returned empty stream reference for %s", assetURL))
	}
	return ref.StreamURL, nil
}

// FetchTranscript extracts the timestamped transcript of a video page.
func (s *DriverSession) FetchTranscript(ctx context.Context, assetURL string) ([]domain.TranscriptCue, error) {
	data, err := s.invoke(ctx, nil, "transcript", "--video-url", assetURL)
	if err != nil {
		return nil, err
	}

	var cues []domain.TranscriptCue
	if err := json.Unmarshal(data, &cues); err != nil {
		return nil, domain.Transient(fmt.Errorf("unparseable transcript payload: %w", err))
	}
	if len(cues) == 0 {
		return nil, domain.ErrTranscriptUnavailable
	}
	return cues, nil
}

// Close is a no-op: the driver process is per-invocation and all durable
// session state lives in the profile directory.
func (s *DriverSession) Close() error {
	return nil
}

// invoke runs one driver subcommand and decodes its response envelope.
// Driver stderr is appended to a dated session log for debugging.
func (s *DriverSession) invoke(ctx context.Context, extraEnv []string, subcommand string, args ...string) (json.RawMessage, error) {
	cmdArgs := append([]string{subcommand, "--profile-dir", s.config.ProfileDir}, args...)
	if s.config.Headless {
		cmdArgs = append(cmdArgs, "--headless")
	}

	cmd := exec.CommandContext(ctx, s.config.DriverBinary, cmdArgs...)
	cmd.Env = append(os.Environ(), extraEnv...)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	sessionLog, err := s.openSessionLog()
	if err == nil {
		defer sessionLog.Close()
		fmt.Fprintf(sessionLog, "\n=== [%s] $ %s\n",
			time.Now().Format("2006-01-02 15:04:05"),
			ShellEscapeCommand(s.config.DriverBinary, cmdArgs...))
		cmd.Stderr = sessionLog
	}

	runErr := cmd.Run()

	var resp driverResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		if ctx.Err() != nil {
			return nil, domain.Transient(fmt.Errorf("driver %s: %w", subcommand, ctx.Err()))
		}
		if runErr != nil {
			return nil, domain.Transient(fmt.Errorf("driver %s failed: %w", subcommand, runErr))
		}
		return nil, domain.Transient(fmt.Errorf("driver %s: unparseable response", subcommand))
	}

	if !resp.OK {
		return nil, s.mapDriverError(subcommand, &resp)
	}
	return resp.Data, nil
}

func (s *DriverSession) mapDriverError(subcommand string, resp *driverResponse) error {
	switch resp.Code {
	case driverCodeAuth:
		s.logger.Error("Session driver rejected authentication",
			zap.String("subcommand", subcommand),
			zap.String("error", resp.Error))
		return fmt.Errorf("%w: %s", domain.ErrAuth, resp.Error)
	case driverCodeNotAvailable:
		return domain.ErrTranscriptUnavailable
	case driverCodeTransient:
		return domain.Transient(fmt.Errorf("driver %s: %s", subcommand, resp.Error))
	default:
		return fmt.Errorf("driver %s: %s", subcommand, resp.Error)
	}
}

func (s *DriverSession) openSessionLog() (*os.File, error) {
	if err := os.MkdirAll(s.logsDir, 0755); err != nil {
		return nil, err
	}
	name := "session-" + time.Now().Format("20060102") + ".log"
	return os.OpenFile(filepath.Join(s.logsDir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

// ResetProfile deletes the persisted login profile, forcing a fresh login
// on the next run.
func ResetProfile(profileDir string) error {
	if _, err := os.Stat(profileDir); os.IsNotExist(err) {
		return nil
	}
	return os.RemoveAll(profileDir)
}
