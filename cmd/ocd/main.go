package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/salvatorelai/ocd/api"
	"github.com/salvatorelai/ocd/internal/app"
	"github.com/salvatorelai/ocd/internal/domain"
	"github.com/salvatorelai/ocd/internal/infrastructure"
	"github.com/salvatorelai/ocd/pkg/logger"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "ocd",
		Short: "OCD - Online course downloader",
		Long:  `Archives online courses as mp4 videos and timestamped transcripts, resuming where previous runs left off.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	runCmd.Flags().String("email", "", "Account email (or OCD_EMAIL)")
	runCmd.Flags().String("password", "", "Account password (or OCD_PASSWORD)")
	runCmd.Flags().String("name", "", "Override the course folder name")
	runCmd.Flags().Bool("transcript-only", false, "Fetch transcripts only, skip video")
	runCmd.Flags().Bool("no-transcripts", false, "Fetch video only, skip transcripts")
	runCmd.Flags().Int("concurrency", 0, "Worker pool size (overrides config)")
	runCmd.Flags().Bool("headless", true, "Run the browser session headless")
	runCmd.Flags().Bool("serve-status", false, "Expose the run progress API while downloading")

	verifyCmd.Flags().String("email", "", "Account email (or OCD_EMAIL)")
	verifyCmd.Flags().String("password", "", "Account password (or OCD_PASSWORD)")
	verifyCmd.Flags().String("name", "", "Override the course folder name")
	verifyCmd.Flags().StringP("output", "o", "", "Write missing artifacts as JSON to this path")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetProfileCmd)
}

// setup loads configuration and builds the shared logging stack
func setup() (*domain.Config, *zap.Logger, *logger.MultiLogger, error) {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	multiLogger, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Archive.LogsDir,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create multi-logger: %w", err)
	}

	return config, log, multiLogger, nil
}

// credentials resolves login credentials from flags or environment
func credentials(cmd *cobra.Command) (string, string) {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if email == "" {
		email = os.Getenv("OCD_EMAIL")
	}
	if password == "" {
		password = os.Getenv("OCD_PASSWORD")
	}
	return email, password
}

var runCmd = &cobra.Command{
	Use:   "run [course-url]",
	Short: "Download a course, resuming previous progress",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config, log, multiLogger, err := setup()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer multiLogger.Sync()

		name, _ := cmd.Flags().GetString("name")
		transcriptOnly, _ := cmd.Flags().GetBool("transcript-only")
		noTranscripts, _ := cmd.Flags().GetBool("no-transcripts")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		serveStatus, _ := cmd.Flags().GetBool("serve-status")
		if cmd.Flags().Changed("headless") {
			headless, _ := cmd.Flags().GetBool("headless")
			config.Session.Headless = headless
		}

		if transcriptOnly {
			config.Run.TranscriptOnly = true
		}
		if noTranscripts {
			config.Run.SkipTranscript = true
		}
		if concurrency > 0 {
			config.Run.Concurrency = concurrency
		}
		if config.Run.TranscriptOnly && config.Run.SkipTranscript {
			fmt.Fprintln(os.Stderr, "Error: --transcript-only and --no-transcripts are mutually exclusive")
			os.Exit(1)
		}

		email, password := credentials(cmd)
		if email == "" || password == "" {
			fmt.Fprintln(os.Stderr, "Error: credentials required (--email/--password or OCD_EMAIL/OCD_PASSWORD)")
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runner := app.NewRunner(config, log, multiLogger)
		tracker := app.NewRunTracker()
		runner.SetTracker(tracker)

		if serveStatus {
			router := api.SetupRouter(tracker, log)
			addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
			go func() {
				log.Info("Status API listening", zap.String("addr", addr))
				if err := http.ListenAndServe(addr, router); err != nil {
					log.Warn("Status API stopped", zap.Error(err))
				}
			}()
		}

		result, runErr := runner.Run(ctx, app.RunRequest{
			CourseURL:  args[0],
			CourseName: name,
			Email:      email,
			Password:   password,
		})
		if runErr != nil {
			if result != nil && result.Summary != nil {
				printSummary(result)
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
			os.Exit(1)
		}

		printSummary(result)
	},
}

func printSummary(result *app.RunResult) {
	s := result.Summary
	fmt.Printf("Course: %s\n", result.Course.Title)
	fmt.Printf("Archive: %s\n", result.CourseRoot)
	fmt.Printf("Complete: %d  Failed: %d  Skipped: %d\n", s.Complete, s.Failed, s.Skipped)
	if s.TranscriptMissing > 0 {
		fmt.Printf("Transcripts unavailable: %d\n", s.TranscriptMissing)
	}
}

var verifyCmd = &cobra.Command{
	Use:   "verify [course-url]",
	Short: "Check the archive against the remote course structure",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config, log, multiLogger, err := setup()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer multiLogger.Sync()

		name, _ := cmd.Flags().GetString("name")
		output, _ := cmd.Flags().GetString("output")
		email, password := credentials(cmd)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runner := app.NewRunner(config, log, multiLogger)
		report, err := runner.Verify(ctx, app.RunRequest{
			CourseURL:  args[0],
			CourseName: name,
			Email:      email,
			Password:   password,
		}, output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Expected: %d  Found: %d  Missing: %d\n",
			report.Expected, report.Found, len(report.Missing))
		if len(report.Missing) > 0 {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODULE\tLESSON\tTITLE")
			for _, m := range report.Missing {
				fmt.Fprintf(w, "%s\t%s\t%s\n", m.Module, m.Lesson, m.Title)
			}
			w.Flush()
			os.Exit(1)
		}
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats [course-url-or-id]",
	Short: "Show persisted progress counters for a course",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config, log, multiLogger, err := setup()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer multiLogger.Sync()

		courseID := args[0]
		if strings.Contains(courseID, "/") {
			courseID = domain.CourseIDFromURL(courseID)
		}

		runner := app.NewRunner(config, log, multiLogger)
		stats, err := runner.Stats(courseID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Course ID: %s\n", courseID)
		fmt.Printf("Total: %d\n", stats.Total)
		fmt.Printf("Pending: %d\n", stats.Pending)
		fmt.Printf("Downloading: %d\n", stats.Downloading)
		fmt.Printf("Transcript done: %d\n", stats.TranscriptDone)
		fmt.Printf("Video done: %d\n", stats.VideoDone)
		fmt.Printf("Complete: %d\n", stats.Complete)
		fmt.Printf("Failed: %d\n", stats.Failed)
		if stats.TranscriptMissing > 0 {
			fmt.Printf("Transcripts unavailable: %d\n", stats.TranscriptMissing)
		}
	},
}

var resetProfileCmd = &cobra.Command{
	Use:   "reset-profile",
	Short: "Delete the persisted browser profile, forcing a fresh login",
	Run: func(cmd *cobra.Command, args []string) {
		config, _, _, err := setup()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := infrastructure.ResetProfile(config.Session.ProfileDir); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Profile removed: %s\n", config.Session.ProfileDir)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
