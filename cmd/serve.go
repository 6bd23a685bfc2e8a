package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/arvosec/skywatch/internal/bus"
	"github.com/arvosec/skywatch/internal/incident"
	"github.com/arvosec/skywatch/internal/ingest"
	"github.com/arvosec/skywatch/internal/sched"
	"github.com/arvosec/skywatch/internal/session"
	"github.com/arvosec/skywatch/internal/store"
	"github.com/arvosec/skywatch/internal/ui"
	"github.com/arvosec/skywatch/internal/workflow"
)

var (
	noTUI    bool
	forceTUI bool
	watchDir string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the operations console and alert processing services",
	Long: `Start the Skywatch server which includes:

1. Terminal operations console for monitoring and response
2. Redis Streams consumer for externally triggered alerts
3. Activity archival into the evidence repository
4. Optional folder watcher for file-based alert drops

The serve command runs until interrupted (Ctrl+C) and handles:
- Alert triage and response workflow
- Evidence capture and export
- Activity log archival and search
- Graceful shutdown of all components

Examples:
  # Start with the console (default)
  skywatch serve

  # Start without the console (headless alert consumer)
  skywatch serve --no-tui

  # Watch a directory for alert drop files
  skywatch serve --watch-dir data/incoming`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&noTUI, "no-tui", false, "Run in headless mode without the console")
	serveCmd.Flags().BoolVar(&forceTUI, "force-tui", false, "Force console mode even in unsupported terminals")
	serveCmd.Flags().StringVar(&watchDir, "watch-dir", "", "Directory to watch for alert drop files (disabled when empty)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	config := GetConfig()

	// Initialize logger - use file logging for console mode to keep the terminal clean
	var logger *log.Logger
	willUseTUI := determineTUIMode(cmd, args)

	if willUseTUI {
		// Silent console mode: logs go to file, errors still visible on terminal
		logFile := setupFileLogger()
		if logFile != nil {
			// Use multi-writer: file for all logs, stderr for errors only
			logger = log.New(io.MultiWriter(logFile, &errorFilterWriter{os.Stderr}), "[serve] ", log.LstdFlags)
			defer logFile.Close()
		} else {
			// Fallback to stderr if file creation fails
			logger = log.New(os.Stderr, "[serve] ", log.LstdFlags)
		}
	} else {
		// Headless mode: normal stderr logging
		logger = log.New(os.Stderr, "[serve] ", log.LstdFlags)
	}

	logger.Println("Starting Skywatch server")

	// Initialize store
	logger.Println("Initializing database...")
	baseDir := getWorkingDir()
	resolvedDBPath := resolvePathRelativeToBase(baseDir, config.Database.Path)
	logger.Printf("Using database at %s", resolvedDBPath)
	st, err := store.NewStore(resolvedDBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	// Initialize bus (Redis or Null)
	logger.Println("Connecting to event bus...")
	var busLogger *log.Logger = logger
	if willUseTUI {
		// Silence bus logs while the console is active to avoid bottom-of-screen noise
		busLogger = log.New(io.Discard, "", 0)
	}
	eventBus := bus.NewBus(config.Redis.URL, busLogger)
	defer eventBus.Close()

	// Session state and the workflow controller
	alerts := session.NewAlertStore()
	activity := session.NewActivityLog()
	evidence := session.NewEvidenceStore()
	runner := sched.NewRunner()
	defer runner.Close()

	ctrl := workflow.New(alerts, activity, evidence, runner, logger)

	// Every activity entry is archived to the repository and republished
	// on the bus so other instances can follow along
	ctrl.SetActivityObserver(func(entry incident.LogEntry) {
		archiveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := st.ArchiveActivity(archiveCtx, entry); err != nil {
			logger.Printf("Failed to archive activity entry %s: %v", entry.ID, err)
		}
		msg := bus.ActivityMessage{Entry: entry, Source: "serve", Timestamp: time.Now()}
		if err := eventBus.PublishActivity(archiveCtx, msg); err != nil {
			logger.Printf("Failed to publish activity entry %s: %v", entry.ID, err)
		}
	})

	// Create service coordinator (silence service logs when the console is active)
	var svcLogger *log.Logger = logger
	if willUseTUI {
		svcLogger = log.New(io.Discard, "", 0)
	}

	// Create a cancellable context for the service coordinator
	// This allows us to properly shut down background services when the console exits
	svcCtx, svcCancel := context.WithCancel(ctx)
	defer svcCancel()

	coordinator := &ServiceCoordinator{
		store:  st,
		bus:    eventBus,
		ctrl:   ctrl,
		logger: svcLogger,
		ctx:    svcCtx,
	}

	// Start background services
	logger.Println("Starting background services...")
	if err := coordinator.Start(); err != nil {
		return fmt.Errorf("failed to start services: %w", err)
	}
	defer coordinator.Stop()

	// Optional folder watcher for file-based alert drops
	if watchDir != "" {
		resolvedWatchDir := resolvePathRelativeToBase(baseDir, watchDir)
		watcher := ingest.NewFolderWatcher(func(dropCtx context.Context, drop ingest.AlertDrop) error {
			return ctrl.InjectAlert(drop.Alert, drop.LogEntries)
		}, ingest.FolderOptions{
			Dir:          resolvedWatchDir,
			Logger:       svcLogger,
			ScanExisting: true,
		})
		go func() {
			if err := watcher.Run(svcCtx); err != nil && svcCtx.Err() == nil {
				logger.Printf("Folder watcher error: %v", err)
			}
		}()
		logger.Printf("Watching %s for alert drops", resolvedWatchDir)
	}

	// Start the console if not in headless mode
	if !noTUI {
		logger.Println("Starting console...")
		logger.Printf("Terminal info: %s", getTerminalInfo())

		// Test if the console can be initialized (unless forced)
		if !forceTUI && !canInitializeTUI() {
			// Check if we can fix this with pseudo-TTY
			if needsPseudoTTY() {
				logger.Println("No TTY available, using script command for pseudo-TTY...")
				return runWithPseudoTTY(cmd, args)
			}
			logger.Println("Console cannot be initialized in this terminal environment")
			logger.Println("Automatically switching to headless mode...")
			logger.Println("")
			logger.Println("For the full console experience, use:")
			logger.Println("  1. Native terminal (gnome-terminal, iTerm2, etc.)")
			logger.Println("  2. SSH with proper TERM settings")
			logger.Println("")
			logger.Println("Current alternatives:")
			logger.Println("  - CLI commands: ./bin/skywatch list cases")
			logger.Println("  - Headless mode: ./bin/skywatch serve --no-tui")
			logger.Println("")

			// Switch to headless mode
			noTUI = true
		} else {
			// Create logs directory and a file-backed logger for the console
			// to prevent terminal corruption
			logDir := filepath.Join(baseDir, "logs")
			if err := os.MkdirAll(logDir, 0755); err != nil {
				logger.Printf("Warning: Could not create logs directory: %v", err)
			}
			logPath := filepath.Join(logDir, "skywatch-ui.log")
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				logger.Printf("Warning: Could not create UI log file at %s: %v", logPath, err)
				logFile = nil
			}

			var uiLogger *log.Logger
			if logFile != nil {
				uiLogger = log.New(logFile, "[UI] ", log.LstdFlags)
				uiLogger.Printf("UI logger initialized (path=%s)", logPath)
				_ = logFile.Sync()
				defer logFile.Close()
			} else {
				uiLogger = log.New(io.Discard, "[UI] ", log.LstdFlags)
			}

			console := ui.NewConsole(ctx, ctrl, alerts, activity, evidence, st, runner, uiLogger, ui.Options{
				SkipIntro: config.UI.SkipIntro,
				ThemeName: config.UI.Theme,
			})

			if err := console.Start(ctx); err != nil {
				return fmt.Errorf("console error: %w", err)
			}
		}
	}

	// Cancel service context when the console exits to properly shut down
	// background services
	if !noTUI {
		logger.Println("Console exited, cancelling background services...")
		svcCancel()
	}

	if noTUI {
		logger.Println("Running in headless mode...")
		// Wait for context cancellation
		<-ctx.Done()
		logger.Println("Received shutdown signal")
	}

	logger.Println("Skywatch server stopped")
	return nil
}

// canInitializeTUI tests if tcell can actually be initialized
func canInitializeTUI() bool {
	screen, err := tcell.NewScreen()
	if err != nil {
		return false
	}

	err = screen.Init()
	if err != nil {
		return false
	}

	// Clean up immediately
	screen.Fini()
	return true
}

// getTerminalInfo returns detailed terminal information
func getTerminalInfo() string {
	var info []string

	term := os.Getenv("TERM")
	if term == "" {
		info = append(info, "TERM=<not set>")
	} else {
		info = append(info, fmt.Sprintf("TERM=%s", term))
	}

	termProgram := os.Getenv("TERM_PROGRAM")
	if termProgram != "" {
		info = append(info, fmt.Sprintf("TERM_PROGRAM=%s", termProgram))
	}

	if width, height := getTerminalSize(); width > 0 && height > 0 {
		info = append(info, fmt.Sprintf("Size=%dx%d", width, height))
	}

	if isTerminal() {
		info = append(info, "TTY=yes")
	} else {
		info = append(info, "TTY=no")
	}

	if supportsColors() {
		info = append(info, "Colors=yes")
	} else {
		info = append(info, "Colors=no")
	}

	return strings.Join(info, ", ")
}

// getExecutableDir returns the directory of the running executable.
// Falls back to current directory on error.
func getExecutableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// getWorkingDir returns the current working directory.
// Falls back to executable directory if os.Getwd fails.
func getWorkingDir() string {
	if wd, err := os.Getwd(); err == nil && wd != "" {
		return wd
	}
	return getExecutableDir()
}

// resolvePathRelativeToBase resolves a possibly relative path against a base directory.
// Absolute paths are returned unchanged.
func resolvePathRelativeToBase(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	// Normalize leading "./" for consistent joining
	p = strings.TrimPrefix(p, "./")
	return filepath.Join(base, p)
}

// isTerminal checks if stdout is a terminal
func isTerminal() bool {
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		return (fileInfo.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// supportsColors checks if terminal supports colors
func supportsColors() bool {
	term := strings.ToLower(os.Getenv("TERM"))

	// Check for color support indicators
	colorTerms := []string{"color", "256", "truecolor", "24bit"}
	for _, colorTerm := range colorTerms {
		if strings.Contains(term, colorTerm) {
			return true
		}
	}

	// Check COLORTERM environment variable
	if colorTerm := os.Getenv("COLORTERM"); colorTerm != "" {
		return true
	}

	// Known color-supporting terminals
	supportedTerms := []string{"xterm", "screen", "tmux", "linux", "ansi"}
	for _, supported := range supportedTerms {
		if strings.Contains(term, supported) {
			return true
		}
	}

	return false
}

// ServiceCoordinator manages background services
type ServiceCoordinator struct {
	store  *store.Store
	bus    bus.Bus
	ctrl   *workflow.Controller
	logger *log.Logger
	ctx    context.Context

	// Service state
	wg      sync.WaitGroup
	running bool
}

// Start starts all background services
func (sc *ServiceCoordinator) Start() error {
	if sc.running {
		return fmt.Errorf("services already running")
	}

	sc.running = true

	// Start alert stream consumer
	sc.wg.Add(1)
	go sc.runAlertConsumer()

	// Start bus health monitor
	sc.wg.Add(1)
	go sc.runHealthMonitor()

	// Start metrics collector
	sc.wg.Add(1)
	go sc.runMetricsCollector()

	sc.logger.Println("Background services started")
	return nil
}

// Stop stops all background services
func (sc *ServiceCoordinator) Stop() {
	if !sc.running {
		return
	}

	sc.logger.Println("Stopping background services...")
	sc.running = false

	// Wait for all goroutines to finish
	sc.wg.Wait()

	sc.logger.Println("Background services stopped")
}

// runAlertConsumer feeds externally published alerts into the workflow
func (sc *ServiceCoordinator) runAlertConsumer() {
	defer sc.wg.Done()

	sc.logger.Println("Starting alert consumer")

	handler := func(ctx context.Context, msg bus.AlertMessage) error {
		if err := sc.ctrl.InjectAlert(msg.Alert, msg.LogEntries); err != nil {
			// Replays of alerts this instance already holds are expected
			if errors.Is(err, session.ErrDuplicateID) {
				sc.logger.Printf("Skipping duplicate alert %s", msg.Alert.ID)
				return nil
			}
			sc.logger.Printf("Failed to inject alert %s: %v", msg.Alert.ID, err)
			return err
		}
		if msg.Companion != nil {
			if err := sc.ctrl.InjectAlert(*msg.Companion, nil); err != nil && !errors.Is(err, session.ErrDuplicateID) {
				sc.logger.Printf("Failed to inject companion alert %s: %v", msg.Companion.ID, err)
			}
		}
		sc.logger.Printf("Injected alert %s from %s", msg.Alert.ID, msg.Source)
		return nil
	}

	// Read from the alerts stream
	for {
		select {
		case <-sc.ctx.Done():
			sc.logger.Println("Alert consumer stopping")
			return
		default:
			if err := sc.bus.ReadAlertStream(sc.ctx, "skywatch", "console", handler); err != nil {
				if sc.ctx.Err() != nil {
					return // Context cancelled
				}
				sc.logger.Printf("Error reading alerts stream: %v", err)
				time.Sleep(5 * time.Second) // Wait before retrying
			}
		}
	}
}

// runHealthMonitor monitors the bus connection
func (sc *ServiceCoordinator) runHealthMonitor() {
	defer sc.wg.Done()

	sc.logger.Println("Starting health monitor")
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sc.ctx.Done():
			sc.logger.Println("Health monitor stopping")
			return
		case <-ticker.C:
			sc.performHealthChecks()
		}
	}
}

// runMetricsCollector collects and logs system metrics
func (sc *ServiceCoordinator) runMetricsCollector() {
	defer sc.wg.Done()

	sc.logger.Println("Starting metrics collector")
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-sc.ctx.Done():
			sc.logger.Println("Metrics collector stopping")
			return
		case <-ticker.C:
			sc.collectMetrics()
		}
	}
}

// performHealthChecks checks the health of all components
func (sc *ServiceCoordinator) performHealthChecks() {
	ctx, cancel := context.WithTimeout(sc.ctx, 30*time.Second)
	defer cancel()

	if err := sc.bus.HealthCheck(ctx); err != nil {
		sc.logger.Printf("Bus health check failed: %v", err)
	}
}

// collectMetrics collects and logs system metrics
func (sc *ServiceCoordinator) collectMetrics() {
	ctx, cancel := context.WithTimeout(sc.ctx, 30*time.Second)
	defer cancel()

	// Get bus stats
	busStats, err := sc.bus.GetStats(ctx)
	if err != nil {
		sc.logger.Printf("Failed to get bus stats: %v", err)
	} else {
		sc.logger.Printf("Bus stats: %+v", busStats)
	}

	// Get case/evidence counts from the repository
	caseCount, err := sc.store.CountCases(ctx)
	if err != nil {
		sc.logger.Printf("Failed to get case count: %v", err)
		return
	}
	evidenceCount, err := sc.store.CountAllEvidence(ctx)
	if err != nil {
		sc.logger.Printf("Failed to get evidence count: %v", err)
		return
	}
	sc.logger.Printf("Repository stats: %d cases, %d evidence items", caseCount, evidenceCount)
}

// needsPseudoTTY checks if we need to use script command for pseudo-TTY
func needsPseudoTTY() bool {
	// Try to actually open /dev/tty (not just check if it exists)
	if file, err := os.OpenFile("/dev/tty", os.O_RDWR, 0); err == nil {
		file.Close()
		return false
	}
	return true
}

// runWithPseudoTTY re-executes the command using script for pseudo-TTY
func runWithPseudoTTY(cmd *cobra.Command, args []string) error {
	// Get the current executable path
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	// Build the command arguments
	cmdArgs := []string{"serve"}
	cmdArgs = append(cmdArgs, args...)

	// Add force-tui flag if not already present
	hasForceTUI := false
	for _, arg := range args {
		if arg == "--force-tui" {
			hasForceTUI = true
			break
		}
	}
	if !hasForceTUI {
		cmdArgs = append(cmdArgs, "--force-tui")
	}

	// Build the full command string with proper quoting
	quotedExecutable := fmt.Sprintf(`"%s"`, executable)
	quotedArgs := make([]string, len(cmdArgs))
	for i, arg := range cmdArgs {
		quotedArgs[i] = fmt.Sprintf(`"%s"`, arg)
	}

	fullCmd := fmt.Sprintf("TERM=%s %s %s",
		os.Getenv("TERM"),
		quotedExecutable,
		strings.Join(quotedArgs, " "))

	// Use script command to create pseudo-TTY
	scriptCmd := exec.Command("script", "-qec", fullCmd, "/dev/null")
	scriptCmd.Stdin = os.Stdin
	scriptCmd.Stdout = os.Stdout
	scriptCmd.Stderr = os.Stderr

	// Set environment variables
	scriptCmd.Env = os.Environ()

	return scriptCmd.Run()
}

// determineTUIMode determines if the console will be used (extracted for logging setup)
func determineTUIMode(cmd *cobra.Command, args []string) bool {
	if noTUI {
		return false
	}
	if !forceTUI && !canInitializeTUI() {
		// Check if we can fix this with pseudo-TTY
		if needsPseudoTTY() {
			// Will use pseudo-TTY, so console mode
			return true
		}
		// Will fall back to headless
		return false
	}
	return true
}

// setupFileLogger creates a log file for console mode
func setupFileLogger() *os.File {
	baseDir := getWorkingDir()
	logDir := filepath.Join(baseDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		// If we can't create logs directory, we'll fall back to stderr
		return nil
	}

	logPath := filepath.Join(logDir, "skywatch-serve.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// If we can't create the log file, we'll fall back to stderr
		return nil
	}

	return logFile
}

// errorFilterWriter only writes error messages to the underlying writer
type errorFilterWriter struct {
	writer io.Writer
}

func (w *errorFilterWriter) Write(p []byte) (n int, err error) {
	// Only write if the log message contains error indicators
	logMsg := string(p)
	lc := strings.ToLower(logMsg)

	if strings.Contains(lc, "error") ||
		strings.Contains(lc, "failed") ||
		strings.Contains(lc, "panic") {
		return w.writer.Write(p)
	}
	// Suppress non-error logs in console mode
	return len(p), nil
}
