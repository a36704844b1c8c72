// Package daemon wires capture, analysis, tracking, and notification into
// the running focusd process: a capture goroutine samples screenshots and
// app usage on a short interval, and the analysis loop classifies the
// latest sample on a longer one.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/christopherklint97/focusd/internal/activity"
	"github.com/christopherklint97/focusd/internal/analyzer"
	"github.com/christopherklint97/focusd/internal/calendar"
	"github.com/christopherklint97/focusd/internal/capture"
	"github.com/christopherklint97/focusd/internal/config"
	"github.com/christopherklint97/focusd/internal/notify"
	"github.com/christopherklint97/focusd/internal/prompt"
	"github.com/christopherklint97/focusd/internal/summary"
	"github.com/christopherklint97/focusd/internal/usage"
)

// Status is the externally polled snapshot of what the daemon is doing,
// mirrored to status.json for the CLI and watch dashboard.
type Status struct {
	Running       bool      `json:"running"`
	State         string    `json:"state"` // stopped, waiting, or the latest classification status
	Activity      string    `json:"activity"`
	StreakStatus  string    `json:"streak_status"`
	StreakSeconds float64   `json:"streak_seconds"`
	TopApp        string    `json:"top_app,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Daemon struct {
	cfg       *config.Config
	capturer  *capture.Capturer
	provider  analyzer.Provider
	rules     *prompt.Loader
	tracker   *activity.Tracker
	notifier  *notify.Notifier
	usage     *usage.Tracker
	summaries *summary.Generator
	logger    *slog.Logger

	running atomic.Bool

	// Single-slot latest-value cell: the capture goroutine overwrites,
	// the analysis loop snapshots. Intermediate samples are dropped on
	// purpose; the question each cycle is "what is happening now".
	shotsMu     sync.Mutex
	latestShots []string

	statusMu   sync.Mutex
	status     Status
	statusPath string

	captureDone chan struct{}

	calCtx     string
	calFetched time.Time
}

func New(cfg *config.Config, provider analyzer.Provider, sink notify.Sink, sampler usage.Sampler, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}
	logPath, err := cfg.LogPath()
	if err != nil {
		return nil, err
	}
	configDir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}

	capturer, err := capture.New(cfg.Screenshot.Dir, cfg.Screenshot.Displays,
		cfg.Screenshot.MaxBuffered, cfg.Screenshot.MaxDimension, logger)
	if err != nil {
		return nil, err
	}

	analysisInterval := time.Duration(cfg.Intervals.AnalysisSeconds) * time.Second

	return &Daemon{
		cfg:      cfg,
		capturer: capturer,
		provider: provider,
		rules:    prompt.NewLoader(cfg.Paths.RulesFile, logger),
		tracker: activity.NewTracker(logPath,
			time.Duration(cfg.History.WindowSeconds)*time.Second,
			cfg.History.MaxEntries, analysisInterval, logger),
		notifier: notify.New(sink,
			time.Duration(cfg.Notifications.CooldownSeconds)*time.Second,
			time.Duration(cfg.Notifications.EscalationDelay)*time.Second, logger),
		usage: usage.NewTracker(dataDir, sampler,
			time.Duration(cfg.Intervals.CaptureSeconds)*time.Second, logger),
		summaries:  summary.NewGenerator(dataDir, logPath),
		logger:     logger,
		statusPath: filepath.Join(configDir, "status.json"),
	}, nil
}

// Tracker exposes the activity tracker for status/history queries.
func (d *Daemon) Tracker() *activity.Tracker { return d.tracker }

// Run starts the capture goroutine and blocks in the analysis loop until
// Stop is called. It returns only after the final usage save, screenshot
// cleanup, and daily summary have completed, so a caller that exits when
// Run returns never cuts the persistence short.
func (d *Daemon) Run() error {
	if err := writePID(); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePID()

	d.running.Store(true)

	fmt.Println("focusd started")
	fmt.Printf("  Model:    %s\n", d.cfg.AI.Model)
	fmt.Printf("  Capture:  every %ds\n", d.cfg.Intervals.CaptureSeconds)
	fmt.Printf("  Analysis: every %ds\n", d.cfg.Intervals.AnalysisSeconds)
	fmt.Printf("  Rules:    %s\n", d.cfg.Paths.RulesFile)
	fmt.Println()

	d.captureDone = make(chan struct{})
	go d.captureLoop()
	d.analysisLoop()
	<-d.captureDone

	d.shutdown()
	return nil
}

// Stop requests a cooperative shutdown. An in-flight analysis cycle
// completes, including its record and notify steps; Run then performs the
// shutdown persistence before returning.
func (d *Daemon) Stop() {
	d.running.CompareAndSwap(true, false)
}

// shutdown runs after both loops have exited, so it never races a cycle
// and the stopped status it writes is final.
func (d *Daemon) shutdown() {
	d.usage.Save()
	d.capturer.Cleanup()

	if _, err := d.summaries.Generate(time.Now()); err != nil {
		d.logger.Warn("daily summary generation failed", "error", err)
	}

	d.setStatus(func(s *Status) {
		s.Running = false
		s.State = "stopped"
		s.Activity = ""
	})
	fmt.Println("focusd stopped")
}

func (d *Daemon) captureLoop() {
	defer close(d.captureDone)
	for d.running.Load() {
		paths := d.capturer.Capture()
		if len(paths) > 0 {
			d.shotsMu.Lock()
			d.latestShots = paths
			d.shotsMu.Unlock()
		}
		d.usage.Poll()
		d.sleep(time.Duration(d.cfg.Intervals.CaptureSeconds) * time.Second)
	}
}

func (d *Daemon) analysisLoop() {
	d.setStatus(func(s *Status) {
		s.Running = true
		s.State = "waiting"
	})
	fmt.Println("Waiting for first screenshot...")

	for d.running.Load() {
		d.shotsMu.Lock()
		ready := len(d.latestShots) > 0
		d.shotsMu.Unlock()
		if ready {
			break
		}
		d.sleep(time.Second)
	}
	if !d.running.Load() {
		return
	}

	fmt.Println("Monitoring active.")
	fmt.Println()

	for d.running.Load() {
		d.runCycle()
		d.sleep(time.Duration(d.cfg.Intervals.AnalysisSeconds) * time.Second)
	}
}

// sleep blocks for at most d, in one-second increments, returning early
// once a stop was requested.
func (d *Daemon) sleep(total time.Duration) {
	deadline := time.Now().Add(total)
	for d.running.Load() && time.Now().Before(deadline) {
		remaining := time.Until(deadline)
		if remaining > time.Second {
			remaining = time.Second
		}
		time.Sleep(remaining)
	}
}

func (d *Daemon) runCycle() {
	d.rules.ReloadIfChanged()

	d.shotsMu.Lock()
	shots := make([]string, len(d.latestShots))
	copy(shots, d.latestShots)
	d.shotsMu.Unlock()

	if len(shots) == 0 {
		d.logger.Debug("no screenshot available")
		return
	}

	// The cycle runs on its own timeout, not the daemon lifetime: a stop
	// request lets the in-flight classification finish and the record and
	// notify steps below still run.
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(d.cfg.Intervals.AnalysisSeconds)*time.Second)
	defer cancel()

	result, err := d.provider.Analyze(ctx, shots, d.rules.Content(),
		d.tracker.FormatHistory(10), d.calendarContext())
	if err != nil {
		// Discard and try again next cycle with fresh input.
		d.logger.Debug("analysis skipped", "error", err)
		return
	}

	d.tracker.Record(*result)

	streakStatus, streakDur := d.tracker.CurrentStreak()
	var topApp string
	if stats := d.usage.Stats(); len(stats) > 0 {
		topApp = stats[0].App
	}
	d.setStatus(func(s *Status) {
		s.Running = true
		s.State = string(result.Status)
		s.Activity = result.Description
		s.StreakStatus = string(streakStatus)
		s.StreakSeconds = streakDur.Seconds()
		s.TopApp = topApp
	})

	for _, msg := range d.tracker.CheckBudgets(d.rules.Budgets()) {
		d.logger.Debug("budget exceeded", "budget", msg)
	}

	fmt.Printf("[%s] %s %s\n", result.Timestamp.Format("15:04:05"),
		statusIcon(result.Status), result.Description)

	if d.cfg.Notifications.Enabled {
		d.notifier.NotifyIfNeeded(*result, d.tracker.OffTaskDuration())
	}
}

func (d *Daemon) calendarContext() string {
	if !d.cfg.Calendar.Enabled || d.cfg.Calendar.Source == "" {
		return ""
	}
	if !d.calFetched.IsZero() && time.Since(d.calFetched) < 30*time.Minute {
		return d.calCtx
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	d.calFetched = time.Now()
	events, err := calendar.FetchToday(ctx, d.cfg.Calendar.Source)
	if err != nil {
		d.logger.Debug("calendar fetch failed", "error", err)
		return d.calCtx
	}
	d.calCtx = calendar.FormatContext(events)
	return d.calCtx
}

func (d *Daemon) setStatus(update func(*Status)) {
	d.statusMu.Lock()
	update(&d.status)
	d.status.UpdatedAt = time.Now()
	snapshot := d.status
	d.statusMu.Unlock()

	d.writeStatusFile(snapshot)
}

// GetStatus returns the current daemon state for external polling.
func (d *Daemon) GetStatus() Status {
	d.statusMu.Lock()
	defer d.statusMu.Unlock()
	return d.status
}

func (d *Daemon) writeStatusFile(s Status) {
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := os.WriteFile(d.statusPath, data, 0644); err != nil {
		d.logger.Debug("status file write failed", "error", err)
	}
}

// StatusPath is the status.json location for external pollers.
func StatusPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "status.json"), nil
}

// ReadStatus loads the last status snapshot written by a running daemon.
func ReadStatus() (*Status, error) {
	path, err := StatusPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("no daemon status found")
	}
	var s Status
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("invalid status file")
	}
	return &s, nil
}

func statusIcon(status activity.Status) string {
	switch status {
	case activity.StatusOnTask:
		return "✓"
	case activity.StatusOffTask:
		return "✗"
	case activity.StatusBreak:
		return "☕"
	default:
		return "?"
	}
}
