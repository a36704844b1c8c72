package activity

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Tracker keeps a rolling in-memory window of activity records, measures
// streaks and time budgets over it, and mirrors every record to an
// append-only JSONL log. Writes to the log are best-effort: a failed append
// is reported to the logger but the in-memory record stands.
type Tracker struct {
	mu      sync.Mutex
	history []Record

	logPath    string
	window     time.Duration
	maxEntries int
	interval   time.Duration // nominal gap between classifications
	logger     *slog.Logger
}

func NewTracker(logPath string, window time.Duration, maxEntries int, interval time.Duration, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		logPath:    logPath,
		window:     window,
		maxEntries: maxEntries,
		interval:   interval,
		logger:     logger,
	}
}

// Record appends a classification to the history, prunes old entries, and
// appends the record to the persistent log.
func (t *Tracker) Record(result Result) {
	rec := recordFrom(result)

	t.mu.Lock()
	t.history = append(t.history, rec)
	t.prune(time.Now())
	t.mu.Unlock()

	if err := t.appendLog(rec); err != nil {
		t.logger.Warn("activity log write failed", "error", err)
	}
}

// prune drops entries older than the history window, then enforces the
// entry cap, oldest first. Caller holds t.mu.
func (t *Tracker) prune(now time.Time) {
	cutoff := now.Add(-t.window)
	kept := t.history[:0]
	for _, r := range t.history {
		if !r.Timestamp.Before(cutoff) {
			kept = append(kept, r)
		}
	}
	t.history = kept

	if len(t.history) > t.maxEntries {
		t.history = t.history[len(t.history)-t.maxEntries:]
	}
}

func (t *Tracker) appendLog(rec Record) error {
	if err := os.MkdirAll(filepath.Dir(t.logPath), 0755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(t.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("appending record: %w", err)
	}
	return nil
}

// History returns the most recent limit records, oldest first.
func (t *Tracker) History(limit int) []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	start := 0
	if limit > 0 && len(t.history) > limit {
		start = len(t.history) - limit
	}
	out := make([]Record, len(t.history)-start)
	copy(out, t.history[start:])
	return out
}

// CurrentStreak returns the status of the most recent record and how long
// that status has persisted without interruption. A single record of a
// different status breaks the streak.
func (t *Tracker) CurrentStreak() (Status, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.history) == 0 {
		return StatusUnknown, 0
	}

	last := t.history[len(t.history)-1]
	streakStart := last.Timestamp

	for i := len(t.history) - 2; i >= 0; i-- {
		if t.history[i].Status != last.Status {
			break
		}
		streakStart = t.history[i].Timestamp
	}

	return last.Status, time.Since(streakStart)
}

// OffTaskDuration returns how long the user has been continuously
// off-task. Zero whenever the current streak is any other status.
func (t *Tracker) OffTaskDuration() time.Duration {
	status, duration := t.CurrentStreak()
	if status == StatusOffTask {
		return duration
	}
	return 0
}

// CheckBudgets returns a description for each budget whose estimated usage
// inside its rolling window exceeds the cap. A record's duration is
// estimated as the gap to the next record in the log regardless of that
// record's status, falling back to the nominal classification interval for
// the newest record. Sparse sampling can over-count a match; that
// approximation is intentional and alert thresholds are tuned against it.
func (t *Tracker) CheckBudgets(budgets []TimeBudget) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var exceeded []string
	now := time.Now()

	for _, budget := range budgets {
		cutoff := now.Add(-time.Duration(budget.PerMinutes) * time.Minute)
		pattern := strings.ToLower(budget.ActivityPattern)

		var total time.Duration
		for i, rec := range t.history {
			if rec.Timestamp.Before(cutoff) {
				continue
			}
			if !strings.Contains(strings.ToLower(rec.Description), pattern) {
				continue
			}
			if i+1 < len(t.history) {
				total += t.history[i+1].Timestamp.Sub(rec.Timestamp)
			} else {
				total += t.interval
			}
		}

		totalMinutes := total.Minutes()
		if totalMinutes > float64(budget.MaxMinutes) {
			exceeded = append(exceeded,
				fmt.Sprintf("%s: %.0f/%d min used", budget.ActivityPattern, totalMinutes, budget.MaxMinutes))
		}
	}

	return exceeded
}

// FormatHistory renders recent records as text for the classifier's
// context window.
func (t *Tracker) FormatHistory(lastN int) string {
	records := t.History(lastN)
	if len(records) == 0 {
		return "No activity recorded yet."
	}

	var b strings.Builder
	for _, rec := range records {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", rec.Timestamp.Format("15:04:05"), rec.Status, rec.Description)
	}

	status, duration := t.CurrentStreak()
	fmt.Fprintf(&b, "\nCurrent streak: %s for %.0fs", status, duration.Seconds())

	return b.String()
}
