// Package notify decides whether and how urgently to alert the user about
// an off-task streak, and dispatches through a pluggable sink.
package notify

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/christopherklint97/focusd/internal/activity"
)

// Sink delivers a single alert. Urgent alerts may use a more intrusive
// presentation (sound, sticky banner); that choice belongs to the sink.
type Sink interface {
	Send(title, message string, urgent bool) error
}

// Notifier implements the escalation state machine. Two timestamps drive
// it: lastNotification gates absolute alert frequency (cooldown), and
// escalationStart marks when escalation tracking began. escalationStart is
// cleared by any non-off-task sample, while the off-task streak measured
// by the tracker is not; the two can diverge when cooldown suppresses a
// cycle.
type Notifier struct {
	mu               sync.Mutex
	lastNotification time.Time
	escalationStart  *time.Time

	sink            Sink
	cooldown        time.Duration
	escalationDelay time.Duration
	logger          *slog.Logger
}

func New(sink Sink, cooldown, escalationDelay time.Duration, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		sink:            sink,
		cooldown:        cooldown,
		escalationDelay: escalationDelay,
		logger:          logger,
	}
}

// NotifyIfNeeded evaluates one analysis cycle. offTaskDuration is the
// continuous off-task streak reported by the activity tracker.
func (n *Notifier) NotifyIfNeeded(result activity.Result, offTaskDuration time.Duration) {
	now := time.Now()

	n.mu.Lock()
	defer n.mu.Unlock()

	if result.Status != activity.StatusOffTask {
		// Any return to on-task or break resets escalation progress,
		// even a momentary one.
		if n.escalationStart != nil {
			n.escalationStart = nil
			n.logger.Debug("escalation reset (back on task)")
		}
		return
	}

	if now.Sub(n.lastNotification) < n.cooldown {
		return
	}

	if n.escalationStart == nil {
		start := now
		n.escalationStart = &start
	}

	if now.Sub(*n.escalationStart) >= n.escalationDelay {
		n.sendUrgent(result, offTaskDuration)
	} else {
		n.sendGentle(result)
	}

	n.lastNotification = now
}

func (n *Notifier) sendGentle(result activity.Result) {
	message := result.Suggestion
	if message == "" {
		message = fmt.Sprintf("Looks like you're %s. Time to refocus?", result.Description)
	}
	n.send("Focus Reminder", message, false)
}

func (n *Notifier) sendUrgent(result activity.Result, offTaskDuration time.Duration) {
	minutes := int(offTaskDuration.Minutes())
	message := fmt.Sprintf("You've been off-task for %d+ minutes (%s). Get back to work!",
		minutes, result.Description)
	n.send("⚠ Focus Alert", message, true)
}

// send dispatches through the sink. A dispatch failure does not roll back
// escalation state; retrying the same alert next cycle would defeat the
// cooldown.
func (n *Notifier) send(title, message string, urgent bool) {
	if err := n.sink.Send(title, message, urgent); err != nil {
		n.logger.Warn("notification dispatch failed", "title", title, "error", err)
		return
	}
	n.logger.Debug("notification sent", "title", title, "urgent", urgent)
}
