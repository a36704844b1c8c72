package notify

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/christopherklint97/focusd/internal/activity"
)

type fakeSink struct {
	sends []sentAlert
	err   error
}

type sentAlert struct {
	title   string
	message string
	urgent  bool
}

func (s *fakeSink) Send(title, message string, urgent bool) error {
	s.sends = append(s.sends, sentAlert{title, message, urgent})
	return s.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func offTask(desc, suggestion string) activity.Result {
	return activity.Result{
		Status:      activity.StatusOffTask,
		Description: desc,
		Suggestion:  suggestion,
		Timestamp:   time.Now(),
	}
}

func TestFirstOffTaskSampleSendsGentle(t *testing.T) {
	sink := &fakeSink{}
	n := New(sink, 120*time.Second, time.Hour, discard())

	n.NotifyIfNeeded(offTask("scrolling twitter", ""), 10*time.Second)

	if len(sink.sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(sink.sends))
	}
	if sink.sends[0].urgent {
		t.Error("first alert should be gentle")
	}
	if !strings.Contains(sink.sends[0].message, "scrolling twitter") {
		t.Errorf("message = %q, want activity named", sink.sends[0].message)
	}
}

func TestGentleUsesClassifierSuggestion(t *testing.T) {
	sink := &fakeSink{}
	n := New(sink, 0, time.Hour, discard())

	n.NotifyIfNeeded(offTask("reddit", "Close the tab and get back to the PR."), 0)

	if len(sink.sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(sink.sends))
	}
	if sink.sends[0].message != "Close the tab and get back to the PR." {
		t.Errorf("message = %q, want suggestion text", sink.sends[0].message)
	}
}

func TestCooldownSuppressesSecondAlert(t *testing.T) {
	sink := &fakeSink{}
	n := New(sink, 120*time.Second, time.Hour, discard())

	n.NotifyIfNeeded(offTask("twitter", ""), 5*time.Second)
	n.NotifyIfNeeded(offTask("twitter", ""), 10*time.Second)

	if len(sink.sends) != 1 {
		t.Fatalf("sends = %d, want exactly 1 (cooldown)", len(sink.sends))
	}
}

func TestEscalatesToUrgentAfterDelay(t *testing.T) {
	sink := &fakeSink{}
	n := New(sink, 0, 50*time.Millisecond, discard())

	n.NotifyIfNeeded(offTask("youtube", ""), 30*time.Second)
	time.Sleep(60 * time.Millisecond)
	n.NotifyIfNeeded(offTask("youtube", ""), 5*time.Minute)

	if len(sink.sends) != 2 {
		t.Fatalf("sends = %d, want 2", len(sink.sends))
	}
	if sink.sends[0].urgent {
		t.Error("first alert should be gentle")
	}
	if !sink.sends[1].urgent {
		t.Error("second alert should be urgent")
	}
	if !strings.Contains(sink.sends[1].message, "5+ minutes") {
		t.Errorf("urgent message = %q, want off-task minutes", sink.sends[1].message)
	}
}

func TestOnTaskSampleResetsEscalation(t *testing.T) {
	sink := &fakeSink{}
	n := New(sink, 0, 50*time.Millisecond, discard())

	n.NotifyIfNeeded(offTask("youtube", ""), 0)
	time.Sleep(60 * time.Millisecond)

	// A single on-task sample clears escalation progress.
	n.NotifyIfNeeded(activity.Result{Status: activity.StatusOnTask, Description: "coding"}, 0)

	n.NotifyIfNeeded(offTask("youtube", ""), 0)

	if len(sink.sends) != 2 {
		t.Fatalf("sends = %d, want 2", len(sink.sends))
	}
	if sink.sends[1].urgent {
		t.Error("alert after reset should restart at gentle")
	}
}

func TestNonOffTaskNeverNotifies(t *testing.T) {
	sink := &fakeSink{}
	n := New(sink, 0, 0, discard())

	for _, status := range []activity.Status{activity.StatusOnTask, activity.StatusBreak, activity.StatusUnknown} {
		n.NotifyIfNeeded(activity.Result{Status: status, Description: "x"}, 0)
	}

	if len(sink.sends) != 0 {
		t.Errorf("sends = %d, want 0", len(sink.sends))
	}
}

// Cooldown can suppress a cycle while the streak keeps growing: the
// escalation clock and the streak are reset independently, so once the
// cooldown reopens the alert escalates based on when tracking began, not
// when the last alert fired.
func TestEscalationClockSurvivesCooldownSuppression(t *testing.T) {
	sink := &fakeSink{}
	n := New(sink, 80*time.Millisecond, 50*time.Millisecond, discard())

	n.NotifyIfNeeded(offTask("youtube", ""), 0) // gentle, starts both clocks
	time.Sleep(60 * time.Millisecond)
	n.NotifyIfNeeded(offTask("youtube", ""), time.Minute) // suppressed by cooldown
	time.Sleep(30 * time.Millisecond)
	n.NotifyIfNeeded(offTask("youtube", ""), 2*time.Minute) // cooldown open, past delay

	if len(sink.sends) != 2 {
		t.Fatalf("sends = %d, want 2 (one suppressed)", len(sink.sends))
	}
	if !sink.sends[1].urgent {
		t.Error("alert after suppressed cycle should be urgent")
	}
}

func TestSinkFailureStillStartsCooldown(t *testing.T) {
	sink := &fakeSink{err: errors.New("notification center unavailable")}
	n := New(sink, 120*time.Second, time.Hour, discard())

	n.NotifyIfNeeded(offTask("twitter", ""), 0)
	n.NotifyIfNeeded(offTask("twitter", ""), 0)

	// Dispatch failed, but the cooldown still gates the next cycle to
	// avoid a retry storm.
	if len(sink.sends) != 1 {
		t.Fatalf("sink invocations = %d, want 1", len(sink.sends))
	}
}
