package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/christopherklint97/focusd/internal/activity"
	"github.com/christopherklint97/focusd/internal/config"
)

type fakeProvider struct {
	result *activity.Result
	err    error
	delay  time.Duration
	calls  int
}

func (p *fakeProvider) Analyze(ctx context.Context, screenshots []string, rules, history, calendarContext string) (*activity.Result, error) {
	p.calls++
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.err != nil {
		return nil, p.err
	}
	r := *p.result
	r.Timestamp = time.Now()
	return &r, nil
}

type fakeSink struct {
	sends int
}

func (s *fakeSink) Send(title, message string, urgent bool) error {
	s.sends++
	return nil
}

func testDaemon(t *testing.T, provider *fakeProvider, sink *fakeSink) *Daemon {
	return testDaemonWithSampler(t, provider, sink, func() string { return "" })
}

func testDaemonWithSampler(t *testing.T, provider *fakeProvider, sink *fakeSink, sampler func() string) *Daemon {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	if err := config.EnsureConfigDir(); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.RulesFile = filepath.Join(t.TempDir(), "rules.md")
	cfg.Screenshot.Dir = filepath.Join(t.TempDir(), "shots")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d, err := New(&cfg, provider, sink, sampler, logger)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestCycleSkipsWithoutScreenshot(t *testing.T) {
	provider := &fakeProvider{}
	d := testDaemon(t, provider, &fakeSink{})

	d.runCycle()

	if provider.calls != 0 {
		t.Errorf("provider calls = %d, want 0", provider.calls)
	}
}

func TestCycleRecordsAndNotifies(t *testing.T) {
	provider := &fakeProvider{result: &activity.Result{
		Status:      activity.StatusOffTask,
		Description: "scrolling twitter",
		Confidence:  0.9,
	}}
	sink := &fakeSink{}
	d := testDaemon(t, provider, sink)

	d.latestShots = []string{"fake.jpg"}
	d.runCycle()

	if provider.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", provider.calls)
	}
	if got := d.Tracker().History(10); len(got) != 1 {
		t.Fatalf("history = %d records, want 1", len(got))
	}
	if sink.sends != 1 {
		t.Errorf("alerts sent = %d, want 1", sink.sends)
	}

	status := d.GetStatus()
	if status.State != "off_task" || status.Activity != "scrolling twitter" {
		t.Errorf("status = %+v", status)
	}
}

func TestCycleDiscardsFailedAnalysis(t *testing.T) {
	provider := &fakeProvider{err: errors.New("model unavailable")}
	sink := &fakeSink{}
	d := testDaemon(t, provider, sink)

	d.latestShots = []string{"fake.jpg"}
	d.runCycle()

	if got := d.Tracker().History(10); len(got) != 0 {
		t.Errorf("history = %d records, want 0 (discarded)", len(got))
	}
	if sink.sends != 0 {
		t.Errorf("alerts sent = %d, want 0", sink.sends)
	}
}

// Run must not return until the shutdown persistence is done: a caller
// that exits when Run returns would otherwise drop the usage totals and
// daily summary whenever the sampler is slow.
func TestRunWaitsForShutdownPersistence(t *testing.T) {
	sampler := func() string {
		time.Sleep(150 * time.Millisecond)
		return "Terminal"
	}
	d := testDaemonWithSampler(t, &fakeProvider{}, &fakeSink{}, sampler)

	done := make(chan struct{})
	go func() {
		d.Run()
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	d.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}

	dataDir, err := d.cfg.DataDir()
	if err != nil {
		t.Fatal(err)
	}
	summaryPath := filepath.Join(dataDir, "summaries", time.Now().Format("2006-01-02")+".json")
	if _, err := os.Stat(summaryPath); err != nil {
		t.Errorf("summary not written by the time Run returned: %v", err)
	}
	usagePath := filepath.Join(dataDir, "usage", time.Now().Format("2006-01-02")+".json")
	if _, err := os.Stat(usagePath); err != nil {
		t.Errorf("usage totals not written by the time Run returned: %v", err)
	}

	if status := d.GetStatus(); status.Running || status.State != "stopped" {
		t.Errorf("status after Run = %+v, want stopped", status)
	}
}

// An analysis cycle in flight when Stop is called completes its record,
// and the stopped status is still the final snapshot.
func TestStoppedStatusOutlivesInFlightCycle(t *testing.T) {
	provider := &fakeProvider{
		result: &activity.Result{Status: activity.StatusOnTask, Description: "coding"},
		delay:  100 * time.Millisecond,
	}
	d := testDaemon(t, provider, &fakeSink{})
	d.latestShots = []string{"fake.jpg"}

	done := make(chan struct{})
	go func() {
		d.Run()
		close(done)
	}()

	time.Sleep(30 * time.Millisecond) // cycle now blocked in the provider
	d.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}

	if got := d.Tracker().History(10); len(got) != 1 {
		t.Errorf("history = %d records, want 1 (in-flight cycle completes)", len(got))
	}
	if status := d.GetStatus(); status.Running || status.State != "stopped" {
		t.Errorf("status after Run = %+v, want stopped", status)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	d := testDaemon(t, &fakeProvider{}, &fakeSink{})
	d.running.Store(true)

	d.Stop()
	d.Stop() // second stop is a no-op
	if d.running.Load() {
		t.Error("daemon still marked running after Stop")
	}
}
