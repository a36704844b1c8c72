package calendar

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeICS(t *testing.T, events ...string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//test//EN\r\n")
	for _, e := range events {
		b.WriteString(e)
	}
	b.WriteString("END:VCALENDAR\r\n")

	path := filepath.Join(t.TempDir(), "calendar.ics")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func icsEvent(summary string, start, end time.Time) string {
	const layout = "20060102T150405Z"
	return fmt.Sprintf("BEGIN:VEVENT\r\nUID:%s@test\r\nDTSTAMP:%s\r\nDTSTART:%s\r\nDTEND:%s\r\nSUMMARY:%s\r\nEND:VEVENT\r\n",
		summary, start.UTC().Format(layout), start.UTC().Format(layout), end.UTC().Format(layout), summary)
}

func TestFetchFiltersToWindow(t *testing.T) {
	now := time.Now()
	path := writeICS(t,
		icsEvent("standup", now.Add(-time.Hour), now.Add(-30*time.Minute)),
		icsEvent("next week", now.AddDate(0, 0, 7), now.AddDate(0, 0, 7).Add(time.Hour)),
	)

	events, err := Fetch(context.Background(), path, now.Add(-2*time.Hour), now)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Summary != "standup" {
		t.Errorf("summary = %q, want standup", events[0].Summary)
	}
}

func TestFetchMissingFile(t *testing.T) {
	_, err := Fetch(context.Background(), filepath.Join(t.TempDir(), "nope.ics"), time.Now(), time.Now())
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFormatContext(t *testing.T) {
	if got := FormatContext(nil); got != "" {
		t.Errorf("empty context = %q, want \"\"", got)
	}

	start := time.Date(2026, 8, 31, 10, 0, 0, 0, time.Local)
	got := FormatContext([]Event{{Summary: "design review", StartTime: start, EndTime: start.Add(time.Hour)}})
	if !strings.Contains(got, "design review") || !strings.Contains(got, "10:00") {
		t.Errorf("context = %q", got)
	}
}
