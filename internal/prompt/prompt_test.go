package prompt

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/christopherklint97/focusd/internal/activity"
)

func TestParseBudgets(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []activity.TimeBudget
	}{
		{
			name:    "explicit window",
			content: "- youtube (max 15 min per 60 min)",
			want:    []activity.TimeBudget{{ActivityPattern: "youtube", MaxMinutes: 15, PerMinutes: 60}},
		},
		{
			name:    "default window",
			content: "- hacker news (max 10 min)",
			want:    []activity.TimeBudget{{ActivityPattern: "hacker news", MaxMinutes: 10, PerMinutes: 60}},
		},
		{
			name:    "star bullet and minutes unit",
			content: "* reddit (max 5 min per 30 minutes)",
			want:    []activity.TimeBudget{{ActivityPattern: "reddit", MaxMinutes: 5, PerMinutes: 30}},
		},
		{
			name:    "case insensitive",
			content: "- Twitter (MAX 5 MIN PER 120 MIN)",
			want:    []activity.TimeBudget{{ActivityPattern: "Twitter", MaxMinutes: 5, PerMinutes: 120}},
		},
		{
			name: "multiple budgets among prose",
			content: `# Focus rules
Allowed: coding, docs.
- youtube (max 15 min per 60 min)
Some prose in between.
- news sites (max 10 min)`,
			want: []activity.TimeBudget{
				{ActivityPattern: "youtube", MaxMinutes: 15, PerMinutes: 60},
				{ActivityPattern: "news sites", MaxMinutes: 10, PerMinutes: 60},
			},
		},
		{
			// A per-clause needs a numeric window; a bare "per hour"
			// keeps the whole line from parsing.
			name:    "bare per hour does not parse",
			content: "- youtube (max 15 min per hour)",
			want:    nil,
		},
		{
			name:    "plain bullet is not a budget",
			content: "- no social media during work hours",
			want:    nil,
		},
		{
			name:    "empty content",
			content: "",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseBudgets(tt.content)
			if len(got) != len(tt.want) {
				t.Fatalf("budgets = %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("budget[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLoaderMissingFile(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := NewLoader(filepath.Join(t.TempDir(), "missing.md"), logger)

	if l.Content() != fallbackRules {
		t.Errorf("content = %q, want fallback", l.Content())
	}
	if len(l.Budgets()) != 0 {
		t.Errorf("budgets = %v, want none", l.Budgets())
	}
}

func TestLoaderReadsFileAndBudgets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.md")
	content := "Stay on the compiler.\n- youtube (max 15 min per 60 min)\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := NewLoader(path, logger)

	if l.Content() != content {
		t.Errorf("content = %q", l.Content())
	}
	if len(l.Budgets()) != 1 {
		t.Fatalf("budgets = %v, want one", l.Budgets())
	}

	// Unmodified file: no reload.
	if l.ReloadIfChanged() {
		t.Error("ReloadIfChanged() = true for unmodified file")
	}
}
