// Package prompt loads the user's focus-rules file and extracts time
// budgets from it. The file is re-read whenever its modification time
// advances, so rules can be edited while the daemon runs.
package prompt

import (
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/christopherklint97/focusd/internal/activity"
)

// Matches lines like "- youtube (max 15 min per 60 min)" or "- news (max 10 min)".
// A per-clause without a number does not parse; the window then defaults to
// 60 minutes via the optional group.
var budgetRe = regexp.MustCompile(`(?im)^[-*]\s+(.+?)\s*\(max\s+(\d+)\s+min(?:\s+per\s+(\d+)\s*(?:min(?:utes?)?|hr|hour))?\)`)

const fallbackRules = "No focus rules defined. Monitor all activity."

type Loader struct {
	path    string
	content string
	mtime   time.Time
	budgets []activity.TimeBudget
	logger  *slog.Logger
}

func NewLoader(path string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{path: path, logger: logger}
	l.load()
	return l
}

func (l *Loader) load() {
	data, err := os.ReadFile(l.path)
	if err != nil {
		l.content = fallbackRules
		l.budgets = nil
		return
	}

	if info, err := os.Stat(l.path); err == nil {
		l.mtime = info.ModTime()
	}
	l.content = string(data)
	l.budgets = ParseBudgets(l.content)

	l.logger.Debug("rules loaded", "path", l.path, "budgets", len(l.budgets))
}

// ParseBudgets extracts time budget rules from free-form rules text.
func ParseBudgets(content string) []activity.TimeBudget {
	var budgets []activity.TimeBudget
	for _, m := range budgetRe.FindAllStringSubmatch(content, -1) {
		maxMinutes, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		perMinutes := 60
		if m[3] != "" {
			if v, err := strconv.Atoi(m[3]); err == nil {
				perMinutes = v
			}
		}
		budgets = append(budgets, activity.TimeBudget{
			ActivityPattern: m[1],
			MaxMinutes:      maxMinutes,
			PerMinutes:      perMinutes,
		})
	}
	return budgets
}

// ReloadIfChanged re-reads the rules file if it was modified since the
// last load. Returns true if a reload happened.
func (l *Loader) ReloadIfChanged() bool {
	info, err := os.Stat(l.path)
	if err != nil {
		return false
	}

	if info.ModTime().After(l.mtime) {
		l.load()
		l.logger.Debug("rules reloaded", "path", l.path)
		return true
	}
	return false
}

func (l *Loader) Content() string {
	return l.content
}

func (l *Loader) Budgets() []activity.TimeBudget {
	return l.budgets
}
