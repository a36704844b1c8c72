// Package summary folds a day's activity log and app usage totals into a
// productivity score and ranks it against the user's own rolling history.
//
// Rankings (low to high):
//
//	waste of ATP < lazy < nothing special < productive < paul dirac
//
// The first scored day sets the baseline at "productive". Later days are
// ranked by the ratio of their score to the historical average, so the
// ranking is relative to the user's own baseline, never an absolute scale.
package summary

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/christopherklint97/focusd/internal/activity"
	"github.com/christopherklint97/focusd/internal/usage"
)

var rankings = []string{"waste of ATP", "lazy", "nothing special", "productive", "paul dirac"}

// Ratio of today's score to the historical average, mapped onto rankings.
// Below the first threshold is the bottom tier, at or above the last is the
// top tier.
var rankThresholds = []float64{0.4, 0.7, 1.1, 1.4}

const baselineDays = 30

type AppMinutes struct {
	App     string  `json:"app"`
	Minutes float64 `json:"minutes"`
}

// Summary is the per-day JSON document persisted under summaries/.
type Summary struct {
	Date           string       `json:"date"`
	DisplayDate    string       `json:"display_date"`
	Score          float64      `json:"score"`
	OnTaskPct      float64      `json:"on_task_pct"`
	OffTaskPct     float64      `json:"off_task_pct"`
	Checks         int          `json:"checks"`
	TrackedMinutes int          `json:"tracked_minutes"`
	TopApps        []AppMinutes `json:"top_apps"`
	Ranking        string       `json:"ranking"`
}

type Generator struct {
	logPath    string
	usageDir   string
	summaryDir string
}

func NewGenerator(dataDir, logPath string) *Generator {
	return &Generator{
		logPath:    logPath,
		usageDir:   filepath.Join(dataDir, "usage"),
		summaryDir: filepath.Join(dataDir, "summaries"),
	}
}

// Generate builds, ranks, and persists the summary for the given day.
// Regenerating with unchanged inputs and baseline overwrites the document
// with identical bytes.
func (g *Generator) Generate(day time.Time) (*Summary, error) {
	s := g.build(day)
	s.Ranking = g.rank(day, s.Score)
	if err := g.save(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (g *Generator) build(day time.Time) *Summary {
	records := activity.ReadDay(g.logPath, day)
	apps := usage.LoadDay(g.usageDir, day)

	total := len(records)
	var onTask, offTask int
	for _, r := range records {
		switch r.Status {
		case activity.StatusOnTask:
			onTask++
		case activity.StatusOffTask:
			offTask++
		}
	}

	var onTaskPct, offTaskPct float64
	if total > 0 {
		onTaskPct = float64(onTask) / float64(total) * 100
		offTaskPct = float64(offTask) / float64(total) * 100
	}

	// Breaks are neutral: excluded from both sides of the ratio. A day
	// with no productive samples scores 50.
	score := 50.0
	if productive := onTask + offTask; productive > 0 {
		score = float64(onTask) / float64(productive) * 100
	}

	var topApps []AppMinutes
	if len(apps) > 0 {
		names := make([]string, 0, len(apps))
		for name := range apps {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			if apps[names[i]] != apps[names[j]] {
				return apps[names[i]] > apps[names[j]]
			}
			return names[i] < names[j]
		})
		if len(names) > 5 {
			names = names[:5]
		}
		for _, name := range names {
			topApps = append(topApps, AppMinutes{App: name, Minutes: round1(apps[name] / 60)})
		}
	}

	trackedMinutes := 0
	if len(records) > 0 {
		first := records[0].Timestamp
		last := records[len(records)-1].Timestamp
		trackedMinutes = int(math.Round(last.Sub(first).Minutes()))
	}

	return &Summary{
		Date:           day.Format("2006-01-02"),
		DisplayDate:    day.Format("Monday, Jan 2"),
		Score:          round1(score),
		OnTaskPct:      round1(onTaskPct),
		OffTaskPct:     round1(offTaskPct),
		Checks:         total,
		TrackedMinutes: trackedMinutes,
		TopApps:        topApps,
	}
}

// rank maps the day's score onto a tier relative to the mean of up to 30
// prior persisted summaries. The baseline depends on which other days have
// been summarized, so ranking is not a pure function of the day's own data.
func (g *Generator) rank(day time.Time, score float64) string {
	dayStr := day.Format("2006-01-02")

	var past []float64
	for i := 0; i < baselineDays; i++ {
		s, err := g.Load(day.AddDate(0, 0, -i))
		if err != nil || s == nil {
			continue
		}
		if s.Date == dayStr || s.Score <= 0 {
			continue
		}
		past = append(past, s.Score)
	}

	if len(past) == 0 {
		return "productive"
	}

	var sum float64
	for _, v := range past {
		sum += v
	}
	avg := sum / float64(len(past))
	if avg == 0 {
		return "productive"
	}

	ratio := score / avg
	for i, threshold := range rankThresholds {
		if ratio < threshold {
			return rankings[i]
		}
	}
	return rankings[len(rankings)-1]
}

func (g *Generator) save(s *Summary) error {
	if err := os.MkdirAll(g.summaryDir, 0755); err != nil {
		return fmt.Errorf("creating summary directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	path := filepath.Join(g.summaryDir, s.Date+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

// Load returns the persisted summary for a day, or nil if none exists or
// the file is unreadable.
func (g *Generator) Load(day time.Time) (*Summary, error) {
	path := filepath.Join(g.summaryDir, day.Format("2006-01-02")+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, nil
	}
	return &s, nil
}

// Recent returns summaries for the last n days, most recent first. Days
// without a summary are skipped.
func (g *Generator) Recent(n int) []Summary {
	var out []Summary
	today := time.Now()
	for i := 0; i < n; i++ {
		s, err := g.Load(today.AddDate(0, 0, -i))
		if err != nil || s == nil {
			continue
		}
		out = append(out, *s)
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
