// Package usage accumulates seconds of frontmost-application time per day.
// The sampler that names the current app is injected; totals are persisted
// as one JSON document per day so stats survive restarts.
package usage

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Sampler reports the name of the frontmost application, or "" when it
// cannot be determined.
type Sampler func() string

// Long gaps between polls (machine asleep, sampler stalled) are capped so
// one poll can't attribute an hour to whatever app happened to be frontmost.
const maxElapsed = 60 * time.Second

type dayFile struct {
	Date string             `json:"date"`
	Apps map[string]float64 `json:"apps"`
}

type Tracker struct {
	mu       sync.Mutex
	today    map[string]float64 // app name -> accumulated seconds
	date     string
	lastApp  string
	lastPoll time.Time

	dir      string
	sampler  Sampler
	interval time.Duration
	logger   *slog.Logger
}

func NewTracker(dataDir string, sampler Sampler, interval time.Duration, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{
		today:    make(map[string]float64),
		date:     todayStr(),
		dir:      filepath.Join(dataDir, "usage"),
		sampler:  sampler,
		interval: interval,
		logger:   logger,
	}
	t.load()
	return t
}

// Poll samples the frontmost app and credits the elapsed interval to the
// previously sampled app. Called once per capture tick.
func (t *Tracker) Poll() {
	now := time.Now()
	today := todayStr()

	t.mu.Lock()
	rollover := today != t.date
	t.mu.Unlock()
	if rollover {
		t.persist()
		t.mu.Lock()
		t.today = make(map[string]float64)
		t.date = today
		t.lastApp = ""
		t.lastPoll = time.Time{}
		t.mu.Unlock()
	}

	app := t.sampler()
	if app == "" {
		t.mu.Lock()
		t.lastPoll = now
		t.mu.Unlock()
		return
	}

	t.mu.Lock()
	if t.lastApp != "" && !t.lastPoll.IsZero() {
		elapsed := now.Sub(t.lastPoll)
		if elapsed > maxElapsed {
			elapsed = maxElapsed
		}
		t.today[t.lastApp] += elapsed.Seconds()
	}
	t.lastApp = app
	t.lastPoll = now
	t.mu.Unlock()

	// Opportunistic save roughly every five minutes.
	if now.Unix()%300 < int64(t.interval.Seconds()) {
		t.persist()
	}
}

// Stats returns today's totals including the interval credited to the app
// currently in front, sorted by accumulated seconds descending.
func (t *Tracker) Stats() []AppSeconds {
	t.mu.Lock()
	snapshot := make(map[string]float64, len(t.today))
	for app, secs := range t.today {
		snapshot[app] = secs
	}
	if t.lastApp != "" && !t.lastPoll.IsZero() {
		elapsed := time.Since(t.lastPoll)
		if elapsed > maxElapsed {
			elapsed = maxElapsed
		}
		snapshot[t.lastApp] += elapsed.Seconds()
	}
	t.mu.Unlock()

	out := make([]AppSeconds, 0, len(snapshot))
	for app, secs := range snapshot {
		out = append(out, AppSeconds{App: app, Seconds: secs})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seconds != out[j].Seconds {
			return out[i].Seconds > out[j].Seconds
		}
		return out[i].App < out[j].App
	})
	return out
}

type AppSeconds struct {
	App     string
	Seconds float64
}

// Save captures the final in-flight interval and flushes to disk. Call on
// shutdown.
func (t *Tracker) Save() {
	t.Poll()
	t.persist()
}

func (t *Tracker) persist() {
	t.mu.Lock()
	data := dayFile{Date: t.date, Apps: make(map[string]float64, len(t.today))}
	for app, secs := range t.today {
		data.Apps[app] = secs
	}
	t.mu.Unlock()

	if err := os.MkdirAll(t.dir, 0755); err != nil {
		t.logger.Warn("usage dir create failed", "error", err)
		return
	}
	buf, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		t.logger.Warn("usage encode failed", "error", err)
		return
	}
	path := filepath.Join(t.dir, data.Date+".json")
	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.logger.Warn("usage write failed", "path", path, "error", err)
	}
}

func (t *Tracker) load() {
	path := filepath.Join(t.dir, t.date+".json")
	buf, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var data dayFile
	if err := json.Unmarshal(buf, &data); err != nil {
		return
	}
	if data.Date != t.date {
		return
	}
	t.mu.Lock()
	for app, secs := range data.Apps {
		t.today[app] = secs
	}
	t.mu.Unlock()
}

// LoadDay reads the persisted usage totals for a day from dir. A missing
// or corrupt file yields an empty map.
func LoadDay(dir string, day time.Time) map[string]float64 {
	path := filepath.Join(dir, day.Format("2006-01-02")+".json")
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var data dayFile
	if err := json.Unmarshal(buf, &data); err != nil {
		return nil
	}
	return data.Apps
}

func todayStr() string {
	return time.Now().Format("2006-01-02")
}
