// Package capture takes periodic screenshots of each display using the
// macOS screencapture and sips tools, keeping a small rolling buffer of
// resized JPEGs on disk.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

type Capturer struct {
	dir          string
	displays     int
	maxBuffered  int
	maxDimension int
	counter      int
	logger       *slog.Logger
}

func New(dir string, displays, maxBuffered, maxDimension int, logger *slog.Logger) (*Capturer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating screenshot directory: %w", err)
	}
	if displays < 1 {
		displays = 1
	}
	if maxBuffered < 1 {
		maxBuffered = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Capturer{
		dir:          dir,
		displays:     displays,
		maxBuffered:  maxBuffered,
		maxDimension: maxDimension,
		logger:       logger,
	}, nil
}

// Capture screenshots every display, resizes them, and returns the file
// paths. Displays that fail to capture are skipped; an empty slice means
// the cycle has nothing to analyze.
func (c *Capturer) Capture() []string {
	c.counter = (c.counter + 1) % c.maxBuffered
	var paths []string

	for display := 1; display <= c.displays; display++ {
		path := filepath.Join(c.dir, fmt.Sprintf("focus_%d_d%d.jpg", c.counter, display))

		if err := run("screencapture", "-x", "-D", strconv.Itoa(display), "-t", "jpg", path); err != nil {
			c.logger.Debug("screencapture failed", "display", display, "error", err)
			continue
		}
		if err := run("sips", "--resampleHeightWidthMax", strconv.Itoa(c.maxDimension), path); err != nil {
			c.logger.Debug("sips resize failed", "path", path, "error", err)
			// Unresized screenshots are still usable.
		}

		paths = append(paths, path)
	}

	return paths
}

// Cleanup removes the buffered screenshots.
func (c *Capturer) Cleanup() {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".jpg" {
			os.Remove(filepath.Join(c.dir, e.Name()))
		}
	}
}

func run(name string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, name, args...).Run()
}
