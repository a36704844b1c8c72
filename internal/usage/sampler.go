package usage

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// FrontmostApp asks System Events for the name of the frontmost
// application process. Returns "" on any failure so the tracker just skips
// the interval.
func FrontmostApp() string {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "osascript", "-e",
		`tell application "System Events" to get name of first application process whose frontmost is true`,
	).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
