package analyzer

import (
	"context"

	"github.com/christopherklint97/focusd/internal/activity"
)

// Provider classifies what the user is doing from screenshots plus textual
// context. Implementations return (nil, error) when no usable
// classification was produced; the caller skips the cycle and tries again
// with fresh input.
type Provider interface {
	Analyze(ctx context.Context, screenshots []string, rules, history, calendarContext string) (*activity.Result, error)
}
