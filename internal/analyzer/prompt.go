package analyzer

import (
	"fmt"
	"strings"
)

const systemPromptTemplate = `You are focusd, an AI productivity monitor. You analyze screenshots of a user's screen to determine if they are staying on task.

## User's Focus Rules
%s

## Recent Activity History
%s
%s
## Your Task
Analyze the screenshot and determine if the user is on-task, off-task, or on a break.

Consider:
- What application/website is visible
- Whether it matches the allowed/blocked activities above
- The recent activity history (are they in a streak of off-task behavior?)
- Time budget limits if applicable
- Scheduled meetings count as being on task
- Break policies

Respond with JSON: status (on_task, off_task, or break), a brief
activity_description, confidence between 0 and 1, brief reasoning, and an
optional suggestion if the user is off-task (empty string otherwise).`

func buildSystemPrompt(rules, history, calendarContext string) string {
	if history == "" {
		history = "No recent activity recorded yet."
	}

	calendarSection := ""
	if calendarContext != "" {
		calendarSection = fmt.Sprintf("\n## Today's Calendar\n%s\n", calendarContext)
	}

	return fmt.Sprintf(systemPromptTemplate, strings.TrimSpace(rules), history, calendarSection)
}

func buildUserPrompt(screenshotCount int) string {
	if screenshotCount > 1 {
		return "Analyze these screenshots (one per display). Respond with JSON only."
	}
	return "Analyze this screenshot. Respond with JSON only."
}
