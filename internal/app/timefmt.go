package app

import (
	"fmt"
	"time"
)

// RelativeLabel renders t relative to now: "in 5m", "2h ago", "just now".
func RelativeLabel(t time.Time, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	if t.After(now) {
		delta := t.Sub(now)
		if delta < time.Minute {
			return "in <1m"
		}
		if delta < time.Hour {
			return fmt.Sprintf("in %dm", int(delta.Minutes()))
		}
		if delta < 24*time.Hour {
			return fmt.Sprintf("in %dh", int(delta.Hours()))
		}
		return fmt.Sprintf("in %dd", int(delta.Hours()/24))
	}

	delta := now.Sub(t)
	if delta < time.Minute {
		return "just now"
	}
	if delta < time.Hour {
		return fmt.Sprintf("%dm ago", int(delta.Minutes()))
	}
	if delta < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(delta.Hours()))
	}

	days := int(delta.Hours() / 24)
	if days < 30 {
		return fmt.Sprintf("%dd ago", days)
	}
	months := days / 30
	if months < 12 {
		return fmt.Sprintf("%dmo ago", months)
	}
	return fmt.Sprintf("%dy ago", months/12)
}

// Truncate shortens text to max runes, marking the cut with "...".
func Truncate(text string, max int) string {
	runes := []rune(text)
	if max <= 0 || len(runes) <= max {
		return text
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
