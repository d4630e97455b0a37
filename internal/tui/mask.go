package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// timeSlots are the editable positions in "HH:MM".
var timeSlots = [...]int{0, 1, 3, 4}

func isValidTime(value string) bool {
	if value == "" {
		return false
	}
	_, err := time.Parse("15:04", value)
	return err == nil
}

// normalizeTimeValue coerces value into "HH:MM", taking the first four
// digits and padding with zeros.
func normalizeTimeValue(value string) string {
	if len(value) == 5 && value[2] == ':' && isTimeDigits(value) {
		return value
	}

	digits := make([]rune, 0, 4)
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
		if len(digits) == 4 {
			break
		}
	}
	for len(digits) < 4 {
		digits = append(digits, '0')
	}
	return fmt.Sprintf("%c%c:%c%c", digits[0], digits[1], digits[2], digits[3])
}

// applyTimeMask edits a fixed "HH:MM" value in overwrite mode. It reports
// whether key was handled.
func applyTimeMask(value string, pos int, key tea.KeyMsg) (string, int, bool) {
	value = normalizeTimeValue(value)
	pos = snapToSlot(pos)

	switch key.Type {
	case tea.KeyRunes:
		changed := false
		for _, r := range key.Runes {
			if r < '0' || r > '9' {
				continue
			}
			value = setTimeDigit(value, pos, r)
			pos = timeNextPos(pos)
			changed = true
		}
		return value, pos, changed
	case tea.KeyLeft:
		return value, timePrevPos(pos), true
	case tea.KeyRight:
		return value, timeNextPos(pos), true
	case tea.KeyHome:
		return value, timeSlots[0], true
	case tea.KeyEnd:
		return value, timeSlots[len(timeSlots)-1], true
	case tea.KeyBackspace:
		pos = timePrevPos(pos)
		return setTimeDigit(value, pos, '0'), pos, true
	case tea.KeyDelete:
		return setTimeDigit(value, pos, '0'), pos, true
	case tea.KeyCtrlU:
		return "00:00", timeSlots[0], true
	}
	return value, pos, false
}

// snapToSlot moves pos onto the first editable slot at or after it, or the
// last slot when pos is past the end.
func snapToSlot(pos int) int {
	for _, slot := range timeSlots {
		if pos <= slot {
			return slot
		}
	}
	return timeSlots[len(timeSlots)-1]
}

func timeNextPos(pos int) int {
	for _, slot := range timeSlots {
		if slot > pos {
			return slot
		}
	}
	return timeSlots[len(timeSlots)-1]
}

func timePrevPos(pos int) int {
	for i := len(timeSlots) - 1; i >= 0; i-- {
		if timeSlots[i] < pos {
			return timeSlots[i]
		}
	}
	return timeSlots[0]
}

func setTimeDigit(value string, pos int, digit rune) string {
	runes := []rune(normalizeTimeValue(value))
	if pos < 0 || pos >= len(runes) || pos == 2 {
		return string(runes)
	}
	runes[pos] = digit
	return string(runes)
}

func isTimeDigits(value string) bool {
	if len(value) != 5 {
		return false
	}
	for i, r := range value {
		if i == 2 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
