package tui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"scripttimer/internal/app"
	"scripttimer/internal/scheduler"
)

var bannerLines = []string{
	"             _      _   _   _                ",
	"  ___ __ _ _(_)_ __| |_| |_(_)_ __  ___ _ _  ",
	" (_-</ _| '_| | '_ \\  _|  _| | '  \\/ -_) '_| ",
	" /__/\\__|_| |_| .__/\\__|\\__|_|_|_|_\\___|_|   ",
	"              |_|                            ",
	"",
}

func (m model) View() string {
	if m.err != nil && !errors.Is(m.err, ErrUserQuit) {
		return fmt.Sprintf("Error: %v\n", m.err)
	}

	var b strings.Builder
	lineWidth := renderWidth(m.width)
	for _, line := range bannerLines {
		b.WriteString(renderLine(line, lineWidth))
		b.WriteString("\n")
	}
	b.WriteString(renderLine("Run a script after a delay, on an interval, or at a time of day.", lineWidth))
	b.WriteString("\n")

	switch m.stage {
	case stageTarget:
		m.renderTarget(&b, lineWidth)
	case stageDuration:
		m.renderDuration(&b, lineWidth)
	case stageTime:
		m.renderTime(&b, lineWidth)
	case stageRunning:
		m.renderRunning(&b, lineWidth)
	default:
		m.renderList(&b, lineWidth)
	}
	return b.String()
}

func (m model) renderTarget(b *strings.Builder, width int) {
	b.WriteString(renderLine("Which script or program should run?", width))
	b.WriteString("\n")
	b.WriteString(m.targetInput.View())
	b.WriteString("\n")
	m.renderInputError(b, width)
	b.WriteString("enter confirm | esc quit\n")
}

func (m model) renderDuration(b *strings.Builder, width int) {
	m.renderContextHeader(b, width)
	switch m.kind {
	case scheduler.PolicyRepeatEvery:
		b.WriteString(renderLine(fmt.Sprintf("Repeat every (overlap: %s):", m.overlap), width))
	default:
		b.WriteString(renderLine("Close the script after:", width))
	}
	b.WriteString("\n")
	b.WriteString(m.durationInput.View())
	b.WriteString("\n")
	m.renderInputError(b, width)
	b.WriteString("enter start | esc back\n")
}

func (m model) renderTime(b *strings.Builder, width int) {
	m.renderContextHeader(b, width)
	mode := "[ ] repeat daily"
	if m.daily {
		mode = "[x] repeat daily"
	}
	b.WriteString(renderLine("Start at (24-hour HH:MM):", width))
	b.WriteString("\n")
	b.WriteString(m.timeInput.View())
	b.WriteString("\n")
	b.WriteString(renderLine(mode, width))
	b.WriteString("\n")
	m.renderInputError(b, width)
	b.WriteString("enter start | tab toggle daily | esc back | q quit\n")
}

func (m model) renderRunning(b *strings.Builder, width int) {
	snap := m.ctrl.Snapshot()
	now := m.now()

	b.WriteString(renderLine(fmt.Sprintf("Script: %s", app.HumanizePath(snap.Target)), width))
	b.WriteString("\n")
	if snap.Active {
		b.WriteString(renderLine(fmt.Sprintf("Policy: %s", snap.Policy), width))
		b.WriteString("\n")
		if !snap.NextRun.IsZero() {
			label := "Next run"
			if snap.Policy.Kind == scheduler.PolicyCloseAfter {
				label = "Closes"
			}
			line := fmt.Sprintf("%s: %s (%s)", label, snap.NextRun.Format("15:04:05"), app.RelativeLabel(snap.NextRun, now))
			b.WriteString(renderLine(line, width))
			b.WriteString("\n")
		}
	} else {
		b.WriteString(renderLine("Policy: none", width))
		b.WriteString("\n")
	}

	b.WriteString(strings.Repeat("-", max(10, min(width, 60))))
	b.WriteString("\n")
	if len(snap.Processes) == 0 {
		b.WriteString("No running processes.\n")
	} else {
		for _, p := range snap.Processes {
			line := fmt.Sprintf("  pid %-7d %-9s %s", p.PID, app.RelativeLabel(p.StartedAt, now), filepath.Base(p.Target))
			b.WriteString(renderLine(line, width))
			b.WriteString("\n")
		}
	}
	b.WriteString(strings.Repeat("-", max(10, min(width, 60))))
	b.WriteString("\n")

	b.WriteString(renderLine(fmt.Sprintf("Status: %s", snap.Status), width))
	b.WriteString("\n")
	for _, line := range m.log {
		b.WriteString(renderLine(fmt.Sprintf("  %s %s", line.at.Format("15:04:05"), line.text), width))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if snap.Active {
		b.WriteString("s stop | esc stop and change policy | q quit\n")
	} else {
		b.WriteString("n new policy | esc back | q quit\n")
	}
}

func (m model) renderList(b *strings.Builder, width int) {
	m.renderContextHeader(b, width)
	b.WriteString(renderLine("Select how to run it.", width))
	b.WriteString("\n")
	b.WriteString(m.searchInput.View())
	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", max(10, min(width, 60))))
	b.WriteString("\n")

	if len(m.items) == 0 {
		b.WriteString("No matches.\n")
	} else {
		start, end := m.visibleRange()
		for i := start; i < end; i++ {
			b.WriteString(renderItem(m.items[i], i == m.cursor, width))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString("up/down move | enter select | esc back\n")
}

func (m model) renderContextHeader(b *strings.Builder, width int) {
	if target := m.ctrl.Target(); target != "" {
		b.WriteString(renderLine(fmt.Sprintf("Script: %s", app.HumanizePath(target)), width))
		b.WriteString("\n")
	}
}

func (m model) renderInputError(b *strings.Builder, width int) {
	if m.inputError == "" {
		return
	}
	b.WriteString(renderLine(fmt.Sprintf("Error: %s", m.inputError), width))
	b.WriteString("\n")
}

func renderItem(item listItem, selected bool, width int) string {
	prefix := "  "
	if selected {
		prefix = "> "
	}
	line := fmt.Sprintf("%s%-13s %s", prefix, item.meta, item.title)
	return renderLine(line, width)
}

func renderLine(text string, width int) string {
	return truncateToWidth(text, width)
}

func truncateToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}

func renderWidth(width int) int {
	width = safeWidth(width)
	if width <= 1 {
		return width
	}
	return width - 1
}

func safeWidth(width int) int {
	if width <= 0 {
		return 80
	}
	return width
}
