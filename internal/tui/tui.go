package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"scripttimer/internal/scheduler"
)

type stage int

const (
	stageTarget stage = iota
	stagePolicy
	stageDuration
	stageTime
	stageRunning
)

var ErrUserQuit = errors.New("user quit")

// Controller is the part of the scheduler the TUI drives.
type Controller interface {
	SetTarget(path string) error
	Target() string
	Start(p scheduler.Policy) error
	Stop()
	Snapshot() scheduler.Snapshot
	Subscribe(buffer int) (<-chan scheduler.Event, func())
}

type Options struct {
	// Target pre-fills the path input. When it can be set, the form opens
	// on the policy list.
	Target  string
	Overlap scheduler.Overlap
}

// Run shows the form and status screen until the user quits, then stops
// the scheduler.
func Run(ctrl Controller, opts Options) error {
	events, unsubscribe := ctrl.Subscribe(64)
	defer unsubscribe()
	defer ctrl.Stop()

	m := newModel(ctrl, events, opts)
	program := tea.NewProgram(m, tea.WithAltScreen())
	final, err := program.Run()
	if err != nil {
		return err
	}

	var state model
	switch typed := final.(type) {
	case model:
		state = typed
	case *model:
		state = *typed
	default:
		return fmt.Errorf("unexpected model type")
	}
	if state.err != nil && !errors.Is(state.err, ErrUserQuit) {
		return state.err
	}
	return nil
}

type eventMsg scheduler.Event

type eventsClosedMsg struct{}

type tickMsg time.Time

func waitForEvent(events <-chan scheduler.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(e)
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type logLine struct {
	at   time.Time
	text string
}

const maxLogLines = 8

type model struct {
	stage   stage
	ctrl    Controller
	events  <-chan scheduler.Event
	overlap scheduler.Overlap
	now     func() time.Time

	kind       scheduler.PolicyKind
	daily      bool
	inputError string

	targetInput   textinput.Model
	searchInput   textinput.Model
	durationInput textinput.Model
	timeInput     textinput.Model

	items  []listItem
	all    []listItem
	cursor int
	offset int
	width  int
	height int

	log []logLine
	err error
}

func newModel(ctrl Controller, events <-chan scheduler.Event, opts Options) model {
	if opts.Overlap == "" {
		opts.Overlap = scheduler.OverlapAllow
	}

	target := textinput.New()
	target.Prompt = "Path: "
	target.Placeholder = "~/scripts/backup.sh"
	target.CharLimit = 1024

	search := textinput.New()
	search.Prompt = "Search: "
	search.Placeholder = "type to filter"
	search.CharLimit = 64

	duration := textinput.New()
	duration.Prompt = ""
	duration.Placeholder = "10 (minutes) or 90s, 1h30m"
	duration.CharLimit = 16

	timeInput := textinput.New()
	timeInput.Prompt = ""
	timeInput.Placeholder = "HH:MM"
	timeInput.CharLimit = 5

	m := model{
		ctrl:          ctrl,
		events:        events,
		overlap:       opts.Overlap,
		now:           time.Now,
		targetInput:   target,
		searchInput:   search,
		durationInput: duration,
		timeInput:     timeInput,
	}
	m.applyInputSizing()

	if value := strings.TrimSpace(opts.Target); value != "" {
		m.targetInput.SetValue(value)
		if err := ctrl.SetTarget(value); err == nil {
			m.startPolicyStage()
			return m
		}
		m.inputError = targetError(value)
	}
	m.startTargetStage()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForEvent(m.events), tick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msgTyped := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msgTyped.Width
		m.height = msgTyped.Height
		m.applyInputSizing()
		return m, nil
	case eventMsg:
		m.appendLog(scheduler.Event(msgTyped))
		return m, waitForEvent(m.events)
	case eventsClosedMsg:
		return m, nil
	case tickMsg:
		return m, tick()
	case tea.KeyMsg:
		switch msgTyped.String() {
		case "ctrl+c":
			m.err = ErrUserQuit
			return m, tea.Quit
		case "esc":
			return m.handleBack()
		}
	}

	switch m.stage {
	case stageTarget:
		return m.updateTarget(msg)
	case stagePolicy:
		return m.updateList(msg)
	case stageDuration:
		return m.updateDuration(msg)
	case stageTime:
		return m.updateTime(msg)
	case stageRunning:
		return m.updateRunning(msg)
	default:
		return m, nil
	}
}

func (m *model) appendLog(e scheduler.Event) {
	if e.Kind == scheduler.EventArmed || e.Message == "" {
		return
	}
	at := e.Time
	if at.IsZero() {
		at = m.now()
	}
	m.log = append(m.log, logLine{at: at, text: e.Message})
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

func (m *model) handleBack() (tea.Model, tea.Cmd) {
	switch m.stage {
	case stagePolicy:
		m.startTargetStage()
		return m, nil
	case stageDuration, stageTime:
		m.startPolicyStage()
		return m, nil
	case stageRunning:
		m.ctrl.Stop()
		m.startPolicyStage()
		return m, nil
	default:
		m.err = ErrUserQuit
		return m, tea.Quit
	}
}

func (m *model) updateTarget(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if ok && key.Type == tea.KeyEnter {
		value := strings.TrimSpace(m.targetInput.Value())
		if value == "" {
			m.inputError = "Enter the path of a script or program."
			return m, nil
		}
		if err := m.ctrl.SetTarget(value); err != nil {
			m.inputError = targetError(value)
			return m, nil
		}
		m.startPolicyStage()
		return m, nil
	}

	prev := m.targetInput.Value()
	var cmd tea.Cmd
	m.targetInput, cmd = m.targetInput.Update(msg)
	if m.targetInput.Value() != prev {
		m.inputError = ""
	}
	return m, cmd
}

func targetError(value string) string {
	return fmt.Sprintf("File not found: %s", value)
}

func (m *model) updateDuration(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if ok && key.Type == tea.KeyEnter {
		d, err := scheduler.ParseDuration(m.durationInput.Value())
		if err != nil {
			m.inputError = "Enter minutes (10) or a duration (90s, 1h30m)."
			return m, nil
		}
		policy := scheduler.CloseAfter(d)
		if m.kind == scheduler.PolicyRepeatEvery {
			policy = scheduler.RepeatEvery(d, m.overlap)
		}
		m.startPolicy(policy)
		return m, nil
	}

	prev := m.durationInput.Value()
	var cmd tea.Cmd
	m.durationInput, cmd = m.durationInput.Update(msg)
	if m.durationInput.Value() != prev {
		m.inputError = ""
	}
	return m, cmd
}

func (m *model) updateTime(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.timeInput, cmd = m.timeInput.Update(msg)
		return m, cmd
	}

	switch key.String() {
	case "q":
		m.err = ErrUserQuit
		return m, tea.Quit
	case "tab", "d":
		m.daily = !m.daily
		return m, nil
	case "enter":
		at, err := scheduler.ParseClock(m.timeInput.Value())
		if err != nil {
			m.inputError = "Enter time as HH:MM (24-hour)."
			return m, nil
		}
		m.startPolicy(scheduler.StartAt(at, m.daily))
		return m, nil
	}

	value, pos, changed := applyTimeMask(m.timeInput.Value(), m.timeInput.Position(), key)
	if changed {
		m.timeInput.SetValue(value)
		m.timeInput.SetCursor(pos)
		m.inputError = ""
	}
	return m, nil
}

func (m *model) updateRunning(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q":
		m.err = ErrUserQuit
		return m, tea.Quit
	case "s":
		m.ctrl.Stop()
	case "n":
		if !m.ctrl.Snapshot().Active {
			m.startPolicyStage()
		}
	}
	return m, nil
}

func (m *model) startPolicy(p scheduler.Policy) {
	if err := m.ctrl.Start(p); err != nil {
		m.inputError = err.Error()
		return
	}
	m.stage = stageRunning
	m.inputError = ""
	m.blurAll()
}

func (m *model) blurAll() {
	m.targetInput.Blur()
	m.searchInput.Blur()
	m.durationInput.Blur()
	m.timeInput.Blur()
}

func (m *model) startTargetStage() {
	m.stage = stageTarget
	m.blurAll()
	if current := m.ctrl.Target(); current != "" && strings.TrimSpace(m.targetInput.Value()) == "" {
		m.targetInput.SetValue(current)
	}
	m.targetInput.Focus()
	m.targetInput.CursorEnd()
}

func (m *model) startPolicyStage() {
	m.stage = stagePolicy
	m.inputError = ""
	m.blurAll()
	m.searchInput.Focus()
	m.setPolicyItems()
}

func (m *model) startDurationStage() {
	m.stage = stageDuration
	m.inputError = ""
	m.blurAll()
	m.durationInput.Focus()
	m.durationInput.CursorEnd()
}

func (m *model) startTimeStage() {
	m.stage = stageTime
	m.inputError = ""
	m.blurAll()
	m.timeInput.Focus()
	if strings.TrimSpace(m.timeInput.Value()) == "" || !isValidTime(m.timeInput.Value()) {
		m.timeInput.SetValue(normalizeTimeValue(m.now().Format("15:04")))
	} else {
		m.timeInput.SetValue(normalizeTimeValue(m.timeInput.Value()))
	}
	m.timeInput.SetCursor(0)
}

func (m *model) applyInputSizing() {
	width := renderWidth(m.width)
	m.targetInput.Width = width
	m.searchInput.Width = width
	m.durationInput.Width = width
	m.timeInput.Width = width
}
