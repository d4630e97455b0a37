// Package notify shows a desktop notification when a run finishes.
package notify

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"scripttimer/internal/logx"
	"scripttimer/internal/scheduler"
)

const title = "scripttimer"

// Message is a rendered notification.
type Message struct {
	Title    string
	Subtitle string
	Body     string
}

type Notifier struct {
	goos string
	log  logx.Logger
	run  func(ctx context.Context, name string, args ...string) error
}

func New(log logx.Logger) *Notifier {
	return &Notifier{
		goos: runtime.GOOS,
		log:  log.With(logx.String("component", "notify")),
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

// Run notifies on every exit or launch failure until ctx is done or events
// is closed.
func (n *Notifier) Run(ctx context.Context, events <-chan scheduler.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			msg, ok := MessageFromEvent(e)
			if !ok {
				continue
			}
			n.Send(ctx, msg)
		}
	}
}

func (n *Notifier) Send(ctx context.Context, msg Message) {
	name, args := n.command(msg)
	if err := n.run(ctx, name, args...); err != nil {
		n.log.Debug("notification failed", logx.String("command", name), logx.Err(err))
	}
}

func (n *Notifier) command(msg Message) (string, []string) {
	if n.goos == "darwin" {
		return "/usr/bin/osascript", []string{"-e", buildNotificationScript(msg)}
	}
	body := msg.Body
	if msg.Subtitle != "" {
		body = msg.Subtitle + ": " + body
	}
	return "notify-send", []string{"--app-name=" + title, msg.Title, body}
}

func MessageFromEvent(e scheduler.Event) (Message, bool) {
	name := filepath.Base(e.Target)
	switch e.Kind {
	case scheduler.EventExited:
		msg := Message{Title: title, Subtitle: "Run complete", Body: fmt.Sprintf("%s finished.", name)}
		switch {
		case e.Terminated:
			msg.Subtitle = "Run stopped"
			msg.Body = fmt.Sprintf("%s was terminated.", name)
		case e.ExitCode != 0:
			msg.Subtitle = "Run failed"
			msg.Body = fmt.Sprintf("%s exited with code %d.", name, e.ExitCode)
		}
		return msg, true
	case scheduler.EventLaunchFailed:
		body := "Run failed."
		if e.Err != nil && isMeaningfulError(e.Err.Error()) {
			body = e.Err.Error()
		}
		return Message{Title: title, Subtitle: "Launch failed", Body: body}, true
	default:
		return Message{}, false
	}
}

func buildNotificationScript(msg Message) string {
	body := truncateNotification(msg.Body, 140)
	if body == "" {
		body = "Run finished."
	}
	return fmt.Sprintf(
		`display notification "%s" with title "%s" subtitle "%s"`,
		escapeAppleScript(body),
		escapeAppleScript(msg.Title),
		escapeAppleScript(msg.Subtitle),
	)
}

func isMeaningfulError(err string) bool {
	err = strings.TrimSpace(err)
	if err == "" {
		return false
	}
	return !strings.HasPrefix(strings.ToLower(err), "exit status")
}

func truncateNotification(text string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= max {
		return string(runes)
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func escapeAppleScript(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, "\"", "\\\"")
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	return text
}
