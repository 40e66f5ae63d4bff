// Package notify delivers user-visible messages such as "Widget source
// saved." or "Cannot parse Widget configuration".
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Level is the severity of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier receives user-visible messages.
type Notifier interface {
	Success(msg string)
	Info(msg string)
	Warning(msg string)
	Error(msg string)
}

// Message is one recorded notification.
type Message struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

// Discard drops every message.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Success(string) {}
func (discard) Info(string)    {}
func (discard) Warning(string) {}
func (discard) Error(string)   {}

// Log writes notifications to a structured logger.
type Log struct {
	Logger *slog.Logger
}

func (l Log) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l Log) log(level slog.Level, kind Level, msg string) {
	l.logger().Log(context.Background(), level, msg, "notification", string(kind))
}

func (l Log) Success(msg string) { l.log(slog.LevelInfo, LevelSuccess, msg) }
func (l Log) Info(msg string)    { l.log(slog.LevelInfo, LevelInfo, msg) }
func (l Log) Warning(msg string) { l.log(slog.LevelWarn, LevelWarning, msg) }
func (l Log) Error(msg string)   { l.log(slog.LevelError, LevelError, msg) }

var (
	successMark = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Render("✓")
	warningMark = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Render("⚠")
	errorMark   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Render("✗")
)

// Console prints notifications for a terminal user. Errors go to Err when
// it is set.
type Console struct {
	Out io.Writer
	Err io.Writer
}

func (c Console) Success(msg string) { fmt.Fprintf(c.Out, "%s %s\n", successMark, msg) }
func (c Console) Info(msg string)    { fmt.Fprintf(c.Out, "  %s\n", msg) }
func (c Console) Warning(msg string) { fmt.Fprintf(c.Out, "%s %s\n", warningMark, msg) }

func (c Console) Error(msg string) {
	w := c.Err
	if w == nil {
		w = c.Out
	}
	fmt.Fprintf(w, "%s %s\n", errorMark, msg)
}

// Recorder keeps every notification in memory. It is safe for concurrent
// use.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) add(level Level, msg string) {
	r.mu.Lock()
	r.messages = append(r.messages, Message{Level: level, Text: msg})
	r.mu.Unlock()
}

func (r *Recorder) Success(msg string) { r.add(LevelSuccess, msg) }
func (r *Recorder) Info(msg string)    { r.add(LevelInfo, msg) }
func (r *Recorder) Warning(msg string) { r.add(LevelWarning, msg) }
func (r *Recorder) Error(msg string)   { r.add(LevelError, msg) }

// Messages returns a copy of the recorded notifications.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Count returns how many notifications of level were recorded.
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m.Level == level {
			n++
		}
	}
	return n
}

// Drain returns the recorded notifications and clears the recorder.
func (r *Recorder) Drain() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.messages
	r.messages = nil
	return out
}
