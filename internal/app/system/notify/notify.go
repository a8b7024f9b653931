// Package notify carries short user-facing messages ("toasts") from the code
// that produces them to whatever shows them: the next rendered page in the
// web app, or the terminal in the CLI.
package notify

import (
	"fmt"
	"io"
	"sync"
)

// Level is the severity of a notification.
type Level string

const (
	Success Level = "success"
	Info    Level = "info"
	Warning Level = "warning"
	Error   Level = "error"
)

// Notification is one message for the user.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier accepts notifications. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to Notifier.
type Func func(Notification)

func (f Func) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Notifier = Func(func(Notification) {})

// Queue buffers notifications until they are drained.
type Queue struct {
	mu    sync.Mutex
	items []Notification
	limit int
}

// NewQueue returns a queue keeping at most limit pending items (oldest are
// dropped first). limit <= 0 means unbounded.
func NewQueue(limit int) *Queue {
	return &Queue{limit: limit}
}

func (q *Queue) Notify(n Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, n)
	if q.limit > 0 && len(q.items) > q.limit {
		q.items = q.items[len(q.items)-q.limit:]
	}
}

// Drain returns and clears the pending notifications.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Len returns the number of pending notifications.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Writer prints notifications as lines on a stream.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

var symbols = map[Level]string{
	Success: "✓",
	Info:    "i",
	Warning: "!",
	Error:   "✗",
}

func (w *Writer) Notify(n Notification) {
	w.mu.Lock()
	defer w.mu.Unlock()
	sym, ok := symbols[n.Level]
	if !ok {
		sym = "-"
	}
	fmt.Fprintf(w.w, "[%s] %s\n", sym, n.Message)
}

// Helpers for the common levels.

func Successf(to Notifier, format string, args ...any) {
	to.Notify(Notification{Level: Success, Message: fmt.Sprintf(format, args...)})
}

func Infof(to Notifier, format string, args ...any) {
	to.Notify(Notification{Level: Info, Message: fmt.Sprintf(format, args...)})
}

func Warnf(to Notifier, format string, args ...any) {
	to.Notify(Notification{Level: Warning, Message: fmt.Sprintf(format, args...)})
}

func Errorf(to Notifier, format string, args ...any) {
	to.Notify(Notification{Level: Error, Message: fmt.Sprintf(format, args...)})
}
