package host

import (
	"log/slog"
	"sync"
)

// Overlay collects notifications like the in-game overlay does and mirrors
// them to the log.
type Overlay struct {
	mu       sync.Mutex
	log      *slog.Logger
	messages []string
	limit    int
	// OnNotify is called for every message, e.g. to print it
	OnNotify func(string)
}

func NewOverlay(limit int, log *slog.Logger) *Overlay {
	if log == nil {
		log = slog.Default()
	}
	if limit <= 0 {
		limit = 20
	}
	return &Overlay{log: log, limit: limit}
}

func (o *Overlay) Notify(message string) {
	o.mu.Lock()
	o.messages = append(o.messages, message)
	if len(o.messages) > o.limit {
		o.messages = o.messages[len(o.messages)-o.limit:]
	}
	hook := o.OnNotify
	o.mu.Unlock()

	o.log.Info("overlay: notification", "message", message)
	if hook != nil {
		hook(message)
	}
}

// Messages returns the most recent notifications, oldest first
func (o *Overlay) Messages() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.messages))
	copy(out, o.messages)
	return out
}
