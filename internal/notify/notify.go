// Package notify carries transient user-facing notifications. Notifications
// are presentation side effects: store correctness never depends on them.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Severity classifies a notification for display.
type Severity string

// Notification severities.
const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is a single transient message.
type Notification struct {
	ID        string   `json:"id"`
	Severity  Severity `json:"severity"`
	Title     string   `json:"title"`
	Message   string   `json:"message,omitempty"`
	Timestamp int64    `json:"timestamp"` // unix ms
}

// Notifier receives notifications from components that produce side effects.
type Notifier interface {
	Notify(severity Severity, title, message string)
}

// Feed is a capped in-memory notification buffer served by the dashboard
// API. Oldest entries are evicted once the cap is reached.
type Feed struct {
	mu     sync.RWMutex
	items  []Notification
	cap    int
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewFeed creates a feed retaining at most cap notifications.
func NewFeed(cap int, logger *zap.SugaredLogger) *Feed {
	if cap <= 0 {
		cap = 100
	}
	return &Feed{cap: cap, logger: logger, now: time.Now}
}

// Notify appends a notification, evicting the oldest past the cap.
func (f *Feed) Notify(severity Severity, title, message string) {
	n := Notification{
		ID:        uuid.NewString(),
		Severity:  severity,
		Title:     title,
		Message:   message,
		Timestamp: f.now().UnixMilli(),
	}

	f.mu.Lock()
	f.items = append(f.items, n)
	if len(f.items) > f.cap {
		f.items = f.items[len(f.items)-f.cap:]
	}
	f.mu.Unlock()

	if f.logger != nil {
		f.logger.Infow("notification", "severity", severity, "title", title, "message", message)
	}
}

// Recent returns up to limit notifications, newest first. limit <= 0 returns
// the whole feed.
func (f *Feed) Recent(limit int) []Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()

	n := len(f.items)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Notification, limit)
	for i := 0; i < limit; i++ {
		out[i] = f.items[n-1-i]
	}
	return out
}

var _ Notifier = (*Feed)(nil)

// NopNotifier discards notifications. Used in tests.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(Severity, string, string) {}
