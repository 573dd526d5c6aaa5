package events

import (
	"sync"
	"time"
)

// Notice is one human-readable status message for the presentation layer,
// the equivalent of the kiosk's transient on-screen toasts.
type Notice struct {
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// NoticeLog keeps a bounded, newest-first log of notices.
type NoticeLog struct {
	mu      sync.Mutex
	notices []Notice
	limit   int
}

func NewNoticeLog(limit int) *NoticeLog {
	if limit <= 0 {
		limit = 50
	}
	return &NoticeLog{limit: limit}
}

// Add pushes a message to the front, dropping the oldest beyond the limit.
func (l *NoticeLog) Add(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.notices = append([]Notice{{Message: message, CreatedAt: time.Now()}}, l.notices...)
	if len(l.notices) > l.limit {
		l.notices = l.notices[:l.limit]
	}
}

// List returns a copy of the retained notices, newest first.
func (l *NoticeLog) List() []Notice {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Notice, len(l.notices))
	copy(out, l.notices)
	return out
}
