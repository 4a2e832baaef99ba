package shell

import (
	"sync"
	"time"
)

const defaultNoticeCapacity = 20

// Notice is a message shown to the user
type Notice struct {
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// NoticeBoard keeps the most recent notices for the web page to poll.
// It implements session.Notifier.
type NoticeBoard struct {
	mu       sync.Mutex
	notices  []Notice
	capacity int
	now      func() time.Time
}

// NewNoticeBoard creates a board holding up to capacity notices
func NewNoticeBoard(capacity int) *NoticeBoard {
	if capacity <= 0 {
		capacity = defaultNoticeCapacity
	}
	return &NoticeBoard{capacity: capacity, now: time.Now}
}

// Notify records a notice, dropping the oldest when full
func (b *NoticeBoard) Notify(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = append(b.notices, Notice{Message: message, Time: b.now()})
	if over := len(b.notices) - b.capacity; over > 0 {
		b.notices = append([]Notice(nil), b.notices[over:]...)
	}
}

// List returns the notices, oldest first
func (b *NoticeBoard) List() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Notice, len(b.notices))
	copy(out, b.notices)
	return out
}
