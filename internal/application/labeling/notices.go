package labeling

import (
	"slices"
	"sync"
	"time"

	"github.com/erp/labelstation/internal/domain/labeling"
)

const defaultNoticeLimit = 50

// NoticeBoard keeps the latest operator notices in memory
type NoticeBoard struct {
	mu      sync.Mutex
	limit   int
	notices []labeling.Notice
}

// NewNoticeBoard creates a notice board holding at most limit notices
func NewNoticeBoard(limit int) *NoticeBoard {
	if limit <= 0 {
		limit = defaultNoticeLimit
	}
	return &NoticeBoard{limit: limit}
}

// Notify implements labeling.Notifier
func (b *NoticeBoard) Notify(notice labeling.Notice) {
	if notice.CreatedAt.IsZero() {
		notice.CreatedAt = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = append(b.notices, notice)
	if over := len(b.notices) - b.limit; over > 0 {
		b.notices = slices.Delete(b.notices, 0, over)
	}
}

// List returns the notices, newest first
func (b *NoticeBoard) List() []labeling.Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]labeling.Notice, len(b.notices))
	copy(out, b.notices)
	slices.Reverse(out)
	return out
}

var _ labeling.Notifier = (*NoticeBoard)(nil)
