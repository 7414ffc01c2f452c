package onboarding

import (
	"sync"

	"github.com/go-wa-onboarding/internal/domain"
)

// noticeRing keeps the most recent notices of a workspace.
type noticeRing struct {
	mu    sync.Mutex
	limit int
	items []domain.Notice
}

func newNoticeRing(limit int) *noticeRing {
	if limit <= 0 {
		limit = 20
	}
	return &noticeRing{limit: limit}
}

func (r *noticeRing) add(n domain.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
	if over := len(r.items) - r.limit; over > 0 {
		r.items = append(r.items[:0:0], r.items[over:]...)
	}
}

// list returns the notices newest first.
func (r *noticeRing) list() []domain.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Notice, len(r.items))
	for i, n := range r.items {
		out[len(r.items)-1-i] = n
	}
	return out
}
