package journal

import (
	"context"
	"sync"

	"ticketgate/models"
)

const DefaultSize = 200

// Journal stores completed validation attempts.
type Journal interface {
	Record(ctx context.Context, attempt models.Attempt) error
	Recent(ctx context.Context, brand string, limit int) ([]models.Attempt, error)
	Close() error
}

// MemoryJournal keeps the last size attempts in a ring.
type MemoryJournal struct {
	mu    sync.Mutex
	buf   []models.Attempt
	next  int
	count int
}

func NewMemoryJournal(size int) *MemoryJournal {
	if size <= 0 {
		size = DefaultSize
	}
	return &MemoryJournal{buf: make([]models.Attempt, size)}
}

func (j *MemoryJournal) Record(ctx context.Context, attempt models.Attempt) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.buf[j.next] = attempt
	j.next = (j.next + 1) % len(j.buf)
	if j.count < len(j.buf) {
		j.count++
	}
	return nil
}

// Recent returns up to limit attempts recorded for brand, newest first. A
// limit <= 0 returns all of them.
func (j *MemoryJournal) Recent(ctx context.Context, brand string, limit int) ([]models.Attempt, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := []models.Attempt{}
	for i := 1; i <= j.count; i++ {
		if limit > 0 && len(out) == limit {
			break
		}
		a := j.buf[(j.next-i+len(j.buf))%len(j.buf)]
		if a.Brand == brand {
			out = append(out, a)
		}
	}
	return out, nil
}

func (j *MemoryJournal) Close() error { return nil }
