package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/stock-alerts/internal/alert"
)

// MemoryAlertStore keeps alerts in process memory. Used in dev mode and in
// tests; the locking granularity is per recipient so read-state operations
// for one recipient serialize without blocking appends for others.
type MemoryAlertStore struct {
	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	records map[string][]alert.Record

	now func() time.Time
}

func NewMemoryAlertStore() *MemoryAlertStore {
	return &MemoryAlertStore{
		locks:   make(map[string]*sync.Mutex),
		records: make(map[string][]alert.Record),
		now:     time.Now,
	}
}

// recipientLock returns the mutex owning one recipient's slice.
func (s *MemoryAlertStore) recipientLock(recipientID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[recipientID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[recipientID] = lock
	}
	return lock
}

func (s *MemoryAlertStore) Append(ctx context.Context, record alert.Record) error {
	lock := s.recipientLock(record.RecipientID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	s.records[record.RecipientID] = append(s.records[record.RecipientID], record)
	s.mu.Unlock()
	return nil
}

func (s *MemoryAlertStore) List(ctx context.Context, recipientID string, limit int) ([]alert.Record, error) {
	lock := s.recipientLock(recipientID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	owned := append([]alert.Record(nil), s.records[recipientID]...)
	s.mu.Unlock()

	sort.SliceStable(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.After(owned[j].CreatedAt)
		}
		return owned[i].ID > owned[j].ID
	})

	limit = NormalizeLimit(limit)
	if len(owned) > limit {
		owned = owned[:limit]
	}
	return owned, nil
}

func (s *MemoryAlertStore) MarkRead(ctx context.Context, recipientID, alertID string) (bool, error) {
	lock := s.recipientLock(recipientID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	owned := s.records[recipientID]
	for i := range owned {
		if owned[i].ID != alertID {
			continue
		}
		if owned[i].ReadAt != nil {
			return false, nil
		}
		readAt := s.now()
		owned[i].ReadAt = &readAt
		return true, nil
	}
	return false, ErrNotFound
}

func (s *MemoryAlertStore) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	lock := s.recipientLock(recipientID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	readAt := s.now()
	count := 0
	owned := s.records[recipientID]
	for i := range owned {
		if owned[i].ReadAt == nil {
			owned[i].ReadAt = &readAt
			count++
		}
	}
	return count, nil
}

func (s *MemoryAlertStore) Clear(ctx context.Context, recipientID string) (int, error) {
	lock := s.recipientLock(recipientID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(s.records[recipientID])
	delete(s.records, recipientID)
	return count, nil
}
