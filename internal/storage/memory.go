package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"media_gallery/internal/models"
)

// MemoryStore keeps one gallery in process memory. It backs the "memory" storage
// driver and the tests, and mirrors MediaStore semantics including the unique
// external task id.
type MemoryStore struct {
	mu      sync.RWMutex
	kind    models.MediaKind
	records map[uuid.UUID]*models.MediaRecord
	byTask  map[string]uuid.UUID
}

func NewMemoryStore(kind models.MediaKind) *MemoryStore {
	return &MemoryStore{
		kind:    kind,
		records: make(map[uuid.UUID]*models.MediaRecord),
		byTask:  make(map[string]uuid.UUID),
	}
}

func (s *MemoryStore) Kind() models.MediaKind {
	return s.kind
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Insert adds rec as a new row.
func (s *MemoryStore) Insert(_ context.Context, rec *models.MediaRecord) error {
	const op = "storage.Insert"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; ok {
		return fmt.Errorf("%s: duplicate id %s", op, rec.ID)
	}
	if rec.ExternalTaskID != nil {
		if _, ok := s.byTask[*rec.ExternalTaskID]; ok {
			return fmt.Errorf("%s: %w", op, ErrDuplicateTask)
		}
		s.byTask[*rec.ExternalTaskID] = rec.ID
	}
	c := rec.Clone()
	if c.Status == "" {
		c.Status = models.StatusProcessing
	}
	s.records[rec.ID] = c
	return nil
}

func (s *MemoryStore) List(_ context.Context, f Filter) ([]*models.MediaRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.MediaRecord, 0)
	for _, r := range s.records {
		if f.Matches(r) {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if f.Order == OrderOldestFirst {
			a, b = b, a
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.String() > b.ID.String()
	})

	if f.Offset >= len(matched) {
		return []*models.MediaRecord{}, nil
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}

	out := make([]*models.MediaRecord, len(matched))
	for i, r := range matched {
		out[i] = r.Clone()
	}
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context, f Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, r := range s.records {
		if f.Matches(r) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*models.MediaRecord, error) {
	const op = "storage.Get"

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return r.Clone(), nil
}

func (s *MemoryStore) SoftDelete(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok || r.DeletedAt != nil {
		return false, nil
	}
	r.DeletedAt = &at
	r.UpdatedAt = at
	return true, nil
}

func (s *MemoryStore) Restore(_ context.Context, id uuid.UUID, at time.Time) (*models.MediaRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok || r.DeletedAt == nil {
		return nil, false, nil
	}
	r.DeletedAt = nil
	r.UpdatedAt = at
	return r.Clone(), true, nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return false, nil
	}
	if r.ExternalTaskID != nil {
		delete(s.byTask, *r.ExternalTaskID)
	}
	delete(s.records, id)
	return true, nil
}

func (s *MemoryStore) UpsertByTask(_ context.Context, rec *models.MediaRecord) (*models.MediaRecord, error) {
	const op = "storage.UpsertByTask"

	if rec.ExternalTaskID == nil {
		return nil, fmt.Errorf("%s: external task id is required", op)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byTask[*rec.ExternalTaskID]
	if !ok {
		c := rec.Clone()
		c.UpdatedAt = c.CreatedAt
		s.records[c.ID] = c
		s.byTask[*c.ExternalTaskID] = c.ID
		return c.Clone(), nil
	}

	existing := s.records[id]
	existing.Status = rec.Status
	if rec.URL != nil {
		existing.URL = cloneOptional(rec.URL)
	}
	if rec.Prompt != nil {
		existing.Prompt = cloneOptional(rec.Prompt)
	}
	if rec.Intent != nil {
		existing.Intent = cloneOptional(rec.Intent)
	}
	if rec.ModelName != nil {
		existing.ModelName = cloneOptional(rec.ModelName)
	}
	for k, v := range rec.Metadata {
		existing.Metadata[k] = v
	}
	existing.UpdatedAt = rec.CreatedAt
	return existing.Clone(), nil
}

func cloneOptional(s *string) *string {
	v := *s
	return &v
}
