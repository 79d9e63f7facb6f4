// internal/models/models.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// MediaKind selects the gallery a record belongs to. Each kind lives in its own table.
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

// Statuses reported by the generation provider. Other provider values are stored as-is.
const (
	StatusProcessing = "PROCESSING"
	StatusSucceeded  = "SUCCEEDED"
	StatusFailed     = "FAILED"
)

func (k MediaKind) Table() string {
	return string(k) + "_gallery"
}

type MediaRecord struct {
	ID             uuid.UUID      `db:"id"`
	OwnerID        string         `db:"user_id"`
	URL            *string        `db:"url"`
	Prompt         *string        `db:"prompt"`
	Intent         *string        `db:"intent"`
	ModelName      *string        `db:"model_name"`
	ExternalTaskID *string        `db:"external_task_id"`
	Status         string         `db:"status"` // PROCESSING, SUCCEEDED, FAILED, ...
	Metadata       map[string]any `db:"metadata"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
	DeletedAt      *time.Time     `db:"deleted_at"` // nil while active
}

func (r *MediaRecord) IsDeleted() bool {
	return r.DeletedAt != nil
}

// Clone returns a copy that shares no pointers with r.
func (r *MediaRecord) Clone() *MediaRecord {
	c := *r
	c.URL = cloneString(r.URL)
	c.Prompt = cloneString(r.Prompt)
	c.Intent = cloneString(r.Intent)
	c.ModelName = cloneString(r.ModelName)
	c.ExternalTaskID = cloneString(r.ExternalTaskID)
	if r.DeletedAt != nil {
		t := *r.DeletedAt
		c.DeletedAt = &t
	}
	c.Metadata = make(map[string]any, len(r.Metadata))
	for k, v := range r.Metadata {
		c.Metadata[k] = v
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
