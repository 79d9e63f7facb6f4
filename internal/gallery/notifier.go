package gallery

import (
	"context"
	"time"

	"github.com/google/uuid"

	"media_gallery/internal/models"
)

type EventType string

const (
	EventSoftDeleted        EventType = "soft_deleted"
	EventRestored           EventType = "restored"
	EventPermanentlyDeleted EventType = "permanently_deleted"
)

// LifecycleEvent is emitted after a record changes lifecycle state.
type LifecycleEvent struct {
	Type      EventType        `json:"event"`
	MediaType models.MediaKind `json:"media_type"`
	ID        uuid.UUID        `json:"id"`
	OwnerID   string           `json:"user_id,omitempty"`
	At        time.Time        `json:"at"`
}

// Notifier delivers lifecycle events to an external audience.
type Notifier interface {
	Notify(ctx context.Context, ev LifecycleEvent) error
}

// notify never fails the calling operation; the mutation is already committed.
func (m *Manager) notify(ctx context.Context, typ EventType, id uuid.UUID, owner string, at time.Time) {
	if m.notifier == nil {
		return
	}
	if owner == "" {
		if rec, err := m.store.Get(ctx, id); err == nil {
			owner = rec.OwnerID
		}
	}
	ev := LifecycleEvent{Type: typ, MediaType: m.kind, ID: id, OwnerID: owner, At: at}
	if err := m.notifier.Notify(ctx, ev); err != nil {
		m.log.Warn().Err(err).Str("id", id.String()).Str("event", string(typ)).Msg("publish lifecycle event")
	}
}
