package gallery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"media_gallery/internal/metrics"
	"media_gallery/internal/models"
	"media_gallery/internal/storage"
)

// Store is the persistence contract a Manager needs. storage.MediaStore and
// storage.MemoryStore both satisfy it.
type Store interface {
	Kind() models.MediaKind
	List(ctx context.Context, f storage.Filter) ([]*models.MediaRecord, error)
	Count(ctx context.Context, f storage.Filter) (int64, error)
	Get(ctx context.Context, id uuid.UUID) (*models.MediaRecord, error)
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	Restore(ctx context.Context, id uuid.UUID, at time.Time) (*models.MediaRecord, bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	UpsertByTask(ctx context.Context, rec *models.MediaRecord) (*models.MediaRecord, error)
}

// Manager runs the lifecycle of one media kind: listing, counting, soft delete,
// restore and permanent delete.
type Manager struct {
	store    Store
	kind     models.MediaKind
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time
}

type Option func(*Manager)

// WithNotifier publishes lifecycle events after successful mutations.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(store Store, log zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		kind:  store.Kind(),
		log:   log.With().Str("component", "gallery").Str("media_type", string(store.Kind())).Logger(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Kind() models.MediaKind {
	return m.kind
}

// ListActive returns the owner's records that are not soft-deleted, newest first.
// A non-empty status additionally restricts the listing to that status.
func (m *Manager) ListActive(ctx context.Context, ownerID string, page Page, status string) ([]*models.MediaRecord, error) {
	const op = "gallery.ListActive"

	ownerID, err := RequireOwner(ownerID)
	if err != nil {
		return nil, err
	}
	records, err := m.store.List(ctx, storage.Filter{
		OwnerID: ownerID,
		State:   storage.StateActive,
		Status:  strings.TrimSpace(status),
		Limit:   page.Limit,
		Offset:  page.Offset,
	})
	m.observe("list_active", err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return records, nil
}

// ListDeleted returns the owner's soft-deleted records, newest first.
func (m *Manager) ListDeleted(ctx context.Context, ownerID string, page Page) ([]*models.MediaRecord, error) {
	const op = "gallery.ListDeleted"

	ownerID, err := RequireOwner(ownerID)
	if err != nil {
		return nil, err
	}
	records, err := m.store.List(ctx, storage.Filter{
		OwnerID: ownerID,
		State:   storage.StateDeleted,
		Limit:   page.Limit,
		Offset:  page.Offset,
	})
	m.observe("list_deleted", err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return records, nil
}

// CountForOwner counts every record of the owner, active and soft-deleted.
func (m *Manager) CountForOwner(ctx context.Context, ownerID string) (int64, error) {
	const op = "gallery.CountForOwner"

	ownerID, err := RequireOwner(ownerID)
	if err != nil {
		return 0, err
	}
	n, err := m.store.Count(ctx, storage.Filter{OwnerID: ownerID})
	m.observe("count", err)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// Get returns the record whatever its lifecycle state.
func (m *Manager) Get(ctx context.Context, id string) (*models.MediaRecord, error) {
	const op = "gallery.Get"

	uid, err := m.parseID(id)
	if err != nil {
		return nil, err
	}
	rec, err := m.store.Get(ctx, uid)
	if err != nil {
		err = m.storeErr(op, id, err)
	}
	m.observe("get", err)
	return rec, err
}

// SoftDelete marks an active record as deleted. A missing or already deleted
// record yields ErrNotFound.
func (m *Manager) SoftDelete(ctx context.Context, id string) error {
	const op = "gallery.SoftDelete"

	uid, err := m.parseID(id)
	if err != nil {
		return err
	}
	at := m.now()
	ok, err := m.store.SoftDelete(ctx, uid, at)
	if err == nil && !ok {
		err = fmt.Errorf("%w: %s %s not found or already deleted", ErrNotFound, m.kind, id)
	} else if err != nil {
		err = fmt.Errorf("%s: %w", op, err)
	}
	m.observe("soft_delete", err)
	if err != nil {
		return err
	}

	m.log.Info().Str("id", id).Msg("record soft-deleted")
	m.notify(ctx, EventSoftDeleted, uid, "", at)
	return nil
}

// Restore clears the deletion mark and returns the restored record. Restoring a
// record that is not deleted yields ErrInvalidState and leaves it unchanged.
func (m *Manager) Restore(ctx context.Context, id string) (*models.MediaRecord, error) {
	const op = "gallery.Restore"

	uid, err := m.parseID(id)
	if err != nil {
		return nil, err
	}
	at := m.now()
	rec, ok, err := m.store.Restore(ctx, uid, at)
	if err != nil {
		err = fmt.Errorf("%s: %w", op, err)
	} else if !ok {
		// Either the row is gone or it is active; only a lookup can tell.
		if _, getErr := m.store.Get(ctx, uid); getErr != nil {
			err = m.storeErr(op, id, getErr)
		} else {
			err = fmt.Errorf("%w: %s %s is not deleted", ErrInvalidState, m.kind, id)
		}
	}
	m.observe("restore", err)
	if err != nil {
		return nil, err
	}

	m.log.Info().Str("id", id).Msg("record restored")
	m.notify(ctx, EventRestored, uid, rec.OwnerID, at)
	return rec, nil
}

// PermanentDelete removes the record from the store for good.
func (m *Manager) PermanentDelete(ctx context.Context, id string) error {
	const op = "gallery.PermanentDelete"

	uid, err := m.parseID(id)
	if err != nil {
		return err
	}

	var owner string
	if m.notifier != nil {
		if rec, getErr := m.store.Get(ctx, uid); getErr == nil {
			owner = rec.OwnerID
		}
	}

	ok, err := m.store.Delete(ctx, uid)
	if err == nil && !ok {
		err = fmt.Errorf("%w: %s %s", ErrNotFound, m.kind, id)
	} else if err != nil {
		err = fmt.Errorf("%s: %w", op, err)
	}
	m.observe("permanent_delete", err)
	if err != nil {
		return err
	}

	m.log.Info().Str("id", id).Msg("record permanently deleted")
	m.notify(ctx, EventPermanentlyDeleted, uid, owner, m.now())
	return nil
}

// RecordInput describes a generation job as reported by the external pipeline.
type RecordInput struct {
	OwnerID   string
	TaskID    string
	Status    string
	URL       string
	Prompt    string
	Intent    string
	ModelName string
	Metadata  map[string]any
}

// Record creates the record for a generation task, or updates the existing one
// keyed by its task id. It never changes the deletion mark.
func (m *Manager) Record(ctx context.Context, in RecordInput) (*models.MediaRecord, error) {
	const op = "gallery.Record"

	owner, err := RequireOwner(in.OwnerID)
	if err != nil {
		return nil, err
	}
	taskID := strings.TrimSpace(in.TaskID)
	if taskID == "" {
		return nil, fmt.Errorf("%w: task_id is required", ErrValidation)
	}
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = models.StatusProcessing
	}
	metadata := in.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	now := m.now()
	rec, err := m.store.UpsertByTask(ctx, &models.MediaRecord{
		ID:             uuid.New(),
		OwnerID:        owner,
		URL:            optional(in.URL),
		Prompt:         optional(in.Prompt),
		Intent:         optional(in.Intent),
		ModelName:      optional(in.ModelName),
		ExternalTaskID: &taskID,
		Status:         status,
		Metadata:       metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	m.observe("record", err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

func (m *Manager) parseID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		// An id that is not a UUID cannot name a stored record.
		return uuid.Nil, fmt.Errorf("%w: %s %q", ErrNotFound, m.kind, id)
	}
	return uid, nil
}

func (m *Manager) storeErr(op, id string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, m.kind, id)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (m *Manager) observe(operation string, err error) {
	metrics.RecordOperation(string(m.kind), operation, resultLabel(err))
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	default:
		return "error"
	}
}

// RequireOwner trims ownerID and rejects it when nothing is left.
func RequireOwner(ownerID string) (string, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return "", fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	return ownerID, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
