package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media_gallery/internal/gallery"
	"media_gallery/internal/models"
	"media_gallery/internal/storage"
)

func newTestConsumer(t *testing.T) (*Consumer, *gallery.Manager, *gallery.Manager) {
	t.Helper()
	videos := gallery.NewManager(storage.NewMemoryStore(models.KindVideo), zerolog.Nop())
	images := gallery.NewManager(storage.NewMemoryStore(models.KindImage), zerolog.Nop())
	c := newConsumer(nil, map[models.MediaKind]Recorder{
		models.KindVideo: videos,
		models.KindImage: images,
	}, zerolog.Nop())
	return c, videos, images
}

func message(t *testing.T, ev GenerationEvent) kafka.Message {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return kafka.Message{Value: b}
}

func TestConsumer_RecordsAndUpdatesByTask(t *testing.T) {
	c, videos, images := newTestConsumer(t)
	ctx := context.Background()

	require.NoError(t, c.handle(ctx, message(t, GenerationEvent{
		TaskID:    "task-42",
		UserID:    "u1",
		MediaType: "video",
		Prompt:    "waves at dusk",
		Intent:    "prompt_to_video",
		Model:     "wan2.2-t2v",
	})))
	require.NoError(t, c.handle(ctx, message(t, GenerationEvent{
		TaskID:    "task-42",
		UserID:    "u1",
		MediaType: "VIDEO",
		Status:    models.StatusSucceeded,
		URL:       "https://cdn.example.com/42.mp4",
		Metadata:  map[string]any{"duration": float64(5)},
	})))

	list, err := videos.ListActive(ctx, "u1", gallery.Page{Limit: 10}, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	rec := list[0]
	assert.Equal(t, models.StatusSucceeded, rec.Status)
	assert.Equal(t, "https://cdn.example.com/42.mp4", *rec.URL)
	assert.Equal(t, "wan2.2-t2v", *rec.ModelName)
	assert.Equal(t, "task-42", *rec.ExternalTaskID)
	assert.Equal(t, float64(5), rec.Metadata["duration"])

	n, err := images.CountForOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConsumer_RejectsBadEvents(t *testing.T) {
	c, _, _ := newTestConsumer(t)
	ctx := context.Background()

	err := c.handle(ctx, kafka.Message{Value: []byte("{not json")})
	assert.Error(t, err)

	err = c.handle(ctx, message(t, GenerationEvent{TaskID: "t", UserID: "u1", MediaType: "audio"}))
	assert.Error(t, err)

	err = c.handle(ctx, message(t, GenerationEvent{TaskID: "t", MediaType: "image"}))
	assert.True(t, errors.Is(err, gallery.ErrValidation))

	err = c.handle(ctx, message(t, GenerationEvent{UserID: "u1", MediaType: "image"}))
	assert.True(t, errors.Is(err, gallery.ErrValidation))
}

func TestLifecycleMessage(t *testing.T) {
	id := uuid.New()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	msg, err := lifecycleMessage(gallery.LifecycleEvent{
		Type:      gallery.EventRestored,
		MediaType: models.KindImage,
		ID:        id,
		OwnerID:   "u1",
		At:        at,
	})
	require.NoError(t, err)

	assert.Equal(t, id.String(), string(msg.Key))
	assert.True(t, msg.Time.Equal(at))
	assert.JSONEq(t,
		`{"event":"restored","media_type":"image","id":"`+id.String()+`","user_id":"u1","at":"2025-06-01T12:00:00Z"}`,
		string(msg.Value))
}

func TestConsumerCloseWithoutReader(t *testing.T) {
	c, _, _ := newTestConsumer(t)
	assert.NoError(t, c.Close())
}

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []kafka.Message
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) == 0 {
		r.cancel()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.pending[0]
	r.pending = r.pending[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) commits() []kafka.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]kafka.Message(nil), r.committed...)
}

// flakyRecorder fails the first failures calls with a store error.
type flakyRecorder struct {
	next     Recorder
	failures int
	calls    int
}

func (f *flakyRecorder) Record(ctx context.Context, in gallery.RecordInput) (*models.MediaRecord, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("storage.UpsertByTask: connection refused")
	}
	return f.next.Record(ctx, in)
}

func newRetryConsumer(reader messageReader, recorder Recorder) *Consumer {
	c := newConsumer(reader, map[models.MediaKind]Recorder{models.KindVideo: recorder}, zerolog.Nop())
	c.retryDelay = time.Millisecond
	return c
}

func TestConsumer_RetriesStoreFailuresBeforeCommit(t *testing.T) {
	videos := gallery.NewManager(storage.NewMemoryStore(models.KindVideo), zerolog.Nop())
	recorder := &flakyRecorder{next: videos, failures: 1}
	reader := &fakeReader{}
	c := newRetryConsumer(reader, recorder)

	msg := message(t, GenerationEvent{TaskID: "task-7", UserID: "u1", MediaType: "video"})
	msg.Offset = 7
	require.True(t, c.process(context.Background(), msg))

	assert.Equal(t, 2, recorder.calls, "failed event is retried")
	committed := reader.commits()
	require.Len(t, committed, 1)
	assert.EqualValues(t, 7, committed[0].Offset)

	n, err := videos.CountForOwner(context.Background(), "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestConsumer_LeavesOffsetWhenStoreStaysDown(t *testing.T) {
	recorder := &flakyRecorder{failures: 1 << 30}
	reader := &fakeReader{}
	c := newRetryConsumer(reader, recorder)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	msg := message(t, GenerationEvent{TaskID: "task-8", UserID: "u1", MediaType: "video"})
	assert.False(t, c.process(ctx, msg))
	assert.Greater(t, recorder.calls, 1)
	assert.Empty(t, reader.commits(), "event must not be treated as consumed")
}

func TestConsumer_CommitsRejectedEvents(t *testing.T) {
	recorder := &flakyRecorder{failures: 1 << 30}
	reader := &fakeReader{}
	c := newRetryConsumer(reader, recorder)
	ctx := context.Background()

	assert.True(t, c.process(ctx, kafka.Message{Value: []byte("{not json")}))
	assert.True(t, c.process(ctx, message(t, GenerationEvent{TaskID: "t", UserID: "u1", MediaType: "audio"})))
	assert.Zero(t, recorder.calls)

	videos := gallery.NewManager(storage.NewMemoryStore(models.KindVideo), zerolog.Nop())
	c = newRetryConsumer(reader, videos)
	assert.True(t, c.process(ctx, message(t, GenerationEvent{UserID: "u1", MediaType: "video"})))

	assert.Len(t, reader.commits(), 3)
}

func TestConsumer_RunCommitsInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	videos := gallery.NewManager(storage.NewMemoryStore(models.KindVideo), zerolog.Nop())
	reader := &fakeReader{cancel: cancel}
	for i, task := range []string{"a", "b", "c"} {
		msg := message(t, GenerationEvent{TaskID: task, UserID: "u1", MediaType: "video"})
		msg.Offset = int64(i)
		reader.pending = append(reader.pending, msg)
	}
	c := newRetryConsumer(reader, &flakyRecorder{next: videos, failures: 1})

	c.Run(ctx)

	committed := reader.commits()
	require.Len(t, committed, 3)
	for i, msg := range committed {
		assert.EqualValues(t, i, msg.Offset)
	}
	n, err := videos.CountForOwner(context.Background(), "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestRetryable(t *testing.T) {
	assert.False(t, retryable(errRejected))
	assert.False(t, retryable(gallery.ErrValidation))
	assert.True(t, retryable(errors.New("connection refused")))
}
