package stats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media_gallery/internal/gallery"
	"media_gallery/internal/models"
)

type fakeCounter struct {
	kind  models.MediaKind
	count int64
	err   error
	calls int
	owner string
}

func (f *fakeCounter) Kind() models.MediaKind { return f.kind }

func (f *fakeCounter) CountForOwner(_ context.Context, ownerID string) (int64, error) {
	f.calls++
	f.owner = ownerID
	return f.count, f.err
}

func TestAggregator_SumsCounts(t *testing.T) {
	images := &fakeCounter{kind: models.KindImage, count: 2}
	videos := &fakeCounter{kind: models.KindVideo, count: 5}
	agg := New(zerolog.Nop(), images, videos)

	s, err := agg.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", s.OwnerID)
	assert.EqualValues(t, 2, s.Count(models.KindImage))
	assert.EqualValues(t, 5, s.Count(models.KindVideo))
	assert.EqualValues(t, 7, s.Total)
}

func TestAggregator_FailingSourceCountsAsZero(t *testing.T) {
	images := &fakeCounter{kind: models.KindImage, err: errors.New("image store unavailable")}
	videos := &fakeCounter{kind: models.KindVideo, count: 5}
	agg := New(zerolog.Nop(), images, videos)

	s, err := agg.Get(context.Background(), "u1")
	require.NoError(t, err)

	body, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_id":"u1","image_count":0,"video_count":5,"total_count":5}`, string(body))
}

func TestAggregator_AllSourcesFailing(t *testing.T) {
	agg := New(zerolog.Nop(),
		&fakeCounter{kind: models.KindImage, err: errors.New("down")},
		&fakeCounter{kind: models.KindVideo, err: errors.New("down")},
	)

	s, err := agg.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, s.Total)
}

func TestAggregator_RequiresOwnerBeforeCounting(t *testing.T) {
	images := &fakeCounter{kind: models.KindImage}
	videos := &fakeCounter{kind: models.KindVideo}
	agg := New(zerolog.Nop(), images, videos)

	_, err := agg.Get(context.Background(), "  ")
	assert.True(t, errors.Is(err, gallery.ErrValidation))
	assert.Zero(t, images.calls)
	assert.Zero(t, videos.calls)
}

func TestAggregator_TrimsOwner(t *testing.T) {
	videos := &fakeCounter{kind: models.KindVideo, count: 3}
	agg := New(zerolog.Nop(), videos)

	s, err := agg.Get(context.Background(), "  u1 ")
	require.NoError(t, err)
	assert.Equal(t, "u1", s.OwnerID)
	assert.Equal(t, "u1", videos.owner)
	assert.EqualValues(t, 3, s.Total)
}
