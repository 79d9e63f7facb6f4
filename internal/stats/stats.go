package stats

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"media_gallery/internal/gallery"
	"media_gallery/internal/metrics"
	"media_gallery/internal/models"
)

// Counter is the slice of a gallery.Manager the aggregator needs.
type Counter interface {
	Kind() models.MediaKind
	CountForOwner(ctx context.Context, ownerID string) (int64, error)
}

// Aggregator sums per-owner counts over several galleries. A gallery whose count
// fails contributes zero instead of failing the summary.
type Aggregator struct {
	sources []Counter
	log     zerolog.Logger
}

func New(log zerolog.Logger, sources ...Counter) *Aggregator {
	return &Aggregator{
		sources: sources,
		log:     log.With().Str("component", "stats").Logger(),
	}
}

type TypeCount struct {
	MediaType models.MediaKind
	Count     int64
}

type Summary struct {
	OwnerID string
	Counts  []TypeCount
	Total   int64
}

// Count returns the count for kind, or zero when kind was not aggregated.
func (s Summary) Count(kind models.MediaKind) int64 {
	for _, c := range s.Counts {
		if c.MediaType == kind {
			return c.Count
		}
	}
	return 0
}

// MarshalJSON renders {"user_id", "<type>_count"..., "total_count"}.
func (s Summary) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Counts)+2)
	out["user_id"] = s.OwnerID
	for _, c := range s.Counts {
		out[string(c.MediaType)+"_count"] = c.Count
	}
	out["total_count"] = s.Total
	return json.Marshal(out)
}

func (a *Aggregator) Get(ctx context.Context, ownerID string) (Summary, error) {
	ownerID, err := gallery.RequireOwner(ownerID)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{OwnerID: ownerID, Counts: make([]TypeCount, 0, len(a.sources))}
	for _, src := range a.sources {
		n, err := src.CountForOwner(ctx, ownerID)
		if err != nil {
			a.log.Warn().Err(err).
				Str("media_type", string(src.Kind())).
				Str("user_id", ownerID).
				Msg("count failed, reporting zero")
			metrics.RecordStatsFallback(string(src.Kind()))
			n = 0
		}
		summary.Counts = append(summary.Counts, TypeCount{MediaType: src.Kind(), Count: n})
		summary.Total += n
	}
	return summary, nil
}
