package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"media_gallery/internal/gallery"
	"media_gallery/internal/models"
)

// envelope wraps every API response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Result  any    `json:"result"`
}

func respondOK(c *gin.Context, message string, result any) {
	c.JSON(http.StatusOK, envelope{Success: true, Message: message, Result: result})
}

// respondError maps domain errors onto status codes. Anything unrecognised is a
// store failure and is logged, not echoed.
func respondError(c *gin.Context, log zerolog.Logger, err error, notFound string) {
	status, message := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, gallery.ErrValidation):
		status, message = http.StatusBadRequest, detail(err, gallery.ErrValidation)
	case errors.Is(err, gallery.ErrNotFound):
		status, message = http.StatusNotFound, notFound
	case errors.Is(err, gallery.ErrInvalidState):
		status, message = http.StatusBadRequest, detail(err, gallery.ErrInvalidState)
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, envelope{Success: false, Message: message})
}

// detail strips the sentinel prefix from a wrapped error message.
func detail(err, sentinel error) string {
	msg := err.Error()
	if i := strings.Index(msg, sentinel.Error()+": "); i >= 0 {
		return msg[i+len(sentinel.Error())+2:]
	}
	return msg
}

// recordView renders a record under the keys gallery clients read: the id and
// url fields are named after the media kind (video_id, image_url, ...).
type recordView struct {
	kind   models.MediaKind
	rec    *models.MediaRecord
	detail bool
}

func (v recordView) MarshalJSON() ([]byte, error) {
	r := v.rec
	metadata := r.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	out := map[string]any{
		string(v.kind) + "_id":  r.ID,
		"user_id":               r.OwnerID,
		string(v.kind) + "_url": r.URL,
		"prompt":                r.Prompt,
		"intent":                r.Intent,
		"model":                 r.ModelName,
		"task_id":               r.ExternalTaskID,
		"status":                r.Status,
		"metadata":              metadata,
		"created_at":            r.CreatedAt,
	}
	if v.detail {
		out["updated_at"] = r.UpdatedAt
		out["deleted_at"] = r.DeletedAt
		out["is_deleted"] = r.IsDeleted()
	}
	return json.Marshal(out)
}

// listView omits the lifecycle timestamps.
func listView(kind models.MediaKind, r *models.MediaRecord) recordView {
	return recordView{kind: kind, rec: r}
}

func detailView(kind models.MediaKind, r *models.MediaRecord) recordView {
	return recordView{kind: kind, rec: r, detail: true}
}

func listViews(kind models.MediaKind, records []*models.MediaRecord) []recordView {
	out := make([]recordView, len(records))
	for i, r := range records {
		out[i] = listView(kind, r)
	}
	return out
}

func detailViews(kind models.MediaKind, records []*models.MediaRecord) []recordView {
	out := make([]recordView, len(records))
	for i, r := range records {
		out[i] = detailView(kind, r)
	}
	return out
}
