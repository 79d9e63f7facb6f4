package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"media_gallery/internal/gallery"
	"media_gallery/internal/metrics"
	"media_gallery/internal/models"
)

// GenerationEvent is what the generation pipeline publishes whenever a job is
// submitted or changes status.
type GenerationEvent struct {
	TaskID    string         `json:"task_id"`
	UserID    string         `json:"user_id"`
	MediaType string         `json:"media_type"`
	Status    string         `json:"status"`
	URL       string         `json:"url"`
	Prompt    string         `json:"prompt"`
	Intent    string         `json:"intent"`
	Model     string         `json:"model"`
	Metadata  map[string]any `json:"metadata"`
}

// Recorder stores generation results; gallery.Manager implements it.
type Recorder interface {
	Record(ctx context.Context, in gallery.RecordInput) (*models.MediaRecord, error)
}

// errRejected marks events that can never be recorded, however often they are
// retried.
var errRejected = errors.New("event rejected")

const (
	minRetryDelay = 500 * time.Millisecond
	maxRetryDelay = 30 * time.Second
)

// messageReader is the part of *kafka.Reader the consumer drives.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer feeds generation events into the gallery of their media type.
type Consumer struct {
	reader     messageReader
	recorders  map[models.MediaKind]Recorder
	log        zerolog.Logger
	retryDelay time.Duration
}

func NewConsumer(brokers []string, topic, groupID string, recorders map[models.MediaKind]Recorder, log zerolog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return newConsumer(r, recorders, log)
}

func newConsumer(r messageReader, recorders map[models.MediaKind]Recorder, log zerolog.Logger) *Consumer {
	return &Consumer{
		reader:     r,
		recorders:  recorders,
		log:        log.With().Str("component", "ingest").Logger(),
		retryDelay: minRetryDelay,
	}
}

// Run consumes until ctx is cancelled. An offset is committed only once its
// event is recorded or rejected for good; store failures are retried.
func (c *Consumer) Run(ctx context.Context) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Error().Err(err).Msg("fetch message")
			if !sleep(ctx, time.Second) {
				return
			}
			continue
		}
		if !c.process(ctx, msg) {
			return
		}
	}
}

// process handles msg until it no longer needs a retry, then commits it. It
// reports false when ctx ends first, leaving the offset uncommitted.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	delay := c.retryDelay
	for {
		err := c.handle(ctx, msg)
		if err == nil || !retryable(err) {
			if err != nil {
				c.log.Warn().Err(err).
					Int("partition", msg.Partition).
					Int64("offset", msg.Offset).
					Msg("generation event skipped")
			}
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				if ctx.Err() != nil {
					return false
				}
				c.log.Error().Err(err).Int64("offset", msg.Offset).Msg("commit offset")
			}
			return true
		}

		c.log.Error().Err(err).
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Dur("retry_in", delay).
			Msg("generation event failed")
		if !sleep(ctx, delay) {
			return false
		}
		delay = min(delay*2, maxRetryDelay)
	}
}

// retryable reports whether err may go away on a later attempt. Malformed or
// invalid events never will.
func retryable(err error) bool {
	return !errors.Is(err, errRejected) && !errors.Is(err, gallery.ErrValidation)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	const op = "events.handle"

	var ev GenerationEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		metrics.RecordIngest("unknown", "malformed")
		return fmt.Errorf("%s: %w: decode: %v", op, errRejected, err)
	}

	kind := models.MediaKind(strings.ToLower(strings.TrimSpace(ev.MediaType)))
	recorder, ok := c.recorders[kind]
	if !ok {
		metrics.RecordIngest("unknown", "rejected")
		return fmt.Errorf("%s: %w: unknown media_type %q", op, errRejected, ev.MediaType)
	}

	rec, err := recorder.Record(ctx, gallery.RecordInput{
		OwnerID:   ev.UserID,
		TaskID:    ev.TaskID,
		Status:    ev.Status,
		URL:       ev.URL,
		Prompt:    ev.Prompt,
		Intent:    ev.Intent,
		ModelName: ev.Model,
		Metadata:  ev.Metadata,
	})
	if err != nil {
		result := "error"
		if errors.Is(err, gallery.ErrValidation) {
			result = "rejected"
		}
		metrics.RecordIngest(string(kind), result)
		return fmt.Errorf("%s: task %s: %w", op, ev.TaskID, err)
	}

	metrics.RecordIngest(string(kind), "ok")
	c.log.Debug().
		Str("task_id", ev.TaskID).
		Str("id", rec.ID.String()).
		Str("status", rec.Status).
		Msg("generation event recorded")
	return nil
}

func (c *Consumer) Close() error {
	if c.reader == nil {
		return nil
	}
	return c.reader.Close()
}
