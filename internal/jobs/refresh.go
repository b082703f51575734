// Package jobs defines the background feed refresh task.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/photofeed/decode"
	"github.com/briangreenhill/photofeed/feed"
	"github.com/briangreenhill/photofeed/gettable"
	"github.com/briangreenhill/photofeed/transport"
)

// NewRefreshTask builds a refresh task with a unique id.
func NewRefreshTask(reason string, now time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(RefreshFeedPayload{Reason: reason, RequestedAt: now.Unix()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRefreshFeed, payload,
		asynq.TaskID(uuid.NewString()),
		asynq.Queue(QueueRefresh),
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
	), nil
}

// Saver persists a fetched feed.
type Saver interface {
	ReplaceFeed(ctx context.Context, items []feed.Item, fetchedAt time.Time) error
}

// Enqueuer is the part of asynq.Client the API needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RefreshHandler fetches the feed and stores it.
type RefreshHandler struct {
	Feed  gettable.Gettable[feed.Item]
	Saver Saver
	Log   zerolog.Logger
	Now   func() time.Time
}

// ProcessTask implements asynq.Handler.
func (h *RefreshHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p RefreshFeedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.Log.Error().Err(err).Msg("bad refresh payload")
		return fmt.Errorf("refresh payload: %v: %w", err, asynq.SkipRetry)
	}
	log := h.Log.With().Str("task", t.Type()).Str("reason", p.Reason).Logger()
	start := time.Now()

	res := <-h.Feed.GetMany(ctx)
	if res.Err != nil {
		if !retryable(res.Err) {
			log.Warn().Err(res.Err).Dur("duration", time.Since(start)).Msg("refresh failed permanently, dropping")
			return fmt.Errorf("%w: %w", res.Err, asynq.SkipRetry)
		}
		log.Warn().Err(res.Err).Dur("duration", time.Since(start)).Msg("refresh failed, will retry")
		return res.Err
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	if err := h.Saver.ReplaceFeed(ctx, res.Value, now()); err != nil {
		return fmt.Errorf("save feed: %w", err)
	}
	log.Info().Int("items", len(res.Value)).Dur("duration", time.Since(start)).Msg("feed refreshed")
	return nil
}

// retryable reports whether a fetch failure may clear up by itself. Bad
// payloads and client errors will not.
func retryable(err error) bool {
	if errors.Is(err, decode.ErrMissingData) || errors.Is(err, decode.ErrInvalidData) ||
		errors.Is(err, decode.ErrInvalidShape) || errors.Is(err, transport.ErrCanceled) {
		return false
	}
	var re *transport.RequestError
	if errors.As(err, &re) {
		return false
	}
	var se *transport.StatusError
	if errors.As(err, &se) {
		return se.Code == 429 || se.Code >= 500
	}
	return true
}

// RegisterSchedule enqueues a refresh every interval. A zero interval
// registers nothing.
func RegisterSchedule(s *asynq.Scheduler, interval time.Duration) (string, error) {
	if interval <= 0 {
		return "", nil
	}
	payload, err := json.Marshal(RefreshFeedPayload{Reason: "schedule"})
	if err != nil {
		return "", err
	}
	return s.Register(fmt.Sprintf("@every %s", interval),
		asynq.NewTask(TaskRefreshFeed, payload),
		asynq.Queue(QueueRefresh),
		asynq.MaxRetry(3),
	)
}
