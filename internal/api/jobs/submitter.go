// Package jobs hands video translation jobs to the message broker.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/cuongbtq/video-gateway/internal/api/domain"
	"github.com/cuongbtq/video-gateway/internal/metrics"
)

// Publisher delivers a message body to a named queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte, messageID string) error
}

// Submitter turns job requests into queue messages.
type Submitter struct {
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewSubmitter creates a Submitter that publishes through publisher.
func NewSubmitter(publisher Publisher, m *metrics.Metrics, logger *slog.Logger) *Submitter {
	return &Submitter{publisher: publisher, metrics: m, logger: logger}
}

// Submit assigns a fresh request id to req, publishes it to queue and returns
// the id. The gateway keeps no record of the job afterwards.
func (s *Submitter) Submit(ctx context.Context, queue string, req domain.JobRequest) (string, error) {
	job := domain.Job{
		RequestID:   uuid.NewString(),
		UserID:      req.UserID,
		StartMinute: req.StartMinute,
		EndMinute:   req.EndMinute,
		VideoURL:    req.VideoURL,
	}

	body, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to encode job: %w", err)
	}

	err = s.publisher.Publish(ctx, queue, body, job.RequestID)
	s.metrics.RecordJobPublished(queue, err)
	if err != nil {
		s.logger.Error("Failed to submit job",
			slog.String("queue", queue),
			slog.String("request_id", job.RequestID),
			slog.Any("error", err),
		)
		return "", &domain.QueueUnavailableError{Queue: queue, Err: err}
	}

	s.logger.Info("Job submitted",
		slog.String("queue", queue),
		slog.String("request_id", job.RequestID),
	)

	return job.RequestID, nil
}
