package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventTypeResult is the event_type header of result events.
const EventTypeResult = "intake.result"

// IntakeEvent is emitted once per file after a batch completes.
type IntakeEvent struct {
	ID                 string    `json:"id"`
	BatchID            string    `json:"batch_id"`
	Status             Status    `json:"status"`
	Kind               string    `json:"kind"`
	FileName           string    `json:"file_name"`
	SizeBytes          int64     `json:"size_bytes"`
	MimeType           string    `json:"mime_type"`
	ErrorCode          string    `json:"error_code,omitempty"`
	Message            string    `json:"message,omitempty"`
	ProcessedName      string    `json:"processed_name,omitempty"`
	ProcessedSizeBytes int64     `json:"processed_size_bytes,omitempty"`
	ReferenceURL       string    `json:"reference_url,omitempty"`
	HasThumbnail       bool      `json:"has_thumbnail"`
	CreatedAt          time.Time `json:"created_at"`
}

// NewIntakeEvent describes r.
func NewIntakeEvent(batchID string, r Result) IntakeEvent {
	ev := IntakeEvent{
		ID:           uuid.NewString(),
		BatchID:      batchID,
		Status:       r.Status,
		Kind:         r.Kind.String(),
		FileName:     r.Source.Name,
		SizeBytes:    r.Source.SizeBytes,
		MimeType:     r.Source.MimeType,
		HasThumbnail: r.Thumbnail != nil,
		CreatedAt:    time.Now().UTC(),
	}
	if r.Failure != nil {
		ev.ErrorCode = string(r.Failure.Code)
		ev.Message = r.Failure.Message
	}
	if r.Processed != nil {
		ev.ProcessedName = r.Processed.Name
		ev.ProcessedSizeBytes = r.Processed.SizeBytes
		ev.ReferenceURL = r.Processed.ReferenceURL
	}
	return ev
}

// Publisher sends one keyed message. *kafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, key []byte, value []byte, headers map[string]string) error
	Close(ctx context.Context) error
}

// EventPublisher turns results into IntakeEvents on a Publisher.
type EventPublisher struct {
	publisher Publisher
}

func NewEventPublisher(p Publisher) *EventPublisher {
	return &EventPublisher{publisher: p}
}

// PublishResults sends one event per result, keyed by batch so a batch
// lands on one partition in order.
func (e *EventPublisher) PublishResults(ctx context.Context, batchID string, results []Result) error {
	var errs []error
	for _, r := range results {
		ev := NewIntakeEvent(batchID, r)
		payload, err := json.Marshal(ev)
		if err != nil {
			errs = append(errs, fmt.Errorf("marshal intake event: %w", err))
			continue
		}
		headers := map[string]string{
			"event_id":   ev.ID,
			"batch_id":   batchID,
			"event_type": EventTypeResult,
			"status":     string(ev.Status),
		}
		if err := e.publisher.Publish(ctx, []byte(batchID), payload, headers); err != nil {
			errs = append(errs, fmt.Errorf("publish intake event for %s: %w", ev.FileName, err))
		}
	}
	return errors.Join(errs...)
}

func (e *EventPublisher) Close(ctx context.Context) error {
	return e.publisher.Close(ctx)
}
