// Package ingest implements the webhook ingestion orchestrator: it runs the
// normalize -> store -> attendance pipeline for each delivery and classifies
// the result. The service holds no state between calls; all cross-request
// invariants live in the storage layer's constraints.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/noviciado/attendance-tracker/internal/database"
	"github.com/noviciado/attendance-tracker/internal/metrics"
	"github.com/noviciado/attendance-tracker/internal/webhook"
)

// Semantic statuses returned to the webhook caller. The HTTP layer always
// answers 200; this field carries the real outcome so the provider does not
// re-deliver on application-level rejections.
const (
	StatusIgnored   = "ignored"
	StatusDuplicate = "duplicate"
	StatusSuccess   = "success"
	StatusError     = "error"
)

// Response is the structured outcome of ingesting one webhook delivery.
type Response struct {
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	Attendance *bool  `json:"attendance,omitempty"`
	Contact    string `json:"contact,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Service coordinates the ingestion pipeline.
type Service struct {
	logger    *slog.Logger
	store     database.Store
	opTimeout time.Duration
}

// NewService creates an ingestion service. opTimeout bounds each storage
// call; exceeding it surfaces as a status=error response rather than an
// internal retry (re-delivery is the provider's responsibility).
func NewService(logger *slog.Logger, store database.Store, opTimeout time.Duration) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:    logger.With("component", "ingest"),
		store:     store,
		opTimeout: opTimeout,
	}
}

// Ingest processes one raw webhook body and returns a classified response.
// It never panics outward and never returns an error: every failure mode maps
// to a Response the serving layer can deliver with HTTP 200.
func (s *Service) Ingest(ctx context.Context, raw []byte) Response {
	resp := s.ingest(ctx, raw)
	metrics.IngestOutcomes.WithLabelValues(resp.Status).Inc()
	return resp
}

func (s *Service) ingest(ctx context.Context, raw []byte) Response {
	result, err := webhook.Normalize(raw)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to parse webhook payload", "error", err)
		return Response{Status: StatusError, Message: err.Error()}
	}

	switch result.Kind {
	case webhook.KindIgnored:
		s.logger.DebugContext(ctx, "Ignoring webhook event", "reason", result.Reason)
		return Response{Status: StatusIgnored, Reason: result.Reason}
	case webhook.KindRejected:
		s.logger.WarnContext(ctx, "Rejecting webhook event", "reason", result.Reason)
		return Response{Status: StatusError, Reason: result.Reason}
	}

	event := result.Event

	// Duplicate suppression needs a message id; when the provider omits one,
	// assign a surrogate so the uniqueness constraint holds. Dedup guarantees
	// do not apply to such deliveries: each one gets a fresh surrogate.
	messageID := event.MessageID
	if messageID == "" {
		messageID = "gen:" + uuid.NewString()
		s.logger.WarnContext(ctx, "Webhook message has no id, assigning surrogate",
			"sender_id", event.SenderID, "surrogate_id", messageID)
	}

	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	message := &database.Message{
		MessageID:   messageID,
		SenderID:    event.SenderID,
		DisplayName: event.DisplayName,
		Body:        event.Body,
		OccurredAt:  event.OccurredAt,
		ReceivedAt:  time.Now().UTC(),
	}

	appendOutcome, err := s.store.AppendMessage(opCtx, message)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to store message",
			"message_id", messageID, "sender_id", event.SenderID, "error", err)
		return Response{Status: StatusError, Message: "failed to store message"}
	}
	if appendOutcome == database.MessageDuplicate {
		s.logger.InfoContext(ctx, "Duplicate message, skipping", "message_id", messageID)
		return Response{Status: StatusDuplicate}
	}

	attOutcome, _, err := s.store.RecordAttendance(opCtx, event.SenderID, event.DisplayName, event.OccurredAt)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to record attendance",
			"sender_id", event.SenderID, "error", err)
		return Response{Status: StatusError, Message: "failed to record attendance"}
	}

	attended := attOutcome == database.AttendanceRecorded
	if attended {
		metrics.AttendanceRecorded.Inc()
	} else {
		s.logger.DebugContext(ctx, "Attendance already recorded today",
			"sender_id", event.SenderID)
	}

	return Response{
		Status:     StatusSuccess,
		Attendance: &attended,
		Contact:    event.DisplayName,
	}
}
