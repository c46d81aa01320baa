// Package webhook defines the inbound webhook payload shapes and the pure
// normalization step that turns a raw delivery into a canonical event.
package webhook

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// EventTypeMessage is the only event type considered for attendance.
const EventTypeMessage = "message"

// UnknownDisplayName is the sentinel used when the payload carries no name.
const UnknownDisplayName = "Unknown"

// Classification reasons surfaced to the webhook caller.
const (
	ReasonNotMessage = "not a message event"
	ReasonFromSelf   = "message from self"
	ReasonNoPhone    = "no phone number"
)

// Envelope is the outer webhook body as delivered by the provider.
type Envelope struct {
	Event   string  `json:"event"`
	Payload Payload `json:"payload"`
}

// Payload carries the message fields. Timestamp is seconds since epoch;
// _data holds provider metadata including the sender's display name.
type Payload struct {
	ID        string   `json:"id"`
	From      string   `json:"from"`
	FromMe    bool     `json:"fromMe"`
	Body      string   `json:"body"`
	Timestamp int64    `json:"timestamp"`
	Data      Metadata `json:"_data"`
}

// Metadata is the nested provider metadata block.
type Metadata struct {
	NotifyName string `json:"notifyName"`
}

// CanonicalEvent is the normalized, provider-agnostic representation of an
// inbound message used by the ingestion pipeline.
type CanonicalEvent struct {
	MessageID   string
	SenderID    string
	DisplayName string
	Body        string
	OccurredAt  time.Time
	SelfSent    bool
}

// Kind classifies a normalization result.
type Kind int

const (
	// KindEvent means the payload normalized into a usable canonical event.
	KindEvent Kind = iota
	// KindIgnored means the payload is well-formed but out of scope
	// (wrong event type, or sent by the service's own account).
	KindIgnored
	// KindRejected means the payload claims to be a message but is unusable
	// (no sender). This is terminal and non-retryable, not a system fault.
	KindRejected
)

// Result is the outcome of normalizing one webhook delivery.
type Result struct {
	Kind   Kind
	Reason string
	Event  CanonicalEvent
}

// Normalize extracts a canonical event from a raw webhook body. It is a pure
// function of its input: classification outcomes (ignored, rejected) are
// values, and an error is returned only when the body is not valid JSON.
func Normalize(raw []byte) (Result, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Result{}, fmt.Errorf("failed to decode webhook body: %w", err)
	}

	if env.Event != EventTypeMessage {
		return Result{Kind: KindIgnored, Reason: ReasonNotMessage}, nil
	}

	if env.Payload.FromMe {
		return Result{Kind: KindIgnored, Reason: ReasonFromSelf}, nil
	}

	senderID := SenderID(env.Payload.From)
	if senderID == "" {
		return Result{Kind: KindRejected, Reason: ReasonNoPhone}, nil
	}

	displayName := env.Payload.Data.NotifyName
	if displayName == "" {
		displayName = UnknownDisplayName
	}

	// A missing timestamp becomes epoch 0: degraded but valid, never fatal.
	occurredAt := time.Unix(env.Payload.Timestamp, 0).UTC()

	return Result{
		Kind: KindEvent,
		Event: CanonicalEvent{
			MessageID:   env.Payload.ID,
			SenderID:    senderID,
			DisplayName: displayName,
			Body:        env.Payload.Body,
			OccurredAt:  occurredAt,
			SelfSent:    false,
		},
	}, nil
}

// SenderID strips the provider domain suffix (e.g. "@c.us") from a raw
// "from" field, leaving the bare phone/account identifier.
func SenderID(from string) string {
	id, _, _ := strings.Cut(from, "@")
	return id
}
