// Package notify dispatches constituent- and provider-facing notifications
// (email, letter, sms) as fire-and-forget events. Delivery rendering happens
// in a downstream notifications service; the workflow only emits intents.
// Dispatch failures are logged and never propagated: the primary state
// transition must not depend on notification delivery.
package notify

import (
	"context"
	"sync"

	"vouchsafe/pkg/attrs"
	id "vouchsafe/pkg/domain"
)

// Channel selects the delivery medium for a notification.
type Channel string

const (
	ChannelEmail  Channel = "email"
	ChannelLetter Channel = "letter"
	ChannelSMS    Channel = "sms"
)

// Event is one notification intent.
type Event struct {
	// Type names the notification template downstream (e.g.
	// "proof_rejected", "application_approved", "fax_failed_fallback").
	Type          string
	Channel       Channel
	RecipientID   id.UserID
	ActorID       id.UserID
	ApplicationID id.ApplicationID
	Metadata      map[string]any
}

// Meta builds event metadata from slog-style key-value pairs.
func Meta(kv ...any) map[string]any {
	return attrs.ToMap(kv)
}

// Dispatcher sends notification events. Implementations must be
// fire-and-forget: log failures, never return them to the workflow.
type Dispatcher interface {
	Notify(ctx context.Context, event Event)
}

// Noop discards all notifications. Used when Kafka is not configured.
type Noop struct{}

func (Noop) Notify(context.Context, Event) {}

// Recorder captures notifications for test assertions.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty notification recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// CountByType returns how many notifications of the given type were recorded.
func (r *Recorder) CountByType(notifType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == notifType {
			n++
		}
	}
	return n
}
