// Package docuseal processes e-signature provider webhooks for the medical
// certification form. Deliveries are at-least-once: the handler must be
// idempotent and always acknowledge so the provider stops retrying.
package docuseal

import (
	"encoding/json"
	"fmt"
	"io"
)

// Event types the provider delivers.
const (
	EventFormCompleted = "form.completed"
	EventFormDeclined  = "form.declined"
)

// Payload is the provider webhook envelope.
type Payload struct {
	EventType string      `json:"event_type"`
	Timestamp string      `json:"timestamp"`
	Data      PayloadData `json:"data"`
}

// PayloadData carries the submission the event refers to.
type PayloadData struct {
	SubmissionID  json.Number `json:"submission_id"`
	Email         string      `json:"email"`
	AuditLogURL   string      `json:"audit_log_url"`
	DeclineReason string      `json:"decline_reason"`
	Documents     []Document  `json:"documents"`
}

// Document is one signed file attached to a completed submission.
type Document struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// DocumentURL returns the first signed document URL, or empty.
func (d PayloadData) DocumentURL() string {
	if len(d.Documents) == 0 {
		return ""
	}
	return d.Documents[0].URL
}

// ParsePayload decodes a webhook body.
func ParsePayload(body io.Reader) (Payload, error) {
	var p Payload
	if err := json.NewDecoder(body).Decode(&p); err != nil {
		return Payload{}, fmt.Errorf("decoding webhook payload: %w", err)
	}
	return p, nil
}
