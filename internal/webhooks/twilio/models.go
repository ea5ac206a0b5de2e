// Package twilio ingests fax delivery status callbacks for certification
// forms faxed to providers. Provider vocabulary is collapsed into an internal
// delivery status; a terminal failure falls back to email exactly once.
package twilio

import (
	"time"

	id "vouchsafe/pkg/domain"
)

// DeliveryStatus is the internal fax delivery state.
type DeliveryStatus string

const (
	DeliveryQueued    DeliveryStatus = "queued"
	DeliverySending   DeliveryStatus = "sending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryReceived  DeliveryStatus = "received"
	DeliveryFailed    DeliveryStatus = "failed"
)

// Terminal reports whether no further callbacks are expected.
func (s DeliveryStatus) Terminal() bool {
	switch s {
	case DeliveryDelivered, DeliveryReceived, DeliveryFailed:
		return true
	}
	return false
}

// providerStatuses maps Twilio's fax status vocabulary onto the internal
// delivery status.
var providerStatuses = map[string]DeliveryStatus{
	"queued":     DeliverySending,
	"processing": DeliverySending,
	"sending":    DeliverySending,
	"delivered":  DeliveryDelivered,
	"received":   DeliveryReceived,
	"no-answer":  DeliveryFailed,
	"busy":       DeliveryFailed,
	"failed":     DeliveryFailed,
	"canceled":   DeliveryFailed,
}

// MapProviderStatus translates a Twilio fax status. ok is false for
// vocabulary this service does not know.
func MapProviderStatus(provider string) (DeliveryStatus, bool) {
	s, ok := providerStatuses[provider]
	return s, ok
}

// FaxTransmission is one outbound fax of a certification form.
type FaxTransmission struct {
	// FaxSid is the provider's identifier and our correlation key.
	FaxSid        string
	ApplicationID id.ApplicationID
	// RecipientEmail is used for the fallback notification when the fax
	// cannot be delivered.
	RecipientEmail string
	RecipientFax   string
	Status         DeliveryStatus
	// BlobKey locates the queued document so it can be purged once the
	// transmission is terminal and failed.
	BlobKey string
	// FallbackEmailSent guards the one-shot email fallback.
	FallbackEmailSent bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
