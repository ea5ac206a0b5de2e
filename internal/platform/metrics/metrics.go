package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ApplicationsCreated      prometheus.Counter
	ApplicationsAutoApproved prometheus.Counter
	ProofReviews             *prometheus.CounterVec
	WebhookEvents            *prometheus.CounterVec
	AttachmentFailures       prometheus.Counter
	FaxTransitions           *prometheus.CounterVec
	VouchersIssued           prometheus.Counter
	VouchersRedeemed         prometheus.Counter
	RequestDuration          *prometheus.HistogramVec
}

// New creates all metrics on the given registerer. Production passes
// prometheus.DefaultRegisterer; tests pass a fresh prometheus.NewRegistry()
// so packages never collide on metric names.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ApplicationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "vouchsafe_applications_created_total",
			Help: "Total number of voucher applications created",
		}),
		ApplicationsAutoApproved: factory.NewCounter(prometheus.CounterOpts{
			Name: "vouchsafe_applications_auto_approved_total",
			Help: "Total number of applications auto-approved after all proofs passed",
		}),
		ProofReviews: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vouchsafe_proof_reviews_total",
			Help: "Proof review decisions by proof type and decision",
		}, []string{"proof_type", "decision"}),
		WebhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vouchsafe_webhook_events_total",
			Help: "Inbound webhook events by provider and outcome",
		}, []string{"provider", "outcome"}),
		AttachmentFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "vouchsafe_attachment_failures_total",
			Help: "Signed document download/storage failures needing manual follow-up",
		}),
		FaxTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vouchsafe_fax_transitions_total",
			Help: "Fax delivery status transitions by internal status",
		}, []string{"status"}),
		VouchersIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "vouchsafe_vouchers_issued_total",
			Help: "Total number of vouchers issued",
		}),
		VouchersRedeemed: factory.NewCounter(prometheus.CounterOpts{
			Name: "vouchsafe_vouchers_redeemed_total",
			Help: "Total number of vouchers redeemed",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vouchsafe_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// NewForTest creates metrics on an isolated registry.
func NewForTest() *Metrics {
	return New(prometheus.NewRegistry())
}
