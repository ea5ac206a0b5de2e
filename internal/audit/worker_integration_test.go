//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"vouchsafe/internal/audit"
	id "vouchsafe/pkg/domain"
	"vouchsafe/pkg/testutil/containers"
)

type OutboxWorkerSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	redpanda *containers.RedpandaContainer
	store    *audit.PostgresStore
}

func TestOutboxWorkerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(OutboxWorkerSuite))
}

func (s *OutboxWorkerSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.redpanda = mgr.GetRedpanda(s.T())
	s.store = audit.NewPostgresStore(s.postgres.DB)
}

func (s *OutboxWorkerSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background()))
}

// TestOutboxDrainsToKafka appends events to the outbox, runs the worker, and
// verifies the events arrive on the topic and get marked published.
func (s *OutboxWorkerSuite) TestOutboxDrainsToKafka() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	topic := "audit-events-" + uuid.NewString()
	producer := s.redpanda.NewClient(s.T())
	defer producer.Close()

	worker := audit.NewWorker(s.postgres.DB, producer, topic,
		slog.New(slog.DiscardHandler),
		audit.WithPollInterval(100*time.Millisecond))
	s.Require().NoError(worker.EnsureTopic(ctx, 1, 1))

	appID := id.ApplicationID(uuid.New())
	events := []audit.Event{
		{
			Timestamp:     time.Now().UTC(),
			ApplicationID: appID,
			Action:        string(audit.EventApplicationCreated),
		},
		{
			Timestamp:     time.Now().UTC(),
			ApplicationID: appID,
			Action:        string(audit.EventVoucherIssued),
			CorrelationID: "sub-9001",
		},
	}
	for _, e := range events {
		s.Require().NoError(s.store.Append(ctx, e))
	}

	workerCtx, stopWorker := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(workerCtx)
	}()

	consumer := s.redpanda.NewClient(s.T(),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()))
	defer consumer.Close()

	received := make(map[string]bool)
	for len(received) < len(events) {
		fetches := consumer.PollFetches(ctx)
		s.Require().NoError(fetches.Err())
		fetches.EachRecord(func(r *kgo.Record) {
			var payload struct {
				Action   string `json:"Action"`
				Category string `json:"Category"`
			}
			s.Require().NoError(json.Unmarshal(r.Value, &payload))
			s.Equal(string(audit.CategoryCompliance), payload.Category)
			received[payload.Action] = true
		})
	}
	s.True(received[string(audit.EventApplicationCreated)])
	s.True(received[string(audit.EventVoucherIssued)])

	stopWorker()
	<-done

	// Every row must be marked published so it is never claimed again.
	s.Require().Eventually(func() bool {
		var unpublished int
		err := s.postgres.DB.QueryRowContext(context.Background(),
			`SELECT COUNT(*) FROM audit_outbox WHERE published_at IS NULL`).Scan(&unpublished)
		return err == nil && unpublished == 0
	}, 10*time.Second, 200*time.Millisecond)
}

// TestListByApplicationReadsBackOutbox verifies the admin trail view reads
// the same payloads the worker publishes.
func (s *OutboxWorkerSuite) TestListByApplicationReadsBackOutbox() {
	ctx := context.Background()
	appID := id.ApplicationID(uuid.New())
	actorID := id.UserID(uuid.New())

	event := audit.Event{
		Timestamp:     time.Now().UTC(),
		ApplicationID: appID,
		ActorID:       actorID,
		Action:        string(audit.EventProofApproved),
		Metadata:      map[string]any{"proof_type": "income"},
	}
	s.Require().NoError(s.store.Append(ctx, event))

	trail, err := s.store.ListByApplication(ctx, appID)
	s.Require().NoError(err)
	s.Require().Len(trail, 1)
	s.Equal(appID, trail[0].ApplicationID)
	s.Equal(actorID, trail[0].ActorID)
	s.Equal(string(audit.EventProofApproved), trail[0].Action)
	s.Equal("income", trail[0].Metadata["proof_type"])
}
