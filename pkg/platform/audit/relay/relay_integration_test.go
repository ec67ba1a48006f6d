//go:build integration

package relay_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	id "condo/pkg/domain"
	audit "condo/pkg/platform/audit"
	"condo/pkg/platform/audit/relay"
	auditpostgres "condo/pkg/platform/audit/store/postgres"
	"condo/pkg/platform/tx"
	"condo/pkg/testutil/containers"
)

type KafkaRelaySuite struct {
	suite.Suite
	pg       *containers.PostgresContainer
	broker   string
	store    *auditpostgres.Store
	runner   *tx.SQLRunner
	topic    string
	producer *relay.KafkaProducer
}

func TestKafkaRelaySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaRelaySuite))
}

func (s *KafkaRelaySuite) SetupSuite() {
	mgr := containers.GetManager()
	s.pg = mgr.GetPostgres(s.T())
	s.broker = mgr.GetRedpanda(s.T()).Broker
	s.store = auditpostgres.New(s.pg.DB)
	s.runner = tx.NewSQLRunner(s.pg.DB, 5*time.Second)
}

func (s *KafkaRelaySuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.pg.TruncateTables(ctx, "audit_outbox"))
	s.topic = "condo-audit-" + uuid.NewString()[:8]
	producer, err := relay.NewKafkaProducer(ctx, []string{s.broker}, s.topic)
	s.Require().NoError(err)
	s.producer = producer
}

func (s *KafkaRelaySuite) TearDownTest() {
	s.producer.Close()
}

func (s *KafkaRelaySuite) TestCommittedEventsReachTopic() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())

	s.Require().NoError(s.runner.RunInTx(ctx, func(ctx context.Context) error {
		return s.store.Append(ctx, audit.Event{
			Action:    string(audit.EventIdentityRegistered),
			Timestamp: time.Now(),
			UserID:    userID,
			Subject:   "ana@example.com",
		})
	}))

	r := relay.New(s.store, s.runner, s.producer, slog.New(slog.NewTextHandler(io.Discard, nil)))
	n, err := r.RelayOnce(ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	pending, err := s.store.CountPending(ctx)
	s.Require().NoError(err)
	s.Zero(pending)

	record := s.consumeOne(ctx)
	s.Equal(userID.String(), string(record.Key))
	headers := map[string]string{}
	for _, h := range record.Headers {
		headers[h.Key] = string(h.Value)
	}
	s.Equal(string(audit.EventIdentityRegistered), headers["event_type"])
	s.Equal(string(audit.CategoryCompliance), headers["category"])

	var payload audit.Payload
	s.Require().NoError(json.Unmarshal(record.Value, &payload))
	s.Equal("ana@example.com", payload.Subject)
	s.Equal(userID.String(), payload.UserID)
}

func (s *KafkaRelaySuite) TestRolledBackEventsAreNeverRelayed() {
	ctx := context.Background()

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Append(ctx, audit.Event{
			Action:    string(audit.EventPersonDeleted),
			Timestamp: time.Now(),
		}); err != nil {
			return err
		}
		return context.Canceled
	})
	s.Require().ErrorIs(err, context.Canceled)

	r := relay.New(s.store, s.runner, s.producer, slog.New(slog.NewTextHandler(io.Discard, nil)))
	n, err := r.RelayOnce(ctx)
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *KafkaRelaySuite) consumeOne(ctx context.Context) *kgo.Record {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker),
		kgo.ConsumeTopics(s.topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	for {
		fetches := client.PollFetches(ctx)
		s.Require().NoError(ctx.Err(), "no record arrived on %s", s.topic)
		if errs := fetches.Errors(); len(errs) > 0 {
			s.Require().NoError(errs[0].Err)
		}
		if records := fetches.Records(); len(records) > 0 {
			return records[0]
		}
	}
}
