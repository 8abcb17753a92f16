//go:build integration

package integration_test

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/flight-movement-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/flight-movement-etl/internal/domain"
	"github.com/couchcryptid/flight-movement-etl/internal/observability"
	"github.com/couchcryptid/flight-movement-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// sampleCSV holds three arrivals (one of them a manual-entry carrier), one
// row with both times, one row with nothing to classify, and one bad time.
const sampleCSV = `flight_no,callsign,airline,ac_type,icao,actual_time,schedule_time,actual_in,actual_out,gate
AA100,AAL100,American Airlines,B738,KJFK,2024-04-26 08:00:00,,,,A1
BA200,BAW200,British Airways,B77W,EGLL,,2024-04-26T09:30:00Z,,,B7
EK300,UAE300,Emirates,A388,OMDB,2024-04-26 10:00:00,,,,C3
LH400,DLH400,Lufthansa,A320,EDDF,,,2024-04-26 11:00:00,2024-04-26 12:30:00,D4
KL500,KLM500,KLM,E190,EHAM,,,,,E5
AF600,AFR600,Air France,A321,LFPG,not-a-time,,,,F6
`

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newImporter() *pipeline.Importer {
	rules := domain.MustRuleTable(domain.DefaultRules())
	clock := clockwork.NewFakeClockAt(mustTime("2024-04-26T06:00:00Z"))
	return pipeline.NewImporter(domain.NewClassifier(rules, clock), discardLogger(), observability.NewMetricsForTesting())
}

func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleSource() pipeline.Source {
	return csvfile.NewReader(strings.NewReader(sampleCSV), discardLogger())
}

// startKafka launches a single-node Kafka broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("flight-import-test"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// startPostgres launches Postgres and returns a lib/pq DSN.
func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("flights"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

// startRedis launches Redis and returns its host:port.
func startRedis(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tcredis.Run(ctx, "redis:7-alpine",
		testcontainers.WithWaitStrategy(wait.ForLog("Ready to accept connections")),
	)
	require.NoError(t, err, "start redis container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate redis container: %v", err)
		}
	})

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return addr
}
