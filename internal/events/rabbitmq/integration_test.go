//go:build integration

package rabbitmq_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"polgen/internal/config"
	"polgen/internal/domain"
	"polgen/internal/events"
	"polgen/internal/events/rabbitmq"
)

func startRabbitMQ(t *testing.T) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-alpine",
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor:   wait.ForListeningPort("5672/tcp").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cleanupCancel()
		_ = container.Terminate(cleanupCtx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5672")
	require.NoError(t, err)
	return "amqp://guest:guest@" + host + ":" + port.Port() + "/"
}

func TestPublisher_Integration(t *testing.T) {
	url := startRabbitMQ(t)
	cfg := &config.EventsConfig{URL: url, Exchange: "acquisitions.events"}

	pub, err := rabbitmq.Dial(cfg)
	require.NoError(t, err)
	defer pub.Close()

	conn, err := amqp.Dial(url)
	require.NoError(t, err)
	defer conn.Close()
	ch, err := conn.Channel()
	require.NoError(t, err)

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, "pol.#", cfg.Exchange, false, nil))
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	res := &domain.SubmissionResult{Identifier: "9780306406157", POLNumber: "POL-9"}
	require.NoError(t, pub.PublishPOLCreated(context.Background(), "run-1", res))

	select {
	case d := <-deliveries:
		assert.Equal(t, events.POLCreatedRoutingKey, d.RoutingKey)
		var ev events.Envelope[events.POLCreated]
		require.NoError(t, json.Unmarshal(d.Body, &ev))
		assert.Equal(t, "POL-9", ev.Payload.POLNumber)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for pol.created.v1")
	}
}
