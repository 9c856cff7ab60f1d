//go:build integration

package containers

import (
	"context"
	"testing"

	tcredpanda "github.com/testcontainers/testcontainers-go/modules/redpanda"
)

// RedpandaContainer wraps a testcontainers Redpanda instance, a
// Kafka-compatible broker for exercising the producer path.
type RedpandaContainer struct {
	Container *tcredpanda.Container
	Broker    string
}

// NewRedpandaContainer starts a new Redpanda container and resolves its
// seed broker address.
func NewRedpandaContainer(t *testing.T) *RedpandaContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcredpanda.Run(ctx, "docker.redpanda.com/redpandadata/redpanda:v24.3.7")
	if err != nil {
		t.Fatalf("failed to start redpanda container: %v", err)
	}

	broker, err := container.KafkaSeedBroker(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get redpanda broker address: %v", err)
	}

	rc := &RedpandaContainer{
		Container: container,
		Broker:    broker,
	}

	t.Cleanup(func() {
		_ = rc.Container.Terminate(context.Background())
	})

	return rc
}
