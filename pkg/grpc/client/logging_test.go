package client

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/metadata"
)

func TestInjectLoggingMetadata(t *testing.T) {
	log := logrus.NewEntry(logrus.New()).WithField("method", "SubmitTransaction")

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
		UserAgentHeaderName, "todo-cli/1.2.0 grpc-go/1.67.1",
		clientIPHeader, "203.0.113.7",
	))
	annotated := InjectLoggingMetadata(ctx, log)
	assert.Equal(t, "SubmitTransaction", annotated.Data["method"])
	assert.Equal(t, "todo-cli/1.2.0 grpc-go/1.67.1", annotated.Data["user_agent"])
	assert.Equal(t, "todo-cli", annotated.Data["client_product"])
	assert.Equal(t, "1.2.0", annotated.Data["client_version"])
	assert.Equal(t, "203.0.113.7", annotated.Data["client_ip"])

	// Nothing is known about the client
	assert.Same(t, log, InjectLoggingMetadata(context.Background(), log))
}
