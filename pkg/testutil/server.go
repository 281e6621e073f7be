package testutil

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthgrpc "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/code-payments/todo-server/pkg/netutil"
	"github.com/code-payments/todo-server/pkg/retry"
	"github.com/code-payments/todo-server/pkg/retry/backoff"
)

const (
	healthCheckTimeout  = 100 * time.Millisecond
	healthCheckAttempts = 10
)

// ServerOption adds interceptors to the server started by NewServer.
type ServerOption func(o *serverOptions)

type serverOptions struct {
	unary  []grpc.UnaryServerInterceptor
	stream []grpc.StreamServerInterceptor
}

func WithUnaryServerInterceptor(i grpc.UnaryServerInterceptor) ServerOption {
	return func(o *serverOptions) {
		o.unary = append(o.unary, i)
	}
}

func WithStreamServerInterceptor(i grpc.StreamServerInterceptor) ServerOption {
	return func(o *serverOptions) {
		o.stream = append(o.stream, i)
	}
}

// NewServer serves the services installed by register on a local port and
// returns a client connection to it once it answers health checks. The server
// and connection are closed when the test ends.
func NewServer(t testing.TB, register func(s *grpc.Server), opts ...ServerOption) *grpc.ClientConn {
	o := serverOptions{
		unary:  []grpc.UnaryServerInterceptor{grpc_recovery.UnaryServerInterceptor()},
		stream: []grpc.StreamServerInterceptor{grpc_recovery.StreamServerInterceptor()},
	}
	for _, opt := range opts {
		opt(&o)
	}

	port, err := netutil.GetAvailablePortForAddress("localhost")
	require.NoError(t, err)
	address := net.JoinHostPort("localhost", strconv.Itoa(int(port)))

	listener, err := net.Listen("tcp", address)
	require.NoError(t, err)

	server := grpc.NewServer(
		grpc_middleware.WithUnaryServerChain(o.unary...),
		grpc_middleware.WithStreamServerChain(o.stream...),
	)
	healthgrpc.RegisterHealthServer(server, health.NewServer())
	register(server)

	go func() {
		err := server.Serve(listener)
		logrus.StandardLogger().WithField("type", "testutil/server").WithError(err).Debug("stopped")
	}()
	t.Cleanup(server.Stop)

	// note: this is safe since we don't specify grpc.WithBlock()
	conn, err := grpc.Dial(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	_, err = retry.Retry(
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
			defer cancel()

			_, err := healthgrpc.NewHealthClient(conn).Check(ctx, &healthgrpc.HealthCheckRequest{})
			return err
		},
		retry.Limit(healthCheckAttempts),
		retry.Backoff(backoff.Constant(healthCheckTimeout), healthCheckTimeout),
	)
	require.NoError(t, err, "test server never became healthy")

	return conn
}
