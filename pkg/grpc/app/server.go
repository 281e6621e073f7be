package app

import (
	"context"
	"crypto/tls"
	"net"

	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthgrpc "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/code-payments/todo-server/pkg/grpc/metrics"
)

// defaultOptions installs metrics first, when enabled, so recovered panics
// are still recorded against the call.
func defaultOptions(log *logrus.Entry, metricsProvider *newrelic.Application) *options {
	recovery := grpc_recovery.WithRecoveryHandler(func(p interface{}) error {
		log.WithField("panic", p).Error("recovered from panic in grpc handler")
		return status.Error(codes.Internal, "internal error")
	})

	o := &options{}
	if metricsProvider != nil {
		o.unary = append(o.unary, metrics.CustomNewRelicUnaryServerInterceptor(metricsProvider))
		o.stream = append(o.stream, metrics.CustomNewRelicStreamServerInterceptor(metricsProvider))
	}
	o.unary = append(o.unary, grpc_recovery.UnaryServerInterceptor(recovery))
	o.stream = append(o.stream, grpc_recovery.StreamServerInterceptor(recovery))
	return o
}

// server pairs a gRPC server with the listener it serves.
type server struct {
	name     string
	grpc     *grpc.Server
	listener net.Listener
	done     chan struct{}
}

// newServers opens the insecure listener and, when TLS is configured, the
// secure one. Each server has the application's services and a health
// service registered.
func newServers(ctx context.Context, config BaseConfig, app App, o *options) ([]*server, error) {
	var servers []*server
	closeAll := func() {
		for _, s := range servers {
			s.listener.Close()
		}
	}

	add := func(name, address string, creds credentials.TransportCredentials) error {
		lis, err := net.Listen("tcp", address)
		if err != nil {
			return errors.Wrapf(err, "failed to listen on %s", address)
		}

		s := &server{
			name:     name,
			grpc:     grpc.NewServer(o.serverOptions(creds)...),
			listener: lis,
			done:     make(chan struct{}),
		}
		app.RegisterWithGRPC(s.grpc)
		healthgrpc.RegisterHealthServer(s.grpc, health.NewServer())

		servers = append(servers, s)
		return nil
	}

	if err := add("insecure", config.InsecureListenAddress, nil); err != nil {
		return nil, err
	}

	if config.TLSCertificate != "" {
		creds, err := loadTransportCredentials(ctx, config)
		if err != nil {
			closeAll()
			return nil, err
		}
		if err := add("secure", config.ListenAddress, creds); err != nil {
			closeAll()
			return nil, err
		}
	}

	return servers, nil
}

func loadTransportCredentials(ctx context.Context, config BaseConfig) (credentials.TransportCredentials, error) {
	certPEM, err := LoadFile(ctx, config.TLSCertificate)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load tls certificate")
	}
	keyPEM, err := LoadFile(ctx, config.TLSKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load tls key")
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, errors.Wrap(err, "invalid certificate/private key")
	}
	return credentials.NewServerTLSFromCert(&cert), nil
}

func (s *server) serve(log *logrus.Entry) {
	defer close(s.done)

	log = log.WithField("server", s.name)
	log.WithField("address", s.listener.Addr().String()).Info("serving grpc")
	if err := s.grpc.Serve(s.listener); err != nil {
		log.WithError(err).Error("grpc serve stopped")
		return
	}
	log.Info("grpc server stopped")
}
