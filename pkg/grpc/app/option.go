package app

import (
	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// Option customizes the servers started by Run.
type Option func(o *options)

type options struct {
	unary  []grpc.UnaryServerInterceptor
	stream []grpc.StreamServerInterceptor
}

// WithUnaryServerInterceptor appends interceptor to the unary chain. It runs
// after the default metrics and panic recovery interceptors.
func WithUnaryServerInterceptor(interceptor grpc.UnaryServerInterceptor) Option {
	return func(o *options) {
		o.unary = append(o.unary, interceptor)
	}
}

// WithStreamServerInterceptor appends interceptor to the stream chain. It runs
// after the default metrics and panic recovery interceptors.
func WithStreamServerInterceptor(interceptor grpc.StreamServerInterceptor) Option {
	return func(o *options) {
		o.stream = append(o.stream, interceptor)
	}
}

func (o *options) apply(opts ...Option) *options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) serverOptions(creds credentials.TransportCredentials) []grpc.ServerOption {
	serverOpts := []grpc.ServerOption{
		grpc_middleware.WithUnaryServerChain(o.unary...),
		grpc_middleware.WithStreamServerChain(o.stream...),
	}
	if creds != nil {
		serverOpts = append(serverOpts, grpc.Creds(creds))
	}
	return serverOpts
}
