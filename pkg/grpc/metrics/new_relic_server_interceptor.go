// Package metrics instruments the gRPC server with New Relic transactions.
package metrics

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/newrelic/go-agent/v3/newrelic"
	grpc_core "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/code-payments/todo-server/pkg/grpc"
	"github.com/code-payments/todo-server/pkg/grpc/client"
	"github.com/code-payments/todo-server/pkg/metrics"
)

const (
	grpcRequestPackageAttributeKey = "grpc.request.package"
	grpcRequestServiceAttributeKey = "grpc.request.service"
	grpcRequestMethodAttributeKey  = "grpc.request.method"

	grpcResponseStatusCodeAttributeKey      = "grpc.response.statusCode"
	grpcResponseStatusMessageAttributeKey   = "grpc.response.statusMessage"
	grpcResponseStatusCodeLevelAttributeKey = "grpc.response.statusCodeLevel"

	clientUserAgentAttributeKey        = "grpc.client.userAgent"
	clientUserAgentProductAttributeKey = "grpc.client.product"
	clientIPAttributeKey               = "grpc.client.ip"
)

type statusLevel string

const (
	infoLevel    statusLevel = "info"
	warningLevel statusLevel = "warning"
	errorLevel   statusLevel = "error"
)

// Rejected transactions surface as client-side codes, so they're reported at
// info or warning. Only server faults are noticed as errors.
var statusLevels = map[codes.Code]statusLevel{
	codes.OK:              infoLevel,
	codes.AlreadyExists:   infoLevel, // duplicate signature
	codes.Canceled:        infoLevel,
	codes.InvalidArgument: infoLevel, // malformed transaction
	codes.NotFound:        infoLevel, // unknown account
	codes.Unauthenticated: infoLevel, // bad signature

	codes.Aborted:            warningLevel, // account lock contention
	codes.DeadlineExceeded:   warningLevel,
	codes.FailedPrecondition: warningLevel, // instruction failure
	codes.OutOfRange:         warningLevel,
	codes.PermissionDenied:   warningLevel,
	codes.ResourceExhausted:  warningLevel, // payer rate limited
	codes.Unavailable:        warningLevel,
}

func levelFor(code codes.Code) statusLevel {
	if level, ok := statusLevels[code]; ok {
		return level
	}
	return errorLevel
}

// CustomNewRelicUnaryServerInterceptor records a New Relic transaction per
// unary call. With a nil app it passes calls straight through.
func CustomNewRelicUnaryServerInterceptor(app *newrelic.Application) grpc_core.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc_core.UnaryServerInfo, handler grpc_core.UnaryHandler) (interface{}, error) {
		// Load balancer health checks would otherwise dominate transaction counts
		if app == nil || grpc.IsHealthCheckEndpoint(info.FullMethod) {
			return handler(ctx, req)
		}

		ctx, txn := instrument(ctx, app, info.FullMethod)
		defer txn.End()

		resp, err := handler(ctx, req)
		recordStatus(txn, status.Convert(err))
		return resp, err
	}
}

// CustomNewRelicStreamServerInterceptor is the streaming counterpart of
// CustomNewRelicUnaryServerInterceptor.
func CustomNewRelicStreamServerInterceptor(app *newrelic.Application) grpc_core.StreamServerInterceptor {
	return func(srv interface{}, ss grpc_core.ServerStream, info *grpc_core.StreamServerInfo, handler grpc_core.StreamHandler) error {
		if app == nil {
			return handler(srv, ss)
		}

		ctx, txn := instrument(ss.Context(), app, info.FullMethod)
		defer txn.End()

		err := handler(srv, &contextStream{ServerStream: ss, ctx: ctx})
		recordStatus(txn, status.Convert(err))
		return err
	}
}

type contextStream struct {
	grpc_core.ServerStream
	ctx context.Context
}

func (s *contextStream) Context() context.Context {
	return s.ctx
}

// instrument starts a transaction for fullMethod and returns a context that
// carries both the app, for custom events, and the transaction.
func instrument(ctx context.Context, app *newrelic.Application, fullMethod string) (context.Context, *newrelic.Transaction) {
	ctx = metrics.NewContext(ctx, app)

	method := strings.TrimPrefix(fullMethod, "/")
	header := incomingHeader(ctx)

	txn := app.StartTransaction(method)
	txn.SetWebRequest(newrelic.WebRequest{
		Header:    header,
		URL:       requestURL(method, header.Get(":authority")),
		Method:    method,
		Transport: newrelic.TransportHTTP,
	})

	if packageName, serviceName, methodName, err := grpc.ParseFullMethodName(fullMethod); err == nil {
		txn.AddAttribute(grpcRequestPackageAttributeKey, packageName)
		txn.AddAttribute(grpcRequestServiceAttributeKey, serviceName)
		txn.AddAttribute(grpcRequestMethodAttributeKey, methodName)
	}

	if userAgent, err := client.GetUserAgent(ctx); err == nil {
		txn.AddAttribute(clientUserAgentAttributeKey, userAgent.String())
		if userAgent.Product != "" {
			txn.AddAttribute(clientUserAgentProductAttributeKey, userAgent.Product)
		}
	}
	if ip, err := client.GetIPAddr(ctx); err == nil {
		txn.AddAttribute(clientIPAttributeKey, ip)
	}

	return newrelic.NewContext(ctx, txn), txn
}

func recordStatus(txn *newrelic.Transaction, s *status.Status) {
	level := levelFor(s.Code())

	// gRPC failures travel in trailers, so the HTTP status is always 200
	txn.SetWebResponse(nil).WriteHeader(http.StatusOK)
	txn.AddAttribute(grpcResponseStatusCodeAttributeKey, s.Code().String())
	txn.AddAttribute(grpcResponseStatusMessageAttributeKey, s.Message())
	txn.AddAttribute(grpcResponseStatusCodeLevelAttributeKey, string(level))

	if level == errorLevel {
		txn.NoticeError(&newrelic.Error{
			Message: s.Message(),
			Class:   "gRPC Status: " + s.Code().String(),
		})
	}
}

func incomingHeader(ctx context.Context) http.Header {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return http.Header{}
	}

	header := make(http.Header, len(md))
	for key, values := range md {
		for _, value := range values {
			header.Add(key, value)
		}
	}
	return header
}

// requestURL builds a grpc:// URL from the dialed target, which may use any
// of gRPC's naming schemes.
func requestURL(method, target string) *url.URL {
	host := strings.TrimPrefix(target, "dns:///")
	if strings.HasPrefix(target, "unix:") {
		host = "localhost"
	}
	return &url.URL{Scheme: "grpc", Host: host, Path: method}
}
