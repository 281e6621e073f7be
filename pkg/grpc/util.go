package grpc

import (
	"strings"

	"github.com/pkg/errors"
	healthgrpc "google.golang.org/grpc/health/grpc_health_v1"
)

var errInvalidFullMethodName = errors.New("invalid full method name")

// ParseFullMethodName splits a full method name of the form
// /package.Service/Method. The package must be present.
func ParseFullMethodName(fullMethodName string) (packageName, serviceName, methodName string, err error) {
	qualifiedService, methodName, ok := strings.Cut(strings.TrimPrefix(fullMethodName, "/"), "/")
	if !ok || !strings.HasPrefix(fullMethodName, "/") || !isIdentifier(methodName) {
		return "", "", "", errInvalidFullMethodName
	}

	dot := strings.LastIndexByte(qualifiedService, '.')
	if dot < 0 {
		return "", "", "", errInvalidFullMethodName
	}
	packageName, serviceName = qualifiedService[:dot], qualifiedService[dot+1:]

	if !isIdentifier(serviceName) {
		return "", "", "", errInvalidFullMethodName
	}
	for _, part := range strings.Split(packageName, ".") {
		if !isIdentifier(part) {
			return "", "", "", errInvalidFullMethodName
		}
	}

	return packageName, serviceName, methodName, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}

// IsHealthCheckEndpoint reports whether fullMethodName is the standard health
// check, which load balancers poll continuously.
func IsHealthCheckEndpoint(fullMethodName string) bool {
	return fullMethodName == healthgrpc.Health_Check_FullMethodName
}
