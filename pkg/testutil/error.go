package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AssertStatusErrorWithCode fails the test unless err is a gRPC status error
// carrying code.
func AssertStatusErrorWithCode(t testing.TB, err error, code codes.Code) {
	t.Helper()

	require.Error(t, err)
	s, ok := status.FromError(err)
	require.True(t, ok, "not a grpc status error: %v", err)
	require.Equal(t, code, s.Code(), "unexpected status: %s", s.Message())
}
