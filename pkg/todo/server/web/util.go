package web

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	ledgerpb "github.com/code-payments/todo-server/pkg/todo/server/grpc/ledger"
)

const (
	successJsonKey          = "success"
	errorJsonKey            = "error"
	transactionErrorJsonKey = "transaction_error"
)

type GenericApiResponseBody map[string]any

func NewGenericApiSuccessResponseBody() GenericApiResponseBody {
	return map[string]any{
		successJsonKey: true,
	}
}

func NewGenericApiFailureResponseBody(err error) GenericApiResponseBody {
	return map[string]any{
		successJsonKey: false,
		errorJsonKey:   err.Error(),
	}
}

func (b *GenericApiResponseBody) ToString() string {
	marshalled, _ := json.Marshal(b)
	return string(marshalled)
}

// NewTransactionFailureResponseBody builds a failure body for a
// SubmitTransaction error. Transaction failures carry their structured error
// alongside the generic message.
func NewTransactionFailureResponseBody(err error) (int, GenericApiResponseBody) {
	statusCode, webErr := HandleGrpcErrorInWebContext(err)
	body := NewGenericApiFailureResponseBody(webErr)

	txErr, ok := ledgerpb.TransactionErrorFromStatus(err)
	if !ok {
		return statusCode, body
	}

	encoded, jsonErr := txErr.JSONString()
	if jsonErr != nil {
		return statusCode, body
	}

	var raw any
	if jsonErr := json.Unmarshal([]byte(encoded), &raw); jsonErr == nil {
		body[errorJsonKey] = txErr.Error()
		body[transactionErrorJsonKey] = raw
	}
	return statusCode, body
}

func HandleGrpcErrorInWebContext(err error) (int, error) {
	if err == nil {
		return http.StatusOK, nil
	}

	statusErr, ok := status.FromError(err)
	if !ok {
		return http.StatusInternalServerError, errors.New("internal server error")
	}

	switch statusErr.Code() {
	case codes.OK:
		return http.StatusOK, nil
	case codes.InvalidArgument:
		return http.StatusBadRequest, errors.New(statusErr.Message())
	case codes.NotFound:
		return http.StatusNotFound, errors.New(statusErr.Message())
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict, errors.New(statusErr.Message())
	case codes.FailedPrecondition:
		return http.StatusUnprocessableEntity, errors.New(statusErr.Message())
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests, errors.New("rate limited")
	case codes.Unimplemented:
		return http.StatusNotImplemented, errors.New("not implemented")
	case codes.Unauthenticated:
		return http.StatusUnauthorized, errors.New("authentication failed")
	case codes.PermissionDenied:
		return http.StatusForbidden, errors.New("permission denied")
	case codes.Canceled, codes.DeadlineExceeded:
		return http.StatusRequestTimeout, errors.New("request timed out")
	default:
		return http.StatusInternalServerError, errors.New("internal server error")
	}
}
