package web

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/code-payments/todo-server/pkg/solana"
	ledgerpb "github.com/code-payments/todo-server/pkg/todo/server/grpc/ledger"
)

const (
	v1PathPrefix            = "/v1"
	v1SubmitTransactionPath = v1PathPrefix + "/submitTransaction"
	v1GetAccountPath        = v1PathPrefix + "/getAccount"
	v1GetTodosPath          = v1PathPrefix + "/getTodos"

	contentTypeHeaderName      = "content-type"
	jsonContentTypeHeaderValue = "application/json"

	// Base64 inflates the wire transaction by a third, plus room for the
	// surrounding JSON.
	maxRequestBodySize = 2 * solana.MaxTransactionSize
)

// Server exposes the Ledger service as a small JSON API for web clients.
type Server struct {
	log    *logrus.Entry
	client ledgerpb.LedgerClient
}

func NewLedgerWebServer(cc *grpc.ClientConn) *Server {
	return &Server{
		log:    logrus.StandardLogger().WithField("type", "web/server"),
		client: ledgerpb.NewLedgerClient(cc),
	}
}

func (s *Server) submitTransactionHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithField("path", path)

		statusCode, body := func() (int, GenericApiResponseBody) {
			ctx := r.Context()

			if r.Method != http.MethodPost {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("http post expected"))
			}

			httpRequestBody := struct {
				Transaction string `json:"transaction"`
			}{}

			encoded, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
			if err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(err)
			}
			if err := json.Unmarshal(encoded, &httpRequestBody); err != nil {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("invalid request body"))
			}

			raw, err := base64.StdEncoding.DecodeString(httpRequestBody.Transaction)
			if err != nil || len(raw) == 0 {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("transaction is not valid base64"))
			}

			resp, err := s.client.SubmitTransaction(ctx, wrapperspb.Bytes(raw))
			if err != nil {
				log.WithError(err).Debug("failure submitting transaction")
				return NewTransactionFailureResponseBody(err)
			}

			respBody := NewGenericApiSuccessResponseBody()
			for k, v := range resp.AsMap() {
				respBody[k] = v
			}
			return http.StatusOK, respBody
		}()

		writeResponse(log, w, statusCode, body)
	}
}

func (s *Server) getAccountHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithField("path", path)

		statusCode, body := func() (int, GenericApiResponseBody) {
			ctx := r.Context()

			if r.Method != http.MethodGet {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("http get expected"))
			}

			addressQueryParam := r.URL.Query()["address"]
			if len(addressQueryParam) < 1 {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("address query parameter missing"))
			}
			log = log.WithField("address", addressQueryParam[0])

			resp, err := s.client.GetAccount(ctx, wrapperspb.String(addressQueryParam[0]))
			if err != nil {
				log.WithError(err).Debug("failure getting account")
				statusCode, err := HandleGrpcErrorInWebContext(err)
				return statusCode, NewGenericApiFailureResponseBody(err)
			}

			respBody := NewGenericApiSuccessResponseBody()
			respBody["account"] = resp.AsMap()
			return http.StatusOK, respBody
		}()

		writeResponse(log, w, statusCode, body)
	}
}

func (s *Server) getTodosHandler(path string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithField("path", path)

		statusCode, body := func() (int, GenericApiResponseBody) {
			ctx := r.Context()

			if r.Method != http.MethodGet {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("http get expected"))
			}

			profileQueryParam := r.URL.Query()["profile"]
			if len(profileQueryParam) < 1 {
				return http.StatusBadRequest, NewGenericApiFailureResponseBody(errors.New("profile query parameter missing"))
			}
			log = log.WithField("profile", profileQueryParam[0])

			resp, err := s.client.GetTodos(ctx, wrapperspb.String(profileQueryParam[0]))
			if err != nil {
				log.WithError(err).Debug("failure getting todos")
				statusCode, err := HandleGrpcErrorInWebContext(err)
				return statusCode, NewGenericApiFailureResponseBody(err)
			}

			todos := resp.AsSlice()
			if todos == nil {
				todos = []any{}
			}

			respBody := NewGenericApiSuccessResponseBody()
			respBody["todos"] = todos
			return http.StatusOK, respBody
		}()

		writeResponse(log, w, statusCode, body)
	}
}

func (s *Server) GetHandlers() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		v1SubmitTransactionPath: s.submitTransactionHandler(v1SubmitTransactionPath),
		v1GetAccountPath:        s.getAccountHandler(v1GetAccountPath),
		v1GetTodosPath:          s.getTodosHandler(v1GetTodosPath),
	}
}

func writeResponse(log *logrus.Entry, w http.ResponseWriter, statusCode int, body GenericApiResponseBody) {
	w.Header().Set(contentTypeHeaderName, jsonContentTypeHeaderValue)
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(body.ToString())); err != nil {
		log.WithError(err).Warn("failed to write body")
	}
}
