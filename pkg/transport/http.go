package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	ep "github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	trans "github.com/go-kit/kit/transport"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"

	"github.com/SantiagoGigli/transfer-service/pkg/auth"
	"github.com/SantiagoGigli/transfer-service/pkg/endpoint"
	"github.com/SantiagoGigli/transfer-service/pkg/repository"
	"github.com/SantiagoGigli/transfer-service/pkg/service"
)

// API paths
const (
	HealthCheckPath = "/api/healthcheck"
	ReportPath      = "/api/report"
	TransferPath    = "/api/transfer"
	WelcomePath     = "/api"
)

const dateFormat = "2006-01-02"

// ErrInvalidDate error fired when a report date bound cannot be parsed
var ErrInvalidDate = errors.New("Invalid date")

// NewHTTPHandler returns an HTTP handler that makes a set of endpoints
// available on predefined paths. The report and transfer endpoints are gated
// by the given authenticator.
func NewHTTPHandler(endpoints endpoint.Set, authenticator auth.Authenticator, logger log.Logger) http.Handler {
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(errorEncoder),
		httptransport.ServerErrorHandler(trans.NewLogErrorHandler(logger)),
	}

	m := mux.NewRouter()
	m.Methods("GET").Path(HealthCheckPath).Handler(httptransport.NewServer(
		endpoints.HealthCheckEndpoint,
		decodeHTTPHealthCheckRequest,
		encodeHTTPGenericResponse,
		options...,
	))
	m.Methods("GET").Path(ReportPath).Handler(authorize(authenticator, httptransport.NewServer(
		endpoints.ReportEndpoint,
		decodeHTTPReportRequest,
		encodeHTTPGenericResponse,
		options...,
	)))
	m.Methods("POST").Path(TransferPath).Handler(authorize(authenticator, httptransport.NewServer(
		endpoints.TransferEndpoint,
		decodeHTTPTransferRequest,
		encodeHTTPGenericResponse,
		options...,
	)))
	m.Methods("GET").Path(WelcomePath).HandlerFunc(welcome)
	return m
}

func authorize(authenticator auth.Authenticator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := authenticator.Authenticate(r); err != nil {
			errorEncoder(r.Context(), err, w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func welcome(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("<h1>Welcome to the API</h1>"))
}

func errorEncoder(_ context.Context, err error, w http.ResponseWriter) {
	code, message := err2code(err)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorWrapper{Message: message})
}

func err2code(err error) (int, string) {
	switch err {
	case service.ErrMissingAccountFrom, service.ErrMissingAccountTo,
		service.ErrMissingAmount, service.ErrMissingDescription,
		service.ErrSameAccount, service.ErrInsufficientFunds,
		service.ErrConversionFailed, service.ErrTransferFailed,
		service.ErrReportFailed,
		repository.ErrAccountNotFound, repository.ErrUserNotFound,
		ErrInvalidDate:
		return http.StatusBadRequest, err.Error()
	case auth.ErrUnauthorized:
		return http.StatusPaymentRequired, err.Error()
	}
	return http.StatusBadRequest, "Bad request"
}

type errorWrapper struct {
	Message string `json:"message"`
}

// decodeHTTPHealthCheckRequest is a transport/http.DecodeRequestFunc that decodes a
// HealthCheck request. Primarily useful in a server.
func decodeHTTPHealthCheckRequest(_ context.Context, _ *http.Request) (interface{}, error) {
	return endpoint.HealthCheckRequest{}, nil
}

// decodeHTTPReportRequest is a transport/http.DecodeRequestFunc that decodes
// the optional from/to date bounds from the query string. Primarily useful in
// a server.
func decodeHTTPReportRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req endpoint.ReportRequest
	query := r.URL.Query()
	if raw := query.Get("from"); raw != "" {
		from, err := parseDate(raw)
		if err != nil {
			return nil, ErrInvalidDate
		}
		req.From = &from
	}
	if raw := query.Get("to"); raw != "" {
		to, err := parseDate(raw)
		if err != nil {
			return nil, ErrInvalidDate
		}
		req.To = &to
	}
	return req, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(dateFormat, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// decodeHTTPTransferRequest is a transport/http.DecodeRequestFunc that decodes a
// JSON-encoded Transfer request from the HTTP request body. Primarily useful in a
// server.
func decodeHTTPTransferRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req endpoint.TransferRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	return req, err
}

// encodeHTTPGenericResponse is a transport/http.EncodeResponseFunc that encodes
// the response as JSON to the response writer. Primarily useful in a server.
func encodeHTTPGenericResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if f, ok := response.(ep.Failer); ok && f.Failed() != nil {
		errorEncoder(ctx, f.Failed(), w)
		return nil
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(response)
}
