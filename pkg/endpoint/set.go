package endpoint

import (
	"context"
	"time"

	ep "github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/shopspring/decimal"

	"github.com/SantiagoGigli/transfer-service/pkg/repository"
	"github.com/SantiagoGigli/transfer-service/pkg/service"
)

// Set collects all of the endpoints that compose the transfer service. It's
// meant to be used as a helper struct, to collect all of the endpoints into a
// single parameter.
type Set struct {
	HealthCheckEndpoint ep.Endpoint
	TransferEndpoint    ep.Endpoint
	ReportEndpoint      ep.Endpoint
}

// New returns a Set that wraps the provided server, and wires in all of the
// expected endpoint middlewares via the various parameters.
func New(svc service.Service, logger log.Logger) Set {
	var healthCheckEndpoint ep.Endpoint
	{
		healthCheckEndpoint = MakeHealthCheckEndpoint(svc)
		healthCheckEndpoint = LoggingMiddleware(log.With(logger, "method", "HealthCheck"))(healthCheckEndpoint)
	}
	var transferEndpoint ep.Endpoint
	{
		transferEndpoint = MakeTransferEndpoint(svc)
		transferEndpoint = LoggingMiddleware(log.With(logger, "method", "Transfer"))(transferEndpoint)
	}
	var reportEndpoint ep.Endpoint
	{
		reportEndpoint = MakeReportEndpoint(svc)
		reportEndpoint = LoggingMiddleware(log.With(logger, "method", "Report"))(reportEndpoint)
	}
	return Set{
		HealthCheckEndpoint: healthCheckEndpoint,
		TransferEndpoint:    transferEndpoint,
		ReportEndpoint:      reportEndpoint,
	}
}

// HealthCheck implements the service interface, so Set may be used as a service.
// This is primarily useful in the context of a client library.
func (s Set) HealthCheck(ctx context.Context) (bool, error) {
	resp, err := s.HealthCheckEndpoint(ctx, HealthCheckRequest{})
	if err != nil {
		return false, err
	}
	response := resp.(HealthCheckResponse)
	return response.Success, response.Err
}

// Transfer implements the service interface, so Set may be used as a service.
// This is primarily useful in the context of a client library.
func (s Set) Transfer(ctx context.Context, accountFrom, accountTo string, amount decimal.Decimal, description string) (*repository.Transfer, error) {
	resp, err := s.TransferEndpoint(ctx, TransferRequest{
		AccountFrom: accountFrom,
		AccountTo:   accountTo,
		Amount:      amount,
		Description: description,
	})
	if err != nil {
		return nil, err
	}
	response := resp.(TransferResponse)
	return response.Data, response.Err
}

// Report implements the service interface, so Set may be used as a service.
// This is primarily useful in the context of a client library.
func (s Set) Report(ctx context.Context, from, to *time.Time) (service.Report, error) {
	resp, err := s.ReportEndpoint(ctx, ReportRequest{From: from, To: to})
	if err != nil {
		return nil, err
	}
	response := resp.(ReportResponse)
	return response.Data, response.Err
}

// MakeHealthCheckEndpoint constructs a HealthCheck endpoint wrapping the service.
func MakeHealthCheckEndpoint(s service.Service) ep.Endpoint {
	return func(ctx context.Context, _ interface{}) (response interface{}, err error) {
		v, err := s.HealthCheck(ctx)
		return HealthCheckResponse{Success: v, Err: err}, nil
	}
}

// MakeTransferEndpoint constructs a Transfer endpoint wrapping the service.
func MakeTransferEndpoint(s service.Service) ep.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(TransferRequest)
		transfer, err := s.Transfer(ctx, req.AccountFrom, req.AccountTo, req.Amount, req.Description)
		if err != nil {
			return TransferResponse{Err: err}, nil
		}
		return TransferResponse{
			StatusCode: 200,
			Success:    "Transfer created",
			Data:       transfer,
		}, nil
	}
}

// MakeReportEndpoint constructs a Report endpoint wrapping the service.
func MakeReportEndpoint(s service.Service) ep.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(ReportRequest)
		report, err := s.Report(ctx, req.From, req.To)
		if err != nil {
			return ReportResponse{Err: err}, nil
		}
		return ReportResponse{
			StatusCode: 200,
			Success:    "Ok",
			Data:       report,
		}, nil
	}
}

// compile time assertions for our response types implementing endpoint.Failer.
var (
	_ ep.Failer = HealthCheckResponse{}
	_ ep.Failer = TransferResponse{}
	_ ep.Failer = ReportResponse{}
)

// HealthCheckRequest collects the request parameters for the HealthCheck method.
type HealthCheckRequest struct{}

// TransferRequest collects the request parameters for the Transfer method.
type TransferRequest struct {
	AccountFrom string          `json:"accountFrom"`
	AccountTo   string          `json:"accountTo"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// ReportRequest collects the request parameters for the Report method.
type ReportRequest struct {
	From *time.Time
	To   *time.Time
}

// HealthCheckResponse collects the response values for the HealthCheck method.
type HealthCheckResponse struct {
	Success bool  `json:"success"`
	Err     error `json:"-"`
}

// TransferResponse collects the response values for the Transfer method.
type TransferResponse struct {
	StatusCode int                  `json:"statusCode"`
	Success    string               `json:"success"`
	Data       *repository.Transfer `json:"data"`
	Err        error                `json:"-"`
}

// ReportResponse collects the response values for the Report method.
type ReportResponse struct {
	StatusCode int            `json:"statusCode"`
	Success    string         `json:"success"`
	Data       service.Report `json:"data"`
	Err        error          `json:"-"`
}

// Failed implements endpoint.Failer.
func (r HealthCheckResponse) Failed() error {
	return r.Err
}

// Failed implements endpoint.Failer.
func (r TransferResponse) Failed() error {
	return r.Err
}

// Failed implements endpoint.Failer.
func (r ReportResponse) Failed() error {
	return r.Err
}
