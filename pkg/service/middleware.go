package service

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/shopspring/decimal"

	"github.com/SantiagoGigli/transfer-service/pkg/repository"
)

// Middleware describes a service (as opposed to endpoint) middleware.
type Middleware func(Service) Service

// LoggingMiddleware takes a logger as a dependency
// and returns a ServiceMiddleware.
func LoggingMiddleware(logger log.Logger) Middleware {
	return func(next Service) Service {
		return loggingMiddleware{logger, next}
	}
}

type loggingMiddleware struct {
	logger log.Logger
	next   Service
}

func (mw loggingMiddleware) HealthCheck(ctx context.Context) (success bool, err error) {
	defer func() {
		_ = level.Info(mw.logger).Log("method", "HealthCheck", "success", success, "err", err)
	}()
	return mw.next.HealthCheck(ctx)
}

func (mw loggingMiddleware) Transfer(ctx context.Context, accountFrom, accountTo string, amount decimal.Decimal, description string) (_ *repository.Transfer, err error) {
	defer func() {
		_ = level.Info(mw.logger).Log("method", "Transfer", "accountFrom", accountFrom, "accountTo", accountTo, "amount", amount, "err", err)
	}()
	return mw.next.Transfer(ctx, accountFrom, accountTo, amount, description)
}

func (mw loggingMiddleware) Report(ctx context.Context, from, to *time.Time) (_ Report, err error) {
	defer func() {
		_ = level.Info(mw.logger).Log("method", "Report", "err", err)
	}()
	return mw.next.Report(ctx, from, to)
}
