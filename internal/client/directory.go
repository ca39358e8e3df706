package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/course-progress-api/pkg/errors"
	"github.com/noah-isme/course-progress-api/pkg/middleware/requestid"
)

// ErrNotFound is returned when a directory answers 404 for the requested resource.
var ErrNotFound = errors.New("directory resource not found")

const tracerName = "github.com/noah-isme/course-progress-api/internal/client"

// Call outcomes reported to the metrics observer.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// CallObserver receives the timing of every directory call.
type CallObserver interface {
	ObserveDirectoryCall(client, op, outcome string, duration time.Duration)
}

// directory holds what the course and enrollment clients share: the resty
// client, tracing and metrics around each call.
type directory struct {
	name     string
	http     *resty.Client
	tracer   trace.Tracer
	observer CallObserver
	logger   *zap.Logger
}

func newDirectory(name, baseURL string, timeout time.Duration, observer CallObserver, logger *zap.Logger) directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return directory{
		name:     name,
		http:     httpClient,
		tracer:   otel.Tracer(tracerName),
		observer: observer,
		logger:   logger.With(zap.String("directory", name)),
	}
}

// call executes one request. 404 becomes ErrNotFound; transport failures and
// any other non-2xx answer become DependencyUnavailable.
func (d directory) call(ctx context.Context, op, method, path string, prepare func(*resty.Request)) (*resty.Response, error) {
	ctx, span := d.tracer.Start(ctx, d.name+"."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	)

	req := d.http.R().SetContext(ctx)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	if id := requestid.FromContext(ctx); id != "" {
		req.SetHeader(requestid.Header, id)
	}
	if prepare != nil {
		prepare(req)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	duration := time.Since(start)

	switch {
	case err != nil:
		d.observe(op, OutcomeError, duration)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.logger.Warn("directory call failed", zap.String("op", op), zap.String("path", path), zap.Error(err))
		return nil, d.unavailable(err)
	case resp.StatusCode() == http.StatusNotFound:
		d.observe(op, OutcomeNotFound, duration)
		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode()))
		return resp, ErrNotFound
	case resp.IsError():
		d.observe(op, OutcomeError, duration)
		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode()))
		span.SetStatus(codes.Error, resp.Status())
		d.logger.Warn("directory call rejected",
			zap.String("op", op),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode()),
		)
		return resp, d.unavailable(fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode()))
	}

	d.observe(op, OutcomeOK, duration)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode()))
	return resp, nil
}

func (d directory) observe(op, outcome string, duration time.Duration) {
	if d.observer != nil {
		d.observer.ObserveDirectoryCall(d.name, op, outcome, duration)
	}
}

func (d directory) unavailable(err error) error {
	return appErrors.Wrap(err, appErrors.ErrDependencyUnavailable.Code, appErrors.ErrDependencyUnavailable.Status,
		d.name+" directory unavailable")
}
