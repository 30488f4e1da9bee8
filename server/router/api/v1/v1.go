package v1

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/semaphore"

	taggererrors "github.com/hrygo/hmmseg/internal/errors"
	"github.com/hrygo/hmmseg/internal/observability"
	"github.com/hrygo/hmmseg/internal/profile"
	"github.com/hrygo/hmmseg/internal/version"
	"github.com/hrygo/hmmseg/plugin/hmm"
	"github.com/hrygo/hmmseg/plugin/timeextract"
)

const (
	// maxBatchSize bounds the number of texts in one batch request.
	maxBatchSize = 256
	// maxConcurrentBatches bounds batch requests decoding at the same time.
	maxConcurrentBatches = 4
)

// Segmenter is the tagging surface the API needs. *hmm.Tagger implements it.
type Segmenter interface {
	Cut(ctx context.Context, text string) ([]hmm.WordTag, error)
	CutBatch(ctx context.Context, texts []string) ([][]hmm.WordTag, error)
}

type APIV1Service struct {
	Profile   *profile.Profile
	Segmenter Segmenter
	Extractor timeextract.Service
	Metrics   *observability.Metrics
	Logger    *slog.Logger

	// batchSemaphore keeps large batches from starving single-text requests.
	batchSemaphore *semaphore.Weighted
}

func NewAPIV1Service(profile *profile.Profile, segmenter Segmenter, extractor timeextract.Service) *APIV1Service {
	return &APIV1Service{
		Profile:   profile,
		Segmenter: segmenter,
		Extractor: extractor,
		Metrics:   observability.GlobalMetrics(),
		Logger:    slog.Default(),

		batchSemaphore: semaphore.NewWeighted(maxConcurrentBatches),
	}
}

// RegisterRoutes registers the JSON API with the given Echo instance.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo, rateLimit echo.MiddlewareFunc) {
	echoServer.GET("/healthz", s.Healthz)

	api := echoServer.Group("/api/v1", middleware.BodyLimit("1M"), s.requestContext)
	if rateLimit != nil {
		api.Use(rateLimit)
	}
	api.POST("/segment", s.Segment)
	api.POST("/segment/batch", s.SegmentBatch)
	api.POST("/time/extract", s.ExtractTime)
	api.GET("/metrics", s.GetMetrics)
}

// requestContext attaches a request context to every API request. An incoming
// X-Request-ID is kept, otherwise one is generated; either way it is echoed back.
func (s *APIV1Service) requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		operation := req.Method + " " + c.Path()
		var reqCtx *observability.RequestContext
		if id := req.Header.Get(echo.HeaderXRequestID); id != "" {
			reqCtx = observability.NewRequestContextWithID(s.Logger, id, operation, "")
		} else {
			reqCtx = observability.NewRequestContext(s.Logger, operation, "")
		}
		c.Response().Header().Set(echo.HeaderXRequestID, reqCtx.RequestID)
		c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), reqCtx)))
		return next(c)
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HTTPStatus maps an error to its HTTP status and code.
func HTTPStatus(err error) (int, taggererrors.ErrorCode) {
	code := taggererrors.GetCodeFromError(err, taggererrors.ErrCodeInternal)
	switch code {
	case taggererrors.ErrCodeEmptyInput, taggererrors.ErrCodeInvalidArgument, taggererrors.ErrCodeMalformedRecord:
		return http.StatusBadRequest, code
	case taggererrors.ErrCodeDecodeDegenerate, taggererrors.ErrCodeInconsistentTagRun:
		return http.StatusUnprocessableEntity, code
	case taggererrors.ErrCodeModelNotFound:
		return http.StatusServiceUnavailable, code
	case taggererrors.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests, code
	default:
		return http.StatusInternalServerError, taggererrors.ErrCodeInternal
	}
}

// fail records a failed request and writes its error response.
func (s *APIV1Service) fail(c echo.Context, operation string, start time.Time, err error) error {
	s.track(operation, start, err)
	status, code := HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger := s.Logger.With(slog.String(observability.LogFieldOperation, operation))
		if reqCtx, ok := observability.FromContext(c.Request().Context()); ok {
			logger = reqCtx.WithFields(slog.String("handler", operation))
		}
		logger.Error("request failed", slog.String("error", err.Error()))
		message = "internal error"
	}
	return c.JSON(status, ErrorResponse{Code: string(code), Message: message})
}

// track records the outcome of one request in the metrics.
func (s *APIV1Service) track(operation string, start time.Time, err error) {
	if s.Metrics != nil {
		s.Metrics.Record(operation, time.Since(start), err != nil)
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *APIV1Service) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:  "ok",
		Version: version.GetCurrentVersion(s.Profile.Mode),
	})
}

func (s *APIV1Service) GetMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Metrics.Snapshot())
}
