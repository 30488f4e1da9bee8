package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	taggererrors "github.com/hrygo/hmmseg/internal/errors"
	"github.com/hrygo/hmmseg/plugin/hmm"
)

type SegmentRequest struct {
	Text string `json:"text"`
}

type SegmentResponse struct {
	Words []hmm.WordTag `json:"words"`
}

type SegmentBatchRequest struct {
	Texts []string `json:"texts"`
}

type SegmentBatchResponse struct {
	Results [][]hmm.WordTag `json:"results"`
}

func (s *APIV1Service) Segment(c echo.Context) error {
	const op = "segment"
	start := time.Now()

	var req SegmentRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, op, start, taggererrors.InvalidArgument("invalid request body"))
	}
	words, err := s.Segmenter.Cut(c.Request().Context(), req.Text)
	if err != nil {
		return s.fail(c, op, start, err)
	}
	s.track(op, start, nil)
	return c.JSON(http.StatusOK, SegmentResponse{Words: words})
}

func (s *APIV1Service) SegmentBatch(c echo.Context) error {
	const op = "segment_batch"
	start := time.Now()

	var req SegmentBatchRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, op, start, taggererrors.InvalidArgument("invalid request body"))
	}
	if len(req.Texts) == 0 {
		return s.fail(c, op, start, taggererrors.InvalidArgument("texts must not be empty"))
	}
	if len(req.Texts) > maxBatchSize {
		return s.fail(c, op, start, taggererrors.InvalidArgument("too many texts in one batch"))
	}

	ctx := c.Request().Context()
	if err := s.batchSemaphore.Acquire(ctx, 1); err != nil {
		return s.fail(c, op, start, err)
	}
	defer s.batchSemaphore.Release(1)

	results, err := s.Segmenter.CutBatch(ctx, req.Texts)
	if err != nil {
		return s.fail(c, op, start, err)
	}
	s.track(op, start, nil)
	return c.JSON(http.StatusOK, SegmentBatchResponse{Results: results})
}
