package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	taggererrors "github.com/hrygo/hmmseg/internal/errors"
)

type ExtractTimeRequest struct {
	Text string `json:"text"`
}

type ExtractTimeResponse struct {
	Times []string `json:"times"`
}

func (s *APIV1Service) ExtractTime(c echo.Context) error {
	const op = "time_extract"
	start := time.Now()

	var req ExtractTimeRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, op, start, taggererrors.InvalidArgument("invalid request body"))
	}
	times, err := s.Extractor.Extract(c.Request().Context(), req.Text)
	if err != nil {
		return s.fail(c, op, start, err)
	}
	s.track(op, start, nil)
	return c.JSON(http.StatusOK, ExtractTimeResponse{Times: times})
}
