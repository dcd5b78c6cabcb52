package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mcastell/chargecap/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)

	// sysfs style tunables: plain decimal text, one value per endpoint
	e.GET("/parameters/enabled", s.GetEnabledHandler)
	e.POST("/parameters/enabled", s.SetEnabledHandler)
	e.GET("/parameters/lower_threshold", s.GetLowerThresholdHandler)
	e.POST("/parameters/lower_threshold", s.SetLowerThresholdHandler)
	e.GET("/parameters/upper_threshold", s.GetUpperThresholdHandler)
	e.POST("/parameters/upper_threshold", s.SetUpperThresholdHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) GetEnabledHandler(c echo.Context) error {
	params, err := s.getParams()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "error\n")
	}
	return writeValue(c, bool2uint(params.Enabled))
}

func (s *Server) SetEnabledHandler(c echo.Context) error {
	value, err := readValue(c)
	if err != nil {
		return c.String(http.StatusBadRequest, "invalid value\n")
	}
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.LimiterEnableRequest{
		Enable: value != 0,
	}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "error\n")
	}
	resp, ok := res.(domain.LimiterEnableResponse)
	if !ok {
		return c.String(http.StatusServiceUnavailable, "error\n")
	}
	return writeValue(c, bool2uint(resp.Enabled))
}

func (s *Server) GetLowerThresholdHandler(c echo.Context) error {
	params, err := s.getParams()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "error\n")
	}
	return writeValue(c, uint(params.LowerThreshold))
}

func (s *Server) SetLowerThresholdHandler(c echo.Context) error {
	value, err := readValue(c)
	if err != nil {
		return c.String(http.StatusBadRequest, "invalid value\n")
	}
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.LimiterSetLowerThresholdRequest{
		Value: int(value),
	}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "error\n")
	}
	resp, ok := res.(domain.LimiterSetLowerThresholdResponse)
	if !ok {
		return c.String(http.StatusServiceUnavailable, "error\n")
	}
	return writeValue(c, uint(resp.Value))
}

func (s *Server) GetUpperThresholdHandler(c echo.Context) error {
	params, err := s.getParams()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "error\n")
	}
	return writeValue(c, uint(params.UpperThreshold))
}

func (s *Server) SetUpperThresholdHandler(c echo.Context) error {
	value, err := readValue(c)
	if err != nil {
		return c.String(http.StatusBadRequest, "invalid value\n")
	}
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.LimiterSetUpperThresholdRequest{
		Value: int(value),
	}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "error\n")
	}
	resp, ok := res.(domain.LimiterSetUpperThresholdResponse)
	if !ok {
		return c.String(http.StatusServiceUnavailable, "error\n")
	}
	return writeValue(c, uint(resp.Value))
}

func (s *Server) getParams() (*domain.LimiterGetParamsResponse, error) {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.LimiterGetParamsRequest{}, 10*time.Second).Result()
	if err != nil {
		return nil, err
	}
	resp, ok := res.(domain.LimiterGetParamsResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type %T", res)
	}
	return &resp, nil
}

func readValue(c echo.Context) (uint64, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimSpace(string(body)), 10, 32)
}

func writeValue(c echo.Context, value uint) error {
	return c.String(http.StatusOK, fmt.Sprintf("%d\n", value))
}

func bool2uint(value bool) uint {
	if value {
		return 1
	}
	return 0
}
