package server

import (
	"github.com/berfenger/solcast2mqtt/internal/core/domain"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)

	api := e.Group("/api")
	api.GET("/status", s.StatusHandler)
	api.GET("/consumption", s.ConsumptionHandler)
	api.POST("/forecast/refresh", s.RefreshForecastHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, ASK_TIMEOUT).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) StatusHandler(c echo.Context) error {
	res, err := s.ask(domain.GetStatusRequest{})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res.(domain.GetStatusResponse).Status)
}

type consumptionBody struct {
	Table map[string]float64 `json:"table"`
	Total float64            `json:"total"`
}

func (s *Server) ConsumptionHandler(c echo.Context) error {
	res, err := s.ask(domain.GetConsumptionRequest{})
	if err != nil {
		return err
	}
	resp := res.(domain.GetConsumptionResponse)
	return c.JSON(http.StatusOK, consumptionBody{Table: resp.Table, Total: resp.Total})
}

func (s *Server) RefreshForecastHandler(c echo.Context) error {
	res, err := s.ask(domain.RefreshForecastRequest{})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, map[string]bool{"queued": res.(domain.RefreshForecastResponse).Queued})
}

// ask sends a controller request through the master and maps failures to HTTP errors.
func (s *Server) ask(req domain.ControllerRequest) (domain.ActorResponse, error) {
	res, err := s.rootContext.RequestFuture(s.masterActor, req, ASK_TIMEOUT).Result()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusGatewayTimeout, err.Error())
	}
	resp, ok := res.(domain.ActorResponse)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "unexpected response")
	}
	if resp.HasResponseError() {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, resp.GetResponseError().Error())
	}
	return resp, nil
}
