package server

import (
	"net/http"
	"time"

	"schedcard/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const actionTimeout = 10 * time.Second

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/card", s.CardViewHandler)
	e.GET("/layout", s.LayoutHandler)
	e.GET("/notifications", s.NotificationsHandler)

	e.POST("/card/:direction/enable", s.EnableHandler)
	e.POST("/card/:direction/disable", s.DisableHandler)
	e.POST("/card/:direction/power", s.PowerHandler)
	e.POST("/card/:direction/endtime", s.EndTimeHandler)
	e.POST("/card/:direction/days", s.DaysHandler)
	e.POST("/card/:direction/duration", s.DurationHandler)
	e.POST("/card/focus", s.FocusHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, actionTimeout).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) CardViewHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetCardViewRequest{}, actionTimeout).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "card: no response")
	}
	response, ok := res.(domain.GetCardViewResponse)
	if !ok || response.HasResponseError() {
		return c.String(http.StatusInternalServerError, "card: render error")
	}
	if response.View == nil {
		// no snapshot received yet
		return c.String(http.StatusServiceUnavailable, "card: waiting for state")
	}
	return c.JSON(http.StatusOK, response.View)
}

func (s *Server) LayoutHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetLayoutSizeRequest{}, actionTimeout).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "layout: no response")
	}
	response, ok := res.(domain.GetLayoutSizeResponse)
	if !ok {
		return c.String(http.StatusInternalServerError, "layout: bad response")
	}
	return c.JSON(http.StatusOK, map[string]int{"size": response.Size})
}

func (s *Server) NotificationsHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetNotificationsRequest{}, actionTimeout).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "notifications: no response")
	}
	response, ok := res.(domain.GetNotificationsResponse)
	if !ok {
		return c.String(http.StatusInternalServerError, "notifications: bad response")
	}
	return c.JSON(http.StatusOK, response.Notifications)
}

func (s *Server) EnableHandler(c echo.Context) error {
	dir, err := directionParam(c)
	if err != nil {
		return err
	}
	return s.userAction(c, domain.EnablePressedRequest{Direction: dir})
}

func (s *Server) DisableHandler(c echo.Context) error {
	dir, err := directionParam(c)
	if err != nil {
		return err
	}
	return s.userAction(c, domain.DisablePressedRequest{Direction: dir})
}

type powerBody struct {
	Kw float64 `json:"kw"`
	// Committed distinguishes a released slider from a drag in progress.
	Committed bool `json:"committed"`
}

func (s *Server) PowerHandler(c echo.Context) error {
	dir, err := directionParam(c)
	if err != nil {
		return err
	}
	var body powerBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if body.Committed {
		return s.userAction(c, domain.PowerCommittedRequest{Direction: dir, Kw: body.Kw})
	}
	return s.userAction(c, domain.PowerDraggedRequest{Direction: dir, Kw: body.Kw})
}

type endTimeBody struct {
	Value string `json:"value"`
}

func (s *Server) EndTimeHandler(c echo.Context) error {
	dir, err := directionParam(c)
	if err != nil {
		return err
	}
	var body endTimeBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return s.userAction(c, domain.EndTimeEditedRequest{Direction: dir, Value: body.Value})
}

type daysBody struct {
	Days []int `json:"days"`
}

func (s *Server) DaysHandler(c echo.Context) error {
	dir, err := directionParam(c)
	if err != nil {
		return err
	}
	var body daysBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return s.userAction(c, domain.DaysEditedRequest{Direction: dir, Days: body.Days})
}

type durationBody struct {
	Minutes int `json:"minutes"`
}

func (s *Server) DurationHandler(c echo.Context) error {
	dir, err := directionParam(c)
	if err != nil {
		return err
	}
	var body durationBody
	if err := c.Bind(&body); err != nil || body.Minutes <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return s.userAction(c, domain.DurationChangedRequest{Direction: dir, Minutes: body.Minutes})
}

func (s *Server) FocusHandler(c echo.Context) error {
	var focus domain.FocusState
	if err := c.Bind(&focus); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return s.userAction(c, domain.FocusChangedRequest{Focus: focus})
}

func (s *Server) userAction(c echo.Context, req domain.UserActionRequest) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, req, actionTimeout).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "action: no response")
	}
	response, ok := res.(domain.UserActionResponse)
	if !ok {
		return c.String(http.StatusInternalServerError, "action: bad response")
	}
	if response.HasResponseError() {
		return c.JSON(http.StatusConflict, map[string]string{"error": response.GetResponseError().Error()})
	}
	return c.JSON(http.StatusOK, map[string]bool{"reverted": response.Reverted})
}

func directionParam(c echo.Context) (domain.Direction, error) {
	switch c.Param("direction") {
	case "charge":
		return domain.DirectionCharge, nil
	case "discharge":
		return domain.DirectionDischarge, nil
	default:
		return "", echo.NewHTTPError(http.StatusNotFound, "unknown direction")
	}
}
