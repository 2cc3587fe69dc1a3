package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Ing-la/future-navigator/core/radar"
	"github.com/Ing-la/future-navigator/core/user"
)

const radarNoDataMsg = "no data"

// RadarResponse carries zeroed metrics and a message when nothing was recorded yet.
type RadarResponse struct {
	Data    radar.Metrics `json:"data"`
	Message string        `json:"message,omitempty"`
}

func (s *Server) registerRadarAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	rg := g.Group("/radar/:studentId", jwt)
	rg.GET("", s.latestRadar)
	rg.POST("", s.recordRadar, roleMiddleware(user.RoleTeacher, user.RoleAdmin))
}

// Handlers

func (s *Server) latestRadar(ctx echo.Context) error {
	studentID := ctx.Param("studentId")
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.IsTeacher() {
		if _, err = s.authorizeStudent(ctx, studentID); err != nil {
			return err
		}
	}

	m, found, err := s.deps.RadarSvc.Latest(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "finding latest radar data")
	}
	res := RadarResponse{Data: m}
	if !found {
		res.Message = radarNoDataMsg
	}
	return ctx.JSON(http.StatusOK, res)
}

func (s *Server) recordRadar(ctx echo.Context) error {
	std, err := s.authorizeStudent(ctx, ctx.Param("studentId"))
	if err != nil {
		return err
	}
	var data radar.NewRecord
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}
	data.StudentID = std.ID
	if err = data.Validate(s.deps.Validate); err != nil {
		return err
	}

	rec, err := s.deps.RadarSvc.Record(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "recording radar data")
	}
	return ctx.JSON(http.StatusCreated, rec)
}
