package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Ing-la/future-navigator/core/report"
	"github.com/Ing-la/future-navigator/core/user"
)

func (s *Server) registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	rg := g.Group("/reports", jwt)
	rg.GET("", s.queryReports)
	rg.POST("", s.createReport, roleMiddleware(user.RoleTeacher, user.RoleAdmin))
	rg.GET("/:id", s.retrieveReport)
}

// Handlers

func (s *Server) queryReports(ctx echo.Context) error {
	studentID, err := requiredQueryParam(ctx, "studentId")
	if err != nil {
		return err
	}
	if _, err = s.authorizeStudent(ctx, studentID); err != nil {
		return err
	}

	reps, err := s.deps.ReportSvc.QueryByStudent(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "querying reports")
	}
	if reps == nil {
		reps = []report.Report{}
	}
	return ctx.JSON(http.StatusOK, reps)
}

func (s *Server) createReport(ctx echo.Context) error {
	var data report.NewReport
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReport")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}
	if _, err := s.authorizeStudent(ctx, data.StudentID); err != nil {
		return err
	}

	created, err := s.deps.ReportSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating report")
	}
	return ctx.JSON(http.StatusCreated, created)
}

func (s *Server) retrieveReport(ctx echo.Context) error {
	rep, err := s.deps.ReportSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding report")
	}
	if _, err = s.authorizeStudent(ctx, rep.StudentID); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rep)
}
