package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/student"
	"github.com/Ing-la/future-navigator/core/user"
	spreadsheetsvc "github.com/Ing-la/future-navigator/services/spreadsheet"
)

const maxRosterSize = 5 << 20 // 5 MiB

func (s *Server) registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	staff := roleMiddleware(user.RoleTeacher, user.RoleAdmin)

	sg := g.Group("/students", jwt)
	sg.GET("", s.queryStudents)
	sg.POST("", s.createStudent, staff)
	sg.POST("/import", s.importStudents, staff)
	sg.GET("/export", s.exportStudents, staff)

	dg := sg.Group("/:id")
	dg.GET("", s.retrieveStudent)
	dg.DELETE("", s.destroyStudent, staff)
	dg.GET("/errors", s.queryStudentErrors)
	dg.POST("/errors", s.recordStudentError, staff)
}

// Handlers

func (s *Server) queryStudents(ctx echo.Context) error {
	classID, err := requiredQueryParam(ctx, "classId")
	if err != nil {
		return err
	}
	if err = s.authorizeClass(ctx, classID); err != nil {
		return err
	}

	stds, err := s.deps.StudentSvc.QueryByClass(ctx.Request().Context(), classID)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if stds == nil {
		stds = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, stds)
}

func (s *Server) createStudent(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}
	if err := s.authorizeClass(ctx, data.ClassID); err != nil {
		return err
	}

	std, err := s.deps.StudentSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (s *Server) retrieveStudent(ctx echo.Context) error {
	std, err := s.authorizeStudent(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (s *Server) destroyStudent(ctx echo.Context) error {
	std, err := s.authorizeStudent(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if err = s.deps.StudentSvc.Delete(ctx.Request().Context(), std.ID); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) queryStudentErrors(ctx echo.Context) error {
	std, err := s.authorizeStudent(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}

	errs, err := s.deps.StudentSvc.Errors(ctx.Request().Context(), std.ID)
	if err != nil {
		return errors.Wrap(err, "querying student errors")
	}
	if errs == nil {
		errs = []student.LearningError{}
	}
	return ctx.JSON(http.StatusOK, errs)
}

func (s *Server) recordStudentError(ctx echo.Context) error {
	std, err := s.authorizeStudent(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	var data student.NewError
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewError")
	}
	if err = data.Validate(s.deps.Validate); err != nil {
		return err
	}
	data.StudentID = std.ID

	le, err := s.deps.StudentSvc.RecordError(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "recording student error")
	}
	return ctx.JSON(http.StatusCreated, le)
}

func (s *Server) importStudents(ctx echo.Context) error {
	classID := core.CleanString(ctx.FormValue("classId"))
	if classID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "classId", Error: "this field is required"})
	}
	if err := s.authorizeClass(ctx, classID); err != nil {
		return err
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "a roster spreadsheet is required"})
	}
	if fh.Size > maxRosterSize {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "the roster spreadsheet is too large"})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded roster")
	}
	defer f.Close()

	rows, err := spreadsheetsvc.ReadRoster(f)
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: errors.Cause(err).Error()})
	}

	res, err := s.deps.StudentSvc.Import(ctx.Request().Context(), classID, rows)
	if err != nil {
		return errors.Wrap(err, "importing students")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (s *Server) exportStudents(ctx echo.Context) error {
	classID, err := requiredQueryParam(ctx, "classId")
	if err != nil {
		return err
	}
	if err = s.authorizeClass(ctx, classID); err != nil {
		return err
	}

	stds, err := s.deps.StudentSvc.QueryByClass(ctx.Request().Context(), classID)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	var buf bytes.Buffer
	if err = spreadsheetsvc.WriteRoster(&buf, stds); err != nil {
		return errors.Wrap(err, "writing roster")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", "students-"+classID+".xlsx"))
	return ctx.Blob(http.StatusOK, spreadsheetsvc.ContentType, buf.Bytes())
}
