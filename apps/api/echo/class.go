package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Ing-la/future-navigator/core/class"
	"github.com/Ing-la/future-navigator/core/student"
	"github.com/Ing-la/future-navigator/core/user"
)

func (s *Server) registerClassAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	staff := roleMiddleware(user.RoleTeacher, user.RoleAdmin)

	cg := g.Group("/classes", jwt, staff)
	cg.GET("", s.classByTeacher)
	cg.POST("", s.createClass)
	cg.POST("/:id/summaries", s.addClassSummary)

	g.GET("/class/overview", s.classOverview, jwt, staff)
}

// authorizeClass lets admins and parents through, teachers only for the class they own.
// Class routes themselves are staff only, so parents pass here on student scoped reads.
// An unknown class passes: the service call that follows reports it.
func (s *Server) authorizeClass(ctx echo.Context, classID string) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.IsTeacher() {
		return nil
	}
	cls, err := s.deps.ClassSvc.GetByID(ctx.Request().Context(), classID)
	if err != nil {
		if errors.Cause(err) == class.ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "finding class")
	}
	if cls.TeacherID != claims.Subject {
		return errHttpForbidden
	}
	return nil
}

// authorizeStudent applies authorizeClass to the class of the student.
func (s *Server) authorizeStudent(ctx echo.Context, studentID string) (student.Student, error) {
	std, err := s.deps.StudentSvc.GetByID(ctx.Request().Context(), studentID)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "finding student")
	}
	if err = s.authorizeClass(ctx, std.ClassID); err != nil {
		return student.Student{}, err
	}
	return std, nil
}

// Handlers

// classByTeacher answers null when the teacher has no class yet.
func (s *Server) classByTeacher(ctx echo.Context) error {
	teacherID, err := requiredQueryParam(ctx, "teacherId")
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.IsTeacher() && teacherID != claims.Subject {
		return errHttpForbidden
	}

	cls, err := s.deps.ClassSvc.GetByTeacher(ctx.Request().Context(), teacherID)
	if err != nil {
		if errors.Cause(err) == class.ErrNotFound {
			return ctx.JSON(http.StatusOK, nil)
		}
		return errors.Wrap(err, "finding class by teacher")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (s *Server) createClass(ctx echo.Context) error {
	var data class.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.IsTeacher() && data.TeacherID != claims.Subject {
		return errHttpForbidden
	}

	cls, err := s.deps.ClassSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (s *Server) addClassSummary(ctx echo.Context) error {
	classID := ctx.Param("id")
	if err := s.authorizeClass(ctx, classID); err != nil {
		return err
	}
	var data class.NewSummary
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSummary")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	sum, err := s.deps.ClassSvc.AddSummary(ctx.Request().Context(), classID, data.Content)
	if err != nil {
		return errors.Wrap(err, "adding class summary")
	}
	return ctx.JSON(http.StatusCreated, sum)
}

func (s *Server) classOverview(ctx echo.Context) error {
	classID, err := requiredQueryParam(ctx, "classId")
	if err != nil {
		return err
	}
	if err = s.authorizeClass(ctx, classID); err != nil {
		return err
	}

	ov, err := s.deps.ClassSvc.Overview(ctx.Request().Context(), classID)
	if err != nil {
		return errors.Wrap(err, "computing class overview")
	}
	return ctx.JSON(http.StatusOK, ov)
}
