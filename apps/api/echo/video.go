package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/Ing-la/future-navigator/core/user"
	"github.com/Ing-la/future-navigator/core/video"
)

// uploadBodyLimit leaves room for the form fields around a video of video.MaxUploadSize.
const uploadBodyLimit = "101M"

func (s *Server) registerVideoAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	staff := roleMiddleware(user.RoleTeacher, user.RoleAdmin)

	vg := g.Group("/videos", jwt)
	vg.GET("", s.queryVideos)
	vg.POST("", s.uploadVideo, staff, uploadLimitMiddleware())
	vg.PUT("/:id/status", s.updateVideoStatus, staff)
	vg.DELETE("/:id", s.destroyVideo, staff)

	g.POST("/analyze", s.analyze, jwt, staff)
}

// uploadLimitMiddleware caps the upload body. A body over the cap is reported as an oversized file.
func uploadLimitMiddleware() echo.MiddlewareFunc {
	limit := middleware.BodyLimit(uploadBodyLimit)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		h := limit(next)
		return func(ctx echo.Context) error {
			err := h(ctx)
			if errors.Is(err, echo.ErrStatusRequestEntityTooLarge) {
				return video.FileTooLargeError()
			}
			return err
		}
	}
}

// Handlers

func (s *Server) queryVideos(ctx echo.Context) error {
	studentID, err := requiredQueryParam(ctx, "studentId")
	if err != nil {
		return err
	}
	if _, err = s.authorizeStudent(ctx, studentID); err != nil {
		return err
	}

	vids, err := s.deps.VideoSvc.QueryByStudent(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "querying videos")
	}
	if vids == nil {
		vids = []video.Video{}
	}
	return ctx.JSON(http.StatusOK, vids)
}

func (s *Server) uploadVideo(ctx echo.Context) error {
	// the limited body fails while the form is read
	if _, err := ctx.MultipartForm(); errors.Is(err, echo.ErrStatusRequestEntityTooLarge) {
		return err
	}

	data := video.NewVideo{
		StudentID: ctx.FormValue("studentId"),
		Title:     ctx.FormValue("title"),
	}
	if fh, err := ctx.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return errors.Wrap(err, "opening uploaded file")
		}
		defer f.Close()
		data.Filename = fh.Filename
		data.ContentType = fh.Header.Get(echo.HeaderContentType)
		data.Size = fh.Size
		data.Body = f
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}
	// an unknown student is reported as a field error by Upload
	if _, err := s.authorizeStudent(ctx, data.StudentID); err != nil && !isNotFound(err) {
		return err
	}

	vid, err := s.deps.VideoSvc.Upload(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "uploading video")
	}
	return ctx.JSON(http.StatusCreated, vid)
}

func (s *Server) authorizeVideo(ctx echo.Context, id string) (video.Video, error) {
	vid, err := s.deps.VideoSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return video.Video{}, errors.Wrap(err, "finding video")
	}
	if _, err = s.authorizeStudent(ctx, vid.StudentID); err != nil {
		return video.Video{}, err
	}
	return vid, nil
}

func (s *Server) updateVideoStatus(ctx echo.Context) error {
	vid, err := s.authorizeVideo(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	var data video.StatusUpdate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusUpdate")
	}
	if err = data.Validate(s.deps.Validate); err != nil {
		return err
	}

	vid, err = s.deps.VideoSvc.UpdateStatus(ctx.Request().Context(), vid.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating video status")
	}
	return ctx.JSON(http.StatusOK, vid)
}

func (s *Server) destroyVideo(ctx echo.Context) error {
	vid, err := s.authorizeVideo(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if err = s.deps.VideoSvc.Delete(ctx.Request().Context(), vid.ID); err != nil {
		return errors.Wrap(err, "deleting video")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) analyze(ctx echo.Context) error {
	var data video.AnalyzeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AnalyzeRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	task, err := s.deps.VideoSvc.Analyze(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting analysis")
	}
	return ctx.JSON(http.StatusAccepted, task)
}
