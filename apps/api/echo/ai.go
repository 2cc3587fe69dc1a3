package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Ing-la/future-navigator/core/ai"
	"github.com/Ing-la/future-navigator/core/user"
)

// errChatFailed hides provider errors behind a 500 on chat.
var errChatFailed = errors.New("chat failed")

func (s *Server) registerAIAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	limit := rateLimitMiddleware(s.deps.Limiter, s.deps.Logger, s.deps.Conf.RateLimit.ChatPerMinute)
	g.POST("/chat", s.chat, jwt, limit)

	cg := g.Group("/config", jwt, roleMiddleware(user.RoleAdmin))
	cg.GET("", s.getAIConfig)
	cg.POST("", s.saveAIConfig)
	cg.POST("/test", s.testAIConfig)
}

// streamWriter commits a text/plain response on the first write and flushes every chunk.
// Until then the error handler is still free to answer with a JSON error.
type streamWriter struct {
	res     *echo.Response
	started bool
}

func (w *streamWriter) Write(p []byte) (int, error) {
	if !w.started {
		w.res.Header().Set(echo.HeaderContentType, echo.MIMETextPlainCharsetUTF8)
		w.res.Header().Set("Cache-Control", "no-cache")
		w.res.Header().Set("X-Content-Type-Options", "nosniff")
		w.res.WriteHeader(http.StatusOK)
		w.started = true
	}
	n, err := w.res.Write(p)
	if err != nil {
		return n, err
	}
	w.res.Flush()
	return n, nil
}

// Handlers

func (s *Server) chat(ctx echo.Context) error {
	var data ai.ChatRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChatRequest")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	w := &streamWriter{res: ctx.Response()}
	err := s.deps.AISvc.Chat(ctx.Request().Context(), data, w)
	switch {
	case err == nil:
		if !w.started { // empty answer
			return ctx.NoContent(http.StatusOK)
		}
		return nil
	case w.started:
		// the status is gone already: end the stream and keep a trace of the failure
		var usr user.User
		if claims, cErr := getContextClaims(ctx); cErr == nil {
			usr.ID, usr.Username, usr.Role = claims.Subject, claims.Username, claims.Role
		}
		s.deps.Logger.Error("chat stream interrupted", errors.Wrap(err, "streaming chat"), usr)
		return nil
	case errors.Cause(err) == ai.ErrNotConfigured:
		return err
	default:
		return errors.Wrapf(errChatFailed, "chatting: %v", err)
	}
}

func (s *Server) getAIConfig(ctx echo.Context) error {
	status, err := s.deps.AISvc.GetConfig(ctx.Request().Context(), ctx.QueryParam("provider"))
	if err != nil {
		return errors.Wrap(err, "getting AI config")
	}
	return ctx.JSON(http.StatusOK, status)
}

func (s *Server) saveAIConfig(ctx echo.Context) error {
	var data ai.SaveConfig
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveConfig")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	status, err := s.deps.AISvc.SaveConfig(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving AI config")
	}
	return ctx.JSON(http.StatusOK, status)
}

// testAIConfig answers {success, message} for provider outcomes so the admin UI can show them as is.
func (s *Server) testAIConfig(ctx echo.Context) error {
	var data ai.TestConfig
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TestConfig")
	}

	res, err := s.deps.AISvc.TestKey(ctx.Request().Context(), data)
	if err != nil {
		switch cause := errors.Cause(err).(type) {
		case *ai.ProviderError:
			return ctx.JSON(http.StatusUnauthorized, ai.TestResult{Success: false, Message: cause.Message})
		default:
			if cause == ai.ErrUnreachable {
				return ctx.JSON(http.StatusBadGateway, ai.TestResult{Success: false, Message: cause.Error()})
			}
		}
		return errors.Wrap(err, "testing AI key")
	}
	return ctx.JSON(http.StatusOK, res)
}
