package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/user"
)

var (
	errMissingUserID = core.FieldError{Field: "id", Error: "this field is required"}

	passwordResetMsg = "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."
)

func (s *Server) registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	limit := rateLimitMiddleware(s.deps.Limiter, s.deps.Logger, s.deps.Conf.RateLimit.LoginPerMinute)

	ag := g.Group("/auth")
	ag.POST("/login", s.login, limit)
	ag.POST("/register", s.register, limit)
	ag.POST("/password-reset", s.resetPassword, limit)
	ag.POST("/password-reset-confirm", s.confirmPasswordReset, limit)
	ag.POST("/token-refresh", s.refreshTokenHandler, jwt)
}

func (s *Server) registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	ug := g.Group("/users", jwt)
	ug.GET("/me", s.me)

	admin := roleMiddleware(user.RoleAdmin)
	ug.GET("", s.queryUsers, admin)
	ug.POST("", s.createUser, admin)
	ug.DELETE("", s.destroyUsers, admin)
	ug.PUT("/password", s.changePassword, admin)
	ug.GET("/roles", s.queryRoles, admin)
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
		Role     string `json:"role" validate:"omitempty,userrole"`
	}

	// AuthResponse is returned on login and registration.
	AuthResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}

	UserListResponse struct {
		Users []user.User `json:"users"`
		Total int         `json:"total"`
	}

	DestroyUsersRequest struct {
		IDs []string `query:"id"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	lr.Role = core.CleanString(lr.Role, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}

// Handlers

func (s *Server) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	usr, err := authenticate(data.Username, data.Password, data.Role, s.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	return s.respondWithToken(ctx, http.StatusOK, usr)
}

func (s *Server) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(s.deps.Validate, s.deps.UserSvc, true /* selfReg */); err != nil {
		return err
	}

	usr, err := s.deps.UserSvc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return s.respondWithToken(ctx, http.StatusCreated, usr)
}

func (s *Server) respondWithToken(ctx echo.Context, code int, usr user.User) error {
	token, err := GenerateToken(NewClaims(usr, s.deps.Conf), s.deps.Conf.SecretKey)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	ctx.Set(userContextKey, usr)
	return ctx.JSON(code, AuthResponse{Token: token, User: usr})
}

func (s *Server) refreshTokenHandler(ctx echo.Context) error {
	token, err := s.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (s *Server) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	if err := s.deps.UserSvc.RequestPasswordReset(data.Email); !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		s.deps.Logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true, Message: passwordResetMsg})
}

func (s *Server) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	if err := s.deps.UserSvc.ResetPassword(data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "Password has been reset with the new password."})
}

func (s *Server) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, s.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *Server) queryUsers(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, UserListResponse{Users: []user.User{}})
	}
	filter.Clean()
	filter.ExcludeAdmins = true
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := s.deps.UserSvc.Query(filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, UserListResponse{Users: users, Total: len(users)})
}

func (s *Server) createUser(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(s.deps.Validate, s.deps.UserSvc, false /* selfReg */); err != nil {
		return err
	}

	usr, err := s.deps.UserSvc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (s *Server) destroyUsers(ctx echo.Context) error {
	var query DestroyUsersRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyUsersRequest")
	}
	ids := make([]string, 0, len(query.IDs))
	for _, id := range query.IDs {
		if id = core.CleanString(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return core.NewValidationError(nil, errMissingUserID)
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	for _, id := range ids {
		if id == claims.Subject {
			return errHttpForbidden
		}
	}

	if err := s.deps.UserSvc.Delete(ids...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "user deleted"})
}

func (s *Server) changePassword(ctx echo.Context) error {
	var data user.ChangePassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	if err := data.Validate(s.deps.Validate); err != nil {
		return err
	}

	if _, err := s.deps.UserSvc.ChangePassword(data.UserID, data.NewPassword); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: true, Message: "password updated"})
}

func (s *Server) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}
