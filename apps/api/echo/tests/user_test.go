package tests

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/Ing-la/future-navigator/apps/api/echo"
	"github.com/Ing-la/future-navigator/core"
	"github.com/Ing-la/future-navigator/core/user"
)

func Test_authApi_login(t *testing.T) {
	ta := setup(t)
	teacher := ta.createUser(t, "teacher", user.RoleTeacher)

	errAuth := marchallObj(t, httpErr{Error: "authentication failed"})

	ta.runHTTPTests(t, []httpTest{
		{
			name:     "empty body",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": errRequired, "password": errRequired}),
		},
		{
			name:     "unknown user",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     []byte(`{"username":"nobody","password":"s3cret!"}`),
			wantCode: http.StatusBadRequest,
			wantData: errAuth,
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     []byte(`{"username":"teacher","password":"wrong!!"}`),
			wantCode: http.StatusBadRequest,
			wantData: errAuth,
		},
		{
			name:     "role mismatch",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     []byte(`{"username":"teacher","password":"s3cret!","role":"parent"}`),
			wantCode: http.StatusBadRequest,
			wantData: errAuth,
		},
		{
			name:     "invalid role",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     []byte(`{"username":"teacher","password":"s3cret!","role":"student"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "invalid role"}),
		},
	})

	t.Run("success", func(t *testing.T) {
		rec := ta.serve(newRequest(http.MethodPost, "/api/auth/login", []byte(`{"username":" TEACHER ","password":"s3cret!","role":"teacher"}`)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res AuthResponse
		decode(t, rec, &res)
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, teacher.ID, res.User.ID)
		assert.Equal(t, user.RoleTeacher, res.User.Role)
		assert.False(t, res.User.LastLogin.IsZero(), "last login is set")
		assert.NotContains(t, rec.Body.String(), "password")
	})

	t.Run("login with email", func(t *testing.T) {
		rec := ta.serve(newRequest(http.MethodPost, "/api/auth/login", []byte(`{"username":"teacher@test.cd","password":"s3cret!"}`)))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})
}

func Test_authApi_register(t *testing.T) {
	ta := setup(t)
	ta.createUser(t, "taken", user.RoleParent)

	ta.runHTTPTests(t, []httpTest{
		{
			name:     "admin cannot self-register",
			method:   http.MethodPost,
			path:     "/api/auth/register",
			body:     []byte(`{"username":"boss","password":"s3cret!","role":"admin"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "admin accounts cannot be self-registered"}),
		},
		{
			name:     "username taken",
			method:   http.MethodPost,
			path:     "/api/auth/register",
			body:     []byte(`{"username":"Taken","password":"s3cret!","role":"parent"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": user.ErrUsernameExists.Error()}),
		},
		{
			name:     "missing fields",
			method:   http.MethodPost,
			path:     "/api/auth/register",
			body:     []byte(`{"username":"newbie"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": errRequired, "role": errRequired}),
		},
	})

	t.Run("success", func(t *testing.T) {
		rec := ta.serve(newRequest(http.MethodPost, "/api/auth/register", []byte(`{"username":"NewTeacher","email":"new@test.cd","password":"s3cret!","role":"teacher"}`)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var res AuthResponse
		decode(t, rec, &res)
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, "newteacher", res.User.Username)
		assert.Equal(t, user.RoleTeacher, res.User.Role)

		// the token is usable right away
		rec = ta.serve(newAuthRequest(http.MethodGet, "/api/users/me", res.Token))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_authApi_tokenRefresh(t *testing.T) {
	ta := setup(t)
	parent := ta.createUser(t, "parent", user.RoleParent)

	ta.runHTTPTests(t, []httpTest{
		{
			name:     "no token",
			method:   http.MethodPost,
			path:     "/api/auth/token-refresh",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
	})

	t.Run("success", func(t *testing.T) {
		rec := ta.serve(newAuthRequest(http.MethodPost, "/api/auth/token-refresh", ta.getToken(t, parent)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res TokenResponse
		decode(t, rec, &res)
		assert.NotEmpty(t, res.Token)
	})

	t.Run("refresh expired", func(t *testing.T) {
		old := NewClaims(parent, ta.conf, 1 /* origIat */)
		token, err := GenerateToken(old, ta.conf.SecretKey)
		require.NoError(t, err)

		rec := ta.serve(newAuthRequest(http.MethodPost, "/api/auth/token-refresh", token))
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})}, rec)
	})

	t.Run("deleted user", func(t *testing.T) {
		ghost := ta.createUser(t, "ghost", user.RoleParent)
		token := ta.getToken(t, ghost)
		require.NoError(t, ta.userSvc.Delete(ghost.ID))

		rec := ta.serve(newAuthRequest(http.MethodPost, "/api/auth/token-refresh", token))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func Test_authApi_passwordReset(t *testing.T) {
	ta := setup(t)
	usr := ta.createUser(t, "forgetful", user.RoleParent)

	resetMsg := SuccessResponse{
		Success: true,
		Message: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	}
	uid := user.EncodeUID(usr)
	token := user.NewResetTokens(ta.conf.SecretKey, ta.conf.PasswordResetTimeoutDelta).Make(usr)

	ta.runHTTPTests(t, []httpTest{
		{
			name:     "invalid email",
			method:   http.MethodPost,
			path:     "/api/auth/password-reset",
			body:     []byte(`{"email":"not-an-email"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown email",
			method:   http.MethodPost,
			path:     "/api/auth/password-reset",
			body:     []byte(`{"email":"nobody@test.cd"}`),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, resetMsg),
		},
		{
			name:     "known email",
			method:   http.MethodPost,
			path:     "/api/auth/password-reset",
			body:     []byte(`{"email":"FORGETFUL@test.cd"}`),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, resetMsg),
		},
		{
			name:     "confirm with mismatched passwords",
			method:   http.MethodPost,
			path:     "/api/auth/password-reset-confirm",
			body:     []byte(`{"uid":"` + uid + `","token":"` + token + `","password":"n3wpass","password_confirm":"other1"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "confirm with bad token",
			method:   http.MethodPost,
			path:     "/api/auth/password-reset-confirm",
			body:     []byte(`{"uid":"` + uid + `","token":"bad-token","password":"n3wpass","password_confirm":"n3wpass"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "confirm",
			method:   http.MethodPost,
			path:     "/api/auth/password-reset-confirm",
			body:     []byte(`{"uid":"` + uid + `","token":"` + token + `","password":"n3wpass","password_confirm":"n3wpass"}`),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SuccessResponse{Success: true, Message: "Password has been reset with the new password."}),
		},
	})

	rec := ta.serve(newRequest(http.MethodPost, "/api/auth/login", []byte(`{"username":"forgetful","password":"n3wpass"}`)))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func Test_authApi_rateLimit(t *testing.T) {
	ta := setup(t, func(conf *core.Config) { conf.RateLimit.LoginPerMinute = 2 })
	ta.createUser(t, "teacher", user.RoleTeacher)

	body := []byte(`{"username":"teacher","password":"s3cret!"}`)
	for i := 0; i < 2; i++ {
		rec := ta.serve(newRequest(http.MethodPost, "/api/auth/login", body))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := ta.serve(newRequest(http.MethodPost, "/api/auth/login", body))
	checkCodeAndData(t, httpTest{wantCode: http.StatusTooManyRequests, wantData: marchallObj(t, httpErr{Error: "too many requests"})}, rec)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// other routes have their own window
	rec = ta.serve(newRequest(http.MethodPost, "/api/auth/password-reset", []byte(`{"email":"x@test.cd"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_userApi_me(t *testing.T) {
	ta := setup(t)
	parent := ta.createUser(t, "parent", user.RoleParent)

	ta.runHTTPTests(t, []httpTest{
		{
			name:     "no token",
			method:   http.MethodGet,
			path:     "/api/users/me",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "invalid token",
			method:   http.MethodGet,
			path:     "/api/users/me",
			token:    "not.a.token",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "me",
			method:   http.MethodGet,
			path:     "/api/users/me",
			token:    ta.getToken(t, parent),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, parent),
		},
	})
}

func Test_userApi_userQuery(t *testing.T) {
	ta := setup(t)
	admin := ta.createUser(t, "admin", user.RoleAdmin)
	teacher := ta.createUser(t, "bob", user.RoleTeacher)
	parent := ta.createUser(t, "alice", user.RoleParent)

	adminToken := ta.getToken(t, admin)

	ta.runHTTPTests(t, []httpTest{
		{
			name:     "not admin",
			method:   http.MethodGet,
			path:     "/api/users",
			token:    ta.getToken(t, teacher),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "admins are excluded",
			method:   http.MethodGet,
			path:     "/api/users?ordering=username",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, UserListResponse{Users: []user.User{parent, teacher}, Total: 2}),
		},
		{
			name:     "by role",
			method:   http.MethodGet,
			path:     "/api/users?role=teacher",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, UserListResponse{Users: []user.User{teacher}, Total: 1}),
		},
		{
			name:     "search",
			method:   http.MethodGet,
			path:     "/api/users?search=ALI",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, UserListResponse{Users: []user.User{parent}, Total: 1}),
		},
		{
			name:     "no match",
			method:   http.MethodGet,
			path:     "/api/users?search=zorro",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: []byte(`{"users":[],"total":0}`),
		},
		{
			name:     "roles",
			method:   http.MethodGet,
			path:     "/api/users/roles",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, user.Roles),
		},
	})
}

func Test_userApi_userCreate(t *testing.T) {
	ta := setup(t)
	admin := ta.createUser(t, "admin", user.RoleAdmin)
	adminToken := ta.getToken(t, admin)

	ta.runHTTPTests(t, []httpTest{
		{
			name:     "invalid username",
			method:   http.MethodPost,
			path:     "/api/users",
			body:     []byte(`{"username":"mr admin","password":"s3cret!","role":"admin"}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "only alphanumeric characters and underscores are allowed"}),
		},
		{
			name:     "email taken",
			method:   http.MethodPost,
			path:     "/api/users",
			body:     []byte(`{"username":"other","email":"admin@test.cd","password":"s3cret!","role":"teacher"}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
	})

	t.Run("admins may create admins", func(t *testing.T) {
		rec := ta.serve(newAuthRequest(http.MethodPost, "/api/users", adminToken, []byte(`{"username":"admin2","password":"s3cret!","role":"admin"}`)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var usr user.User
		decode(t, rec, &usr)
		assert.Equal(t, user.RoleAdmin, usr.Role)
		assert.NotEmpty(t, usr.ID)
	})
}

func Test_userApi_userDestroy(t *testing.T) {
	ta := setup(t)
	admin := ta.createUser(t, "admin", user.RoleAdmin)
	parent := ta.createUser(t, "parent", user.RoleParent)
	adminToken := ta.getToken(t, admin)

	ta.runHTTPTests(t, []httpTest{
		{
			name:     "missing id",
			method:   http.MethodDelete,
			path:     "/api/users",
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"id": errRequired}),
		},
		{
			name:     "self",
			method:   http.MethodDelete,
			path:     "/api/users?id=" + admin.ID,
			token:    adminToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "unknown",
			method:   http.MethodDelete,
			path:     "/api/users?id=unknown",
			token:    adminToken,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: user.ErrNotFound.Error()}),
		},
		{
			name:     "delete",
			method:   http.MethodDelete,
			path:     "/api/users?id=" + parent.ID,
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SuccessResponse{Success: true, Message: "user deleted"}),
		},
	})

	_, err := ta.userSvc.GetByID(parent.ID)
	assert.Equal(t, user.ErrNotFound, err)
}

func Test_userApi_changePassword(t *testing.T) {
	ta := setup(t)
	admin := ta.createUser(t, "admin", user.RoleAdmin)
	teacher := ta.createUser(t, "teacher", user.RoleTeacher)
	adminToken := ta.getToken(t, admin)

	ta.runHTTPTests(t, []httpTest{
		{
			name:     "teacher cannot",
			method:   http.MethodPut,
			path:     "/api/users/password",
			body:     []byte(`{"userId":"` + teacher.ID + `","newPassword":"n3wpass"}`),
			token:    ta.getToken(t, teacher),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "missing fields",
			method:   http.MethodPut,
			path:     "/api/users/password",
			body:     []byte(`{}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"userId": errRequired, "newPassword": errRequired}),
		},
		{
			name:     "unknown user",
			method:   http.MethodPut,
			path:     "/api/users/password",
			body:     []byte(`{"userId":"unknown","newPassword":"n3wpass"}`),
			token:    adminToken,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "change",
			method:   http.MethodPut,
			path:     "/api/users/password",
			body:     []byte(`{"userId":"` + teacher.ID + `","newPassword":"n3wpass"}`),
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SuccessResponse{Success: true, Message: "password updated"}),
		},
	})

	rec := ta.serve(newRequest(http.MethodPost, "/api/auth/login", []byte(`{"username":"teacher","password":"n3wpass"}`)))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = ta.serve(newRequest(http.MethodPost, "/api/auth/login", []byte(`{"username":"teacher","password":"`+testPassword+`"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_homeAndHealth(t *testing.T) {
	ta := setup(t)

	rec := ta.serve(newRequest(http.MethodGet, "/"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Welcome to Future Navigator"))

	rec = ta.serve(newRequest(http.MethodGet, "/api/health"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res HealthResponse
	decode(t, rec, &res)
	assert.True(t, res.Success)
	assert.Equal(t, "test", res.Build)
	assert.Equal(t, "connected", res.Database.Status)
	assert.True(t, res.Environment.Configured)
	assert.Empty(t, res.Environment.Missing)
	assert.False(t, res.Environment.Details["GEMINI_API_KEY"])
	assert.False(t, res.Timestamp.IsZero())
}
