package tests

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/dojo/apps/api/echo"
	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/access"
	"github.com/trezcool/dojo/core/role"
	"github.com/trezcool/dojo/core/statuschange"
	"github.com/trezcool/dojo/core/user"
)

func Test_userApi_login(t *testing.T) {
	e := setup(t)
	e.createUser(t, "Johnny", "Lawrence", "johnny@dojo.test", user.StatusSuspended, role.Student)
	e.createUser(t, "John", "Kreese", "kreese@dojo.test", user.StatusInactive, role.Student)

	login := func(email, pwd string) echoapi.LoginRequest {
		return echoapi.LoginRequest{Email: email, Password: pwd}
	}

	runHTTPTests(t, e, []httpTest{
		{name: "empty body", method: http.MethodPost, path: "/v1/users/login", wantCode: http.StatusBadRequest},
		{
			name: "unknown email", method: http.MethodPost, path: "/v1/users/login",
			body: login("nobody@dojo.test", strongPwd), wantCode: http.StatusBadRequest,
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/users/login",
			body: login(e.student.Email, "Wr0ng!Pass#42"), wantCode: http.StatusBadRequest,
		},
		{
			name: "suspended", method: http.MethodPost, path: "/v1/users/login",
			body: login("johnny@dojo.test", strongPwd), wantCode: http.StatusForbidden,
		},
		{
			name: "deactivated", method: http.MethodPost, path: "/v1/users/login",
			body: login("kreese@dojo.test", strongPwd), wantCode: http.StatusForbidden,
		},
	})

	t.Run("success", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/v1/users/login", "", login("  DANIEL@dojo.test ", strongPwd))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[echoapi.LoginResponse](t, rec)
		assert.NotEmpty(t, resp.Token)
		require.NotNil(t, resp.User)
		assert.Equal(t, e.student.ID, resp.User.ID)
		assert.True(t, resp.User.LastLogin.Valid)

		// the token works
		rec = e.do(t, http.MethodGet, "/v1/users/me", resp.Token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_userApi_signup(t *testing.T) {
	e := setup(t)

	newUser := func(email, pwd string) user.NewUser {
		return user.NewUser{
			FirstName:       "Robby",
			Surname:         "Keene",
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwd,
		}
	}

	runHTTPTests(t, e, []httpTest{
		{name: "empty body", method: http.MethodPost, path: "/v1/users/signup", wantCode: http.StatusBadRequest},
		{
			name: "email taken", method: http.MethodPost, path: "/v1/users/signup",
			body: newUser(e.student.Email, strongPwd), wantCode: http.StatusBadRequest,
		},
		{
			name: "weak password", method: http.MethodPost, path: "/v1/users/signup",
			body: newUser("robby@dojo.test", "12345678"), wantCode: http.StatusBadRequest,
		},
	})

	t.Run("success", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/v1/users/signup", "", newUser("Robby@Dojo.test", strongPwd))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		usr := decode[user.User](t, rec)
		assert.Equal(t, "robby@dojo.test", usr.Email)
		assert.Equal(t, user.StatusActive, usr.Status)
		require.Len(t, usr.Roles, 1)
		assert.Equal(t, role.Student, usr.Roles[0].Name)
	})

	t.Run("role_ids ignored", func(t *testing.T) {
		admin, err := e.roleSvc.GetByName(context.Background(), role.Administrator)
		require.NoError(t, err)

		nu := newUser("hawk@dojo.test", strongPwd)
		nu.RoleIDs = []string{admin.ID}
		rec := e.do(t, http.MethodPost, "/v1/users/signup", "", nu)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		usr := decode[user.User](t, rec)
		require.Len(t, usr.Roles, 1)
		assert.Equal(t, role.Student, usr.Roles[0].Name)
	})
}

func Test_userApi_auth(t *testing.T) {
	e := setup(t)
	suspended := e.createUser(t, "Johnny", "Lawrence", "johnny@dojo.test", user.StatusActive, role.Student)
	suspendedToken := e.token(t, suspended)
	suspended.Status = user.StatusSuspended
	_, err := e.usrRepo.UpdateUser(context.Background(), suspended)
	require.NoError(t, err)

	ghost := user.User{ID: "ghost", FirstName: "Ghost", Email: "ghost@dojo.test"}

	rec := e.do(t, http.MethodGet, "/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, httpErr{Error: "missing or malformed jwt"}, decode[httpErr](t, rec))

	runHTTPTests(t, e, []httpTest{
		{name: "invalid token", method: http.MethodGet, path: "/v1/users/me", token: "not-a-jwt", wantCode: http.StatusUnauthorized},
		{name: "unknown user", method: http.MethodGet, path: "/v1/users/me", token: e.token(t, ghost), wantCode: http.StatusUnauthorized},
		{name: "suspended user", method: http.MethodGet, path: "/v1/users/me", token: suspendedToken, wantCode: http.StatusForbidden},
		{name: "valid token", method: http.MethodGet, path: "/v1/users/me", token: e.token(t, e.student), wantCode: http.StatusOK},
	})
}

func Test_userApi_tokenRefresh(t *testing.T) {
	e := setup(t)

	t.Run("success", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/v1/users/token-refresh", e.token(t, e.student), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[echoapi.LoginResponse](t, rec)
		assert.NotEmpty(t, resp.Token)
		assert.Nil(t, resp.User)
	})

	t.Run("refresh expired", func(t *testing.T) {
		oriat := time.Now().Add(-e.conf.Server.JWTRefreshExpirationDelta - time.Minute).Unix()
		token, err := echoapi.GenerateToken(e.conf, echoapi.GetUserClaims(e.conf, e.student, oriat))
		require.NoError(t, err)

		rec := e.do(t, http.MethodPost, "/v1/users/token-refresh", token, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	})
}

func Test_userApi_me(t *testing.T) {
	e := setup(t)
	token := e.token(t, e.student)

	rec := e.do(t, http.MethodGet, "/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, e.student.ID, decode[user.User](t, rec).ID)

	runHTTPTests(t, e, []httpTest{
		{
			name: "cannot change email", method: http.MethodPut, path: "/v1/users/me", token: token,
			body: user.UpdateUser{Email: "other@dojo.test"}, wantCode: http.StatusForbidden,
		},
		{
			name: "cannot change status", method: http.MethodPut, path: "/v1/users/me", token: token,
			body: body{"status": user.StatusSuspended}, wantCode: http.StatusForbidden,
		},
		{
			name: "invalid phone", method: http.MethodPut, path: "/v1/users/me", token: token,
			body: user.UpdateUser{Phone: "call me"}, wantCode: http.StatusBadRequest,
		},
	})

	t.Run("update profile", func(t *testing.T) {
		rec := e.do(t, http.MethodPut, "/v1/users/me", token, user.UpdateUser{Phone: "+243 810 000 000"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		usr := decode[user.User](t, rec)
		assert.Equal(t, "+243 810 000 000", usr.Phone)
		assert.Equal(t, e.student.FirstName, usr.FirstName)
		assert.Equal(t, e.student.Email, usr.Email)
	})
}

func Test_userApi_query(t *testing.T) {
	e := setup(t)
	adminToken := e.token(t, e.admin)

	path := func(params url.Values) string { return "/v1/users?" + params.Encode() }

	runHTTPTests(t, e, []httpTest{
		{name: "student forbidden", method: http.MethodGet, path: "/v1/users", token: e.token(t, e.student), wantCode: http.StatusForbidden},
		{name: "instructor forbidden", method: http.MethodGet, path: "/v1/users", token: e.token(t, e.instructor), wantCode: http.StatusForbidden},
		{
			name: "invalid page", method: http.MethodGet, path: path(url.Values{"page": {"0x"}}),
			token: adminToken, wantCode: http.StatusBadRequest,
		},
		{
			name: "page size too large", method: http.MethodGet, path: path(url.Values{"page_size": {"1000"}}),
			token: adminToken, wantCode: http.StatusBadRequest,
		},
	})

	students, err := e.roleSvc.GetByName(context.Background(), role.Student)
	require.NoError(t, err)

	tests := []struct {
		name      string
		params    url.Values
		wantCount int
		wantIDs   []string
	}{
		{name: "all", params: url.Values{"ordering": {"email"}}, wantCount: 3, wantIDs: []string{e.admin.ID, e.student.ID, e.instructor.ID}},
		{name: "search", params: url.Values{"search": {"MIYAGI"}}, wantCount: 1, wantIDs: []string{e.instructor.ID}},
		{name: "role", params: url.Values{"role_id": {students.ID}}, wantCount: 1, wantIDs: []string{e.student.ID}},
		{name: "status", params: url.Values{"status": {user.StatusSuspended}}, wantCount: 0, wantIDs: nil},
		{
			name: "paginated", params: url.Values{"ordering": {"-email"}, "page": {"2"}, "page_size": {"2"}},
			wantCount: 3, wantIDs: []string{e.admin.ID},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodGet, path(tt.params), adminToken, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			pg := decode[page[user.User]](t, rec)
			assert.Equal(t, tt.wantCount, pg.Count)
			ids := make([]string, 0, len(pg.Items))
			for _, u := range pg.Items {
				ids = append(ids, u.ID)
			}
			if tt.wantIDs == nil {
				assert.Empty(t, ids)
			} else {
				assert.Equal(t, tt.wantIDs, ids)
			}
		})
	}
}

func Test_userApi_retrieve(t *testing.T) {
	e := setup(t)

	runHTTPTests(t, e, []httpTest{
		{name: "self", method: http.MethodGet, path: "/v1/users/" + e.student.ID, token: e.token(t, e.student), wantCode: http.StatusOK},
		{name: "other", method: http.MethodGet, path: "/v1/users/" + e.admin.ID, token: e.token(t, e.student), wantCode: http.StatusForbidden},
		{name: "admin", method: http.MethodGet, path: "/v1/users/" + e.student.ID, token: e.token(t, e.admin), wantCode: http.StatusOK},
		{name: "not found", method: http.MethodGet, path: "/v1/users/ghost", token: e.token(t, e.admin), wantCode: http.StatusNotFound},
	})
}

func Test_userApi_createAndUpdate(t *testing.T) {
	e := setup(t)
	adminToken := e.token(t, e.admin)

	instructors, err := e.roleSvc.GetByName(context.Background(), role.Instructor)
	require.NoError(t, err)

	nu := user.NewUser{
		FirstName:       "Chozen",
		Surname:         "Toguchi",
		Email:           "chozen@dojo.test",
		Password:        strongPwd,
		PasswordConfirm: strongPwd,
		RoleIDs:         []string{instructors.ID},
	}
	rec := e.do(t, http.MethodPost, "/v1/users", e.token(t, e.student), nu)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPost, "/v1/users", adminToken, nu)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[user.User](t, rec)
	require.Len(t, created.Roles, 1)
	assert.Equal(t, role.Instructor, created.Roles[0].Name)

	runHTTPTests(t, e, []httpTest{
		{
			name: "email taken", method: http.MethodPut, path: "/v1/users/" + created.ID, token: adminToken,
			body: user.UpdateUser{Email: e.student.Email}, wantCode: http.StatusBadRequest,
		},
		{
			name: "student forbidden", method: http.MethodPut, path: "/v1/users/" + created.ID, token: e.token(t, e.student),
			body: user.UpdateUser{Surname: "Miyagi"}, wantCode: http.StatusForbidden,
		},
	})

	t.Run("status is not a profile field", func(t *testing.T) {
		rec := e.do(t, http.MethodPut, "/v1/users/"+created.ID, adminToken, body{"surname": "Miyagi", "status": user.StatusInactive})
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		assert.Contains(t, decode[map[string]string](t, rec), "status")

		usr, err := e.usrRepo.GetUserByID(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, user.StatusActive, usr.Status)
		assert.Equal(t, "Toguchi", usr.Surname)
	})

	t.Run("profile update keeps status", func(t *testing.T) {
		rec := e.do(t, http.MethodPut, "/v1/users/"+created.ID, adminToken, user.UpdateUser{Phone: "+243 810 000 001"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		updated := decode[user.User](t, rec)
		assert.Equal(t, "+243 810 000 001", updated.Phone)
		assert.Equal(t, user.StatusActive, updated.Status)
	})

	t.Run("set roles", func(t *testing.T) {
		rec := e.do(t, http.MethodPut, "/v1/users/"+created.ID+"/roles", adminToken, role.AssignRoles{RoleIDs: []string{"ghost"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

		rec = e.do(t, http.MethodPut, "/v1/users/"+created.ID+"/roles", adminToken, role.AssignRoles{RoleIDs: []string{}})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Empty(t, decode[user.User](t, rec).Roles)
	})
}

func Test_userApi_createWithRoles(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	admins, err := e.roleSvc.GetByName(ctx, role.Administrator)
	require.NoError(t, err)
	e.customRole(t, "Registrar", access.CreateUser)
	registrar := e.createUser(t, "Sam", "Larusso", "sam@dojo.test", user.StatusActive, "Registrar")
	registrarToken := e.token(t, registrar)

	newUser := func(email string, roleIDs ...string) user.NewUser {
		return user.NewUser{
			FirstName:       "Robby",
			Surname:         "Keene",
			Email:           email,
			Password:        strongPwd,
			PasswordConfirm: strongPwd,
			RoleIDs:         roleIDs,
		}
	}

	runHTTPTests(t, e, []httpTest{
		{
			name: "roles need assign_role", method: http.MethodPost, path: "/v1/users", token: registrarToken,
			body: newUser("robby@dojo.test", admins.ID), wantCode: http.StatusForbidden,
		},
		{
			name: "no roles", method: http.MethodPost, path: "/v1/users", token: registrarToken,
			body: newUser("robby@dojo.test"), wantCode: http.StatusCreated,
		},
	})

	t.Run("unknown role stores nothing", func(t *testing.T) {
		adminToken := e.token(t, e.admin)
		nu := newUser("kenny@dojo.test", "nope")

		rec := e.do(t, http.MethodPost, "/v1/users", adminToken, nu)
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		assert.Contains(t, decode[map[string]string](t, rec), "role_ids")

		_, err := e.usrRepo.GetUserByEmail(ctx, nu.Email)
		assert.True(t, core.IsNotFound(err))

		// a corrected retry is not blocked by a leftover account
		nu.RoleIDs = []string{admins.ID}
		rec = e.do(t, http.MethodPost, "/v1/users", adminToken, nu)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, role.Administrator, decode[user.User](t, rec).Roles[0].Name)
	})
}

func Test_userApi_updateStatusNeedsFlow(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	e.customRole(t, "Clerk", access.UpdateUser)
	clerk := e.createUser(t, "Amanda", "Larusso", "amanda@dojo.test", user.StatusActive, "Clerk")

	rec := e.do(t, http.MethodPut, "/v1/users/"+e.student.ID, e.token(t, clerk), body{"status": user.StatusSuspended})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/v1/status-changes", e.token(t, clerk),
		statuschange.Request{Kind: statuschange.KindUser, EntityID: e.student.ID, Status: user.StatusSuspended})
	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	usr, err := e.usrRepo.GetUserByID(ctx, e.student.ID)
	require.NoError(t, err)
	assert.Equal(t, user.StatusActive, usr.Status)
}

func Test_userApi_destroy(t *testing.T) {
	e := setup(t)
	adminToken := e.token(t, e.admin)
	victim := e.createUser(t, "Johnny", "Lawrence", "johnny@dojo.test", user.StatusActive)
	other := e.createUser(t, "Tory", "Nichols", "tory@dojo.test", user.StatusActive)

	runHTTPTests(t, e, []httpTest{
		{name: "self", method: http.MethodDelete, path: "/v1/users/" + e.admin.ID, token: adminToken, wantCode: http.StatusForbidden},
		{name: "student forbidden", method: http.MethodDelete, path: "/v1/users/" + victim.ID, token: e.token(t, e.student), wantCode: http.StatusForbidden},
		{name: "not found", method: http.MethodDelete, path: "/v1/users/ghost", token: adminToken, wantCode: http.StatusNotFound},
		{name: "success", method: http.MethodDelete, path: "/v1/users/" + victim.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "gone", method: http.MethodGet, path: "/v1/users/" + victim.ID, token: adminToken, wantCode: http.StatusNotFound},
		{name: "batch without ids", method: http.MethodDelete, path: "/v1/users", token: adminToken, wantCode: http.StatusNoContent},
		{
			name: "batch including self", method: http.MethodDelete, path: "/v1/users?id=" + other.ID + "&id=" + e.admin.ID,
			token: adminToken, wantCode: http.StatusForbidden,
		},
	})

	t.Run("batch partial failure", func(t *testing.T) {
		rec := e.do(t, http.MethodDelete, "/v1/users?id="+other.ID+"&id=ghost", adminToken, nil)
		require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())

		res := decode[core.BatchResult](t, rec)
		assert.Equal(t, 1, res.Succeeded)
		assert.Equal(t, 1, res.Failed)
		require.Len(t, res.Results, 2)
		assert.Equal(t, other.ID, res.Results[0].ID)
		assert.True(t, res.Results[0].OK)
		assert.Equal(t, "ghost", res.Results[1].ID)
		assert.False(t, res.Results[1].OK)
		assert.NotEmpty(t, res.Results[1].Error)
	})
}

func Test_userApi_passwordReset(t *testing.T) {
	e := setup(t)

	t.Run("request", func(t *testing.T) {
		for _, email := range []string{e.student.Email, "nobody@dojo.test"} {
			rec := e.do(t, http.MethodPost, "/v1/users/password-reset", "", echoapi.PasswordResetRequest{Email: email})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[echoapi.SuccessResponse](t, rec).Success)
		}
	})

	t.Run("confirm", func(t *testing.T) {
		token, err := user.MakeToken(e.student)
		require.NoError(t, err)
		newPwd := "N3w!Secret#99"

		rec := e.do(t, http.MethodPost, "/v1/users/password-reset-confirm", "", user.ResetUserPassword{
			Token: token, UID: user.EncodeUID(e.student), Password: newPwd, PasswordConfirm: newPwd,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = e.do(t, http.MethodPost, "/v1/users/login", "", echoapi.LoginRequest{Email: e.student.Email, Password: newPwd})
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("rate limited", func(t *testing.T) {
		// two requests already went through "request"
		rec := e.do(t, http.MethodPost, "/v1/users/password-reset", "", echoapi.PasswordResetRequest{Email: e.admin.Email})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = e.do(t, http.MethodPost, "/v1/users/password-reset", "", echoapi.PasswordResetRequest{Email: e.admin.Email})
		assert.Equal(t, http.StatusTooManyRequests, rec.Code, rec.Body.String())
	})
}
