package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/dojo/apps/api/echo"
	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/access"
	"github.com/trezcool/dojo/core/contact"
	"github.com/trezcool/dojo/core/discipline"
	"github.com/trezcool/dojo/core/matriculation"
	"github.com/trezcool/dojo/core/role"
	"github.com/trezcool/dojo/core/statuschange"
	"github.com/trezcool/dojo/core/training"
	"github.com/trezcool/dojo/core/user"
	cachesvc "github.com/trezcool/dojo/services/cache"
	emailsvc "github.com/trezcool/dojo/services/email"
	inmemdb "github.com/trezcool/dojo/storage/database/inmem"
	testutil "github.com/trezcool/dojo/tests"
)

const strongPwd = "Str0ng!Pass#42"

func TestMain(m *testing.M) {
	user.LoadCommonPasswords(testutil.NopLogger())
	os.Exit(m.Run())
}

// env is one server with its own database, cache and three users: an administrator,
// an instructor and a student.
type env struct {
	conf        *core.Config
	app         *echoapi.Server
	usrRepo     user.Repository
	disciplines discipline.Repository
	roleSvc     *role.Service
	mail        *emailsvc.ConsoleServiceMock

	admin, instructor, student user.User
}

func setup(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	logger := testutil.NopLogger()

	conf := *core.Conf
	conf.Debug = false
	conf.TestMode = true
	conf.DefaultSignupRole = role.Student
	conf.Server.RateLimit = 3
	conf.Server.RateLimitWindow = time.Minute
	conf.StatusChangeTTL = 5 * time.Minute

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)

	db := inmemdb.Open()
	cache := cachesvc.NewMemoryCache()

	roleSvc := role.NewService(inmemdb.NewRoleRepository(db), cache, &conf, logger)
	require.NoError(t, roleSvc.Bootstrap(ctx))

	e := &env{
		conf:        &conf,
		usrRepo:     inmemdb.NewUserRepository(db),
		disciplines: inmemdb.NewDisciplineRepository(db),
		roleSvc:     roleSvc,
		mail:        emailsvc.NewConsoleServiceMock(&conf, logger),
	}

	userSvc := user.NewService(e.usrRepo, roleSvc, e.mail, &conf, logger)
	disciplineSvc := discipline.NewService(e.disciplines)

	tables, err := access.DefaultTables()
	require.NoError(t, err)
	resolver := access.NewResolver(roleSvc, tables, logger)

	flow := statuschange.NewFlow(cache, resolver, conf.StatusChangeTTL)
	flow.Register(statuschange.KindDiscipline, disciplineSvc, discipline.Statuses...)
	flow.Register(statuschange.KindUser, userSvc, user.Statuses...)

	e.app = echoapi.NewServer(echoapi.ServerDeps{
		Conf:             &conf,
		Logger:           logger,
		Validate:         validate,
		Translator:       translator,
		UserSvc:          userSvc,
		RoleSvc:          roleSvc,
		Resolver:         resolver,
		StatusFlow:       flow,
		DisciplineSvc:    disciplineSvc,
		TrainingSvc:      training.NewService(inmemdb.NewTrainingRepository(db), disciplineSvc, userSvc),
		MatriculationSvc: matriculation.NewService(inmemdb.NewMatriculationRepository(db), disciplineSvc, userSvc),
		ContactSvc:       contact.NewService(inmemdb.NewContactRepository(db), userSvc),
		RateLimiter:      cache,
		DisableReqLogs:   true,
	})

	e.admin = e.createUser(t, "Sensei", "Admin", "admin@dojo.test", user.StatusActive, role.Administrator)
	e.instructor = e.createUser(t, "Miyagi", "Kesuke", "miyagi@dojo.test", user.StatusActive, role.Instructor)
	e.student = e.createUser(t, "Daniel", "Larusso", "daniel@dojo.test", user.StatusActive, role.Student)
	return e
}

// createUser creates a user holding the named roles.
func (e *env) createUser(t *testing.T, firstName, surname, email, status string, roles ...string) user.User {
	t.Helper()
	ctx := context.Background()

	usr := testutil.CreateUser(t, e.usrRepo, firstName, surname, email, strongPwd, status)
	if len(roles) == 0 {
		return usr
	}
	ids := make([]string, 0, len(roles))
	for _, name := range roles {
		r, err := e.roleSvc.GetByName(ctx, name)
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}
	require.NoError(t, e.roleSvc.SetUserRoles(ctx, usr.ID, ids))

	usr, err := e.usrRepo.GetUserByID(ctx, usr.ID)
	require.NoError(t, err)
	return usr
}

// customRole creates a role holding exactly the named privileges.
func (e *env) customRole(t *testing.T, name string, privileges ...string) role.Role {
	t.Helper()
	ctx := context.Background()

	r, err := e.roleSvc.Create(ctx, role.NewRole{Name: name})
	require.NoError(t, err)

	catalog, err := e.roleSvc.Catalog(ctx)
	require.NoError(t, err)
	grant := make([]string, 0, len(privileges))
	for _, p := range catalog {
		for _, name := range privileges {
			if p.Name == name {
				grant = append(grant, p.ID)
			}
		}
	}
	require.Len(t, grant, len(privileges))

	res, err := e.roleSvc.TogglePrivileges(ctx, r.ID, role.TogglePrivileges{Grant: grant})
	require.NoError(t, err)
	require.True(t, res.AllOK())
	return r
}

func (e *env) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := echoapi.GenerateToken(e.conf, echoapi.GetUserClaims(e.conf, usr))
	require.NoError(t, err)
	return token
}

// do serves one request. A non-nil body is sent as JSON.
func (e *env) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req, rec := newAuthRequest(method, path, token, data)
	e.app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	token    string
	wantCode int
}

type page[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func newAuthRequest(method, path, token string, data []byte) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

// decode reads the JSON response into v and returns it.
func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func checkCode(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
}

func runHTTPTests(t *testing.T, e *env, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			checkCode(t, tt, e.do(t, tt.method, tt.path, tt.token, tt.body))
		})
	}
}
