// Package dig_container wires the API dependencies with go.uber.org/dig.
package dig_container

import (
	"context"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

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
	logsvc "github.com/trezcool/dojo/services/logger"
	"github.com/trezcool/dojo/storage/database"
	inmemdb "github.com/trezcool/dojo/storage/database/inmem"
	sqlxrepos "github.com/trezcool/dojo/storage/database/sqlx"
)

const engineMemory = "memory"

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// DBCloser releases the database. It is a no-op for the memory engine.
	DBCloser func() error

	Repositories struct {
		dig.Out
		Users          user.Repository
		Roles          role.Repository
		Disciplines    discipline.Repository
		Training       training.Repository
		Matriculations matriculation.Repository
		Contacts       contact.Repository
		Close          DBCloser
	}

	Caches struct {
		dig.Out
		Cache       core.Cache
		RateLimiter core.RateLimiter
	}

	serverParams struct {
		dig.In
		Conf             *core.Config
		Logger           core.Logger
		Validate         *validator.Validate
		Translator       ut.Translator
		UserSvc          user.Service
		RoleSvc          *role.Service
		Resolver         *access.Resolver
		StatusFlow       *statuschange.Flow
		DisciplineSvc    *discipline.Service
		TrainingSvc      *training.Service
		MatriculationSvc *matriculation.Service
		ContactSvc       *contact.Service
		RateLimiter      core.RateLimiter
	}
)

func newLogger(conf *core.Config) (core.Logger, error) {
	zl, err := logsvc.NewZap(conf, "api")
	if err != nil {
		return nil, err
	}
	logger := logsvc.NewRollbarLogger(zl, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger, nil
}

func newDBLogger(conf *core.Config) (core.Logger, error) {
	zl, err := logsvc.NewZap(conf, "db")
	if err != nil {
		return nil, err
	}
	return logsvc.NewRollbarLogger(zl, conf), nil
}

// newRepositories opens the configured database engine. Postgres is created and migrated when needed.
func newRepositories(conf *core.Config, loggerParam DBLoggerParam) (Repositories, error) {
	if conf.Database.Engine == engineMemory {
		loggerParam.Logger.Warn("using the memory database engine: data will not survive restarts")
		db := inmemdb.Open()
		return Repositories{
			Users:          inmemdb.NewUserRepository(db),
			Roles:          inmemdb.NewRoleRepository(db),
			Disciplines:    inmemdb.NewDisciplineRepository(db),
			Training:       inmemdb.NewTrainingRepository(db),
			Matriculations: inmemdb.NewMatriculationRepository(db),
			Contacts:       inmemdb.NewContactRepository(db),
			Close:          func() error { return nil },
		}, nil
	}

	setUp := func(ctx context.Context) (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}
		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, err
		}
		if err = database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp(context.Background())
	if err != nil {
		return Repositories{}, errors.Wrap(err, "setting up database")
	}
	return Repositories{
		Users:          sqlxrepos.NewUserRepository(db),
		Roles:          sqlxrepos.NewRoleRepository(db),
		Disciplines:    sqlxrepos.NewDisciplineRepository(db),
		Training:       sqlxrepos.NewTrainingRepository(db),
		Matriculations: sqlxrepos.NewMatriculationRepository(db),
		Contacts:       sqlxrepos.NewContactRepository(db),
		Close:          db.Close,
	}, nil
}

// newCaches uses redis when an address is configured, process memory otherwise.
func newCaches(conf *core.Config) (Caches, error) {
	if conf.Redis.Addr == "" {
		c := cachesvc.NewMemoryCache()
		return Caches{Cache: c, RateLimiter: c}, nil
	}
	client, err := cachesvc.NewRedisClient(conf)
	if err != nil {
		return Caches{}, err
	}
	c := cachesvc.NewRedisCache(client)
	return Caches{Cache: c, RateLimiter: c}, nil
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	return validate, translator
}

func newRoleAssigner(svc *role.Service) user.RoleAssigner { return svc }

func newTrainingService(repo training.Repository, disciplines *discipline.Service, users user.Service) *training.Service {
	return training.NewService(repo, disciplines, users)
}

func newMatriculationService(repo matriculation.Repository, disciplines *discipline.Service, users user.Service) *matriculation.Service {
	return matriculation.NewService(repo, disciplines, users)
}

func newContactService(repo contact.Repository, users user.Service) *contact.Service {
	return contact.NewService(repo, users)
}

func newResolver(conf *core.Config, roles *role.Service, logger core.Logger) (*access.Resolver, error) {
	tables, err := access.DefaultTables()
	if err != nil {
		return nil, err
	}
	return access.NewResolver(roles, tables, logger, access.WithEntryFilter(conf.FilterNavigation)), nil
}

func newStatusFlow(
	conf *core.Config,
	cache core.Cache,
	resolver *access.Resolver,
	disciplines *discipline.Service,
	users user.Service,
) *statuschange.Flow {
	flow := statuschange.NewFlow(cache, resolver, conf.StatusChangeTTL)
	flow.Register(statuschange.KindDiscipline, disciplines, discipline.Statuses...)
	flow.Register(statuschange.KindUser, users, user.Statuses...)
	return flow
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:             p.Conf,
		Logger:           p.Logger,
		Validate:         p.Validate,
		Translator:       p.Translator,
		UserSvc:          p.UserSvc,
		RoleSvc:          p.RoleSvc,
		Resolver:         p.Resolver,
		StatusFlow:       p.StatusFlow,
		DisciplineSvc:    p.DisciplineSvc,
		TrainingSvc:      p.TrainingSvc,
		MatriculationSvc: p.MatriculationSvc,
		ContactSvc:       p.ContactSvc,
		RateLimiter:      p.RateLimiter,
	})
}

func provideConfig() *core.Config { return core.Conf }

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(provideConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newCaches))
	must(c.Provide(emailsvc.NewService))
	must(c.Provide(newValidator))

	must(c.Provide(role.NewService))
	must(c.Provide(newRoleAssigner))
	must(c.Provide(user.NewService))
	must(c.Provide(discipline.NewService))
	must(c.Provide(newTrainingService))
	must(c.Provide(newMatriculationService))
	must(c.Provide(newContactService))
	must(c.Provide(newResolver))
	must(c.Provide(newStatusFlow))
	must(c.Provide(newServer))
	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
