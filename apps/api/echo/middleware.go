package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/access"
	"github.com/trezcool/dojo/core/role"
	"github.com/trezcool/dojo/core/user"
)

const contextPrivilegesKey = "privileges"

// gate runs the Access Gate against the privileges of the request's user.
type gate struct {
	users user.Service
	roles *role.Service
}

func newGate(users user.Service, roles *role.Service) *gate {
	return &gate{users: users, roles: roles}
}

// privileges resolves the request user's privileges once per request.
func (g *gate) privileges(ctx echo.Context) ([]access.Privilege, error) {
	if privs, ok := ctx.Get(contextPrivilegesKey).([]access.Privilege); ok {
		return privs, nil
	}
	usr, err := getContextUser(ctx, g.users)
	if err != nil {
		return nil, err
	}
	privs, err := g.roles.UserPrivileges(ctx.Request().Context(), usr.ID)
	if err != nil {
		return nil, errors.Wrap(err, "resolving user privileges")
	}
	ctx.Set(contextPrivilegesKey, privs)
	return privs, nil
}

func (g *gate) can(ctx echo.Context, privilege string) (bool, error) {
	privs, err := g.privileges(ctx)
	if err != nil {
		return false, err
	}
	return access.Can(privs, privilege), nil
}

// require answers 403 unless the user holds the privileges under mode.
func (g *gate) require(mode access.Mode, required ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			privs, err := g.privileges(ctx)
			if err != nil {
				return err
			}
			if !access.HasAccess(privs, mode, required...) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

func (g *gate) any(required ...string) echo.MiddlewareFunc {
	return g.require(access.ModeAny, required...)
}

// selfOr lets users reach their own ":id" resource, and anyone's with one of the privileges.
func (g *gate) selfOr(required ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, g.users)
			if err != nil {
				return err
			}
			if ctx.Param("id") == usr.ID {
				return next(ctx)
			}
			return g.any(required...)(next)(ctx)
		}
	}
}

// activeUserMiddleware rejects tokens of deactivated or suspended users.
func activeUserMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return err
			}
			switch usr.Status {
			case user.StatusInactive:
				return errAccountDeactivated
			case user.StatusSuspended:
				return errAccountSuspended
			}
			return next(ctx)
		}
	}
}

// chain applies mws in order: the first one runs first.
func chain(mws ...echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// rateLimitMiddleware counts hits per route and client IP. A failing limiter lets requests through.
func rateLimitMiddleware(limiter core.RateLimiter, limit int, per time.Duration, logger core.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if limiter == nil || limit <= 0 {
				return next(ctx)
			}
			key := "ratelimit:" + ctx.Path() + ":" + ctx.RealIP()
			allowed, err := limiter.Allow(ctx.Request().Context(), key, limit, per)
			if err != nil {
				logger.Warn("rate limiting "+ctx.Path(), err)
				return next(ctx)
			}
			if !allowed {
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}
