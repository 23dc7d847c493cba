package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/statuschange"
	"github.com/trezcool/dojo/core/user"
)

// statusChangeApi exposes the confirm-before-commit flow. The flow checks that the actor is an administrator.
type statusChangeApi struct {
	flow  *statuschange.Flow
	users user.Service
}

func registerStatusChangeAPI(g *echo.Group, jwt echo.MiddlewareFunc, _ *gate, deps ServerDeps) {
	api := statusChangeApi{
		flow:  deps.StatusFlow,
		users: deps.UserSvc,
	}

	sg := g.Group("/status-changes", jwt)
	sg.POST("", api.request)
	sg.GET("/pending", api.pending)
	sg.POST("/confirm", api.confirm)
	sg.POST("/cancel", api.cancel)
}

func (api *statusChangeApi) request(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}

	var data statuschange.Request
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to statuschange.Request")
	}
	data.EntityID = core.CleanString(data.EntityID)
	data.Status = core.CleanString(data.Status, true /* lower */)

	pending, err := api.flow.Request(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "requesting status change")
	}
	return ctx.JSON(http.StatusAccepted, pending)
}

func (api *statusChangeApi) pending(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	cur, err := api.flow.Current(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "reading pending status change")
	}
	return ctx.JSON(http.StatusOK, cur)
}

func (api *statusChangeApi) confirm(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	confirmed, err := api.flow.Confirm(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "confirming status change")
	}
	return ctx.JSON(http.StatusOK, confirmed)
}

func (api *statusChangeApi) cancel(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	if err = api.flow.Cancel(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "cancelling status change")
	}
	return ctx.NoContent(http.StatusNoContent)
}
