package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core/access"
	"github.com/trezcool/dojo/core/contact"
	"github.com/trezcool/dojo/core/user"
)

var contactOrderings = map[string]string{
	"name":       "name",
	"created_at": "created_at",
}

// contactApi serves emergency contacts. Users who cannot list every contact only see and manage their own.
type contactApi struct {
	svc      *contact.Service
	users    user.Service
	gate     *gate
	validate *validator.Validate
}

func registerContactAPI(g *echo.Group, jwt echo.MiddlewareFunc, gate *gate, deps ServerDeps) {
	api := contactApi{
		svc:      deps.ContactSvc,
		users:    deps.UserSvc,
		gate:     gate,
		validate: deps.Validate,
	}

	cg := g.Group("/practitioner-contacts", jwt)
	cg.GET("", api.query, gate.any(access.ListPractitionerContacts, access.ViewPractitionerContact))
	cg.POST("", api.create, gate.any(access.CreatePractitionerContact))
	cg.GET("/:id", api.retrieve, gate.any(access.ViewPractitionerContact))
	cg.PUT("/:id", api.update, gate.any(access.UpdatePractitionerContact))
	cg.DELETE("/:id", api.destroy, gate.any(access.DeletePractitionerContact))
}

// owner is the only user whose contacts the request may reach, or "" for anyone's.
func (api *contactApi) owner(ctx echo.Context) (string, error) {
	canList, err := api.gate.can(ctx, access.ListPractitionerContacts)
	if err != nil || canList {
		return "", err
	}
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return "", err
	}
	return usr.ID, nil
}

func (api *contactApi) query(ctx echo.Context) error {
	var filter contact.QueryFilter
	page, orderings, err := bindList(ctx, &filter, contactOrderings)
	if err != nil {
		return err
	}
	filter.Clean()

	owner, err := api.owner(ctx)
	if err != nil {
		return err
	}
	if owner != "" {
		filter.UserID = owner
	}

	contacts, count, err := api.svc.Query(ctx.Request().Context(), filter, page, orderings)
	if err != nil {
		return errors.Wrap(err, "querying practitioner contacts")
	}
	return sendPage(ctx, contacts, count)
}

func (api *contactApi) create(ctx echo.Context) error {
	var data contact.NewContact
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewContact")
	}

	owner, err := api.owner(ctx)
	if err != nil {
		return err
	}
	if owner != "" {
		if data.UserID != "" && data.UserID != owner {
			return errHttpForbidden
		}
		data.UserID = owner
	}
	if err = data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating practitioner contact")
	}
	return ctx.JSON(http.StatusCreated, c)
}

// find finds the ":id" contact within the reach of the request.
func (api *contactApi) find(ctx echo.Context) (contact.PractitionerContact, error) {
	c, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return contact.PractitionerContact{}, errors.Wrap(err, "finding practitioner contact by ID")
	}
	owner, err := api.owner(ctx)
	if err != nil {
		return contact.PractitionerContact{}, err
	}
	if owner != "" && c.UserID != owner {
		return contact.PractitionerContact{}, contact.ErrNotFound
	}
	return c, nil
}

func (api *contactApi) retrieve(ctx echo.Context) error {
	c, err := api.find(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *contactApi) update(ctx echo.Context) error {
	orig, err := api.find(ctx)
	if err != nil {
		return err
	}

	var data contact.UpdateContact
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateContact")
	}
	if err = data.Validate(orig, api.validate); err != nil {
		return err
	}

	c, err := api.svc.Update(ctx.Request().Context(), orig, data)
	if err != nil {
		return errors.Wrap(err, "updating practitioner contact")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *contactApi) destroy(ctx echo.Context) error {
	c, err := api.find(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), c.ID); err != nil {
		return errors.Wrap(err, "deleting practitioner contact")
	}
	return ctx.NoContent(http.StatusNoContent)
}
