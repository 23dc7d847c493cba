package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core/access"
	"github.com/trezcool/dojo/core/training"
	"github.com/trezcool/dojo/core/user"
)

var (
	scheduleOrderings = map[string]string{
		"weekday":    "weekday",
		"start_time": "start_time",
		"created_at": "created_at",
	}
	sessionOrderings = map[string]string{
		"date":       "date",
		"start_time": "start_time",
		"created_at": "created_at",
	}
	absenceOrderings = map[string]string{
		"date":       "date",
		"created_at": "created_at",
	}
)

type trainingApi struct {
	svc      *training.Service
	users    user.Service
	gate     *gate
	validate *validator.Validate
}

func registerTrainingAPI(g *echo.Group, jwt echo.MiddlewareFunc, gate *gate, deps ServerDeps) {
	api := trainingApi{
		svc:      deps.TrainingSvc,
		users:    deps.UserSvc,
		gate:     gate,
		validate: deps.Validate,
	}

	tg := g.Group("/training-schedules", jwt)
	tg.GET("", api.querySchedules, gate.any(access.ListTrainingSchedules, access.ViewTrainingSchedule))
	tg.POST("", api.createSchedule, gate.any(access.CreateTrainingSchedule))
	tg.GET("/:id", api.retrieveSchedule, gate.any(access.ViewTrainingSchedule))
	tg.PUT("/:id", api.updateSchedule, gate.any(access.UpdateTrainingSchedule))
	tg.DELETE("/:id", api.destroySchedule, gate.any(access.DeleteTrainingSchedule))

	sg := g.Group("/sessions", jwt)
	sg.GET("", api.querySessions, gate.any(access.ListSessions))
	sg.POST("", api.createSession, gate.any(access.CreateSession))
	sg.GET("/:id", api.retrieveSession, gate.any(access.ViewSession))
	sg.PUT("/:id", api.updateSession, gate.any(access.UpdateSession))
	sg.DELETE("/:id", api.destroySession, gate.any(access.DeleteSession))
	sg.GET("/:id/attendance", api.attendance, gate.any(access.TakeAttendance))
	sg.PUT("/:id/attendance", api.recordAttendance, gate.any(access.TakeAttendance))

	ag := g.Group("/daily-absences", jwt)
	ag.GET("", api.queryAbsences, gate.any(access.ListDailyAbsences, access.ViewDailyAbsence))
	ag.POST("", api.createAbsence, gate.any(access.CreateDailyAbsence))
	ag.GET("/:id", api.retrieveAbsence, gate.any(access.ViewDailyAbsence))
	ag.PUT("/:id", api.updateAbsence, gate.any(access.UpdateDailyAbsence))
	ag.DELETE("/:id", api.destroyAbsence, gate.any(access.DeleteDailyAbsence))
}

// Schedules

// querySchedules shows only active schedules to users who cannot list them all.
func (api *trainingApi) querySchedules(ctx echo.Context) error {
	var filter training.ScheduleFilter
	page, orderings, err := bindList(ctx, &filter, scheduleOrderings)
	if err != nil {
		return err
	}
	if filter.Weekday, err = optionalIntParam(ctx, "weekday"); err != nil {
		return err
	}

	canList, err := api.gate.can(ctx, access.ListTrainingSchedules)
	if err != nil {
		return err
	}
	if !canList {
		filter.Status = training.StatusActive
	}

	schedules, count, err := api.svc.QuerySchedules(ctx.Request().Context(), filter, page, orderings)
	if err != nil {
		return errors.Wrap(err, "querying training schedules")
	}
	return sendPage(ctx, schedules, count)
}

func (api *trainingApi) createSchedule(ctx echo.Context) error {
	var data training.NewSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchedule")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	sch, err := api.svc.CreateSchedule(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating training schedule")
	}
	return ctx.JSON(http.StatusCreated, sch)
}

func (api *trainingApi) retrieveSchedule(ctx echo.Context) error {
	sch, err := api.svc.GetSchedule(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding training schedule by ID")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *trainingApi) updateSchedule(ctx echo.Context) error {
	orig, err := api.svc.GetSchedule(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding training schedule by ID")
	}

	var data training.UpdateSchedule
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchedule")
	}
	if err = data.Validate(ctx.Request().Context(), orig, api.validate, api.svc); err != nil {
		return err
	}

	sch, err := api.svc.UpdateSchedule(ctx.Request().Context(), orig, data)
	if err != nil {
		return errors.Wrap(err, "updating training schedule")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *trainingApi) destroySchedule(ctx echo.Context) error {
	if err := api.svc.DeleteSchedule(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting training schedule")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Sessions

func (api *trainingApi) querySessions(ctx echo.Context) error {
	var filter training.SessionFilter
	page, orderings, err := bindList(ctx, &filter, sessionOrderings)
	if err != nil {
		return err
	}

	sessions, count, err := api.svc.QuerySessions(ctx.Request().Context(), filter, page, orderings)
	if err != nil {
		return errors.Wrap(err, "querying training sessions")
	}
	return sendPage(ctx, sessions, count)
}

func (api *trainingApi) createSession(ctx echo.Context) error {
	var data training.NewSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	s, err := api.svc.CreateSession(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating training session")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *trainingApi) retrieveSession(ctx echo.Context) error {
	s, err := api.svc.GetSession(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding training session by ID")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *trainingApi) updateSession(ctx echo.Context) error {
	orig, err := api.svc.GetSession(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding training session by ID")
	}

	var data training.UpdateSession
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSession")
	}
	if err = data.Validate(ctx.Request().Context(), orig, api.validate, api.svc); err != nil {
		return err
	}

	s, err := api.svc.UpdateSession(ctx.Request().Context(), orig, data)
	if err != nil {
		return errors.Wrap(err, "updating training session")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *trainingApi) destroySession(ctx echo.Context) error {
	if err := api.svc.DeleteSession(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting training session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *trainingApi) attendance(ctx echo.Context) error {
	att, err := api.svc.SessionAttendance(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying session attendance")
	}
	if att == nil {
		att = []training.Attendance{}
	}
	return ctx.JSON(http.StatusOK, att)
}

func (api *trainingApi) recordAttendance(ctx echo.Context) error {
	var data training.AttendanceSheet
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AttendanceSheet")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	res, err := api.svc.RecordAttendance(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "recording attendance")
	}
	return sendBatch(ctx, res)
}

// Daily absences

// queryAbsences restricts users who cannot list every absence to their own.
func (api *trainingApi) queryAbsences(ctx echo.Context) error {
	var filter training.AbsenceFilter
	page, orderings, err := bindList(ctx, &filter, absenceOrderings)
	if err != nil {
		return err
	}
	if filter.Justified, err = optionalBoolParam(ctx, "justified"); err != nil {
		return err
	}

	canList, err := api.gate.can(ctx, access.ListDailyAbsences)
	if err != nil {
		return err
	}
	if !canList {
		usr, err := getContextUser(ctx, api.users)
		if err != nil {
			return err
		}
		filter.UserID = usr.ID
	}

	absences, count, err := api.svc.QueryAbsences(ctx.Request().Context(), filter, page, orderings)
	if err != nil {
		return errors.Wrap(err, "querying daily absences")
	}
	return sendPage(ctx, absences, count)
}

func (api *trainingApi) createAbsence(ctx echo.Context) error {
	var data training.NewAbsence
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAbsence")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	a, err := api.svc.CreateAbsence(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating daily absence")
	}
	return ctx.JSON(http.StatusCreated, a)
}

// findAbsence finds the ":id" absence. Users who cannot list every absence only find their own.
func (api *trainingApi) findAbsence(ctx echo.Context) (training.DailyAbsence, error) {
	a, err := api.svc.GetAbsence(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return training.DailyAbsence{}, errors.Wrap(err, "finding daily absence by ID")
	}

	canList, err := api.gate.can(ctx, access.ListDailyAbsences)
	if err != nil {
		return training.DailyAbsence{}, err
	}
	if !canList {
		usr, err := getContextUser(ctx, api.users)
		if err != nil {
			return training.DailyAbsence{}, err
		}
		if a.UserID != usr.ID {
			return training.DailyAbsence{}, training.ErrAbsenceNotFound
		}
	}
	return a, nil
}

func (api *trainingApi) retrieveAbsence(ctx echo.Context) error {
	a, err := api.findAbsence(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *trainingApi) updateAbsence(ctx echo.Context) error {
	orig, err := api.findAbsence(ctx)
	if err != nil {
		return err
	}

	var data training.UpdateAbsence
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAbsence")
	}
	if err = data.Validate(orig, api.validate); err != nil {
		return err
	}

	a, err := api.svc.UpdateAbsence(ctx.Request().Context(), orig, data)
	if err != nil {
		return errors.Wrap(err, "updating daily absence")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *trainingApi) destroyAbsence(ctx echo.Context) error {
	a, err := api.findAbsence(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteAbsence(ctx.Request().Context(), a.ID); err != nil {
		return errors.Wrap(err, "deleting daily absence")
	}
	return ctx.NoContent(http.StatusNoContent)
}
