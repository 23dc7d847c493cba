package training_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/discipline"
	"github.com/trezcool/dojo/core/training"
	"github.com/trezcool/dojo/core/user"
	emailsvc "github.com/trezcool/dojo/services/email"
	inmemdb "github.com/trezcool/dojo/storage/database/inmem"
	testutil "github.com/trezcool/dojo/tests"
)

type fixture struct {
	svc        *training.Service
	validate   *validator.Validate
	discipline discipline.Discipline
	sensei     user.User
	students   []user.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	logger := testutil.NopLogger()
	db := inmemdb.Open()
	userRepo := inmemdb.NewUserRepository(db)
	discRepo := inmemdb.NewDisciplineRepository(db)
	users := user.NewService(userRepo, nil, emailsvc.NewConsoleServiceMock(core.Conf, logger), core.Conf, logger)
	validate, _ := core.NewValidator()

	return fixture{
		svc:        training.NewService(inmemdb.NewTrainingRepository(db), discipline.NewService(discRepo), users),
		validate:   validate,
		discipline: testutil.CreateDiscipline(t, discRepo, "Judo", discipline.StatusActive),
		sensei:     testutil.CreateUser(t, userRepo, "Jigoro", "Kano", "kano@dojo.test", "", user.StatusActive),
		students: []user.User{
			testutil.CreateUser(t, userRepo, "Ai", "Ono", "ai@dojo.test", "", user.StatusActive),
			testutil.CreateUser(t, userRepo, "Ken", "Sato", "ken@dojo.test", "", user.StatusActive),
		},
	}
}

func (f fixture) createSchedule(t *testing.T, weekday int, start, end string) training.Schedule {
	t.Helper()
	ctx := context.Background()
	ns := training.NewSchedule{
		DisciplineID: f.discipline.ID,
		InstructorID: f.sensei.ID,
		Weekday:      &weekday,
		StartTime:    start,
		EndTime:      end,
		Location:     "Main mat",
	}
	require.NoError(t, ns.Validate(ctx, f.validate, f.svc))
	sch, err := f.svc.CreateSchedule(ctx, ns)
	require.NoError(t, err)
	return sch
}

func intPtr(i int) *int { return &i }

func TestNewSchedule_Validate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name      string
		ns        training.NewSchedule
		wantField string
	}{
		{
			name:      "missing weekday",
			ns:        training.NewSchedule{DisciplineID: f.discipline.ID, InstructorID: f.sensei.ID, StartTime: "18:00", EndTime: "19:30"},
			wantField: "weekday",
		},
		{
			name:      "weekday out of range",
			ns:        training.NewSchedule{DisciplineID: f.discipline.ID, InstructorID: f.sensei.ID, Weekday: intPtr(7), StartTime: "18:00", EndTime: "19:30"},
			wantField: "weekday",
		},
		{
			name:      "bad time format",
			ns:        training.NewSchedule{DisciplineID: f.discipline.ID, InstructorID: f.sensei.ID, Weekday: intPtr(1), StartTime: "6pm", EndTime: "19:30"},
			wantField: "start_time",
		},
		{
			name:      "end before start",
			ns:        training.NewSchedule{DisciplineID: f.discipline.ID, InstructorID: f.sensei.ID, Weekday: intPtr(1), StartTime: "19:30", EndTime: "18:00"},
			wantField: "end_time",
		},
		{
			name:      "unknown discipline",
			ns:        training.NewSchedule{DisciplineID: "nope", InstructorID: f.sensei.ID, Weekday: intPtr(1), StartTime: "18:00", EndTime: "19:30"},
			wantField: "discipline_id",
		},
		{
			name:      "unknown instructor",
			ns:        training.NewSchedule{DisciplineID: f.discipline.ID, InstructorID: "nope", Weekday: intPtr(1), StartTime: "18:00", EndTime: "19:30"},
			wantField: "instructor_id",
		},
		{
			name: "sunday is valid",
			ns:   training.NewSchedule{DisciplineID: f.discipline.ID, InstructorID: f.sensei.ID, Weekday: intPtr(0), StartTime: "09:00", EndTime: "10:00"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ns.Validate(ctx, f.validate, f.svc)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			assert.Contains(t, testutil.ValidationFields(err), tt.wantField)
		})
	}
}

func TestService_UpdateSchedule(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sch := f.createSchedule(t, 1, "18:00", "19:30")

	t.Run("keeps empty fields", func(t *testing.T) {
		us := training.UpdateSchedule{Location: "Small mat"}
		require.NoError(t, us.Validate(ctx, sch, f.validate, f.svc))
		got, err := f.svc.UpdateSchedule(ctx, sch, us)
		require.NoError(t, err)
		assert.Equal(t, "Small mat", got.Location)
		assert.Equal(t, 1, got.Weekday)
		assert.Equal(t, "18:00", got.StartTime)
		assert.Equal(t, training.StatusActive, got.Status)
	})

	t.Run("time range checked against kept start", func(t *testing.T) {
		us := training.UpdateSchedule{EndTime: "17:00"}
		assert.Contains(t, testutil.ValidationFields(us.Validate(ctx, sch, f.validate, f.svc)), "end_time")
	})

	t.Run("deactivate", func(t *testing.T) {
		us := training.UpdateSchedule{Status: "INACTIVE", Weekday: intPtr(0)}
		require.NoError(t, us.Validate(ctx, sch, f.validate, f.svc))
		got, err := f.svc.UpdateSchedule(ctx, sch, us)
		require.NoError(t, err)
		assert.Equal(t, training.StatusInactive, got.Status)
		assert.Equal(t, 0, got.Weekday)

		active, count, err := f.svc.QuerySchedules(ctx, training.ScheduleFilter{Status: training.StatusActive}, core.Pagination{}, nil)
		require.NoError(t, err)
		assert.Zero(t, count)
		assert.Empty(t, active)
	})
}

func TestNewSession_Validate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sch := f.createSchedule(t, 3, "18:00", "19:30")
	date := core.NewDate(2026, time.October, 21)

	t.Run("filled from schedule", func(t *testing.T) {
		ns := training.NewSession{ScheduleID: sch.ID, Date: date, EndTime: "20:00"}
		require.NoError(t, ns.Validate(ctx, f.validate, f.svc))
		s, err := f.svc.CreateSession(ctx, ns)
		require.NoError(t, err)

		assert.Equal(t, sch.ID, s.ScheduleID.String)
		assert.Equal(t, f.discipline.ID, s.DisciplineID)
		assert.Equal(t, f.sensei.ID, s.InstructorID)
		assert.Equal(t, "18:00", s.StartTime)
		assert.Equal(t, "20:00", s.EndTime)
	})

	tests := []struct {
		name      string
		ns        training.NewSession
		wantField string
	}{
		{name: "unknown schedule", ns: training.NewSession{ScheduleID: "nope", Date: date}, wantField: "schedule_id"},
		{name: "missing date", ns: training.NewSession{ScheduleID: sch.ID}, wantField: "date"},
		{
			name:      "standalone without discipline",
			ns:        training.NewSession{InstructorID: f.sensei.ID, Date: date, StartTime: "10:00", EndTime: "11:00"},
			wantField: "discipline_id",
		},
		{
			name:      "end before start",
			ns:        training.NewSession{ScheduleID: sch.ID, Date: date, StartTime: "20:00"},
			wantField: "end_time",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, testutil.ValidationFields(tt.ns.Validate(ctx, f.validate, f.svc)), tt.wantField)
		})
	}
}

func TestService_RecordAttendance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sch := f.createSchedule(t, 3, "18:00", "19:30")
	ns := training.NewSession{ScheduleID: sch.ID, Date: core.NewDate(2026, time.October, 21)}
	require.NoError(t, ns.Validate(ctx, f.validate, f.svc))
	session, err := f.svc.CreateSession(ctx, ns)
	require.NoError(t, err)

	ai, ken := f.students[0], f.students[1]
	sheet := training.AttendanceSheet{Entries: []training.AttendanceEntry{
		{UserID: ai.ID, Present: false},
		{UserID: "ghost", Present: true},
		{UserID: ken.ID, Present: true},
		{UserID: ai.ID, Present: true, Note: " late "},
	}}
	require.NoError(t, f.validate.Struct(sheet))

	res, err := f.svc.RecordAttendance(ctx, session.ID, sheet)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Results, 3)
	assert.Equal(t, ai.ID, res.Results[0].ID)
	assert.Equal(t, "ghost", res.Results[1].ID)
	assert.False(t, res.Results[1].OK)

	rows, err := f.svc.SessionAttendance(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	byUser := map[string]training.Attendance{}
	for _, r := range rows {
		byUser[r.UserID] = r
	}
	assert.True(t, byUser[ai.ID].Present)
	assert.Equal(t, "late", byUser[ai.ID].Note)
	assert.True(t, byUser[ken.ID].Present)

	t.Run("re-recording overwrites", func(t *testing.T) {
		res, err := f.svc.RecordAttendance(ctx, session.ID, training.AttendanceSheet{Entries: []training.AttendanceEntry{
			{UserID: ken.ID, Present: false},
		}})
		require.NoError(t, err)
		assert.True(t, res.AllOK())

		rows, err := f.svc.SessionAttendance(ctx, session.ID)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
		for _, r := range rows {
			if r.UserID == ken.ID {
				assert.False(t, r.Present)
			}
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := f.svc.RecordAttendance(ctx, "nope", sheet)
		assert.True(t, core.IsNotFound(err))
		_, err = f.svc.SessionAttendance(ctx, "nope")
		assert.True(t, core.IsNotFound(err))
	})

	t.Run("empty sheet", func(t *testing.T) {
		assert.Error(t, f.validate.Struct(training.AttendanceSheet{}))
	})
}

func TestService_Absences(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ai := f.students[0]

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name      string
			na        training.NewAbsence
			wantField string
		}{
			{name: "no date", na: training.NewAbsence{UserID: ai.ID, Reason: "sick"}, wantField: "date"},
			{name: "no reason", na: training.NewAbsence{UserID: ai.ID, Date: core.NewDate(2026, time.October, 1)}, wantField: "reason"},
			{name: "unknown user", na: training.NewAbsence{UserID: "nope", Reason: "sick", Date: core.NewDate(2026, time.October, 1)}, wantField: "user_id"},
			{name: "unknown discipline", na: training.NewAbsence{UserID: ai.ID, DisciplineID: "nope", Reason: "sick", Date: core.NewDate(2026, time.October, 1)}, wantField: "discipline_id"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert.Contains(t, testutil.ValidationFields(tt.na.Validate(ctx, f.validate, f.svc)), tt.wantField)
			})
		}
	})

	for i, day := range []int{1, 8, 15} {
		na := training.NewAbsence{UserID: ai.ID, Reason: "exams", Date: core.NewDate(2026, time.October, day), Justified: i == 0}
		if i == 2 {
			na.DisciplineID = f.discipline.ID
		}
		require.NoError(t, na.Validate(ctx, f.validate, f.svc))
		_, err := f.svc.CreateAbsence(ctx, na)
		require.NoError(t, err)
	}

	justified := true
	tests := []struct {
		name   string
		filter training.AbsenceFilter
		want   int
	}{
		{name: "by user", filter: training.AbsenceFilter{UserID: ai.ID}, want: 3},
		{name: "by discipline", filter: training.AbsenceFilter{DisciplineID: f.discipline.ID}, want: 1},
		{name: "date range", filter: training.AbsenceFilter{From: core.NewDate(2026, time.October, 2), To: core.NewDate(2026, time.October, 15)}, want: 2},
		{name: "justified", filter: training.AbsenceFilter{Justified: &justified}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, count, err := f.svc.QueryAbsences(ctx, tt.filter, core.Pagination{}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, count)
		})
	}

	t.Run("justify", func(t *testing.T) {
		absences, _, err := f.svc.QueryAbsences(ctx, training.AbsenceFilter{Justified: new(bool)}, core.Pagination{}, nil)
		require.NoError(t, err)
		require.NotEmpty(t, absences)

		orig := absences[0]
		ua := training.UpdateAbsence{Justified: &justified}
		require.NoError(t, ua.Validate(orig, f.validate))
		got, err := f.svc.UpdateAbsence(ctx, orig, ua)
		require.NoError(t, err)
		assert.True(t, got.Justified)
		assert.Equal(t, orig.Reason, got.Reason)
		assert.True(t, orig.Date.Equal(got.Date.Time))
	})
}
