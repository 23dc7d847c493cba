package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/discipline"
	"github.com/trezcool/dojo/core/user"
	logsvc "github.com/trezcool/dojo/services/logger"
)

func NopLogger() core.Logger {
	return logsvc.NewRollbarLogger(zap.NewNop(), nil)
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	firstName, surname, email, pwd string,
	status string,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		FirstName: firstName,
		Surname:   surname,
		Email:     email,
		Status:    status,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateDiscipline(t *testing.T, repo discipline.Repository, name, status string) discipline.Discipline {
	t.Helper()
	now := time.Now().UTC()
	d, err := repo.CreateDiscipline(context.Background(), discipline.Discipline{
		Name:      name,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateDiscipline() failed: %v", err)
	}
	return d
}

// ValidationFields lists the fields reported by a validation error, whichever form it takes.
func ValidationFields(err error) []string {
	var flds []string
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		for _, f := range verr.Fields {
			flds = append(flds, f.Field)
		}
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			flds = append(flds, fe.Field())
		}
	}
	return flds
}
