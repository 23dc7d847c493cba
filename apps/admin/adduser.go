package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/role"
	"github.com/trezcool/dojo/core/user"
)

// addUser creates an active user, or reactivates and updates the one owning email.
// Built-in roles are bootstrapped first so the requested role always exists.
func (cli *commandLine) addUser(email, firstName, surname, pwd string, isAdmin bool) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	if err := cli.roleSvc.Bootstrap(ctx); err != nil {
		return err
	}
	roleName := role.Student
	if isAdmin {
		roleName = role.Administrator
	}
	r, err := cli.roleSvc.GetByName(ctx, roleName)
	if err != nil {
		return errors.Wrapf(err, "getting role %q", roleName)
	}

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	switch {
	case err == user.ErrNotFound:
		usr, err = cli.usrSvc.Create(ctx, user.NewUser{
			FirstName: core.CleanString(firstName),
			Surname:   core.CleanString(surname),
			Email:     email,
			Password:  pwd,
			RoleIDs:   []string{r.ID},
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "created %s <%s>\n", usr.Name(), usr.Email)
		return nil

	case err != nil:
		return err
	}

	usr.FirstName = core.CleanString(firstName)
	usr.Surname = core.CleanString(surname)
	usr.Status = user.StatusActive
	usr.UpdatedAt = time.Now().UTC()
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	if usr, err = cli.usrRepo.UpdateUser(ctx, usr); err != nil {
		return err
	}
	if !usr.HasRole(roleName) {
		roleIDs := []string{r.ID}
		for _, ur := range usr.Roles {
			roleIDs = append(roleIDs, ur.ID)
		}
		if _, err = cli.usrSvc.SetRoles(ctx, usr.ID, roleIDs); err != nil {
			return err
		}
	}
	fmt.Fprintf(cli.out, "updated %s <%s>\n", usr.Name(), usr.Email)
	return nil
}
