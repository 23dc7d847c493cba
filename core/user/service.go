package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/dojo/core"
	"github.com/trezcool/dojo/core/role"
)

var (
	// errors
	ErrNotFound             = core.NewNotFoundError("user not found")
	ErrEmailExists          = errors.New("a user with this email already exists")
	ErrAuthenticationFailed = errors.New("invalid email or password")
	ErrAccountDeactivated   = errors.New("account deactivated")
	ErrAccountSuspended     = errors.New("account suspended")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields and returns
		// one page of users along with the number of users matching the filter.
		QueryUsers(ctx context.Context, filter QueryFilter, page core.Pagination, orderings []core.DBOrdering) ([]User, int, error)
		// UpdateUser saves every mutable field. PasswordHash is only saved when set.
		UpdateUser(ctx context.Context, usr User) (User, error)
		SetLastLogin(ctx context.Context, id string, at time.Time) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) error
	}

	// RoleAssigner is implemented by role.Service.
	RoleAssigner interface {
		GetByName(ctx context.Context, name string) (role.Role, error)
		CheckRoles(ctx context.Context, roleIDs []string) error
		SetUserRoles(ctx context.Context, userID string, roleIDs []string) error
	}

	Service interface {
		CheckUniqueness(ctx context.Context, email string, excludedIDs ...string) error
		Create(ctx context.Context, nu NewUser) (User, error)
		Signup(ctx context.Context, nu NewUser) (User, error)
		Authenticate(ctx context.Context, email, pwd string) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Query(ctx context.Context, filter QueryFilter, page core.Pagination, orderings []core.DBOrdering) ([]User, int, error)
		Update(ctx context.Context, id string, uu UpdateUser) (User, error)
		SetRoles(ctx context.Context, id string, roleIDs []string) (User, error)
		CurrentStatus(ctx context.Context, id string) (string, error)
		CommitStatus(ctx context.Context, id, status string) (interface{}, error)
		Delete(ctx context.Context, id string) error
		DeleteMany(ctx context.Context, ids []string) core.BatchResult
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) error
	}

	service struct {
		repo       Repository
		roles      RoleAssigner
		mailSvc    core.EmailService
		signupRole string
		logger     core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, roles RoleAssigner, mailSvc core.EmailService, conf *core.Config, logger core.Logger) Service {
	return &service{
		repo:       repo,
		roles:      roles,
		mailSvc:    mailSvc,
		signupRole: conf.DefaultSignupRole,
		logger:     logger,
	}
}

func (svc *service) CheckUniqueness(ctx context.Context, email string, excludedIDs ...string) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excludedIDs...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

// Create stores an active user. Unknown role IDs fail before anything is written.
func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := svc.roles.CheckRoles(ctx, nu.RoleIDs); err != nil {
		return User{}, err
	}
	now := time.Now().UTC()
	usr := User{
		FirstName: nu.FirstName,
		Surname:   nu.Surname,
		Email:     nu.Email,
		Phone:     nu.Phone,
		BirthDate: nu.BirthDate,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}

	if len(nu.RoleIDs) > 0 {
		return svc.SetRoles(ctx, usr.ID, nu.RoleIDs)
	}
	return usr, nil
}

// Signup creates an account with the default signup role and welcomes its owner.
func (svc *service) Signup(ctx context.Context, nu NewUser) (User, error) {
	nu.RoleIDs = nil
	if svc.signupRole != "" {
		r, err := svc.roles.GetByName(ctx, svc.signupRole)
		if err != nil {
			return User{}, errors.Wrapf(err, "finding signup role %q", svc.signupRole)
		}
		nu.RoleIDs = []string{r.ID}
	}

	usr, err := svc.Create(ctx, nu)
	if err != nil {
		return User{}, err
	}
	svc.sendWelcomeMail(usr)
	return usr, nil
}

// Authenticate checks the credentials of an active user and records the login.
func (svc *service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if core.IsNotFound(err) {
			return User{}, ErrAuthenticationFailed
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrAuthenticationFailed
	}
	switch usr.Status {
	case StatusInactive:
		return User{}, ErrAccountDeactivated
	case StatusSuspended:
		return User{}, ErrAccountSuspended
	}

	usr, err = svc.repo.SetLastLogin(ctx, usr.ID, time.Now().UTC())
	if err != nil {
		return User{}, errors.Wrap(err, "setting last login")
	}
	return usr, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, page core.Pagination, orderings []core.DBOrdering) ([]User, int, error) {
	return svc.repo.QueryUsers(ctx, filter, page, orderings)
}

// Update saves the profile fields of uu. The stored status is kept.
func (svc *service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.FirstName = uu.FirstName
	usr.Surname = uu.Surname
	usr.Email = uu.Email
	usr.Phone = uu.Phone
	usr.BirthDate = uu.BirthDate
	usr.ProfileImageURL = uu.ProfileImageURL
	usr.PasswordHash = nil
	usr.UpdatedAt = time.Now().UTC()
	if uu.Password != "" {
		if err = usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetRoles(ctx context.Context, id string, roleIDs []string) (User, error) {
	if err := svc.roles.SetUserRoles(ctx, id, roleIDs); err != nil {
		return User{}, err
	}
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) CurrentStatus(ctx context.Context, id string) (string, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return "", err
	}
	return usr.Status, nil
}

func (svc *service) CommitStatus(ctx context.Context, id, status string) (interface{}, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	usr.Status = status
	usr.PasswordHash = nil
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	if _, err := svc.repo.GetUserByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteUsersByID(ctx, id)
}

// DeleteMany deletes users one by one and reports each outcome.
func (svc *service) DeleteMany(ctx context.Context, ids []string) core.BatchResult {
	return core.RunBatch(ctx, ids, svc.Delete)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive() {
		return ErrAccountDeactivated
	}
	return svc.sendPasswordResetMail(usr)
}

func (svc *service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	invalidToken := func() error {
		return core.NewValidationError(errInvalidToken, core.FieldError{Field: "token", Error: errInvalidToken.Error()})
	}

	id, err := decodeUID(data.UID)
	if err != nil {
		return invalidToken()
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return invalidToken()
		}
		return errors.Wrap(err, "finding user by ID")
	}

	if err = verifyToken(usr, data.Token); err != nil {
		if err == errTokenExpired {
			return core.NewValidationError(err, core.FieldError{Field: "token", Error: err.Error()})
		}
		return invalidToken()
	}

	if err = ValidatePassword(data.Password, usr); err != nil {
		return err
	}
	if err = usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	if _, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "updating password")
	}
	return nil
}

func (svc *service) recipient(usr User) mail.Address {
	return mail.Address{Name: usr.Name(), Address: usr.Email}
}

func (svc *service) sendPasswordResetMail(usr User) error {
	token, err := MakeToken(usr)
	if err != nil {
		return errors.Wrap(err, "making password reset token")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{svc.recipient(usr)},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: struct{ Name, UID, Token string }{usr.Name(), EncodeUID(usr), token},
	})
	return nil
}

func (svc *service) sendWelcomeMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{svc.recipient(usr)},
		Subject:      fmt.Sprintf("Welcome to %s", core.Conf.AppName),
		TemplateName: "welcome",
		TemplateData: struct{ Name, Email string }{usr.Name(), usr.Email},
	})
}
