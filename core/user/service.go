package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/todoapp/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrUsernameExists     = errors.New("a user with this username already exists")
	ErrInvalidCredentials = errors.New("Invalid credentials.")

	errIdentityInUse = errors.New("That username or email is already in use.")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrUsernameExists or ErrEmailExists
		// if another user (not in excludedIDs) already holds username or email.
		CheckUniqueness(ctx context.Context, username, email string, excludedIDs ...int) error
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryUsers(ctx context.Context, ordering ...core.DBOrdering) ([]User, error)
		GetUserByID(ctx context.Context, id int) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUser(ctx context.Context, id int) error
	}

	ServiceInterface interface {
		CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error
		Create(ctx context.Context, nu NewUser) (User, error)
		Authenticate(ctx context.Context, uname, pwd string) (User, error)
		QueryAll(ctx context.Context, ordering ...core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id int) (User, error)
		Update(ctx context.Context, usr User, uu UpdateUser) (User, error)
		Delete(ctx context.Context, id int) error
		SetRole(ctx context.Context, usr User, role string) (User, error)
		SetReminder(ctx context.Context, usr User, enabled bool) (User, error)
		EnsureAdmin(ctx context.Context, uname, email, pwd string) (usr User, created bool, err error)
		ResetPassword(ctx context.Context, uname, pwd string) error
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

// OrderingFields are the fields users can be ordered by.
var OrderingFields = []string{"id", "username", "email", "role", "timezone", "creation_date"}

func NewService(repo Repository) ServiceInterface {
	return &service{repo: repo}
}

func (svc *service) CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	exclIDs := make([]int, 0, len(exclUsers))
	for _, u := range exclUsers {
		exclIDs = append(exclIDs, u.ID)
	}
	if err := svc.repo.CheckUniqueness(ctx, uname, email, exclIDs...); err != nil {
		return conflictError(err, "checking uniqueness")
	}
	return nil
}

// conflictError maps unique constraint violations to a ConflictError.
func conflictError(err error, msg string) error {
	switch errors.Cause(err) {
	case ErrUsernameExists, ErrEmailExists:
		return core.NewConflictError(errIdentityInUse)
	default:
		return errors.Wrap(err, msg)
	}
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	usr := User{
		Username:  nu.Username,
		Email:     nu.Email,
		Timezone:  nu.Timezone,
		Role:      RoleUser,
		CreatedAt: time.Now().UTC(),
	}
	if usr.Timezone == "" {
		usr.Timezone = DefaultTimezone
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		// lost a race with a concurrent registration
		return User{}, conflictError(err, "inserting user")
	}
	return usr, nil
}

// Authenticate checks the credentials of the user identified by username or email
// and records their login time.
func (svc *service) Authenticate(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}

	usr.LastLogin = null.TimeFrom(time.Now().UTC())
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "setting last login")
}

func (svc *service) QueryAll(ctx context.Context, ordering ...core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, core.FilterOrderings(ordering, OrderingFields...)...)
}

func (svc *service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

// Update applies a validated UpdateUser to usr.
func (svc *service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	usr.Username = uu.Username
	usr.Email = uu.Email
	usr.Timezone = uu.Timezone
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	usr, err := svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, err
		}
		return User{}, conflictError(err, "updating user")
	}
	return usr, nil
}

func (svc *service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteUser(ctx, id)
}

func (svc *service) SetRole(ctx context.Context, usr User, role string) (User, error) {
	if usr.Role == role {
		return User{}, core.NewNoChangeError(fmt.Sprintf("User already set to %s. No changes made.", role))
	}
	usr.Role = role
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetReminder(ctx context.Context, usr User, enabled bool) (User, error) {
	if usr.DailyReminder == enabled {
		status := "disabled"
		if enabled {
			status = "enabled"
		}
		return User{}, core.NewNoChangeError(fmt.Sprintf("Reminders already set to %s. No changes made.", status))
	}
	usr.DailyReminder = enabled
	return svc.repo.UpdateUser(ctx, usr)
}

// EnsureAdmin creates the default admin unless a user with the same username or email exists.
// An empty username or email is replaced by a random one. Callers should pass RandomPassword()
// when no password is configured, in order to be able to report it.
func (svc *service) EnsureAdmin(ctx context.Context, uname, email, pwd string) (User, bool, error) {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	if uname == "" {
		uname = "admin_" + randomString(8)
	}
	if email == "" {
		email = uname + "@localhost"
	}
	if pwd == "" {
		pwd = RandomPassword()
	}

	for _, ident := range []string{uname, email} {
		usr, err := svc.repo.GetUserByUsernameOrEmail(ctx, ident)
		if err == nil {
			return usr, false, nil
		} else if errors.Cause(err) != ErrNotFound {
			return User{}, false, errors.Wrap(err, "finding admin")
		}
	}

	usr := User{
		Username:  uname,
		Email:     email,
		Timezone:  DefaultTimezone,
		Role:      RoleAdmin,
		CreatedAt: time.Now().UTC(),
	}
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, false, errors.Wrap(err, "setting password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, false, errors.Wrap(err, "creating admin")
	}
	return usr, true, nil
}

func (svc *service) ResetPassword(ctx context.Context, uname, pwd string) error {
	usr, err := svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "setting password")
	}
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

// RandomPassword returns a random password that passes the password policy.
func RandomPassword() string {
	return "Pw-" + randomString(29)
}

func randomString(n int) string {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n < len(s) {
		return s[:n]
	}
	return s
}
