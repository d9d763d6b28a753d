package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/todoapp/core"
)

// Roles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	DefaultTimezone = "UTC"
)

var AllRoles = []string{RoleAdmin, RoleUser}

type User struct {
	ID            int       `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PasswordHash  []byte    `json:"-"`
	Timezone      string    `json:"timezone"`
	Role          string    `json:"role"`
	DailyReminder bool      `json:"daily_reminder"`
	CreatedAt     time.Time `json:"creation_date"` // UTC
	LastLogin     null.Time `json:"last_login"`    // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanAccess reports whether u may read or change objects owned by ownerID.
func (u *User) CanAccess(ownerID int) bool {
	return u.ID == ownerID || u.IsAdmin()
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Username string `json:"username" form:"username" validate:"required,max=30,alphanum_"`
	Email    string `json:"email" form:"email" validate:"required,max=100,email"`
	Password string `json:"password" form:"password" validate:"required"`
	Timezone string `json:"timezone" form:"timezone" validate:"iana_tz"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc ServiceInterface) error {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Timezone = core.CleanString(nu.Timezone)
	if nu.Timezone == "" {
		nu.Timezone = DefaultTimezone
	}

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Empty fields are left unchanged.
type UpdateUser struct {
	Username string `json:"username" validate:"omitempty,max=30,alphanum_"`
	Email    string `json:"email" validate:"omitempty,max=100,email"`
	Password string `json:"password"`
	Timezone string `json:"timezone" validate:"omitempty,iana_tz"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc ServiceInterface) error {
	uname := core.CleanString(uu.Username, true /* lower */)
	if uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	tz := core.CleanString(uu.Timezone)
	if tz != "" {
		uu.Timezone = tz
	} else {
		uu.Timezone = origUsr.Timezone
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, uu.Username, uu.Email, origUsr)
}

type SetRole struct {
	Role string `json:"role" validate:"required,userrole"`
}

func (sr *SetRole) Validate(validate *validator.Validate) error {
	sr.Role = core.CleanString(sr.Role, true /* lower */)
	return validate.Struct(sr)
}

type SetReminder struct {
	Reminder bool `json:"reminder"`
}

// NewPassword checks a new password against the password policy of its user.
type NewPassword struct {
	Password string `json:"password" validate:"required"`
	Username string `json:"-"`
	Email    string `json:"-"`
}

func (np NewPassword) Validate(validate *validator.Validate) error { return validate.Struct(np) }
