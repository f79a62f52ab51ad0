package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/rapor-tpq/rapor/core"
)

// Roles
const (
	RoleAdmin  = "admin"
	RoleParent = "parent" // orang tua
)

var (
	AllRoles = []string{RoleAdmin, RoleParent}

	Roles = []Role{
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Orang Tua", Value: RoleParent},
	}
)

func ValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	IsActive     bool       `json:"is_active"`
	Role         string     `json:"role"`
	PasswordHash []byte     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"` // UTC
	UpdatedAt    time.Time  `json:"updated_at"` // UTC
	LastLogin    *time.Time `json:"last_login"` // UTC
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

func (u *User) IsAdmin() bool  { return u.Role == RoleAdmin }
func (u *User) IsParent() bool { return u.Role == RoleParent }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Username        string `json:"username" validate:"omitempty,min=4,alphanum_"`
	Email           string `json:"email" validate:"omitempty,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"required,role"`
}

func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Clean()
	return validate.Struct(nu)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Empty fields keep their current value.
type UpdateUser struct {
	Name            string `json:"name"`
	Username        string `json:"username" validate:"omitempty,min=4,alphanum_"`
	Email           string `json:"email" validate:"omitempty,email"`
	IsActive        *bool  `json:"is_active"`
	Role            string `json:"role" validate:"omitempty,role"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

// Validate fills the empty fields of uu from origUsr, then validates the result.
func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	if uname := core.CleanString(uu.Username, true /* lower */); uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}

	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if role := core.CleanString(uu.Role, true /* lower */); role != "" {
		uu.Role = role
	} else {
		uu.Role = origUsr.Role
	}

	return validate.Struct(uu)
}

// ResetUserPassword confirms a password reset with the UID and token of the reset email.
type ResetUserPassword struct {
	UID             string `json:"uid" validate:"required"`
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (rp *ResetUserPassword) Validate(validate *validator.Validate) error {
	rp.UID = core.CleanString(rp.UID)
	rp.Token = core.CleanString(rp.Token)
	return validate.Struct(rp)
}

// GetFilter selects a single User. The first non-empty field wins.
type GetFilter struct {
	ID              int
	Username        string
	Email           string
	UsernameOrEmail string
}

type QueryFilter struct {
	Search   string `query:"search"`
	Role     string `query:"role"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}
