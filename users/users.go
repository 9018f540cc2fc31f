package users

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/jrsteele09/go-classroom-client/internal/validation"
)

// RoleType is a role name as issued by the backend
type RoleType string

const (
	RoleStudent RoleType = "STUDENT"
	RoleTeacher RoleType = "TEACHER"
	RoleAdmin   RoleType = "ADMIN"
)

// User is the signed in user's profile as returned by the backend.
type User struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Dob       *string `json:"dob,omitempty"`       // yyyy-mm-dd
	AvatarURL *string `json:"avatarUrl,omitempty"` // absolute URL
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Roles is the role list stored alongside the token.
type Roles []RoleType

// ParseRoles normalises raw role names ("student", "ROLE_TEACHER") to RoleType.
func ParseRoles(raw []string) Roles {
	roles := make(Roles, 0, len(raw))
	for _, r := range raw {
		r = strings.ToUpper(strings.TrimSpace(r))
		r = strings.TrimPrefix(r, "ROLE_")
		if r == "" {
			continue
		}
		roles = append(roles, RoleType(r))
	}
	return roles
}

func (rs Roles) Has(role RoleType) bool {
	for _, r := range rs {
		if r == role {
			return true
		}
	}
	return false
}

func (rs Roles) IsTeacher() bool {
	return rs.Has(RoleTeacher) || rs.Has(RoleAdmin)
}

func (rs Roles) Strings() []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}

// ProfileUpdate is the body of PUT /users/me.
type ProfileUpdate struct {
	FirstName string  `json:"firstName" validate:"required,max=50"`
	LastName  string  `json:"lastName" validate:"required,max=50"`
	Email     string  `json:"email" validate:"required,email"`
	Dob       *string `json:"dob,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (pu ProfileUpdate) Validate() error {
	return validation.Struct(pu)
}

// PasswordChange is the body of PUT /users/me/password.
type PasswordChange struct {
	OldPassword     string `json:"oldPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,nefield=OldPassword"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

func (pc PasswordChange) Validate() error {
	if err := validation.Struct(pc); err != nil {
		return err
	}
	return ValidatePasswordStrength(pc.NewPassword)
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}
