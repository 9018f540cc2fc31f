package users_test

import (
	"testing"

	clienterrors "github.com/jrsteele09/go-classroom-client/internal/errors"
	"github.com/jrsteele09/go-classroom-client/users"
	"github.com/stretchr/testify/require"
)

func TestParseRoles(t *testing.T) {
	roles := users.ParseRoles([]string{"student", "ROLE_TEACHER", " "})
	require.Equal(t, users.Roles{users.RoleStudent, users.RoleTeacher}, roles)
	require.True(t, roles.IsTeacher())
	require.Equal(t, []string{"STUDENT", "TEACHER"}, roles.Strings())
}

func TestPasswordChangeValidation(t *testing.T) {
	tests := []struct {
		name    string
		change  users.PasswordChange
		wantErr bool
	}{
		{"valid", users.PasswordChange{OldPassword: "OldPass1", NewPassword: "NewPass12", ConfirmPassword: "NewPass12"}, false},
		{"mismatch", users.PasswordChange{OldPassword: "OldPass1", NewPassword: "NewPass12", ConfirmPassword: "NewPass13"}, true},
		{"same as old", users.PasswordChange{OldPassword: "NewPass12", NewPassword: "NewPass12", ConfirmPassword: "NewPass12"}, true},
		{"weak", users.PasswordChange{OldPassword: "OldPass1", NewPassword: "weakpass", ConfirmPassword: "weakpass"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.change.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestProfileUpdateValidation(t *testing.T) {
	err := users.ProfileUpdate{FirstName: "Ada", LastName: "Lovelace", Email: "not-an-email"}.Validate()
	require.ErrorIs(t, err, clienterrors.ErrInvalidInput)

	dob := "1815-12-10"
	require.NoError(t, users.ProfileUpdate{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Dob: &dob}.Validate())
}
