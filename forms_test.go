package authsync_test

import (
	"strings"
	"testing"

	authsync "github.com/goliatone/go-authsync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegistration() authsync.RegistrationForm {
	return authsync.RegistrationForm{
		FirstName:       "A",
		LastName:        "B",
		Email:           "a@b.com",
		Phone:           "(415) 555-2671",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		Role:            authsync.RoleIndividual,
	}
}

func TestLoginFormValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		form := authsync.LoginForm{Email: "a@b.com", Password: "x"}
		assert.NoError(t, form.Validate())
	})

	t.Run("missing fields", func(t *testing.T) {
		err := authsync.LoginForm{}.Validate()
		require.Error(t, err)
		assert.True(t, authsync.HasTextCode(err, "INVALID_FORM"))

		fields := authsync.FormErrors(err)
		assert.Equal(t, "Email is required", fields["email"])
		assert.Equal(t, "Password is required", fields["password"])
	})

	t.Run("bad email", func(t *testing.T) {
		err := authsync.LoginForm{Email: "not-an-email", Password: "x"}.Validate()
		assert.Equal(t, "Email is invalid", authsync.FormErrors(err)["email"])
	})
}

func TestRegistrationFormValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validRegistration().Validate())
	})

	tests := []struct {
		name    string
		mutate  func(f *authsync.RegistrationForm)
		field   string
		message string
	}{
		{"first name required", func(f *authsync.RegistrationForm) { f.FirstName = "" }, "firstName", "First name is required"},
		{"last name required", func(f *authsync.RegistrationForm) { f.LastName = "" }, "lastName", "Last name is required"},
		{"email format", func(f *authsync.RegistrationForm) { f.Email = "nope" }, "email", "Email is invalid"},
		{"phone required", func(f *authsync.RegistrationForm) { f.Phone = "" }, "phone", "Phone number is required"},
		{"password length", func(f *authsync.RegistrationForm) { f.Password = "abc"; f.ConfirmPassword = "abc" }, "password", "Password must be at least 6 characters"},
		{"passwords match", func(f *authsync.RegistrationForm) { f.ConfirmPassword = "secret2" }, "confirmPassword", "Passwords do not match"},
		{"role limited", func(f *authsync.RegistrationForm) { f.Role = authsync.RoleBrokerageAdmin }, "role", "Role must be individual or team_member"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validRegistration()
			tt.mutate(&form)

			err := form.Validate()
			require.Error(t, err)
			assert.Equal(t, tt.message, authsync.FormErrors(err)[tt.field])
		})
	}

	t.Run("any non empty phone is accepted", func(t *testing.T) {
		for _, phone := range []string{"555", "12", "ext. 42"} {
			form := validRegistration()
			form.Phone = phone
			assert.NoError(t, form.Validate(), phone)
		}
	})

	t.Run("long passwords are accepted", func(t *testing.T) {
		form := validRegistration()
		form.Password = strings.Repeat("p", 150)
		form.ConfirmPassword = form.Password
		assert.NoError(t, form.Validate())
	})

	t.Run("normalize applies default role", func(t *testing.T) {
		form := validRegistration()
		form.Role = ""
		form.FirstName = "  A "
		form.Normalize()

		assert.Equal(t, authsync.RoleIndividual, form.Role)
		assert.Equal(t, "A", form.FirstName)
		assert.NoError(t, form.Validate())
	})

	t.Run("fields carry profile details", func(t *testing.T) {
		fields := validRegistration().Fields()
		assert.Equal(t, &authsync.RegistrationFields{
			FirstName: "A",
			LastName:  "B",
			Phone:     "(415) 555-2671",
			Role:      authsync.RoleIndividual,
		}, fields)
	})
}

func TestNormalizePhone(t *testing.T) {
	phone, ok := authsync.NormalizePhone("(650) 253-0000", "US")
	assert.True(t, ok)
	assert.Equal(t, "+16502530000", phone)

	phone, ok = authsync.NormalizePhone(" 555 ", "US")
	assert.False(t, ok)
	assert.Equal(t, "555", phone)

	phone, ok = authsync.NormalizePhone("", "US")
	assert.False(t, ok)
	assert.Empty(t, phone)
}
