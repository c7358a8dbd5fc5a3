package authsync

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used to read phone numbers without a country code.
var DefaultPhoneRegion = "US"

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// MinPasswordLength mirrors the identity provider's own minimum.
const MinPasswordLength = 6

// LoginForm is the login page payload.
type LoginForm struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate checks the form before anything is sent to the provider.
func (f LoginForm) Validate() error {
	err := validation.ValidateStruct(&f,
		validation.Field(&f.Email,
			validation.Required.Error("Email is required"),
			validation.Match(emailPattern).Error("Email is invalid"),
		),
		validation.Field(&f.Password,
			validation.Required.Error("Password is required"),
		),
	)
	return formError(err)
}

// RegistrationForm is the registration page payload.
type RegistrationForm struct {
	FirstName       string `form:"first_name" json:"firstName"`
	LastName        string `form:"last_name" json:"lastName"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone" json:"phone"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirmPassword"`
	Role            Role   `form:"role" json:"role"`
}

// Normalize trims text inputs and applies the default role.
func (f *RegistrationForm) Normalize() {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	if f.Role == "" {
		f.Role = RoleIndividual
	}
}

// Validate checks the form before anything is sent to the provider.
func (f RegistrationForm) Validate() error {
	err := validation.ValidateStruct(&f,
		validation.Field(&f.FirstName,
			validation.Required.Error("First name is required"),
			validation.Length(1, 200),
		),
		validation.Field(&f.LastName,
			validation.Required.Error("Last name is required"),
			validation.Length(1, 200),
		),
		validation.Field(&f.Email,
			validation.Required.Error("Email is required"),
			validation.Match(emailPattern).Error("Email is invalid"),
		),
		validation.Field(&f.Phone,
			validation.Required.Error("Phone number is required"),
		),
		validation.Field(&f.Password,
			validation.Required.Error("Password is required"),
			validation.Length(MinPasswordLength, 0).Error("Password must be at least 6 characters"),
		),
		validation.Field(&f.ConfirmPassword,
			validation.By(ValidateStringEquals(f.Password)),
		),
		validation.Field(&f.Role,
			validation.In(RoleIndividual, RoleTeamMember).Error("Role must be individual or team_member"),
		),
	)
	return formError(err)
}

// Fields converts the form into the profile details used by Register.
func (f RegistrationForm) Fields() *RegistrationFields {
	return &RegistrationFields{
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Phone:     f.Phone,
		Role:      f.Role,
	}
}

// ValidateStringEquals checks a value equals str.
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("Passwords do not match")
		}
		return nil
	}
}

// NormalizePhone returns the E.164 form of raw when it is a valid number in
// region. Anything else is returned unchanged with ok false, phone numbers
// are free text as far as the profile is concerned.
func NormalizePhone(raw, region string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw, false
	}
	num, err := phonenumbers.Parse(raw, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return raw, false
	}
	return phonenumbers.Format(num, phonenumbers.E164), true
}

func formError(err error) error {
	if err == nil {
		return nil
	}

	fields := map[string]any{}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for name, ferr := range verrs {
			if ferr != nil {
				fields[name] = ferr.Error()
			}
		}
	} else {
		fields["form"] = err.Error()
	}

	return ErrInvalidForm.Clone().WithMetadata(map[string]any{
		"fields": fields,
	})
}

// FormErrors returns the field to message map of a rejected form.
func FormErrors(err error) map[string]string {
	out := map[string]string{}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr == nil {
		return out
	}
	fields, _ := richErr.Metadata["fields"].(map[string]any)
	for k, v := range fields {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
