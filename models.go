package authsync

import (
	"time"
)

// UsersCollection is the collection holding one profile document per uid.
const UsersCollection = "users"

// Role is the business role stored on a profile.
type Role string

const (
	RoleIndividual     Role = "individual"
	RoleTeamMember     Role = "team_member"
	RoleTeamLead       Role = "team_lead"
	RoleBrokerageAgent Role = "brokerage_agent"
	RoleBrokerageAdmin Role = "brokerage_admin"
)

// ViewRoleAdmin is what the individual role collapses to in the view model.
const ViewRoleAdmin = "admin"

// DefaultOfficeID is used when a profile belongs to no team or brokerage.
const DefaultOfficeID = "default"

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleIndividual, RoleTeamMember, RoleTeamLead, RoleBrokerageAgent, RoleBrokerageAdmin:
		return true
	}
	return false
}

// ProfileInfo holds the personal details of a profile.
type ProfileInfo struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	DisplayName   string `json:"displayName"`
	PhotoURL      string `json:"photoURL,omitempty"`
	Phone         string `json:"phone"`
	LicenseNumber string `json:"licenseNumber,omitempty"`
	LicenseState  string `json:"licenseState,omitempty"`
}

// Branding holds presentation colors and assets.
type Branding struct {
	PrimaryColor   string `json:"primaryColor"`
	SecondaryColor string `json:"secondaryColor"`
	LogoURL        string `json:"logoUrl,omitempty"`
	BannerURL      string `json:"bannerUrl,omitempty"`
}

// Settings holds notification preferences.
type Settings struct {
	Timezone            string `json:"timezone"`
	EmailNotifications  bool   `json:"emailNotifications"`
	SMSNotifications    bool   `json:"smsNotifications"`
	AutoResponseEnabled bool   `json:"autoResponseEnabled"`
	AutoResponseMessage string `json:"autoResponseMessage,omitempty"`
}

// ProfileRecord is the persisted per user document in the users collection.
type ProfileRecord struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	Role        Role        `json:"role"`
	Profile     ProfileInfo `json:"profile"`
	TeamID      string      `json:"teamId,omitempty"`
	BrokerageID string      `json:"brokerageId,omitempty"`
	Branding    Branding    `json:"branding"`
	Settings    Settings    `json:"settings"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
	LastLoginAt *time.Time  `json:"lastLoginAt,omitempty"`
	IsActive    bool        `json:"isActive"`
}

// ProfileOverrides replace defaults on Create. A non nil nested object
// replaces the whole default object, fields are not merged.
type ProfileOverrides struct {
	Role        *Role
	Profile     *ProfileInfo
	TeamID      *string
	BrokerageID *string
	Branding    *Branding
	Settings    *Settings
	IsActive    *bool
}

// Fields is a partial update. Dotted keys address nested fields.
type Fields map[string]any

// ViewUser is the projection of a profile used by pages.
type ViewUser struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	OfficeID    string `json:"officeId"`
}

// AuthViewState is what the UI renders from. IsAuthenticated always equals
// User != nil.
type AuthViewState struct {
	User            *ViewUser `json:"user"`
	IsAuthenticated bool      `json:"isAuthenticated"`
	IsLoading       bool      `json:"isLoading"`
	Error           string    `json:"error,omitempty"`
}

// LoadingState is the state before the first transition is observed.
func LoadingState() AuthViewState {
	return AuthViewState{IsLoading: true}
}

func signedOutState() AuthViewState {
	return AuthViewState{}
}

func signedInState(user ViewUser, errMsg string) AuthViewState {
	return AuthViewState{
		User:            &user,
		IsAuthenticated: true,
		Error:           errMsg,
	}
}

// Copy returns a value whose User pointer is not shared with s.
func (s AuthViewState) Copy() AuthViewState {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
