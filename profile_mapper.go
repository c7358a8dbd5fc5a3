package authsync

// ToViewUser projects a profile into the view model. The individual role is
// shown as admin, the office is the team, else the brokerage, else default.
func ToViewUser(record *ProfileRecord) ViewUser {
	if record == nil {
		return ViewUser{OfficeID: DefaultOfficeID}
	}

	role := string(record.Role)
	if record.Role == RoleIndividual {
		role = ViewRoleAdmin
	}

	office := record.TeamID
	if office == "" {
		office = record.BrokerageID
	}
	if office == "" {
		office = DefaultOfficeID
	}

	return ViewUser{
		UID:         record.ID,
		Email:       record.Email,
		DisplayName: record.Profile.DisplayName,
		Role:        role,
		OfficeID:    office,
	}
}

// FallbackViewUser is used when a signed in identity has no resolvable
// profile.
func FallbackViewUser(identity *Identity) ViewUser {
	if identity == nil {
		return ViewUser{Role: ViewRoleAdmin, OfficeID: DefaultOfficeID}
	}

	name := identity.DisplayName
	if name == "" {
		name = EmailLocalPart(identity.Email)
	}

	return ViewUser{
		UID:         identity.UID,
		Email:       identity.Email,
		DisplayName: name,
		Role:        ViewRoleAdmin,
		OfficeID:    DefaultOfficeID,
	}
}
