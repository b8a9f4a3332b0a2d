package signup

import "context"

// SettingsKeyAdvanced is the settings-store key the registration
// settings persist under.
const SettingsKeyAdvanced = "users.advanced"

// RegistrationSettings are the configuration flags gating registration
// behavior. They are loaded fresh per request and treated as immutable
// for the duration of the request.
type RegistrationSettings struct {
	// AllowRegister gates the whole registration action.
	AllowRegister bool `json:"allow_register"`
	// DefaultRole is the symbolic role assigned to new users.
	DefaultRole string `json:"default_role"`
	// EmailConfirmation requires an out of band confirmation step
	// before the account is activated; no token is issued until then.
	EmailConfirmation bool `json:"email_confirmation"`
	// UniqueEmail enforces email uniqueness across providers, not just
	// within one.
	UniqueEmail bool `json:"unique_email"`
}

// DefaultRegistrationSettings returns the flags applied when the
// settings store has no row yet.
func DefaultRegistrationSettings() RegistrationSettings {
	return RegistrationSettings{
		AllowRegister:     true,
		DefaultRole:       "authenticated",
		EmailConfirmation: false,
		UniqueEmail:       true,
	}
}

// StaticSettings is a SettingsProvider that always returns the same
// snapshot. Useful for embedders that configure registration from
// their own config layer, and for tests.
type StaticSettings struct {
	Settings RegistrationSettings
}

func (s StaticSettings) RegistrationSettings(_ context.Context) (RegistrationSettings, error) {
	return s.Settings, nil
}

var _ SettingsProvider = (*StaticSettings)(nil)
