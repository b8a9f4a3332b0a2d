package signup_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-signup"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistrationSettings(t *testing.T) {
	settings := signup.DefaultRegistrationSettings()

	assert.True(t, settings.AllowRegister)
	assert.Equal(t, "authenticated", settings.DefaultRole)
	assert.False(t, settings.EmailConfirmation)
	assert.True(t, settings.UniqueEmail)
}

func TestStaticSettings(t *testing.T) {
	provider := signup.StaticSettings{
		Settings: signup.RegistrationSettings{
			AllowRegister: false,
			DefaultRole:   "member",
		},
	}

	settings, err := provider.RegistrationSettings(context.Background())
	require.NoError(t, err)
	assert.False(t, settings.AllowRegister)
	assert.Equal(t, "member", settings.DefaultRole)
}

func TestLogMailer_ConfirmationURL(t *testing.T) {
	mailer := &signup.LogMailer{BaseURL: "https://app.example.com"}

	url := mailer.ConfirmationURL("token-value")
	assert.Equal(t, "https://app.example.com/auth/email-confirmation?confirmation=token-value", url)
}

func TestLogMailer_RequiresUser(t *testing.T) {
	mailer := &signup.LogMailer{}

	err := mailer.SendConfirmationEmail(context.Background(), nil)
	assert.Error(t, err)

	err = mailer.SendConfirmationEmail(context.Background(), &signup.User{
		Email:             "ada@example.com",
		ConfirmationToken: "token-value",
	})
	assert.NoError(t, err)
}

func TestRegisterUser_DeterministicID(t *testing.T) {
	f := newRegisterFixture(t)
	created := &signup.User{ID: uuid.New(), Confirmed: true}

	f.settings.On("RegistrationSettings", mock.Anything).Return(activeSettings(), nil)
	f.roles.On("ResolveRole", mock.Anything, "authenticated").Return(authenticatedRole(), nil)
	f.hasher.On("IsHashed", mock.Anything).Return(false)
	f.hasher.On("Hash", mock.Anything).Return("hashed-secret", nil)
	f.users.On("FindByEmail", mock.Anything, mock.Anything).Return(nil, notFoundErr())

	var stored *signup.User
	f.users.On("Register", mock.Anything, mock.AnythingOfType("*signup.User")).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(*signup.User)
		}).
		Return(created, nil)
	f.tokens.On("Issue", mock.Anything).Return("session-token", nil)

	msg := validMessage()
	msg.UseHashid = true

	_, err := f.handler.Execute(context.Background(), msg)
	require.NoError(t, err)

	expected, err := hashid.NewUUID("ada@example.com")
	require.NoError(t, err)

	require.NotNil(t, stored)
	assert.Equal(t, expected, stored.ID)
}
