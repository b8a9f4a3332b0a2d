package signup_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-signup"
	"github.com/google/uuid"
	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const registerMutation = `
mutation Register($input: UsersRegisterInput!) {
	userRegister(input: $input) {
		jwt
		user { id email firstName confirmed }
	}
}`

func registerVariables() map[string]any {
	return map[string]any{
		"input": map[string]any{
			"firstName": "Ada",
			"lastName":  "Lovelace",
			"email":     "ada@example.com",
			"password":  "analytical-engine",
		},
	}
}

func TestGraphQL_UserRegister(t *testing.T) {
	f := newRegisterFixture(t)
	role := authenticatedRole()
	created := &signup.User{
		ID:        uuid.New(),
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Confirmed: true,
	}

	f.settings.On("RegistrationSettings", mock.Anything).Return(activeSettings(), nil)
	f.roles.On("ResolveRole", mock.Anything, "authenticated").Return(role, nil)
	f.hasher.On("IsHashed", mock.Anything).Return(false)
	f.hasher.On("Hash", mock.Anything).Return("hashed-secret", nil)
	f.users.On("FindByEmail", mock.Anything, mock.Anything).Return(nil, notFoundErr())
	f.users.On("Register", mock.Anything, mock.Anything).Return(created, nil)
	f.tokens.On("Issue", created.ID.String()).Return("session-token", nil)

	schema, err := signup.NewGraphQLSchema(&signup.GraphQLResolver{Register: f.handler})
	require.NoError(t, err)

	result := graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  registerMutation,
		VariableValues: registerVariables(),
		Context:        context.Background(),
	})
	require.Empty(t, result.Errors)

	data := result.Data.(map[string]any)
	payload := data["userRegister"].(map[string]any)
	assert.Equal(t, "session-token", payload["jwt"])

	user := payload["user"].(map[string]any)
	assert.Equal(t, "ada@example.com", user["email"])
	assert.Equal(t, true, user["confirmed"])
}

func TestGraphQL_UserRegisterRejection(t *testing.T) {
	f := newRegisterFixture(t)
	settings := activeSettings()
	settings.AllowRegister = false
	f.settings.On("RegistrationSettings", mock.Anything).Return(settings, nil)

	schema, err := signup.NewGraphQLSchema(&signup.GraphQLResolver{Register: f.handler})
	require.NoError(t, err)

	result := graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  registerMutation,
		VariableValues: registerVariables(),
		Context:        context.Background(),
	})

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Register action is currently disabled.", result.Errors[0].Message)

	ext := result.Errors[0].Extensions
	require.NotNil(t, ext)
	assert.Equal(t, signup.TextCodeRegistrationDisabled, ext["code"])
	assert.Equal(t, 400, ext["statusCode"])
}

func TestGraphQL_UserRegisterPendingConfirmation(t *testing.T) {
	f := newRegisterFixture(t)
	settings := activeSettings()
	settings.EmailConfirmation = true

	created := &signup.User{ID: uuid.New(), Email: "ada@example.com"}

	f.settings.On("RegistrationSettings", mock.Anything).Return(settings, nil)
	f.roles.On("ResolveRole", mock.Anything, "authenticated").Return(authenticatedRole(), nil)
	f.hasher.On("IsHashed", mock.Anything).Return(false)
	f.hasher.On("Hash", mock.Anything).Return("hashed-secret", nil)
	f.users.On("FindByEmail", mock.Anything, mock.Anything).Return(nil, notFoundErr())
	f.users.On("Register", mock.Anything, mock.Anything).Return(created, nil)
	f.mailer.On("SendConfirmationEmail", mock.Anything, mock.Anything).Return(nil)

	schema, err := signup.NewGraphQLSchema(&signup.GraphQLResolver{Register: f.handler})
	require.NoError(t, err)

	result := graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  registerMutation,
		VariableValues: registerVariables(),
		Context:        context.Background(),
	})
	require.Empty(t, result.Errors)

	payload := result.Data.(map[string]any)["userRegister"].(map[string]any)
	assert.Nil(t, payload["jwt"], "no session until the account is confirmed")
	assert.NotNil(t, payload["user"])
}

func TestGraphQL_UserLoginProviderDisabled(t *testing.T) {
	f := newRegisterFixture(t)
	login := newLoginFixture(t)

	schema, err := signup.NewGraphQLSchema(&signup.GraphQLResolver{
		Register: f.handler,
		Login:    login.handler,
	})
	require.NoError(t, err)

	result := graphql.Do(graphql.Params{
		Schema: schema,
		RequestString: `
mutation {
	userLogin(input: {identifier: "ada@example.com", password: "secret", provider: "github"}) {
		jwt
	}
}`,
		Context: context.Background(),
	})

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "PROVIDER_DISABLED", result.Errors[0].Extensions["code"])
}

func TestGraphQL_UserMe(t *testing.T) {
	f := newRegisterFixture(t)
	schema, err := signup.NewGraphQLSchema(&signup.GraphQLResolver{Register: f.handler})
	require.NoError(t, err)

	query := `{ userMe { id email } }`

	t.Run("unauthenticated", func(t *testing.T) {
		result := graphql.Do(graphql.Params{
			Schema:        schema,
			RequestString: query,
			Context:       context.Background(),
		})
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "UNAUTHORIZED", result.Errors[0].Extensions["code"])
	})

	t.Run("authenticated", func(t *testing.T) {
		user := &signup.User{
			ID:           uuid.New(),
			Email:        "ada@example.com",
			PasswordHash: "hashed-secret",
		}

		result := graphql.Do(graphql.Params{
			Schema:        schema,
			RequestString: query,
			Context:       signup.ContextWithUser(context.Background(), user),
		})
		require.Empty(t, result.Errors)

		me := result.Data.(map[string]any)["userMe"].(map[string]any)
		assert.Equal(t, "ada@example.com", me["email"])
	})
}
