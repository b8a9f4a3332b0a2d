package signup

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
)

// RequestError carries a pipeline rejection across the GraphQL boundary
// with its machine readable extensions, so clients can branch on code
// and field instead of parsing messages.
type RequestError struct {
	Message    string
	StatusCode int
	Code       string
	Field      string
}

var _ gqlerrors.ExtendedError = (*RequestError)(nil)

func (e *RequestError) Error() string { return e.Message }

func (e *RequestError) Extensions() map[string]any {
	ext := map[string]any{
		"statusCode": e.StatusCode,
		"code":       e.Code,
	}
	if e.Field != "" {
		ext["field"] = e.Field
	}
	return ext
}

// NewRequestError converts a pipeline error into a GraphQL request
// error. Infrastructure faults collapse to an opaque internal error,
// same policy as the REST controller.
func NewRequestError(err error) *RequestError {
	if !IsRejection(err) {
		return &RequestError{
			Message:    "An unexpected error occurred, please retry.",
			StatusCode: 500,
			Code:       "INTERNAL_ERROR",
		}
	}

	var richErr *goerrors.Error
	goerrors.As(err, &richErr)

	return &RequestError{
		Message:    richErr.Message,
		StatusCode: HTTPStatus(err),
		Code:       richErr.TextCode,
		Field:      RejectionField(err),
	}
}

type contextKey string

const userContextKey contextKey = "signup:user"

// ContextWithUser stashes the authenticated user for the me query.
// Transport middleware is expected to call this after validating the
// session token.
func ContextWithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userContextKey).(*User)
	return user, ok && user != nil
}

// GraphQLResolver bundles the handlers the schema resolvers delegate
// to. Register is required; Login and Confirm gate their mutations.
type GraphQLResolver struct {
	Register *RegisterUserHandler
	Login    *LoginHandler
	Confirm  *ConfirmEmailHandler
	Logger   Logger
}

var roleType = graphql.NewObject(graphql.ObjectConfig{
	Name: "UserRole",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.ID},
		"name":        &graphql.Field{Type: graphql.String},
		"type":        &graphql.Field{Type: graphql.String},
		"description": &graphql.Field{Type: graphql.String},
	},
})

var userMeType = graphql.NewObject(graphql.ObjectConfig{
	Name: "UserMe",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"firstName":   &graphql.Field{Type: graphql.String},
		"lastName":    &graphql.Field{Type: graphql.String},
		"email":       &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"phoneNumber": &graphql.Field{Type: graphql.String},
		"confirmed":   &graphql.Field{Type: graphql.Boolean},
		"blocked":     &graphql.Field{Type: graphql.Boolean},
		"role":        &graphql.Field{Type: roleType},
	},
})

// loginPayloadType: jwt stays nullable, a registration gated on email
// confirmation returns the user with no token.
var loginPayloadType = graphql.NewObject(graphql.ObjectConfig{
	Name: "UsersLoginPayload",
	Fields: graphql.Fields{
		"jwt":  &graphql.Field{Type: graphql.String},
		"user": &graphql.Field{Type: graphql.NewNonNull(userMeType)},
	},
})

var registerInputType = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "UsersRegisterInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"firstName":   &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"lastName":    &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"email":       &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"password":    &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"phoneNumber": &graphql.InputObjectFieldConfig{Type: graphql.String},
	},
})

var loginInputType = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "UsersLoginInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"identifier": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"password":   &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"provider":   &graphql.InputObjectFieldConfig{Type: graphql.String, DefaultValue: ProviderLocal},
	},
})

// NewGraphQLSchema builds the auth schema. The resolvers translate
// arguments into the same messages the REST controller sends, so both
// facades share one pipeline and one error taxonomy.
func NewGraphQLSchema(r *GraphQLResolver) (graphql.Schema, error) {
	if r == nil || r.Register == nil {
		panic("Missing RegisterUserHandler in GraphQL resolver...")
	}
	if r.Logger == nil {
		r.Logger = defLogger{}
	}

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"userMe": &graphql.Field{
				Type: userMeType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					user, ok := UserFromContext(p.Context)
					if !ok {
						return nil, &RequestError{
							Message:    "You must be authenticated.",
							StatusCode: 401,
							Code:       "UNAUTHORIZED",
						}
					}
					return user.Sanitize(), nil
				},
			},
		},
	})

	mutationFields := graphql.Fields{
		"userRegister": &graphql.Field{
			Type: loginPayloadType,
			Args: graphql.FieldConfigArgument{
				"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(registerInputType)},
			},
			Resolve: func(p graphql.ResolveParams) (any, error) {
				input, _ := p.Args["input"].(map[string]any)

				result, err := r.Register.Execute(p.Context, RegisterUserMessage{
					FirstName: stringArg(input, "firstName"),
					LastName:  stringArg(input, "lastName"),
					Email:     stringArg(input, "email"),
					Password:  stringArg(input, "password"),
					Phone:     stringArg(input, "phoneNumber"),
				})
				if err != nil {
					r.Logger.Error("graphql userRegister: %v", err)
					return nil, NewRequestError(err)
				}

				return loginPayload(result.User, result.JWT), nil
			},
		},
		"userEmailConfirmation": &graphql.Field{
			Type: loginPayloadType,
			Args: graphql.FieldConfigArgument{
				"confirmation": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
			},
			Resolve: func(p graphql.ResolveParams) (any, error) {
				if r.Confirm == nil {
					return nil, mutationDisabledError()
				}

				token, _ := p.Args["confirmation"].(string)
				result, err := r.Confirm.Execute(p.Context, ConfirmEmailMessage{
					Confirmation: token,
				})
				if err != nil {
					r.Logger.Error("graphql userEmailConfirmation: %v", err)
					return nil, NewRequestError(err)
				}

				return loginPayload(result.User, result.JWT), nil
			},
		},
		"userLogin": &graphql.Field{
			Type: loginPayloadType,
			Args: graphql.FieldConfigArgument{
				"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(loginInputType)},
			},
			Resolve: func(p graphql.ResolveParams) (any, error) {
				if r.Login == nil {
					return nil, mutationDisabledError()
				}

				input, _ := p.Args["input"].(map[string]any)
				if provider := stringArg(input, "provider"); provider != "" && provider != ProviderLocal {
					return nil, &RequestError{
						Message:    "This provider is disabled.",
						StatusCode: 400,
						Code:       "PROVIDER_DISABLED",
						Field:      "provider",
					}
				}

				result, err := r.Login.Execute(p.Context, LoginMessage{
					Identifier: stringArg(input, "identifier"),
					Password:   stringArg(input, "password"),
				})
				if err != nil {
					r.Logger.Error("graphql userLogin: %v", err)
					return nil, NewRequestError(err)
				}

				return loginPayload(result.User, result.JWT), nil
			},
		},
	}

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name:   "Mutation",
		Fields: mutationFields,
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}

func loginPayload(user *User, jwt string) map[string]any {
	payload := map[string]any{"user": user}
	if jwt != "" {
		payload["jwt"] = jwt
	}
	return payload
}

func mutationDisabledError() *RequestError {
	return &RequestError{
		Message:    "This operation is disabled.",
		StatusCode: 400,
		Code:       "OPERATION_DISABLED",
	}
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	s, _ := args[key].(string)
	return s
}
