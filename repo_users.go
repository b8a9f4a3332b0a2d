package signup

import (
	"context"
	stderrors "errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var ConfirmUserSQL = `UPDATE "users" AS "usr"
SET
	"confirmed" = TRUE,
	"confirmation_token" = NULL
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

// Users is the identity store. Uniqueness of (provider, email) is
// backed by a unique index in the migrations; the pipeline's own
// lookup is only the fast path for a friendly error.
type Users interface {
	repository.Repository[*User]

	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	FindByEmailAndProvider(ctx context.Context, email, provider string) (*User, error)
	FindByEmailAndProviderTx(ctx context.Context, tx bun.IDB, email, provider string) (*User, error)
	FindByConfirmationToken(ctx context.Context, token string) (*User, error)
	FindByConfirmationTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error)

	Register(ctx context.Context, record *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	Confirm(ctx context.Context, id uuid.UUID) (*User, error)
	ConfirmTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ UserStore                    = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) FindByEmail(ctx context.Context, email string) (*User, error) {
	return a.FindByEmailTx(ctx, a.db, email)
}

// FindByEmailTx looks a user up by email regardless of provider. The
// comparison is case insensitive on both sides.
func (a *users) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	return a.findOne(ctx, tx, map[string]any{"email": email}, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("lower(?TableAlias.email) = lower(?)", email)
	})
}

func (a *users) FindByEmailAndProvider(ctx context.Context, email, provider string) (*User, error) {
	return a.FindByEmailAndProviderTx(ctx, a.db, email, provider)
}

func (a *users) FindByEmailAndProviderTx(ctx context.Context, tx bun.IDB, email, provider string) (*User, error) {
	return a.findOne(ctx, tx, map[string]any{"email": email, "provider": provider}, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			Where("lower(?TableAlias.email) = lower(?)", email).
			Where("?TableAlias.provider = ?", provider)
	})
}

func (a *users) FindByConfirmationToken(ctx context.Context, token string) (*User, error) {
	return a.FindByConfirmationTokenTx(ctx, a.db, token)
}

func (a *users) FindByConfirmationTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error) {
	return a.findOne(ctx, tx, map[string]any{"confirmation_token": token}, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.confirmation_token = ?", token)
	})
}

func (a *users) findOne(ctx context.Context, tx bun.IDB, meta map[string]any, criteria func(*bun.SelectQuery) *bun.SelectQuery) (*User, error) {
	record := &User{}
	q := criteria(tx.NewSelect().Model(record).Relation("Role"))

	err := q.Limit(1).Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, recordNotFound(meta)
		}
		return nil, err
	}

	return record, nil
}

// recordNotFound builds the miss error the handlers gate on with
// goerrors.IsNotFound. The repository library's own not-found value
// carries a database scoped category that IsNotFound does not match,
// so misses are normalized here before they leave the repo layer.
func recordNotFound(meta map[string]any) *goerrors.Error {
	return goerrors.New("record not found", goerrors.CategoryNotFound).
		WithTextCode("RECORD_NOT_FOUND").
		WithMetadata(meta)
}

func (a *users) Register(ctx context.Context, record *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, record)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *users) Confirm(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.ConfirmTx(ctx, a.db, id)
}

// ConfirmTx flips the confirmed flag and clears the confirmation
// token. Raw SQL: the ORM update path will not reset fields to their
// zero value.
func (a *users) ConfirmTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	res, err := a.Repository.RawTx(ctx, tx, ConfirmUserSQL, id.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, recordNotFound(map[string]any{"id": id.String()})
	}

	return res[0], nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Provider == "" {
		record.Provider = ProviderLocal
	}

	record.Email = strings.ToLower(record.Email)

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

// IsUniqueViolation detects the store's uniqueness-constraint error;
// the pipeline treats it as the authoritative EMAIL_TAKEN signal when
// the pre-insert lookup raced another registration. The whole unwrap
// chain is inspected: wrappers may sanitize the outer message while
// the driver error underneath still names the constraint.
func IsUniqueViolation(err error) bool {
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		if isUniqueViolationMessage(e.Error()) {
			return true
		}

		var rich *goerrors.Error
		if stderrors.As(e, &rich) && rich.Source != nil && rich.Source != e {
			if IsUniqueViolation(rich.Source) {
				return true
			}
		}
	}
	return false
}

func isUniqueViolationMessage(msg string) bool {
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "duplicate key value violates unique constraint") || // postgres
		strings.Contains(msg, "Duplicate entry") // mysql
}
