package signup

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Roles resolves symbolic role types to concrete role rows.
type Roles interface {
	repository.Repository[*Role]

	GetByType(ctx context.Context, symbolic string) (*Role, error)
	GetByTypeTx(ctx context.Context, tx bun.IDB, symbolic string) (*Role, error)
	ResolveRole(ctx context.Context, symbolic string) (*Role, error)
}

type roles struct {
	repository.Repository[*Role]
	db *bun.DB
}

var (
	_ Roles        = (*roles)(nil)
	_ RoleResolver = (*roles)(nil)
)

func NewRolesRepository(db *bun.DB) Roles {
	repo := repository.NewRepository[*Role](db, repository.ModelHandlers[*Role]{
		NewRecord: func() *Role { return &Role{} },
		GetID: func(r *Role) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *Role, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "type"
		},
	})

	return &roles{
		Repository: repo,
		db:         db,
	}
}

func (a *roles) GetByType(ctx context.Context, symbolic string) (*Role, error) {
	return a.GetByTypeTx(ctx, a.db, symbolic)
}

func (a *roles) GetByTypeTx(ctx context.Context, tx bun.IDB, symbolic string) (*Role, error) {
	record := &Role{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.type = ?", symbolic).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, recordNotFound(map[string]any{"type": symbolic})
		}
		return nil, err
	}

	return record, nil
}

// ResolveRole satisfies RoleResolver.
func (a *roles) ResolveRole(ctx context.Context, symbolic string) (*Role, error) {
	return a.GetByType(ctx, symbolic)
}
