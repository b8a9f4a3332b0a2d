package signup

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// SettingsStore is the persisted SettingsProvider: a key/value table
// holding JSON blobs, with the registration flags under
// SettingsKeyAdvanced. A missing row yields the plugin defaults.
type SettingsStore interface {
	SettingsProvider
	SaveRegistrationSettings(ctx context.Context, settings RegistrationSettings) error
}

type settingsStore struct {
	db *bun.DB
}

var _ SettingsStore = (*settingsStore)(nil)

func NewSettingsStore(db *bun.DB) SettingsStore {
	return &settingsStore{db: db}
}

func (s *settingsStore) RegistrationSettings(ctx context.Context) (RegistrationSettings, error) {
	settings := DefaultRegistrationSettings()

	record := &Setting{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.key = ?", SettingsKeyAdvanced).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return settings, nil
		}
		return settings, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load registration settings")
	}

	if err := json.Unmarshal(record.Value, &settings); err != nil {
		return settings, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode registration settings")
	}

	return settings, nil
}

func (s *settingsStore) SaveRegistrationSettings(ctx context.Context, settings RegistrationSettings) error {
	value, err := json.Marshal(settings)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode registration settings")
	}

	record := &Setting{
		Key:   SettingsKeyAdvanced,
		Value: value,
	}

	_, err = s.db.NewInsert().
		Model(record).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist registration settings")
	}

	return nil
}
