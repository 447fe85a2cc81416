package prefs

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/2beens/forcetrack/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrPrefNotFound = errors.New("pref not found")

const (
	keyShowAll       = "show_all"
	keyUseSynthetic  = "use_synthetic"
	keySyntheticDays = "synthetic_days"
)

// Repo persists preferences as key-value pairs so that adding a new setting
// never needs a schema migration.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Get(ctx context.Context, key string) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.prefs.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("key", key))

	var value string
	err = r.db.QueryRow(ctx, `SELECT value FROM pref WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrPrefNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *Repo) Set(ctx context.Context, key, value string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.prefs.set")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("key", key))

	_, err = r.db.Exec(ctx,
		`INSERT INTO pref (key, value)
		 VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value,
	)
	return err
}

// Settings loads all preferences in one go. Missing keys keep their zero
// value, the caller normalizes afterwards.
func (r *Repo) Settings(ctx context.Context) (_ Settings, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.prefs.settings")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `SELECT key, value FROM pref`)
	if err != nil {
		return Settings{}, err
	}
	defer rows.Close()

	var settings Settings
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Settings{}, err
		}
		switch key {
		case keyShowAll:
			settings.ShowAll = value == "true"
		case keyUseSynthetic:
			settings.UseSynthetic = value == "true"
		case keySyntheticDays:
			days, err := strconv.Atoi(value)
			if err != nil {
				return Settings{}, fmt.Errorf("parse %s value %q: %w", keySyntheticDays, value, err)
			}
			settings.SyntheticDays = days
		}
	}
	if err := rows.Err(); err != nil {
		return Settings{}, err
	}

	return settings, nil
}

// SaveSettings writes all preferences atomically.
func (r *Repo) SaveSettings(ctx context.Context, settings Settings) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.prefs.savesettings")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	for key, value := range map[string]string{
		keyShowAll:       strconv.FormatBool(settings.ShowAll),
		keyUseSynthetic:  strconv.FormatBool(settings.UseSynthetic),
		keySyntheticDays: strconv.Itoa(settings.SyntheticDays),
	} {
		if _, err = tx.Exec(ctx,
			`INSERT INTO pref (key, value)
			 VALUES ($1, $2)
			 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
			key, value,
		); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}

	return nil
}
