package workouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/forcetrack/internal/telemetry/tracing"
	"github.com/2beens/forcetrack/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrWorkoutNotFound = errors.New("workout not found")

// WorkoutParams filters repo reads. A nil bound means unbounded, an empty
// visibility means no synthetic/real filtering on the DB side (callers that
// care resolve the mode first).
type WorkoutParams struct {
	From       *time.Time
	To         *time.Time
	Visibility VisibilityMode
}

type ListParams struct {
	WorkoutParams
	Page int
	Size int
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, workout Workout) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var id int
	err = r.db.QueryRow(
		ctx,
		`INSERT INTO workout
				(date, duration_minutes, weight_kg, notes, synthetic)
				VALUES ($1, $2, $3, $4, $5)
			RETURNING id;`,
		workout.Date, workout.DurationMinutes, workout.WeightKg, workout.Notes, workout.Synthetic,
	).Scan(&id)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, fmt.Errorf("workout already stored: %w", err)
		}
		return nil, fmt.Errorf("insert workout: %w", err)
	}

	span.SetAttributes(attribute.Int("workout.id", id))

	workout.ID = id
	return &workout, nil
}

// Update overwrites all fields of the stored workout at once - the edit flow
// has no partial patch.
func (r *Repo) Update(ctx context.Context, workout *Workout) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", workout.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout SET date = $1, duration_minutes = $2, weight_kg = $3, notes = $4, synthetic = $5 WHERE id = $6;`,
		workout.Date, workout.DurationMinutes, workout.WeightKg, workout.Notes, workout.Synthetic, workout.ID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM workout WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, date, duration_minutes, weight_kg, notes, synthetic
			FROM workout
			WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	found, err := r.rows2workouts(rows)
	if err != nil {
		return nil, err
	}

	if len(found) != 1 {
		return nil, ErrWorkoutNotFound
	}

	return &found[0], nil
}

// ListAll returns all workouts matching the params, newest first. Callers
// must not rely on the order - the derivations sort internally wherever order
// matters.
func (r *Repo) ListAll(ctx context.Context, params WorkoutParams) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.listall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("visibility", params.Visibility.String()))
	if params.From != nil {
		span.SetAttributes(attribute.String("from", params.From.String()))
	}
	if params.To != nil {
		span.SetAttributes(attribute.String("to", params.To.String()))
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT id, date, duration_minutes, weight_kg, notes, synthetic
			FROM workout
			WHERE ($1::timestamptz IS NULL OR date >= $1)
			AND ($2::timestamptz IS NULL OR date <= $2)
			AND ($3::text IN ('', 'all') OR synthetic = ($3 = 'synthetic'))
			ORDER BY date DESC;`,
		params.From, params.To, params.Visibility.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	found, err := r.rows2workouts(rows)
	if err != nil {
		return nil, fmt.Errorf("rows2workouts: %w", err)
	}
	return found, nil
}

// List is like ListAll but returns a specific page, newest first.
func (r *Repo) List(ctx context.Context, params ListParams) (_ []Workout, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("page", params.Page))
	span.SetAttributes(attribute.Int("size", params.Size))

	if params.Page < 1 {
		return nil, -1, errors.New("page must be greater than 0")
	}
	if params.Size < 1 {
		return nil, -1, errors.New("size must be greater than 0")
	}

	countAll, err := r.Count(ctx, params.WorkoutParams)
	if err != nil {
		return nil, -1, err
	}

	limit := params.Size
	offset := (params.Page - 1) * params.Size
	if countAll <= limit {
		limit = countAll
		offset = 0
	}
	if countAll-offset < limit {
		offset = countAll - limit
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT id, date, duration_minutes, weight_kg, notes, synthetic
			FROM workout
			WHERE ($1::timestamptz IS NULL OR date >= $1)
			AND ($2::timestamptz IS NULL OR date <= $2)
			AND ($3::text IN ('', 'all') OR synthetic = ($3 = 'synthetic'))
			ORDER BY date DESC
			LIMIT $4
			OFFSET $5;`,
		params.From, params.To, params.Visibility.String(),
		limit, offset,
	)
	if err != nil {
		return nil, -1, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, -1, err
	}

	found, err := r.rows2workouts(rows)
	if err != nil {
		return nil, -1, err
	}
	return found, countAll, nil
}

func (r *Repo) Count(ctx context.Context, params WorkoutParams) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.count")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var count int
	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM workout
			WHERE ($1::timestamptz IS NULL OR date >= $1)
			AND ($2::timestamptz IS NULL OR date <= $2)
			AND ($3::text IN ('', 'all') OR synthetic = ($3 = 'synthetic'));
	`,
		params.From, params.To, params.Visibility.String(),
	).Scan(&count)
	if err != nil {
		return -1, fmt.Errorf("count workouts: %w", err)
	}

	return count, nil
}

// DeleteAll removes every workout regardless of the synthetic flag.
func (r *Repo) DeleteAll(ctx context.Context) (deleted int64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.deleteall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(ctx, `DELETE FROM workout;`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteSynthetic removes only generator-produced workouts, leaving user
// entered data untouched.
func (r *Repo) DeleteSynthetic(ctx context.Context) (deleted int64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.deletesynthetic")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(ctx, `DELETE FROM workout WHERE synthetic IS TRUE;`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ReplaceSynthetic swaps the current synthetic batch for a fresh one in a
// single transaction - either the old batch is gone and the new one is fully
// in, or nothing changed. Real workouts are never touched.
func (r *Repo) ReplaceSynthetic(ctx context.Context, batch []Workout) (deleted int64, inserted int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.replacesynthetic")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("batch.size", len(batch)))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, 0, err
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

	tag, err := tx.Exec(ctx, `DELETE FROM workout WHERE synthetic IS TRUE;`)
	if err != nil {
		return 0, 0, fmt.Errorf("delete synthetic: %w", err)
	}
	deleted = tag.RowsAffected()

	for _, w := range batch {
		if _, err = tx.Exec(
			ctx,
			`INSERT INTO workout (date, duration_minutes, weight_kg, notes, synthetic)
				VALUES ($1, $2, $3, $4, TRUE);`,
			w.Date, w.DurationMinutes, w.WeightKg, w.Notes,
		); err != nil {
			return 0, 0, fmt.Errorf("insert synthetic workout: %w", err)
		}
		inserted++
	}

	return deleted, inserted, nil
}

func (r *Repo) rows2workouts(rows pgx.Rows) ([]Workout, error) {
	var found []Workout
	for rows.Next() {
		var w Workout
		if err := rows.Scan(
			&w.ID, &w.Date, &w.DurationMinutes, &w.WeightKg, &w.Notes, &w.Synthetic,
		); err != nil {
			return nil, err
		}
		found = append(found, w)
	}

	if found == nil {
		found = make([]Workout, 0)
	}

	return found, nil
}
