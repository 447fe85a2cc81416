package workouts

import (
	"context"
	"time"

	"github.com/2beens/forcetrack/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// Analyzer derives the aggregated views the app renders: summary stats,
// per-day and per-week rollups, streaks and the heatmap grid. It only reads
// from the repo and recomputes on demand - callers decide when to invoke it.
type Analyzer struct {
	repo workoutsRepo
}

func NewAnalyzer(repo workoutsRepo) *Analyzer {
	return &Analyzer{
		repo: repo,
	}
}

type Summary struct {
	Count              int     `json:"count"`
	TotalMinutes       int     `json:"totalMinutes"`
	AvgDurationMinutes int     `json:"avgDurationMinutes"`
	AvgWeightKg        float64 `json:"avgWeightKg"`
}

func (a *Analyzer) Summary(ctx context.Context, params WorkoutParams) (_ *Summary, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.workouts.summary")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	found, err := a.repo.ListAll(ctx, params)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Count:              len(found),
		TotalMinutes:       TotalMinutes(found),
		AvgDurationMinutes: AverageDuration(found),
		AvgWeightKg:        AverageWeight(found),
	}, nil
}

func (a *Analyzer) DailyTotals(ctx context.Context, params WorkoutParams) (_ map[time.Time]int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.workouts.dailytotals")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	found, err := a.repo.ListAll(ctx, params)
	if err != nil {
		return nil, err
	}

	return DailyTotals(found), nil
}

func (a *Analyzer) WeeklyTotals(ctx context.Context, params WorkoutParams) (_ []WeekTotal, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.workouts.weeklytotals")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	found, err := a.repo.ListAll(ctx, params)
	if err != nil {
		return nil, err
	}

	return WeeklyTotals(found), nil
}

// CurrentStreak fetches only the streak lookback window from the repo and
// walks it backwards from today.
func (a *Analyzer) CurrentStreak(ctx context.Context, visibility VisibilityMode, now time.Time) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.workouts.currentstreak")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	from := DayStart(now).AddDate(0, 0, -currentStreakLookbackDays)
	found, err := a.repo.ListAll(ctx, WorkoutParams{
		From:       &from,
		Visibility: visibility,
	})
	if err != nil {
		return 0, err
	}

	return CurrentStreak(found, now), nil
}

// Heatmap builds the trailing activity grid for the given number of weeks.
func (a *Analyzer) Heatmap(ctx context.Context, visibility VisibilityMode, now time.Time, weeksToShow int) (_ *Heatmap, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.workouts.heatmap")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if weeksToShow < 1 {
		weeksToShow = DefaultHeatmapWeeks
	}
	span.SetAttributes(attribute.Int("weeks", weeksToShow))

	from := WeekStart(DayStart(now).AddDate(0, 0, -7*(weeksToShow-1)))
	found, err := a.repo.ListAll(ctx, WorkoutParams{
		From:       &from,
		Visibility: visibility,
	})
	if err != nil {
		return nil, err
	}

	heatmap := BuildHeatmap(now, weeksToShow, DailyTotals(found))
	return &heatmap, nil
}
