package workouts

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/forcetrack/internal/telemetry/tracing"
	"github.com/2beens/forcetrack/pkg"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const statsCacheExpireSeconds = 5 * 60

type DailyTotalsResponse struct {
	Days map[string]int `json:"days"`
}

type WeeklyTotalsResponse struct {
	Weeks []WeekTotal `json:"weeks"`
}

type StreakResponse struct {
	Days int `json:"days"`
}

// StatsHandler serves the derived views over the workout log. Responses are
// cached, the CRUD handler clears the shared cache on every mutation.
type StatsHandler struct {
	analyzer *Analyzer
	cache    *freecache.Cache
	now      func() time.Time
}

func NewStatsHandler(analyzer *Analyzer, cache *freecache.Cache) *StatsHandler {
	return &StatsHandler{
		analyzer: analyzer,
		cache:    cache,
		now:      time.Now,
	}
}

// timeRangeFromRequest reads the optional <days> query param and converts it
// to a from/to range. Zero days means "today only", an absent param means no
// range filter at all.
func timeRangeFromRequest(r *http.Request, now time.Time) (from, to *time.Time, err error) {
	daysStr := r.URL.Query().Get("days")
	if daysStr == "" {
		return nil, nil, nil
	}

	days, err := strconv.Atoi(daysStr)
	if err != nil {
		return nil, nil, fmt.Errorf("parse days param: %w", err)
	}
	if days < 0 {
		return nil, nil, fmt.Errorf("days param must not be negative")
	}

	var cutoff time.Time
	if days == 0 {
		cutoff = DayStart(now)
	} else {
		cutoff = now.AddDate(0, 0, -days)
	}
	return &cutoff, nil, nil
}

func statsCacheKey(r *http.Request) []byte {
	return []byte(r.URL.Path + "?" + r.URL.RawQuery)
}

func (handler *StatsHandler) fromCache(r *http.Request) ([]byte, bool) {
	if handler.cache == nil {
		return nil, false
	}
	cached, err := handler.cache.Get(statsCacheKey(r))
	if err != nil {
		return nil, false
	}
	log.Tracef("stats cache hit: %s", r.URL.Path)
	return cached, true
}

func (handler *StatsHandler) setCache(r *http.Request, respBytes []byte) {
	if handler.cache == nil {
		return
	}
	if err := handler.cache.Set(statsCacheKey(r), respBytes, statsCacheExpireSeconds); err != nil {
		log.Errorf("failed to set stats cache for %s: %s", r.URL.Path, err)
	}
}

func (handler *StatsHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.stats.summary")
	defer span.End()

	if cached, ok := handler.fromCache(r); ok {
		pkg.WriteResponseBytes(w, pkg.ContentType.JSON, cached, http.StatusOK)
		return
	}

	params := WorkoutParams{Visibility: visibilityFromRequest(r)}
	from, to, err := timeRangeFromRequest(r, handler.now())
	if err != nil {
		http.Error(w, "invalid days param", http.StatusBadRequest)
		return
	}
	params.From = from
	params.To = to

	summary, err := handler.analyzer.Summary(ctx, params)
	if err != nil {
		log.Errorf("failed to get workouts summary: %s", err)
		http.Error(w, "failed to get workouts summary", http.StatusInternalServerError)
		return
	}

	summaryJson, err := json.Marshal(summary)
	if err != nil {
		log.Errorf("failed to marshal workouts summary: %s", err)
		http.Error(w, "failed to marshal workouts summary", http.StatusInternalServerError)
		return
	}

	handler.setCache(r, summaryJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, summaryJson, http.StatusOK)
}

func (handler *StatsHandler) HandleDailyTotals(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.stats.daily")
	defer span.End()

	if cached, ok := handler.fromCache(r); ok {
		pkg.WriteResponseBytes(w, pkg.ContentType.JSON, cached, http.StatusOK)
		return
	}

	params := WorkoutParams{Visibility: visibilityFromRequest(r)}
	from, to, err := timeRangeFromRequest(r, handler.now())
	if err != nil {
		http.Error(w, "invalid days param", http.StatusBadRequest)
		return
	}
	params.From = from
	params.To = to

	dailyTotals, err := handler.analyzer.DailyTotals(ctx, params)
	if err != nil {
		log.Errorf("failed to get daily totals: %s", err)
		http.Error(w, "failed to get daily totals", http.StatusInternalServerError)
		return
	}

	days := make(map[string]int, len(dailyTotals))
	for day, minutes := range dailyTotals {
		days[day.Format(time.DateOnly)] = minutes
	}

	dailyJson, err := json.Marshal(DailyTotalsResponse{Days: days})
	if err != nil {
		log.Errorf("failed to marshal daily totals: %s", err)
		http.Error(w, "failed to marshal daily totals", http.StatusInternalServerError)
		return
	}

	handler.setCache(r, dailyJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, dailyJson, http.StatusOK)
}

func (handler *StatsHandler) HandleWeeklyTotals(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.stats.weekly")
	defer span.End()

	if cached, ok := handler.fromCache(r); ok {
		pkg.WriteResponseBytes(w, pkg.ContentType.JSON, cached, http.StatusOK)
		return
	}

	params := WorkoutParams{Visibility: visibilityFromRequest(r)}
	from, to, err := timeRangeFromRequest(r, handler.now())
	if err != nil {
		http.Error(w, "invalid days param", http.StatusBadRequest)
		return
	}
	params.From = from
	params.To = to

	weeklyTotals, err := handler.analyzer.WeeklyTotals(ctx, params)
	if err != nil {
		log.Errorf("failed to get weekly totals: %s", err)
		http.Error(w, "failed to get weekly totals", http.StatusInternalServerError)
		return
	}

	weeklyJson, err := json.Marshal(WeeklyTotalsResponse{Weeks: weeklyTotals})
	if err != nil {
		log.Errorf("failed to marshal weekly totals: %s", err)
		http.Error(w, "failed to marshal weekly totals", http.StatusInternalServerError)
		return
	}

	handler.setCache(r, weeklyJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, weeklyJson, http.StatusOK)
}

func (handler *StatsHandler) HandleStreak(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.stats.streak")
	defer span.End()

	if cached, ok := handler.fromCache(r); ok {
		pkg.WriteResponseBytes(w, pkg.ContentType.JSON, cached, http.StatusOK)
		return
	}

	streak, err := handler.analyzer.CurrentStreak(ctx, visibilityFromRequest(r), handler.now())
	if err != nil {
		log.Errorf("failed to get current streak: %s", err)
		http.Error(w, "failed to get current streak", http.StatusInternalServerError)
		return
	}

	streakJson, err := json.Marshal(StreakResponse{Days: streak})
	if err != nil {
		log.Errorf("failed to marshal streak response: %s", err)
		http.Error(w, "failed to marshal streak response", http.StatusInternalServerError)
		return
	}

	handler.setCache(r, streakJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, streakJson, http.StatusOK)
}

func (handler *StatsHandler) HandleHeatmap(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.stats.heatmap")
	defer span.End()

	if cached, ok := handler.fromCache(r); ok {
		pkg.WriteResponseBytes(w, pkg.ContentType.JSON, cached, http.StatusOK)
		return
	}

	weeksToShow := DefaultHeatmapWeeks
	weeksStr := r.URL.Query().Get("weeks")
	if weeksStr != "" {
		parsedWeeks, err := strconv.Atoi(weeksStr)
		if err != nil || parsedWeeks < 1 {
			http.Error(w, "invalid weeks param", http.StatusBadRequest)
			return
		}
		weeksToShow = parsedWeeks
	}

	heatmap, err := handler.analyzer.Heatmap(ctx, visibilityFromRequest(r), handler.now(), weeksToShow)
	if err != nil {
		log.Errorf("failed to build heatmap: %s", err)
		http.Error(w, "failed to build heatmap", http.StatusInternalServerError)
		return
	}

	heatmapJson, err := json.Marshal(heatmap)
	if err != nil {
		log.Errorf("failed to marshal heatmap: %s", err)
		http.Error(w, "failed to marshal heatmap", http.StatusInternalServerError)
		return
	}

	handler.setCache(r, heatmapJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, heatmapJson, http.StatusOK)
}
