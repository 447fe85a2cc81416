package workouts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/forcetrack/internal/telemetry/metrics"
	"github.com/2beens/forcetrack/internal/telemetry/tracing"
	"github.com/2beens/forcetrack/pkg"

	"github.com/coocood/freecache"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=workouts_mocks_test.go -package=workouts_test

type workoutsRepo interface {
	Add(ctx context.Context, workout Workout) (*Workout, error)
	Get(ctx context.Context, id int) (*Workout, error)
	List(ctx context.Context, params ListParams) (_ []Workout, total int, err error)
	ListAll(ctx context.Context, params WorkoutParams) (_ []Workout, err error)
	Update(ctx context.Context, workout *Workout) error
	Delete(ctx context.Context, id int) error
	Count(ctx context.Context, params WorkoutParams) (int, error)
	DeleteAll(ctx context.Context) (int64, error)
	DeleteSynthetic(ctx context.Context) (int64, error)
	ReplaceSynthetic(ctx context.Context, batch []Workout) (deleted int64, inserted int, err error)
}

type DeleteWorkoutResponse struct {
	DeletedID int `json:"deletedId"`
}

type UpdateWorkoutResponse struct {
	UpdatedID int `json:"updatedId"`
}

type AddWorkoutResponse struct {
	Workout
	CountToday int `json:"countToday"`
}

type ListResponse struct {
	Workouts []Workout `json:"workouts"`
	Total    int       `json:"total"`
}

type RegenerateResponse struct {
	Deleted   int64 `json:"deleted"`
	Generated int   `json:"generated"`
}

type DeleteBatchResponse struct {
	Deleted int64 `json:"deleted"`
}

type Handler struct {
	repo      workoutsRepo
	generator *Generator
	cache     *freecache.Cache
	metrics   *metrics.Manager
	now       func() time.Time
}

func NewHandler(
	repo workoutsRepo,
	generator *Generator,
	cache *freecache.Cache,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		repo:      repo,
		generator: generator,
		cache:     cache,
		metrics:   metricsManager,
		now:       time.Now,
	}
}

// visibilityFromRequest resolves the data source from query params. A set
// show_all wins over use_synthetic, absent params mean real data only.
func visibilityFromRequest(r *http.Request) VisibilityMode {
	showAll := r.URL.Query().Get("show_all") == "true"
	useSynthetic := r.URL.Query().Get("use_synthetic") == "true"
	return ResolveVisibility(showAll, useSynthetic)
}

// statsCacheInvalidate drops all cached stats responses. Called on every
// mutation so the derived views never serve stale aggregates.
func (handler *Handler) statsCacheInvalidate() {
	if handler.cache != nil {
		handler.cache.Clear()
	}
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.new")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var workout Workout
	if err := json.NewDecoder(r.Body).Decode(&workout); err != nil {
		log.Tracef("new workout, unmarshal json params: %s", err)
		http.Error(w, "add workout failed", http.StatusBadRequest)
		return
	}

	if workout.DurationMinutes <= 0 {
		http.Error(w, "error, workout duration must be positive", http.StatusBadRequest)
		return
	}

	if workout.Date.IsZero() {
		workout.Date = handler.now()
	}

	addedWorkout, err := handler.repo.Add(ctx, workout)
	if err != nil {
		log.Errorf("failed to add new workout [%s]: %s", workout.Date, err)
		http.Error(w, "error, failed to add new workout", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterWorkoutsAdded.Inc()
	handler.statsCacheInvalidate()

	todayStart := DayStart(handler.now())
	tomorrowStart := todayStart.AddDate(0, 0, 1)
	workoutsToday, err := handler.repo.ListAll(ctx, WorkoutParams{
		From:       &todayStart,
		To:         &tomorrowStart,
		Visibility: VisibilityReal,
	})
	if err != nil {
		// just log the error, no need to return error to the client
		log.Errorf("failed to get workouts today: %s", err)
	}

	addWorkoutResponse := AddWorkoutResponse{
		Workout:    *addedWorkout,
		CountToday: len(workoutsToday),
	}

	addedJson, err := json.Marshal(addWorkoutResponse)
	if err != nil {
		log.Errorf("failed to marshal new workout: %s", err)
		http.Error(w, "error, failed to add new workout", http.StatusInternalServerError)
		return
	}

	log.Debugf("new workout added: %s", addedJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedJson, http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.get")
	defer span.End()

	vars := mux.Vars(r)
	idStr := vars["id"]
	if idStr == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	workout, err := handler.repo.Get(ctx, id)
	if errors.Is(err, ErrWorkoutNotFound) {
		http.Error(w, "workout not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("failed to get workout %d: %s", id, err)
		http.Error(w, "failed to get workout", http.StatusInternalServerError)
		return
	}

	workoutJson, err := json.Marshal(workout)
	if err != nil {
		log.Errorf("failed to marshal workout: %s", err)
		http.Error(w, "failed to marshal workout", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, workoutJson, http.StatusOK)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.list")
	defer span.End()

	vars := mux.Vars(r)
	pageStr := vars["page"]
	page, err := strconv.Atoi(pageStr)
	if err != nil {
		log.Tracef("handle list workouts, from <page> param: %s", err)
		http.Error(w, "parse form error, parameter <page>", http.StatusBadRequest)
		return
	}
	sizeStr := vars["size"]
	size, err := strconv.Atoi(sizeStr)
	if err != nil {
		log.Tracef("handle list workouts, from <size> param: %s", err)
		http.Error(w, "parse form error, parameter <size>", http.StatusBadRequest)
		return
	}

	if page < 1 {
		http.Error(w, "invalid page (has to be non-zero value)", http.StatusBadRequest)
		return
	}
	if size < 1 {
		http.Error(w, "invalid size (has to be non-zero value)", http.StatusBadRequest)
		return
	}

	listParams := ListParams{
		WorkoutParams: WorkoutParams{
			Visibility: visibilityFromRequest(r),
		},
		Page: page,
		Size: size,
	}
	if from, to, err := timeRangeFromRequest(r, handler.now()); err != nil {
		http.Error(w, "invalid days param", http.StatusBadRequest)
		return
	} else {
		listParams.From = from
		listParams.To = to
	}

	workouts, total, err := handler.repo.List(ctx, listParams)
	if err != nil {
		log.Errorf("list workouts error: %s", err)
		http.Error(w, "failed to get workouts", http.StatusInternalServerError)
		return
	}

	listResponseJson, err := json.Marshal(ListResponse{
		Workouts: workouts,
		Total:    total,
	})
	if err != nil {
		log.Errorf("marshal workouts error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, listResponseJson, http.StatusOK)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.update")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var workout Workout
	if err := json.NewDecoder(r.Body).Decode(&workout); err != nil {
		log.Errorf("update workout, unmarshal json params: %s", err)
		http.Error(w, "update workout failed", http.StatusBadRequest)
		return
	}

	if workout.DurationMinutes <= 0 {
		http.Error(w, "error, workout duration must be positive", http.StatusBadRequest)
		return
	}

	currentWorkout, err := handler.repo.Get(ctx, workout.ID)
	if err != nil && !errors.Is(err, ErrWorkoutNotFound) {
		log.Errorf("failed to get workout %d: %s", workout.ID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	} else if errors.Is(err, ErrWorkoutNotFound) {
		log.Debugf("workout %d not found", workout.ID)
		http.Error(w, "workout not found", http.StatusNotFound)
		return
	}
	log.Debugf("update workout %+v -> %+v", currentWorkout, workout)

	if err := handler.repo.Update(ctx, &workout); err != nil {
		log.Errorf("failed to update workout [%d]: %s", workout.ID, err)
		http.Error(w, "error, failed to update workout", http.StatusInternalServerError)
		return
	}

	handler.statsCacheInvalidate()

	updateRespJson, err := json.Marshal(UpdateWorkoutResponse{
		UpdatedID: workout.ID,
	})
	if err != nil {
		log.Errorf("failed to marshal update response: %s", err)
		http.Error(w, "failed to marshal update response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(updateRespJson))
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.delete")
	defer span.End()

	vars := mux.Vars(r)
	idStr := vars["id"]
	if idStr == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	workout, err := handler.repo.Get(ctx, id)
	if err != nil && !errors.Is(err, ErrWorkoutNotFound) {
		log.Errorf("failed to get workout %d: %s", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	} else if errors.Is(err, ErrWorkoutNotFound) {
		log.Debugf("workout %d not found", id)
		http.Error(w, "workout not found", http.StatusNotFound)
		return
	}

	log.Debugf("deleting workout %+v", workout)

	if err := handler.repo.Delete(ctx, id); err != nil {
		log.Errorf("failed to delete workout %d: %s", id, err)
		http.Error(w, "workout not deleted", http.StatusInternalServerError)
		return
	}

	handler.statsCacheInvalidate()

	deleteRespJson, err := json.Marshal(DeleteWorkoutResponse{
		DeletedID: id,
	})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}

// HandleRegenerateDemo replaces the synthetic dataset with a freshly
// generated one. Real workouts are never touched.
func (handler *Handler) HandleRegenerateDemo(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.regenerate-demo")
	defer span.End()

	days := DefaultSyntheticDays
	daysStr := r.URL.Query().Get("days")
	if daysStr != "" {
		parsedDays, err := strconv.Atoi(daysStr)
		if err != nil {
			http.Error(w, "error, days NaN", http.StatusBadRequest)
			return
		}
		days = NormalizeSyntheticDays(parsedDays)
	}

	batch := handler.generator.Generate(handler.now(), days)

	deleted, inserted, err := handler.repo.ReplaceSynthetic(ctx, batch)
	if err != nil {
		log.Errorf("failed to regenerate synthetic workouts: %s", err)
		http.Error(w, "failed to regenerate synthetic workouts", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterSyntheticBatches.Inc()
	handler.statsCacheInvalidate()

	log.Debugf("synthetic workouts regenerated: %d deleted, %d inserted", deleted, inserted)

	regenerateRespJson, err := json.Marshal(RegenerateResponse{
		Deleted:   deleted,
		Generated: inserted,
	})
	if err != nil {
		log.Errorf("failed to marshal regenerate response: %s", err)
		http.Error(w, "failed to marshal regenerate response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(regenerateRespJson))
}

func (handler *Handler) HandleDeleteDemo(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.delete-demo")
	defer span.End()

	deleted, err := handler.repo.DeleteSynthetic(ctx)
	if err != nil {
		log.Errorf("failed to delete synthetic workouts: %s", err)
		http.Error(w, "failed to delete synthetic workouts", http.StatusInternalServerError)
		return
	}

	handler.statsCacheInvalidate()

	deleteRespJson, err := json.Marshal(DeleteBatchResponse{
		Deleted: deleted,
	})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}

func (handler *Handler) HandleDeleteAll(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.delete-all")
	defer span.End()

	deleted, err := handler.repo.DeleteAll(ctx)
	if err != nil {
		log.Errorf("failed to delete all workouts: %s", err)
		http.Error(w, "failed to delete all workouts", http.StatusInternalServerError)
		return
	}

	handler.statsCacheInvalidate()

	log.Warnf("all workouts deleted: %d", deleted)

	deleteRespJson, err := json.Marshal(DeleteBatchResponse{
		Deleted: deleted,
	})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}
