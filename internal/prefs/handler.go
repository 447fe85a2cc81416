package prefs

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/2beens/forcetrack/internal/telemetry/tracing"
	"github.com/2beens/forcetrack/pkg"

	log "github.com/sirupsen/logrus"
)

type settingsRepo interface {
	Settings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, settings Settings) error
}

type Handler struct {
	repo settingsRepo
}

func NewHandler(repo settingsRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.prefs.get")
	defer span.End()

	settings, err := handler.repo.Settings(ctx)
	if err != nil {
		log.Errorf("failed to get settings: %s", err)
		http.Error(w, "failed to get settings", http.StatusInternalServerError)
		return
	}

	settingsJson, err := json.Marshal(settings.Normalized())
	if err != nil {
		log.Errorf("failed to marshal settings: %s", err)
		http.Error(w, "failed to marshal settings", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, settingsJson, http.StatusOK)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.prefs.update")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var settings Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		log.Tracef("update settings, unmarshal json params: %s", err)
		http.Error(w, "update settings failed", http.StatusBadRequest)
		return
	}

	settings = settings.Normalized()
	if err := handler.repo.SaveSettings(ctx, settings); err != nil {
		log.Errorf("failed to save settings: %s", err)
		http.Error(w, "failed to save settings", http.StatusInternalServerError)
		return
	}

	log.Debugf("settings updated: %+v", settings)

	settingsJson, err := json.Marshal(settings)
	if err != nil {
		log.Errorf("failed to marshal settings: %s", err)
		http.Error(w, "failed to marshal settings", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, settingsJson, http.StatusOK)
}
