package prefs

import (
	"context"
)

type repoMock struct {
	settings Settings
	saveErr  error
	loadErr  error
}

func NewMockSettingsRepo() *repoMock {
	return &repoMock{}
}

func (r *repoMock) Settings(_ context.Context) (Settings, error) {
	if r.loadErr != nil {
		return Settings{}, r.loadErr
	}
	return r.settings, nil
}

func (r *repoMock) SaveSettings(_ context.Context, settings Settings) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.settings = settings
	return nil
}
