package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/2beens/forcetrack/internal/prefs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) getPrefsRequest(ctx context.Context) prefs.Settings {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/prefs", serverEndpoint),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var settings prefs.Settings
	require.NoError(s.T(), json.Unmarshal(respBytes, &settings))
	return settings
}

func (s *IntegrationTestSuite) updatePrefsRequest(ctx context.Context, settings prefs.Settings) prefs.Settings {
	settingsJson, err := json.Marshal(settings)
	require.NoError(s.T(), err)

	req, err := http.NewRequestWithContext(
		ctx,
		"PUT", fmt.Sprintf("%s/prefs", serverEndpoint),
		bytes.NewReader(settingsJson),
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var savedSettings prefs.Settings
	require.NoError(s.T(), json.Unmarshal(respBytes, &savedSettings))
	return savedSettings
}

func (s *IntegrationTestSuite) TestPrefs() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	_, err := s.dbPool.Exec(ctx, "DELETE FROM pref")
	require.NoError(s.T(), err)

	// fresh install, everything on defaults
	settings := s.getPrefsRequest(ctx)
	assert.False(s.T(), settings.ShowAll)
	assert.False(s.T(), settings.UseSynthetic)
	assert.Equal(s.T(), 30, settings.SyntheticDays)

	// the stored value snaps to the 10-day grid
	saved := s.updatePrefsRequest(ctx, prefs.Settings{
		ShowAll:       true,
		UseSynthetic:  true,
		SyntheticDays: 55,
	})
	assert.True(s.T(), saved.ShowAll)
	assert.True(s.T(), saved.UseSynthetic)
	assert.Equal(s.T(), 50, saved.SyntheticDays)

	settings = s.getPrefsRequest(ctx)
	assert.True(s.T(), settings.ShowAll)
	assert.True(s.T(), settings.UseSynthetic)
	assert.Equal(s.T(), 50, settings.SyntheticDays)

	// out of range values clamp instead of erroring
	saved = s.updatePrefsRequest(ctx, prefs.Settings{SyntheticDays: 7})
	assert.Equal(s.T(), 10, saved.SyntheticDays)
	saved = s.updatePrefsRequest(ctx, prefs.Settings{SyntheticDays: 400})
	assert.Equal(s.T(), 100, saved.SyntheticDays)
}
