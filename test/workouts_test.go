package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/2beens/forcetrack/internal/workouts"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deleteAllWorkouts goes through the API instead of raw SQL so that the
// server-side stats cache gets invalidated together with the data.
func (s *IntegrationTestSuite) deleteAllWorkouts(ctx context.Context) {
	req, err := http.NewRequestWithContext(
		ctx,
		"DELETE", fmt.Sprintf("%s/workouts/all", serverEndpoint),
		nil,
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	require.NoError(s.T(), resp.Body.Close())
}

func (s *IntegrationTestSuite) newWorkoutRequest(
	ctx context.Context,
	workout workouts.Workout,
) workouts.AddWorkoutResponse {
	workoutJson, err := json.Marshal(workout)
	require.NoError(s.T(), err)

	req, err := http.NewRequestWithContext(
		ctx,
		"POST", fmt.Sprintf("%s/workouts", serverEndpoint),
		bytes.NewReader(workoutJson),
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var addedWorkout workouts.AddWorkoutResponse
	require.NoError(s.T(), json.Unmarshal(respBytes, &addedWorkout))

	return addedWorkout
}

func (s *IntegrationTestSuite) updateWorkoutRequest(
	ctx context.Context,
	workout workouts.Workout,
) workouts.UpdateWorkoutResponse {
	workoutJson, err := json.Marshal(workout)
	require.NoError(s.T(), err)

	req, err := http.NewRequestWithContext(
		ctx,
		"PUT", fmt.Sprintf("%s/workouts", serverEndpoint),
		bytes.NewReader(workoutJson),
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

	var updateResp workouts.UpdateWorkoutResponse
	require.NoError(s.T(), json.Unmarshal(respBytes, &updateResp))
	return updateResp
}

func (s *IntegrationTestSuite) getWorkoutRequest(ctx context.Context, id int) workouts.Workout {
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/workouts/%d", serverEndpoint, id),
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

	var workout workouts.Workout
	require.NoError(s.T(), json.Unmarshal(respBytes, &workout))
	return workout
}

func (s *IntegrationTestSuite) deleteWorkoutRequest(ctx context.Context, id int) workouts.DeleteWorkoutResponse {
	req, err := http.NewRequestWithContext(
		ctx,
		"DELETE", fmt.Sprintf("%s/workouts/%d", serverEndpoint, id),
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

	var deleteResp workouts.DeleteWorkoutResponse
	require.NoError(s.T(), json.Unmarshal(respBytes, &deleteResp))
	return deleteResp
}

func (s *IntegrationTestSuite) listWorkoutsRequest(
	ctx context.Context,
	page, size int,
	query string,
) workouts.ListResponse {
	listURL := fmt.Sprintf("%s/workouts/list/page/%d/size/%d", serverEndpoint, page, size)
	if query != "" {
		listURL += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, "GET", listURL, nil)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var listResp workouts.ListResponse
	require.NoError(s.T(), json.Unmarshal(respBytes, &listResp))
	return listResp
}

func (s *IntegrationTestSuite) getStats(ctx context.Context, path, query string, dest any) {
	statsURL := fmt.Sprintf("%s/workouts/stats/%s", serverEndpoint, path)
	if query != "" {
		statsURL += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, "GET", statsURL, nil)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)
	require.NoError(s.T(), json.Unmarshal(respBytes, dest))
}

func (s *IntegrationTestSuite) TestWorkouts_CRUD() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s.deleteAllWorkouts(ctx)

	now := time.Now()
	added := s.newWorkoutRequest(ctx, workouts.Workout{
		Date:            now,
		DurationMinutes: 45,
		WeightKg:        72.5,
		Notes:           "chest and back",
	})
	require.True(s.T(), added.ID > 0)
	assert.Equal(s.T(), 1, added.CountToday)

	added2 := s.newWorkoutRequest(ctx, workouts.Workout{
		Date:            now.Add(-time.Minute),
		DurationMinutes: 30,
		WeightKg:        72,
	})
	require.True(s.T(), added2.ID > 0)
	assert.Equal(s.T(), 2, added2.CountToday)

	gotten := s.getWorkoutRequest(ctx, added.ID)
	assert.Equal(s.T(), added.ID, gotten.ID)
	assert.Equal(s.T(), 45, gotten.DurationMinutes)
	assert.InDelta(s.T(), 72.5, gotten.WeightKg, 0.001)
	assert.Equal(s.T(), "chest and back", gotten.Notes)
	assert.False(s.T(), gotten.Synthetic)

	listResp := s.listWorkoutsRequest(ctx, 1, 10, "")
	assert.Equal(s.T(), 2, listResp.Total)
	require.Len(s.T(), listResp.Workouts, 2)
	// newest first
	assert.Equal(s.T(), added.ID, listResp.Workouts[0].ID)

	gotten.DurationMinutes = 60
	gotten.Notes = "chest, back and legs"
	updateResp := s.updateWorkoutRequest(ctx, gotten)
	assert.Equal(s.T(), gotten.ID, updateResp.UpdatedID)

	updated := s.getWorkoutRequest(ctx, gotten.ID)
	assert.Equal(s.T(), 60, updated.DurationMinutes)
	assert.Equal(s.T(), "chest, back and legs", updated.Notes)

	deleteResp := s.deleteWorkoutRequest(ctx, added2.ID)
	assert.Equal(s.T(), added2.ID, deleteResp.DeletedID)

	// the deleted workout is gone now
	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/workouts/%d", serverEndpoint, added2.ID),
		nil,
	)
	require.NoError(s.T(), err)
	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.NoError(s.T(), resp.Body.Close())
	assert.Equal(s.T(), http.StatusNotFound, resp.StatusCode)

	listResp = s.listWorkoutsRequest(ctx, 1, 10, "")
	assert.Equal(s.T(), 1, listResp.Total)
}

func (s *IntegrationTestSuite) TestWorkouts_ListPagination() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s.deleteAllWorkouts(ctx)

	now := time.Now()
	for i := 0; i < 5; i++ {
		s.newWorkoutRequest(ctx, workouts.Workout{
			Date:            now.Add(-time.Duration(i) * time.Minute),
			DurationMinutes: 20 + i,
			WeightKg:        70,
			Notes:           gofakeit.Sentence(3),
		})
	}

	page1 := s.listWorkoutsRequest(ctx, 1, 2, "")
	assert.Equal(s.T(), 5, page1.Total)
	require.Len(s.T(), page1.Workouts, 2)
	assert.Equal(s.T(), 20, page1.Workouts[0].DurationMinutes)

	page2 := s.listWorkoutsRequest(ctx, 2, 2, "")
	assert.Equal(s.T(), 5, page2.Total)
	require.Len(s.T(), page2.Workouts, 2)
	assert.Equal(s.T(), 22, page2.Workouts[0].DurationMinutes)

	// the short last page gets padded by shifting the offset back
	page3 := s.listWorkoutsRequest(ctx, 3, 2, "")
	require.Len(s.T(), page3.Workouts, 2)
	assert.Equal(s.T(), 23, page3.Workouts[0].DurationMinutes)
	assert.Equal(s.T(), 24, page3.Workouts[1].DurationMinutes)

	// paging past the end clamps to the last page, not an error
	page4 := s.listWorkoutsRequest(ctx, 4, 2, "")
	require.Len(s.T(), page4.Workouts, 2)
	assert.Equal(s.T(), 23, page4.Workouts[0].DurationMinutes)
}

func (s *IntegrationTestSuite) TestWorkouts_Stats() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s.deleteAllWorkouts(ctx)

	now := time.Now()
	s.newWorkoutRequest(ctx, workouts.Workout{
		Date:            now,
		DurationMinutes: 40,
		WeightKg:        71,
	})
	s.newWorkoutRequest(ctx, workouts.Workout{
		Date:            now,
		DurationMinutes: 20,
		WeightKg:        71,
	})
	s.newWorkoutRequest(ctx, workouts.Workout{
		Date:            now.AddDate(0, 0, -1),
		DurationMinutes: 30,
		WeightKg:        72,
	})
	// a gap two days back, so this one must not extend the streak
	s.newWorkoutRequest(ctx, workouts.Workout{
		Date:            now.AddDate(0, 0, -3),
		DurationMinutes: 50,
		WeightKg:        73,
	})

	var summary workouts.Summary
	s.getStats(ctx, "summary", "", &summary)
	assert.Equal(s.T(), 4, summary.Count)
	assert.Equal(s.T(), 140, summary.TotalMinutes)
	assert.Equal(s.T(), 35, summary.AvgDurationMinutes)
	assert.InDelta(s.T(), 71.75, summary.AvgWeightKg, 0.001)

	// days=0 restricts the summary to today only
	var todaySummary workouts.Summary
	s.getStats(ctx, "summary", "days=0", &todaySummary)
	assert.Equal(s.T(), 2, todaySummary.Count)
	assert.Equal(s.T(), 60, todaySummary.TotalMinutes)

	var daily workouts.DailyTotalsResponse
	s.getStats(ctx, "daily", "", &daily)
	require.Len(s.T(), daily.Days, 3)
	assert.Equal(s.T(), 60, daily.Days[now.Format(time.DateOnly)])
	assert.Equal(s.T(), 30, daily.Days[now.AddDate(0, 0, -1).Format(time.DateOnly)])

	var weekly workouts.WeeklyTotalsResponse
	s.getStats(ctx, "weekly", "", &weekly)
	require.NotEmpty(s.T(), weekly.Weeks)
	var weeklyTotal int
	for _, week := range weekly.Weeks {
		weeklyTotal += week.TotalMinutes
	}
	assert.Equal(s.T(), 140, weeklyTotal)

	var streak workouts.StreakResponse
	s.getStats(ctx, "streak", "", &streak)
	assert.Equal(s.T(), 2, streak.Days)

	var heatmap workouts.Heatmap
	s.getStats(ctx, "heatmap", "weeks=4", &heatmap)
	require.Len(s.T(), heatmap.Weeks, 4)
	assert.Equal(s.T(), 3, heatmap.ActiveDays)
	assert.Equal(s.T(), 140, heatmap.TotalMinutes)
	assert.Equal(s.T(), 2, heatmap.LongestStreak)
	// only the last bucket may be short, all others span full weeks
	for i := 0; i < len(heatmap.Weeks)-1; i++ {
		assert.Len(s.T(), heatmap.Weeks[i], 7)
	}
}

func (s *IntegrationTestSuite) TestWorkouts_StatsCacheInvalidation() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s.deleteAllWorkouts(ctx)

	s.newWorkoutRequest(ctx, workouts.Workout{
		Date:            time.Now(),
		DurationMinutes: 25,
		WeightKg:        70,
	})

	var summary workouts.Summary
	s.getStats(ctx, "summary", "", &summary)
	assert.Equal(s.T(), 1, summary.Count)

	// a mutation must drop the cached response
	s.newWorkoutRequest(ctx, workouts.Workout{
		Date:            time.Now(),
		DurationMinutes: 35,
		WeightKg:        70,
	})

	s.getStats(ctx, "summary", "", &summary)
	assert.Equal(s.T(), 2, summary.Count)
	assert.Equal(s.T(), 60, summary.TotalMinutes)
}

func (s *IntegrationTestSuite) TestWorkouts_DemoDataLifecycle() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s.deleteAllWorkouts(ctx)

	real := s.newWorkoutRequest(ctx, workouts.Workout{
		Date:            time.Now(),
		DurationMinutes: 45,
		WeightKg:        72,
		Notes:           "the real deal",
	})

	regenResp := s.regenerateDemoRequest(ctx, "days=40")
	assert.Zero(s.T(), regenResp.Deleted)
	require.True(s.T(), regenResp.Generated > 0)

	// real data only by default
	listResp := s.listWorkoutsRequest(ctx, 1, 100, "")
	assert.Equal(s.T(), 1, listResp.Total)

	listAllResp := s.listWorkoutsRequest(ctx, 1, 500, "show_all=true")
	assert.Equal(s.T(), 1+regenResp.Generated, listAllResp.Total)

	listSyntheticResp := s.listWorkoutsRequest(ctx, 1, 500, "use_synthetic=true")
	assert.Equal(s.T(), regenResp.Generated, listSyntheticResp.Total)
	for _, w := range listSyntheticResp.Workouts {
		assert.True(s.T(), w.Synthetic)
	}

	// regenerating swaps the synthetic batch and keeps real data intact
	regenResp2 := s.regenerateDemoRequest(ctx, "")
	assert.Equal(s.T(), int64(regenResp.Generated), regenResp2.Deleted)
	require.True(s.T(), regenResp2.Generated > 0)

	survivor := s.getWorkoutRequest(ctx, real.ID)
	assert.Equal(s.T(), "the real deal", survivor.Notes)

	deleteDemoResp := s.deleteDemoRequest(ctx)
	assert.Equal(s.T(), int64(regenResp2.Generated), deleteDemoResp.Deleted)

	listAllResp = s.listWorkoutsRequest(ctx, 1, 500, "show_all=true")
	assert.Equal(s.T(), 1, listAllResp.Total)
}

func (s *IntegrationTestSuite) regenerateDemoRequest(ctx context.Context, query string) workouts.RegenerateResponse {
	regenURL := fmt.Sprintf("%s/workouts/demo/regenerate", serverEndpoint)
	if query != "" {
		regenURL += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, "POST", regenURL, nil)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var regenResp workouts.RegenerateResponse
	require.NoError(s.T(), json.Unmarshal(respBytes, &regenResp))
	return regenResp
}

func (s *IntegrationTestSuite) deleteDemoRequest(ctx context.Context) workouts.DeleteBatchResponse {
	req, err := http.NewRequestWithContext(
		ctx,
		"DELETE", fmt.Sprintf("%s/workouts/demo", serverEndpoint),
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

	var deleteResp workouts.DeleteBatchResponse
	require.NoError(s.T(), json.Unmarshal(respBytes, &deleteResp))
	return deleteResp
}
