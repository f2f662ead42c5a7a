package cutoff

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type weekKey struct {
	season, week int
}

type weekState struct {
	games, scored, defenseRows int
	gameIDs                    []string
}

type fakeStore struct {
	weeks        map[weekKey]weekState
	seasonScored map[int]int
	seasonErr    error
	weekErr      error
}

func (f *fakeStore) WeekGameCounts(_ context.Context, season, week int) (int, int, error) {
	if f.weekErr != nil {
		return 0, 0, f.weekErr
	}
	w := f.weeks[weekKey{season, week}]
	return w.games, w.scored, nil
}

func (f *fakeStore) WeekDefenseCount(_ context.Context, season, week int) (int, error) {
	if f.weekErr != nil {
		return 0, f.weekErr
	}
	return f.weeks[weekKey{season, week}].defenseRows, nil
}

func (f *fakeStore) WeekBoxScoreGameIDs(_ context.Context, season, week int) ([]string, error) {
	if f.weekErr != nil {
		return nil, f.weekErr
	}
	return f.weeks[weekKey{season, week}].gameIDs, nil
}

func (f *fakeStore) SeasonScoredGames(_ context.Context, season int) (int, error) {
	if f.seasonErr != nil {
		return 0, f.seasonErr
	}
	return f.seasonScored[season], nil
}

// readyWeek is a fully ingested slate of n games.
func readyWeek(n int) weekState {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = "401547000"
	}
	return weekState{games: n, scored: n, defenseRows: 2 * n, gameIDs: ids}
}

func TestTrainingSeasonsPriorThree(t *testing.T) {
	p := NewPolicy(&fakeStore{seasonScored: map[int]int{2025: 0}})

	assert.Equal(t, []int{2022, 2023, 2024}, p.TrainingSeasons(context.Background(), 2025))
}

func TestTrainingSeasonsIncludesCurrentOnceUnderway(t *testing.T) {
	p := NewPolicy(&fakeStore{seasonScored: map[int]int{2025: 8}})

	assert.Equal(t, []int{2022, 2023, 2024, 2025}, p.TrainingSeasons(context.Background(), 2025))
}

func TestTrainingSeasonsFloor(t *testing.T) {
	p := NewPolicy(&fakeStore{})

	// 2018 and 2019 predate reliable data and stay out.
	assert.Equal(t, []int{2020}, p.TrainingSeasons(context.Background(), 2021))
}

func TestTrainingSeasonsExcludesCurrentOnBackendError(t *testing.T) {
	p := NewPolicy(&fakeStore{seasonErr: errors.New("connection refused")})

	assert.Equal(t, []int{2022, 2023, 2024}, p.TrainingSeasons(context.Background(), 2025))
}

func TestWeekReady(t *testing.T) {
	store := &fakeStore{weeks: map[weekKey]weekState{
		{2024, 5}: readyWeek(14),
	}}
	p := NewPolicy(store)

	assert.True(t, p.WeekReady(context.Background(), 2024, 5))
	assert.False(t, p.WeekReady(context.Background(), 2024, 6), "no games at all")
}

func TestWeekReadyRejectsPartialIngestion(t *testing.T) {
	cases := map[string]weekState{
		"missing scores":    {games: 14, scored: 12, defenseRows: 28},
		"defense shortfall": {games: 14, scored: 14, defenseRows: 27},
		"synthetic game id": {
			games: 2, scored: 2, defenseRows: 4,
			gameIDs: []string{"401547000", "2023_12_MIN_vs_GB"},
		},
	}
	for name, state := range cases {
		t.Run(name, func(t *testing.T) {
			store := &fakeStore{weeks: map[weekKey]weekState{{2023, 12}: state}}
			assert.False(t, NewPolicy(store).WeekReady(context.Background(), 2023, 12))
		})
	}
}

func TestWeekReadyFalseOnBackendError(t *testing.T) {
	p := NewPolicy(&fakeStore{weekErr: errors.New("timeout")})

	assert.False(t, p.WeekReady(context.Background(), 2024, 5))
}

func TestLatestReadyBeforePrefersSameSeason(t *testing.T) {
	store := &fakeStore{weeks: map[weekKey]weekState{
		{2024, 7}:  readyWeek(14),
		{2024, 8}:  readyWeek(13),
		{2023, 18}: readyWeek(16),
	}}
	p := NewPolicy(store)

	season, week, ok := p.LatestReadyBefore(context.Background(), 2024, 10)
	assert.True(t, ok)
	assert.Equal(t, 2024, season)
	assert.Equal(t, 8, week, "most recent ready week wins")
}

func TestLatestReadyBeforeFallsBackToPriorSeason(t *testing.T) {
	store := &fakeStore{weeks: map[weekKey]weekState{
		{2023, 18}: readyWeek(16),
		{2023, 11}: readyWeek(14),
	}}
	p := NewPolicy(store)

	season, week, ok := p.LatestReadyBefore(context.Background(), 2024, 3)
	assert.True(t, ok)
	assert.Equal(t, 2023, season)
	assert.Equal(t, 18, week, "prior seasons scan from week 18 down")
}

func TestLatestReadyBeforeNothingQualifies(t *testing.T) {
	p := NewPolicy(&fakeStore{})

	_, _, ok := p.LatestReadyBefore(context.Background(), 2024, 10)
	assert.False(t, ok)
}
