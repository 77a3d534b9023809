package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/fitquest/models"
	"github.com/cppla/fitquest/store"
)

func daysAt(pcts ...int) []models.DaySummary {
	out := make([]models.DaySummary, len(pcts))
	for i, p := range pcts {
		out[i] = models.DaySummary{Day: i + 1, Percentage: p}
	}
	return out
}

func TestApplyDailyRewardsPerTask(t *testing.T) {
	r := models.NewRewards("u")
	tasks := []models.Task{
		{Name: "task1", Percentage: 100},
		{Name: "task2", Percentage: 60},
		{Name: "task3", Percentage: 50},
	}

	granted := ApplyDailyRewards(r, tasks, nil)
	assert.Equal(t, []string{"task1 Completed ✅"}, granted)
	assert.Equal(t, 15, r.Credits)

	// a repeated completion no longer earns the badge, only the progress bonus
	granted = ApplyDailyRewards(r, tasks, nil)
	assert.Empty(t, granted)
	assert.Equal(t, 25, r.Credits)
	assert.Equal(t, []string{"task1 Completed ✅"}, []string(r.Badges))
}

func TestApplyDailyRewardsStreakNeedsSevenEntries(t *testing.T) {
	r := models.NewRewards("u")
	ApplyDailyRewards(r, nil, daysAt(100, 100, 100, 100, 100, 100))
	assert.False(t, r.HasBadge(StreakBadge))
	assert.True(t, r.HasBadge(ChampionBadge))
	assert.Equal(t, ChampionCredits, r.Credits)

	ApplyDailyRewards(r, nil, daysAt(100, 100, 100, 100, 100, 100, 100))
	assert.True(t, r.HasBadge(StreakBadge))
	assert.Equal(t, ChampionCredits+StreakCredits, r.Credits)
}

func TestApplyDailyRewardsStreakUsesLastSeven(t *testing.T) {
	r := models.NewRewards("u")
	// poor start, strong last week: streak yes, month mean below 80
	ApplyDailyRewards(r, nil, daysAt(0, 0, 0, 0, 0, 0, 0, 80, 80, 80, 80, 80, 80, 80))
	assert.True(t, r.HasBadge(StreakBadge))
	assert.False(t, r.HasBadge(ChampionBadge))

	r = models.NewRewards("u")
	ApplyDailyRewards(r, nil, daysAt(80, 80, 80, 80, 80, 80, 79, 79, 79, 79, 79, 79, 79))
	assert.False(t, r.HasBadge(StreakBadge))
}

func TestRewardsServiceGetCreatesRecord(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	svc := NewRewardsService(repo)

	r, err := svc.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 0, r.Credits)
	assert.Empty(t, r.Badges)

	_, err = repo.RewardsFor(ctx, "u-1")
	assert.NoError(t, err)
}

func TestRewardsServiceUpdate(t *testing.T) {
	ctx := context.Background()
	svc := NewRewardsService(store.NewMemory())

	credits := 120
	r, err := svc.Update(ctx, "u-1", RewardsUpdate{Credits: &credits, Badges: []string{"A", " A", "B", ""}})
	require.NoError(t, err)
	assert.Equal(t, 120, r.Credits)
	assert.Equal(t, []string{"A", "B"}, []string(r.Badges))

	r, err = svc.Update(ctx, "u-1", RewardsUpdate{Badges: []string{"C"}})
	require.NoError(t, err)
	assert.Equal(t, 120, r.Credits, "credits untouched when omitted")
	assert.Equal(t, []string{"C"}, []string(r.Badges))

	negative := -1
	_, err = svc.Update(ctx, "u-1", RewardsUpdate{Credits: &negative})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Update(ctx, "u-1", RewardsUpdate{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
