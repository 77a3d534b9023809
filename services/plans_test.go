package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/fitquest/models"
	"github.com/cppla/fitquest/store"
)

type memPlanCache struct {
	plans  []models.InsurancePlan
	stored int
}

func (c *memPlanCache) Load(ctx context.Context) ([]models.InsurancePlan, bool) {
	return c.plans, len(c.plans) > 0
}

func (c *memPlanCache) Store(ctx context.Context, plans []models.InsurancePlan, ttl time.Duration) {
	c.plans = plans
	c.stored++
}

const generatedPlans = "```json\n" + `[
  {"planName": "Fit Cover", "provider": "Star Health", "coverageType": "Health",
   "premiumAmount": 9000, "coverageAmount": 400000, "features": ["<i>OPD</i> cover"], "ageGroup": "18-60 years"}
]` + "\n```"

func TestPlansUsesGeneratedCatalogAndCaches(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemory()
	require.NoError(t, repo.SaveRewards(ctx, &models.Rewards{UserID: "u", Credits: 50, Badges: []string{"x"}}))

	gen := &stubGen{text: generatedPlans}
	cache := &memPlanCache{}
	svc := NewPlanService(repo, gen, cache, time.Hour, nil, nil)

	listing, err := svc.Plans(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, SourceGenerated, listing.DataSource)
	require.Len(t, listing.Plans, 1)
	assert.Equal(t, []string{"OPD cover"}, listing.Plans[0].Features)
	assert.Equal(t, 9000-100-50, listing.Plans[0].FinalPrice)
	assert.Equal(t, RewardsSummary{Credits: 50, Badges: 1, BadgesList: []string{"x"}}, listing.UserRewards)
	assert.Equal(t, 1, cache.stored)

	// second call is served from the cache
	_, err = svc.Plans(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls)
}

func TestPlansFallsBackToDefaults(t *testing.T) {
	cases := map[string]TextGenerator{
		"nil generator": nil,
		"error":         &stubGen{err: errBoom},
		"not json":      &stubGen{text: "Here are some plans!"},
		"empty array":   &stubGen{text: "[]"},
		"zero premium":  &stubGen{text: `[{"planName": "Free", "premiumAmount": 0}]`},
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			cache := &memPlanCache{}
			svc := NewPlanService(store.NewMemory(), gen, cache, time.Hour, nil, nil)
			listing, err := svc.Plans(context.Background(), "u")
			require.NoError(t, err)
			assert.Equal(t, SourceDefault, listing.DataSource)
			assert.Len(t, listing.Plans, 6)
			assert.Zero(t, cache.stored, "default catalog is never cached")
		})
	}
}

func TestPlansRewardsErrorPricesWithoutDiscount(t *testing.T) {
	repo := &failingRepo{Repository: store.NewMemory(), failRewardsRead: true}
	svc := NewPlanService(repo, nil, nil, time.Hour, nil, nil)

	listing, err := svc.Plans(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, 0, listing.UserRewards.Credits)
	assert.Equal(t, []string{}, listing.UserRewards.BadgesList)
	for _, p := range listing.Plans {
		assert.Equal(t, p.OriginalPrice, p.FinalPrice)
	}
}

func TestParsePlansRejectsIncomplete(t *testing.T) {
	_, err := ParsePlans(`[{"planName": "", "premiumAmount": 100}]`)
	assert.Error(t, err)

	plans, err := ParsePlans("```\n[{\"planName\": \"A\", \"premiumAmount\": 1}]\n```")
	require.NoError(t, err)
	assert.Equal(t, "A", plans[0].PlanName)
}
