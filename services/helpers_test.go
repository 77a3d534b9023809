package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/cppla/fitquest/models"
	"github.com/cppla/fitquest/store"
)

var errBoom = errors.New("boom")

type stubGen struct {
	text  string
	err   error
	calls int
}

func (g *stubGen) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	return g.text, g.err
}

// fracRand returns the same fraction of every range, so plans are fully predictable.
type fracRand struct{ f float64 }

func (r fracRand) IntN(n int) int {
	return min(int(r.f*float64(n)), n-1)
}

func seeded(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func testPlanner(gen TextGenerator, rnd Rand) *Planner {
	return NewPlanner(gen, rnd, time.UTC, nil, nil)
}

// failingRepo fails selected operations for selected users and keeps doing so inside transactions.
type failingRepo struct {
	store.Repository
	failRewardsSave map[string]bool
	failRewardsRead bool
	monthlyCalls    int
}

func (f *failingRepo) Transaction(ctx context.Context, fn func(tx store.Repository) error) error {
	return f.Repository.Transaction(ctx, func(tx store.Repository) error {
		return fn(&failingRepo{Repository: tx, failRewardsSave: f.failRewardsSave, failRewardsRead: f.failRewardsRead})
	})
}

func (f *failingRepo) SaveRewards(ctx context.Context, r *models.Rewards) error {
	if f.failRewardsSave[r.UserID] {
		return errBoom
	}
	return f.Repository.SaveRewards(ctx, r)
}

func (f *failingRepo) RewardsFor(ctx context.Context, userID string) (*models.Rewards, error) {
	if f.failRewardsRead {
		return nil, errBoom
	}
	return f.Repository.RewardsFor(ctx, userID)
}

func (f *failingRepo) MonthlyFor(ctx context.Context, userID, month string) (*models.MonthlyProgress, error) {
	f.monthlyCalls++
	return f.Repository.MonthlyFor(ctx, userID, month)
}

func addUser(ctx context.Context, repo store.Repository, name string) string {
	u := &models.User{Username: name, Email: name + "@example.com", PasswordHash: "x"}
	if err := repo.CreateUser(ctx, u); err != nil {
		panic(err)
	}
	return u.UserID
}
