package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/fitquest/models"
)

func TestMemoryUserUniqueness(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.CreateUser(ctx, &models.User{Username: "alice", Email: "a@example.com"}))
	err := m.CreateUser(ctx, &models.User{Username: "alice", Email: "other@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
	err = m.CreateUser(ctx, &models.User{Username: "bob", Email: "a@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)

	taken, err := m.EmailTaken(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestMemoryTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	boom := errors.New("boom")
	err := m.Transaction(ctx, func(tx Repository) error {
		require.NoError(t, tx.SaveRewards(ctx, &models.Rewards{UserID: "u1", Credits: 10}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = m.RewardsFor(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	err = m.Transaction(ctx, func(tx Repository) error {
		return tx.SaveRewards(ctx, &models.Rewards{UserID: "u1", Credits: 10})
	})
	require.NoError(t, err)
	r, err := m.RewardsFor(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 10, r.Credits)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.SaveMonthly(ctx, &models.MonthlyProgress{UserID: "u1", Month: "2025-10", Days: []models.DaySummary{{Day: 1}}}))

	got, err := m.MonthlyFor(ctx, "u1", "2025-10")
	require.NoError(t, err)
	got.Days[0].Percentage = 99

	again, err := m.MonthlyFor(ctx, "u1", "2025-10")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Days[0].Percentage)
}

func TestMemoryDailyBetweenPicksNewestInRange(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	day := time.Date(2025, 10, 5, 0, 0, 0, 0, time.UTC)

	require.NoError(t, m.CreateDaily(ctx, &models.DailyProgress{UserID: "u1", Date: day.Add(-time.Hour), Steps: 1}))
	require.NoError(t, m.CreateDaily(ctx, &models.DailyProgress{UserID: "u1", Date: day.Add(time.Hour), Steps: 2}))
	require.NoError(t, m.CreateDaily(ctx, &models.DailyProgress{UserID: "u1", Date: day.Add(3 * time.Hour), Steps: 3}))

	d, err := m.DailyBetween(ctx, "u1", day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, d.Steps)

	latest, err := m.LatestDaily(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, latest.Steps)

	_, err = m.DailyBetween(ctx, "u1", day.Add(48*time.Hour), day.Add(72*time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryWriteDuringTransactionSurvivesCommit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	inTx := make(chan struct{})
	release := make(chan struct{})
	txDone := make(chan error, 1)
	go func() {
		txDone <- m.Transaction(ctx, func(tx Repository) error {
			close(inTx)
			<-release
			return tx.SaveRewards(ctx, &models.Rewards{UserID: "u1", Credits: 10})
		})
	}()
	<-inTx

	writeDone := make(chan error, 1)
	go func() {
		writeDone <- m.CreateInsurance(ctx, &models.Insurance{UserID: "u2", Provider: "Acme"})
	}()

	select {
	case <-writeDone:
		t.Fatal("write outside the transaction did not wait for it")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	require.NoError(t, <-txDone)
	require.NoError(t, <-writeDone)

	policies, err := m.InsuranceFor(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, policies, 1)
	r, err := m.RewardsFor(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 10, r.Credits)
}
