package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/fitquest/models"
	"github.com/cppla/fitquest/store"
)

// RollupReport summarises one run over all users.
type RollupReport struct {
	Users     int           `json:"users"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Started   time.Time     `json:"started"`
	Took      time.Duration `json:"took"`
}

// RollupService regenerates every user's day and folds it into month and rewards.
type RollupService struct {
	repo    store.Repository
	planner *Planner
	logger  *zap.Logger
	metrics *Metrics
}

// NewRollupService wires the rollup.
func NewRollupService(repo store.Repository, planner *Planner, logger *zap.Logger, m *Metrics) *RollupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RollupService{repo: repo, planner: planner, logger: logger, metrics: m}
}

// RunAll processes users one at a time. A failing user is logged and skipped.
// When ctx ends, remaining users are counted as skipped and ctx's error is returned.
func (s *RollupService) RunAll(ctx context.Context, now time.Time) (RollupReport, error) {
	report := RollupReport{Started: time.Now()}
	ids, err := s.repo.ListUserIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("list users: %w", err)
	}
	report.Users = len(ids)

	var runErr error
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			report.Skipped = len(ids) - i
			runErr = err
			break
		}
		if err := s.RollupUser(ctx, id, now); err != nil {
			report.Failed++
			s.logger.Error("rollup failed for user", zap.String("user_id", id), zap.Error(err))
			continue
		}
		report.Succeeded++
	}

	report.Took = time.Since(report.Started)
	s.metrics.observeRollup(report, report.Took)
	s.logger.Info("daily rollup finished",
		zap.Int("users", report.Users),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
		zap.Duration("took", report.Took),
	)
	return report, runErr
}

// RollupUser writes today's record, folds it into the month and applies rewards.
// The three writes commit together; on error none of them persist.
func (s *RollupService) RollupUser(ctx context.Context, userID string, now time.Time) error {
	daily := s.planner.PlanDay(ctx, userID, now)
	month := s.planner.MonthKey(now)
	summary := Summarize(s.planner.DayNumber(now), daily.Tasks)

	return s.repo.Transaction(ctx, func(tx store.Repository) error {
		if err := tx.CreateDaily(ctx, daily); err != nil {
			return fmt.Errorf("save daily: %w", err)
		}

		monthly, err := tx.MonthlyFor(ctx, userID, month)
		if errors.Is(err, store.ErrNotFound) {
			monthly = &models.MonthlyProgress{UserID: userID, Month: month}
		} else if err != nil {
			return fmt.Errorf("load monthly: %w", err)
		}
		FoldDay(monthly, summary)
		if err := tx.SaveMonthly(ctx, monthly); err != nil {
			return fmt.Errorf("save monthly: %w", err)
		}

		rewards, err := tx.RewardsFor(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			rewards = models.NewRewards(userID)
		} else if err != nil {
			return fmt.Errorf("load rewards: %w", err)
		}
		if granted := ApplyDailyRewards(rewards, daily.Tasks, monthly.Days); len(granted) > 0 {
			s.logger.Info("badges granted", zap.String("user_id", userID), zap.Strings("badges", granted))
		}
		if err := tx.SaveRewards(ctx, rewards); err != nil {
			return fmt.Errorf("save rewards: %w", err)
		}
		return nil
	})
}
