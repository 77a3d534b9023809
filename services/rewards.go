package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/cppla/fitquest/models"
	"github.com/cppla/fitquest/store"
)

const (
	TaskCompletionCredits = 10
	TaskProgressCredits   = 5
	StreakCredits         = 20
	ChampionCredits       = 50

	StreakBadge   = "7-Day Streak 🌟"
	ChampionBadge = "Monthly Champion 🏆"

	streakWindow    = 7
	rewardThreshold = 80.0
)

// TaskBadge is the badge granted the first time a task reaches 100%.
func TaskBadge(taskName string) string {
	return taskName + " Completed ✅"
}

// ApplyDailyRewards credits r for today's tasks and the month so far, and returns
// the badges granted. days must already include today's entry.
func ApplyDailyRewards(r *models.Rewards, tasks []models.Task, days []models.DaySummary) []string {
	var granted []string
	for _, t := range tasks {
		if t.Percentage >= 100 && !r.HasBadge(TaskBadge(t.Name)) {
			r.Grant(TaskBadge(t.Name), TaskCompletionCredits)
			granted = append(granted, TaskBadge(t.Name))
		} else if t.Percentage > 50 {
			r.AddCredits(TaskProgressCredits)
		}
	}

	// the streak needs a full window of entries
	if len(days) >= streakWindow {
		last := days[len(days)-streakWindow:]
		if meanPercentage(last) >= rewardThreshold && r.Grant(StreakBadge, StreakCredits) {
			granted = append(granted, StreakBadge)
		}
	}
	if meanPercentage(days) >= rewardThreshold && r.Grant(ChampionBadge, ChampionCredits) {
		granted = append(granted, ChampionBadge)
	}
	return granted
}

func meanPercentage(days []models.DaySummary) float64 {
	if len(days) == 0 {
		return 0
	}
	sum := lo.SumBy(days, func(d models.DaySummary) int { return d.Percentage })
	return float64(sum) / float64(len(days))
}

// RewardsUpdate overwrites the fields that are set.
type RewardsUpdate struct {
	Credits *int
	Badges  []string
}

// RewardsService reads and edits rewards outside the nightly rollup.
type RewardsService struct {
	repo store.Repository
}

// NewRewardsService returns the service.
func NewRewardsService(repo store.Repository) *RewardsService {
	return &RewardsService{repo: repo}
}

// Get returns the user's rewards, creating an empty record when there is none.
func (s *RewardsService) Get(ctx context.Context, userID string) (*models.Rewards, error) {
	var out *models.Rewards
	err := s.repo.Transaction(ctx, func(tx store.Repository) error {
		r, err := tx.RewardsFor(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			r = models.NewRewards(userID)
			if err := tx.SaveRewards(ctx, r); err != nil {
				return fmt.Errorf("create rewards: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("load rewards: %w", err)
		}
		out = r
		return nil
	})
	return out, err
}

// Update overwrites credits and/or badges. Credits must not be negative; badges are deduped.
func (s *RewardsService) Update(ctx context.Context, userID string, in RewardsUpdate) (*models.Rewards, error) {
	if in.Credits == nil && in.Badges == nil {
		return nil, invalid("credits or badges required")
	}
	if in.Credits != nil && *in.Credits < 0 {
		return nil, invalid("credits must not be negative")
	}
	var out *models.Rewards
	err := s.repo.Transaction(ctx, func(tx store.Repository) error {
		r, err := tx.RewardsFor(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			r = models.NewRewards(userID)
		} else if err != nil {
			return fmt.Errorf("load rewards: %w", err)
		}
		if in.Credits != nil {
			r.Credits = *in.Credits
		}
		if in.Badges != nil {
			r.SetBadges(lo.Map(in.Badges, func(b string, _ int) string { return strings.TrimSpace(b) }))
		}
		if err := tx.SaveRewards(ctx, r); err != nil {
			return fmt.Errorf("save rewards: %w", err)
		}
		out = r
		return nil
	})
	return out, err
}
