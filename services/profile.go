package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cppla/fitquest/models"
	"github.com/cppla/fitquest/store"
)

const (
	HeartPointsGoal = 30

	heartWindowDays   = 30
	heartDivisor      = 2
	weekDays          = 7
	caloriesPerStep   = 0.04
	kilometresPerStep = 0.0008
)

// FullProfile joins everything stored for one user.
type FullProfile struct {
	User      *models.User            `json:"user"`
	Rewards   *models.Rewards         `json:"rewards"`
	Daily     *models.DailyProgress   `json:"daily"`
	Monthly   *models.MonthlyProgress `json:"monthly"`
	Insurance []models.Insurance      `json:"insurance"`
}

// WeekDay is one entry of the last-7-days view.
type WeekDay struct {
	Date           string  `json:"date"`
	Day            string  `json:"day"`
	CompletedTasks int     `json:"completedTasks"`
	Completed      float64 `json:"completed"`
}

// Progress is the dashboard view for today.
type Progress struct {
	Username         string        `json:"username"`
	Steps            int           `json:"steps"`
	Calories         int           `json:"calories"`
	Distance         float64       `json:"distance"`
	MoveMinutes      int           `json:"moveMinutes"`
	BriskWalkMinutes int           `json:"briskWalkMinutes"`
	LightJogMinutes  int           `json:"lightJogMinutes"`
	Tasks            []models.Task `json:"tasks"`
	HeartPts         int           `json:"heartPts"`
	HeartPtsGoal     int           `json:"heartPtsGoal"`
	Weekly           []WeekDay     `json:"weekly"`
	RewardPoints     int           `json:"rewardPoints"`
}

// ProfileService assembles read-only views.
type ProfileService struct {
	repo store.Repository
	loc  *time.Location
}

// NewProfileService returns views computed in loc.
func NewProfileService(repo store.Repository, loc *time.Location) *ProfileService {
	if loc == nil {
		loc = time.Local
	}
	return &ProfileService{repo: repo, loc: loc}
}

// FullProfile returns the user with rewards, latest daily and monthly records and policies.
// Records other than the user may be nil when absent.
func (s *ProfileService) FullProfile(ctx context.Context, userID string) (*FullProfile, error) {
	user, err := s.repo.UserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	out := &FullProfile{User: user, Insurance: []models.Insurance{}}

	if out.Rewards, err = optional(s.repo.RewardsFor(ctx, userID)); err != nil {
		return nil, fmt.Errorf("load rewards: %w", err)
	}
	if out.Daily, err = optional(s.repo.LatestDaily(ctx, userID)); err != nil {
		return nil, fmt.Errorf("load daily: %w", err)
	}
	if out.Monthly, err = optional(s.repo.LatestMonthly(ctx, userID)); err != nil {
		return nil, fmt.Errorf("load monthly: %w", err)
	}
	policies, err := s.repo.InsuranceFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load insurance: %w", err)
	}
	if policies != nil {
		out.Insurance = policies
	}
	return out, nil
}

// Progress returns today's counters and tasks, heart points over the trailing 30 days
// and the last 7 days oldest first. Missing activity records read as zero; a missing
// user is ErrUserNotFound.
func (s *ProfileService) Progress(ctx context.Context, userID string, now time.Time) (*Progress, error) {
	user, err := s.repo.UserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	now = now.In(s.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)

	out := &Progress{
		Username:     user.Username,
		HeartPtsGoal: HeartPointsGoal,
		Tasks:        []models.Task{},
		Weekly:       make([]WeekDay, 0, weekDays),
	}

	daily, err := optional(s.repo.DailyBetween(ctx, userID, start, start.AddDate(0, 0, 1)))
	if err != nil {
		return nil, fmt.Errorf("load daily: %w", err)
	}
	if daily != nil {
		out.Steps = daily.Steps
		out.MoveMinutes = daily.MoveMinutes
		out.BriskWalkMinutes = daily.BriskWalkMinutes
		out.LightJogMinutes = daily.LightJogMinutes
		out.Tasks = daily.Tasks
	}
	out.Calories = int(math.Round(float64(out.Steps) * caloriesPerStep))
	out.Distance = math.Round(float64(out.Steps)*kilometresPerStep*100) / 100

	months := map[string]*models.MonthlyProgress{}
	lookup := func(day time.Time) (models.DaySummary, error) {
		key := models.MonthKey(day)
		m, seen := months[key]
		if !seen {
			var err error
			if m, err = optional(s.repo.MonthlyFor(ctx, userID, key)); err != nil {
				return models.DaySummary{}, fmt.Errorf("load monthly %s: %w", key, err)
			}
			months[key] = m
		}
		summary, _ := m.Day(day.Day())
		return summary, nil
	}

	completed := 0
	for i := 0; i < heartWindowDays; i++ {
		summary, err := lookup(start.AddDate(0, 0, -i))
		if err != nil {
			return nil, err
		}
		completed += summary.CompletedTasks
	}
	out.HeartPts = completed / heartDivisor

	for i := weekDays - 1; i >= 0; i-- {
		day := start.AddDate(0, 0, -i)
		summary, err := lookup(day)
		if err != nil {
			return nil, err
		}
		out.Weekly = append(out.Weekly, WeekDay{
			Date:           day.Format("2006-01-02"),
			Day:            day.Weekday().String()[:3],
			CompletedTasks: summary.CompletedTasks,
			Completed:      math.Min(float64(summary.CompletedTasks)/models.TasksPerDay, 1),
		})
	}

	rewards, err := optional(s.repo.RewardsFor(ctx, userID))
	if err != nil {
		return nil, fmt.Errorf("load rewards: %w", err)
	}
	if rewards != nil {
		out.RewardPoints = rewards.Credits
	}
	return out, nil
}

// optional turns store.ErrNotFound into a nil record.
func optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return v, err
}
