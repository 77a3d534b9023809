package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/fitquest/models"
)

const (
	// StepsGoal is the daily step target behind task1.
	StepsGoal = 10000
	// SeedDays is how many synthetic days a new account's month is seeded with.
	SeedDays = 30

	stepsTaskName        = "task1"
	stepsTaskDescription = "Complete 10,000 steps today"
)

// Planner produces the randomized daily plan shared by the nightly rollup and registration.
type Planner struct {
	Generator TextGenerator
	Rand      Rand
	Location  *time.Location
	Logger    *zap.Logger
	Metrics   *Metrics
}

// NewPlanner returns a planner; a nil gen always uses the fallback descriptions.
func NewPlanner(gen TextGenerator, rnd Rand, loc *time.Location, logger *zap.Logger, m *Metrics) *Planner {
	if rnd == nil {
		rnd = DefaultRand()
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{Generator: gen, Rand: rnd, Location: loc, Logger: logger, Metrics: m}
}

// PlanDay builds a fresh daily record for userID dated now. It never fails:
// generation problems fall back to the fixed descriptions.
func (p *Planner) PlanDay(ctx context.Context, userID string, now time.Time) *models.DailyProgress {
	heart := p.Rand.IntN(GeneratedTaskCount) // index into task2..task5
	steps := p.Rand.IntN(StepsGoal)

	descriptions, generated := generateTasks(ctx, p.Generator)
	if !generated {
		p.Logger.Debug("task generation unavailable, using fallback", zap.String("user_id", userID))
	}
	p.Metrics.observeGeneration(generated)

	tasks := make([]models.Task, 0, models.TasksPerDay)
	tasks = append(tasks, models.Task{
		Name:        stepsTaskName,
		Description: stepsTaskDescription,
		Percentage:  stepsPercentage(steps),
	})
	for i := 0; i < GeneratedTaskCount; i++ {
		tasks = append(tasks, models.Task{
			Name:        fmt.Sprintf("task%d", i+2),
			Description: descriptions[i],
			Percentage:  p.Rand.IntN(101),
			IsHeartTask: i == heart,
		})
	}

	daily := &models.DailyProgress{
		UserID:           userID,
		Tasks:            tasks,
		Steps:            steps,
		MoveMinutes:      p.Rand.IntN(60),
		BriskWalkMinutes: p.Rand.IntN(30),
		LightJogMinutes:  p.Rand.IntN(30),
		Date:             now.In(p.Location),
	}
	daily.Normalize()
	return daily
}

// SeedMonth returns a month record for now's month filled with synthetic days 1..30.
func (p *Planner) SeedMonth(userID string, now time.Time) *models.MonthlyProgress {
	m := &models.MonthlyProgress{UserID: userID, Month: p.MonthKey(now)}
	for day := 1; day <= SeedDays; day++ {
		completed := p.Rand.IntN(models.TasksPerDay + 1)
		m.UpsertDay(models.DaySummary{
			Day:            day,
			CompletedTasks: completed,
			Percentage:     int(math.Round(float64(completed) / models.TasksPerDay * 100)),
		})
	}
	return m
}

// MonthKey is the "YYYY-MM" key of t in the planner's location.
func (p *Planner) MonthKey(t time.Time) string {
	return models.MonthKey(t.In(p.Location))
}

// DayNumber is the day of month of t in the planner's location.
func (p *Planner) DayNumber(t time.Time) int {
	return t.In(p.Location).Day()
}

// Summarize aggregates a day's tasks into its month entry.
func Summarize(day int, tasks []models.Task) models.DaySummary {
	s := models.DaySummary{Day: day}
	if len(tasks) == 0 {
		return s
	}
	total := 0
	for _, t := range tasks {
		if t.Completed {
			s.CompletedTasks++
		}
		total += t.Percentage
	}
	s.Percentage = int(math.Round(float64(total) / float64(len(tasks))))
	return s
}

// FoldDay writes the day's summary into monthly, replacing any entry for the same day.
func FoldDay(monthly *models.MonthlyProgress, summary models.DaySummary) {
	monthly.UpsertDay(summary)
}

func stepsPercentage(steps int) int {
	pct := int(math.Round(100 * float64(steps) / StepsGoal))
	return min(100, pct)
}
