package models

import (
	"sort"
	"time"

	"gorm.io/datatypes"
)

// MonthKeyLayout formats the month key of a MonthlyProgress record ("2025-10").
const MonthKeyLayout = "2006-01"

// DaySummary is the per-day aggregate folded into a month.
type DaySummary struct {
	Day            int `json:"day"`
	CompletedTasks int `json:"completedTasks"`
	Percentage     int `json:"percentage"`
}

// MonthlyProgress holds one user's per-day summaries for one calendar month.
// Days has at most one entry per day number and is kept sorted ascending.
type MonthlyProgress struct {
	ID        uint                            `gorm:"primaryKey" json:"-"`
	UserID    string                          `gorm:"size:36;uniqueIndex:idx_monthly_user_month;not null" json:"user_id"`
	Month     string                          `gorm:"size:7;uniqueIndex:idx_monthly_user_month;not null" json:"month"`
	Days      datatypes.JSONSlice[DaySummary] `json:"days"`
	UpdatedAt time.Time                       `json:"updated_at"`
}

// TableName keeps the collection name singular.
func (MonthlyProgress) TableName() string { return "monthly_progress" }

// MonthKey returns the month key for t in t's location.
func MonthKey(t time.Time) string {
	return t.Format(MonthKeyLayout)
}

// UpsertDay replaces the entry for s.Day (remove then insert) and re-sorts.
func (m *MonthlyProgress) UpsertDay(s DaySummary) {
	days := make([]DaySummary, 0, len(m.Days)+1)
	for _, d := range m.Days {
		if d.Day != s.Day {
			days = append(days, d)
		}
	}
	days = append(days, s)
	sort.SliceStable(days, func(i, j int) bool { return days[i].Day < days[j].Day })
	m.Days = days
}

// Day returns the summary for day number n.
func (m *MonthlyProgress) Day(n int) (DaySummary, bool) {
	if m == nil {
		return DaySummary{}, false
	}
	for _, d := range m.Days {
		if d.Day == n {
			return d, true
		}
	}
	return DaySummary{}, false
}
