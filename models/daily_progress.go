package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TasksPerDay is the number of task slots in every daily record.
const TasksPerDay = 5

// DailyProgress holds one user's tasks and activity counters for one calendar day.
type DailyProgress struct {
	ID               uint                      `gorm:"primaryKey" json:"-"`
	UserID           string                    `gorm:"size:36;index:idx_daily_user_date;not null" json:"user_id"`
	Tasks            datatypes.JSONSlice[Task] `json:"tasks"`
	Steps            int                       `json:"steps"`
	MoveMinutes      int                       `json:"moveMinutes"`
	BriskWalkMinutes int                       `json:"briskWalkMinutes"`
	LightJogMinutes  int                       `json:"lightJogMinutes"`
	Date             time.Time                 `gorm:"index:idx_daily_user_date;not null" json:"date"`
	CreatedAt        time.Time                 `json:"created_at"`
}

// TableName keeps the collection name singular.
func (DailyProgress) TableName() string { return "daily_progress" }

// BeforeSave applies the save-time rule that a full percentage means completed.
func (d *DailyProgress) BeforeSave(tx *gorm.DB) error {
	d.Normalize()
	return nil
}

// Normalize normalises every task in place.
func (d *DailyProgress) Normalize() {
	for i := range d.Tasks {
		d.Tasks[i].Normalize()
	}
}

// HeartTaskCount returns how many tasks carry the heart flag.
func (d *DailyProgress) HeartTaskCount() int {
	n := 0
	for _, t := range d.Tasks {
		if t.IsHeartTask {
			n++
		}
	}
	return n
}
