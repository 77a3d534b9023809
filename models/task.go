package models

// Task is one of the five daily tasks embedded in a DailyProgress record.
type Task struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Percentage  int    `json:"percentage"`
	Completed   bool   `json:"completed"`
	IsHeartTask bool   `json:"isHeartTask"`
}

// Normalize clamps the percentage into [0,100] and derives Completed from it.
func (t *Task) Normalize() {
	if t.Percentage < 0 {
		t.Percentage = 0
	}
	if t.Percentage > 100 {
		t.Percentage = 100
	}
	t.Completed = t.Percentage >= 100
}
