package models

import "time"

// Insurance is a policy held by a user.
type Insurance struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       string    `gorm:"size:36;index;not null" json:"user_id"`
	Provider     string    `gorm:"size:128;not null" json:"provider"`
	PolicyNumber string    `gorm:"size:64;not null" json:"policyNumber"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName keeps policies in their own collection.
func (Insurance) TableName() string { return "insurance_policies" }

// InsurancePlan is a catalog entry offered to users; it is not persisted.
type InsurancePlan struct {
	PlanName       string   `json:"planName"`
	Provider       string   `json:"provider"`
	CoverageType   string   `json:"coverageType"`
	PremiumAmount  int      `json:"premiumAmount"`
	CoverageAmount int      `json:"coverageAmount"`
	Features       []string `json:"features"`
	AgeGroup       string   `json:"ageGroup"`
}
