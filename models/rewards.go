package models

import (
	"time"

	"github.com/samber/lo"
	"gorm.io/datatypes"
)

// Rewards is a user's credit balance and earned badges. Each badge label appears at most once.
type Rewards struct {
	ID        uint                        `gorm:"primaryKey" json:"-"`
	UserID    string                      `gorm:"size:36;uniqueIndex;not null" json:"user_id"`
	Credits   int                         `gorm:"not null;default:0" json:"credits"`
	Badges    datatypes.JSONSlice[string] `json:"badges"`
	UpdatedAt time.Time                   `json:"lastUpdated"`
}

// TableName maps rewards onto the user_rewards collection.
func (Rewards) TableName() string { return "user_rewards" }

// NewRewards returns an empty record for userID.
func NewRewards(userID string) *Rewards {
	return &Rewards{UserID: userID, Badges: datatypes.JSONSlice[string]{}}
}

// HasBadge reports whether label was already granted.
func (r *Rewards) HasBadge(label string) bool {
	return lo.Contains(r.Badges, label)
}

// Grant adds label with a credit bonus unless it is already held. It reports whether it granted.
func (r *Rewards) Grant(label string, credits int) bool {
	if r.HasBadge(label) {
		return false
	}
	r.Badges = append(r.Badges, label)
	r.Credits += credits
	return true
}

// AddCredits increases the balance.
func (r *Rewards) AddCredits(n int) {
	r.Credits += n
}

// SetBadges overwrites the badge set, dropping blanks and duplicates while keeping order.
func (r *Rewards) SetBadges(labels []string) {
	kept := lo.Filter(labels, func(s string, _ int) bool { return s != "" })
	r.Badges = datatypes.JSONSlice[string](lo.Uniq(kept))
}
