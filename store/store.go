// Package store persists users, progress, rewards and insurance records.
package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/fitquest/models"
)

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a unique index.
	ErrDuplicate = errors.New("duplicate record")
)

// Repository is the storage surface used by the services. All records other than User
// are keyed by the owning user's UserID.
type Repository interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserByID(ctx context.Context, userID string) (*models.User, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error
	UpdateUsername(ctx context.Context, userID, username string) error
	ListUserIDs(ctx context.Context) ([]string, error)

	CreateDaily(ctx context.Context, d *models.DailyProgress) error
	LatestDaily(ctx context.Context, userID string) (*models.DailyProgress, error)
	// DailyBetween returns the newest record dated in [from, to).
	DailyBetween(ctx context.Context, userID string, from, to time.Time) (*models.DailyProgress, error)

	MonthlyFor(ctx context.Context, userID, month string) (*models.MonthlyProgress, error)
	LatestMonthly(ctx context.Context, userID string) (*models.MonthlyProgress, error)
	SaveMonthly(ctx context.Context, m *models.MonthlyProgress) error

	RewardsFor(ctx context.Context, userID string) (*models.Rewards, error)
	SaveRewards(ctx context.Context, r *models.Rewards) error

	InsuranceFor(ctx context.Context, userID string) ([]models.Insurance, error)
	CreateInsurance(ctx context.Context, p *models.Insurance) error

	// Transaction runs fn against a repository whose writes commit or roll back together.
	Transaction(ctx context.Context, fn func(tx Repository) error) error
}

// Models lists every persisted model, in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.DailyProgress{},
		&models.MonthlyProgress{},
		&models.Rewards{},
		&models.Insurance{},
	}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
