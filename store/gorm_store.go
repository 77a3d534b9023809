package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/fitquest/models"
)

// GormStore implements Repository on a relational database through gorm.
type GormStore struct {
	db *gorm.DB
	// locking is set inside transactions so read-modify-write rows are taken FOR UPDATE.
	locking bool
}

// NewGormStore wraps an opened gorm connection. The connection should be opened with
// TranslateError so unique violations surface as ErrDuplicate.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *GormStore) forUpdate(ctx context.Context) *gorm.DB {
	q := s.conn(ctx)
	if s.locking {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

// Transaction implements Repository.
func (s *GormStore) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, locking: true})
	})
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.conn(ctx).Create(u).Error)
}

func (s *GormStore) UserByID(ctx context.Context, userID string) (*models.User, error) {
	return s.firstUser(ctx, "user_id = ?", userID)
}

func (s *GormStore) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.firstUser(ctx, "username = ?", username)
}

func (s *GormStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.firstUser(ctx, "email = ?", email)
}

func (s *GormStore) firstUser(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).Where(query, arg).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, "username = ?", username)
}

func (s *GormStore) EmailTaken(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, "email = ?", email)
}

func (s *GormStore) exists(ctx context.Context, query string, arg interface{}) (bool, error) {
	var n int64
	if err := s.conn(ctx).Model(&models.User{}).Where(query, arg).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *GormStore) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	return s.updateUser(ctx, userID, map[string]interface{}{"last_login": at})
}

func (s *GormStore) UpdateUsername(ctx context.Context, userID, username string) error {
	return s.updateUser(ctx, userID, map[string]interface{}{"username": username})
}

func (s *GormStore) updateUser(ctx context.Context, userID string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	res := s.conn(ctx).Model(&models.User{}).Where("user_id = ?", userID).Updates(fields)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.conn(ctx).Model(&models.User{}).Order("id").Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *GormStore) CreateDaily(ctx context.Context, d *models.DailyProgress) error {
	return translate(s.conn(ctx).Create(d).Error)
}

func (s *GormStore) LatestDaily(ctx context.Context, userID string) (*models.DailyProgress, error) {
	var d models.DailyProgress
	if err := s.conn(ctx).Where("user_id = ?", userID).Order("date DESC").First(&d).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (s *GormStore) DailyBetween(ctx context.Context, userID string, from, to time.Time) (*models.DailyProgress, error) {
	var d models.DailyProgress
	err := s.conn(ctx).
		Where("user_id = ? AND date >= ? AND date < ?", userID, from, to).
		Order("date DESC").
		First(&d).Error
	if err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (s *GormStore) MonthlyFor(ctx context.Context, userID, month string) (*models.MonthlyProgress, error) {
	var m models.MonthlyProgress
	if err := s.forUpdate(ctx).Where("user_id = ? AND month = ?", userID, month).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *GormStore) LatestMonthly(ctx context.Context, userID string) (*models.MonthlyProgress, error) {
	var m models.MonthlyProgress
	if err := s.conn(ctx).Where("user_id = ?", userID).Order("month DESC").First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *GormStore) SaveMonthly(ctx context.Context, m *models.MonthlyProgress) error {
	return translate(s.conn(ctx).Save(m).Error)
}

func (s *GormStore) RewardsFor(ctx context.Context, userID string) (*models.Rewards, error) {
	var r models.Rewards
	if err := s.forUpdate(ctx).Where("user_id = ?", userID).First(&r).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *GormStore) SaveRewards(ctx context.Context, r *models.Rewards) error {
	return translate(s.conn(ctx).Save(r).Error)
}

func (s *GormStore) InsuranceFor(ctx context.Context, userID string) ([]models.Insurance, error) {
	var out []models.Insurance
	if err := s.conn(ctx).Where("user_id = ?", userID).Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) CreateInsurance(ctx context.Context, p *models.Insurance) error {
	return translate(s.conn(ctx).Create(p).Error)
}
