package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/fitquest/models"
)

func newMockStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	return NewGormStore(db), mock
}

func TestGormCreateUser(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users`").WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	u := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	assert.NotEmpty(t, u.UserID)
	assert.EqualValues(t, 7, u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCreateUserDuplicate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users`").
		WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'alice' for key 'idx_users_username'"})
	mock.ExpectRollback()

	err := s.CreateUser(context.Background(), &models.User{Username: "alice", Email: "a@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserByUsername(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "user_id", "username", "email", "password_hash"}).
		AddRow(1, "u-1", "alice", "alice@example.com", "hash")
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE username = \\?").WillReturnRows(rows)

	u, err := s.UserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.UserID)
	assert.Equal(t, "hash", u.PasswordHash)
}

func TestGormUserNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT \\* FROM `users` WHERE user_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}))

	_, err := s.UserByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormEmailTaken(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users` WHERE email = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	taken, err := s.EmailTaken(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestGormListUserIDs(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT `user_id` FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u-1").AddRow("u-2"))

	ids, err := s.ListUserIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"u-1", "u-2"}, ids)
}

func TestGormMonthlyForDecodesDays(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "user_id", "month", "days"}).
		AddRow(3, "u-1", "2025-10", `[{"day":1,"completedTasks":2,"percentage":40},{"day":2,"completedTasks":5,"percentage":100}]`)
	mock.ExpectQuery("SELECT \\* FROM `monthly_progress` WHERE user_id = \\? AND month = \\?").WillReturnRows(rows)

	m, err := s.MonthlyFor(context.Background(), "u-1", "2025-10")
	require.NoError(t, err)
	require.Len(t, m.Days, 2)
	assert.Equal(t, 100, m.Days[1].Percentage)
}

func TestGormTransactionLocksRows(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `user_rewards` WHERE user_id = \\? .*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "credits", "badges"}).AddRow(1, "u-1", 15, `["a"]`))
	mock.ExpectCommit()

	err := s.Transaction(context.Background(), func(tx Repository) error {
		r, err := tx.RewardsFor(context.Background(), "u-1")
		if err != nil {
			return err
		}
		assert.Equal(t, 15, r.Credits)
		assert.True(t, r.HasBadge("a"))
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
