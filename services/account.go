package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/cppla/fitquest/models"
	"github.com/cppla/fitquest/store"
	"github.com/cppla/fitquest/utils"
)

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginInput identifies the user by username or email.
type LoginInput struct {
	Username string
	Email    string
	Password string
	Remember bool
}

// AccountService handles registration, login and username changes.
type AccountService struct {
	repo     store.Repository
	planner  *Planner
	tokens   *utils.TokenIssuer
	ttl      time.Duration
	longTTL  time.Duration
	logger   *zap.Logger
	now      func() time.Time
	reserved []string
}

// NewAccountService wires the account flows. ttl applies to normal tokens, longTTL to "remember me".
func NewAccountService(repo store.Repository, planner *Planner, tokens *utils.TokenIssuer, ttl, longTTL time.Duration, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		repo:    repo,
		planner: planner,
		tokens:  tokens,
		ttl:     ttl,
		longTTL: longTTL,
		logger:  logger,
		now:     time.Now,
	}
}

// ReserveUsernames keeps names away from self-service registration and renames.
// Matching is case-insensitive. Admin usernames are reserved this way.
func (s *AccountService) ReserveUsernames(names ...string) {
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			s.reserved = append(s.reserved, strings.ToLower(n))
		}
	}
}

func (s *AccountService) isReserved(username string) bool {
	return lo.Contains(s.reserved, strings.ToLower(username))
}

// ProvisionReserved creates an account for every reserved name nobody holds yet, with
// password and the address <name>@<emailDomain>. It returns how many were created.
func (s *AccountService) ProvisionReserved(ctx context.Context, password, emailDomain string) (int, error) {
	created := 0
	for _, name := range s.reserved {
		taken, err := s.repo.UsernameTaken(ctx, name)
		if err != nil {
			return created, fmt.Errorf("check username: %w", err)
		}
		if taken {
			continue
		}
		in := RegisterInput{Username: name, Email: name + "@" + emailDomain, Password: password}
		if _, err := s.register(ctx, in, true); err != nil {
			return created, fmt.Errorf("provision %s: %w", name, err)
		}
		created++
	}
	return created, nil
}

func validateUsername(username string) error {
	if n := len([]rune(username)); n < 3 || n > 64 {
		return invalid("username must be 3-64 characters")
	}
	return nil
}

func (in RegisterInput) validate() error {
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return invalid("username, email and password are required")
	}
	if err := validateUsername(in.Username); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(in.Email); err != nil || !strings.Contains(in.Email, "@") {
		return invalid("invalid email address")
	}
	if len(in.Password) < 6 {
		return invalid("password must be at least 6 characters")
	}
	return nil
}

// Register creates the user and seeds day zero, a 30-day month and rewards in one transaction.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	return s.register(ctx, in, false)
}

func (s *AccountService) register(ctx context.Context, in RegisterInput, allowReserved bool) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := in.validate(); err != nil {
		return nil, err
	}
	if !allowReserved && s.isReserved(in.Username) {
		return nil, errUsernameReserved
	}

	if taken, err := s.repo.EmailTaken(ctx, in.Email); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	} else if taken {
		return nil, ErrEmailTaken
	}
	if taken, err := s.repo.UsernameTaken(ctx, in.Username); err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	} else if taken {
		return nil, ErrUsernameTaken
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// Plan before the transaction so the generator call holds no lock
	now := s.now()
	user := &models.User{UserID: uuid.NewString(), Username: in.Username, Email: in.Email, PasswordHash: hash}
	daily := s.planner.PlanDay(ctx, user.UserID, now)
	monthly := s.planner.SeedMonth(user.UserID, now)

	err = s.repo.Transaction(ctx, func(tx store.Repository) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		return seed(ctx, tx, daily, monthly)
	})
	if errors.Is(err, store.ErrDuplicate) {
		// lost a race with a concurrent registration
		if taken, _ := s.repo.EmailTaken(ctx, in.Email); taken {
			return nil, ErrEmailTaken
		}
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.UserID), zap.String("username", user.Username))
	return s.issue(user, s.ttl)
}

func seed(ctx context.Context, tx store.Repository, daily *models.DailyProgress, monthly *models.MonthlyProgress) error {
	if err := tx.CreateDaily(ctx, daily); err != nil {
		return fmt.Errorf("seed daily: %w", err)
	}
	if err := tx.SaveMonthly(ctx, monthly); err != nil {
		return fmt.Errorf("seed monthly: %w", err)
	}
	rewards := models.NewRewards(daily.UserID)
	ApplyDailyRewards(rewards, daily.Tasks, monthly.Days)
	if err := tx.SaveRewards(ctx, rewards); err != nil {
		return fmt.Errorf("seed rewards: %w", err)
	}
	return nil
}

// Login verifies the password of the user named by username or email and records the login time.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if in.Password == "" || (strings.TrimSpace(in.Username) == "" && strings.TrimSpace(in.Email) == "") {
		return nil, invalid("username or email and password are required")
	}

	var (
		user *models.User
		err  error
	)
	if in.Username != "" {
		user, err = s.repo.UserByUsername(ctx, strings.TrimSpace(in.Username))
	} else {
		user, err = s.repo.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !utils.CheckPassword(user.PasswordHash, in.Password) {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	if err := s.repo.TouchLastLogin(ctx, user.UserID, now); err != nil {
		s.logger.Warn("failed to record last login", zap.String("user_id", user.UserID), zap.Error(err))
	} else {
		user.LastLogin = &now
	}

	ttl := s.ttl
	if in.Remember {
		ttl = s.longTTL
	}
	return s.issue(user, ttl)
}

// UpdateUsername renames the user after checking the new name is free.
func (s *AccountService) UpdateUsername(ctx context.Context, userID, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	user, err := s.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Username == username {
		return user, nil
	}
	if s.isReserved(username) {
		return nil, errUsernameReserved
	}
	if taken, err := s.repo.UsernameTaken(ctx, username); err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	} else if taken {
		return nil, ErrUsernameTaken
	}
	switch err := s.repo.UpdateUsername(ctx, userID, username); {
	case errors.Is(err, store.ErrDuplicate):
		return nil, ErrUsernameTaken
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("update username: %w", err)
	}
	user.Username = username
	return user, nil
}

// User loads a user by public id.
func (s *AccountService) User(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.UserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *AccountService) issue(user *models.User, ttl time.Duration) (*AuthResult, error) {
	token, expires, err := s.tokens.Issue(user.UserID, user.Username, user.Email, ttl)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Token: token, ExpiresAt: expires, User: user}, nil
}
