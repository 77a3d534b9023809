package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cppla/fitquest/models"
)

// Memory is an in-process Repository for local runs without a database.
// Transactions work on a snapshot that replaces the live data on commit. Every write,
// inside or outside a transaction, holds txMu, so no write lands between snapshot and commit.
type Memory struct {
	mu   sync.RWMutex
	txMu *sync.Mutex
	data *memData
}

type memData struct {
	nextID   uint
	users    map[string]models.User
	daily    map[string][]models.DailyProgress
	monthly  map[string]map[string]models.MonthlyProgress
	rewards  map[string]models.Rewards
	policies map[string][]models.Insurance
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		txMu: &sync.Mutex{},
		data: &memData{
			users:    map[string]models.User{},
			daily:    map[string][]models.DailyProgress{},
			monthly:  map[string]map[string]models.MonthlyProgress{},
			rewards:  map[string]models.Rewards{},
			policies: map[string][]models.Insurance{},
		},
	}
}

func (d *memData) clone() *memData {
	out := &memData{
		nextID:   d.nextID,
		users:    make(map[string]models.User, len(d.users)),
		daily:    make(map[string][]models.DailyProgress, len(d.daily)),
		monthly:  make(map[string]map[string]models.MonthlyProgress, len(d.monthly)),
		rewards:  make(map[string]models.Rewards, len(d.rewards)),
		policies: make(map[string][]models.Insurance, len(d.policies)),
	}
	for k, u := range d.users {
		out.users[k] = cloneUser(u)
	}
	for k, list := range d.daily {
		cp := make([]models.DailyProgress, len(list))
		for i, dp := range list {
			cp[i] = cloneDaily(dp)
		}
		out.daily[k] = cp
	}
	for k, months := range d.monthly {
		cp := make(map[string]models.MonthlyProgress, len(months))
		for mk, m := range months {
			cp[mk] = cloneMonthly(m)
		}
		out.monthly[k] = cp
	}
	for k, r := range d.rewards {
		out.rewards[k] = cloneRewards(r)
	}
	for k, list := range d.policies {
		out.policies[k] = append([]models.Insurance(nil), list...)
	}
	return out
}

func (d *memData) id() uint {
	d.nextID++
	return d.nextID
}

func cloneUser(u models.User) models.User {
	if u.LastLogin != nil {
		t := *u.LastLogin
		u.LastLogin = &t
	}
	return u
}

func cloneDaily(d models.DailyProgress) models.DailyProgress {
	d.Tasks = append(d.Tasks[:0:0], d.Tasks...)
	return d
}

func cloneMonthly(m models.MonthlyProgress) models.MonthlyProgress {
	m.Days = append(m.Days[:0:0], m.Days...)
	return m
}

func cloneRewards(r models.Rewards) models.Rewards {
	r.Badges = append(r.Badges[:0:0], r.Badges...)
	return r
}

// lockWrite takes txMu then mu and returns the unlock.
func (m *Memory) lockWrite() func() {
	m.txMu.Lock()
	m.mu.Lock()
	return func() {
		m.mu.Unlock()
		m.txMu.Unlock()
	}
}

// Transaction implements Repository. fn must write through tx only; writing to m from
// inside fn blocks until the transaction ends.
func (m *Memory) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	snapshot := m.data.clone()
	m.mu.RUnlock()

	tx := &Memory{txMu: &sync.Mutex{}, data: snapshot}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.data = tx.data
	m.mu.Unlock()
	return nil
}

func (m *Memory) CreateUser(ctx context.Context, u *models.User) error {
	defer m.lockWrite()()
	for _, existing := range m.data.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	if err := u.BeforeCreate(nil); err != nil {
		return err
	}
	if _, ok := m.data.users[u.UserID]; ok {
		return ErrDuplicate
	}
	u.ID = m.data.id()
	m.data.users[u.UserID] = cloneUser(*u)
	return nil
}

func (m *Memory) UserByID(ctx context.Context, userID string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.data.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	u = cloneUser(u)
	return &u, nil
}

func (m *Memory) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.findUser(func(u models.User) bool { return u.Username == username })
}

func (m *Memory) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findUser(func(u models.User) bool { return u.Email == email })
}

func (m *Memory) findUser(match func(models.User) bool) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.data.users {
		if match(u) {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UsernameTaken(ctx context.Context, username string) (bool, error) {
	_, err := m.UserByUsername(ctx, username)
	return err == nil, nil
}

func (m *Memory) EmailTaken(ctx context.Context, email string) (bool, error) {
	_, err := m.UserByEmail(ctx, email)
	return err == nil, nil
}

func (m *Memory) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	return m.updateUser(userID, func(u *models.User) error {
		u.LastLogin = &at
		return nil
	})
}

func (m *Memory) UpdateUsername(ctx context.Context, userID, username string) error {
	return m.updateUser(userID, func(u *models.User) error {
		for id, other := range m.data.users {
			if id != userID && other.Username == username {
				return ErrDuplicate
			}
		}
		u.Username = username
		return nil
	})
}

func (m *Memory) updateUser(userID string, mutate func(*models.User) error) error {
	defer m.lockWrite()()
	u, ok := m.data.users[userID]
	if !ok {
		return ErrNotFound
	}
	if err := mutate(&u); err != nil {
		return err
	}
	u.UpdatedAt = time.Now()
	m.data.users[userID] = u
	return nil
}

func (m *Memory) ListUserIDs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]models.User, 0, len(m.data.users))
	for _, u := range m.data.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.UserID
	}
	return ids, nil
}

func (m *Memory) CreateDaily(ctx context.Context, d *models.DailyProgress) error {
	defer m.lockWrite()()
	d.Normalize()
	d.ID = m.data.id()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	m.data.daily[d.UserID] = append(m.data.daily[d.UserID], cloneDaily(*d))
	return nil
}

func (m *Memory) LatestDaily(ctx context.Context, userID string) (*models.DailyProgress, error) {
	return m.newestDaily(userID, func(models.DailyProgress) bool { return true })
}

func (m *Memory) DailyBetween(ctx context.Context, userID string, from, to time.Time) (*models.DailyProgress, error) {
	return m.newestDaily(userID, func(d models.DailyProgress) bool {
		return !d.Date.Before(from) && d.Date.Before(to)
	})
}

func (m *Memory) newestDaily(userID string, match func(models.DailyProgress) bool) (*models.DailyProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *models.DailyProgress
	for _, d := range m.data.daily[userID] {
		if !match(d) {
			continue
		}
		if best == nil || !d.Date.Before(best.Date) {
			cp := cloneDaily(d)
			best = &cp
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

func (m *Memory) MonthlyFor(ctx context.Context, userID, month string) (*models.MonthlyProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mp, ok := m.data.monthly[userID][month]
	if !ok {
		return nil, ErrNotFound
	}
	mp = cloneMonthly(mp)
	return &mp, nil
}

func (m *Memory) LatestMonthly(ctx context.Context, userID string) (*models.MonthlyProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest string
	for k := range m.data.monthly[userID] {
		if k > latest {
			latest = k
		}
	}
	if latest == "" {
		return nil, ErrNotFound
	}
	mp := cloneMonthly(m.data.monthly[userID][latest])
	return &mp, nil
}

func (m *Memory) SaveMonthly(ctx context.Context, mp *models.MonthlyProgress) error {
	defer m.lockWrite()()
	months := m.data.monthly[mp.UserID]
	if months == nil {
		months = map[string]models.MonthlyProgress{}
		m.data.monthly[mp.UserID] = months
	}
	if existing, ok := months[mp.Month]; ok && mp.ID == 0 {
		mp.ID = existing.ID
	}
	if mp.ID == 0 {
		mp.ID = m.data.id()
	}
	mp.UpdatedAt = time.Now()
	months[mp.Month] = cloneMonthly(*mp)
	return nil
}

func (m *Memory) RewardsFor(ctx context.Context, userID string) (*models.Rewards, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.data.rewards[userID]
	if !ok {
		return nil, ErrNotFound
	}
	r = cloneRewards(r)
	return &r, nil
}

func (m *Memory) SaveRewards(ctx context.Context, r *models.Rewards) error {
	defer m.lockWrite()()
	if existing, ok := m.data.rewards[r.UserID]; ok && r.ID == 0 {
		r.ID = existing.ID
	}
	if r.ID == 0 {
		r.ID = m.data.id()
	}
	r.UpdatedAt = time.Now()
	m.data.rewards[r.UserID] = cloneRewards(*r)
	return nil
}

func (m *Memory) InsuranceFor(ctx context.Context, userID string) ([]models.Insurance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Insurance{}, m.data.policies[userID]...), nil
}

func (m *Memory) CreateInsurance(ctx context.Context, p *models.Insurance) error {
	defer m.lockWrite()()
	p.ID = m.data.id()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	m.data.policies[p.UserID] = append(m.data.policies[p.UserID], *p)
	return nil
}
