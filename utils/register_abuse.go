package utils

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/fitquest/config"
)

// RegisterGuard throttles registrations per client IP using Redis counters.
// Every check fails open when Redis is absent or erroring.
type RegisterGuard struct {
	Cooldown      time.Duration
	MaxPerDay     int
	FailedPerHour int
	BanFor        time.Duration
	client        func() *redis.Client
}

// NewRegisterGuard builds a guard from the register section of the config.
func NewRegisterGuard(cfg config.AppConfig) *RegisterGuard {
	return &RegisterGuard{
		Cooldown:      time.Duration(cfg.RegisterAttemptCooldownSec) * time.Second,
		MaxPerDay:     cfg.RegisterMaxPerIPPerDay,
		FailedPerHour: cfg.RegisterFailedMaxPerIPPerHour,
		BanFor:        time.Duration(cfg.RegisterTempBanMinutes) * time.Minute,
		client:        GetRedis,
	}
}

func regKey(parts ...string) string {
	return "reg:" + strings.Join(parts, ":")
}

func (g *RegisterGuard) redis() *redis.Client {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client()
}

// CooldownTry enforces a short cooldown between attempts per IP.
func (g *RegisterGuard) CooldownTry(ctx context.Context, ip string) bool {
	cli := g.redis()
	if cli == nil || g.Cooldown <= 0 {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	ok, err := cli.SetNX(ctx, regKey("cooldown", ip), "1", g.Cooldown).Result()
	if err != nil {
		return true
	}
	return ok
}

// DailyLimitCheck allows up to MaxPerDay successful registrations per day per IP.
func (g *RegisterGuard) DailyLimitCheck(ctx context.Context, ip string) bool {
	cli := g.redis()
	if cli == nil || g.MaxPerDay <= 0 {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	n, err := cli.Get(ctx, regKey("succday", ip, time.Now().Format("20060102"))).Int()
	if err == redis.Nil {
		n = 0
	} else if err != nil {
		return true
	}
	return n < g.MaxPerDay
}

// DailyIncrement increments the success counter for today.
func (g *RegisterGuard) DailyIncrement(ctx context.Context, ip string) {
	cli := g.redis()
	if cli == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	key := regKey("succday", ip, time.Now().Format("20060102"))
	if err := cli.Incr(ctx, key).Err(); err == nil {
		_ = cli.Expire(ctx, key, 24*time.Hour).Err()
	}
}

// RecordFailure counts a failed attempt and bans the IP once FailedPerHour is reached.
func (g *RegisterGuard) RecordFailure(ctx context.Context, ip string) {
	cli := g.redis()
	if cli == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	key := regKey("failhour", ip, time.Now().Format("2006010215"))
	n, err := cli.Incr(ctx, key).Result()
	if err != nil {
		return
	}
	_ = cli.Expire(ctx, key, time.Hour).Err()
	if g.FailedPerHour > 0 && int(n) >= g.FailedPerHour {
		ban := g.BanFor
		if ban <= 0 {
			ban = time.Hour
		}
		_ = cli.Set(ctx, regKey("ban", ip), "1", ban).Err()
	}
}

// IsBanned checks temporary ban status for IP.
func (g *RegisterGuard) IsBanned(ctx context.Context, ip string) bool {
	cli := g.redis()
	if cli == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	exists, err := cli.Exists(ctx, regKey("ban", ip)).Result()
	if err != nil {
		return false
	}
	return exists > 0
}
