package utils

import (
	"context"
	"time"

	"github.com/mojocn/base64Captcha"
)

var digitDriver = base64Captcha.NewDriverDigit(40, 120, 5, 0.7, 80)

// redisCaptchaStore implements base64Captcha.Store backed by Redis so captchas
// work across instances. It defers to the process memory store when Redis is absent.
type redisCaptchaStore struct {
	ttl      time.Duration
	fallback base64Captcha.Store
}

// NewCaptchaStore returns a store that prefers Redis.
func NewCaptchaStore(ttl time.Duration) base64Captcha.Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &redisCaptchaStore{ttl: ttl, fallback: base64Captcha.DefaultMemStore}
}

func (s *redisCaptchaStore) key(id string) string {
	return "captcha:" + id
}

// Set stores the captcha value with TTL.
func (s *redisCaptchaStore) Set(id string, value string) error {
	rc := GetRedis()
	if rc == nil {
		return s.fallback.Set(id, value)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return rc.Set(ctx, s.key(id), value, s.ttl).Err()
}

// Get retrieves the value and optionally clears it.
func (s *redisCaptchaStore) Get(id string, clear bool) string {
	rc := GetRedis()
	if rc == nil {
		return s.fallback.Get(id, clear)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if clear {
		v, err := rc.GetDel(ctx, s.key(id)).Result()
		if err != nil {
			return ""
		}
		return v
	}
	v, err := rc.Get(ctx, s.key(id)).Result()
	if err != nil {
		return ""
	}
	return v
}

// Verify compares answer and optionally clears it.
func (s *redisCaptchaStore) Verify(id, answer string, clear bool) bool {
	v := s.Get(id, clear)
	return v != "" && v == answer
}

// Captcha issues and checks digit captchas.
type Captcha struct {
	store base64Captcha.Store
}

// NewCaptcha returns a captcha service over store.
func NewCaptcha(store base64Captcha.Store) *Captcha {
	return &Captcha{store: store}
}

// Generate creates a captcha and returns (id, dataURI) for the client to display.
func (c *Captcha) Generate() (string, string, error) {
	id, b64, _, err := base64Captcha.NewCaptcha(digitDriver, c.store).Generate()
	return id, b64, err
}

// Verify checks the answer and consumes the captcha.
func (c *Captcha) Verify(id, answer string) bool {
	if id == "" || answer == "" {
		return false
	}
	return c.store.Verify(id, answer, true)
}
