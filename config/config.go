package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	TokenTTLHours      int
	LongTokenTTLHours  int
	RateLimitPerMinute int
	AllowedOrigins     []string
	AdminUsernames     []string
	// Admin accounts are reserved names; AdminPassword creates the missing ones at boot
	AdminPassword    string
	AdminEmailDomain string
	// Database: DBDriver is "mysql" or "memory"
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for caching, token blacklist and registration throttles
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Registration security
	RegisterCaptchaEnabled        bool
	RegisterMaxPerIPPerDay        int
	RegisterAttemptCooldownSec    int
	RegisterFailedMaxPerIPPerHour int
	RegisterTempBanMinutes        int
	// Text generation
	GeminiAPIKey     string
	GeminiModel      string
	GeminiPlansModel string
	GeminiTimeoutSec int
	// Nightly rollup
	RollupEnabled         bool
	RollupHour            int
	RollupMinute          int
	RollupTimeZone        string
	RollupBatchTimeoutMin int
	// Insurance plan catalog
	PlanCacheTTLMinutes int
	// Metrics endpoint basic auth; open when user is empty
	MetricsUser string
	MetricsPass string
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: .env -> config/config.json -> defaults -> environment variable overrides
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found")
	}

	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Fatalf("invalid config/config.json: %v", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// TokenTTL is the lifetime of tokens issued at register and login.
func (c AppConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

// LongTokenTTL is the lifetime of tokens issued for "remember me" logins.
func (c AppConfig) LongTokenTTL() time.Duration {
	return time.Duration(c.LongTokenTTLHours) * time.Hour
}

// GeminiTimeout bounds a single text-generation call.
func (c AppConfig) GeminiTimeout() time.Duration {
	return time.Duration(c.GeminiTimeoutSec) * time.Second
}

// RollupBatchTimeout bounds one full rollup run.
func (c AppConfig) RollupBatchTimeout() time.Duration {
	return time.Duration(c.RollupBatchTimeoutMin) * time.Minute
}

// PlanCacheTTL is how long a generated plan catalog is reused.
func (c AppConfig) PlanCacheTTL() time.Duration {
	return time.Duration(c.PlanCacheTTLMinutes) * time.Minute
}

// Location resolves RollupTimeZone; day numbers and month keys are computed in it.
func (c AppConfig) Location() *time.Location {
	if c.RollupTimeZone == "" || strings.EqualFold(c.RollupTimeZone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.RollupTimeZone)
	if err != nil {
		log.Printf("unknown time zone %q, using local: %v", c.RollupTimeZone, err)
		return time.Local
	}
	return loc
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads a grouped JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		out.TokenTTLHours = getInt(app, "TokenTTLHours")
		out.LongTokenTTLHours = getInt(app, "LongTokenTTLHours")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
		if list := getStringSlice(app, "AdminUsernames"); len(list) > 0 {
			out.AdminUsernames = list
		}
		out.AdminPassword = getString(app, "AdminPassword")
		out.AdminEmailDomain = getString(app, "AdminEmailDomain")
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DBDriver = getString(dbs, "Driver")
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		out.GinMode = getString(g, "Mode")
		out.GinPath = getString(g, "LogPath")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}

	if rg, ok := raw["register"].(map[string]any); ok {
		out.RegisterCaptchaEnabled = getBool(rg, "CaptchaEnabled")
		out.RegisterMaxPerIPPerDay = getInt(rg, "MaxPerIPPerDay")
		out.RegisterAttemptCooldownSec = getInt(rg, "AttemptCooldownSec")
		out.RegisterFailedMaxPerIPPerHour = getInt(rg, "FailedMaxPerIPPerHour")
		out.RegisterTempBanMinutes = getInt(rg, "TempBanMinutes")
	}

	if gm, ok := raw["gemini"].(map[string]any); ok {
		out.GeminiAPIKey = getString(gm, "APIKey")
		out.GeminiModel = getString(gm, "Model")
		out.GeminiPlansModel = getString(gm, "PlansModel")
		out.GeminiTimeoutSec = getInt(gm, "TimeoutSec")
	}

	if ru, ok := raw["rollup"].(map[string]any); ok {
		if b, ok := ru["Enabled"].(bool); ok {
			out.RollupEnabled = b
		} else {
			out.RollupEnabled = true
		}
		out.RollupHour = getInt(ru, "Hour")
		out.RollupMinute = getInt(ru, "Minute")
		out.RollupTimeZone = getString(ru, "TimeZone")
		out.RollupBatchTimeoutMin = getInt(ru, "BatchTimeoutMin")
	} else {
		out.RollupEnabled = true
	}

	if ins, ok := raw["insurance"].(map[string]any); ok {
		out.PlanCacheTTLMinutes = getInt(ins, "PlanCacheTTLMinutes")
	}

	if mt, ok := raw["metrics"].(map[string]any); ok {
		out.MetricsUser = getString(mt, "User")
		out.MetricsPass = getString(mt, "Pass")
	}

	// flat keys for the two values most often set by hand
	if v, ok := raw["AppPort"].(string); ok && out.AppPort == "" {
		out.AppPort = v
	}
	if v, ok := raw["JWTSecret"].(string); ok && out.JWTSecret == "" {
		out.JWTSecret = v
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "3000"
	}
	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = 24
	}
	if c.LongTokenTTLHours == 0 {
		c.LongTokenTTLHours = 7 * 24
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.AdminEmailDomain == "" {
		c.AdminEmailDomain = "localhost"
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "fitquest"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.RegisterMaxPerIPPerDay == 0 {
		c.RegisterMaxPerIPPerDay = 5
	}
	if c.RegisterAttemptCooldownSec == 0 {
		c.RegisterAttemptCooldownSec = 10
	}
	if c.RegisterFailedMaxPerIPPerHour == 0 {
		c.RegisterFailedMaxPerIPPerHour = 20
	}
	if c.RegisterTempBanMinutes == 0 {
		c.RegisterTempBanMinutes = 60
	}
	if c.GeminiModel == "" {
		c.GeminiModel = "gemini-2.5-flash"
	}
	if c.GeminiPlansModel == "" {
		c.GeminiPlansModel = c.GeminiModel
	}
	if c.GeminiTimeoutSec == 0 {
		c.GeminiTimeoutSec = 15
	}
	if c.RollupBatchTimeoutMin == 0 {
		c.RollupBatchTimeoutMin = 60
	}
	if c.PlanCacheTTLMinutes == 0 {
		c.PlanCacheTTLMinutes = 60
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("TOKEN_TTL_HOURS", ""); v != "" {
		c.TokenTTLHours = mustParseInt(v)
	}
	if v := getEnv("LONG_TOKEN_TTL_HOURS", ""); v != "" {
		c.LongTokenTTLHours = mustParseInt(v)
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v := getEnv("ADMIN_USERNAMES", ""); v != "" {
		c.AdminUsernames = splitAndTrim(v)
	}
	if v := getEnv("ADMIN_PASSWORD", ""); v != "" {
		c.AdminPassword = v
	}
	if v := getEnv("ADMIN_EMAIL_DOMAIN", ""); v != "" {
		c.AdminEmailDomain = v
	}
	if v := getEnv("DB_DRIVER", ""); v != "" {
		c.DBDriver = v
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	if v := getEnv("REGISTER_CAPTCHA_ENABLED", ""); v != "" {
		c.RegisterCaptchaEnabled = v == "true"
	}
	if v := getEnv("REGISTER_MAX_PER_IP_PER_DAY", ""); v != "" {
		c.RegisterMaxPerIPPerDay = mustParseInt(v)
	}
	if v := getEnv("REGISTER_ATTEMPT_COOLDOWN_SEC", ""); v != "" {
		c.RegisterAttemptCooldownSec = mustParseInt(v)
	}
	if v := getEnv("REGISTER_FAILED_MAX_PER_IP_PER_HOUR", ""); v != "" {
		c.RegisterFailedMaxPerIPPerHour = mustParseInt(v)
	}
	if v := getEnv("REGISTER_TEMP_BAN_MINUTES", ""); v != "" {
		c.RegisterTempBanMinutes = mustParseInt(v)
	}
	if v := getEnv("GEMINI_API_KEY", ""); v != "" {
		c.GeminiAPIKey = v
	}
	if v := getEnv("GEMINI_MODEL", ""); v != "" {
		c.GeminiModel = v
	}
	if v := getEnv("GEMINI_PLANS_MODEL", ""); v != "" {
		c.GeminiPlansModel = v
	}
	if v := getEnv("GEMINI_TIMEOUT_SEC", ""); v != "" {
		c.GeminiTimeoutSec = mustParseInt(v)
	}
	if v := getEnv("ROLLUP_ENABLED", ""); v != "" {
		c.RollupEnabled = v == "true"
	}
	if v := getEnv("ROLLUP_HOUR", ""); v != "" {
		c.RollupHour = mustParseInt(v)
	}
	if v := getEnv("ROLLUP_MINUTE", ""); v != "" {
		c.RollupMinute = mustParseInt(v)
	}
	if v := getEnv("ROLLUP_TIMEZONE", ""); v != "" {
		c.RollupTimeZone = v
	}
	if v := getEnv("ROLLUP_BATCH_TIMEOUT_MIN", ""); v != "" {
		c.RollupBatchTimeoutMin = mustParseInt(v)
	}
	if v := getEnv("PLAN_CACHE_TTL_MINUTES", ""); v != "" {
		c.PlanCacheTTLMinutes = mustParseInt(v)
	}
	if v := getEnv("METRICS_USER", ""); v != "" {
		c.MetricsUser = v
	}
	if v := getEnv("METRICS_PASS", ""); v != "" {
		c.MetricsPass = v
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
