package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Academic    AcademicConfig
	Windows     WindowsConfig
	Correlative CorrelativityConfig
	Eligibility EligibilityConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AcademicConfig holds the institutional grading rules.
type AcademicConfig struct {
	RegularityValidityDays int
	PassingGrade           float64
	// Location is the institution's time zone; calendar days and academic years are read in it.
	Location *time.Location
}

// Window is an optional open/close pair used when the configuration table has no override.
type Window struct {
	OpensAt  *time.Time
	ClosesAt *time.Time
}

// Contains reports whether t falls inside the window. A window with neither bound is closed.
func (w Window) Contains(t time.Time) bool {
	if w.OpensAt == nil && w.ClosesAt == nil {
		return false
	}
	if w.OpensAt != nil && t.Before(*w.OpensAt) {
		return false
	}
	if w.ClosesAt != nil && t.After(*w.ClosesAt) {
		return false
	}
	return true
}

// WindowsConfig carries fallback enrollment windows.
type WindowsConfig struct {
	SubjectEnrollment Window
	ExamSignup        Window
}

// CorrelativityConfig tunes caching of the prerequisite graph.
type CorrelativityConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// EligibilityConfig bounds the per-plan eligibility fan-out.
type EligibilityConfig struct {
	Concurrency int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Academic = AcademicConfig{
		RegularityValidityDays: v.GetInt("REGULARITY_VALIDITY_DAYS"),
		PassingGrade:           v.GetFloat64("PASSING_GRADE"),
		Location:               parseLocation(v.GetString("ACADEMIC_TZ")),
	}

	cfg.Windows = WindowsConfig{
		SubjectEnrollment: Window{
			OpensAt:  parseTime(v.GetString("ENROLLMENT_WINDOW_OPENS_AT")),
			ClosesAt: parseTime(v.GetString("ENROLLMENT_WINDOW_CLOSES_AT")),
		},
		ExamSignup: Window{
			OpensAt:  parseTime(v.GetString("EXAM_WINDOW_OPENS_AT")),
			ClosesAt: parseTime(v.GetString("EXAM_WINDOW_CLOSES_AT")),
		},
	}

	cfg.Correlative = CorrelativityConfig{
		CacheEnabled: v.GetBool("CORRELATIVITY_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("CORRELATIVITY_CACHE_TTL"), 15*time.Minute),
	}

	cfg.Eligibility = EligibilityConfig{
		Concurrency: v.GetInt("ELIGIBILITY_CONCURRENCY"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "ipes_academic")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "ipes-academic")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("REGULARITY_VALIDITY_DAYS", 730)
	v.SetDefault("PASSING_GRADE", 6)
	v.SetDefault("ACADEMIC_TZ", "America/Argentina/Buenos_Aires")

	v.SetDefault("ENROLLMENT_WINDOW_OPENS_AT", "")
	v.SetDefault("ENROLLMENT_WINDOW_CLOSES_AT", "")
	v.SetDefault("EXAM_WINDOW_OPENS_AT", "")
	v.SetDefault("EXAM_WINDOW_CLOSES_AT", "")

	v.SetDefault("CORRELATIVITY_CACHE_ENABLED", false)
	v.SetDefault("CORRELATIVITY_CACHE_TTL", "15m")
	v.SetDefault("ELIGIBILITY_CONCURRENCY", 4)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func parseLocation(raw string) *time.Location {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(raw)
	if err != nil {
		return time.UTC
	}
	return loc
}

func parseTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
