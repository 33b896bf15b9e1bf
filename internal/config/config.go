package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/kindrachel/Team-manager-MVP-bot-sub001/internal/utils"
)

const devJWTSecret = "teambot-dev-secret-change-me"

// DefaultSupportedTimezones are the Russian zones plus UTC.
var DefaultSupportedTimezones = []string{
	"Europe/Kaliningrad",
	"Europe/Moscow",
	"Europe/Samara",
	"Asia/Yekaterinburg",
	"Asia/Omsk",
	"Asia/Novosibirsk",
	"Asia/Krasnoyarsk",
	"Asia/Irkutsk",
	"Asia/Yakutsk",
	"Asia/Vladivostok",
	"Asia/Magadan",
	"Asia/Kamchatka",
	"UTC",
}

type Config struct {
	TelegramToken       string
	Addr                string `validate:"required"`
	DBDriver            string `validate:"oneof=sqlite3 postgres memory"`
	DBDSN               string `validate:"required_unless=DBDriver memory"`
	MigrationsDir       string
	JWTSecret           string   `validate:"required,min=16"`
	DefaultTimezone     string   `validate:"required,timezone"`
	SupportedTimezones  []string `validate:"required,min=1,dive,timezone"`
	DefaultOrganization string
	SurveyPoints        int     `validate:"min=1,max=100"`
	RatePerSecond       float64 `validate:"gt=0"`
	RateBurst           int     `validate:"min=1"`
	CORSOrigins         []string
	LogLevel            string `validate:"omitempty,oneof=debug info warn warning error"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
		logrus.Debug(".env file not found, using process environment")
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	driver := strings.ToLower(utils.SafeEnv("BOT_DB_DRIVER", "sqlite3"))
	dsn := utils.SafeEnv("BOT_DB_DSN", "")
	if dsn == "" && driver == "sqlite3" {
		dsn = "file:data/teambot.db?_busy_timeout=5000"
	}
	cfg := &Config{
		TelegramToken:       strings.TrimSpace(os.Getenv("BOT_TELEGRAM_TOKEN")),
		Addr:                utils.SafeEnv("BOT_ADDR", ":8080"),
		DBDriver:            driver,
		DBDSN:               dsn,
		MigrationsDir:       utils.SafeEnv("BOT_MIGRATIONS_DIR", ""),
		JWTSecret:           utils.SafeEnv("BOT_JWT_SECRET", devJWTSecret),
		DefaultTimezone:     utils.SafeEnv("BOT_DEFAULT_TIMEZONE", "Europe/Moscow"),
		SupportedTimezones:  utils.EnvList("BOT_SUPPORTED_TIMEZONES", DefaultSupportedTimezones),
		DefaultOrganization: strings.TrimSpace(os.Getenv("BOT_DEFAULT_ORGANIZATION")),
		SurveyPoints:        utils.EnvInt("BOT_SURVEY_POINTS", 10),
		RatePerSecond:       utils.EnvFloat("BOT_RATE_PER_SECOND", 1),
		RateBurst:           utils.EnvInt("BOT_RATE_BURST", 5),
		CORSOrigins:         utils.EnvList("BOT_CORS_ORIGINS", nil),
		LogLevel:            utils.SafeEnv("LOG_LEVEL", "info"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DevSecret reports whether the built-in development JWT secret is in use.
func (c *Config) DevSecret() bool { return c.JWTSecret == devJWTSecret }

// BotEnabled reports whether a Telegram token was configured.
func (c *Config) BotEnabled() bool { return c.TelegramToken != "" }
