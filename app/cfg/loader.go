package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath        string `long:"db-path" env:"DB_PATH" default:"./data/rent-comb.db" description:"SQLite database file"`
	Store         string `long:"store" env:"STORE" default:"sqlite" choice:"sqlite" choice:"redis" description:"Durable store backend"`
	RedisAddr     string `long:"redis-addr" env:"REDIS_ADDR" default:"localhost:6379" description:"Redis address (store=redis)"`
	RedisPassword string `long:"redis-password" env:"REDIS_PASSWORD" description:"Redis password"`
	RedisDB       int    `long:"redis-db" env:"REDIS_DB" default:"0" description:"Redis database number"`

	// Polling configuration
	Profile      string  `long:"profile" env:"PROFILE" default:"./profiles/riga.yml" description:"Search profile YAML file"`
	PollInterval int     `long:"poll-interval" env:"POLL_INTERVAL" default:"600" description:"Seconds between the end of one poll cycle and the start of the next"`
	WorkerCount  int     `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Concurrent detail page fetches"`
	RateLimit    float64 `long:"rate-limit" env:"RATE_LIMIT" default:"2" description:"Detail requests per second (0 for unlimited)"`
	RetryMax     int     `long:"retry-max" env:"RETRY_MAX" default:"3" description:"Retries per HTTP request"`
	UserAgent    string  `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0" description:"User agent string for HTTP requests"`

	// Notification configuration
	TelegramToken  string `long:"telegram-token" env:"TELEGRAM_TOKEN" description:"Telegram bot token (notifications are logged when unset)"`
	TelegramChatID string `long:"telegram-chat-id" env:"TELEGRAM_CHAT_ID" description:"Telegram chat to notify"`
	TelegramAPIURL string `long:"telegram-api-url" env:"TELEGRAM_API_URL" default:"https://api.telegram.org" description:"Telegram Bot API base URL"`

	// HTTP server configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Riga)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load reads .env (if present), then flags and environment.
func Load() (*Cfg, error) {
	if err := loadEnvFile(".env"); err != nil {
		return nil, err
	}
	return load(os.Args[1:])
}

func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:         raw.DBPath,
		Store:          raw.Store,
		RedisAddr:      raw.RedisAddr,
		RedisPassword:  raw.RedisPassword,
		RedisDB:        raw.RedisDB,
		Profile:        raw.Profile,
		PollInterval:   raw.PollInterval,
		WorkerCount:    raw.WorkerCount,
		RateLimit:      raw.RateLimit,
		RetryMax:       raw.RetryMax,
		UserAgent:      raw.UserAgent,
		TelegramToken:  raw.TelegramToken,
		TelegramChatID: raw.TelegramChatID,
		TelegramAPIURL: raw.TelegramAPIURL,
		Port:           raw.Port,
		APIAccessKey:   raw.APIAccessKey,
		Timezone:       raw.Timezone,
		Debug:          raw.Debug,
		Version:        GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", cfg.Timezone, "error", err)
	}

	globalCfg = cfg

	return cfg, nil
}

func validate(cfg *Cfg) error {
	if cfg.PollInterval < 1 {
		return fmt.Errorf("poll interval must be positive, got %d", cfg.PollInterval)
	}
	if cfg.WorkerCount < 1 {
		return fmt.Errorf("worker count must be positive, got %d", cfg.WorkerCount)
	}
	if cfg.RateLimit < 0 {
		return fmt.Errorf("rate limit must be non-negative, got %v", cfg.RateLimit)
	}
	if cfg.RetryMax < 0 {
		return fmt.Errorf("retry max must be non-negative, got %d", cfg.RetryMax)
	}
	if (cfg.TelegramToken == "") != (cfg.TelegramChatID == "") {
		return fmt.Errorf("telegram token and chat id must be set together")
	}
	return nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			slog.Debug("Timezone configured", "timezone", timezone)
		}
	}
	return nil
}
