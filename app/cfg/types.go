package cfg

import "time"

const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

type Cfg struct {
	// Storage configuration
	DBPath        string
	Store         string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Polling configuration
	Profile      string
	PollInterval int
	WorkerCount  int
	RateLimit    float64
	RetryMax     int
	UserAgent    string

	// Notification configuration
	TelegramToken  string
	TelegramChatID string
	TelegramAPIURL string

	// HTTP server configuration
	Port         string
	APIAccessKey string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}

func (c *Cfg) PollIntervalDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

// TelegramEnabled reports whether chat delivery is configured. Without it
// notifications are only logged.
func (c *Cfg) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}
