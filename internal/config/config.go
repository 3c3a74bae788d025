package config

import (
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Postgres struct {
	Host     string
	Port     string
	DB       string
	User     string
	Password string
	SSLMode  string
}

type Kafka struct {
	Brokers []string
	Topic   string
	Group   string
	Workers int
}

type Cache struct {
	Size        int
	WarmWorkers int
}

// Miniapp configures the client session gateway. NativeUserID is non-zero
// when the process runs with a Telegram WebApp session and carries the
// platform-supplied identity.
type Miniapp struct {
	Addr            string
	BackendURL      string
	StateDir        string
	MinPhoneDigits  int
	DefaultLanguage string

	NativeUserID       int64
	NativeFirstName    string
	NativeLastName     string
	NativeUsername     string
	NativeLanguageCode string
}

// Guest configures the guest-identity allocator. FallbackID, if set, is the
// single preferred fabricated identity before random allocation kicks in.
type Guest struct {
	FallbackID int64
}

type Telegram struct {
	BotToken     string
	AdminChatIDs []int64
}

type Breaker struct {
	Threshold   uint32
	OpenTimeout time.Duration
	MaxHalfOpen uint32
}

type Retry struct {
	Attempts     int
	Base         time.Duration
	Max          time.Duration
	JitterFactor float64
}

type Config struct {
	APIAddr  string
	AdminIDs []int64

	Pg       Postgres
	Kafka    Kafka
	Cache    Cache
	Miniapp  Miniapp
	Guest    Guest
	Telegram Telegram
	Breaker  Breaker
	Retry    Retry
}

// Load fatals on error for simplicity in main().
func Load() Config {
	cfg, err := load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	return cfg
}

func load() (Config, error) {
	_ = godotenv.Load("env/.env")

	cfg := Config{
		APIAddr:  envDefault("API_ADDR", ":8080"),
		AdminIDs: envInt64List("ADMIN_TELEGRAM_IDS"),

		Pg: Postgres{
			Host:     envDefault("PG_HOST", "localhost"),
			Port:     envDefault("PG_PORT", "5432"),
			DB:       envDefault("PG_DB", "telegram_mini_app"),
			User:     envDefault("PG_USER", "postgres"),
			Password: envDefault("PG_PASSWORD", "postgres"),
			SSLMode:  envDefault("PG_SSLMODE", "disable"),
		},

		Kafka: Kafka{
			Brokers: splitCSV(envDefault("KAFKA_BROKERS", "localhost:9092")),
			Topic:   envDefault("KAFKA_TOPIC", "orders.created"),
			Group:   envDefault("KAFKA_GROUP", "order-notifier"),
			Workers: envInt("KAFKA_WORKERS", 4),
		},

		Cache: Cache{
			Size:        envInt("CACHE_SIZE", 256),
			WarmWorkers: envInt("CACHE_WARM_WORKERS", 4),
		},

		Miniapp: Miniapp{
			Addr:            envDefault("MINIAPP_ADDR", ":8081"),
			BackendURL:      envDefault("BACKEND_URL", "http://localhost:8080"),
			StateDir:        envDefault("MINIAPP_STATE_DIR", defaultStateDir()),
			MinPhoneDigits:  envInt("MIN_PHONE_DIGITS", 7),
			DefaultLanguage: envDefault("DEFAULT_LANGUAGE", "uz"),

			NativeUserID:       envInt64("TG_NATIVE_USER_ID", 0),
			NativeFirstName:    strings.TrimSpace(os.Getenv("TG_NATIVE_FIRST_NAME")),
			NativeLastName:     strings.TrimSpace(os.Getenv("TG_NATIVE_LAST_NAME")),
			NativeUsername:     strings.TrimSpace(os.Getenv("TG_NATIVE_USERNAME")),
			NativeLanguageCode: strings.TrimSpace(os.Getenv("TG_NATIVE_LANGUAGE_CODE")),
		},

		Guest: Guest{
			FallbackID: envInt64("FAKE_TELEGRAM_ID", 0),
		},

		Telegram: Telegram{
			BotToken:     strings.TrimSpace(os.Getenv("BOT_TOKEN")),
			AdminChatIDs: envInt64List("ADMIN_CHAT_IDS"),
		},

		Breaker: Breaker{
			Threshold:   envUint32("BREAKER_THRESHOLD", 5),
			OpenTimeout: envDurationMS("BREAKER_OPENTIMEOUT", 10*time.Second),
			MaxHalfOpen: envUint32("BREAKER_MAXHALFOPEN", 3),
		},

		Retry: Retry{
			Attempts:     envInt("RETRY_ATTEMPTS", 5),
			Base:         envDurationMS("RETRY_BASE", 100*time.Millisecond),
			Max:          envDurationMS("RETRY_MAX", 5*time.Second),
			JitterFactor: envFloat64("RETRY_JITTERFACTOR", 0.3),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Cache.Size <= 0 {
		log.Printf("CACHE_SIZE is %d, adjusting to 1", c.Cache.Size)
	}
	if c.Miniapp.MinPhoneDigits <= 0 {
		log.Printf("MIN_PHONE_DIGITS is %d, adjusting to 7", c.Miniapp.MinPhoneDigits)
	}
	if c.Retry.Attempts < 0 {
		log.Printf("RETRY_ATTEMPTS is %d, adjusting to 0", c.Retry.Attempts)
	}
	if c.Retry.Max < c.Retry.Base {
		log.Printf("RETRY_MAX (%v) < RETRY_BASE (%v), adjusting max to base", c.Retry.Max, c.Retry.Base)
	}
	if len(c.Kafka.Brokers) == 0 {
		return &missingEnvError{Keys: []string{"KAFKA_BROKERS"}}
	}
	return nil
}

// ValidateNotifier checks the envs only the notifier binary needs.
func (c Config) ValidateNotifier() error {
	var missing []string
	if c.Telegram.BotToken == "" {
		missing = append(missing, "BOT_TOKEN")
	}
	if len(c.Telegram.AdminChatIDs) == 0 {
		missing = append(missing, "ADMIN_CHAT_IDS")
	}
	if len(missing) > 0 {
		return &missingEnvError{Keys: missing}
	}
	return nil
}

type missingEnvError struct{ Keys []string }

func (e *missingEnvError) Error() string {
	return "missing required envs: " + strings.Join(e.Keys, ", ")
}

// DSN builds a proper Postgres URL, safely escaping user/pass and query.
func (c Config) DSN() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Pg.User, c.Pg.Password),
		Host:   net.JoinHostPort(c.Pg.Host, c.Pg.Port),
		Path:   "/" + c.Pg.DB,
	}
	q := url.Values{}
	if c.Pg.SSLMode != "" {
		q.Set("sslmode", c.Pg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".telegram-market"
	}
	return home + string(os.PathSeparator) + ".telegram-market"
}

func envDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d: %v", k, v, def, err)
		return def
	}
	return n
}

func envInt64(k string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d: %v", k, v, def, err)
		return def
	}
	return n
}

func envInt64List(k string) []int64 {
	var out []int64
	for _, p := range splitCSV(strings.TrimSpace(os.Getenv(k))) {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			log.Printf("invalid entry %q in %s, skipping: %v", p, k, err)
			continue
		}
		out = append(out, n)
	}
	return out
}

func envUint32(k string, def uint32) uint32 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	u, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d: %v", k, v, def, err)
		return def
	}
	return uint32(u)
}

func envFloat64(k string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("invalid %s=%q, using default %.3f: %v", k, v, def, err)
		return def
	}
	return f
}

// envDurationMS supports either plain integer milliseconds ("1500") or
// Go duration strings ("1.5s", "250ms", "2m").
func envDurationMS(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if strings.IndexFunc(v, func(r rune) bool { return r < '0' || r > '9' }) != -1 {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("invalid %s=%q, using default %v: %v", k, v, def, err)
			return def
		}
		return d
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %v: %v", k, v, def, err)
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
