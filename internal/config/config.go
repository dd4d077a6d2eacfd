// Package config собирает конфигурацию сервера из нескольких слоев:
// значения по умолчанию, YAML-файл, .env-файл, переменные окружения и флаги.
// Каждый следующий слой перекрывает предыдущий.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Окружения.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Драйверы хранилищ.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMinio    = "minio"
)

// MinSessionSecretLen - минимальная длина секрета подписи cookie.
const MinSessionSecretLen = 32

// Переменные окружения.
const (
	envEnv              = "FLOWKEEPER_ENV"
	envAddr             = "FLOWKEEPER_ADDR"
	envLogLevel         = "FLOWKEEPER_LOG_LEVEL"
	envStorage          = "FLOWKEEPER_STORAGE"
	envMigrate          = "FLOWKEEPER_MIGRATE"
	envDatabaseDSN      = "DATABASE_DSN"
	envSessions         = "FLOWKEEPER_SESSIONS"
	envRedisAddr        = "REDIS_ADDR"
	envRedisPassword    = "REDIS_PASSWORD" //nolint:gosec // имя переменной окружения
	envSessionSecret    = "FLOWKEEPER_SESSION_SECRET"
	envSessionTTL       = "FLOWKEEPER_SESSION_TTL"
	envCookieSecure     = "FLOWKEEPER_COOKIE_SECURE"
	envObjects          = "FLOWKEEPER_OBJECTS"
	envMinioEndpoint    = "MINIO_ENDPOINT"
	envMinioUser        = "MINIO_USER"
	envMinioPassword    = "MINIO_PASSWORD" //nolint:gosec // имя переменной окружения
	envMinioBucket      = "MINIO_BUCKET"
	envMinioSSL         = "MINIO_USE_SSL"
	envOpenAIKey        = "OPENAI_API_KEY"
	envOpenAIModel      = "OPENAI_MODEL"
	envElevenLabsKey    = "ELEVENLABS_API_KEY"
	envElevenLabsURL    = "ELEVENLABS_BASE_URL"
	envStripeKey        = "STRIPE_SECRET_KEY"
	envStripeWebhook    = "STRIPE_WEBHOOK_SECRET" //nolint:gosec // имя переменной окружения
	envStripePriceID    = "STRIPE_PRICE_ID"
	envMQURL            = "MQ_URL"
	envMQExchange       = "MQ_EXCHANGE"
	envAuthRateLimitRPS = "FLOWKEEPER_AUTH_RPS"
)

// Config - полная конфигурация сервера.
type Config struct {
	Env       string          `yaml:"env"`
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Storage   StorageConfig   `yaml:"storage"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Objects   ObjectsConfig   `yaml:"objects"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	ElevenLab ElevenLabConfig `yaml:"elevenlabs"`
	Stripe    StripeConfig    `yaml:"stripe"`
	MQ        MQConfig        `yaml:"mq"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// HTTPConfig - параметры HTTP-сервера.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig - параметры логирования.
type LogConfig struct {
	Level string `yaml:"level"`
}

// StorageConfig - основное хранилище данных.
type StorageConfig struct {
	Driver  string `yaml:"driver"`
	DSN     string `yaml:"dsn"`
	Migrate bool   `yaml:"migrate"`
}

// SessionsConfig - хранилище сессий и параметры cookie.
type SessionsConfig struct {
	Driver        string        `yaml:"driver"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	Secret        string        `yaml:"secret"`
	TTL           time.Duration `yaml:"ttl"`
	CookieName    string        `yaml:"cookie_name"`
	CookieSecure  bool          `yaml:"cookie_secure"`
	PurgeSchedule string        `yaml:"purge_schedule"`

	// SecretGenerated выставляется, если секрет сгенерирован при запуске.
	SecretGenerated bool `yaml:"-"`
}

// ObjectsConfig - объектное хранилище аудио.
type ObjectsConfig struct {
	Driver    string `yaml:"driver"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// OpenAIConfig - интеграция с OpenAI.
type OpenAIConfig struct {
	APIKey          string `yaml:"api_key"`
	Model           string `yaml:"model"`
	TranscribeModel string `yaml:"transcribe_model"`
}

// ElevenLabConfig - интеграция с ElevenLabs.
type ElevenLabConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	ModelID string `yaml:"model_id"`
}

// StripeConfig - интеграция со Stripe.
type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	PriceID       string `yaml:"price_id"`
	Currency      string `yaml:"currency"`
}

// MQConfig - публикация доменных событий в RabbitMQ.
type MQConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

// RateLimitConfig - ограничение частоты запросов входа и регистрации по IP.
type RateLimitConfig struct {
	AuthRPS   float64 `yaml:"auth_rps"`
	AuthBurst int     `yaml:"auth_burst"`
}

// Default возвращает конфигурацию по умолчанию для локальной разработки.
func Default() *Config {
	return &Config{
		Env: EnvDevelopment,
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log:     LogConfig{Level: "info"},
		Storage: StorageConfig{Driver: DriverMemory, Migrate: true},
		Sessions: SessionsConfig{
			Driver:        DriverMemory,
			RedisAddr:     "localhost:6379",
			TTL:           7 * 24 * time.Hour,
			CookieName:    "flowkeeper_session",
			PurgeSchedule: "@every 10m",
		},
		Objects: ObjectsConfig{
			Driver:    DriverMemory,
			Endpoint:  "localhost:9000",
			AccessKey: "minioadmin",
			SecretKey: "minioadmin",
			Bucket:    "flowkeeper-audio",
		},
		OpenAI:    OpenAIConfig{Model: "gpt-4o-mini", TranscribeModel: "whisper-1"},
		ElevenLab: ElevenLabConfig{BaseURL: "https://api.elevenlabs.io", ModelID: "eleven_multilingual_v2"},
		Stripe:    StripeConfig{Currency: "usd"},
		MQ:        MQConfig{Exchange: "flowkeeper.events"},
		RateLimit: RateLimitConfig{AuthRPS: 1, AuthBurst: 5},
	}
}

// Load разбирает аргументы командной строки и собирает конфигурацию.
// args - аргументы без имени программы (os.Args[1:]).
func Load(args []string) (*Config, error) {
	cfg := Default()

	fset := flag.NewFlagSet("flowkeeper", flag.ContinueOnError)
	fset.SetOutput(io.Discard)
	var (
		configPath = fset.String("config", "", "Путь к YAML-файлу конфигурации")
		envFile    = fset.String("env-file", ".env", "Путь к .env-файлу")
		env        = fset.String("env", "", fmt.Sprintf("Окружение: development|production (env: %s)", envEnv))
		addr       = fset.String("addr", "", fmt.Sprintf("Адрес HTTP-сервера (env: %s)", envAddr))
		logLevel   = fset.String("log-level", "", fmt.Sprintf("Уровень логирования (env: %s)", envLogLevel))
		storage    = fset.String("storage", "", fmt.Sprintf("Хранилище: memory|postgres (env: %s)", envStorage))
		dsn        = fset.String("database-dsn", "", fmt.Sprintf("Строка подключения к БД (env: %s)", envDatabaseDSN))
		sessions   = fset.String("sessions", "", fmt.Sprintf("Хранилище сессий: memory|redis (env: %s)", envSessions))
		redisAddr  = fset.String("redis-addr", "", fmt.Sprintf("Адрес Redis (env: %s)", envRedisAddr))
		objects    = fset.String("objects", "", fmt.Sprintf("Объектное хранилище: memory|minio (env: %s)", envObjects))
	)
	if err := fset.Parse(args); err != nil {
		return nil, fmt.Errorf("ошибка разбора флагов: %w", err)
	}

	if *configPath != "" {
		if err := cfg.loadYAML(*configPath); err != nil {
			return nil, err
		}
	}

	// .env не перекрывает уже заданные переменные окружения
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("ошибка чтения %s: %w", *envFile, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	// Флаги применяем только если они явно заданы
	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "env":
			cfg.Env = *env
		case "addr":
			cfg.HTTP.Addr = *addr
		case "log-level":
			cfg.Log.Level = *logLevel
		case "storage":
			cfg.Storage.Driver = *storage
		case "database-dsn":
			cfg.Storage.DSN = *dsn
		case "sessions":
			cfg.Sessions.Driver = *sessions
		case "redis-addr":
			cfg.Sessions.RedisAddr = *redisAddr
		case "objects":
			cfg.Objects.Driver = *objects
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("ошибка разбора файла конфигурации %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Env, envEnv)
	setString(&c.HTTP.Addr, envAddr)
	setString(&c.Log.Level, envLogLevel)
	setString(&c.Storage.Driver, envStorage)
	setString(&c.Storage.DSN, envDatabaseDSN)
	setString(&c.Sessions.Driver, envSessions)
	setString(&c.Sessions.RedisAddr, envRedisAddr)
	setString(&c.Sessions.RedisPassword, envRedisPassword)
	setString(&c.Sessions.Secret, envSessionSecret)
	setString(&c.Objects.Driver, envObjects)
	setString(&c.Objects.Endpoint, envMinioEndpoint)
	setString(&c.Objects.AccessKey, envMinioUser)
	setString(&c.Objects.SecretKey, envMinioPassword)
	setString(&c.Objects.Bucket, envMinioBucket)
	setString(&c.OpenAI.APIKey, envOpenAIKey)
	setString(&c.OpenAI.Model, envOpenAIModel)
	setString(&c.ElevenLab.APIKey, envElevenLabsKey)
	setString(&c.ElevenLab.BaseURL, envElevenLabsURL)
	setString(&c.Stripe.SecretKey, envStripeKey)
	setString(&c.Stripe.WebhookSecret, envStripeWebhook)
	setString(&c.Stripe.PriceID, envStripePriceID)
	setString(&c.MQ.URL, envMQURL)
	setString(&c.MQ.Exchange, envMQExchange)

	if v, ok := os.LookupEnv(envSessionTTL); ok {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("неверное значение %s: %w", envSessionTTL, err)
		}
		c.Sessions.TTL = ttl
	}
	for name, dst := range map[string]*bool{
		envMigrate:      &c.Storage.Migrate,
		envCookieSecure: &c.Sessions.CookieSecure,
		envMinioSSL:     &c.Objects.UseSSL,
	} {
		if v, ok := os.LookupEnv(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("неверное значение %s: %w", name, err)
			}
			*dst = b
		}
	}
	if v, ok := os.LookupEnv(envAuthRateLimitRPS); ok {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("неверное значение %s: %w", envAuthRateLimitRPS, err)
		}
		c.RateLimit.AuthRPS = rps
	}
	return nil
}

// Validate проверяет согласованность конфигурации.
// В окружении development при пустом секрете генерирует случайный.
func (c *Config) Validate() error {
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return fmt.Errorf("неизвестное окружение %q", c.Env)
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return errors.New("не указана строка подключения к БД (--database-dsn или " + envDatabaseDSN + ")")
		}
	default:
		return fmt.Errorf("неизвестное хранилище %q", c.Storage.Driver)
	}

	switch c.Sessions.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.Sessions.RedisAddr == "" {
			return errors.New("не указан адрес Redis (--redis-addr или " + envRedisAddr + ")")
		}
	default:
		return fmt.Errorf("неизвестное хранилище сессий %q", c.Sessions.Driver)
	}

	switch c.Objects.Driver {
	case DriverMemory:
	case DriverMinio:
		if c.Objects.Endpoint == "" || c.Objects.Bucket == "" {
			return errors.New("для MinIO нужны endpoint и bucket")
		}
	default:
		return fmt.Errorf("неизвестное объектное хранилище %q", c.Objects.Driver)
	}

	if c.Sessions.TTL <= 0 {
		return errors.New("время жизни сессии должно быть положительным")
	}

	if len(c.Sessions.Secret) < MinSessionSecretLen {
		if c.Sessions.Secret != "" || c.Env != EnvDevelopment {
			return fmt.Errorf("секрет сессий должен быть не короче %d байт (%s)", MinSessionSecretLen, envSessionSecret)
		}
		secret, err := randomSecret()
		if err != nil {
			return err
		}
		c.Sessions.Secret = secret
		c.Sessions.SecretGenerated = true
	}
	return nil
}

// IsDevelopment сообщает, запущен ли сервер в режиме разработки.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

func setString(dst *string, name string) {
	if v, ok := os.LookupEnv(name); ok {
		*dst = v
	}
}

func randomSecret() (string, error) {
	buf := make([]byte, MinSessionSecretLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("ошибка генерации секрета сессий: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
