package config

import (
	"errors"
	"io/fs"
	"net"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"log"
)

type Config struct {
	HTTP     HTTP
	Engines  Engines
	Oracle   Oracle
	Ledger   Ledger
	Postgres Postgres
	Redis    Redis
	AMQP     AMQP
	Log      Log
}

type HTTP struct {
	Port            int           `env:"HTTP_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"60s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	MaxUploadBytes  int64         `env:"HTTP_MAX_UPLOAD_BYTES" envDefault:"33554432"`
}

type Engines struct {
	ContentURL           string        `env:"ENGINE_CONTENT_URL" envDefault:"http://knowledge-engine:4000"`
	FinancialURL         string        `env:"ENGINE_FINANCIAL_URL" envDefault:"http://financial-engine:5000"`
	FinancialSummaryPath string        `env:"ENGINE_FINANCIAL_SUMMARY_PATH" envDefault:"/api/financial/summary/by_category"`
	Timeout              time.Duration `env:"ENGINE_TIMEOUT" envDefault:"0s"`
	FeedbackTimeout      time.Duration `env:"FEEDBACK_TIMEOUT" envDefault:"10s"`
}

type Oracle struct {
	APIKey   string        `env:"GOOGLE_API_KEY"`
	BaseURL  string        `env:"ORACLE_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	Model    string        `env:"ORACLE_MODEL" envDefault:"gemini-2.0-flash"`
	JSONMode bool          `env:"ORACLE_JSON_MODE" envDefault:"true"`
	Timeout  time.Duration `env:"ORACLE_TIMEOUT" envDefault:"30s"`
}

type Ledger struct {
	Driver string `env:"LEDGER_DRIVER" envDefault:"postgres"`
}

type Postgres struct {
	Host     string `env:"PG_HOST" envDefault:"localhost"`
	Port     string `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER" envDefault:"nexus"`
	Password string `env:"PG_PASS"`
	Name     string `env:"PG_DB" envDefault:"nexus"`
	SSLMode  string `env:"PG_SSLMODE" envDefault:"disable"`
	MaxConns int32  `env:"PG_MAX_CONNS" envDefault:"4"`
}

// URL renders the connection string shared by pgxpool and golang-migrate.
func (p Postgres) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, p.Port),
		Path:     "/" + p.Name,
		RawQuery: url.Values{"sslmode": {p.SSLMode}}.Encode(),
	}
	return u.String()
}

type Redis struct {
	Addr         string `env:"REDIS_ADDRESS"`
	Password     string `env:"REDIS_PASSWORD"`
	DB           int    `env:"REDIS_DB"`
	EventChannel string `env:"REDIS_EVENT_CHANNEL" envDefault:"nexus:events"`
	TaskPrefix   string `env:"REDIS_TASK_PREFIX" envDefault:"task:"`
	TaskIndexKey string `env:"REDIS_TASK_INDEX" envDefault:"tasks:by_created"`
}

// Enabled reports whether a Redis address was configured.
func (r Redis) Enabled() bool { return r.Addr != "" }

type AMQP struct {
	URL       string `env:"AMQP_URL"`
	Exchange  string `env:"AMQP_EXCHANGE" envDefault:"nexus.events"`
	DialTries int    `env:"AMQP_DIAL_TRIES" envDefault:"10"`
}

func (a AMQP) Enabled() bool { return a.URL != "" }

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("ignoring .env: %v", err)
	}

	c, err := Parse()
	if err != nil {
		log.Fatal(err)
	}
	return c
}

// Parse builds a Config from the process environment only.
func Parse() (*Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
