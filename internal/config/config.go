package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string      `yaml:"env" env:"ENV" env-default:"production"`
	PGSQL       PQSQL       `yaml:"pgsql"`
	HTTPServer  HTTPServer  `yaml:"http_server"`
	JWTSecret   string      `yaml:"jwt_secret" env:"JWT_SECRET" env-default:"super_secret_key"`
	Redis       Redis       `yaml:"redis"`
	ObjectStore ObjectStore `yaml:"object_store"`
	Backend     Backend     `yaml:"backend"`
	Media       Media       `yaml:"media"`
	Submission  Submission  `yaml:"submission"`
	LinkRepair  LinkRepair  `yaml:"link_repair"`
}

type HTTPServer struct {
	Address string `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
}

type PQSQL struct {
	Host     string `yaml:"host" env:"PG_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"PG_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"PG_USER" env-default:"postgres"`
	Password string `yaml:"password" env:"PG_PASSWORD" env-default:"password"`
	DBName   string `yaml:"dbname" env:"PG_DBNAME" env-default:"submissions_db"`
	SSLMode  string `yaml:"sslmode" env:"PG_SSLMODE" env-default:"disable"`
}

type Redis struct {
	Address  string `yaml:"address" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// ObjectStore selects and configures the media backend. Driver is "minio"
// or "s3".
type ObjectStore struct {
	Driver          string `yaml:"driver" env:"OBJECT_STORE_DRIVER" env-default:"minio"`
	Endpoint        string `yaml:"endpoint" env:"OBJECT_STORE_ENDPOINT" env-default:"localhost:9000"`
	AccessKeyID     string `yaml:"access_key_id" env:"OBJECT_STORE_ACCESS_KEY_ID" env-default:"minioadmin"`
	SecretAccessKey string `yaml:"secret_access_key" env:"OBJECT_STORE_SECRET_ACCESS_KEY" env-default:"minioadmin"`
	UseSSL          bool   `yaml:"use_ssl" env:"OBJECT_STORE_USE_SSL" env-default:"false"`
	Region          string `yaml:"region" env:"OBJECT_STORE_REGION" env-default:"us-east-1"`
	Bucket          string `yaml:"bucket" env:"OBJECT_STORE_BUCKET" env-default:"community-media"`
	PublicBaseURL   string `yaml:"public_base_url" env:"OBJECT_STORE_PUBLIC_BASE_URL"`
}

// Backend points at the edge functions used by the preferred creation tier.
type Backend struct {
	FunctionsURL string        `yaml:"functions_url" env:"BACKEND_FUNCTIONS_URL" env-default:"http://localhost:54321/functions/v1/make-server"`
	Timeout      time.Duration `yaml:"timeout" env:"BACKEND_TIMEOUT" env-default:"15s"`
}

type Media struct {
	MaxFileSize      int64    `yaml:"max_file_size" env:"MEDIA_MAX_FILE_SIZE" env-default:"10485760"`
	MaxFiles         int      `yaml:"max_files" env:"MEDIA_MAX_FILES" env-default:"10"`
	MaxRequestSize   int64    `yaml:"max_request_size" env:"MEDIA_MAX_REQUEST_SIZE" env-default:"536870912"`
	MaxConcurrent    int      `yaml:"max_concurrent" env:"MEDIA_MAX_CONCURRENT" env-default:"0"`
	AllowedMimeTypes []string `yaml:"allowed_mime_types" env:"MEDIA_ALLOWED_MIME_TYPES" env-default:"image/jpeg,image/png,image/webp,image/gif,video/mp4,video/webm,video/quicktime"`
}

type Submission struct {
	Timeout            time.Duration `yaml:"timeout" env:"SUBMISSION_TIMEOUT" env-default:"2m"`
	IdempotencyTTL     time.Duration `yaml:"idempotency_ttl" env:"SUBMISSION_IDEMPOTENCY_TTL" env-default:"24h"`
	RateLimitPerMinute int64         `yaml:"rate_limit_per_minute" env:"SUBMISSION_RATE_LIMIT" env-default:"20"`
}

type LinkRepair struct {
	Interval  time.Duration `yaml:"interval" env:"LINK_REPAIR_INTERVAL" env-default:"5m"`
	BatchSize int           `yaml:"batch_size" env:"LINK_REPAIR_BATCH_SIZE" env-default:"100"`
}

// PostgresDSN renders the lib/pq connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.PGSQL.Host, c.PGSQL.Port, c.PGSQL.User, c.PGSQL.Password, c.PGSQL.DBName, c.PGSQL.SSLMode)
}

// Load reads the config file at path, applying env overrides and defaults.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist at path: %s", path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	var configPath string

	configPath = os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to config file")
		flag.Parse()
		configPath = *flags

		if configPath == "" {
			log.Fatal("config path must be provided")
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	return cfg
}
