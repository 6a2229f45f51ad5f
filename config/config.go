package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	StorageDriverS3    = "s3"
	StorageDriverMinio = "minio"
)

type (
	APP struct {
		Name string
		Host string
		Port string
		Env  string
	}
	DB struct {
		User        string
		Password    string
		Name        string
		Host        string
		Port        string
		SSLMode     string
		AutoMigrate bool
		MaxConns    int32
	}
	Storage struct {
		Driver    string
		Host      string
		Port      string
		AccessKey string
		SecretKey string
		Bucket    string
		UseSSL    bool
		Region    string
		// PublicHost is what browsers resolve; it may differ from Host.
		PublicHost        string
		MaxFileSize       int64
		AllowedExtensions []string
		Timeout           time.Duration
		AutoCreateBucket  bool
		StatsMaxObjects   int
		// PublicReadACL sends x-amz-acl: public-read on every put, for
		// backends that ignore bucket policies.
		PublicReadACL bool
	}
	MQ struct {
		User         string
		Password     string
		Vhost        string
		Host         string
		AmqpPort     string
		Exchange     string
		ExchangeType string
		QueueName    string
	}
	Log struct {
		Level string
		File  string
	}
	Sweep struct {
		Schedule  string
		OrphanAge time.Duration
		BatchSize int
	}

	Config struct {
		App     APP
		DB      DB
		Storage Storage
		MQ      MQ
		Log     Log
		Sweep   Sweep
	}
)

const (
	defaultMaxFileSize     = int64(10 << 20)
	defaultStorageTimeout  = 30 * time.Second
	defaultStatsMaxObjects = 10000
	defaultSweepBatchSize  = 500
	defaultExtensions      = "jpg,jpeg,png,gif,webp,svg,pdf"
)

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(def)))
	if err != nil {
		return def
	}
	return v
}

func getEnvInt64(key string, def int64) int64 {
	v, err := strconv.ParseInt(getEnv(key, ""), 10, 64)
	if err != nil {
		return def
	}
	return v
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return def
	}
	return v
}

// ParseExtensions turns "JPG, png,,.pdf" into [jpg png pdf].
func ParseExtensions(raw string) []string {
	exts := lo.Map(strings.Split(raw, ","), func(s string, _ int) string {
		return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	})
	return lo.Uniq(lo.Compact(exts))
}

func Load() Config {
	app := APP{
		Name: getEnv("SERVICE_NAME", "filestore"),
		Host: getEnv("SERVICE_HOST", ""),
		Port: getEnv("SERVICE_PORT", "8080"),
		Env:  getEnv("SERVICE_ENV", ""),
	}
	db := DB{
		User:        getEnv("POSTGRES_USER", ""),
		Password:    getEnv("POSTGRES_PASSWORD", ""),
		Name:        getEnv("POSTGRES_DB", ""),
		Host:        getEnv("POSTGRES_HOST", ""),
		Port:        getEnv("POSTGRES_PORT", "5432"),
		SSLMode:     getEnv("POSTGRES_SSLMODE", "disable"),
		AutoMigrate: getEnvBool("POSTGRES_AUTO_MIGRATE", false),
		MaxConns:    int32(getEnvInt64("POSTGRES_MAX_CONNS", 0)),
	}
	storage := Storage{
		Driver:            strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverS3)),
		Host:              getEnv("STORAGE_HOST", "localhost"),
		Port:              getEnv("STORAGE_PORT", "9000"),
		AccessKey:         getEnv("STORAGE_ACCESS_KEY", ""),
		SecretKey:         getEnv("STORAGE_SECRET_KEY", ""),
		Bucket:            getEnv("STORAGE_BUCKET", ""),
		UseSSL:            getEnvBool("STORAGE_USE_SSL", false),
		Region:            getEnv("STORAGE_REGION", "us-east-1"),
		PublicHost:        getEnv("STORAGE_PUBLIC_HOST", ""),
		MaxFileSize:       getEnvInt64("STORAGE_MAX_FILE_SIZE", defaultMaxFileSize),
		AllowedExtensions: ParseExtensions(getEnv("STORAGE_ALLOWED_EXTENSIONS", defaultExtensions)),
		Timeout:           getEnvDuration("STORAGE_TIMEOUT", defaultStorageTimeout),
		AutoCreateBucket:  getEnvBool("STORAGE_AUTO_CREATE_BUCKET", false),
		StatsMaxObjects:   int(getEnvInt64("STORAGE_STATS_MAX_OBJECTS", defaultStatsMaxObjects)),
		PublicReadACL:     getEnvBool("STORAGE_PUBLIC_READ_ACL", true),
	}
	mq := MQ{
		User:         getEnv("RABBITMQ_USER", ""),
		Password:     getEnv("RABBITMQ_PASSWORD", ""),
		Vhost:        getEnv("RABBITMQ_VHOST", ""),
		Host:         getEnv("RABBITMQ_HOST", ""),
		AmqpPort:     getEnv("RABBITMQ_AMQP_PORT", "5672"),
		Exchange:     getEnv("RABBITMQ_EXCHANGE", "filestore.events"),
		ExchangeType: getEnv("RABBITMQ_EXCHANGE_TYPE", "topic"),
		QueueName:    getEnv("RABBITMQ_QUEUE_NAME", "filestore.events.log"),
	}
	log := Log{
		Level: getEnv("LOG_LEVEL", "info"),
		File:  getEnv("LOG_FILE", ""),
	}
	sweep := Sweep{
		Schedule:  getEnv("SWEEP_SCHEDULE", ""),
		OrphanAge: getEnvDuration("SWEEP_ORPHAN_AGE", 0),
		BatchSize: int(getEnvInt64("SWEEP_BATCH_SIZE", defaultSweepBatchSize)),
	}

	return Config{
		App:     app,
		DB:      db,
		Storage: storage,
		MQ:      mq,
		Log:     log,
		Sweep:   sweep,
	}
}

func (c Config) DBDSN() (string, error) {
	if c.DB.User == "" || c.DB.Name == "" || c.DB.Host == "" || c.DB.Port == "" {
		return "", fmt.Errorf("incomplete DB config")
	}
	dsn := fmt.Sprintf(
		"postgres://%s@%s/%s",
		url.UserPassword(c.DB.User, c.DB.Password).String(),
		net.JoinHostPort(c.DB.Host, c.DB.Port),
		c.DB.Name,
	)
	if c.DB.SSLMode != "" {
		dsn += "?sslmode=" + url.QueryEscape(c.DB.SSLMode)
	}
	return dsn, nil
}

// MQEnabled reports whether event publishing is configured.
func (c Config) MQEnabled() bool { return c.MQ.Host != "" }

func (c Config) AMQPDSN() (string, error) {
	if c.MQ.User == "" || c.MQ.Host == "" || c.MQ.AmqpPort == "" {
		return "", fmt.Errorf("invalid MQ config: user, host and amqp port are required")
	}

	return fmt.Sprintf(
		"%s://%s@%s:%s/%s",
		"amqp",
		url.UserPassword(c.MQ.User, c.MQ.Password).String(),
		c.MQ.Host,
		c.MQ.AmqpPort,
		url.PathEscape(c.MQ.Vhost),
	), nil
}

func (s Storage) scheme() string {
	if s.UseSSL {
		return "https"
	}
	return "http"
}

// Endpoint is the internal API endpoint, e.g. "http://minio:9000".
func (s Storage) Endpoint() string {
	return s.scheme() + "://" + s.HostPort()
}

func (s Storage) HostPort() string {
	if s.Port == "" {
		return s.Host
	}
	return net.JoinHostPort(s.Host, s.Port)
}

// PublicBase is the externally reachable path-style prefix: scheme://public-host/bucket.
func (s Storage) PublicBase() string {
	host := s.PublicHost
	if host == "" {
		host = s.HostPort()
	}
	host = strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://"), "/")
	return s.scheme() + "://" + host + "/" + s.Bucket
}

func (s Storage) Validate() error {
	switch s.Driver {
	case StorageDriverS3, StorageDriverMinio:
	default:
		return fmt.Errorf("invalid storage config: unknown driver %q", s.Driver)
	}
	if s.Host == "" || s.Bucket == "" {
		return fmt.Errorf("invalid storage config: host and bucket are required")
	}
	if s.AccessKey == "" || s.SecretKey == "" {
		return fmt.Errorf("invalid storage config: access and secret keys are required")
	}
	if s.MaxFileSize <= 0 {
		return fmt.Errorf("invalid storage config: max file size must be positive")
	}
	if len(s.AllowedExtensions) == 0 {
		return fmt.Errorf("invalid storage config: allowed extensions list is empty")
	}
	return nil
}
