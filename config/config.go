package config

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
	"transcode-notifier/constant"
)

const DefaultCertHostPattern = `^sns\.[a-z0-9-]+\.amazonaws\.com(\.cn)?$`

type Config struct {
	MinIOBucket  string        `yaml:"minio_bucket"`
	App          App           `yaml:"app"`
	Database     Database      `yaml:"database"`
	DB           *sql.DB       `yaml:"db"`
	Queue        *RabbitMQ     `yaml:"rabbitmq"`
	Storage      *minio.Client `yaml:"storage"`
	Server       Server        `yaml:"server"`
	Notification Notification  `yaml:"notification"`
	AWS          AWS           `yaml:"aws"`
	Mail         Mail          `yaml:"mail"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
	Workers  int    `yaml:"workers"`
}

type Database struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type Notification struct {
	Path            string        `yaml:"path"`
	CertCacheTTL    time.Duration `yaml:"cert_cache_ttl"`
	CertHostPattern string        `yaml:"cert_host_pattern"`
	HTTPTimeout     time.Duration `yaml:"http_timeout"`
	ConfirmMaxTries uint          `yaml:"confirm_max_tries"`
	ForwardOnly     bool          `yaml:"forward_only"`
}

// HostPattern compiles CertHostPattern. An empty pattern yields nil.
func (n Notification) HostPattern() (*regexp.Regexp, error) {
	if n.CertHostPattern == "" {
		return nil, nil
	}
	return regexp.Compile(n.CertHostPattern)
}

type RabbitMQ struct {
	Enabled           bool   `json:"enabled"`
	Host              string `json:"host"`
	Port              int    `json:"port"`
	User              string `json:"user"`
	Pass              string `json:"pass"`
	ExchangeName      string `json:"exchange_name"`
	Kind              string `json:"kind"`
	RequestQueue      string `json:"request_queue"`
	RequestRoutingKey string `json:"request_routing_key"`
	EventsExchange    string `json:"events_exchange"`
}

type AWS struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PipelineID      string `yaml:"pipeline_id"`
}

type Mail struct {
	Host          string   `yaml:"host"`
	Port          int      `yaml:"port"`
	Username      string   `yaml:"username"`
	Password      string   `yaml:"password"`
	From          string   `yaml:"from"`
	SubjectPrefix string   `yaml:"subject_prefix"`
	Admins        []string `yaml:"admins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "develop")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.workers", 2)
	v.SetDefault("database.driver", string(constant.StorageDriverPostgres))
	v.SetDefault("notification.path", "/transcoder/endpoint")
	v.SetDefault("notification.cert_cache_ttl", "0s")
	v.SetDefault("notification.cert_host_pattern", DefaultCertHostPattern)
	v.SetDefault("notification.http_timeout", "10s")
	v.SetDefault("notification.confirm_max_tries", 3)
	v.SetDefault("notification.forward_only", false)
	v.SetDefault("rabbitmq.port", 5672)
	v.SetDefault("rabbitmq.kind", "topic")
	v.SetDefault("rabbitmq.exchange_name", "transcode_exchange")
	v.SetDefault("rabbitmq.request_queue", "transcode_request_queue")
	v.SetDefault("rabbitmq.request_routing_key", "transcode.request")
	v.SetDefault("rabbitmq.events_exchange", "transcode_events")
	v.SetDefault("aws.region", "eu-west-1")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.subject_prefix", "[transcoder] ")
}

// Load reads config.yaml from path, if present, with TRANSCODER_* environment
// variables taking precedence (TRANSCODER_DATABASE_DSN for database.dsn).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("transcoder")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{
		MinIOBucket: v.GetString("minio.bucket"),
		App: App{
			Environment: v.GetString("app.environment"),
			Host:        v.GetString("app.host"),
			Protocol:    v.GetString("app.protocol"),
		},
		Server: Server{
			HttpPort: v.GetString("server.port"),
			Workers:  v.GetInt("server.workers"),
		},
		Database: Database{
			Driver: v.GetString("database.driver"),
			DSN:    v.GetString("database.dsn"),
		},
		Notification: Notification{
			Path:            v.GetString("notification.path"),
			CertCacheTTL:    v.GetDuration("notification.cert_cache_ttl"),
			CertHostPattern: v.GetString("notification.cert_host_pattern"),
			HTTPTimeout:     v.GetDuration("notification.http_timeout"),
			ConfirmMaxTries: v.GetUint("notification.confirm_max_tries"),
			ForwardOnly:     v.GetBool("notification.forward_only"),
		},
		Queue: &RabbitMQ{
			Enabled:           v.GetBool("rabbitmq.enabled"),
			Host:              v.GetString("rabbitmq.host"),
			Port:              v.GetInt("rabbitmq.port"),
			User:              v.GetString("rabbitmq.user"),
			Pass:              v.GetString("rabbitmq.pass"),
			Kind:              v.GetString("rabbitmq.kind"),
			ExchangeName:      v.GetString("rabbitmq.exchange_name"),
			RequestQueue:      v.GetString("rabbitmq.request_queue"),
			RequestRoutingKey: v.GetString("rabbitmq.request_routing_key"),
			EventsExchange:    v.GetString("rabbitmq.events_exchange"),
		},
		AWS: AWS{
			Region:          v.GetString("aws.region"),
			AccessKeyID:     v.GetString("aws.access_key_id"),
			SecretAccessKey: v.GetString("aws.secret_access_key"),
			PipelineID:      v.GetString("aws.pipeline_id"),
		},
		Mail: Mail{
			Host:          v.GetString("mail.host"),
			Port:          v.GetInt("mail.port"),
			Username:      v.GetString("mail.username"),
			Password:      v.GetString("mail.password"),
			From:          v.GetString("mail.from"),
			SubjectPrefix: v.GetString("mail.subject_prefix"),
			Admins:        v.GetStringSlice("mail.admins"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if constant.StorageDriver(cfg.Database.Driver) == constant.StorageDriverPostgres {
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		cfg.DB = db
	}

	if v.GetBool("minio.enabled") {
		minioClient, err := minio.New(v.GetString("minio.url"), &minio.Options{
			Creds:  credentials.NewStaticV4(v.GetString("minio.access_id"), v.GetString("minio.secret_access_key"), ""),
			Secure: v.GetBool("minio.secure"),
		})
		if err != nil {
			return nil, err
		}
		if cfg.MinIOBucket == "" {
			return nil, errors.New("minio.bucket is required when minio is enabled")
		}
		cfg.Storage = minioClient
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.HttpPort)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port: %q", c.Server.HttpPort)
	}

	if !strings.HasPrefix(c.Notification.Path, "/") {
		return fmt.Errorf("notification path must start with '/': %q", c.Notification.Path)
	}

	if _, err := c.Notification.HostPattern(); err != nil {
		return fmt.Errorf("invalid notification cert_host_pattern: %w", err)
	}

	if c.Notification.ConfirmMaxTries == 0 {
		return errors.New("notification confirm_max_tries must be greater than 0")
	}

	switch constant.StorageDriver(c.Database.Driver) {
	case constant.StorageDriverPostgres:
		if c.Database.DSN == "" {
			return errors.New("database dsn is required for the postgres driver")
		}
	case constant.StorageDriverMemory:
	default:
		return fmt.Errorf("unknown database driver: %q", c.Database.Driver)
	}

	if c.Queue != nil && c.Queue.Enabled && c.Queue.Host == "" {
		return errors.New("rabbitmq host is required when rabbitmq is enabled")
	}

	return nil
}
