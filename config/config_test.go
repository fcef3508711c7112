package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeConfig(t, `
app:
  environment: staging
server:
  port: "9090"
  workers: 4
database:
  driver: memory
notification:
  path: /hooks/sns
  cert_cache_ttl: 15m
  cert_host_pattern: ""
  http_timeout: 3s
  confirm_max_tries: 5
  forward_only: true
rabbitmq:
  enabled: true
  host: rabbit
  user: guest
  pass: guest
aws:
  region: us-east-1
  pipeline_id: 1111111111111-abcde1
mail:
  host: smtp.example.com
  from: transcoder@example.com
  admins:
    - ops@example.com
    - video@example.com
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.App.Environment)
	assert.Equal(t, "9090", cfg.Server.HttpPort)
	assert.Equal(t, 4, cfg.Server.Workers)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Nil(t, cfg.DB)
	assert.Nil(t, cfg.Storage)

	assert.Equal(t, "/hooks/sns", cfg.Notification.Path)
	assert.Equal(t, 15*time.Minute, cfg.Notification.CertCacheTTL)
	assert.Equal(t, "", cfg.Notification.CertHostPattern)
	assert.Equal(t, 3*time.Second, cfg.Notification.HTTPTimeout)
	assert.Equal(t, uint(5), cfg.Notification.ConfirmMaxTries)
	assert.True(t, cfg.Notification.ForwardOnly)

	require.NotNil(t, cfg.Queue)
	assert.True(t, cfg.Queue.Enabled)
	assert.Equal(t, "rabbit", cfg.Queue.Host)
	assert.Equal(t, 5672, cfg.Queue.Port)
	assert.Equal(t, "topic", cfg.Queue.Kind)
	assert.Equal(t, "transcode.request", cfg.Queue.RequestRoutingKey)
	assert.Contains(t, cfg.Queue.URI(), "rabbit")

	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.Equal(t, "1111111111111-abcde1", cfg.AWS.PipelineID)

	assert.Equal(t, "smtp.example.com", cfg.Mail.Host)
	assert.Equal(t, 587, cfg.Mail.Port)
	assert.Equal(t, []string{"ops@example.com", "video@example.com"}, cfg.Mail.Admins)
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("TRANSCODER_DATABASE_DRIVER", "memory")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "develop", cfg.App.Environment)
	assert.Equal(t, "8080", cfg.Server.HttpPort)
	assert.Equal(t, "/transcoder/endpoint", cfg.Notification.Path)
	assert.Equal(t, DefaultCertHostPattern, cfg.Notification.CertHostPattern)
	assert.Equal(t, time.Duration(0), cfg.Notification.CertCacheTTL)
	assert.Equal(t, 10*time.Second, cfg.Notification.HTTPTimeout)
	assert.Equal(t, uint(3), cfg.Notification.ConfirmMaxTries)
	assert.False(t, cfg.Notification.ForwardOnly)
	assert.False(t, cfg.Queue.Enabled)
	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: "9090"
database:
  driver: postgres
  dsn: postgres://localhost/from_file
`)
	t.Setenv("TRANSCODER_SERVER_PORT", "7070")
	t.Setenv("TRANSCODER_DATABASE_DSN", "postgres://localhost/from_env")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.HttpPort)
	assert.Equal(t, "postgres://localhost/from_env", cfg.Database.DSN)
	require.NotNil(t, cfg.DB)
	assert.NoError(t, cfg.DB.Close())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errString string
	}{
		{
			name:      "malformed yaml",
			content:   "server: [port",
			errString: "failed to read config file",
		},
		{
			name:      "postgres without dsn",
			content:   "database:\n  driver: postgres\n",
			errString: "database dsn is required",
		},
		{
			name:      "minio without bucket",
			content:   "database:\n  driver: memory\nminio:\n  enabled: true\n  url: localhost:9000\n",
			errString: "minio.bucket is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
			assert.Nil(t, cfg)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   Server{HttpPort: "8080"},
			Database: Database{Driver: "memory"},
			Notification: Notification{
				Path:            "/transcoder/endpoint",
				CertHostPattern: DefaultCertHostPattern,
				ConfirmMaxTries: 3,
			},
			Queue: &RabbitMQ{},
		}
	}

	tests := []struct {
		name      string
		mutate    func(c *Config)
		errString string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:      "non numeric port",
			mutate:    func(c *Config) { c.Server.HttpPort = "http" },
			errString: "invalid server port",
		},
		{
			name:      "port out of range",
			mutate:    func(c *Config) { c.Server.HttpPort = "70000" },
			errString: "invalid server port",
		},
		{
			name:      "relative notification path",
			mutate:    func(c *Config) { c.Notification.Path = "endpoint" },
			errString: "notification path",
		},
		{
			name:      "bad cert host pattern",
			mutate:    func(c *Config) { c.Notification.CertHostPattern = "(" },
			errString: "cert_host_pattern",
		},
		{
			name:      "zero confirm tries",
			mutate:    func(c *Config) { c.Notification.ConfirmMaxTries = 0 },
			errString: "confirm_max_tries",
		},
		{
			name:      "unknown driver",
			mutate:    func(c *Config) { c.Database.Driver = "mysql" },
			errString: "unknown database driver",
		},
		{
			name:      "rabbitmq enabled without host",
			mutate:    func(c *Config) { c.Queue.Enabled = true },
			errString: "rabbitmq host is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errString == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}

func TestNotification_HostPattern(t *testing.T) {
	re, err := Notification{CertHostPattern: DefaultCertHostPattern}.HostPattern()
	require.NoError(t, err)
	assert.True(t, re.MatchString("sns.eu-west-1.amazonaws.com"))
	assert.True(t, re.MatchString("sns.cn-north-1.amazonaws.com.cn"))
	assert.False(t, re.MatchString("sns.eu-west-1.amazonaws.com.evil.example"))
	assert.False(t, re.MatchString("evil.example"))

	re, err = Notification{}.HostPattern()
	require.NoError(t, err)
	assert.Nil(t, re)
}
