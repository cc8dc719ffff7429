package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Remote selects the store adapter: "sftp" or "s3".
	Remote   string
	SFTP     SFTPConfig
	S3       S3Config
	Local    LocalConfig
	Filter   FilterConfig
	Pipeline PipelineConfig
	Sink     SinkConfig
	Cache    CacheConfig
	Email    EmailConfig
	LogLevel string
}

type SFTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	// RootDirs are the remote directories discovery starts from.
	RootDirs []string
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type LocalConfig struct {
	// DownloadDir receives fetched files.
	DownloadDir string
	// LogFile is the append-only validation log.
	LogFile string
}

type FilterConfig struct {
	// Extension is the required filename suffix, e.g. ".csv".
	Extension string
	// Keyword is an optional substring the remote path must contain.
	Keyword string
}

type PipelineConfig struct {
	BatchSize    int
	WorkerCount  int
	MaxAttempts  int
	RetryBackoff time.Duration
	// DeleteAfterFetch removes the remote copy once a fetch has succeeded.
	DeleteAfterFetch bool
	MaxDepth         int
}

type SinkConfig struct {
	// Driver selects the structured store: "sqlite" or "postgres".
	Driver      string
	SQLitePath  string
	PostgresDSN string
}

type CacheConfig struct {
	Enabled    bool
	RedisAddr  string
	RedisDB    int
	JobName    string
	TTLSeconds int
}

type EmailConfig struct {
	Sender     string
	Receiver   string
	SMTPServer string
	SMTPPort   int
	Password   string
}

// Load reads configuration from the environment, an optional .env file, and
// an optional YAML config file. The returned snapshot is the only
// configuration source for the rest of the program; nothing reads viper or
// the environment after this returns.
func Load(configFile string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REMOTE_DRIVER", "sftp")
	v.SetDefault("SFTP_PORT", 22)
	v.SetDefault("S3_USE_SSL", true)
	v.SetDefault("LOCAL_DOWNLOAD_DIR", "./downloads")
	v.SetDefault("LOCAL_LOG_FILE", "./validation.log")
	v.SetDefault("FILTER_EXTENSION", ".csv")
	v.SetDefault("FILTER_KEYWORD", "")
	v.SetDefault("PIPELINE_BATCH_SIZE", 50)
	v.SetDefault("PIPELINE_WORKER_COUNT", 10)
	v.SetDefault("PIPELINE_MAX_ATTEMPTS", 3)
	v.SetDefault("PIPELINE_RETRY_BACKOFF_MS", 500)
	v.SetDefault("PIPELINE_DELETE_AFTER_FETCH", false)
	v.SetDefault("PIPELINE_MAX_DEPTH", 64)
	v.SetDefault("SINK_DRIVER", "sqlite")
	v.SetDefault("SINK_SQLITE_PATH", "./validation_results.db")
	v.SetDefault("SINK_POSTGRES_DSN", "")
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("CACHE_REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("CACHE_REDIS_DB", 0)
	v.SetDefault("CACHE_JOB_NAME", "csv-pickup")
	v.SetDefault("CACHE_TTL_SECONDS", 3600)
	v.SetDefault("EMAIL_SMTP_PORT", 465)

	// Read from environment variables
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		LogLevel: v.GetString("LOG_LEVEL"),
		Remote:   v.GetString("REMOTE_DRIVER"),
		S3: S3Config{
			Endpoint:  v.GetString("S3_ENDPOINT"),
			AccessKey: v.GetString("S3_ACCESS_KEY"),
			SecretKey: v.GetString("S3_SECRET_KEY"),
			Bucket:    v.GetString("S3_BUCKET"),
			UseSSL:    v.GetBool("S3_USE_SSL"),
		},
		SFTP: SFTPConfig{
			Host:     v.GetString("SFTP_HOST"),
			Port:     v.GetInt("SFTP_PORT"),
			User:     v.GetString("SFTP_USER"),
			Password: v.GetString("SFTP_PASSWORD"),
			RootDirs: v.GetStringSlice("SFTP_ROOT_DIRS"),
		},
		Local: LocalConfig{
			DownloadDir: v.GetString("LOCAL_DOWNLOAD_DIR"),
			LogFile:     v.GetString("LOCAL_LOG_FILE"),
		},
		Filter: FilterConfig{
			Extension: v.GetString("FILTER_EXTENSION"),
			Keyword:   v.GetString("FILTER_KEYWORD"),
		},
		Pipeline: PipelineConfig{
			BatchSize:        v.GetInt("PIPELINE_BATCH_SIZE"),
			WorkerCount:      v.GetInt("PIPELINE_WORKER_COUNT"),
			MaxAttempts:      v.GetInt("PIPELINE_MAX_ATTEMPTS"),
			RetryBackoff:     time.Duration(v.GetInt("PIPELINE_RETRY_BACKOFF_MS")) * time.Millisecond,
			DeleteAfterFetch: v.GetBool("PIPELINE_DELETE_AFTER_FETCH"),
			MaxDepth:         v.GetInt("PIPELINE_MAX_DEPTH"),
		},
		Sink: SinkConfig{
			Driver:      v.GetString("SINK_DRIVER"),
			SQLitePath:  v.GetString("SINK_SQLITE_PATH"),
			PostgresDSN: v.GetString("SINK_POSTGRES_DSN"),
		},
		Cache: CacheConfig{
			Enabled:    v.GetBool("CACHE_ENABLED"),
			RedisAddr:  v.GetString("CACHE_REDIS_ADDR"),
			RedisDB:    v.GetInt("CACHE_REDIS_DB"),
			JobName:    v.GetString("CACHE_JOB_NAME"),
			TTLSeconds: v.GetInt("CACHE_TTL_SECONDS"),
		},
		Email: EmailConfig{
			Sender:     v.GetString("EMAIL_SENDER"),
			Receiver:   v.GetString("EMAIL_RECEIVER"),
			SMTPServer: v.GetString("EMAIL_SMTP_SERVER"),
			SMTPPort:   v.GetInt("EMAIL_SMTP_PORT"),
			Password:   v.GetString("EMAIL_PASSWORD"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the parts of the configuration every run needs. Adapter
// specific settings (SFTP credentials, Postgres DSN) are checked by the
// component that uses them.
func (c *Config) Validate() error {
	if c.Filter.Extension == "" {
		return fmt.Errorf("filter extension must not be empty")
	}
	if c.Pipeline.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1, got %d", c.Pipeline.BatchSize)
	}
	if c.Pipeline.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", c.Pipeline.WorkerCount)
	}
	if c.Pipeline.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.Pipeline.MaxAttempts)
	}
	switch c.Sink.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown sink driver %q", c.Sink.Driver)
	}
	switch c.Remote {
	case "sftp", "s3":
	default:
		return fmt.Errorf("unknown remote driver %q", c.Remote)
	}
	return nil
}

// EnsureDirs creates the local download directory and the log file's
// directory if they do not exist yet.
func (c *Config) EnsureDirs() error {
	dirs := []string{c.Local.DownloadDir}
	if c.Local.LogFile != "" {
		dirs = append(dirs, filepath.Dir(c.Local.LogFile))
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
