package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/aliskhannn/image-batch/internal/model"
)

// EnvPrefix is prepended to every environment override, e.g. IMAGE_BATCH_BATCH_INPUT_DIR.
const EnvPrefix = "IMAGE_BATCH"

// Config holds the main configuration for the application.
type Config struct {
	Batch    Batch    `mapstructure:"batch"`
	Log      Log      `mapstructure:"log"`
	Preview  Preview  `mapstructure:"preview"`
	Storage  Storage  `mapstructure:"storage"`
	Kafka    Kafka    `mapstructure:"kafka"`
	Database Database `mapstructure:"database"`
	Retry    Retry    `mapstructure:"retry"`
}

// Batch holds the inputs of a single run: the two folders and the filter toggles.
type Batch struct {
	InputDir  string   `mapstructure:"input_dir"`  // folder whose direct children are processed
	OutputDir string   `mapstructure:"output_dir"` // existing folder receiving processed_* files
	Sharpen   bool     `mapstructure:"sharpen"`
	Sepia     bool     `mapstructure:"sepia"`
	Resize    bool     `mapstructure:"resize"`
	Filters   []string `mapstructure:"filters"` // extra filter names, merged with the toggles
	Workers   int      `mapstructure:"workers"` // max concurrent tasks, 0 = one per file
}

// Log holds log sink configuration.
type Log struct {
	Plain bool `mapstructure:"plain"` // bare text lines instead of structured events
}

// Preview holds contact sheet configuration.
type Preview struct {
	Path     string `mapstructure:"path"`      // PNG file to write; empty disables the sheet
	Columns  int    `mapstructure:"columns"`   // thumbnails per row
	CellSize int    `mapstructure:"cell_size"` // thumbnail edge in pixels
	FontPath string `mapstructure:"font_path"` // TTF font for captions; empty uses the built-in face
}

// Storage holds configuration for the S3-compatible mirror of processed files.
type Storage struct {
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// Kafka holds configuration for result events.
type Kafka struct {
	Topic   string   `mapstructure:"topic"`   // Kafka topic name
	Brokers []string `mapstructure:"brokers"` // List of Kafka broker addresses
}

// Database holds database master and slave configuration for the result journal.
type Database struct {
	Master DatabaseNode   `mapstructure:"master"`
	Slaves []DatabaseNode `mapstructure:"slaves"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DatabaseNode holds connection parameters for a single database node.
type DatabaseNode struct {
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
	User    string `mapstructure:"user"`
	Pass    string `mapstructure:"pass"`
	Name    string `mapstructure:"name"`
	SSLMode string `mapstructure:"ssl_mode"`
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// Request converts the batch section into the runner's request value.
func (b Batch) Request() (model.Request, error) {
	var filters model.FilterSelection
	if b.Sharpen {
		filters = filters.With(model.FilterSharpen)
	}
	if b.Sepia {
		filters = filters.With(model.FilterSepia)
	}
	if b.Resize {
		filters = filters.With(model.FilterResize)
	}

	for _, name := range b.Filters {
		for _, part := range strings.Split(name, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			f, err := model.ParseFilter(part)
			if err != nil {
				return model.Request{}, err
			}
			filters = filters.With(f)
		}
	}

	return model.Request{
		InputDir:  b.InputDir,
		OutputDir: b.OutputDir,
		Filters:   filters,
	}, nil
}

// Enabled reports whether the object mirror is configured.
func (s Storage) Enabled() bool {
	return s.Endpoint != ""
}

// Enabled reports whether result events are configured.
func (k Kafka) Enabled() bool {
	return len(k.Brokers) > 0 && k.Topic != ""
}

// Enabled reports whether the result journal is configured.
func (d Database) Enabled() bool {
	return d.Master.Host != ""
}

// DSN returns the PostgreSQL DSN string for connecting to this database node.
func (n DatabaseNode) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		n.User, n.Pass, n.Host, n.Port, n.Name, n.SSLMode,
	)
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"input":         "batch.input_dir",
	"output":        "batch.output_dir",
	"sharpen":       "batch.sharpen",
	"sepia":         "batch.sepia",
	"resize":        "batch.resize",
	"filters":       "batch.filters",
	"workers":       "batch.workers",
	"plain":         "log.plain",
	"contact-sheet": "preview.path",
}

// RegisterFlags adds the operator console flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "./config/config.yml", "path to the YAML config file (optional)")
	fs.StringP("input", "i", "", "input folder")
	fs.StringP("output", "o", "", "output folder (must exist)")
	fs.Bool("sharpen", false, "increase sharpness")
	fs.Bool("sepia", false, "grayscale contour filter")
	fs.Bool("resize", false, "resize to 100x100")
	fs.StringSlice("filters", nil, "comma-separated filters to apply: sharpen,sepia,resize")
	fs.IntP("workers", "w", 0, "max concurrent files, 0 processes every file at once")
	fs.Bool("plain", false, "print bare text lines instead of structured logs")
	fs.String("contact-sheet", "", "write a PNG contact sheet of processed images to this path")
}

// setDefaults registers the values used when neither file, env nor flags set a key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("preview.columns", 4)
	v.SetDefault("preview.cell_size", 160)
	v.SetDefault("database.master.port", "5432")
	v.SetDefault("database.master.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", 200*time.Millisecond)
	v.SetDefault("retry.backoff", 2.0)
}

// bindEnv binds the database environment variables used across deployments to Viper keys.
func bindEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"database.master.host": "DB_HOST",
		"database.master.port": "DB_PORT",
		"database.master.user": "DB_USER",
		"database.master.pass": "DB_PASSWORD",
		"database.master.name": "DB_NAME",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	return nil
}

// Load builds the configuration from, in increasing priority: defaults, the config file
// named by the "config" flag (skipped when it does not exist), environment variables and flags.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, err
	}

	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
		v.SetConfigFile(f.Value.String())
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			// A missing default file is fine; a file named explicitly must exist.
			var notFound viper.ConfigFileNotFoundError
			missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
			if !missing || f.Changed {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
