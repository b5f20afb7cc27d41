// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Library settings loaded from a YAML file and HIOLOAD_* environment
// variables, completed with defaults and validated before use.

package control

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. HIOLOAD_POOL_GROUPS.
const EnvPrefix = "HIOLOAD"

// Config is the complete runtime configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Pool     PoolConfig     `mapstructure:"pool"`
	Executor ExecutorConfig `mapstructure:"executor"`
	Reactor  ReactorConfig  `mapstructure:"reactor"`
	Channel  ChannelConfig  `mapstructure:"channel"`
	Server   ServerConfig   `mapstructure:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// LoggingConfig selects level, format and destination of logs.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR"`
	Format string `mapstructure:"format" validate:"required,oneof=text json"`
	// Output is stdout, stderr or a file path.
	Output string `mapstructure:"output" validate:"required"`
}

// PoolConfig sizes the segment allocators.
type PoolConfig struct {
	SegmentCapacity int `mapstructure:"segment_capacity" validate:"gt=0"`
	MaxFreeSegments int `mapstructure:"max_free_segments" validate:"gte=0"`
	MaxFreeBuffers  int `mapstructure:"max_free_buffers" validate:"gte=0"`
	// Groups is the number of independent allocators.
	Groups int `mapstructure:"groups" validate:"gt=0"`
}

// ExecutorConfig sizes the worker pool.
type ExecutorConfig struct {
	Workers   int `mapstructure:"workers" validate:"gt=0"`
	QueueSize int `mapstructure:"queue_size" validate:"gt=0"`
}

// ReactorConfig tunes the event loop.
type ReactorConfig struct {
	MaxEvents   int           `mapstructure:"max_events" validate:"gt=0"`
	PollTimeout time.Duration `mapstructure:"poll_timeout" validate:"gt=0"`
}

// ChannelConfig tunes per-connection reads.
type ChannelConfig struct {
	ReadSize         int `mapstructure:"read_size" validate:"gt=0"`
	MaxReadsPerEvent int `mapstructure:"max_reads_per_event" validate:"gt=0"`
}

// ServerConfig describes the example server's framing.
type ServerConfig struct {
	Listen           string `mapstructure:"listen" validate:"required,hostname_port"`
	FramePrefixWidth int    `mapstructure:"frame_prefix_width" validate:"oneof=1 2 4 8"`
	MaxFrame         int    `mapstructure:"max_frame" validate:"gte=0"`
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen" validate:"required_if=Enabled true"`
}

var validate = validator.New()

// Load reads path (optional), applies environment overrides and defaults,
// and validates the result.
func Load(path string) (*Config, error) {
	v := newViper(path)
	if err := readConfig(v, path); err != nil {
		return nil, err
	}
	return decode(v)
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindKeys(v)
	if path != "" {
		v.SetConfigFile(path)
	}
	return v
}

// bindKeys makes every key visible to AutomaticEnv even when the file does
// not mention it.
func bindKeys(v *viper.Viper) {
	for _, k := range []string{
		"logging.level", "logging.format", "logging.output",
		"pool.segment_capacity", "pool.max_free_segments", "pool.max_free_buffers", "pool.groups",
		"executor.workers", "executor.queue_size",
		"reactor.max_events", "reactor.poll_timeout",
		"channel.read_size", "channel.max_reads_per_event",
		"server.listen", "server.frame_prefix_width", "server.max_frame",
		"metrics.enabled", "metrics.listen",
	} {
		_ = v.BindEnv(k)
	}
}

func readConfig(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills zero values.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}

	if cfg.Pool.SegmentCapacity == 0 {
		cfg.Pool.SegmentCapacity = 4096
	}
	if cfg.Pool.MaxFreeSegments == 0 {
		cfg.Pool.MaxFreeSegments = 1024
	}
	if cfg.Pool.MaxFreeBuffers == 0 {
		cfg.Pool.MaxFreeBuffers = 256
	}
	if cfg.Pool.Groups == 0 {
		cfg.Pool.Groups = 1
	}

	if cfg.Executor.Workers == 0 {
		cfg.Executor.Workers = 4
	}
	if cfg.Executor.QueueSize == 0 {
		cfg.Executor.QueueSize = 1024
	}

	if cfg.Reactor.MaxEvents == 0 {
		cfg.Reactor.MaxEvents = 256
	}
	if cfg.Reactor.PollTimeout == 0 {
		cfg.Reactor.PollTimeout = 100 * time.Millisecond
	}

	if cfg.Channel.ReadSize == 0 {
		cfg.Channel.ReadSize = 16 * 1024
	}
	if cfg.Channel.MaxReadsPerEvent == 0 {
		cfg.Channel.MaxReadsPerEvent = 16
	}

	if cfg.Server.Listen == "" {
		cfg.Server.Listen = "127.0.0.1:9000"
	}
	if cfg.Server.FramePrefixWidth == 0 {
		cfg.Server.FramePrefixWidth = 4
	}
	if cfg.Server.MaxFrame == 0 {
		cfg.Server.MaxFrame = 16 << 20
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = "127.0.0.1:9100"
	}
}

// Validate checks struct tags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("config %s: failed on %q (value: %v)", e.Namespace(), e.Tag(), e.Value())
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
