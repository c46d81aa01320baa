// Package config manages application configuration from default values,
// an optional config.yaml file, and TRACKER_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config defines the application configuration. Values can be set via
// environment variables prefixed with TRACKER_ (e.g., TRACKER_SERVER_LISTEN_ADDR)
// or through config.yaml.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Attendance AttendanceConfig `mapstructure:"attendance"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
}

// LogConfig controls log verbosity and output format.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// ServerConfig holds HTTP server settings for the webhook endpoint.
type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr"      validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     validate:"min=1s"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    validate:"min=1s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s"`
}

// DatabaseConfig holds SQLite connection settings.
type DatabaseConfig struct {
	Path             string        `mapstructure:"path"              validate:"required"`
	BusyTimeout      time.Duration `mapstructure:"busy_timeout"      validate:"min=100ms"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout" validate:"min=1s,max=1m"`
}

// AttendanceConfig controls how calendar dates are derived from message
// timestamps. Timezone is an IANA name; the resolved location is cached in
// Location during validation.
type AttendanceConfig struct {
	Timezone string `mapstructure:"timezone" validate:"required"`

	Location *time.Location `mapstructure:"-"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig enables a named scheduled task with a cron expression.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// Validate checks the configuration and resolves the attendance timezone.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	loc, err := time.LoadLocation(c.Attendance.Timezone)
	if err != nil {
		return fmt.Errorf("invalid attendance timezone %q: %w", c.Attendance.Timezone, err)
	}
	c.Attendance.Location = loc

	return nil
}
