package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/duty-roster/pkg/db"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseURLEnv overrides database.url when set
const DatabaseURLEnv = "DATABASE_URL"

const configFileBase = "roster_config"

// DatabaseConfig selects the store
type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"required,oneof=postgres sqlite"`
	URL    string `yaml:"url" validate:"required"`
}

// PlannerConfig holds the engine settings that are not part of the stored
// generator document
type PlannerConfig struct {
	CriticalLookaheadDays int      `yaml:"criticalLookaheadDays,omitempty" validate:"min=0,max=31"`
	CriticalBuffer        *int     `yaml:"criticalBuffer,omitempty" validate:"omitempty,min=0"`
	FreeIndicators        []string `yaml:"freeIndicators,omitempty"`
	HardWorkShifts        []string `yaml:"hardWorkShifts,omitempty" validate:"dive,required"`
}

// CalendarRule marks recurring dates (e.g. the monthly shooting day)
type CalendarRule struct {
	RRule string `yaml:"rrule" validate:"required"`
	Type  string `yaml:"type" validate:"required,oneof=holiday training shooting dpo"`
}

// Config represents the application configuration
type Config struct {
	Database           DatabaseConfig `yaml:"database"`
	Planner            PlannerConfig  `yaml:"planner"`
	CalendarRules      []CalendarRule `yaml:"calendarRules,omitempty" validate:"dive"`
	GeneratorConfigKey string         `yaml:"generatorConfigKey,omitempty"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates roster_config.yaml
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv loads roster_config_<env>.yaml, falling back to
// roster_config.yaml when no environment specific file exists. A .env file
// in the working directory is read first so DATABASE_URL can live there.
func LoadWithEnv(env string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes a YAML document, applies environment overrides and validates it
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if url := strings.TrimSpace(os.Getenv(DatabaseURLEnv)); url != "" {
		cfg.Database.URL = url
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct and checks rrule syntax
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	for i, rule := range cfg.CalendarRules {
		if _, err := rrule.StrToRRule(rule.RRule); err != nil {
			return fmt.Errorf("invalid rrule in calendarRules[%d]: %w", i, err)
		}
	}

	return nil
}

// CalendarEvents expands the calendar rules into events in [from, to).
// Events are sorted by date; a date matched by several rules keeps the
// first rule's type.
func (c *Config) CalendarEvents(from, to time.Time) ([]db.CalendarEvent, error) {
	seen := make(map[string]bool)
	var events []db.CalendarEvent

	for i, cr := range c.CalendarRules {
		rule, err := rrule.StrToRRule(cr.RRule)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rrule for calendar rule %d: %w", i, err)
		}
		rule.DTStart(from)

		for _, occurrence := range rule.Between(from, to, true) {
			if !occurrence.Before(to) {
				continue
			}
			date := time.Date(occurrence.Year(), occurrence.Month(), occurrence.Day(), 0, 0, 0, 0, time.UTC)
			key := date.Format("2006-01-02")
			if seen[key] {
				continue
			}
			seen[key] = true
			events = append(events, db.CalendarEvent{Date: date, Type: cr.Type})
		}
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })
	return events, nil
}

// findConfigFile searches the current directory and then the home directory
func findConfigFile(env string) (string, error) {
	var names []string
	if env != "" {
		names = append(names, fmt.Sprintf("%s_%s.yaml", configFileBase, env))
	}
	names = append(names, configFileBase+".yaml")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	for _, dir := range []string{".", homeDir} {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}

	return "", fmt.Errorf("config file not found in current directory or home directory")
}
