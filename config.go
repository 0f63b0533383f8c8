package main

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"goPropertyTax/internal/logger"
)

//go:embed default-config.yaml
var defaultConfigYAML string

var errInvalidSettings = errors.New("invalid settings")

// Settings configures the HTTP server and logging. Rate tables are not
// configurable; they are embedded in the taxcalc package.
type Settings struct {
	Addr           string        `mapstructure:"addr" yaml:"addr" json:"addr"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" yaml:"allowed_origins" json:"allowed_origins"`
	LogLevel       string        `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	LogJSON        bool          `mapstructure:"log_json" yaml:"log_json" json:"log_json"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" json:"write_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes" json:"max_body_bytes"`
}

// LoadSettings layers the embedded defaults, the optional YAML file at
// filePath and PROPTAX_* environment variables, in increasing priority.
// Flags bound to v before the call take precedence over all three.
func LoadSettings(v *viper.Viper, filePath string) (*Settings, error) {
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(defaultConfigYAML)); err != nil {
		return nil, fmt.Errorf("embedded defaults: %w", err)
	}
	if filePath != "" {
		v.SetConfigFile(filePath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("config file %s: %w", filePath, err)
		}
	}

	v.SetEnvPrefix("PROPTAX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidSettings, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// DefaultSettings returns the embedded defaults alone.
func DefaultSettings() *Settings {
	s, err := LoadSettings(viper.New(), "")
	if err != nil {
		panic(fmt.Sprintf("embedded default-config.yaml: %v", err))
	}
	return s
}

// Validate reports the first unusable setting.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.Addr) == "" {
		return fmt.Errorf("%w: addr is empty", errInvalidSettings)
	}
	if _, err := logger.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", errInvalidSettings, err)
	}
	if s.ReadTimeout <= 0 || s.WriteTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", errInvalidSettings)
	}
	if s.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: max_body_bytes must be positive", errInvalidSettings)
	}
	return nil
}

// NewLogger builds the process logger from the log settings.
func (s *Settings) NewLogger() (logger.Logger, error) {
	lvl, err := logger.ParseLevel(s.LogLevel)
	if err != nil {
		return nil, err
	}
	return logger.Config{Level: lvl, JSON: s.LogJSON}.New()
}

// allowsOrigin reports whether CORS should echo origin back.
func (s *Settings) allowsOrigin(origin string) bool {
	for _, allowed := range s.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
