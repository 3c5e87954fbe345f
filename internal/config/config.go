// Package config loads the YAML document that describes one web step, its
// endpoint, flow context, journal and logging.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/loykin/webstep/internal/common"
	"github.com/loykin/webstep/internal/constants"
	"github.com/loykin/webstep/internal/journal"
	"github.com/loykin/webstep/internal/journal/postgresql"
	"github.com/loykin/webstep/internal/journal/sqlite"
	"github.com/loykin/webstep/internal/step"
	"github.com/loykin/webstep/internal/util"
	"github.com/loykin/webstep/pkg/endpoint"
	"gopkg.in/yaml.v3"
)

type LoggingConfig struct {
	Level         string `mapstructure:"level" yaml:"level"`                   // error, warn, info, debug
	Format        string `mapstructure:"format" yaml:"format"`                 // text, json, color
	MaskSensitive *bool  `mapstructure:"mask_sensitive" yaml:"mask_sensitive"` // enable/disable sensitive data masking
	Color         *bool  `mapstructure:"color" yaml:"color"`                   // enable/disable colorized output
}

// ParamConfig is one flow parameter. ValueFromEnv is read when Value is empty.
type ParamConfig struct {
	Name         string `mapstructure:"name" yaml:"name"`
	Value        string `mapstructure:"value" yaml:"value"`
	ValueFromEnv string `mapstructure:"valueFromEnv" yaml:"valueFromEnv"`
}

type FlowConfig struct {
	StartStep  bool          `mapstructure:"start_step" yaml:"start_step"`
	Parameters []ParamConfig `mapstructure:"parameters" yaml:"parameters"`
}

type StepConfig struct {
	Name     string                 `mapstructure:"name" yaml:"name"`
	Settings map[string]interface{} `mapstructure:"settings" yaml:"settings"`
}

type JournalConfig struct {
	Disabled         bool              `mapstructure:"disabled" yaml:"disabled"`
	SaveResponseBody bool              `mapstructure:"save_response_body" yaml:"save_response_body"`
	Type             string            `mapstructure:"type" yaml:"type"`
	Table            string            `mapstructure:"table" yaml:"table"`
	SQLite           sqlite.Config     `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres         postgresql.Config `mapstructure:"postgres" yaml:"postgres"`
}

// ClientConfig holds TLS defaults applied when the endpoint leaves them unset.
type ClientConfig struct {
	Insecure      bool   `mapstructure:"insecure" yaml:"insecure"`
	MinTLSVersion string `mapstructure:"min_tls_version" yaml:"min_tls_version"`
}

type ServerConfig struct {
	Addr            string `mapstructure:"addr" yaml:"addr"`
	ShutdownTimeout string `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type ConfigDoc struct {
	Logging  LoggingConfig          `mapstructure:"logging" yaml:"logging"`
	Endpoint map[string]interface{} `mapstructure:"endpoint" yaml:"endpoint"`
	Step     StepConfig             `mapstructure:"step" yaml:"step"`
	Flow     FlowConfig             `mapstructure:"flow" yaml:"flow"`
	Journal  JournalConfig          `mapstructure:"journal" yaml:"journal"`
	Client   ClientConfig           `mapstructure:"client" yaml:"client"`
	Server   ServerConfig           `mapstructure:"server" yaml:"server"`
}

func (c *ConfigDoc) Load(path string) error {
	clean := filepath.Clean(path)
	if info, statErr := os.Stat(clean); statErr != nil || !info.Mode().IsRegular() {
		if statErr != nil {
			return statErr
		}
		return fmt.Errorf("not a regular file: %s", clean)
	}
	// #nosec G304 -- config path is provided intentionally by the operator
	f, err := os.Open(clean)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return yaml.NewDecoder(f).Decode(c)
}

// FlowContext resolves flow parameters, reading environment variables where asked.
func (c *ConfigDoc) FlowContext() step.Flow {
	params := map[string]string{}
	for _, p := range c.Flow.Parameters {
		if p.Name == "" {
			continue
		}
		val := p.Value
		if envVar, ok := util.TrimEmptyCheck(p.ValueFromEnv); val == "" && ok {
			val = os.Getenv(envVar)
			if val == "" {
				common.GetLogger().Warn("env variable requested but empty or not set", "name", p.Name, "env_var", envVar)
			}
		}
		params[p.Name] = val
	}
	return step.Flow{Parameters: params, StartStep: c.Flow.StartStep}
}

// BuildEndpoint decodes the endpoint section and applies client TLS defaults.
func (c *ConfigDoc) BuildEndpoint() (*endpoint.Endpoint, error) {
	if len(c.Endpoint) == 0 {
		return nil, nil
	}
	ep, err := endpoint.Decode(c.Endpoint)
	if err != nil {
		return nil, err
	}
	if !ep.Insecure {
		ep.Insecure = c.Client.Insecure
	}
	ep.MinTLSVersion = util.FirstNonBlank(ep.MinTLSVersion, c.Client.MinTLSVersion)
	return ep, nil
}

// BuildStep creates the configured step. A missing endpoint section is left
// for Start to reject.
func (c *ConfigDoc) BuildStep(opts ...step.Option) (*step.Step, error) {
	ep, err := c.BuildEndpoint()
	if err != nil {
		return nil, err
	}
	cfg, err := step.DecodeConfig(c.Step.Settings)
	if err != nil {
		return nil, err
	}
	name := util.TrimWithDefault(c.Step.Name, "web")
	opts = append([]step.Option{step.WithFlow(c.FlowContext())}, opts...)
	return step.New(name, cfg, ep, opts...), nil
}

// OpenJournal opens the request journal. It returns nil when the journal is disabled.
func (c *ConfigDoc) OpenJournal(ctx context.Context) (*journal.Store, error) {
	if c.Journal.Disabled {
		return nil, nil
	}
	return journal.Open(ctx, journal.Config{
		Driver:   c.Journal.Type,
		Table:    c.Journal.Table,
		SaveBody: c.Journal.SaveResponseBody,
		SQLite:   c.Journal.SQLite,
		Postgres: c.Journal.Postgres,
	})
}

// ServerAddr returns the intake listen address.
func (c *ConfigDoc) ServerAddr() string {
	return util.TrimWithDefault(c.Server.Addr, constants.DefaultServerAddr)
}

func (c *ConfigDoc) ShutdownTimeout() (time.Duration, error) {
	raw, ok := util.TrimEmptyCheck(c.Server.ShutdownTimeout)
	if !ok {
		return constants.DefaultShutdownTimeout, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid server.shutdown_timeout %q: %w", raw, err)
	}
	return d, nil
}

func (c *ConfigDoc) parseLogLevel() (common.LogLevel, error) {
	switch util.TrimAndLower(c.Logging.Level) {
	case "error":
		return common.LogLevelError, nil
	case "warn", "warning":
		return common.LogLevelWarn, nil
	case "info", "":
		return common.LogLevelInfo, nil
	case "debug":
		return common.LogLevelDebug, nil
	default:
		return common.LogLevelInfo, fmt.Errorf("invalid logging level: %s (valid: error, warn, info, debug)", c.Logging.Level)
	}
}

// SetupLogging configures the global logger based on config settings
func (c *ConfigDoc) SetupLogging() error {
	level, err := c.parseLogLevel()
	if err != nil {
		return err
	}

	format := util.TrimAndLower(c.Logging.Format)
	useColor := false
	if c.Logging.Color != nil {
		useColor = *c.Logging.Color
	} else if format == "color" || format == "colour" {
		useColor = true
	}

	var logger *common.Logger
	switch format {
	case "json":
		logger = common.NewJSONLogger(level)
	case "color", "colour":
		logger = common.NewColorLogger(level)
	case "text", "":
		if useColor {
			logger = common.NewColorLogger(level)
		} else {
			logger = common.NewLogger(level)
		}
	default:
		return fmt.Errorf("invalid logging format: %s (valid: text, json, color)", c.Logging.Format)
	}

	maskingEnabled := true
	if c.Logging.MaskSensitive != nil {
		maskingEnabled = *c.Logging.MaskSensitive
	}
	logger.EnableMasking(maskingEnabled)
	common.SetDefaultLogger(logger)
	common.EnableMasking(maskingEnabled)

	logger.Debug("logging configured",
		"level", level.String(),
		"format", util.TrimWithDefault(format, "text"),
		"color", useColor,
		"mask_sensitive", maskingEnabled)
	return nil
}
