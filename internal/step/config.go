package step

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/loykin/webstep/internal/constants"
	"github.com/loykin/webstep/internal/util"
)

// Config holds the step settings. Keys match the component properties of a
// flow definition, so they are dotted.
type Config struct {
	RelativePath         string `mapstructure:"relative.path" yaml:"relative.path"`
	BodyFrom             string `mapstructure:"body.from" yaml:"body.from"`
	BodyText             string `mapstructure:"body.text" yaml:"body.text"`
	HTTPMethod           string `mapstructure:"http.method" yaml:"http.method"`
	HTTPHeaders          string `mapstructure:"http.headers" yaml:"http.headers"`
	HTTPParameters       string `mapstructure:"http.parameters" yaml:"http.parameters"`
	ParameterReplacement bool   `mapstructure:"parameter.replacement" yaml:"parameter.replacement"`
	Encoding             string `mapstructure:"encoding" yaml:"encoding"`
	RunWhen              string `mapstructure:"run.when" yaml:"run.when"`
}

// DecodeConfig reads step settings from a loosely typed map, so
// "parameter.replacement": "true" is accepted, and fills in defaults.
func DecodeConfig(settings map[string]interface{}) (Config, error) {
	var c Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &c,
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(settings); err != nil {
		return Config{}, fmt.Errorf("step: decode settings: %w", err)
	}
	return c.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	c.BodyFrom = util.TrimWithDefault(c.BodyFrom, constants.DefaultBodyFrom)
	c.RunWhen = util.TrimWithDefault(c.RunWhen, constants.DefaultRunWhen)
	c.Encoding = util.TrimWithDefault(c.Encoding, constants.DefaultCharset)
	return c
}

// PerUnitOfWork reports whether the step fires on unit-of-work boundaries
// instead of on every data message.
func (c Config) PerUnitOfWork() bool {
	return strings.EqualFold(strings.TrimSpace(c.RunWhen), constants.RunPerUnitOfWork)
}

// BodyFromMessage reports whether request bodies come from the message payload.
func (c Config) BodyFromMessage() bool {
	return strings.EqualFold(strings.TrimSpace(c.BodyFrom), constants.BodyFromMessage)
}

// Flow is the context the pipeline engine supplies for the running flow.
type Flow struct {
	Parameters map[string]string `mapstructure:"parameters" yaml:"parameters"`
	StartStep  bool              `mapstructure:"start_step" yaml:"start_step"`
}
