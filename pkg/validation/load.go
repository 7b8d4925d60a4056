package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

var structValidator = validator.New()

// LoadConfig reads a configuration file (YAML or JSON, chosen by extension).
// A missing file yields Standard(). The optional "preset" key selects the
// base the remaining keys are applied to.
//
// Durations are written as strings ("30s", "5m").
func LoadConfig(path string) (*Config, error) {
	return LoadConfigOver(path, Standard())
}

// LoadConfigOver is LoadConfig with base in place of Standard(). base is
// not modified.
func LoadConfigOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return base.Clone(), nil
		}
		return nil, fmt.Errorf("failed to read validation config: %w", err)
	}
	return parseConfig(data, strings.ToLower(filepath.Ext(path)), base.Clone())
}

// ParseConfig decodes configuration bytes. format is ".json" or anything
// else for YAML.
func ParseConfig(data []byte, format string) (*Config, error) {
	return parseConfig(data, format, Standard())
}

func parseConfig(data []byte, format string, base *Config) (*Config, error) {
	raw := map[string]any{}
	if format == ".json" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse validation config: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse validation config: %w", err)
		}
	}

	if p, ok := raw["preset"]; ok {
		name, _ := p.(string)
		preset, found := Preset(name)
		if !found {
			return nil, fmt.Errorf("unknown validation preset %q", name)
		}
		base = preset
		delete(raw, "preset")
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           base,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode validation config: %w", err)
	}

	if err := structValidator.Struct(base); err != nil {
		return nil, fmt.Errorf("invalid validation config: %w", err)
	}
	return base.Clamp(), nil
}
