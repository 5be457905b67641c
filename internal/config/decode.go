package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// decodeYAML parses a YAML document and decodes it into out. Unknown keys are
// rejected so typos in hand-edited files fail at load time.
func decodeYAML(data []byte, out any) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(raw)
}

func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := decodeYAML(data, out); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
