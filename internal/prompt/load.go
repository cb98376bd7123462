package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrEmptyTemplateSet is returned when a template resource holds no templates.
var ErrEmptyTemplateSet = errors.New("template resource contains no templates")

//go:embed prompts.json
var defaultTemplates []byte

// Parse decodes a template resource. The resource is a flat mapping of
// template name to template string, as JSON or YAML.
func Parse(data []byte) (map[string]string, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode template resource: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyTemplateSet
	}
	return raw, nil
}

// LoadFile reads, decodes and compiles the template resource at path.
func LoadFile(path string) (*Generator, error) {
	slog.Debug("prompt.LoadFile: reading template resource", "path", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template resource %s: %w", path, err)
	}
	raw, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("template resource %s: %w", path, err)
	}
	return NewGenerator(raw)
}

// LoadDefault compiles the templates built into the binary.
func LoadDefault() (*Generator, error) {
	raw, err := Parse(defaultTemplates)
	if err != nil {
		return nil, fmt.Errorf("built-in templates: %w", err)
	}
	return NewGenerator(raw)
}
