package item

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Archive is a flat key/value store for item settings, persisted as YAML.
type Archive map[string]any

func NewArchive() Archive {
	return make(Archive)
}

func (a Archive) Write(key string, value any) {
	a[key] = value
}

func (a Archive) Has(key string) bool {
	_, ok := a[key]
	return ok
}

func (a Archive) Float(key string, def float64) float64 {
	switch v := a[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

func (a Archive) Int(key string, def int) int {
	switch v := a[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

func (a Archive) Bool(key string, def bool) bool {
	if v, ok := a[key].(bool); ok {
		return v
	}
	return def
}

func (a Archive) String(key string, def string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return def
}

func (a Archive) Marshal() ([]byte, error) {
	return yaml.Marshal(map[string]any(a))
}

func UnmarshalArchive(data []byte) (Archive, error) {
	a := NewArchive()
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse archive: %w", err)
	}
	return a, nil
}

func (a Archive) Save(path string) error {
	data, err := a.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func LoadArchive(path string) (Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalArchive(data)
}
