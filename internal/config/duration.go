package config

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// duration accepts either a Go duration string ("250ms", "1m30s") or an
// integer number of nanoseconds, whichever the file format makes natural.
type duration time.Duration

func (d *duration) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		return d.UnmarshalText([]byte(s))
	}
	var ns int64
	if err := json.Unmarshal(b, &ns); err != nil {
		return fmt.Errorf("duration must be a string or integer nanoseconds: %w", err)
	}
	*d = duration(ns)
	return nil
}

func (d *duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if node.Tag == "!!int" {
		ns, err := strconv.ParseInt(node.Value, 10, 64)
		if err != nil {
			return err
		}
		*d = duration(ns)
		return nil
	}
	return d.UnmarshalText([]byte(node.Value))
}

// UnmarshalTOML is called by BurntSushi/toml with the decoded value.
func (d *duration) UnmarshalTOML(v any) error {
	switch value := v.(type) {
	case string:
		return d.UnmarshalText([]byte(value))
	case int64:
		*d = duration(value)
		return nil
	default:
		return fmt.Errorf("duration must be a string or integer nanoseconds, got %T", v)
	}
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}
