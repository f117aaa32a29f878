package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadRequest decodes a YAML or JSON input file into v. A path of "-"
// reads from stdin.
func LoadRequest(path string, v any) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("cli: read %s: %w", path, err)
	}
	return ParseRequest(data, path, v)
}

// ParseRequest decodes data by the extension of name: .json as JSON,
// anything else as YAML (which also accepts JSON).
func ParseRequest(data []byte, name string, v any) error {
	if strings.ToLower(filepath.Ext(name)) == ".json" {
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("cli: parse %s: %w", name, err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("cli: parse %s: %w", name, err)
	}
	return nil
}
