package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// coerceToJSONBytes turns a YAML config file into JSON bytes so Load can run
// a single strict decoder (DisallowUnknownFields) over both formats. Anything
// without a .yaml/.yml extension passes through untouched and is decoded as
// JSON. The returned format string names the source for error messages.
func coerceToJSONBytes(path string, data []byte) ([]byte, string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
	default:
		return data, "json", nil
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, "yaml", fmt.Errorf("yaml unmarshal: %w", err)
	}

	j, err := json.Marshal(stringifyKeys(doc))
	if err != nil {
		return nil, "yaml", fmt.Errorf("yaml->json marshal: %w", err)
	}
	return j, "yaml", nil
}

// stringifyKeys walks the decoded YAML tree and forces every map key to a
// string. YAML allows non-string keys; encoding/json does not.
func stringifyKeys(in any) any {
	switch v := in.(type) {
	case map[any]any:
		m := make(map[string]any, len(v))
		for k, val := range v {
			m[fmt.Sprint(k)] = stringifyKeys(val)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, val := range v {
			m[k] = stringifyKeys(val)
		}
		return m
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = stringifyKeys(val)
		}
		return out
	default:
		return in
	}
}
