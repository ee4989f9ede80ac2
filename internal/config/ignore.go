package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// IgnoreList holds manifest paths the asset reconciler must never delete.
// Entries are relative to the install path and use forward slashes:
//
//	options.txt          exact file
//	saves/               everything below a directory
//	screenshots/*.png    path.Match glob
//
// Ignored entries are still downloaded when missing.
type IgnoreList []string

// NewIgnoreList normalizes entries and drops blank ones.
func NewIgnoreList(entries ...string) IgnoreList {
	out := make(IgnoreList, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		dir := strings.HasSuffix(e, "/") || strings.HasSuffix(e, `\`)
		e = cleanRelative(e)
		if dir {
			e += "/"
		}
		out = append(out, e)
	}
	return out
}

// LoadIgnoreList loads an ignore list file if provided.
// The file holds a list of entries in JSON, or YAML when the extension is .yaml or .yml.
// Returns an empty list if filePath is empty.
func LoadIgnoreList(filePath string) (IgnoreList, error) {
	if filePath == "" {
		return IgnoreList{}, nil
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read ignore file %s: %w", filePath, err)
	}
	var raw []string
	switch ext := filepath.Ext(filePath); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse YAML ignore file %s: %w", filePath, err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse JSON ignore file %s: %w", filePath, err)
		}
	}
	return NewIgnoreList(raw...), nil
}

// Match returns true if the relative path p is covered by an entry.
func (l IgnoreList) Match(p string) bool {
	p = cleanRelative(p)
	for _, entry := range l {
		if entry == p {
			return true
		}
		if strings.HasSuffix(entry, "/") && strings.HasPrefix(p, entry) {
			return true
		}
		if ok, err := path.Match(entry, p); err == nil && ok {
			return true
		}
	}
	return false
}

func cleanRelative(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = path.Clean(p)
	return strings.TrimPrefix(p, "./")
}
