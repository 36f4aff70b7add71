package msgcat

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

const defaultFile = "messages.en.yaml"

//go:embed messages.en.yaml
var defaultFiles embed.FS

// layer is one YAML source flattened to dot-keys.
type layer struct {
	name    string
	entries map[string]string
}

func embeddedLayer() (layer, error) {
	raw, err := fs.ReadFile(defaultFiles, defaultFile)
	if err != nil {
		return layer{}, fmt.Errorf("read embedded messages: %w", err)
	}
	entries, err := flattenYAML(raw)
	if err != nil {
		return layer{}, fmt.Errorf("parse %s: %w", defaultFile, err)
	}
	return layer{name: defaultFile, entries: entries}, nil
}

// overrideLayers reads every *.yaml / *.yml in dir in name order. Two files defining the same key
// is an error since the winner would depend on file naming.
func overrideLayers(dir string) ([]layer, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read messages dir: %w", err)
	}
	var names []string
	for _, e := range dirEntries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	owner := make(map[string]string)
	layers := make([]layer, 0, len(names))
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		entries, err := flattenYAML(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		for key := range entries {
			if prev, dup := owner[key]; dup {
				return nil, fmt.Errorf("duplicate override key %q in %s and %s", key, prev, name)
			}
			owner[key] = name
		}
		layers = append(layers, layer{name: name, entries: entries})
	}
	return layers, nil
}

func flattenYAML(raw []byte) (map[string]string, error) {
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	if err := flatten(tree, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

// flatten accepts nested maps with string leaves only.
func flatten(node any, prefix string, out map[string]string) error {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if err := flatten(child, key, out); err != nil {
				return err
			}
		}
	case string:
		if prefix == "" {
			return errors.New("string value without key")
		}
		out[prefix] = v
	case nil:
	default:
		return fmt.Errorf("unsupported value at %s: %T", prefix, v)
	}
	return nil
}
