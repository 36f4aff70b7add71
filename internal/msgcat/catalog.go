// Package msgcat holds the texts attached to session events: side and piece names plus one
// template per event kind, embedded in English and overridable from a directory of YAML files.
package msgcat

import (
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// EventData is what every event.* template may reference.
type EventData struct {
	Side     string
	Winner   string
	Loser    string
	Notation string
	Piece    string
	Label    string
}

// Catalog is immutable after New and safe for concurrent use.
type Catalog struct {
	templates map[string]*template.Template
	sources   map[string]string // key -> file that defined it
}

// New loads the embedded messages, applies overrides from overrideDir when set and compiles every
// template, so a broken override fails here rather than on the first event.
func New(overrideDir string) (*Catalog, error) {
	base, err := embeddedLayer()
	if err != nil {
		return nil, err
	}
	layers := []layer{base}
	if strings.TrimSpace(overrideDir) != "" {
		extra, err := overrideLayers(overrideDir)
		if err != nil {
			return nil, err
		}
		layers = append(layers, extra...)
	}

	c := &Catalog{templates: make(map[string]*template.Template), sources: make(map[string]string)}
	for _, l := range layers {
		for key, src := range l.entries {
			if strings.TrimSpace(src) == "" {
				delete(c.templates, key)
				delete(c.sources, key)
				continue
			}
			t, err := template.New(key).Option("missingkey=error").Parse(src)
			if err != nil {
				return nil, fmt.Errorf("%s: %s: %w", l.name, key, err)
			}
			c.templates[key] = t
			c.sources[key] = l.name
		}
	}
	return c, nil
}

// Has reports whether key is defined.
func (c *Catalog) Has(key string) bool {
	_, ok := c.templates[strings.TrimSpace(key)]
	return ok
}

// Keys lists the defined keys in order.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.templates))
	for k := range c.templates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Source names the file a key was last defined in.
func (c *Catalog) Source(key string) string { return c.sources[key] }

// Render executes the template under key.
func (c *Catalog) Render(key string, data any) (string, error) {
	t, ok := c.templates[strings.TrimSpace(key)]
	if !ok {
		return "", fmt.Errorf("template not found: %s", key)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// EventText renders event.<kind>, or event.<kind>.<variant> when variant is set
// (game_over.checkmate, clock.running).
func (c *Catalog) EventText(kind, variant string, d EventData) (string, error) {
	key := "event." + kind
	if variant != "" {
		key += "." + variant
	}
	return c.Render(key, d)
}

// SideName is the display name of "white" or "black". Unknown sides come back unchanged.
func (c *Catalog) SideName(side string) string { return c.term("side."+side, side) }

// PieceName is the display name of a piece kind letter (p, n, b, r, q, k).
func (c *Catalog) PieceName(kind string) string { return c.term("piece."+kind, kind) }

func (c *Catalog) term(key, fallback string) string {
	if fallback == "" {
		return ""
	}
	out, err := c.Render(key, nil)
	if err != nil || out == "" {
		return fallback
	}
	return out
}
