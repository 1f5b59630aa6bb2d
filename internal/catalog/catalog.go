// Package catalog holds the versioned, multilingual text tables shared by the
// ATM server and client. The document is YAML with two reserved keys:
//
//	_Version: "3"
//	_Useful:
//	  change_language: "16"
//	English:
//	  "1": "Welcome to the bank"
//
// Every other top-level key names a language.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	keyVersion = "_Version"
	keyUseful  = "_Useful"

	// UsefulChangeLanguage labels the synthetic menu entry for switching language.
	UsefulChangeLanguage = "change_language"

	bannerID = 1
)

var ErrInvalid = errors.New("invalid catalog")

// Collection is a parsed catalog. It keeps the bytes it was parsed from so
// the server can ship them unchanged in an UPDATE.
type Collection struct {
	Version    int32
	UsefulKeys map[string]string
	languages  map[string]map[string]string
	raw        []byte
}

// Parse decodes a catalog document.
func Parse(data []byte) (*Collection, error) {
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: empty document", ErrInvalid)
	}

	c := &Collection{
		UsefulKeys: map[string]string{},
		languages:  map[string]map[string]string{},
		raw:        append([]byte(nil), data...),
	}

	for key, node := range doc {
		switch {
		case key == keyVersion:
			v, err := parseVersion(&node)
			if err != nil {
				return nil, err
			}
			c.Version = v
		case key == keyUseful:
			if err := node.Decode(&c.UsefulKeys); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, keyUseful, err)
			}
		case strings.HasPrefix(key, "_"):
			// reserved for future use
		default:
			table := map[string]string{}
			if err := node.Decode(&table); err != nil {
				return nil, fmt.Errorf("%w: language %q: %w", ErrInvalid, key, err)
			}
			c.languages[key] = table
		}
	}
	return c, nil
}

// parseVersion accepts a scalar version or the single-entry map {"0": v}
// written by older clients.
func parseVersion(node *yaml.Node) (int32, error) {
	value := node.Value
	if node.Kind == yaml.MappingNode {
		var m map[string]string
		if err := node.Decode(&m); err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrInvalid, keyVersion, err)
		}
		value = m["0"]
	}
	v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrInvalid, keyVersion, value)
	}
	return int32(v), nil
}

// New builds a collection from tables and renders its document.
func New(version int32, useful map[string]string, languages map[string]map[string]string) (*Collection, error) {
	c := &Collection{Version: version, UsefulKeys: useful, languages: languages}
	if c.UsefulKeys == nil {
		c.UsefulKeys = map[string]string{}
	}
	if c.languages == nil {
		c.languages = map[string]map[string]string{}
	}
	raw, err := c.Marshal()
	if err != nil {
		return nil, err
	}
	c.raw = raw
	return c, nil
}

// Marshal renders the collection as a YAML document.
func (c *Collection) Marshal() ([]byte, error) {
	doc := map[string]any{
		keyVersion: strconv.FormatInt(int64(c.Version), 10),
	}
	if len(c.UsefulKeys) > 0 {
		doc[keyUseful] = c.UsefulKeys
	}
	for name, table := range c.languages {
		doc[name] = table
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal catalog: %w", err)
	}
	return out, nil
}

// Raw returns the document bytes the collection was built from.
func (c *Collection) Raw() []byte {
	return c.raw
}

// Languages lists the selectable language names in sorted order.
func (c *Collection) Languages() []string {
	names := make([]string, 0, len(c.languages))
	for name := range c.languages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasLanguage reports whether lang is defined.
func (c *Collection) HasLanguage(lang string) bool {
	_, ok := c.languages[lang]
	return ok
}

// Lookup returns the text for id in lang.
func (c *Collection) Lookup(lang string, id int) (string, bool) {
	text, ok := c.languages[lang][strconv.Itoa(id)]
	return text, ok
}

// Text returns the text for id in lang, or the decimal id when missing.
func (c *Collection) Text(lang string, id int) string {
	if text, ok := c.Lookup(lang, id); ok {
		return text
	}
	return strconv.Itoa(id)
}

// Useful resolves one of the named helper strings, falling back to name.
func (c *Collection) Useful(lang, name string) string {
	key, ok := c.UsefulKeys[name]
	if !ok {
		return name
	}
	text, ok := c.languages[lang][key]
	if !ok {
		return name
	}
	return text
}

// Banner returns the greeting shown above every menu.
func (c *Collection) Banner(lang string) (string, bool) {
	return c.Lookup(lang, bannerID)
}
