package config

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Edit is one key/value pair from an edit set file
type Edit struct {
	Key   string
	Value interface{}
}

// LoadEdits reads an edit set. Files ending in .yaml or .yml are parsed as
// YAML, anything else as JSON with optional comments and trailing commas.
func LoadEdits(path string) ([]Edit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read edit file")
	}

	var edits []Edit
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		edits, err = ParseYAMLEdits(data)
	default:
		edits, err = ParseJSONEdits(data)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return edits, nil
}

// ParseJSONEdits parses a JSON object of key/value edits. Comments and
// trailing commas are stripped first. Keys keep their file order and
// integers keep full 64-bit precision.
func ParseJSONEdits(data []byte) ([]Edit, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()

	tok, err := dec.Token()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse edits")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("edits must be a mapping of key to value")
	}

	var set editSet
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse edits")
		}
		key, _ := tok.(string)

		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return nil, errors.Wrapf(err, "edit %s", key)
		}
		set.put(key, jsonNumbers(value))
	}

	if _, err := dec.Token(); err != nil {
		return nil, errors.Wrap(err, "failed to parse edits")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after edits")
	}
	return set.edits, nil
}

// jsonNumbers replaces json.Number with the Go integer or float it holds,
// matching what the YAML decoder produces
func jsonNumbers(v interface{}) interface{} {
	switch x := v.(type) {
	case json.Number:
		s := x.String()
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			if n >= math.MinInt && n <= math.MaxInt {
				return int(n)
			}
			return n
		}
		if n, err := strconv.ParseUint(s, 10, 64); err == nil {
			return n
		}
		f, _ := x.Float64()
		return f
	case []interface{}:
		for i := range x {
			x[i] = jsonNumbers(x[i])
		}
		return x
	case map[string]interface{}:
		for k := range x {
			x[k] = jsonNumbers(x[k])
		}
		return x
	default:
		return v
	}
}

// editSet keeps edits in first-seen key order. A repeated key replaces the
// earlier value in place.
type editSet struct {
	edits []Edit
	index map[string]int
}

func (s *editSet) put(key string, value interface{}) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[key]; ok {
		s.edits[i].Value = value
		return
	}
	s.index[key] = len(s.edits)
	s.edits = append(s.edits, Edit{Key: key, Value: value})
}

// ParseYAMLEdits parses a YAML mapping of key/value edits. Keys keep their
// file order and integers keep full 64-bit precision. When a key repeats the
// last value wins.
func ParseYAMLEdits(data []byte) ([]Edit, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse edits")
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.Errorf("edits must be a mapping of key to value, line %d", root.Line)
	}

	var set editSet
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return nil, errors.Errorf("edit key on line %d is not a string", keyNode.Line)
		}

		var value interface{}
		if err := valueNode.Decode(&value); err != nil {
			return nil, errors.Wrapf(err, "edit %s", keyNode.Value)
		}
		set.put(keyNode.Value, value)
	}
	return set.edits, nil
}
