package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

func parseYAML(data []byte) (*Table, error) {
	var table Table
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&table); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	for i, e := range table.Entries {
		if e.Pattern == "" {
			return nil, fmt.Errorf("rule %d (%s): pattern is required", i+1, e.Label(i))
		}
	}
	return &table, nil
}

// Encode writes the table in the native YAML layout.
func (t *Table) Encode() ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(struct {
		Rules []Entry `yaml:"rules"`
	}{Rules: t.Entries}); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
