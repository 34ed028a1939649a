package rules

import (
	_ "embed"
	"fmt"
)

//go:embed default.yaml
var defaultRules []byte

// DefaultSource is the Source of the built-in table.
const DefaultSource = "<builtin>"

// Default returns the built-in rule table.
func Default() *Table {
	table, err := parseYAML(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("rules: invalid built-in table: %v", err))
	}
	table.Source = DefaultSource
	return table
}
