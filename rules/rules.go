// Package rules loads ordered rule tables for the SQL translator.
//
// A table is a list of entries, each holding a search pattern, a replacement
// template and the target dialect it belongs to. Tables can be stored as YAML
// (the native format) or as the CSV layout `targetDialect,pattern,replacement`.
package rules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gnolang/sqlrender/translate"
)

// AnyDialect marks an entry that applies to every target dialect.
const AnyDialect = "*"

// Format is the on-disk encoding of a rule table.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// Entry is one rule of a table.
type Entry struct {
	Name        string `yaml:"name,omitempty"`
	Dialect     string `yaml:"dialect,omitempty"`
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// Rule converts the entry to an engine rule.
func (e Entry) Rule() translate.Rule {
	return translate.Rule{
		Name:        e.Name,
		Pattern:     e.Pattern,
		Replacement: e.Replacement,
	}
}

// AppliesTo reports whether the entry is used when translating to dialect.
func (e Entry) AppliesTo(dialect string) bool {
	return e.Dialect == "" || e.Dialect == AnyDialect || strings.EqualFold(e.Dialect, dialect)
}

// Table is an ordered rule table. Order is significant: rules are applied one
// after another.
type Table struct {
	Source  string  `yaml:"-"`
	Entries []Entry `yaml:"rules"`
}

// ErrUnknownFormat is returned for rule files whose extension is not recognized.
var ErrUnknownFormat = errors.New("unknown rule file format")

// FormatOf derives the table format from a file name.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// Load reads a rule table from path.
func Load(path string) (*Table, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	table, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	table.Source = path
	return table, nil
}

// Parse decodes a rule table from data.
func Parse(data []byte, format Format) (*Table, error) {
	switch format {
	case FormatYAML:
		return parseYAML(data)
	case FormatCSV:
		return parseCSV(data)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Dialects lists the dialects named by the table in first-seen order.
// Entries for every dialect are not listed.
func (t *Table) Dialects() []string {
	seen := make(map[string]bool)
	var dialects []string
	for _, e := range t.Entries {
		if e.Dialect == "" || e.Dialect == AnyDialect {
			continue
		}
		key := strings.ToLower(e.Dialect)
		if seen[key] {
			continue
		}
		seen[key] = true
		dialects = append(dialects, e.Dialect)
	}
	return dialects
}

// ForDialect returns, in table order, the rules that apply to dialect.
func (t *Table) ForDialect(dialect string) []translate.Rule {
	var rules []translate.Rule
	for _, e := range t.Entries {
		if e.AppliesTo(dialect) {
			rules = append(rules, e.Rule())
		}
	}
	return rules
}

// Translator compiles the rules for dialect.
func (t *Table) Translator(dialect string, opts ...translate.Option) (*translate.Translator, error) {
	rules := t.ForDialect(dialect)
	if len(rules) == 0 && !t.hasDialect(dialect) {
		return nil, fmt.Errorf("no rules for dialect %q (available: %s)", dialect, strings.Join(t.Dialects(), ", "))
	}
	return translate.NewTranslator(rules, opts...)
}

func (t *Table) hasDialect(dialect string) bool {
	for _, d := range t.Dialects() {
		if strings.EqualFold(d, dialect) {
			return true
		}
	}
	return false
}

// Validate compiles every pattern of the table and reports all failures.
func (t *Table) Validate() error {
	var errs []error
	for i, e := range t.Entries {
		if _, err := translate.Compile(e.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("entry %d (%s): %w", i+1, e.Label(i), err))
		}
	}
	return errors.Join(errs...)
}

// Label names the entry in messages; index is its position in the table.
func (e Entry) Label(index int) string {
	if e.Name != "" {
		return e.Name
	}
	if e.Dialect != "" {
		return fmt.Sprintf("%s#%d", e.Dialect, index+1)
	}
	return fmt.Sprintf("#%d", index+1)
}
