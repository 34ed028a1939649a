package translate

import (
	"fmt"
	"strings"
)

// Block is one compiled element of a search pattern: a literal token that
// must match exactly, or a capturing variable such as "@cols".
type Block struct {
	Text     string
	Variable bool
}

func (b Block) String() string {
	if b.Variable {
		return fmt.Sprintf("Variable(%q)", b.Text)
	}
	return fmt.Sprintf("Literal(%q)", b.Text)
}

// Pattern is a compiled search pattern.
// It never starts or ends with a variable and never holds two adjacent variables.
type Pattern struct {
	Source string
	Blocks []Block
}

// PatternError reports a search pattern that cannot be compiled.
type PatternError struct {
	Pattern string
	Reason  string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("error in search pattern %q: %s", e.Pattern, e.Reason)
}

// Compile lower-cases and tokenizes a search pattern and maps every token to a Block.
// Tokens starting with '@' that are longer than one character become variables.
func Compile(pattern string) (*Pattern, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, &PatternError{Pattern: pattern, Reason: "pattern is empty"}
	}

	tokens := Tokenize(lower(pattern))
	if len(tokens) == 0 {
		return nil, &PatternError{Pattern: pattern, Reason: "pattern has no tokens"}
	}

	blocks := make([]Block, 0, len(tokens))
	for _, tok := range tokens {
		blocks = append(blocks, Block{
			Text:     tok.Text,
			Variable: isVariable(tok.Text),
		})
	}

	if blocks[0].Variable || blocks[len(blocks)-1].Variable {
		return nil, &PatternError{Pattern: pattern, Reason: "pattern cannot start or end with a variable"}
	}
	for i := 1; i < len(blocks); i++ {
		if blocks[i].Variable && blocks[i-1].Variable {
			return nil, &PatternError{
				Pattern: pattern,
				Reason:  fmt.Sprintf("variables %s and %s must be separated by a literal", blocks[i-1].Text, blocks[i].Text),
			}
		}
	}

	return &Pattern{Source: pattern, Blocks: blocks}, nil
}

// MustCompile is like Compile but panics if the pattern cannot be compiled.
func MustCompile(pattern string) *Pattern {
	p, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// Variables returns the variable names of the pattern in order of appearance.
func (p *Pattern) Variables() []string {
	var names []string
	for _, b := range p.Blocks {
		if b.Variable {
			names = append(names, b.Text)
		}
	}
	return names
}

func (p *Pattern) String() string {
	return p.Source
}

func isVariable(text string) bool {
	return len(text) > 1 && text[0] == '@'
}
