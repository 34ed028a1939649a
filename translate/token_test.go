package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		input    string
		expected []Token
	}{
		{
			name:  "line comment and whitespace are dropped",
			input: "SELECT 1 -- comment\nFROM t",
			expected: []Token{
				{Start: 0, End: 6, Text: "SELECT"},
				{Start: 7, End: 8, Text: "1"},
				{Start: 20, End: 24, Text: "FROM"},
				{Start: 25, End: 26, Text: "t"},
			},
		},
		{
			name:  "block comment between words",
			input: "a/* x */b",
			expected: []Token{
				{Start: 0, End: 1, Text: "a"},
				{Start: 8, End: 9, Text: "b"},
			},
		},
		{
			name:  "symbols are single tokens",
			input: "a(b,'c')",
			expected: []Token{
				{Start: 0, End: 1, Text: "a"},
				{Start: 1, End: 2, Text: "("},
				{Start: 2, End: 3, Text: "b"},
				{Start: 3, End: 4, Text: ","},
				{Start: 4, End: 5, Text: "'"},
				{Start: 5, End: 6, Text: "c"},
				{Start: 6, End: 7, Text: "'"},
				{Start: 7, End: 8, Text: ")"},
			},
		},
		{
			name:  "variables and underscores stay in the word",
			input: "@var_1 + 2",
			expected: []Token{
				{Start: 0, End: 6, Text: "@var_1"},
				{Start: 7, End: 8, Text: "+"},
				{Start: 9, End: 10, Text: "2"},
			},
		},
		{
			name:  "unterminated block comment swallows the rest",
			input: "a /* b c",
			expected: []Token{
				{Start: 0, End: 1, Text: "a"},
			},
		},
		{
			name:  "line comment right after a word",
			input: "x--y",
			expected: []Token{
				{Start: 0, End: 1, Text: "x"},
			},
		},
		{
			name:  "comment closing reuses the opening star",
			input: "/*/a",
			expected: []Token{
				{Start: 3, End: 4, Text: "a"},
			},
		},
		{
			name:  "single dash is a symbol",
			input: "a-b",
			expected: []Token{
				{Start: 0, End: 1, Text: "a"},
				{Start: 1, End: 2, Text: "-"},
				{Start: 2, End: 3, Text: "b"},
			},
		},
		{
			name:  "multi-byte rune is one token",
			input: "a é b",
			expected: []Token{
				{Start: 0, End: 1, Text: "a"},
				{Start: 2, End: 4, Text: "é"},
				{Start: 5, End: 6, Text: "b"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Tokenize(tt.input)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTokenizeEmpty(t *testing.T) {
	t.Parallel()
	for _, input := range []string{"", "   \t\n", "-- only a comment", " /* c */ -- d\n "} {
		assert.Empty(t, Tokenize(input), "input %q", input)
	}
}

func TestTokenizeOffsetsPointIntoInput(t *testing.T) {
	t.Parallel()
	input := "SELECT TOP 10 a.b, 'x y' /* hint */ FROM \"t\" -- done\nWHERE c >= 1"
	for _, tok := range Tokenize(input) {
		assert.Equal(t, tok.Text, input[tok.Start:tok.End])
	}
}

func TestLowerKeepsOffsets(t *testing.T) {
	t.Parallel()
	input := "SELECT Ünïcode, ÀB FROM T"
	got := lower(input)
	assert.Equal(t, len(input), len(got))
	assert.Equal(t, "select Ünïcode, Àb from t", got)
	assert.Equal(t, "already lower", lower("already lower"))
}
