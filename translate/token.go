package translate

import (
	"strings"
	"unicode/utf8"
)

// Token is a positioned lexical unit of a SQL string.
// Start and End are byte offsets into the string that was tokenized.
type Token struct {
	Start int
	End   int
	Text  string
}

func (t Token) String() string {
	return t.Text
}

// Tokenize splits text into tokens.
//
// A run of ASCII letters, digits, '_' or '@' is one token. Every other
// character ends the current run and is emitted as its own token, except
// whitespace and comments (`-- ...\n` and `/* ... */`) which produce nothing.
// Offsets always refer to text, so callers can slice the original input.
func Tokenize(text string) []Token {
	var tokens []Token
	start := 0

	flush := func(end int) {
		if end > start {
			tokens = append(tokens, Token{Start: start, End: end, Text: text[start:end]})
		}
	}

	i := 0
	for i < len(text) {
		c := text[i]
		if isWordChar(c) {
			i++
			continue
		}

		flush(i)

		switch {
		case c == '-' && i+1 < len(text) && text[i+1] == '-':
			// line comment: drop everything up to and including '\n'
			nl := strings.IndexByte(text[i:], '\n')
			if nl < 0 {
				i = len(text)
			} else {
				i += nl + 1
			}
		case c == '/' && i+1 < len(text) && text[i+1] == '*':
			// the closing "*/" may reuse the opening '*', so "/*/" is a full comment
			end := strings.Index(text[i+1:], "*/")
			if end < 0 {
				i = len(text)
			} else {
				i += 1 + end + 2
			}
		case isSpace(c):
			i++
		case c < utf8.RuneSelf:
			tokens = append(tokens, Token{Start: i, End: i + 1, Text: text[i : i+1]})
			i++
		default:
			_, size := utf8.DecodeRuneInString(text[i:])
			tokens = append(tokens, Token{Start: i, End: i + size, Text: text[i : i+size]})
			i += size
		}
		start = i
	}
	flush(len(text))

	return tokens
}

// lower folds ASCII upper-case letters only, so every byte offset of the
// result lines up with the input.
func lower(s string) string {
	for i := 0; i < len(s); i++ {
		if c := s[i]; 'A' <= c && c <= 'Z' {
			b := []byte(s)
			for j := i; j < len(b); j++ {
				if 'A' <= b[j] && b[j] <= 'Z' {
					b[j] += 'a' - 'A'
				}
			}
			return string(b)
		}
	}
	return s
}

func isWordChar(c byte) bool {
	return ('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z') ||
		('0' <= c && c <= '9') ||
		c == '_' || c == '@'
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
