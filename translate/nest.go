package translate

// nestSymbol is an entry of the nesting stack.
type nestSymbol uint8

const (
	openSingleQuote nestSymbol = iota + 1
	openDoubleQuote
	openParen
)

func (s nestSymbol) isQuote() bool {
	return s == openSingleQuote || s == openDoubleQuote
}

// closes reports whether a token of the given text closes s.
func (s nestSymbol) closes(text string) bool {
	switch s {
	case openSingleQuote:
		return text == "'"
	case openDoubleQuote:
		return text == `"`
	case openParen:
		return text == ")"
	}
	return false
}

func opener(text string) (nestSymbol, bool) {
	switch text {
	case "'":
		return openSingleQuote, true
	case `"`:
		return openDoubleQuote, true
	case "(":
		return openParen, true
	}
	return 0, false
}

// nesting tracks open quotes and parentheses while a variable is capturing.
// Inside a quote every token is opaque except the same quote character, so a
// mismatched quote (' opened, " seen) is never closed and stays open for the
// rest of the scan.
type nesting struct {
	stack []nestSymbol
}

func (n *nesting) empty() bool {
	return len(n.stack) == 0
}

func (n *nesting) top() nestSymbol {
	return n.stack[len(n.stack)-1]
}

func (n *nesting) pop() {
	n.stack = n.stack[:len(n.stack)-1]
}

// feed advances the automaton by one token.
func (n *nesting) feed(text string) {
	if !n.empty() && n.top().isQuote() {
		if n.top().closes(text) {
			n.pop()
		}
		return
	}
	if sym, ok := opener(text); ok {
		n.stack = append(n.stack, sym)
		return
	}
	if !n.empty() && n.top().closes(text) {
		n.pop()
	}
}
