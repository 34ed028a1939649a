package translate

// Match is the first occurrence of a pattern in a subject.
// Start and End are byte offsets into the subject, and Bindings maps every
// variable name (with its '@') to the captured text in its original case.
type Match struct {
	Start    int
	End      int
	Bindings map[string]string
}

// Search finds the first occurrence of p in subject.
// Literal blocks match case-insensitively. A variable captures everything up
// to the next literal block, but only a terminator seen outside quotes and
// outside parentheses opened during the capture ends it.
//
// The scan is single-pass and greedy: a literal mismatch restarts the pattern
// from its first block without backtracking, and the mismatching token is not
// retried against the first block.
func (p *Pattern) Search(subject string) (Match, bool) {
	tokens := Tokenize(lower(subject))
	blocks := p.Blocks

	var (
		idx          int
		captureStart int
		nest         nesting
	)
	m := Match{Bindings: make(map[string]string)}

	for _, tok := range tokens {
		block := blocks[idx]

		if block.Variable {
			if nest.empty() && tok.Text == blocks[idx+1].Text {
				m.Bindings[block.Text] = subject[captureStart:tok.Start]
				idx += 2
				if idx == len(blocks) {
					m.End = tok.End
					return m, true
				}
				if blocks[idx].Variable {
					captureStart = tok.End
				}
				continue
			}
			nest.feed(tok.Text)
			continue
		}

		if tok.Text != block.Text {
			idx = 0
			continue
		}
		if idx == 0 {
			m.Start = tok.Start
		}
		idx++
		if idx == len(blocks) {
			m.End = tok.End
			return m, true
		}
		if blocks[idx].Variable {
			captureStart = tok.End
		}
	}

	return Match{}, false
}

// Search finds the first occurrence of pattern in subject.
func Search(subject string, pattern *Pattern) (Match, bool) {
	return pattern.Search(subject)
}
