package translate

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// SearchAndReplace replaces occurrences of pattern in subject with template until
// no occurrence is left. After each replacement the whole new subject is searched
// again, so a template that reproduces its own pattern never terminates; use a
// Translator with WithMaxIterations or TranslateContext to guard against that.
func SearchAndReplace(subject string, pattern *Pattern, template string) string {
	out, _, _ := searchAndReplace(context.Background(), subject, pattern, template, 0)
	return out
}

// errLimit is returned by searchAndReplace when the replacement limit is reached
// while the pattern still matches.
var errLimit = errors.New("replacement limit reached")

// searchAndReplace runs the replace loop and reports how many replacements
// were made. It stops with errLimit when limit is positive and reached, and
// with ctx.Err() when ctx is done before the next replacement.
func searchAndReplace(ctx context.Context, subject string, pattern *Pattern, template string, limit int) (out string, n int, err error) {
	out = subject
	for {
		if err := ctx.Err(); err != nil {
			return out, n, err
		}
		m, found := pattern.Search(out)
		if !found {
			return out, n, nil
		}
		if limit > 0 && n >= limit {
			return out, n, errLimit
		}
		out = out[:m.Start] + substitute(template, m.Bindings) + out[m.End:]
		n++
	}
}

// substitute writes every bound value into template in a single pass.
// Longer names are tried first so "@x" never rewrites part of "@xy", and
// substituted values are never scanned again. This differs on purpose from
// substituting one name at a time, where a bound value that contains another
// variable name would be rewritten a second time.
func substitute(template string, bindings map[string]string) string {
	if len(bindings) == 0 {
		return template
	}

	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	pairs := make([]string, 0, 2*len(names))
	for _, name := range names {
		pairs = append(pairs, name, bindings[name])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
