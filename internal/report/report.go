// Package report prints the outcome of a translation run.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/gnolang/sqlrender/internal/batch"
	"github.com/gnolang/sqlrender/rules"
	"github.com/gnolang/sqlrender/translate"
)

var (
	errorStyle     = color.New(color.FgRed, color.Bold)
	changedStyle   = color.New(color.FgGreen, color.Bold)
	unchangedStyle = color.New(color.FgHiBlack)
	cachedStyle    = color.New(color.FgBlue)
	fileStyle      = color.New(color.FgCyan, color.Bold)
	ruleStyle      = color.New(color.FgYellow, color.Bold)
)

// Summary writes one line per file followed by the totals. Traced rule
// applications are listed under their file.
func Summary(w io.Writer, results []batch.Result) {
	var changed, cached, failed int
	for _, r := range results {
		var b strings.Builder
		switch {
		case r.Err != nil:
			failed++
			b.WriteString(errorStyle.Sprint("error: "))
			b.WriteString(fileStyle.Sprint(r.Path))
			b.WriteString(": " + r.Err.Error())
		case r.Changed:
			changed++
			b.WriteString(changedStyle.Sprint("translated "))
			b.WriteString(fileStyle.Sprint(r.Path))
		default:
			b.WriteString(unchangedStyle.Sprint("unchanged  "))
			b.WriteString(fileStyle.Sprint(r.Path))
		}
		if r.Err == nil && r.Dest != "" && r.Dest != r.Path {
			b.WriteString(" -> " + r.Dest)
		}
		if r.Cached {
			cached++
			b.WriteString(cachedStyle.Sprint(" (cached)"))
		}
		fmt.Fprintln(w, b.String())
		for _, app := range r.Applications {
			fmt.Fprint(w, "    ")
			Application(w, app)
		}
	}

	totals := fmt.Sprintf("%d files, %d translated, %d cached, %d failed",
		len(results), changed, cached, failed)
	if failed > 0 {
		fmt.Fprintln(w, errorStyle.Sprint(totals))
		return
	}
	fmt.Fprintln(w, totals)
}

// FileReport is the JSON form of a batch.Result.
type FileReport struct {
	Path    string `json:"path"`
	Dest    string `json:"dest,omitempty"`
	Changed bool   `json:"changed"`
	Cached  bool   `json:"cached"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JSON writes results as an indented JSON array. Outputs are included only
// when withOutput is set.
func JSON(w io.Writer, results []batch.Result, withOutput bool) error {
	reports := make([]FileReport, 0, len(results))
	for _, r := range results {
		fr := FileReport{
			Path:    r.Path,
			Dest:    r.Dest,
			Changed: r.Changed,
			Cached:  r.Cached,
		}
		if withOutput {
			fr.Output = r.Output
		}
		if r.Err != nil {
			fr.Error = r.Err.Error()
		}
		reports = append(reports, fr)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

// Application writes a verbose line for one applied rule.
func Application(w io.Writer, app translate.Application) {
	name := app.Rule.Name
	if name == "" {
		name = fmt.Sprintf("rule #%d", app.Index+1)
	}
	fmt.Fprintf(w, "%s %s %s\n",
		ruleStyle.Sprint(name),
		unchangedStyle.Sprintf("%q", app.Rule.Pattern),
		plural(app.Replacements, "replacement"))
}

// Rules lists the entries of a table that apply to dialect. An empty dialect
// lists every entry.
func Rules(w io.Writer, table *rules.Table, dialect string) {
	n := 0
	for i, e := range table.Entries {
		if dialect != "" && !e.AppliesTo(dialect) {
			continue
		}
		n++
		target := e.Dialect
		if target == "" {
			target = rules.AnyDialect
		}
		fmt.Fprintf(w, "%3d  %s  %s\n     %s -> %s\n",
			i+1,
			fileStyle.Sprint(target),
			ruleStyle.Sprint(e.Label(i)),
			e.Pattern,
			e.Replacement)
	}
	fmt.Fprintln(w, plural(n, "rule"))
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
