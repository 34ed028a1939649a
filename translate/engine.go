package translate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Rule is a search pattern and the replacement template written in its place.
// Variables of the pattern ("@name", lower-case) are substituted into the
// template wherever their text occurs.
type Rule struct {
	Name        string `yaml:"name" json:"name"`
	Pattern     string `yaml:"pattern" json:"pattern"`
	Replacement string `yaml:"replacement" json:"replacement"`
}

func (r Rule) label(index int) string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("rule #%d", index+1)
}

// RuleLoopError is returned when a rule keeps matching its own output past the
// configured iteration limit.
type RuleLoopError struct {
	Rule       Rule
	Index      int
	Iterations int
}

func (e *RuleLoopError) Error() string {
	return fmt.Sprintf("%s still matches after %d replacements (pattern %q)",
		e.Rule.label(e.Index), e.Iterations, e.Rule.Pattern)
}

// Application describes one rule that changed the text during Translate.
type Application struct {
	Rule         Rule
	Index        int
	Replacements int
	Before       string
	After        string
}

// Option configures a Translator.
type Option func(*Translator)

// WithMaxIterations bounds the number of replacements a single rule may make
// during one Translate call. Zero, the default, means unbounded.
func WithMaxIterations(n int) Option {
	return func(t *Translator) {
		t.maxIterations = n
	}
}

// WithLogger logs every applied rule at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Translator) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithTrace registers fn to receive every rule application.
func WithTrace(fn func(Application)) Option {
	return func(t *Translator) {
		t.trace = fn
	}
}

type compiledRule struct {
	rule    Rule
	pattern *Pattern
}

// Translator applies an ordered rule set. It holds no mutable state and is
// safe for concurrent use.
type Translator struct {
	rules         []compiledRule
	maxIterations int
	logger        *zap.Logger
	trace         func(Application)
}

// NewTranslator compiles every rule. If any pattern is invalid the returned
// error wraps its *PatternError and no Translator is built.
func NewTranslator(rules []Rule, opts ...Option) (*Translator, error) {
	t := &Translator{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(t)
	}

	t.rules = make([]compiledRule, 0, len(rules))
	for i, r := range rules {
		p, err := Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.label(i), err)
		}
		t.rules = append(t.rules, compiledRule{rule: r, pattern: p})
	}
	return t, nil
}

// Len returns the number of rules.
func (t *Translator) Len() int {
	return len(t.rules)
}

// Rules returns the rules in application order.
func (t *Translator) Rules() []Rule {
	rules := make([]Rule, len(t.rules))
	for i, cr := range t.rules {
		rules[i] = cr.rule
	}
	return rules
}

// Translate runs every rule in order, each one to fixpoint, feeding the output
// of one rule into the next.
func (t *Translator) Translate(subject string) (string, error) {
	return t.TranslateContext(context.Background(), subject)
}

// TranslateContext is Translate bounded by ctx. ctx is checked before every
// replacement, so a rule that keeps matching its own output stops when ctx is
// done. The returned error then wraps ctx.Err().
func (t *Translator) TranslateContext(ctx context.Context, subject string) (string, error) {
	return t.translate(ctx, subject, t.trace)
}

// Trace translates subject like TranslateContext and also returns the rules
// that changed the text, in application order.
func (t *Translator) Trace(ctx context.Context, subject string) (string, []Application, error) {
	var apps []Application
	out, err := t.translate(ctx, subject, func(app Application) {
		apps = append(apps, app)
		if t.trace != nil {
			t.trace(app)
		}
	})
	return out, apps, err
}

func (t *Translator) translate(ctx context.Context, subject string, record func(Application)) (string, error) {
	result := subject
	for i, cr := range t.rules {
		out, n, err := searchAndReplace(ctx, result, cr.pattern, cr.rule.Replacement, t.maxIterations)
		switch {
		case errors.Is(err, errLimit):
			t.logger.Warn("rule does not terminate",
				zap.String("rule", cr.rule.label(i)),
				zap.Int("iterations", n))
			return "", &RuleLoopError{Rule: cr.rule, Index: i, Iterations: n}
		case err != nil:
			t.logger.Warn("translation interrupted",
				zap.String("rule", cr.rule.label(i)),
				zap.Int("iterations", n),
				zap.Error(err))
			return "", fmt.Errorf("%s: %w", cr.rule.label(i), err)
		}
		if n > 0 {
			t.logger.Debug("applied rule",
				zap.String("rule", cr.rule.label(i)),
				zap.Int("replacements", n))
			if record != nil {
				record(Application{
					Rule:         cr.rule,
					Index:        i,
					Replacements: n,
					Before:       result,
					After:        out,
				})
			}
		}
		result = out
	}
	return result, nil
}

// Translate compiles rules and applies them to subject in order.
func Translate(subject string, rules []Rule) (string, error) {
	t, err := NewTranslator(rules)
	if err != nil {
		return "", err
	}
	return t.Translate(subject)
}
