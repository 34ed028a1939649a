package translate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var sqlServerToPostgres = []Rule{
	{Name: "isnull", Pattern: "isnull(@a,@b)", Replacement: "coalesce(@a,@b)"},
	{Name: "getdate", Pattern: "getdate()", Replacement: "CURRENT_TIMESTAMP"},
	{Name: "top", Pattern: "select top @n * from @rest;", Replacement: "SELECT * FROM@rest LIMIT@n;"},
	{Name: "len", Pattern: "len(@a)", Replacement: "LENGTH(@a)"},
}

func TestTranslate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		rules    []Rule
		input    string
		expected string
	}{
		{
			name:     "empty rule set",
			rules:    nil,
			input:    "SELECT ISNULL(a, 1) FROM t;",
			expected: "SELECT ISNULL(a, 1) FROM t;",
		},
		{
			name:     "rules apply in order",
			rules:    sqlServerToPostgres,
			input:    "SELECT TOP 10 * FROM t WHERE ISNULL(a, 1) > LEN(b) AND d < GETDATE();",
			expected: "SELECT * FROM t WHERE coalesce(a, 1) > LENGTH(b) AND d < CURRENT_TIMESTAMP LIMIT 10 ;",
		},
		{
			name: "later rule sees the output of an earlier one",
			rules: []Rule{
				{Pattern: "isnull(@a,@b)", Replacement: "coalesce(@a,@b)"},
				{Pattern: "coalesce(@a,@b)", Replacement: "nvl(@a,@b)"},
			},
			input:    "SELECT ISNULL(x, 0) FROM t",
			expected: "SELECT nvl(x, 0) FROM t",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Translate(tt.input, tt.rules)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTranslateIsIdempotent(t *testing.T) {
	t.Parallel()
	tr, err := NewTranslator(sqlServerToPostgres)
	require.NoError(t, err)

	once, err := tr.Translate("SELECT TOP 5 * FROM t WHERE ISNULL(a,b) = 1;")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE coalesce(a,b) = 1 LIMIT 5 ;", once)
	twice, err := tr.Translate(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestNewTranslatorRejectsBadPattern(t *testing.T) {
	t.Parallel()
	rules := []Rule{
		{Name: "fine", Pattern: "a b", Replacement: "c"},
		{Name: "broken", Pattern: "@x = 1", Replacement: "y"},
	}

	tr, err := NewTranslator(rules)
	require.Error(t, err)
	assert.Nil(t, tr)
	assert.Contains(t, err.Error(), "broken")

	var perr *PatternError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "@x = 1", perr.Pattern)

	out, err := Translate("a b", rules)
	assert.Error(t, err)
	assert.Empty(t, out)
}

func TestNewTranslatorUnnamedRule(t *testing.T) {
	t.Parallel()
	_, err := NewTranslator([]Rule{{Pattern: "a"}, {Pattern: "b @x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule #2")
}

func TestMaxIterations(t *testing.T) {
	t.Parallel()
	rules := []Rule{{Name: "grows", Pattern: "a b", Replacement: "a b b"}}

	tr, err := NewTranslator(rules, WithMaxIterations(5))
	require.NoError(t, err)

	out, err := tr.Translate("x a b")
	require.Error(t, err)
	assert.Empty(t, out)

	var loop *RuleLoopError
	require.True(t, errors.As(err, &loop))
	assert.Equal(t, 5, loop.Iterations)
	assert.Equal(t, "grows", loop.Rule.Name)
	assert.Contains(t, err.Error(), "grows")

	// a terminating rule set is unaffected by the limit
	tr, err = NewTranslator(sqlServerToPostgres, WithMaxIterations(1))
	require.NoError(t, err)
	out, err = tr.Translate("SELECT LEN(a) FROM t")
	require.NoError(t, err)
	assert.Equal(t, "SELECT LENGTH(a) FROM t", out)
}

func TestTranslateContextStopsRunawayRule(t *testing.T) {
	t.Parallel()
	tr, err := NewTranslator([]Rule{{Name: "grows", Pattern: "a b", Replacement: "a b b"}})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	out, err := tr.TranslateContext(ctx, "x a b")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "grows")
	assert.Empty(t, out)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestTranslateContextCancelled(t *testing.T) {
	t.Parallel()
	tr, err := NewTranslator(sqlServerToPostgres)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tr.TranslateContext(ctx, "SELECT LEN(a) FROM t")
	assert.ErrorIs(t, err, context.Canceled)

	out, err := tr.TranslateContext(context.Background(), "SELECT LEN(a) FROM t")
	require.NoError(t, err)
	assert.Equal(t, "SELECT LENGTH(a) FROM t", out)
}

func TestTraceReturnsApplications(t *testing.T) {
	t.Parallel()
	var hooked int
	tr, err := NewTranslator(sqlServerToPostgres, WithTrace(func(Application) { hooked++ }))
	require.NoError(t, err)

	out, apps, err := tr.Trace(context.Background(), "SELECT ISNULL(a,1), LEN(c) FROM t")
	require.NoError(t, err)
	assert.Equal(t, "SELECT coalesce(a,1), LENGTH(c) FROM t", out)
	require.Len(t, apps, 2)
	assert.Equal(t, "isnull", apps[0].Rule.Name)
	assert.Equal(t, "len", apps[1].Rule.Name)
	assert.Equal(t, 2, hooked)

	_, apps, err = tr.Trace(context.Background(), "select 1")
	require.NoError(t, err)
	assert.Empty(t, apps)
}

func TestTrace(t *testing.T) {
	t.Parallel()
	var apps []Application
	tr, err := NewTranslator(sqlServerToPostgres, WithTrace(func(a Application) {
		apps = append(apps, a)
	}))
	require.NoError(t, err)

	_, err = tr.Translate("SELECT ISNULL(a,1), ISNULL(b,2), LEN(c) FROM t")
	require.NoError(t, err)

	require.Len(t, apps, 2)
	assert.Equal(t, "isnull", apps[0].Rule.Name)
	assert.Equal(t, 0, apps[0].Index)
	assert.Equal(t, 2, apps[0].Replacements)
	assert.Equal(t, "SELECT coalesce(a,1), coalesce(b,2), LEN(c) FROM t", apps[0].After)
	assert.Equal(t, "len", apps[1].Rule.Name)
	assert.Equal(t, 3, apps[1].Index)
	assert.Equal(t, apps[0].After, apps[1].Before)
}

func TestLogger(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zap.DebugLevel)
	tr, err := NewTranslator(sqlServerToPostgres, WithLogger(zap.New(core)))
	require.NoError(t, err)

	_, err = tr.Translate("SELECT GETDATE()")
	require.NoError(t, err)

	entries := logs.FilterMessage("applied rule").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "getdate", entries[0].ContextMap()["rule"])
}

func TestTranslatorConcurrentUse(t *testing.T) {
	t.Parallel()
	tr, err := NewTranslator(sqlServerToPostgres)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := tr.Translate(fmt.Sprintf("SELECT ISNULL(c%d, 0) FROM t", i))
			if err == nil {
				results[i] = out
			}
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		assert.Equal(t, fmt.Sprintf("SELECT coalesce(c%d, 0) FROM t", i), got)
	}
}

func TestTranslatorRules(t *testing.T) {
	t.Parallel()
	tr, err := NewTranslator(sqlServerToPostgres)
	require.NoError(t, err)
	assert.Equal(t, len(sqlServerToPostgres), tr.Len())
	assert.Equal(t, sqlServerToPostgres, tr.Rules())
}
