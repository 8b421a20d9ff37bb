package expr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapTarget struct {
	values map[string]any
	funcs  map[string]func(args []any) (any, error)
	calls  []string
}

func (m *mapTarget) Lookup(name string) (any, bool) {
	v, ok := m.values[name]
	return v, ok
}

func (m *mapTarget) Call(name string, args []any) (any, error) {
	m.calls = append(m.calls, name)
	fn, ok := m.funcs[name]
	if !ok {
		return nil, errors.New("no such function")
	}
	return fn(args)
}

type person struct {
	Name string
	Pets []string
}

func Test_Evaluator(t *testing.T) {
	target := &mapTarget{
		values: map[string]any{
			"name":   "Bart",
			"people": []person{{Name: "Homer"}, {Name: "Lisa", Pets: []string{"Snowball"}}},
			"sizes":  map[string]any{"s": int64(1)},
		},
		funcs: map[string]func(args []any) (any, error){
			"greet": func(args []any) (any, error) { return "hello " + args[0].(string), nil },
		},
	}

	cases := []struct {
		name string
		expr string
		want any
	}{
		{"identifier from target", "name", "Bart"},
		{"single quoted string with escape", `'it\'s'`, "it's"},
		{"double quoted string with escape", `"a\"b"`, `a"b`},
		{"integer", "42", int64(42)},
		{"float", "1.5", 1.5},
		{"booleans", "true", true},
		{"null", "null", nil},
		{"member access on slice element", "people[1].name", "Lisa"},
		{"nested index", "people[1].pets[0]", "Snowball"},
		{"map index by string", "sizes['s']", int64(1)},
		{"call into target", "greet(name)", "hello Bart"},
		{"concatenation", "'Dear ' + name + '!'", "Dear Bart!"},
		{"numeric addition", "1 + 2", int64(3)},
		{"mixed numeric addition", "1 + 0.5", 1.5},
		{"grouping", "('a' + 'b')", "ab"},
		{"member of null is null", "null.name", nil},
	}
	for _, tc := range cases {
		t.Run("should evaluate "+tc.name, func(t *testing.T) {
			got, err := New().Evaluate(tc.expr, target)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("should prefer bound variables over target members and unwind them", func(t *testing.T) {
		ev := New()
		ev.Bind("name", "Lisa")
		ev.Bind("name", "Maggie")

		got, err := ev.Evaluate("name", target)
		require.NoError(t, err)
		assert.Equal(t, "Maggie", got)

		ev.Unbind("name")
		got, err = ev.Evaluate("name", target)
		require.NoError(t, err)
		assert.Equal(t, "Lisa", got)

		ev.Unbind("name")
		ev.Unbind("name")
		got, err = ev.Evaluate("name", target)
		require.NoError(t, err)
		assert.Equal(t, "Bart", got)
	})

	t.Run("should report syntax errors", func(t *testing.T) {
		_, err := New().Evaluate("greet(", target)
		var syn *SyntaxError
		require.ErrorAs(t, err, &syn)
		assert.Equal(t, "greet(", syn.Expression)
	})

	t.Run("should report unknown identifiers", func(t *testing.T) {
		_, err := New().Evaluate("nobody", target)
		var be *BindingError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "nobody", be.Name)
	})

	t.Run("should keep errors returned by calls reachable", func(t *testing.T) {
		sentinel := errors.New("boom")
		tg := &mapTarget{funcs: map[string]func(args []any) (any, error){
			"explode": func([]any) (any, error) { return nil, sentinel },
		}}
		_, err := New().Evaluate("explode()", tg)
		assert.ErrorIs(t, err, sentinel)
	})

	t.Run("should resolve only variables without a target", func(t *testing.T) {
		ev := New()
		ev.Bind("p", person{Name: "Homer"})
		got, err := ev.Evaluate("'Mr. ' + p.name", nil)
		require.NoError(t, err)
		assert.Equal(t, "Mr. Homer", got)

		_, err = ev.Evaluate("greet('x')", nil)
		assert.Error(t, err)
	})
}
