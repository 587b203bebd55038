package jsonout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(nil)
	for _, v := range []*Var{VarNameToJSON, VarJSONToName, VarSymbolsPackage, VarStrictEscapeRules, VarEscapeTable, VarLogger} {
		require.NoError(t, r.Register(v.Name(), v))
	}
	return r
}

func encodeWith(t *testing.T, ctx context.Context, r *Registry, v any) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, r.NewEncoder(ctx, &buf).Encode(v))
	return buf.String()
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry(nil)

	require.NoError(t, r.Register(OptStrictEscapeRules, VarStrictEscapeRules))
	require.NoError(t, r.Register(OptStrictEscapeRules, VarStrictEscapeRules), "same pair is idempotent")

	other := NewVar(OptStrictEscapeRules, func(c *Config) *bool { return &c.StrictEscapeRules }, nil)
	err := r.Register(OptStrictEscapeRules, other)
	assert.True(t, errors.Is(err, ErrOptionConflict))

	v, ok := r.Resolve(OptStrictEscapeRules)
	require.True(t, ok)
	assert.Same(t, VarStrictEscapeRules, v)

	_, ok = r.Resolve("no-such-option")
	assert.False(t, ok)

	assert.Equal(t, []string{OptStrictEscapeRules}, r.Keys())
}

func TestRegistry_DefaultKeys(t *testing.T) {
	assert.Equal(t, []string{
		OptEscapeTable,
		OptIdentifierNameToJSON,
		OptJSONNameToIdentifier,
		OptLogger,
		OptStrictEscapeRules,
		OptSymbolsPackage,
	}, Default().Keys())
}

func TestRegistry_ApplyBulk(t *testing.T) {
	r := newTestRegistry(t)
	sym := Keyword.Intern("max-size")

	assert.Equal(t, `"maxSize"`, encodeWith(t, context.Background(), r, sym))

	require.NoError(t, r.ApplyBulk(
		Setting{Key: OptIdentifierNameToJSON, Value: "snake-case"},
		Setting{Key: "unknown-option", Value: 42},
		Setting{Key: OptStrictEscapeRules, Value: "false"},
	))
	assert.Equal(t, `"max_size"`, encodeWith(t, context.Background(), r, sym))
	assert.False(t, r.Current(context.Background()).StrictEscapeRules)
}

func TestRegistry_ApplyBulkIsAllOrNothing(t *testing.T) {
	r := newTestRegistry(t)
	before := r.Current(context.Background())

	err := r.ApplyBulk(
		Setting{Key: OptStrictEscapeRules, Value: false},
		Setting{Key: OptSymbolsPackage, Value: 7},
	)
	assert.True(t, errors.Is(err, ErrInvalidOption))
	assert.Same(t, before, r.Current(context.Background()))
	assert.True(t, r.Current(context.Background()).StrictEscapeRules)
}

func TestRegistry_CoerceNames(t *testing.T) {
	r := newTestRegistry(t)
	pkg := NewPackage("test-coerce")
	RegisterPackage(pkg)

	require.NoError(t, r.ApplyBulk(
		Setting{Key: OptSymbolsPackage, Value: "test-coerce"},
		Setting{Key: OptJSONNameToIdentifier, Value: "identity"},
		Setting{Key: OptEscapeTable, Value: DefaultEscapeTable.Entries()},
	))
	cfg := r.Current(context.Background())
	assert.Same(t, pkg, cfg.SymbolsPackage)
	assert.Equal(t, "fooBar", cfg.JSONToName("fooBar"))

	assert.Error(t, r.ApplyBulk(Setting{Key: OptSymbolsPackage, Value: "missing-package"}))
	assert.Error(t, r.ApplyBulk(Setting{Key: OptIdentifierNameToJSON, Value: "missing-mapper"}))
	assert.Error(t, r.ApplyBulk(Setting{Key: OptStrictEscapeRules, Value: "maybe"}))
	assert.Error(t, r.ApplyBulk(Setting{Key: OptLogger, Value: "stderr"}))
}

func TestRegistry_ScopedOverrides(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	sym := Keyword.Intern("max-size")

	var inside string
	err := r.WithScopedOverrides(ctx, []Setting{
		{Key: OptIdentifierNameToJSON, Value: strings.ToUpper},
	}, func(ctx context.Context) error {
		inside = encodeWith(t, ctx, r, sym)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, `"MAX-SIZE"`, inside)
	assert.Equal(t, `"maxSize"`, encodeWith(t, ctx, r, sym))
}

func TestRegistry_ScopedOverridesNest(t *testing.T) {
	r := newTestRegistry(t)
	sym := Keyword.Intern("max-size")

	err := r.WithScopedOverrides(context.Background(), []Setting{
		{Key: OptIdentifierNameToJSON, Value: "snake-case"},
	}, func(outer context.Context) error {
		err := r.WithScopedOverrides(outer, []Setting{
			{Key: OptIdentifierNameToJSON, Value: "identity"},
		}, func(inner context.Context) error {
			assert.Equal(t, `"max-size"`, encodeWith(t, inner, r, sym))
			return nil
		})
		assert.Equal(t, `"max_size"`, encodeWith(t, outer, r, sym))
		return err
	})
	require.NoError(t, err)
}

func TestRegistry_ScopedOverridesRestoreOnError(t *testing.T) {
	r := newTestRegistry(t)
	sym := Keyword.Intern("max-size")
	errBody := errors.New("body failed")

	err := r.WithScopedOverrides(context.Background(), []Setting{
		{Key: OptIdentifierNameToJSON, Value: "snake-case"},
	}, func(context.Context) error {
		return errBody
	})
	assert.ErrorIs(t, err, errBody)
	assert.Equal(t, `"maxSize"`, encodeWith(t, context.Background(), r, sym))

	assert.Panics(t, func() {
		_ = r.WithScopedOverrides(context.Background(), []Setting{
			{Key: OptIdentifierNameToJSON, Value: "snake-case"},
		}, func(context.Context) error {
			panic("body panicked")
		})
	})
	assert.Equal(t, `"maxSize"`, encodeWith(t, context.Background(), r, sym))
}

func TestRegistry_ScopedOverridesRejectInvalid(t *testing.T) {
	r := newTestRegistry(t)
	called := false
	err := r.WithScopedOverrides(context.Background(), []Setting{
		{Key: OptStrictEscapeRules, Value: 3},
	}, func(context.Context) error {
		called = true
		return nil
	})
	assert.True(t, errors.Is(err, ErrInvalidOption))
	assert.False(t, called)
}

func TestRegistry_ScopedOverridesAreIsolated(t *testing.T) {
	r := newTestRegistry(t)
	sym := Keyword.Intern("max-size")

	var g errgroup.Group
	for w := 0; w < 8; w++ {
		scoped := w%2 == 0
		g.Go(func() error {
			for i := 0; i < 200; i++ {
				if scoped {
					err := r.WithScopedOverrides(context.Background(), []Setting{
						{Key: OptIdentifierNameToJSON, Value: "snake-case"},
					}, func(ctx context.Context) error {
						return expectEncoding(ctx, r, sym, `"max_size"`)
					})
					if err != nil {
						return err
					}
					continue
				}
				if err := expectEncoding(context.Background(), r, sym, `"maxSize"`); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func expectEncoding(ctx context.Context, r *Registry, v any, want string) error {
	var buf bytes.Buffer
	if err := r.NewEncoder(ctx, &buf).Encode(v); err != nil {
		return err
	}
	if buf.String() != want {
		return fmt.Errorf("encoded %s, want %s", buf.String(), want)
	}
	return nil
}

func TestRegistry_Snapshot(t *testing.T) {
	r := newTestRegistry(t)

	keys := func(settings []Setting) []string {
		var out []string
		for _, s := range settings {
			out = append(out, s.Key)
		}
		return out
	}

	assert.Equal(t, r.Keys(), keys(r.Snapshot(context.Background())))

	err := r.WithScopedOverrides(context.Background(), []Setting{
		{Key: OptJSONNameToIdentifier, Value: nil},
		{Key: OptLogger, Value: nil},
	}, func(ctx context.Context) error {
		assert.Equal(t, []string{
			OptEscapeTable, OptIdentifierNameToJSON, OptStrictEscapeRules, OptSymbolsPackage,
		}, keys(r.Snapshot(ctx)))
		return nil
	})
	require.NoError(t, err)
}

func TestDefaultRegistry_ApplyBulk(t *testing.T) {
	before := Snapshot(context.Background())
	t.Cleanup(func() { require.NoError(t, ApplyBulk(before...)) })

	require.NoError(t, ApplyBulk(Setting{Key: OptIdentifierNameToJSON, Value: "snake-case"}))
	got, err := Encode(Keyword.Intern("max-size"))
	require.NoError(t, err)
	assert.Equal(t, `"max_size"`, got)

	v, ok := Resolve(OptIdentifierNameToJSON)
	require.True(t, ok)
	assert.Same(t, VarNameToJSON, v)
	assert.True(t, errors.Is(Register(OptIdentifierNameToJSON, VarJSONToName), ErrOptionConflict))
}

func TestWithScopedOverrides_CapturesConfigAtEntry(t *testing.T) {
	before := Snapshot(context.Background())
	t.Cleanup(func() { require.NoError(t, ApplyBulk(before...)) })

	sym := Keyword.Intern("max-size")
	err := WithScopedOverrides(context.Background(), []Setting{
		{Key: OptStrictEscapeRules, Value: false},
	}, func(ctx context.Context) error {
		require.NoError(t, ApplyBulk(Setting{Key: OptIdentifierNameToJSON, Value: "snake-case"}))

		got, err := EncodeContext(ctx, sym)
		require.NoError(t, err)
		assert.Equal(t, `"maxSize"`, got, "scope keeps the mapper captured at entry")

		got, err = Encode(sym)
		require.NoError(t, err)
		assert.Equal(t, `"max_size"`, got, "global config sees the bulk update")
		return nil
	})
	require.NoError(t, err)
}

func TestIntern_UsesConfiguredPackage(t *testing.T) {
	pkg := NewPackage("test-intern-config")
	ctx := context.Background()

	sym := Intern(ctx, "maxSize")
	assert.Same(t, Keyword.Intern("max-size"), sym)

	err := WithScopedOverrides(ctx, []Setting{
		{Key: OptSymbolsPackage, Value: pkg},
	}, func(ctx context.Context) error {
		s := Intern(ctx, "GlobalName")
		assert.Same(t, pkg, s.Package())
		assert.Equal(t, "*global-name*", s.Name())
		return nil
	})
	require.NoError(t, err)
}

func TestUnescapeString_UsesStrictness(t *testing.T) {
	ctx := context.Background()
	_, err := UnescapeString(ctx, `\q`)
	assert.True(t, errors.Is(err, ErrInvalidEscape))

	err = WithScopedOverrides(ctx, []Setting{
		{Key: OptStrictEscapeRules, Value: false},
	}, func(ctx context.Context) error {
		got, err := UnescapeString(ctx, `\q`)
		assert.Equal(t, "q", got)
		return err
	})
	require.NoError(t, err)
}
