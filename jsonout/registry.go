package jsonout

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sort"
	"strconv"
	"sync"
)

// ============================================================
// Options
// ============================================================

// Setting pairs an option key with a value.
type Setting struct {
	Key   string
	Value any
}

// Var is a policy variable: one field of Config. Its pointer is its identity.
type Var struct {
	name string
	get  func(*Config) any
	set  func(*Config, any) error
}

// Name returns the variable's descriptive name.
func (v *Var) Name() string { return v.name }

// NewVar binds a variable to the Config field returned by field. coerce
// converts setting values; when nil, only values of type T are accepted.
func NewVar[T any](name string, field func(*Config) *T, coerce func(any) (T, error)) *Var {
	if coerce == nil {
		coerce = func(v any) (T, error) {
			var zero T
			if v == nil {
				return zero, nil
			}
			t, ok := v.(T)
			if !ok {
				return zero, fmt.Errorf("%w: %s wants %T, got %T", ErrInvalidOption, name, zero, v)
			}
			return t, nil
		}
	}
	return &Var{
		name: name,
		get:  func(c *Config) any { return *field(c) },
		set: func(c *Config, v any) error {
			t, err := coerce(v)
			if err != nil {
				return err
			}
			*field(c) = t
			return nil
		},
	}
}

// isBound reports whether v holds a value. Nil functions, pointers and
// interfaces are unbound.
func isBound(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func, reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan:
		return !rv.IsNil()
	}
	return true
}

// ============================================================
// Registry
// ============================================================

// Registry maps option keys to variables and holds the global Config.
type Registry struct {
	mu     sync.RWMutex
	vars   map[string]*Var
	global *Config
}

// NewRegistry creates an empty registry whose global config is base.
func NewRegistry(base *Config) *Registry {
	if base == nil {
		base = DefaultConfig()
	}
	return &Registry{vars: make(map[string]*Var), global: base.Clone()}
}

// Register binds key to v. Registering the same pair again is a no-op.
func (r *Registry) Register(key string, v *Var) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.vars[key]; ok {
		if cur == v {
			return nil
		}
		return fmt.Errorf("%w: %q", ErrOptionConflict, key)
	}
	r.vars[key] = v
	return nil
}

// Resolve returns the variable bound to key.
func (r *Registry) Resolve(key string) (*Var, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vars[key]
	return v, ok
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.vars))
	for k := range r.vars {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// ApplyBulk sets every resolvable setting globally. Unknown keys are skipped.
// If any value is rejected, nothing is applied.
func (r *Registry) ApplyBulk(settings ...Setting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.global.Clone()
	applied, err := r.applyLocked(next, settings)
	if err != nil {
		return err
	}
	r.global = next
	next.logger().Debug("applied global options", slog.Any("keys", applied))
	return nil
}

func (r *Registry) applyLocked(cfg *Config, settings []Setting) ([]string, error) {
	applied := make([]string, 0, len(settings))
	for _, s := range settings {
		v, ok := r.vars[s.Key]
		if !ok {
			continue
		}
		if err := v.set(cfg, s.Value); err != nil {
			return nil, fmt.Errorf("option %q: %w", s.Key, err)
		}
		applied = append(applied, s.Key)
	}
	return applied, nil
}

type scopeKey struct{ r *Registry }

// Current returns the config in force for ctx: the innermost scoped override,
// or the global config.
func (r *Registry) Current(ctx context.Context) *Config {
	if ctx != nil {
		if cfg, ok := ctx.Value(scopeKey{r}).(*Config); ok {
			return cfg
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.global
}

// Snapshot returns the current value of every bound variable, sorted by key.
func (r *Registry) Snapshot(ctx context.Context) []Setting {
	cfg := r.Current(ctx)

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Setting, 0, len(r.vars))
	for k, v := range r.vars {
		if val := v.get(cfg); isBound(val) {
			out = append(out, Setting{Key: k, Value: val})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// WithScopedOverrides runs body with settings in force. The overrides live in
// the context handed to body, so they end with body however it exits and are
// never visible to other calls.
//
// The scope holds a copy of the config in force when it starts. ApplyBulk
// calls made inside body change the global config but not the scope, so body
// and anything given its ctx keep seeing the values captured at entry.
func (r *Registry) WithScopedOverrides(ctx context.Context, settings []Setting, body func(ctx context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := r.Current(ctx).Clone()

	r.mu.RLock()
	_, err := r.applyLocked(cfg, settings)
	r.mu.RUnlock()
	if err != nil {
		return err
	}
	return body(context.WithValue(ctx, scopeKey{r}, cfg))
}

// NewEncoder returns an encoder writing to w with the config in force for
// ctx.
func (r *Registry) NewEncoder(ctx context.Context, w io.Writer) *Encoder {
	if ctx == nil {
		ctx = context.Background()
	}
	return newEncoder(w, r.Current(ctx), fallbackFrom(ctx))
}

// ============================================================
// Standard Variables
// ============================================================

// Standard variables bound by the default registry.
var (
	VarNameToJSON = NewVar(OptIdentifierNameToJSON,
		func(c *Config) *func(string) string { return &c.NameToJSON }, coerceMapper)
	VarJSONToName = NewVar(OptJSONNameToIdentifier,
		func(c *Config) *func(string) string { return &c.JSONToName }, coerceMapper)
	VarSymbolsPackage = NewVar(OptSymbolsPackage,
		func(c *Config) **Package { return &c.SymbolsPackage }, coercePackage)
	VarStrictEscapeRules = NewVar(OptStrictEscapeRules,
		func(c *Config) *bool { return &c.StrictEscapeRules }, coerceBool)
	VarEscapeTable = NewVar(OptEscapeTable,
		func(c *Config) **EscapeTable { return &c.EscapeTable }, coerceEscapeTable)
	VarLogger = NewVar[*slog.Logger](OptLogger,
		func(c *Config) **slog.Logger { return &c.Logger }, nil)
)

func coerceMapper(v any) (func(string) string, error) {
	switch tv := v.(type) {
	case func(string) string:
		return tv, nil
	case string:
		if fn, ok := NameMapper(tv); ok {
			return fn, nil
		}
		return nil, fmt.Errorf("%w: unknown name mapper %q", ErrInvalidOption, tv)
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("%w: name mapper must be a function or name, got %T", ErrInvalidOption, v)
}

func coercePackage(v any) (*Package, error) {
	switch tv := v.(type) {
	case *Package:
		return tv, nil
	case string:
		if p, ok := FindPackage(tv); ok {
			return p, nil
		}
		return nil, fmt.Errorf("%w: unknown symbols package %q", ErrInvalidOption, tv)
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("%w: symbols package must be a package or name, got %T", ErrInvalidOption, v)
}

func coerceBool(v any) (bool, error) {
	switch tv := v.(type) {
	case bool:
		return tv, nil
	case string:
		b, err := strconv.ParseBool(tv)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrInvalidOption, err)
		}
		return b, nil
	}
	return false, fmt.Errorf("%w: want bool, got %T", ErrInvalidOption, v)
}

func coerceEscapeTable(v any) (*EscapeTable, error) {
	switch tv := v.(type) {
	case *EscapeTable:
		return tv, nil
	case []EscapeEntry:
		return NewEscapeTable(tv...)
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("%w: want escape table, got %T", ErrInvalidOption, v)
}

// ============================================================
// Default Registry
// ============================================================

var defaultRegistry = newDefaultRegistry()

func newDefaultRegistry() *Registry {
	r := NewRegistry(DefaultConfig())
	for _, v := range []*Var{
		VarNameToJSON, VarJSONToName, VarSymbolsPackage,
		VarStrictEscapeRules, VarEscapeTable, VarLogger,
	} {
		if err := r.Register(v.name, v); err != nil {
			panic(err)
		}
	}
	return r
}

// Default returns the process-wide registry used by the package-level
// functions.
func Default() *Registry { return defaultRegistry }

// Register binds key to v in the default registry.
func Register(key string, v *Var) error { return defaultRegistry.Register(key, v) }

// Resolve looks key up in the default registry.
func Resolve(key string) (*Var, bool) { return defaultRegistry.Resolve(key) }

// ApplyBulk sets options globally in the default registry.
func ApplyBulk(settings ...Setting) error { return defaultRegistry.ApplyBulk(settings...) }

// WithScopedOverrides runs body with settings in force in the default registry.
// See Registry.WithScopedOverrides.
func WithScopedOverrides(ctx context.Context, settings []Setting, body func(ctx context.Context) error) error {
	return defaultRegistry.WithScopedOverrides(ctx, settings, body)
}

// CurrentConfig returns the default registry's config in force for ctx.
func CurrentConfig(ctx context.Context) *Config { return defaultRegistry.Current(ctx) }

// Snapshot returns the bound options of the default registry.
func Snapshot(ctx context.Context) []Setting { return defaultRegistry.Snapshot(ctx) }
