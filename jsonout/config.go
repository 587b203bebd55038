package jsonout

import (
	"context"
	"log/slog"
)

// Option keys recognized by the default registry.
const (
	OptIdentifierNameToJSON = "identifier-name-to-json"
	OptJSONNameToIdentifier = "json-identifier-name-to-identifier"
	OptSymbolsPackage       = "symbols-package"
	OptStrictEscapeRules    = "strict-escape-rules"
	OptEscapeTable          = "escape-table"
	OptLogger               = "logger"
)

// Config is the encoder policy. A published Config is never mutated; the
// registry clones it for every change.
type Config struct {
	// NameToJSON maps symbol names to JSON strings (default: CamelCase).
	NameToJSON func(string) string

	// JSONToName is the decoder-side inverse (default: IdentifierCase).
	JSONToName func(string) string

	// SymbolsPackage is where decoded names are interned (default: Keyword).
	SymbolsPackage *Package

	// StrictEscapeRules rejects unknown escape letters when unescaping.
	StrictEscapeRules bool

	// EscapeTable controls string escaping (default: DefaultEscapeTable).
	EscapeTable *EscapeTable

	// Logger receives debug records for fallbacks and substitutions.
	Logger *slog.Logger
}

// DefaultConfig returns the built-in policy.
func DefaultConfig() *Config {
	return &Config{
		NameToJSON:        CamelCase,
		JSONToName:        IdentifierCase,
		SymbolsPackage:    Keyword,
		StrictEscapeRules: true,
		EscapeTable:       DefaultEscapeTable,
		Logger:            slog.New(slog.DiscardHandler),
	}
}

// Clone returns a shallow copy of c.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

func (c *Config) mapName(name string) string {
	if c.NameToJSON == nil {
		return CamelCase(name)
	}
	return c.NameToJSON(name)
}

func (c *Config) unmapName(name string) string {
	if c.JSONToName == nil {
		return IdentifierCase(name)
	}
	return c.JSONToName(name)
}

func (c *Config) escapeTable() *EscapeTable {
	if c.EscapeTable == nil {
		return DefaultEscapeTable
	}
	return c.EscapeTable
}

func (c *Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

func (c *Config) symbols() *Package {
	if c.SymbolsPackage == nil {
		return Keyword
	}
	return c.SymbolsPackage
}

// ============================================================
// Decoder-side helpers
// ============================================================

// Intern interns a JSON member name as a symbol: the name goes through the
// configured JSONToName mapping and lands in the configured symbols package.
func Intern(ctx context.Context, jsonName string) *Symbol {
	cfg := CurrentConfig(ctx)
	return cfg.symbols().Intern(cfg.unmapName(jsonName))
}

// UnescapeString unescapes a JSON string body with the configured escape
// table and strictness.
func UnescapeString(ctx context.Context, body string) (string, error) {
	cfg := CurrentConfig(ctx)
	return Unescape(body, cfg.escapeTable(), cfg.StrictEscapeRules)
}
