package jsonout

import (
	"sort"
	"sync"
)

// ============================================================
// Symbols
// ============================================================

// Symbol is an interned name. Two symbols are the same symbol exactly when
// they are the same pointer, which only happens for equal names interned in
// the same Package.
type Symbol struct {
	name string
	pkg  *Package
}

// Name returns the symbol's spelling.
func (s *Symbol) Name() string { return s.name }

// Package returns the package the symbol was interned in.
func (s *Symbol) Package() *Package { return s.pkg }

// String returns "package:name".
func (s *Symbol) String() string {
	if s.pkg == nil {
		return s.name
	}
	return s.pkg.name + ":" + s.name
}

// Package is an interning scope for symbols. It is safe for concurrent use.
type Package struct {
	name string

	mu      sync.RWMutex
	symbols map[string]*Symbol
}

// NewPackage creates an empty package. It is not registered; use
// RegisterPackage to make it resolvable by name.
func NewPackage(name string) *Package {
	return &Package{name: name, symbols: make(map[string]*Symbol)}
}

// Name returns the package name.
func (p *Package) Name() string { return p.name }

// Intern returns the symbol named name, creating it on first use.
func (p *Package) Intern(name string) *Symbol {
	p.mu.RLock()
	s, ok := p.symbols[name]
	p.mu.RUnlock()
	if ok {
		return s
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.symbols[name]; ok {
		return s
	}
	s = &Symbol{name: name, pkg: p}
	p.symbols[name] = s
	return s
}

// Find returns the symbol named name if it has been interned.
func (p *Package) Find(name string) (*Symbol, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.symbols[name]
	return s, ok
}

// Symbols returns the interned symbols sorted by name.
func (p *Package) Symbols() []*Symbol {
	p.mu.RLock()
	out := make([]*Symbol, 0, len(p.symbols))
	for _, s := range p.symbols {
		out = append(out, s)
	}
	p.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Well-known packages.
var (
	// Keyword is the default symbols package.
	Keyword = NewPackage("keyword")

	literals = NewPackage("json")
)

// Literal tokens. These encode as bare true, false and null.
var (
	True  = literals.Intern("true")
	False = literals.Intern("false")
	Null  = literals.Intern("null")
)

var literalTokens = map[*Symbol]string{
	True:  "true",
	False: "false",
	Null:  "null",
}

// ============================================================
// Package Table
// ============================================================

var (
	packagesMu sync.RWMutex
	packages   = map[string]*Package{
		Keyword.name:  Keyword,
		literals.name: literals,
	}
)

// RegisterPackage makes p resolvable by name, for example from an option file
// setting symbols-package. Registering a second package under the same name
// replaces the first.
func RegisterPackage(p *Package) {
	packagesMu.Lock()
	defer packagesMu.Unlock()
	packages[p.name] = p
}

// FindPackage returns the registered package named name.
func FindPackage(name string) (*Package, bool) {
	packagesMu.RLock()
	defer packagesMu.RUnlock()
	p, ok := packages[name]
	return p, ok
}
