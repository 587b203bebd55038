package jsonout

import (
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/huandu/xstrings"
)

// ============================================================
// Name Mapping
// ============================================================
//
// Identifiers use dash-separated words ("max-size"). Two wrappers are
// recognized: *global-name* for capitalized names and +const-name+ for
// constants.
//
//	max-size      <-> maxSize
//	*max-size*    <-> MaxSize
//	+max-size+    <-> MAX_SIZE

// CamelCase maps an identifier to its JSON camelCase spelling. Dashes,
// underscores and spaces separate words; all-caps words are read
// case-insensitively.
func CamelCase(name string) string {
	if len(name) > 2 && name[0] == '+' && name[len(name)-1] == '+' {
		return strings.ToUpper(xstrings.ToSnakeCase(name[1 : len(name)-1]))
	}
	if len(name) > 2 && name[0] == '*' && name[len(name)-1] == '*' {
		return xstrings.ToPascalCase(name[1 : len(name)-1])
	}
	return xstrings.ToCamelCase(name)
}

// IdentifierCase maps a JSON camelCase name back to identifier spelling.
// It is the decoder-side inverse of CamelCase.
func IdentifierCase(name string) string {
	if name == "" {
		return ""
	}
	words := xstrings.ToKebabCase(name)
	if isConstantCase(name) {
		return "+" + words + "+"
	}
	if first, _ := utf8.DecodeRuneInString(name); unicode.IsUpper(first) {
		return "*" + words + "*"
	}
	return words
}

// SnakeCase maps an identifier to lower snake_case.
func SnakeCase(name string) string {
	return xstrings.ToSnakeCase(strings.Trim(name, "*+"))
}

// Identity returns name unchanged.
func Identity(name string) string { return name }

// isConstantCase reports names like MAX_SIZE: no lower-case letters, at least
// two characters and at least one letter.
func isConstantCase(s string) bool {
	if len(s) < 2 {
		return false
	}
	letter := false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			letter = true
		case unicode.IsDigit(r), r == '_':
		default:
			return false
		}
	}
	return letter
}

// ============================================================
// Named Mappers
// ============================================================

var (
	mappersMu sync.RWMutex
	mappers   = map[string]func(string) string{
		"camel-case":      CamelCase,
		"identifier-case": IdentifierCase,
		"snake-case":      SnakeCase,
		"identity":        Identity,
	}
)

// RegisterNameMapper makes fn selectable by name in option files.
func RegisterNameMapper(name string, fn func(string) string) {
	mappersMu.Lock()
	defer mappersMu.Unlock()
	mappers[name] = fn
}

// NameMapper returns the mapping function registered under name.
func NameMapper(name string) (func(string) string, bool) {
	mappersMu.RLock()
	defer mappersMu.RUnlock()
	fn, ok := mappers[name]
	return fn, ok
}

// NameMapperNames returns the registered mapper names, sorted.
func NameMapperNames() []string {
	mappersMu.RLock()
	defer mappersMu.RUnlock()
	names := make([]string, 0, len(mappers))
	for name := range mappers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
