package docload

import (
	"fmt"
	"sort"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/Neumenon/jsonout/jsonout"
)

// ============================================================
// TOML
// ============================================================
//
// TOML tables have no defined key order once decoded; they become Alists
// sorted by key. Date and time values are kept as decoded and rely on the
// encoder's fallback for their text.

func (l *loader) loadTOML(data []byte) (any, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("toml: %w", err)
	}
	return l.fromTOML(doc), nil
}

func (l *loader) fromTOML(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(tv))
		for k := range tv {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		obj := make(jsonout.Alist, 0, len(keys))
		for _, k := range keys {
			obj = append(obj, jsonout.Cons(l.key(k), l.fromTOML(tv[k])))
		}
		return obj

	case []any:
		items := make([]any, len(tv))
		for i, item := range tv {
			items[i] = l.fromTOML(item)
		}
		return items

	default:
		return v
	}
}
