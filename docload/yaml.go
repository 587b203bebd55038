package docload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Neumenon/jsonout/jsonout"
)

// ============================================================
// YAML
// ============================================================

func (l *loader) loadYAML(data []byte) ([]any, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var docs []any
	for {
		var node yaml.Node
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				return docs, nil
			}
			return nil, fmt.Errorf("yaml document %d: %w", len(docs), err)
		}
		v, err := l.fromNode(&node)
		if err != nil {
			return nil, fmt.Errorf("yaml document %d: %w", len(docs), err)
		}
		docs = append(docs, v)
	}
}

func (l *loader) fromNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return l.fromNode(n.Content[0])

	case yaml.AliasNode:
		return l.fromNode(n.Alias)

	case yaml.SequenceNode:
		items := make([]any, 0, len(n.Content))
		for i, child := range n.Content {
			v, err := l.fromNode(child)
			if err != nil {
				return nil, fmt.Errorf("sequence[%d]: %w", i, err)
			}
			items = append(items, v)
		}
		return items, nil

	case yaml.MappingNode:
		return l.fromMapping(n)

	case yaml.ScalarNode:
		return scalar(n)

	default:
		return nil, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
	}
}

// fromMapping converts a mapping. Keys set by "<<" merges keep the merge's
// position; keys the mapping sets itself win over merged ones, and earlier
// merge sources win over later ones.
func (l *loader) fromMapping(n *yaml.Node) (jsonout.Alist, error) {
	explicit := make(map[any]bool)
	for i := 0; i+1 < len(n.Content); i += 2 {
		if k := n.Content[i]; k.Kind == yaml.ScalarNode && k.ShortTag() != "!!merge" {
			explicit[l.key(k.Value)] = true
		}
	}

	obj := make(jsonout.Alist, 0, len(n.Content)/2)
	merged := make(map[any]bool)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]

		if k.ShortTag() == "!!merge" {
			sources, err := l.mergeSources(v)
			if err != nil {
				return nil, fmt.Errorf("merge at line %d: %w", k.Line, err)
			}
			for _, src := range sources {
				for _, p := range src {
					id, ok := mergeKey(p.Key)
					if ok && (explicit[id] || merged[id]) {
						continue
					}
					if ok {
						merged[id] = true
					}
					obj = append(obj, p)
				}
			}
			continue
		}

		var key any
		if k.Kind == yaml.ScalarNode {
			key = l.key(k.Value)
		} else {
			ck, err := l.fromNode(k)
			if err != nil {
				return nil, fmt.Errorf("mapping key at line %d: %w", k.Line, err)
			}
			key = ck
		}

		val, err := l.fromNode(v)
		if err != nil {
			return nil, fmt.Errorf("mapping[%s]: %w", k.Value, err)
		}
		obj = append(obj, jsonout.Cons(key, val))
	}
	return obj, nil
}

// mergeSources returns the mappings named by a merge value: one mapping or a
// sequence of them.
func (l *loader) mergeSources(v *yaml.Node) ([]jsonout.Alist, error) {
	node := v
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}

	items := []*yaml.Node{v}
	if node.Kind == yaml.SequenceNode {
		items = node.Content
	}

	sources := make([]jsonout.Alist, 0, len(items))
	for _, item := range items {
		m, err := l.fromNode(item)
		if err != nil {
			return nil, err
		}
		al, ok := m.(jsonout.Alist)
		if !ok {
			return nil, fmt.Errorf("line %d: not a mapping", item.Line)
		}
		sources = append(sources, al)
	}
	return sources, nil
}

// mergeKey returns k as a map key when it can be compared.
func mergeKey(k any) (any, bool) {
	switch k.(type) {
	case string, *jsonout.Symbol:
		return k, true
	}
	return nil, false
}

func scalar(n *yaml.Node) (any, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return b, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return i, nil
		}
		var u uint64
		if err := n.Decode(&u); err != nil {
			return nil, err
		}
		return u, nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return f, nil
	case "!!timestamp":
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return nil, err
		}
		return t, nil
	default:
		return n.Value, nil
	}
}
