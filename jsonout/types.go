package jsonout

// ============================================================
// Value Model
// ============================================================
//
// Besides ordinary Go values (numbers, strings, bools, maps, slices), the
// encoder understands a few types that carry JSON shape explicitly:
//
//	Char   - one character, encoded as a one-character string
//	*Symbol - an interned name, encoded through the name mapping
//	Pair   - a key and a value
//	List   - ordered elements that may be an array or a list of pairs
//	Alist  - pairs that always encode as an object
//	Plist  - alternating keys and values that always encode as an object

// Char is a single character.
type Char rune

// Pair is a key/value cell. A Pair whose Value is a List is a proper list
// (Key followed by the List's elements); any other Pair is dotted and can
// only appear as an object member.
type Pair struct {
	Key   any
	Value any
}

// Cons returns the pair (key, value).
func Cons(key, value any) Pair {
	return Pair{Key: key, Value: value}
}

// tail returns the list continuing the pair, if the pair is proper.
func (p Pair) tail() (List, bool) {
	l, ok := p.Value.(List)
	return l, ok
}

// list returns the pair as a proper list. Callers check tail first.
func (p Pair) list() List {
	t, _ := p.tail()
	out := make(List, 0, len(t)+1)
	out = append(out, p.Key)
	return append(out, t...)
}

// List is an ordered collection whose JSON shape is decided while encoding:
// an array when every element is an array member, otherwise an object when
// every element is a Pair.
type List []any

// Alist is an association list. It always encodes as an object, in order.
type Alist []Pair

// Plist is a property list of alternating keys and values. It always encodes
// as an object, in order.
type Plist []any

// Encodable is implemented by values that write themselves using the
// encoder's primitives. EncodeJSON must write exactly one JSON value.
type Encodable interface {
	EncodeJSON(e *Encoder) error
}
