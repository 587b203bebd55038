// Package jsonout implements a streaming encoder from Go values to compact
// JSON text, with a registry of options controlling how names are mapped,
// how strings are escaped and where symbols are interned.
//
// jsonout is designed to be:
//   - Well-formed under failure (every opened aggregate is closed)
//   - Unambiguous (a List becomes an array or an object, never a mix)
//   - Configurable per call without leaking policy between calls
//   - Canonical (compact output, sorted map keys, fixed-point numbers)
//
// # Values
//
// Scalars: nil, bool, integers, floats, json.Number, string, Char
// Names:   *Symbol (True, False and Null are literal tokens)
// Objects: Go maps, Alist, Plist, Encodable implementations
// Arrays:  Go slices and arrays
// Either:  List (array first, pairs when an element is a dotted Pair)
//
// # Aggregates
//
// Encodable implementations and other callers write aggregates with the
// encoder's primitives:
//
//	err := e.WithObject(func() error {
//	    if err := e.EncodeObjectMember("id", 7); err != nil {
//	        return err
//	    }
//	    return e.AsObjectMember("tags", func() error {
//	        return e.WithArray(func() error {
//	            return e.EncodeArrayMember("new")
//	        })
//	    })
//	})
//
// Member primitives fail with a ContextMismatchError, writing nothing, when
// the innermost open aggregate is of the other kind.
//
// # Options
//
// Options are set globally with ApplyBulk or for the extent of a function
// with WithScopedOverrides:
//
//	err := jsonout.WithScopedOverrides(ctx, []jsonout.Setting{
//	    {Key: jsonout.OptIdentifierNameToJSON, Value: "snake-case"},
//	}, func(ctx context.Context) error {
//	    out, err := jsonout.EncodeContext(ctx, jsonout.Keyword.Intern("max-size"))
//	    ...
//	})
//
// # Unencodable Values
//
// Values no strategy accepts fail with an UnencodableValueError. A Fallback
// installed with WithFallback can substitute the value's text instead.
package jsonout
