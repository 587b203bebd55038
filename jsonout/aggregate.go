package jsonout

import "fmt"

// ============================================================
// Aggregate Context
// ============================================================

type aggregateKind uint8

const (
	kindNone aggregateKind = iota
	kindArray
	kindObject
)

func (k aggregateKind) String() string {
	switch k {
	case kindArray:
		return "array"
	case kindObject:
		return "object"
	default:
		return "no aggregate"
	}
}

func (k aggregateKind) delimiters() (open, close byte) {
	if k == kindObject {
		return '{', '}'
	}
	return '[', ']'
}

// scope is one open aggregate. pending is set while a member has been
// started and its value not yet written.
type scope struct {
	kind    aggregateKind
	first   bool
	pending bool
}

func (e *Encoder) innermost() aggregateKind {
	if len(e.scopes) == 0 {
		return kindNone
	}
	return e.scopes[len(e.scopes)-1].kind
}

func (e *Encoder) begin(kind aggregateKind) {
	open, _ := kind.delimiters()
	e.out.writeByte(open)
	e.scopes = append(e.scopes, scope{kind: kind, first: true})
}

func (e *Encoder) end(kind aggregateKind) error {
	if got := e.innermost(); got != kind {
		return &ContextMismatchError{Op: "end " + kind.String(), Want: kind, Got: got}
	}
	_, close := kind.delimiters()
	e.out.writeByte(close)
	e.scopes = e.scopes[:len(e.scopes)-1]
	return nil
}

// check fails without writing anything when the innermost scope is not kind.
func (e *Encoder) check(op string, kind aggregateKind) error {
	if got := e.innermost(); got != kind {
		return &ContextMismatchError{Op: op, Want: kind, Got: got}
	}
	return e.ioErr()
}

// advance prepares the innermost scope for its next member, writing the
// separating comma when needed. It reports whether this is the first member.
func (e *Encoder) advance(op string, kind aggregateKind) (bool, error) {
	if err := e.check(op, kind); err != nil {
		return false, err
	}
	s := &e.scopes[len(e.scopes)-1]
	first := s.first
	if !first {
		e.out.writeByte(',')
	}
	s.first = false
	s.pending = true
	return first, nil
}

// slot claims the position the next value fills: the pending member of the
// innermost scope, or the single top-level value. It writes nothing when it
// fails.
func (e *Encoder) slot(op string) error {
	if len(e.scopes) == 0 {
		if e.rootUsed {
			return &ContextMismatchError{Op: op, Want: kindNone, Got: kindNone}
		}
		e.rootUsed = true
		return nil
	}
	s := &e.scopes[len(e.scopes)-1]
	if !s.pending {
		return &ContextMismatchError{Op: op, Want: s.kind, Got: s.kind}
	}
	s.pending = false
	return nil
}

// filled runs body as the value of the member just started in the scope at
// depth, and fails if body wrote no value.
func (e *Encoder) filled(op string, depth int, body func() error) error {
	if err := body(); err != nil {
		return err
	}
	if depth < len(e.scopes) && e.scopes[depth].pending {
		return fmt.Errorf("jsonout: %s: %w", op, ErrMissingValue)
	}
	return nil
}

// within writes kind's delimiters around body. The closing delimiter is
// written however body exits.
func (e *Encoder) within(kind aggregateKind, body func() error) (err error) {
	if err := e.ioErr(); err != nil {
		return err
	}
	if err := e.slot("begin " + kind.String()); err != nil {
		return err
	}
	e.begin(kind)
	defer func() {
		if cerr := e.end(kind); err == nil {
			err = cerr
		}
	}()
	return body()
}

// WithArray writes an array whose members are written by body.
func (e *Encoder) WithArray(body func() error) error {
	return e.within(kindArray, body)
}

// WithObject writes an object whose members are written by body.
func (e *Encoder) WithObject(body func() error) error {
	return e.within(kindObject, body)
}

// AsArrayMember starts the next member of the innermost array; body writes
// its value. It fails with a ContextMismatchError, writing nothing, unless
// the innermost open aggregate is an array. Body must write exactly one
// value.
func (e *Encoder) AsArrayMember(body func() error) error {
	const op = "array member"
	if _, err := e.advance(op, kindArray); err != nil {
		return err
	}
	return e.filled(op, len(e.scopes)-1, body)
}

// EncodeArrayMember encodes v as the next member of the innermost array.
func (e *Encoder) EncodeArrayMember(v any) error {
	return e.AsArrayMember(func() error { return e.encode(v) })
}

// AsObjectMember writes key and a colon as the next member of the innermost
// object; body writes the value. Keys are encoded and then quoted unless they
// already encode to a JSON string.
func (e *Encoder) AsObjectMember(key any, body func() error) error {
	const op = "object member"
	if err := e.check(op, kindObject); err != nil {
		return err
	}
	k, err := e.keyText(key)
	if err != nil {
		return err
	}
	return e.member(op, k, body)
}

// EncodeObjectMember encodes key and v as the next member of the innermost
// object.
func (e *Encoder) EncodeObjectMember(key, v any) error {
	return e.AsObjectMember(key, func() error { return e.encode(v) })
}

// member writes an already-quoted key and the value written by body.
func (e *Encoder) member(op string, key []byte, body func() error) error {
	if _, err := e.advance(op, kindObject); err != nil {
		return err
	}
	e.out.write(key)
	e.out.writeByte(':')
	return e.filled(op, len(e.scopes)-1, body)
}

// keyText encodes key as a quoted JSON string.
func (e *Encoder) keyText(key any) ([]byte, error) {
	if s, ok := key.(string); ok {
		return e.quote(nil, s), nil
	}
	b, err := e.stage(func(c *Encoder) error { return c.encode(key) })
	if err != nil {
		return nil, err
	}
	if isStringLiteral(b) {
		return b, nil
	}
	return e.quote(nil, string(b)), nil
}

// isStringLiteral reports whether b is exactly one well-formed JSON string.
func isStringLiteral(b []byte) bool {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return false
	}
	body := b[1 : len(b)-1]
	for i := 0; i < len(body); i++ {
		switch c := body[i]; {
		case c == '"', c < 0x20:
			return false
		case c == '\\':
			if i+1 >= len(body) {
				return false
			}
			i++
			switch body[i] {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
			case 'u':
				if i+4 >= len(body) {
					return false
				}
				for _, h := range body[i+1 : i+5] {
					if !isHex(h) {
						return false
					}
				}
				i += 4
			default:
				return false
			}
		}
	}
	return true
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
