package jsonout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ============================================================
// Entry Points
// ============================================================

// Encode returns the compact JSON text of v using the global config.
func Encode(v any) (string, error) {
	return EncodeContext(context.Background(), v)
}

// EncodeContext is like Encode with the config and fallback in force for ctx.
func EncodeContext(ctx context.Context, v any) (string, error) {
	var sb strings.Builder
	if err := EncodeToContext(ctx, &sb, v); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// EncodeTo writes the compact JSON text of v to w.
func EncodeTo(w io.Writer, v any) error {
	return EncodeToContext(context.Background(), w, v)
}

// EncodeToContext is like EncodeTo with the config and fallback in force for
// ctx.
func EncodeToContext(ctx context.Context, w io.Writer, v any) error {
	return NewEncoder(ctx, w).Encode(v)
}

// EncodeAlist encodes pairs as an object, in order.
func EncodeAlist(pairs ...Pair) (string, error) {
	return Encode(Alist(pairs))
}

// EncodeAlistTo writes pairs to w as an object, in order.
func EncodeAlistTo(w io.Writer, pairs ...Pair) error {
	return EncodeTo(w, Alist(pairs))
}

// EncodePlist encodes alternating keys and values as an object, in order.
func EncodePlist(kv ...any) (string, error) {
	return Encode(Plist(kv))
}

// EncodePlistTo writes alternating keys and values to w as an object.
func EncodePlistTo(w io.Writer, kv ...any) error {
	return EncodeTo(w, Plist(kv))
}

// NewEncoder returns an encoder writing to w with the default registry's
// config and the fallback in force for ctx.
func NewEncoder(ctx context.Context, w io.Writer) *Encoder {
	return defaultRegistry.NewEncoder(ctx, w)
}

// ============================================================
// Encoder
// ============================================================

// Encoder writes JSON to a sink. It owns its scope stack and must not be
// shared between goroutines.
type Encoder struct {
	out      sink
	cfg      *Config
	fallback Fallback
	scopes   []scope
	scratch  []byte

	rootUsed bool // a top-level value has been started
	active   bool // inside a top-level Encode call
}

func newEncoder(w io.Writer, cfg *Config, fallback Fallback) *Encoder {
	return &Encoder{out: sink{w: w}, cfg: cfg, fallback: fallback}
}

// Config returns the policy the encoder was created with.
func (e *Encoder) Config() *Config { return e.cfg }

// Encode writes v as the next JSON value. Inside an aggregate it must be
// called from a member body. Each top-level call writes exactly one value.
func (e *Encoder) Encode(v any) error {
	if len(e.scopes) > 0 || e.active {
		if err := e.encode(v); err != nil {
			return err
		}
		return e.ioErr()
	}

	e.active, e.rootUsed = true, false
	defer func() { e.active = false }()
	if err := e.encode(v); err != nil {
		return err
	}
	if !e.rootUsed {
		return fmt.Errorf("jsonout: encode: %w", ErrMissingValue)
	}
	return e.ioErr()
}

// sink records the first write error and drops later writes.
type sink struct {
	w   io.Writer
	err error
}

func (s *sink) write(p []byte) {
	if s.err == nil {
		_, s.err = s.w.Write(p)
	}
}

func (s *sink) writeString(str string) {
	if s.err == nil {
		_, s.err = io.WriteString(s.w, str)
	}
}

func (s *sink) writeByte(c byte) {
	if s.err != nil {
		return
	}
	if bw, ok := s.w.(io.ByteWriter); ok {
		s.err = bw.WriteByte(c)
		return
	}
	_, s.err = s.w.Write([]byte{c})
}

func (e *Encoder) ioErr() error {
	if e.out.err != nil {
		return fmt.Errorf("jsonout: write: %w", e.out.err)
	}
	return nil
}

// stage runs fn against a child encoder writing to a scratch buffer. The
// child shares config and fallback but starts with no open aggregate, and fn
// must write exactly one value.
func (e *Encoder) stage(fn func(c *Encoder) error) ([]byte, error) {
	var buf bytes.Buffer
	c := newEncoder(&buf, e.cfg, e.fallback)
	c.active = true
	if err := fn(c); err != nil {
		return nil, err
	}
	if !c.rootUsed {
		return nil, fmt.Errorf("jsonout: stage: %w", ErrMissingValue)
	}
	return buf.Bytes(), nil
}

// commit writes a value staged by a child encoder.
func (e *Encoder) commit(op string, b []byte) error {
	if err := e.slot(op); err != nil {
		return err
	}
	e.out.write(b)
	return nil
}

// ============================================================
// Dispatch
// ============================================================

func (e *Encoder) encode(v any) error {
	if v == nil {
		return e.writeNull()
	}
	if enc, ok := v.(Encodable); ok {
		if isNilPointer(v) {
			return e.writeNull()
		}
		return enc.EncodeJSON(e)
	}

	switch tv := v.(type) {
	case bool:
		return e.writeBool(tv)
	case int:
		return e.writeInt(int64(tv))
	case int64:
		return e.writeInt(tv)
	case float64:
		return e.writeFloat(v, tv, 64)
	case json.Number:
		return e.writeNumber(tv)
	case string:
		return e.writeString(tv)
	case Char:
		return e.writeString(string(rune(tv)))
	case *Symbol:
		if tv == nil {
			return e.writeNull()
		}
		return e.writeSymbol(tv)
	case Alist:
		return e.encodeAlist(tv)
	case []Pair:
		return e.encodeAlist(tv)
	case Plist:
		return e.encodePlist(tv)
	case Pair:
		if _, ok := tv.tail(); ok {
			return e.encodeList(tv.list())
		}
		return e.unencodable(tv, "encode pair")
	case List:
		return e.encodeList(tv)
	case []any:
		return e.encodeSlice(reflect.ValueOf(tv))
	default:
		return e.encodeReflect(v, reflect.ValueOf(v))
	}
}

func (e *Encoder) encodeReflect(v any, rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Bool:
		return e.writeBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return e.writeInt(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if err := e.slot("encode"); err != nil {
			return err
		}
		e.scratch = strconv.AppendUint(e.scratch[:0], rv.Uint(), 10)
		e.out.write(e.scratch)
		return nil
	case reflect.Float32:
		return e.writeFloat(v, rv.Float(), 32)
	case reflect.Float64:
		return e.writeFloat(v, rv.Float(), 64)
	case reflect.String:
		return e.writeString(rv.String())
	case reflect.Map:
		if rv.IsNil() {
			return e.writeNull()
		}
		return e.encodeMap(rv)
	case reflect.Slice:
		if rv.IsNil() {
			return e.writeNull()
		}
		return e.encodeSlice(rv)
	case reflect.Array:
		return e.encodeSlice(rv)
	case reflect.Pointer:
		if rv.IsNil() {
			return e.writeNull()
		}
		return e.encode(rv.Elem().Interface())
	default:
		// Complex numbers, structs, channels and functions.
		return e.unencodable(v, "encode")
	}
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// ============================================================
// Scalars
// ============================================================

// writeToken writes a bare literal value.
func (e *Encoder) writeToken(tok string) error {
	if err := e.slot("encode"); err != nil {
		return err
	}
	e.out.writeString(tok)
	return nil
}

func (e *Encoder) writeNull() error { return e.writeToken("null") }

func (e *Encoder) writeBool(b bool) error {
	if b {
		return e.writeToken("true")
	}
	return e.writeToken("false")
}

func (e *Encoder) writeInt(n int64) error {
	if err := e.slot("encode"); err != nil {
		return err
	}
	e.scratch = strconv.AppendInt(e.scratch[:0], n, 10)
	e.out.write(e.scratch)
	return nil
}

// writeFloat writes f in fixed-point notation. Integral values keep a ".0"
// so they stay distinguishable from integers.
func (e *Encoder) writeFloat(v any, f float64, bits int) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return e.unencodable(v, "encode float")
	}
	if err := e.slot("encode"); err != nil {
		return err
	}
	e.scratch = strconv.AppendFloat(e.scratch[:0], f, 'f', -1, bits)
	if bytes.IndexByte(e.scratch, '.') < 0 {
		e.scratch = append(e.scratch, '.', '0')
	}
	e.out.write(e.scratch)
	return nil
}

func (e *Encoder) writeNumber(n json.Number) error {
	s := string(n)
	if isIntegerLiteral(s) {
		return e.writeToken(s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return e.unencodable(n, "encode number")
	}
	return e.writeFloat(n, f, 64)
}

// isIntegerLiteral reports a JSON integer: optional minus, no leading zeros.
func isIntegerLiteral(s string) bool {
	if strings.HasPrefix(s, "-") {
		s = s[1:]
	}
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (e *Encoder) writeString(s string) error {
	if err := e.slot("encode"); err != nil {
		return err
	}
	e.scratch = e.quote(e.scratch[:0], s)
	e.out.write(e.scratch)
	return nil
}

// quote appends s as a quoted, escaped JSON string.
func (e *Encoder) quote(dst []byte, s string) []byte {
	dst = append(dst, '"')
	dst = AppendEscaped(dst, s, e.cfg.escapeTable())
	return append(dst, '"')
}

// writeSymbol writes a literal token, or the mapped name as a string.
func (e *Encoder) writeSymbol(s *Symbol) error {
	if lit, ok := literalTokens[s]; ok {
		return e.writeToken(lit)
	}
	return e.writeString(e.cfg.mapName(s.name))
}

// ============================================================
// Aggregates
// ============================================================

func (e *Encoder) encodeSlice(rv reflect.Value) error {
	return e.WithArray(func() error {
		for i := 0; i < rv.Len(); i++ {
			if err := e.EncodeArrayMember(rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		return nil
	})
}

type mapEntry struct {
	key []byte
	val reflect.Value
}

// encodeMap writes a Go map as an object with members sorted by key text.
// Keys are staged first so a failing key writes nothing.
func (e *Encoder) encodeMap(rv reflect.Value) error {
	entries := make([]mapEntry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k, err := e.keyText(iter.Key().Interface())
		if err != nil {
			return err
		}
		entries = append(entries, mapEntry{key: k, val: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].key, entries[j].key) < 0
	})

	return e.WithObject(func() error {
		for _, ent := range entries {
			val := ent.val.Interface()
			if err := e.member("map member", ent.key, func() error { return e.encode(val) }); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Encoder) encodeAlist(al Alist) error {
	return e.WithObject(func() error {
		for _, p := range al {
			if err := e.EncodeObjectMember(p.Key, p.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Encoder) encodePlist(pl Plist) error {
	if len(pl)%2 != 0 {
		return e.unencodable(pl, "encode plist")
	}
	return e.WithObject(func() error {
		for i := 0; i < len(pl); i += 2 {
			if err := e.EncodeObjectMember(pl[i], pl[i+1]); err != nil {
				return err
			}
		}
		return nil
	})
}

// ============================================================
// Unencodable Values
// ============================================================

// unencodable reports v, or writes its text instead when the fallback
// chooses substitution.
func (e *Encoder) unencodable(v any, op string) error {
	uerr := &UnencodableValueError{Value: v, Op: op}
	if e.fallback == nil || !e.fallback(uerr) {
		return uerr
	}
	e.cfg.logger().Debug("substituting text for unencodable value",
		"op", op, "type", fmt.Sprintf("%T", v))
	return e.writeString(textOf(v))
}
