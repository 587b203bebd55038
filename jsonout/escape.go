package jsonout

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// ============================================================
// Escape Tables
// ============================================================

// EscapeEntry is one row of an EscapeTable. A literal entry maps Char to a
// backslash followed by Letter. A numeric entry (Width > 0) renders any code
// point as backslash, Letter and Width digits in Radix.
type EscapeEntry struct {
	Char   rune
	Letter byte
	Width  int
	Radix  int
}

func (e EscapeEntry) numeric() bool { return e.Width > 0 }

// EscapeTable maps characters to escape sequences. Literal entries take
// precedence over the numeric entry. Tables are immutable.
type EscapeTable struct {
	entries []EscapeEntry
	literal map[rune]byte
	reverse map[byte]rune
	numeric *EscapeEntry
}

// NewEscapeTable builds a table from entries in priority order. Exactly one
// numeric entry is required so every character has an escape form.
func NewEscapeTable(entries ...EscapeEntry) (*EscapeTable, error) {
	t := &EscapeTable{
		entries: append([]EscapeEntry(nil), entries...),
		literal: make(map[rune]byte),
		reverse: make(map[byte]rune),
	}
	for i := range t.entries {
		e := t.entries[i]
		if e.numeric() {
			if t.numeric != nil {
				return nil, fmt.Errorf("%w: escape table has more than one numeric entry", ErrInvalidOption)
			}
			if e.Radix < 2 || e.Radix > 36 {
				return nil, fmt.Errorf("%w: escape radix %d", ErrInvalidOption, e.Radix)
			}
			t.numeric = &t.entries[i]
			t.reverse[e.Letter] = -1
			continue
		}
		if _, dup := t.literal[e.Char]; dup {
			continue
		}
		t.literal[e.Char] = e.Letter
		if _, dup := t.reverse[e.Letter]; !dup {
			t.reverse[e.Letter] = e.Char
		}
	}
	if t.numeric == nil {
		return nil, fmt.Errorf("%w: escape table has no numeric entry", ErrInvalidOption)
	}
	return t, nil
}

// MustEscapeTable is like NewEscapeTable but panics on error.
func MustEscapeTable(entries ...EscapeEntry) *EscapeTable {
	t, err := NewEscapeTable(entries...)
	if err != nil {
		panic(err)
	}
	return t
}

// Entries returns a copy of the table rows.
func (t *EscapeTable) Entries() []EscapeEntry {
	return append([]EscapeEntry(nil), t.entries...)
}

// DefaultEscapeTable is the JSON escape table.
var DefaultEscapeTable = MustEscapeTable(
	EscapeEntry{Char: '"', Letter: '"'},
	EscapeEntry{Char: '\\', Letter: '\\'},
	EscapeEntry{Char: '\b', Letter: 'b'},
	EscapeEntry{Char: '\f', Letter: 'f'},
	EscapeEntry{Char: '\n', Letter: 'n'},
	EscapeEntry{Char: '\r', Letter: 'r'},
	EscapeEntry{Char: '\t', Letter: 't'},
	EscapeEntry{Letter: 'u', Width: 4, Radix: 16},
)

// ============================================================
// Escaping
// ============================================================

// Escape returns the escaped body of s without surrounding quotes.
func Escape(s string, table *EscapeTable) string {
	return string(AppendEscaped(nil, s, table))
}

// AppendEscaped appends the escaped body of s to dst.
func AppendEscaped(dst []byte, s string, table *EscapeTable) []byte {
	if table == nil {
		table = DefaultEscapeTable
	}
	for _, r := range s {
		if letter, ok := table.literal[r]; ok {
			dst = append(dst, '\\', letter)
			continue
		}
		if r >= 0x20 && r <= 0x7e {
			dst = append(dst, byte(r))
			continue
		}
		dst = table.appendNumeric(dst, r)
	}
	return dst
}

func (t *EscapeTable) appendNumeric(dst []byte, r rune) []byte {
	// Code points too wide for the entry go out as a surrogate pair.
	if r > 0xffff && !t.fits(r) {
		if hi, lo := utf16.EncodeRune(r); hi != utf8.RuneError && t.fits(hi) && t.fits(lo) {
			dst = t.appendDigits(dst, hi)
			return t.appendDigits(dst, lo)
		}
	}
	return t.appendDigits(dst, r)
}

func (t *EscapeTable) fits(r rune) bool {
	return len(strconv.FormatInt(int64(r), t.numeric.Radix)) <= t.numeric.Width
}

func (t *EscapeTable) appendDigits(dst []byte, r rune) []byte {
	n := t.numeric
	digits := strings.ToUpper(strconv.FormatInt(int64(r), n.Radix))
	dst = append(dst, '\\', n.Letter)
	for i := len(digits); i < n.Width; i++ {
		dst = append(dst, '0')
	}
	return append(dst, digits...)
}

// ============================================================
// Unescaping
// ============================================================

// Unescape reverses Escape for an escaped string body. With strict set, an
// escape letter missing from the table is an error; otherwise the letter
// stands for itself.
func Unescape(body string, table *EscapeTable, strict bool) (string, error) {
	if table == nil {
		table = DefaultEscapeTable
	}
	if strings.IndexByte(body, '\\') < 0 {
		return body, nil
	}

	var b strings.Builder
	b.Grow(len(body))
	var pending rune = -1 // high surrogate awaiting its pair

	flush := func() {
		if pending >= 0 {
			b.WriteRune(utf8.RuneError)
			pending = -1
		}
	}

	for i := 0; i < len(body); {
		c := body[i]
		if c != '\\' {
			flush()
			r, size := utf8.DecodeRuneInString(body[i:])
			b.WriteRune(r)
			i += size
			continue
		}
		if i+1 >= len(body) {
			return "", fmt.Errorf("%w: trailing backslash at offset %d", ErrInvalidEscape, i)
		}

		letter := body[i+1]
		ch, known := table.reverse[letter]
		switch {
		case known && ch == -1:
			r, err := table.parseDigits(body, i)
			if err != nil {
				return "", err
			}
			i += 2 + table.numeric.Width
			if utf16.IsSurrogate(r) {
				if pending >= 0 {
					if dec := utf16.DecodeRune(pending, r); dec != utf8.RuneError {
						b.WriteRune(dec)
						pending = -1
						continue
					}
					flush()
				}
				pending = r
				continue
			}
			flush()
			b.WriteRune(r)
		case known:
			flush()
			b.WriteRune(ch)
			i += 2
		case letter == '/':
			flush()
			b.WriteByte('/')
			i += 2
		case strict:
			return "", fmt.Errorf("%w: \\%c at offset %d", ErrInvalidEscape, letter, i)
		default:
			flush()
			b.WriteByte(letter)
			i += 2
		}
	}
	flush()
	return b.String(), nil
}

func (t *EscapeTable) parseDigits(body string, at int) (rune, error) {
	n := t.numeric
	start := at + 2
	end := start + n.Width
	if end > len(body) {
		return 0, fmt.Errorf("%w: short \\%c escape at offset %d", ErrInvalidEscape, n.Letter, at)
	}
	v, err := strconv.ParseUint(body[start:end], n.Radix, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: \\%c%s at offset %d", ErrInvalidEscape, n.Letter, body[start:end], at)
	}
	return rune(v), nil
}
