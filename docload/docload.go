// Package docload loads JSON, YAML and TOML documents into values the
// jsonout encoder understands. Object member order is kept where the source
// format defines one: JSON and YAML mappings become jsonout.Alist values.
package docload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Neumenon/jsonout/jsonout"
)

// ErrUnknownFormat is returned for unrecognized format names and file
// extensions.
var ErrUnknownFormat = errors.New("unknown document format")

// Format identifies a document syntax.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ParseFormat parses a format name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "json", "ndjson":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnknownFormat, path)
	}
	return ParseFormat(ext)
}

// Options configures loading.
type Options struct {
	// SymbolKeys interns mapping keys as symbols (through the configured
	// JSON-to-identifier mapping and symbols package) instead of keeping them
	// as strings, so the encoder's name mapping applies to them.
	SymbolKeys bool
}

// Load reads every document in r.
func Load(ctx context.Context, r io.Reader, format Format, opts Options) ([]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s input: %w", format, err)
	}
	return LoadBytes(ctx, data, format, opts)
}

// LoadBytes parses every document in data.
func LoadBytes(ctx context.Context, data []byte, format Format, opts Options) ([]any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	l := &loader{ctx: ctx, opts: opts}

	switch format {
	case FormatJSON:
		return l.loadJSON(data)
	case FormatYAML:
		return l.loadYAML(data)
	case FormatTOML:
		doc, err := l.loadTOML(data)
		if err != nil {
			return nil, err
		}
		return []any{doc}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

type loader struct {
	ctx  context.Context
	opts Options
}

// key returns a mapping key as a string or an interned symbol.
func (l *loader) key(k string) any {
	if l.opts.SymbolKeys {
		return jsonout.Intern(l.ctx, k)
	}
	return k
}
