package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"

	"github.com/Neumenon/jsonout/docload"
	"github.com/Neumenon/jsonout/jsonout"
)

type encodeFlags struct {
	format     string
	names      string
	symbolKeys bool
	strict     bool
	gzip       bool
	output     string
}

func newEncodeCmd(a *app) *cobra.Command {
	var f encodeFlags

	cmd := &cobra.Command{
		Use:   "encode [files...]",
		Short: "Encode JSON, YAML or TOML documents as canonical JSON",
		Long: `Encode reads every document in the given files (or stdin) and writes each
one as a single line of canonical JSON. Object members keep their source order;
values with no JSON form are written as strings unless --strict is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEncode(cmd, f, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.format, "format", "", "Input format: json, yaml, toml (default: from extension, json for stdin)")
	flags.StringVar(&f.names, "names", "", "Name mapper for symbol keys: camel-case, snake-case, identity, ...")
	flags.BoolVar(&f.symbolKeys, "symbol-keys", false, "Intern mapping keys as symbols so --names applies")
	flags.BoolVar(&f.strict, "strict", false, "Fail on values with no JSON form")
	flags.BoolVar(&f.gzip, "gzip", false, "Gzip the output")
	flags.StringVarP(&f.output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func (a *app) runEncode(cmd *cobra.Command, f encodeFlags, files []string) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if !f.strict {
		ctx = jsonout.WithFallback(ctx, func(e *jsonout.UnencodableValueError) bool {
			a.logger.Debug("substituting text", "op", e.Op, "type", fmt.Sprintf("%T", e.Value))
			return true
		})
	}

	var settings []jsonout.Setting
	if f.names != "" {
		settings = append(settings, jsonout.Setting{Key: jsonout.OptIdentifierNameToJSON, Value: f.names})
	}

	var out io.Writer = cmd.OutOrStdout()
	if f.output != "" {
		file, err := os.Create(f.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() {
			if cerr := file.Close(); err == nil && cerr != nil {
				err = fmt.Errorf("close output: %w", cerr)
			}
		}()
		out = file
	}

	var zw *gzip.Writer
	if f.gzip {
		zw = gzip.NewWriter(out)
		out = zw
	}
	bw := bufio.NewWriter(out)

	err = jsonout.WithScopedOverrides(ctx, settings, func(ctx context.Context) error {
		if len(files) == 0 {
			format := docload.FormatJSON
			if f.format != "" {
				parsed, err := docload.ParseFormat(f.format)
				if err != nil {
					return err
				}
				format = parsed
			}
			return a.encodeStream(ctx, bw, cmd.InOrStdin(), "stdin", format, f)
		}
		for _, path := range files {
			if err := a.encodeFile(ctx, bw, path, f); err != nil {
				return err
			}
		}
		return nil
	})

	if ferr := bw.Flush(); err == nil && ferr != nil {
		err = fmt.Errorf("flush output: %w", ferr)
	}
	if zw != nil {
		if zerr := zw.Close(); err == nil && zerr != nil {
			err = fmt.Errorf("close gzip: %w", zerr)
		}
	}
	return err
}

func (a *app) encodeFile(ctx context.Context, w io.Writer, path string, f encodeFlags) error {
	var (
		format docload.Format
		err    error
	)
	if f.format != "" {
		format, err = docload.ParseFormat(f.format)
	} else {
		format, err = docload.FormatFromPath(path)
	}
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	return a.encodeStream(ctx, w, file, path, format, f)
}

func (a *app) encodeStream(ctx context.Context, w io.Writer, r io.Reader, name string, format docload.Format, f encodeFlags) error {
	docs, err := docload.Load(ctx, r, format, docload.Options{SymbolKeys: f.symbolKeys})
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	a.logger.Debug("loaded documents", "input", name, "format", format, "count", len(docs))

	for i, doc := range docs {
		if err := jsonout.NewEncoder(ctx, w).Encode(doc); err != nil {
			return fmt.Errorf("%s: document %d: %w", name, i, err)
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}
