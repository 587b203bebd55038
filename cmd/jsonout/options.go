package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Neumenon/jsonout/jsonout"
)

func newOptionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "Print the encoder options in force",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			obj := jsonout.Alist{}
			for _, s := range jsonout.Snapshot(cmd.Context()) {
				obj = append(obj, jsonout.Cons(s.Key, describeOption(s.Value)))
			}

			bw := bufio.NewWriter(cmd.OutOrStdout())
			if err := jsonout.EncodeTo(bw, obj); err != nil {
				return err
			}
			if err := bw.WriteByte('\n'); err != nil {
				return err
			}
			return bw.Flush()
		},
	}
}

// describeOption renders an option value as something printable.
func describeOption(v any) any {
	switch tv := v.(type) {
	case func(string) string:
		return mapperName(tv)
	case *jsonout.Package:
		return tv.Name()
	case *jsonout.EscapeTable:
		var b strings.Builder
		for _, e := range tv.Entries() {
			b.WriteByte(e.Letter)
		}
		return b.String()
	case *slog.Logger:
		return fmt.Sprintf("%T", tv.Handler())
	default:
		return v
	}
}

func mapperName(fn func(string) string) string {
	ptr := reflect.ValueOf(fn).Pointer()
	for _, name := range jsonout.NameMapperNames() {
		if m, ok := jsonout.NameMapper(name); ok && reflect.ValueOf(m).Pointer() == ptr {
			return name
		}
	}
	return "custom"
}
