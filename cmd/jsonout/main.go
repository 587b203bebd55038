// jsonout - encode JSON, YAML and TOML documents as canonical JSON
//
// Usage:
//
//	jsonout encode [--format F] [--names M] [--symbol-keys] [--strict] [--gzip] [-o out] [files...]
//	jsonout options                     Print the encoder options in force
//	jsonout version                     Print version info
//
// Options are read from --config (any format viper understands) and from
// JSONOUT_* environment variables, e.g. JSONOUT_STRICT_ESCAPE_RULES=false.
//
// If no file is given, encode reads JSON from stdin.
package main

import (
	"log/slog"
	"os"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
