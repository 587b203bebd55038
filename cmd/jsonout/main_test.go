package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neumenon/jsonout/docload"
	"github.com/Neumenon/jsonout/jsonout"
)

type result struct {
	stdout string
	stderr string
	err    error
}

// run executes the CLI with args and restores the global options afterwards.
func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()

	snap := jsonout.Snapshot(context.Background())
	t.Cleanup(func() {
		require.NoError(t, jsonout.ApplyBulk(snap...))
	})

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// ============================================================
// encode
// ============================================================

func TestEncode_Stdin(t *testing.T) {
	res := run(t, `{"b": 1, "a": [true, null, "x", 12345678901234567890]}`, "encode")
	require.NoError(t, res.err)
	assert.Equal(t, `{"b":1,"a":[true,null,"x",12345678901234567890]}`+"\n", res.stdout)
}

func TestEncode_NDJSON(t *testing.T) {
	res := run(t, "{\"a\":1}\n{\"a\":2}\n", "encode")
	require.NoError(t, res.err)
	assert.Equal(t, "{\"a\":1}\n{\"a\":2}\n", res.stdout)
}

func TestEncode_YAMLFile(t *testing.T) {
	path := writeFile(t, "doc.yaml", `base: &b
  x: 1
item:
  <<: *b
  y: 2.5
---
- one
- 2
`)
	res := run(t, "", "encode", path)
	require.NoError(t, res.err)
	assert.Equal(t,
		`{"base":{"x":1},"item":{"x":1,"y":2.5}}`+"\n"+`["one",2]`+"\n",
		res.stdout)
}

func TestEncode_TOMLFile(t *testing.T) {
	path := writeFile(t, "doc.toml", "b = 1\na = \"x\"\n\n[t]\nk = true\n")
	res := run(t, "", "encode", path)
	require.NoError(t, res.err)
	assert.Equal(t, `{"a":"x","b":1,"t":{"k":true}}`+"\n", res.stdout)
}

func TestEncode_FormatFlagOverridesExtension(t *testing.T) {
	path := writeFile(t, "doc.txt", "k: v\n")
	res := run(t, "", "encode", "--format", "yaml", path)
	require.NoError(t, res.err)
	assert.Equal(t, `{"k":"v"}`+"\n", res.stdout)
}

func TestEncode_SymbolKeys(t *testing.T) {
	res := run(t, `{"maxSize":1}`, "encode", "--symbol-keys")
	require.NoError(t, res.err)
	assert.Equal(t, `{"maxSize":1}`+"\n", res.stdout)

	res = run(t, `{"maxSize":1}`, "encode", "--symbol-keys", "--names", "snake-case")
	require.NoError(t, res.err)
	assert.Equal(t, `{"max_size":1}`+"\n", res.stdout)
}

func TestEncode_NamesWithoutSymbolKeys(t *testing.T) {
	res := run(t, `{"maxSize":1}`, "encode", "--names", "snake-case")
	require.NoError(t, res.err)
	assert.Equal(t, `{"maxSize":1}`+"\n", res.stdout)
}

func TestEncode_UnknownNameMapper(t *testing.T) {
	res := run(t, `{}`, "encode", "--names", "no-such-mapper")
	require.ErrorIs(t, res.err, jsonout.ErrInvalidOption)
}

func TestEncode_Strict(t *testing.T) {
	in := "t: 2024-01-02T03:04:05Z\n"

	res := run(t, in, "encode", "--format", "yaml")
	require.NoError(t, res.err)
	assert.Equal(t, `{"t":"2024-01-02T03:04:05Z"}`+"\n", res.stdout)

	res = run(t, in, "encode", "--format", "yaml", "--strict")
	require.ErrorIs(t, res.err, jsonout.ErrUnencodable)
	assert.Contains(t, res.err.Error(), "stdin: document 0")
}

func TestEncode_GzipOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.json.gz")
	res := run(t, `[1,2,3]`, "encode", "--gzip", "-o", out)
	require.NoError(t, res.err)
	assert.Empty(t, res.stdout)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "[1,2,3]\n", string(data))
}

func TestEncode_Errors(t *testing.T) {
	res := run(t, `{}`, "encode", "--format", "xml")
	require.ErrorIs(t, res.err, docload.ErrUnknownFormat)

	res = run(t, "", "encode", filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, res.err, os.ErrNotExist)

	res = run(t, `{"a":`, "encode")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "stdin")

	res = run(t, `[1,2`, "encode")
	require.Error(t, res.err)
	assert.Empty(t, res.stdout)
}

// ============================================================
// options, config, version
// ============================================================

func TestOptions_Defaults(t *testing.T) {
	res := run(t, "", "options")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"identifier-name-to-json":"camel-case"`)
	assert.Contains(t, res.stdout, `"json-identifier-name-to-identifier":"identifier-case"`)
	assert.Contains(t, res.stdout, `"strict-escape-rules":true`)
	assert.Contains(t, res.stdout, `"symbols-package":"keyword"`)
	assert.True(t, strings.HasPrefix(res.stdout, `{"escape-table":`), res.stdout)
}

func TestOptions_ConfigFile(t *testing.T) {
	path := writeFile(t, "jsonout.yaml", "identifier-name-to-json: snake-case\nbogus: 1\n")

	res := run(t, "", "--config", path, "options")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"identifier-name-to-json":"snake-case"`)
	assert.Contains(t, res.stderr, "unknown option ignored")
	assert.Contains(t, res.stderr, "bogus")
}

func TestOptions_ConfigFileAppliesToEncode(t *testing.T) {
	path := writeFile(t, "jsonout.toml", "identifier-name-to-json = \"snake-case\"\n")

	res := run(t, `{"maxSize":1}`, "--config", path, "encode", "--symbol-keys")
	require.NoError(t, res.err)
	assert.Equal(t, `{"max_size":1}`+"\n", res.stdout)
}

func TestOptions_Env(t *testing.T) {
	t.Setenv("JSONOUT_STRICT_ESCAPE_RULES", "false")

	res := run(t, "", "options")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"strict-escape-rules":false`)
}

func TestOptions_InvalidValue(t *testing.T) {
	t.Setenv("JSONOUT_STRICT_ESCAPE_RULES", "sometimes")

	res := run(t, "", "options")
	require.ErrorIs(t, res.err, jsonout.ErrInvalidOption)
}

func TestConfig_MissingFile(t *testing.T) {
	res := run(t, "", "--config", filepath.Join(t.TempDir(), "none.yaml"), "version")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "read config")
}

func TestVersion(t *testing.T) {
	res := run(t, "", "version")
	require.NoError(t, res.err)
	assert.Equal(t, "jsonout "+version+"\n", res.stdout)
}

func TestDescribeOption(t *testing.T) {
	assert.Equal(t, "snake-case", describeOption(jsonout.SnakeCase))
	assert.Equal(t, "custom", describeOption(strings.ToUpper))
	assert.Equal(t, "keyword", describeOption(jsonout.Keyword))
	assert.Equal(t, `"\bfnrtu`, describeOption(jsonout.DefaultEscapeTable))
	assert.Equal(t, true, describeOption(true))
}
