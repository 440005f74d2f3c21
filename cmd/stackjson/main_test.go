package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/stackjson-go/pkg/stackjson"
	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
)

const fmtInput = `{ "a" : [1, 2.50, -3e2, true,false, null],
  "s": "tab\there é\/", "o": {} }
[ ]  "plain"
  42 {"nested":{"deep":[[{}]]}}
`

const fmtOutput = `{"a":[1,2.50,-3e2,true,false,null],"s":"tab\there é/","o":{}}
[]
"plain"
42
{"nested":{"deep":[[{}]]}}
`

func TestCompactStream(t *testing.T) {
	ctx := context.Background()
	for _, size := range []int{1, 3, 64, stackjson.DefaultBufferSize} {
		fc := stackjson.DefaultFileConfig()
		fc.BufferSize = size
		var out bytes.Buffer
		docs, err := compactStream(ctx, iotest.HalfReader(strings.NewReader(fmtInput)), &out, fc)
		require.NoError(t, err, "buffer %d", size)
		assert.Equal(t, 5, docs)
		assert.Equal(t, fmtOutput, out.String(), "buffer %d", size)
	}
}

func TestCompactStream_Errors(t *testing.T) {
	ctx := context.Background()
	fc := stackjson.DefaultFileConfig()

	_, err := compactStream(ctx, strings.NewReader(`{"a":1} {"b":`), &bytes.Buffer{}, fc)
	assert.ErrorIs(t, err, merr.ErrIncompleteDocument)

	docs, err := compactStream(ctx, strings.NewReader(`[1] [1,]`), &bytes.Buffer{}, fc)
	assert.ErrorIs(t, err, merr.ErrMalformedInput)
	assert.Equal(t, 1, docs)

	fc.MaxDepth = 2
	_, err = compactStream(ctx, strings.NewReader(`[[[1]]]`), &bytes.Buffer{}, fc)
	assert.ErrorIs(t, err, merr.ErrMaxDepthExceeded)

	docs, err = compactStream(ctx, strings.NewReader("  \n"), &bytes.Buffer{}, fc)
	assert.NoError(t, err)
	assert.Zero(t, docs)
}

func TestCompactStream_BufferLimit(t *testing.T) {
	ctx := context.Background()
	fc := stackjson.DefaultFileConfig()
	fc.BufferSize = 4
	fc.MaxBufferSize = 8

	long := "[" + strings.Repeat("1,", 200) + "1]"
	var out bytes.Buffer
	docs, err := compactStream(ctx, strings.NewReader(long+" "+long), &out, fc)
	require.NoError(t, err)
	assert.Equal(t, 2, docs)
	assert.Equal(t, long+"\n"+long+"\n", out.String())

	_, err = compactStream(ctx, strings.NewReader(`["0123456789"]`), &bytes.Buffer{}, fc)
	assert.ErrorIs(t, err, merr.ErrBufferLimitExceeded)

	fc.MaxBufferSize = 2
	_, err = compactStream(ctx, strings.NewReader(`[]`), &bytes.Buffer{}, fc)
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)
}

func TestRun_Fmt(t *testing.T) {
	t.Setenv("STACKJSON_CONFIG_FILE_PATH", "")
	t.Chdir(t.TempDir())
	ctx := context.Background()

	var stdout, stderr bytes.Buffer
	code := run(ctx, []string{"fmt"}, strings.NewReader(fmtInput), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, fmtOutput, stdout.String())

	out := filepath.Join(t.TempDir(), "out.zst")
	stdout.Reset()
	code = run(ctx, []string{"fmt", "--compress", "zstd", "-o", out}, strings.NewReader(fmtInput), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	packed, err := os.ReadFile(out)
	require.NoError(t, err)
	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	plain, err := dec.DecodeAll(packed, nil)
	require.NoError(t, err)
	assert.Equal(t, fmtOutput, string(plain))

	stdout.Reset()
	code = run(ctx, []string{"fmt", "--decompress", "zstd", "-i", out}, nil, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, fmtOutput, stdout.String())

	stderr.Reset()
	code = run(ctx, []string{"fmt"}, strings.NewReader(`{"a":}`), &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "offset=")
}

func TestRun_Bench(t *testing.T) {
	t.Setenv("STACKJSON_CONFIG_FILE_PATH", "")
	t.Chdir(t.TempDir())
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"bench", "-n", "20", "--depth", "2", "-c", "2"}, nil, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	for _, name := range []string{"stackjson", "sonic", "jsoniter", "stackjson-stream", "stackjson-framed"} {
		assert.Contains(t, stdout.String(), name)
	}

	code = run(context.Background(), []string{"bench", "--serializers", "gob"}, nil, &stdout, &stderr)
	assert.Equal(t, 1, code)
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), nil, nil, &stdout, &stderr))
	assert.Equal(t, 2, run(context.Background(), []string{"nope"}, nil, &stdout, &stderr))
	assert.Equal(t, 0, run(context.Background(), []string{"help"}, nil, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "commands:")
}
