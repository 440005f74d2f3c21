package main

import (
	"context"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lk2023060901/stackjson-go/application"
	"github.com/lk2023060901/stackjson-go/internal/codec"
	"github.com/lk2023060901/stackjson-go/internal/compressor"
	"github.com/lk2023060901/stackjson-go/pkg/jsontoken"
	"github.com/lk2023060901/stackjson-go/pkg/log"
	"github.com/lk2023060901/stackjson-go/pkg/stackjson"
	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
)

type fmtFlags struct {
	config     string
	in         string
	out        string
	decompress string
	compress   string
}

func runFmt(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var f fmtFlags
	fs := pflag.NewFlagSet("fmt", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.config, "config", "", "config file path")
	fs.StringVarP(&f.in, "in", "i", "-", "input file, - for stdin")
	fs.StringVarP(&f.out, "out", "o", "-", "output file, - for stdout")
	fs.StringVar(&f.decompress, "decompress", compressor.NameNop, "input compression: none|zstd")
	fs.StringVar(&f.compress, "compress", compressor.NameNop, "output compression: none|zstd")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app := application.New(application.WithConfigPath(f.config))
	if err := app.Run(); err != nil {
		return err
	}
	fc := app.FileConfig()
	ctx, span := log.NewIntentContext(log.WithLogger(ctx, app.Logger("cli")), "stackjson", "fmt")
	defer span.End()

	src, closeIn, err := openInput(f.in, stdin)
	if err != nil {
		return err
	}
	defer closeIn()
	dst, closeOut, err := openOutput(f.out, stdout)
	if err != nil {
		return err
	}
	defer closeOut()

	inComp, err := compressor.ByName(f.decompress)
	if err != nil {
		return err
	}
	defer closeCompressor(inComp)
	outComp, err := compressor.ByName(f.compress)
	if err != nil {
		return err
	}
	defer closeCompressor(outComp)

	plain, err := codec.NewReader(src, inComp)
	if err != nil {
		return err
	}
	defer plain.Close()

	pr, pw := io.Pipe()
	g, gctx := errgroup.WithContext(ctx)
	var docs int
	g.Go(func() error {
		n, err := compactStream(gctx, plain, pw, fc)
		docs = n
		pw.CloseWithError(err)
		return err
	})
	g.Go(func() error {
		err := writeOutput(pr, dst, outComp)
		pr.CloseWithError(err)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	log.Ctx(ctx).Info("fmt finished", zap.Int("documents", docs))
	return nil
}

func writeOutput(r io.Reader, dst io.Writer, c compressor.Compressor) error {
	w, err := codec.NewWriter(dst, c)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return merr.WrapErrIoFailed(err, "write output")
	}
	return errors.Wrap(w.Close(), "close output")
}

func closeCompressor(c compressor.Compressor) {
	if z, ok := c.(*compressor.ZstdCompressor); ok {
		z.Close()
	}
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return stdin, func() {}, nil
	}
	fd, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open input %q", path)
	}
	return fd, func() { _ = fd.Close() }, nil
}

func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return stdout, func() {}, nil
	}
	fd, err := os.Create(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "create output %q", path)
	}
	return fd, func() { _ = fd.Close() }, nil
}

// compactStream 逐个读取 src 中的 JSON 文档，去掉多余空白后写入 dst，每个文档占一行。
// 字符串按统一的转义规则重新编码，数字保持原文。
func compactStream(ctx context.Context, src io.Reader, dst io.Writer, fc stackjson.FileConfig) (int, error) {
	if fc.BufferSize <= 0 || fc.MaxBufferSize < fc.BufferSize {
		return 0, merr.WrapErrParameterInvalidMsg("buffer-size must be positive and not above max-buffer-size")
	}
	in := &inputBuffer{buf: make([]byte, fc.BufferSize), maxSize: fc.MaxBufferSize}
	state := jsontoken.NewState(fc.MaxDepth)
	w := jsontoken.NewWriter(make([]byte, 0, fc.BufferSize))
	var scratch []byte
	eof := false
	docs := 0

	for {
		pending := in.pending()
		if eof && !state.Started() && jsontoken.IsWhitespace(pending) {
			return docs, nil
		}
		if len(pending) > 0 || eof {
			r := jsontoken.NewReader(pending, eof, state)
			for {
				ok, err := r.Read()
				if err != nil {
					return docs, err
				}
				if !ok {
					break
				}
				scratch = emitToken(w, r, scratch)
			}
			in.start += r.Consumed()
			state = r.State()

			if state.Done() {
				docs++
				if err := w.Flush(dst); err != nil {
					return docs, err
				}
				if _, err := dst.Write([]byte{'\n'}); err != nil {
					return docs, merr.WrapErrIoFailed(err, "write newline")
				}
				w.Reset()
				state = state.Next()
				continue
			}
			if w.Len() >= fc.BufferSize {
				if err := w.Flush(dst); err != nil {
					return docs, err
				}
			}
		}

		if err := ctx.Err(); err != nil {
			return docs, err
		}
		if in.end == len(in.buf) {
			if err := in.makeRoom(); err != nil {
				return docs, err
			}
			log.Ctx(ctx).RatedDebug(1, "fmt input buffer resized", zap.Int("size", len(in.buf)))
		}
		n, err := src.Read(in.buf[in.end:])
		in.end += n
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			eof = true
		default:
			return docs, merr.WrapErrIoFailed(err, "read input")
		}
	}
}

// inputBuffer 保存尚未消费的输入，buf[start:end] 为待分词数据。
type inputBuffer struct {
	buf        []byte
	start, end int
	maxSize    int
}

func (b *inputBuffer) pending() []byte {
	return b.buf[b.start:b.end]
}

// makeRoom 在缓冲区写满时腾出空间：待处理数据超过一半时翻倍扩容（不超过 maxSize），
// 否则把待处理数据移到开头。缓冲区已达上限且无法移动时返回 ErrBufferLimitExceeded。
func (b *inputBuffer) makeRoom() error {
	remaining := b.end - b.start
	if remaining > len(b.buf)/2 && len(b.buf) < b.maxSize {
		size := min(len(b.buf)*2, b.maxSize)
		grown := make([]byte, size)
		copy(grown, b.pending())
		b.buf = grown
		b.start, b.end = 0, remaining
		return nil
	}
	if b.start == 0 {
		return merr.WrapErrBufferLimitExceeded(len(b.buf), b.maxSize)
	}
	copy(b.buf, b.pending())
	b.start, b.end = 0, remaining
	return nil
}

func emitToken(w *jsontoken.Writer, r *jsontoken.Reader, scratch []byte) []byte {
	switch r.Kind() {
	case jsontoken.StartObject:
		w.StartObject()
	case jsontoken.EndObject:
		w.EndObject()
	case jsontoken.StartArray:
		w.StartArray()
	case jsontoken.EndArray:
		w.EndArray()
	case jsontoken.PropertyName:
		scratch = r.AppendString(scratch[:0])
		w.NameString(string(scratch))
	case jsontoken.String:
		scratch = r.AppendString(scratch[:0])
		w.String(string(scratch))
	case jsontoken.Number:
		w.Raw(r.Value())
	case jsontoken.True:
		w.Bool(true)
	case jsontoken.False:
		w.Bool(false)
	case jsontoken.Null:
		w.Null()
	}
	return scratch
}
