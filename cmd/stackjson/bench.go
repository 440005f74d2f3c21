package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lk2023060901/stackjson-go/application"
	"github.com/lk2023060901/stackjson-go/internal/codec"
	"github.com/lk2023060901/stackjson-go/internal/compressor"
	"github.com/lk2023060901/stackjson-go/internal/framer"
	"github.com/lk2023060901/stackjson-go/internal/serializer"
	"github.com/lk2023060901/stackjson-go/pkg/log"
	"github.com/lk2023060901/stackjson-go/pkg/stackjson"
	"github.com/lk2023060901/stackjson-go/pkg/util/hardware"
	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
)

type benchDoc struct {
	ID       int64            `json:"id"`
	Name     string           `json:"name"`
	Score    float64          `json:"score"`
	Active   bool             `json:"active"`
	Tags     []string         `json:"tags"`
	Samples  [][]int32        `json:"samples"`
	Children []*benchDoc      `json:"children"`
	Attrs    []benchAttribute `json:"attrs"`
}

type benchAttribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func makeBenchDoc(id int64, depth int) *benchDoc {
	d := &benchDoc{
		ID:      id,
		Name:    "doc-" + strconv.FormatInt(id, 10) + " \"quoted\" é",
		Score:   float64(id) / 8,
		Active:  id%2 == 0,
		Tags:    []string{"alpha", "beta", strings.Repeat("x", int(id%16))},
		Samples: [][]int32{{1, 2, 3}, {}, {int32(id), -int32(id)}},
		Attrs:   []benchAttribute{{Key: "k", Value: "v"}},
	}
	if depth > 0 {
		for i := int64(0); i < 2; i++ {
			d.Children = append(d.Children, makeBenchDoc(id*2+i, depth-1))
		}
	}
	return d
}

type benchResult struct {
	name      string
	marshal   time.Duration
	unmarshal time.Duration
	bytes     int64
}

func runBench(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		config      string
		count       int
		depth       int
		concurrency int
		names       []string
	)
	fs := pflag.NewFlagSet("bench", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&config, "config", "", "config file path")
	fs.IntVarP(&count, "count", "n", 1000, "documents per serializer")
	fs.IntVar(&depth, "depth", 3, "nesting depth of generated documents")
	fs.IntVarP(&concurrency, "concurrency", "c", hardware.GetCPUNum(), "parallel workers")
	fs.StringSliceVar(&names, "serializers", serializer.Names(), "serializers to compare")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if count <= 0 || depth < 0 || concurrency <= 0 {
		return merr.WrapErrParameterInvalidMsg("count and concurrency must be positive, depth non-negative")
	}

	app := application.New(application.WithConfigPath(config))
	if err := app.Run(); err != nil {
		return err
	}
	opts, err := app.SerializerOptions()
	if err != nil {
		return err
	}
	ctx, span := log.NewIntentContext(log.WithLogger(ctx, app.Logger("cli")), "stackjson", "bench")
	defer span.End()

	docs := make([]*benchDoc, count)
	for i := range docs {
		docs[i] = makeBenchDoc(int64(i), depth)
	}

	results := make([]benchResult, 0, len(names)+1)
	for _, name := range names {
		s, err := serializer.ByName(name, opts...)
		if err != nil {
			return err
		}
		res, err := benchSerializer(ctx, s, docs, concurrency)
		if err != nil {
			return err
		}
		results = append(results, res)
	}
	res, err := benchStream(ctx, opts, docs)
	if err != nil {
		return err
	}
	results = append(results, res)
	res, err = benchFramed(opts, docs)
	if err != nil {
		return err
	}
	results = append(results, res)

	log.Ctx(ctx).Info("bench finished", zap.Int("documents", count), zap.Int("results", len(results)))
	fmt.Fprintf(stdout, "%-18s %14s %14s %12s\n", "serializer", "marshal", "unmarshal", "bytes")
	for _, r := range results {
		fmt.Fprintf(stdout, "%-18s %14s %14s %12d\n", r.name, r.marshal, r.unmarshal, r.bytes)
	}
	return nil
}

func benchSerializer(ctx context.Context, s serializer.Serializer, docs []*benchDoc, concurrency int) (benchResult, error) {
	res := benchResult{name: s.Name()}
	encoded := make([][]byte, len(docs))
	var total atomic.Int64

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, d := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := s.Marshal(d)
			if err != nil {
				return err
			}
			encoded[i] = data
			total.Add(int64(len(data)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	res.marshal = time.Since(start)
	res.bytes = total.Load()

	start = time.Now()
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, data := range encoded {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var out benchDoc
			return s.Unmarshal(data, &out)
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	res.unmarshal = time.Since(start)
	return res, nil
}

// benchStream 通过 Encoder/Decoder 在一条流上写出并读回全部文档。
func benchStream(ctx context.Context, opts []stackjson.Option, docs []*benchDoc) (benchResult, error) {
	res := benchResult{name: "stackjson-stream"}
	s, err := stackjson.New(opts...)
	if err != nil {
		return res, err
	}

	var buf bytes.Buffer
	start := time.Now()
	enc := s.NewEncoder(&buf)
	for _, d := range docs {
		if err := enc.Encode(ctx, d); err != nil {
			return res, err
		}
	}
	res.marshal = time.Since(start)
	res.bytes = int64(buf.Len())

	start = time.Now()
	dec := s.NewDecoder(&buf)
	for range docs {
		var out benchDoc
		if err := dec.Decode(ctx, &out); err != nil {
			return res, err
		}
	}
	res.unmarshal = time.Since(start)
	return res, nil
}

// benchFramed 把每个文档序列化、压缩后写成长度前缀帧，再逐帧读回。
func benchFramed(opts []stackjson.Option, docs []*benchDoc) (benchResult, error) {
	res := benchResult{name: "stackjson-framed"}
	s, err := serializer.NewStackJSON(opts...)
	if err != nil {
		return res, err
	}
	z, err := compressor.NewZstdCompressorWithConcurrency(1)
	if err != nil {
		return res, err
	}
	defer z.Close()
	c, err := codec.New(codec.Options{
		Framer:            framer.NewLengthPrefixedFramer(0),
		Serializer:        s,
		Compressor:        z,
		EnableCompression: true,
	})
	if err != nil {
		return res, err
	}

	var buf bytes.Buffer
	start := time.Now()
	for _, d := range docs {
		if err := c.Encode(&buf, d); err != nil {
			return res, err
		}
	}
	res.marshal = time.Since(start)
	res.bytes = int64(buf.Len())

	start = time.Now()
	for range docs {
		var out benchDoc
		if err := c.Decode(&buf, &out); err != nil {
			return res, err
		}
	}
	res.unmarshal = time.Since(start)
	return res, nil
}
