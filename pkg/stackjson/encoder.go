package stackjson

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/lk2023060901/stackjson-go/pkg/jsontoken"
	"github.com/lk2023060901/stackjson-go/pkg/log"
	"github.com/lk2023060901/stackjson-go/pkg/metrics"
	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
)

// StreamWriter 分段写出一个值。每次 Step 写到缓冲数据达到刷新阈值或文档结束为止。
type StreamWriter struct {
	eng       *writeEngine
	w         *jsontoken.Writer
	threshold int
	finished  bool
}

// NewStreamWriter 创建 v 的分段写出器，刷新阈值为 0 时使用 DefaultFlushThreshold。
func (s *Serializer) NewStreamWriter(v any) (*StreamWriter, error) {
	eng, err := s.newWriteEngine(v)
	if err != nil {
		return nil, err
	}
	threshold := s.cfg.flushThreshold
	if threshold == 0 {
		threshold = DefaultFlushThreshold
	}
	return &StreamWriter{
		eng:       eng,
		w:         jsontoken.NewWriter(make([]byte, 0, threshold+threshold/4)),
		threshold: threshold,
	}, nil
}

// Step 继续写出并返回本次产生的数据，数据在下一次 Step 前有效。
// finished 为 true 时文档已完整写出。
func (sw *StreamWriter) Step() (chunk []byte, finished bool, err error) {
	if sw.finished {
		return nil, true, nil
	}
	sw.w.Drain()
	finished, err = sw.eng.write(sw.w, sw.threshold)
	if err != nil {
		return nil, false, err
	}
	sw.finished = finished
	return sw.w.Bytes(), finished, nil
}

// Finished 判断文档是否已完整写出。
func (sw *StreamWriter) Finished() bool {
	return sw.finished
}

// Encoder 将值依次写入 io.Writer，每个文档后追加换行。
type Encoder struct {
	s   *Serializer
	dst io.Writer

	log.Binder
}

func (s *Serializer) NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		s:   s,
		dst: w,
	}
}

// Encode 写出 v。缓冲数据达到刷新阈值时先写给下游再继续，两次写出之间检查 ctx。
func (e *Encoder) Encode(ctx context.Context, v any) (err error) {
	written := 0
	defer func() {
		observe(metrics.EncodeLabel, written, err)
		if err != nil {
			e.Logger().Warn("encode json stream failed", zap.Int("written", written), zap.Error(err))
		}
	}()

	sw, err := e.s.NewStreamWriter(v)
	if err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk, finished, err := sw.Step()
		if err != nil {
			return err
		}
		if finished {
			chunk = append(chunk, '\n')
		}
		if len(chunk) > 0 {
			if _, err := e.dst.Write(chunk); err != nil {
				return merr.WrapErrIoFailed(err, "write json stream")
			}
			written += len(chunk)
			metrics.Flushes.Inc()
		}
		if finished {
			return nil
		}
	}
}
