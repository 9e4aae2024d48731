package writer

import (
	"context"
	"sync"
	"time"

	"dex-sentinel/internal/worker/monitor"

	"go.uber.org/zap"
)

const DEFAULT_QUEUE_SIZE = 1000

// AsyncBatchWriter 把事件攒批后交给 BatchWriter。Submit 不阻塞，队列满或已关闭时丢弃
type AsyncBatchWriter[T any] struct {
	id            string
	workers       int
	tl            *zap.Logger
	writer        BatchWriter[T]
	batchSize     int
	flushInterval time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan T
	wg     sync.WaitGroup
}

func NewAsyncBatchWriter[T any](tl *zap.Logger, writer BatchWriter[T], batchSize int, flushInterval time.Duration, id string, workers int) *AsyncBatchWriter[T] {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	return &AsyncBatchWriter[T]{
		id:            id,
		workers:       workers,
		tl:            tl,
		writer:        writer,
		queue:         make(chan T, DEFAULT_QUEUE_SIZE),
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}
}

// Start ctx 取消后 worker 写完手上的批次退出，队列里剩余的由 Close 处理
func (b *AsyncBatchWriter[T]) Start(ctx context.Context) {
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.loop(ctx)
	}
}

func (b *AsyncBatchWriter[T]) loop(ctx context.Context) {
	defer b.wg.Done()
	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	batch := make([]T, 0, b.batchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		b.write(ctx, batch)
		batch = make([]T, 0, b.batchSize)
	}

	for {
		select {
		case <-ctx.Done():
			flush(context.WithoutCancel(ctx))
			return
		case item, ok := <-b.queue:
			if !ok {
				flush(context.WithoutCancel(ctx))
				return
			}
			batch = append(batch, item)
			if len(batch) >= b.batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		}
	}
}

func (b *AsyncBatchWriter[T]) write(ctx context.Context, batch []T) {
	start := time.Now()
	size := len(batch)
	monitor.AsyncWriterBatchSize.WithLabelValues(b.id).Observe(float64(size))

	if err := b.writer.BWrite(ctx, batch); err != nil {
		b.tl.Warn("Batch write failed", zap.String("id", b.id), zap.Int("size", size), zap.Error(err))
	} else {
		monitor.AsyncWriterItemsWritten.WithLabelValues(b.id).Add(float64(size))
	}
	monitor.AsyncWriterFlushDuration.WithLabelValues(b.id).Observe(time.Since(start).Seconds())
}

func (b *AsyncBatchWriter[T]) Submit(item T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		monitor.AsyncWriterMessagesDropped.WithLabelValues(b.id).Inc()
		return
	}

	select {
	case b.queue <- item:
		monitor.AsyncWriterMessagesQueued.WithLabelValues(b.id).Inc()
	default:
		monitor.AsyncWriterMessagesDropped.WithLabelValues(b.id).Inc()
		b.tl.Warn("Batch input channel full, dropping item", zap.String("id", b.id))
	}
}

// Close 停止接收，写完队列中剩余数据后关闭下游，可重复调用
func (b *AsyncBatchWriter[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	b.wg.Wait()

	// worker 因 ctx 取消提前退出或从未启动时，在这里把剩余数据写完
	var rest []T
	for item := range b.queue {
		rest = append(rest, item)
	}
	for len(rest) > 0 {
		n := min(len(rest), b.batchSize)
		b.write(context.Background(), rest[:n])
		rest = rest[n:]
	}
	if err := b.writer.Close(); err != nil {
		b.tl.Warn("Close batch writer failed", zap.String("id", b.id), zap.Error(err))
	}
}
