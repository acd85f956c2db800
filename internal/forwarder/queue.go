package forwarder

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nchanged/vitakube/internal/metric"
)

// SendObserver is notified about every delivery attempt. Optional.
type SendObserver interface {
	RecordSend(err error)
}

// Queue buffers batches in memory, spills them to a disk spool, and flushes
// merged batches to the consumer with retries.
type Queue struct {
	dir           string
	failDir       string
	maxBatch      int
	maxRetries    int
	backoff       time.Duration
	flushEvery    time.Duration
	maxBatchBytes int64
	memoryBuffer  int
	sender        *Sender
	observer      SendObserver
	logger        *slog.Logger

	mu       sync.Mutex
	mem      []queuedBatch
	memBytes int64
	flushCh  chan struct{}
}

type queuedBatch struct {
	batch metric.Batch
	raw   []byte
	size  int64
}

// NewQueue returns a configured Queue.
func NewQueue(dir string, maxBatch, maxRetries int, backoff, flushEvery time.Duration, maxBatchBytes int64, memoryBuffer int, sender *Sender, observer SendObserver, logger *slog.Logger) *Queue {
	if maxBatch <= 0 {
		maxBatch = 50
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoff <= 0 {
		backoff = 10 * time.Second
	}
	if flushEvery <= 0 {
		flushEvery = 5 * time.Second
	}
	if maxBatchBytes <= 0 {
		maxBatchBytes = 512 * 1024
	}
	if memoryBuffer < 0 {
		memoryBuffer = 0
	}
	return &Queue{
		dir:           dir,
		failDir:       filepath.Join(dir, "failed"),
		maxBatch:      maxBatch,
		maxRetries:    maxRetries,
		backoff:       backoff,
		flushEvery:    flushEvery,
		maxBatchBytes: maxBatchBytes,
		memoryBuffer:  memoryBuffer,
		sender:        sender,
		observer:      observer,
		logger:        logger,
		flushCh:       make(chan struct{}, 1),
	}
}

// Enqueue accepts one pass worth of metrics for delivery.
func (q *Queue) Enqueue(batch metric.Batch) error {
	if q == nil || q.sender == nil || q.dir == "" {
		return nil
	}
	if len(batch.Metrics) == 0 {
		return nil
	}
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	if q.memoryBuffer == 0 {
		return q.writeToDisk(data)
	}

	shouldFlush := false
	q.mu.Lock()
	q.mem = append(q.mem, queuedBatch{batch: batch, raw: data, size: int64(len(data))})
	q.memBytes += int64(len(data))
	if q.memBytes >= q.maxBatchBytes {
		shouldFlush = true
	}
	for len(q.mem) > q.memoryBuffer || q.memBytes > q.maxBatchBytes {
		item := q.mem[0]
		q.mem = q.mem[1:]
		q.memBytes -= item.size
		if err := q.writeToDisk(item.raw); err != nil {
			q.logger.Warn("spill to disk failed", slog.String("error", err.Error()))
		}
	}
	q.mu.Unlock()

	if shouldFlush {
		q.signalFlush()
	}
	return nil
}

// Run flushes queued batches on an interval until ctx is done.
func (q *Queue) Run(ctx context.Context) {
	if q == nil || q.sender == nil || q.dir == "" {
		return
	}
	ticker := time.NewTicker(q.flushEvery)
	defer ticker.Stop()

	for {
		q.flushOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-q.flushCh:
			q.flushOnce(ctx)
		}
	}
}

func (q *Queue) flushOnce(ctx context.Context) {
	if err := os.MkdirAll(q.dir, 0o750); err != nil {
		q.logger.Warn("create queue dir failed", slog.String("error", err.Error()))
		return
	}

	if q.flushMemory(ctx) {
		return
	}

	entries, err := os.ReadDir(q.dir)
	if err != nil {
		q.logger.Warn("read queue dir failed", slog.String("error", err.Error()))
		return
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".json") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	batchFiles := make([]string, 0, q.maxBatch)
	var batchBytes int64
	now := time.Now()
	for _, name := range files {
		if len(batchFiles) >= q.maxBatch {
			break
		}
		path := filepath.Join(q.dir, name)
		retries := parseRetries(name)
		if retries > q.maxRetries {
			q.moveToFailed(path)
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) < q.backoffDuration(retries) {
			continue
		}
		if batchBytes+info.Size() > q.maxBatchBytes && len(batchFiles) > 0 {
			break
		}
		batchFiles = append(batchFiles, path)
		batchBytes += info.Size()
	}

	if len(batchFiles) == 0 {
		return
	}

	batches := make([]metric.Batch, 0, len(batchFiles))
	for _, path := range batchFiles {
		data, err := os.ReadFile(path) // #nosec G304 -- path is from queue dir entries
		if err != nil {
			q.logger.Warn("read queue file failed", slog.String("error", err.Error()))
			continue
		}
		var batch metric.Batch
		if err := json.Unmarshal(data, &batch); err != nil {
			q.logger.Warn("decode queue file failed", slog.String("error", err.Error()))
			continue
		}
		batches = append(batches, batch)
	}

	if len(batches) == 0 {
		return
	}

	if err := q.send(ctx, mergeBatches(batches)); err != nil {
		q.logger.Warn("batch send failed", slog.String("error", err.Error()))
		q.bumpRetries(batchFiles)
		return
	}

	for _, path := range batchFiles {
		if err := os.Remove(path); err != nil {
			q.logger.Warn("remove queue file failed", slog.String("error", err.Error()))
		}
	}
}

func (q *Queue) flushMemory(ctx context.Context) bool {
	q.mu.Lock()
	if len(q.mem) == 0 {
		q.mu.Unlock()
		return false
	}
	taken := make([]queuedBatch, 0, q.maxBatch)
	var takenBytes int64
	for _, item := range q.mem {
		if len(taken) >= q.maxBatch {
			break
		}
		if takenBytes+item.size > q.maxBatchBytes && len(taken) > 0 {
			break
		}
		taken = append(taken, item)
		takenBytes += item.size
	}
	q.mem = q.mem[len(taken):]
	q.memBytes -= takenBytes
	q.mu.Unlock()

	batches := make([]metric.Batch, 0, len(taken))
	for _, item := range taken {
		batches = append(batches, item.batch)
	}
	if err := q.send(ctx, mergeBatches(batches)); err != nil {
		q.logger.Warn("in-memory send failed", slog.String("error", err.Error()))
		for _, item := range taken {
			if err := q.writeToDisk(item.raw); err != nil {
				q.logger.Warn("spill to disk failed", slog.String("error", err.Error()))
			}
		}
	}
	return true
}

func (q *Queue) send(ctx context.Context, batch metric.Batch) error {
	err := q.sender.Send(ctx, batch)
	if q.observer != nil {
		q.observer.RecordSend(err)
	}
	return err
}

// mergeBatches concatenates per-pass batches into one payload. The agent is
// single-node, so every batch carries the same node name.
func mergeBatches(batches []metric.Batch) metric.Batch {
	if len(batches) == 0 {
		return metric.Batch{}
	}
	merged := metric.Batch{Node: batches[0].Node}
	for _, batch := range batches {
		merged.Metrics = append(merged.Metrics, batch.Metrics...)
	}
	return merged
}

func (q *Queue) bumpRetries(paths []string) {
	for _, path := range paths {
		base := filepath.Base(path)
		next := setRetries(base, parseRetries(base)+1)
		dst := filepath.Join(q.dir, next)
		_ = os.Chtimes(path, time.Now(), time.Now())
		if err := os.Rename(path, dst); err != nil {
			q.logger.Warn("rename queue file failed", slog.String("error", err.Error()))
		}
	}
}

func (q *Queue) moveToFailed(path string) {
	if err := os.MkdirAll(q.failDir, 0o750); err != nil {
		return
	}
	dst := filepath.Join(q.failDir, filepath.Base(path))
	_ = os.Rename(path, dst)
}

func parseRetries(name string) int {
	idx := strings.LastIndex(name, "_r")
	if idx == -1 {
		return 0
	}
	retries, err := strconv.Atoi(strings.TrimSuffix(name[idx+2:], ".json"))
	if err != nil {
		return 0
	}
	return retries
}

func setRetries(name string, retries int) string {
	idx := strings.LastIndex(name, "_r")
	if idx == -1 {
		return name
	}
	return name[:idx+2] + strconv.Itoa(retries) + ".json"
}

func (q *Queue) writeToDisk(data []byte) error {
	if err := os.MkdirAll(q.dir, 0o750); err != nil {
		return fmt.Errorf("create queue dir: %w", err)
	}
	name := fmt.Sprintf("%d_%06d_r0.json", time.Now().UTC().UnixNano(), q.randIntn(1_000_000))
	tmpPath := filepath.Join(q.dir, name+".tmp")
	finalPath := filepath.Join(q.dir, name)
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("write queue file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("commit queue file: %w", err)
	}
	return nil
}

func (q *Queue) backoffDuration(retries int) time.Duration {
	base := q.backoff
	if base <= 0 {
		base = 10 * time.Second
	}
	if retries <= 0 {
		return base
	}
	if retries > 12 {
		retries = 12
	}
	backoff := base * time.Duration(1<<retries)
	jitter := 0.2
	factor := 1 - jitter + q.randFloat64()*(2*jitter)
	return time.Duration(float64(backoff) * factor)
}

func (q *Queue) signalFlush() {
	select {
	case q.flushCh <- struct{}{}:
	default:
	}
}

func (q *Queue) randFloat64() float64 {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return 0.5
	}
	return float64(n.Int64()) / 10000.0
}

func (q *Queue) randIntn(n int) int {
	if n <= 0 {
		return 0
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(val.Int64())
}
