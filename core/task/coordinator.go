package task

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/dnslin/ocm-export/core/httpclient"
	"github.com/dnslin/ocm-export/core/model"
	"github.com/dnslin/ocm-export/core/store"
)

// Fetcher 打开资产原始内容流，单次尝试，由协调器负责重试。
type Fetcher interface {
	OpenNative(ctx context.Context, assetID string) (io.ReadCloser, int64, error)
}

// PathIndex 查询文件夹相对路径，*folder.Index 满足该接口。
type PathIndex interface {
	Path(folderID string) (string, bool)
}

// RetryConfig 下载重试参数，与分页重试同形但计数独立。
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Coordinator 有界并发的下载协调器。磁盘上的非空目标文件是唯一的完成依据。
type Coordinator struct {
	mu        sync.RWMutex
	callbacks []ProgressCallback

	fetcher  Fetcher
	sink     store.AssetSink
	filesDir string
	logger   httpclient.Logger

	runID          string
	maxConcurrent  int
	semaphore      chan struct{}
	retry          RetryConfig
	chunkSize      int
	onUnauthorized func()
	now            func() time.Time
}

// CoordinatorOption 协调器配置选项。
type CoordinatorOption func(*Coordinator)

// WithMaxConcurrent 设置最大并发数。
func WithMaxConcurrent(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxConcurrent = n
		}
	}
}

// WithRetry 设置下载重试参数。
func WithRetry(cfg RetryConfig) CoordinatorOption {
	return func(c *Coordinator) {
		if cfg.MaxAttempts > 0 {
			c.retry = cfg
		}
	}
}

// WithChunkSize 设置单次读写缓冲大小。
func WithChunkSize(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithLogger 注入日志。
func WithLogger(logger httpclient.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRunID 指定写入元数据日志的运行 ID。
func WithRunID(id string) CoordinatorOption {
	return func(c *Coordinator) {
		if id != "" {
			c.runID = id
		}
	}
}

// WithUnauthorizedHook 在下载返回 401 时、重试之前调用，通常用于作废缓存令牌。
func WithUnauthorizedHook(fn func()) CoordinatorOption {
	return func(c *Coordinator) {
		c.onUnauthorized = fn
	}
}

// NewCoordinator 创建下载协调器。
func NewCoordinator(fetcher Fetcher, sink store.AssetSink, filesDir string, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		fetcher:       fetcher,
		sink:          sink,
		filesDir:      filesDir,
		logger:        httpclient.NopLogger{},
		runID:         uuid.New().String(),
		maxConcurrent: 4,
		retry: RetryConfig{
			MaxAttempts: 5,
			BaseDelay:   2 * time.Second,
			MaxDelay:    60 * time.Second,
		},
		chunkSize: 1 << 20,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.semaphore = make(chan struct{}, c.maxConcurrent)
	return c
}

// RunID 返回本次运行 ID。
func (c *Coordinator) RunID() string {
	return c.runID
}

// Subscribe 订阅任务状态变化，需在调度前注册。
func (c *Coordinator) Subscribe(callback ProgressCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, callback)
}

// Begin 开启一个批次，批次内调度的任务可以通过 Wait 统一等待。
func (c *Coordinator) Begin() *Batch {
	return &Batch{c: c}
}

func (c *Coordinator) notifyProgress(task *Task) {
	c.mu.RLock()
	callbacks := make([]ProgressCallback, len(c.callbacks))
	copy(callbacks, c.callbacks)
	c.mu.RUnlock()

	clone := task.Clone()
	for _, cb := range callbacks {
		cb(clone)
	}
}

func (c *Coordinator) acquireSemaphore(ctx context.Context) error {
	select {
	case c.semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) releaseSemaphore() {
	<-c.semaphore
}

// Batch 一组下载任务的汇合点。
type Batch struct {
	c        *Coordinator
	wg       conc.WaitGroup
	mu       sync.Mutex
	outcomes []model.DownloadOutcome
}

// Schedule 等待空闲的并发名额后在后台启动下载并立即返回任务 ID。
// 上下文取消时不再启动新任务并返回错误。
func (b *Batch) Schedule(ctx context.Context, asset model.AssetRecord, index PathIndex) (string, error) {
	if err := b.c.acquireSemaphore(ctx); err != nil {
		return "", err
	}
	task := NewTask(uuid.New().String(), asset.ID)
	b.c.notifyProgress(task)
	b.wg.Go(func() {
		defer b.c.releaseSemaphore()
		outcome := b.c.runDownload(ctx, task, asset, index)
		b.mu.Lock()
		b.outcomes = append(b.outcomes, outcome)
		b.mu.Unlock()
	})
	return task.ID, nil
}

// Wait 等待批次内全部任务结束并返回各自结果，顺序与完成顺序一致。
func (b *Batch) Wait() []model.DownloadOutcome {
	b.wg.Wait()
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.DownloadOutcome, len(b.outcomes))
	copy(out, b.outcomes)
	return out
}
