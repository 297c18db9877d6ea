// Package progress 定期输出导出进度。
package progress

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dnslin/ocm-export/core/httpclient"
)

// completionLogEvery 每完成多少个下载额外记录一次。
const completionLogEvery = 50

// Options 进度输出配置。
type Options struct {
	// Interval 周期输出间隔，0 表示只在结束时输出。
	Interval time.Duration
	Logger   httpclient.Logger
}

// Stats 进度快照。
type Stats struct {
	Pages      int64
	Items      int64
	Scheduled  int64
	Downloaded int64
	Existing   int64
	Failed     int64
	Bytes      int64
}

// Completed 已结束的下载数（含已存在与失败）。
func (s Stats) Completed() int64 {
	return s.Downloaded + s.Existing + s.Failed
}

// Reporter 以原子计数汇总进度，由定时器周期写日志。
type Reporter struct {
	opts Options

	pages      atomic.Int64
	items      atomic.Int64
	scheduled  atomic.Int64
	downloaded atomic.Int64
	existing   atomic.Int64
	failed     atomic.Int64
	bytes      atomic.Int64
	done       atomic.Int64

	mu        sync.Mutex
	startTime time.Time
	stopCh    chan struct{}
	doneCh    chan struct{}
	started   bool
	stopped   bool
}

// NewReporter 创建进度汇报器。
func NewReporter(opts Options) *Reporter {
	if opts.Logger == nil {
		opts.Logger = httpclient.NopLogger{}
	}
	return &Reporter{
		opts:   opts,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start 启动周期输出。
func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.startTime = time.Now()
	go r.updateLoop()
}

// Stop 停止周期输出并打印最终状态，重复调用安全。
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped || !r.started {
		r.stopped = true
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh
}

// PageFetched 记录一页目录记录。
func (r *Reporter) PageFetched(items int) {
	r.pages.Add(1)
	r.items.Add(int64(items))
}

// FileScheduled 记录一个已调度的下载。
func (r *Reporter) FileScheduled() {
	r.scheduled.Add(1)
}

// Downloaded 记录一次成功下载。
func (r *Reporter) Downloaded(bytes int64) {
	r.downloaded.Add(1)
	r.bytes.Add(bytes)
	r.completed()
}

// Existing 记录一次因文件已存在而跳过的下载。
func (r *Reporter) Existing() {
	r.existing.Add(1)
	r.completed()
}

// Failed 记录一次放弃的下载。
func (r *Reporter) Failed() {
	r.failed.Add(1)
	r.completed()
}

// Snapshot 返回当前计数。
func (r *Reporter) Snapshot() Stats {
	return Stats{
		Pages:      r.pages.Load(),
		Items:      r.items.Load(),
		Scheduled:  r.scheduled.Load(),
		Downloaded: r.downloaded.Load(),
		Existing:   r.existing.Load(),
		Failed:     r.failed.Load(),
		Bytes:      r.bytes.Load(),
	}
}

func (r *Reporter) completed() {
	if n := r.done.Add(1); n%completionLogEvery == 0 {
		r.opts.Logger.Infof("已完成 %d 个下载", n)
	}
}

func (r *Reporter) updateLoop() {
	defer close(r.doneCh)
	if r.opts.Interval <= 0 {
		<-r.stopCh
		r.printFinal()
		return
	}
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopCh:
			r.printFinal()
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

func (r *Reporter) printProgress() {
	s := r.Snapshot()
	pending := s.Scheduled - s.Completed()
	if pending < 0 {
		pending = 0
	}
	r.opts.Logger.Infof("进度: 分页 %d | 记录 %d | 下载 %d 完成 / %d 已存在 / %d 失败 / %d 进行中 | %s",
		s.Pages, s.Items, s.Downloaded, s.Existing, s.Failed, pending, FormatBytes(s.Bytes))
}

func (r *Reporter) printFinal() {
	s := r.Snapshot()
	duration := time.Since(r.startTime)
	avg := float64(0)
	if duration > 0 {
		avg = float64(s.Bytes) / duration.Seconds()
	}
	r.opts.Logger.Infof("结束: 分页 %d | 记录 %d | 下载 %d 完成 / %d 已存在 / %d 失败 | %s | 耗时 %s | 平均 %s/s",
		s.Pages, s.Items, s.Downloaded, s.Existing, s.Failed, FormatBytes(s.Bytes),
		FormatDuration(duration), FormatBytes(int64(avg)))
}

// FormatBytes 以二进制单位格式化字节数，例如 "1.5 KiB"。
func FormatBytes(b int64) string {
	if b < 0 {
		b = 0
	}
	return humanize.IBytes(uint64(b))
}

// FormatDuration 格式化耗时。
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm %ds", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}
