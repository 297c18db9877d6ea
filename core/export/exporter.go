package export

import (
	"context"
	"encoding/json"
	"os"
	"time"

	coreerrors "github.com/dnslin/ocm-export/core/errors"
	"github.com/dnslin/ocm-export/core/folder"
	"github.com/dnslin/ocm-export/core/httpclient"
	"github.com/dnslin/ocm-export/core/metrics"
	"github.com/dnslin/ocm-export/core/model"
	"github.com/dnslin/ocm-export/core/progress"
	"github.com/dnslin/ocm-export/core/store"
	"github.com/dnslin/ocm-export/core/task"
)

// 检查点推进时机。
const (
	// ModePageBarrier 等待本页下载全部结束后再保存检查点。
	ModePageBarrier = "page-barrier"
	// ModeEnumeration 每页调度完即保存检查点，仅在分页结束后统一等待。
	ModeEnumeration = "enumeration"
)

// Catalog 导出所需的全部远端操作，*ocm.Client 满足该接口。
type Catalog interface {
	Lister
	task.Fetcher
	ListMembers(ctx context.Context) ([]json.RawMessage, error)
}

// Options 导出参数。
type Options struct {
	Paths          store.Paths
	PageLimit      int
	MaxWorkers     int
	ChunkSize      int
	Retry          task.RetryConfig
	CheckpointMode string
	Force          bool
	ExportMembers  bool
	// ProgressInterval 周期进度日志间隔，0 表示只在结束时输出。
	ProgressInterval time.Duration
	// OnUnauthorized 下载返回 401 时调用。
	OnUnauthorized func()
	Logger         httpclient.Logger
}

// Summary 一次导出的统计结果。
type Summary struct {
	RunID       string
	Pages       int
	Items       int
	Folders     int
	Files       int
	Downloaded  int
	Existing    int
	Failed      int
	Canceled    int
	Bytes       int64
	Members     int
	StartOffset int
	FinalOffset int
	Duration    time.Duration
}

func (s *Summary) add(outcomes []model.DownloadOutcome) {
	for _, o := range outcomes {
		switch {
		case o.Success && o.Existing:
			s.Existing++
		case o.Success:
			s.Downloaded++
			s.Bytes += o.Bytes
		case o.Skipped:
			s.Failed++
		default:
			s.Canceled++
		}
	}
}

// Exporter 单次导出流程。
type Exporter struct {
	catalog     Catalog
	opts        Options
	logger      httpclient.Logger
	checkpoints store.CheckpointStore
	snapshot    store.FolderSnapshotStore
}

// New 创建导出器。
func New(catalog Catalog, opts Options) *Exporter {
	if opts.Logger == nil {
		opts.Logger = httpclient.NopLogger{}
	}
	if opts.CheckpointMode == "" {
		opts.CheckpointMode = ModePageBarrier
	}
	return &Exporter{
		catalog:     catalog,
		opts:        opts,
		logger:      opts.Logger,
		checkpoints: store.NewFileCheckpointStore(opts.Paths.State()),
		snapshot:    store.NewFolderSnapshot(opts.Paths.Folders()),
	}
}

// Run 执行导出。单个资产失败只计入 Summary；分页失败返回 ErrEnumeration，
// 上下文取消返回取消错误，两种情况下检查点都不会越过未完成的页。
func (e *Exporter) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{}
	defer func() { summary.Duration = time.Since(start) }()

	for _, dir := range []string{e.opts.Paths.FilesDir, e.opts.Paths.MetaDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return summary, coreerrors.Wrap(coreerrors.ErrCodeStorage, "export: 创建目录 "+dir+" 失败", err)
		}
	}

	pager := NewPaginator(e.catalog, e.opts.PageLimit, e.logger)

	index, err := e.buildIndex(ctx, pager)
	if err != nil {
		return summary, err
	}
	summary.Folders = index.Len()

	if e.opts.Force {
		e.logger.Infof("强制重新开始，清除检查点 %s", e.opts.Paths.State())
		if err := e.checkpoints.Reset(); err != nil {
			return summary, err
		}
	}
	cp, err := e.checkpoints.Load()
	if err != nil {
		return summary, err
	}
	summary.StartOffset = cp.LastOffset
	summary.FinalOffset = cp.LastOffset
	metrics.SetCheckpoint(cp.LastOffset)

	sink, err := store.OpenAssetLog(e.opts.Paths.Assets())
	if err != nil {
		return summary, err
	}
	defer sink.Close()

	reporter := progress.NewReporter(progress.Options{Interval: e.opts.ProgressInterval, Logger: e.logger})
	coord := task.NewCoordinator(e.catalog, sink, e.opts.Paths.FilesDir,
		task.WithMaxConcurrent(e.opts.MaxWorkers),
		task.WithRetry(e.opts.Retry),
		task.WithChunkSize(e.opts.ChunkSize),
		task.WithLogger(e.logger),
		task.WithUnauthorizedHook(e.opts.OnUnauthorized),
	)
	coord.Subscribe(observe(reporter))
	summary.RunID = coord.RunID()

	e.logger.Infof("开始导出 run=%s offset=%d mode=%s", summary.RunID, cp.LastOffset, e.opts.CheckpointMode)
	reporter.Start()
	defer reporter.Stop()

	err = e.exportAssets(ctx, pager, coord, reporter, index, &cp, summary)
	summary.FinalOffset = cp.LastOffset
	if err != nil {
		return summary, err
	}

	if e.opts.ExportMembers {
		e.exportMembers(ctx, summary)
	}
	return summary, nil
}

// buildIndex 优先复用文件夹快照，不存在时单独分页收集文件夹并保存快照。
func (e *Exporter) buildIndex(ctx context.Context, pager *Paginator) (*folder.Index, error) {
	var records []model.AssetRecord
	if e.snapshot.Exists() {
		loaded, err := e.snapshot.Load()
		if err != nil {
			return nil, err
		}
		records = loaded
		e.logger.Infof("复用文件夹快照，共 %d 个文件夹", len(records))
	} else {
		e.logger.Infof("未找到文件夹快照，开始收集文件夹")
		if _, err := pager.Walk(ctx, 0, func(page Page) error {
			records = append(records, page.Folders...)
			return nil
		}); err != nil {
			return nil, err
		}
		if err := e.snapshot.Save(records); err != nil {
			return nil, err
		}
		e.logger.Infof("文件夹快照已保存，共 %d 个文件夹", len(records))
	}

	nodes := make([]model.FolderNode, 0, len(records))
	for _, r := range records {
		nodes = append(nodes, r.Folder())
	}
	index := folder.BuildIndex(nodes, e.logger)
	for outcome, n := range index.Counts() {
		metrics.SetFolders(outcome.String(), n)
	}
	return index, nil
}

func (e *Exporter) exportAssets(ctx context.Context, pager *Paginator, coord *task.Coordinator, rep *progress.Reporter, index *folder.Index, cp *model.Checkpoint, summary *Summary) error {
	barrier := e.opts.CheckpointMode != ModeEnumeration
	var all *task.Batch
	if !barrier {
		all = coord.Begin()
	}

	_, err := pager.Walk(ctx, cp.LastOffset, func(page Page) error {
		summary.Pages++
		summary.Items += page.Len()
		rep.PageFetched(page.Len())
		metrics.RecordPage(len(page.Folders), len(page.Files), page.Duration)

		batch := all
		if barrier {
			batch = coord.Begin()
		}
		scheduleErr := e.schedule(ctx, batch, page.Files, index, rep, summary)
		if barrier {
			summary.add(batch.Wait())
		}
		if scheduleErr != nil {
			return scheduleErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		next := page.Offset + pager.Limit()
		if next > cp.LastOffset {
			cp.LastOffset = next
		}
		if err := e.checkpoints.Save(*cp); err != nil {
			return err
		}
		metrics.SetCheckpoint(cp.LastOffset)
		return nil
	})

	if all != nil {
		e.logger.Infof("分页结束，等待剩余下载完成")
		summary.add(all.Wait())
	}
	return err
}

func (e *Exporter) schedule(ctx context.Context, batch *task.Batch, files []model.AssetRecord, index *folder.Index, rep *progress.Reporter, summary *Summary) error {
	for _, asset := range files {
		if _, err := batch.Schedule(ctx, asset, index); err != nil {
			return err
		}
		summary.Files++
		rep.FileScheduled()
	}
	return nil
}

// exportMembers 导出仓库成员，失败只记录日志。
func (e *Exporter) exportMembers(ctx context.Context, summary *Summary) {
	members, err := e.catalog.ListMembers(ctx)
	if err != nil {
		e.logger.Warnf("获取仓库成员失败: %v", err)
		return
	}
	if err := store.WriteJSONAtomic(e.opts.Paths.Members(), members); err != nil {
		e.logger.Warnf("写入成员列表失败: %v", err)
		return
	}
	summary.Members = len(members)
	e.logger.Infof("已导出 %d 个仓库成员", len(members))
}
