package export

import (
	"github.com/dnslin/ocm-export/core/metrics"
	"github.com/dnslin/ocm-export/core/progress"
	"github.com/dnslin/ocm-export/core/task"
)

// observe 将任务状态变化同步到进度汇报器与 Prometheus 指标。
func observe(rep *progress.Reporter) task.ProgressCallback {
	return func(t *task.Task) {
		switch t.Status {
		case task.TaskStatusPending:
			metrics.DownloadStarted()
		case task.TaskStatusRetrying:
			metrics.RecordRetry()
		case task.TaskStatusCompleted:
			rep.Downloaded(t.Progress)
			metrics.RecordDownload(metrics.ResultDownloaded, t.Progress)
			metrics.DownloadFinished()
		case task.TaskStatusExisting:
			rep.Existing()
			metrics.RecordDownload(metrics.ResultExisting, 0)
			metrics.DownloadFinished()
		case task.TaskStatusFailed:
			rep.Failed()
			metrics.RecordDownload(metrics.ResultFailed, 0)
			metrics.DownloadFinished()
		case task.TaskStatusCanceled:
			metrics.RecordDownload(metrics.ResultCanceled, 0)
			metrics.DownloadFinished()
		}
	}
}
