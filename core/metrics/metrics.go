// Package metrics 提供导出过程的 Prometheus 指标。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ocmexport_pages_fetched_total",
			Help: "已获取的目录分页数",
		},
	)

	itemsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocmexport_items_fetched_total",
			Help: "已获取的目录记录数",
		},
		[]string{"kind"},
	)

	pageFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ocmexport_page_fetch_duration_seconds",
			Help:    "单页获取耗时（含重试）",
			Buckets: prometheus.DefBuckets,
		},
	)

	downloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocmexport_downloads_total",
			Help: "按结果统计的资产下载数",
		},
		[]string{"result"},
	)

	downloadRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ocmexport_download_retries_total",
			Help: "下载重试次数",
		},
	)

	bytesDownloaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ocmexport_bytes_downloaded_total",
			Help: "写入磁盘的字节数",
		},
	)

	activeDownloads = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ocmexport_active_downloads",
			Help: "正在进行的下载数",
		},
	)

	checkpointOffset = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ocmexport_checkpoint_offset",
			Help: "最近一次持久化的分页偏移量",
		},
	)

	foldersIndexed = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ocmexport_folders_indexed",
			Help: "按解析结果统计的文件夹数",
		},
		[]string{"outcome"},
	)
)

// 下载结果标签。
const (
	ResultDownloaded = "downloaded"
	ResultExisting   = "existing"
	ResultFailed     = "failed"
	ResultCanceled   = "canceled"
)

// RecordPage 记录一次分页获取。
func RecordPage(folders, files int, duration time.Duration) {
	pagesFetched.Inc()
	itemsFetched.WithLabelValues("folder").Add(float64(folders))
	itemsFetched.WithLabelValues("file").Add(float64(files))
	pageFetchDuration.Observe(duration.Seconds())
}

// RecordDownload 记录一次下载结束。
func RecordDownload(result string, bytes int64) {
	downloadsTotal.WithLabelValues(result).Inc()
	if result == ResultDownloaded && bytes > 0 {
		bytesDownloaded.Add(float64(bytes))
	}
}

// RecordRetry 记录一次下载重试。
func RecordRetry() {
	downloadRetries.Inc()
}

// DownloadStarted 活跃下载数加一。
func DownloadStarted() {
	activeDownloads.Inc()
}

// DownloadFinished 活跃下载数减一。
func DownloadFinished() {
	activeDownloads.Dec()
}

// SetCheckpoint 更新检查点偏移量。
func SetCheckpoint(offset int) {
	checkpointOffset.Set(float64(offset))
}

// SetFolders 更新某类解析结果的文件夹数。
func SetFolders(outcome string, n int) {
	foldersIndexed.WithLabelValues(outcome).Set(float64(n))
}

// Handler 返回 /metrics 处理器。
func Handler() http.Handler {
	return promhttp.Handler()
}
