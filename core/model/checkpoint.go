package model

// Checkpoint 记录分页游标，只由分页器修改。
type Checkpoint struct {
	LastOffset int `json:"last_offset"`
}

// DownloadOutcome 单个资产下载的结果，不持久化。
type DownloadOutcome struct {
	AssetID   string
	LocalPath string
	Success   bool
	// Existing 表示目标文件已存在且非空，未发起网络请求。
	Existing bool
	// Skipped 表示重试耗尽后放弃，该资产不计入成功。
	Skipped  bool
	Attempts int
	Bytes    int64
	// MD5 新下载内容的摘要，已存在的文件不计算。
	MD5 string
	Err error
}
